// Package wire encodes actions, results and errors as JSON for transports and
// shared caches.
//
// Every action travels inside an Envelope tagged with its kind. The Codec
// holds a static registry from kind to decoders; a kind is registered once
// with Register, which is the only place the action and result types of a
// kind are paired. Batches are built in: a BatchAction carries a list of
// envelopes and a BatchResult a list of per-slot outcomes, each decoded with
// the kind of the sub-action in the same slot.
package wire

import (
	"encoding/json"
	"slices"
	"sync"

	"github.com/code19m/errx"
	"github.com/samber/lo"

	"github.com/rise-and-shine/actionrpc/action"
)

// Envelope is the wire form of an action.
type Envelope struct {
	Kind    action.Kind     `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// OutcomeEnvelope is the wire form of one batch slot.
type OutcomeEnvelope struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorBody      `json:"error,omitempty"`
}

type binding struct {
	decodeAction func(json.RawMessage) (action.Action, error)
	decodeResult func(json.RawMessage) (action.Result, error)
}

// Codec converts actions and results to and from JSON.
// It is safe for concurrent use.
type Codec struct {
	mu    sync.RWMutex
	kinds map[action.Kind]binding
}

// NewCodec returns a Codec that knows only the built-in batch kind.
func NewCodec() *Codec {
	return &Codec{kinds: make(map[action.Kind]binding)}
}

// Register teaches c the kind of A. A must be a value type decodable by
// encoding/json and R the result type bound to it.
func Register[A action.Of[R], R action.Result](c *Codec) error {
	var zero A
	kind := zero.Kind()

	if kind == action.KindBatch {
		return errx.New("batch kind is built in",
			errx.WithCode(action.CodeDuplicateBinding),
			errx.WithType(errx.T_Validation),
		)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.kinds[kind]; ok {
		return errx.New("kind already registered",
			errx.WithCode(action.CodeDuplicateBinding),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"kind": kind}),
		)
	}

	c.kinds[kind] = binding{
		decodeAction: func(raw json.RawMessage) (action.Action, error) {
			var a A
			if len(raw) > 0 {
				if err := json.Unmarshal(raw, &a); err != nil {
					return nil, decodeFailed(kind, err)
				}
			}
			return a, nil
		},
		decodeResult: func(raw json.RawMessage) (action.Result, error) {
			var r R
			if err := json.Unmarshal(raw, &r); err != nil {
				return nil, decodeFailed(kind, err)
			}
			return r, nil
		},
	}

	return nil
}

// MustRegister is Register that panics on error. Meant for program setup.
func MustRegister[A action.Of[R], R action.Result](c *Codec) {
	if err := Register[A, R](c); err != nil {
		panic(err)
	}
}

// Kinds lists the registered kinds in lexical order.
func (c *Codec) Kinds() []action.Kind {
	c.mu.RLock()
	kinds := lo.Keys(c.kinds)
	c.mu.RUnlock()

	slices.Sort(kinds)
	return kinds
}

// EncodeAction returns the envelope JSON of a.
func (c *Codec) EncodeAction(a action.Action) ([]byte, error) {
	env, err := c.ToEnvelope(a)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(env)
	return data, errx.Wrap(err)
}

// DecodeAction parses an envelope produced by EncodeAction.
func (c *Codec) DecodeAction(data []byte) (action.Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, decodeFailed("", err)
	}
	return c.FromEnvelope(env)
}

// FromEnvelope decodes an already parsed envelope.
func (c *Codec) FromEnvelope(env Envelope) (action.Action, error) {
	if env.Kind == action.KindBatch {
		var subs []Envelope
		if err := json.Unmarshal(env.Payload, &subs); err != nil {
			return nil, decodeFailed(env.Kind, err)
		}

		batch := action.BatchAction{Actions: make([]action.Action, 0, len(subs))}
		for _, sub := range subs {
			a, err := c.FromEnvelope(sub)
			if err != nil {
				return nil, err
			}
			batch.Actions = append(batch.Actions, a)
		}
		return batch, nil
	}

	b, err := c.lookup(env.Kind)
	if err != nil {
		return nil, err
	}
	return b.decodeAction(env.Payload)
}

// EncodeResult returns the JSON of r. Batch results are encoded slot by slot
// with errors carried as ErrorBody.
func (c *Codec) EncodeResult(r action.Result) ([]byte, error) {
	br, ok := r.(*action.BatchResult)
	if !ok {
		data, err := json.Marshal(r)
		return data, errx.Wrap(err)
	}

	slots := make([]OutcomeEnvelope, 0, len(br.Outcomes))
	for _, o := range br.Outcomes {
		if o.Err != nil {
			slots = append(slots, OutcomeEnvelope{Error: EncodeError(o.Err)})
			continue
		}
		raw, err := c.EncodeResult(o.Result)
		if err != nil {
			return nil, err
		}
		slots = append(slots, OutcomeEnvelope{Result: raw})
	}

	data, err := json.Marshal(slots)
	return data, errx.Wrap(err)
}

// DecodeResult parses the result of a from data.
//
// For a batch, slot i is decoded with the kind of a.Actions[i]. Slots beyond
// the number of sub-actions are kept as failed outcomes so that a count
// mismatch stays visible to the caller.
func (c *Codec) DecodeResult(a action.Action, data []byte) (action.Result, error) {
	batch, ok := a.(action.BatchAction)
	if !ok {
		b, err := c.lookup(a.Kind())
		if err != nil {
			return nil, err
		}
		return b.decodeResult(data)
	}

	var slots []OutcomeEnvelope
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, decodeFailed(action.KindBatch, err)
	}

	res := &action.BatchResult{Outcomes: make([]action.Outcome, 0, len(slots))}
	for i, slot := range slots {
		switch {
		case slot.Error != nil:
			res.Outcomes = append(res.Outcomes, action.FailedWith(slot.Error.Err()))
		case i >= len(batch.Actions):
			res.Outcomes = append(res.Outcomes, action.FailedWith(errx.New(
				"batch slot has no matching sub-action",
				errx.WithCode(action.CodeBatchCountMismatch),
				errx.WithType(errx.T_Internal),
			)))
		default:
			r, err := c.DecodeResult(batch.Actions[i], slot.Result)
			if err != nil {
				return nil, err
			}
			res.Outcomes = append(res.Outcomes, action.Succeeded(r))
		}
	}

	return res, nil
}

// Key returns a canonical string identifying a by kind and field values.
// Equal actions produce equal keys.
func (c *Codec) Key(a action.Action) (string, error) {
	env, err := c.ToEnvelope(a)
	if err != nil {
		return "", err
	}
	return string(env.Kind) + ":" + string(env.Payload), nil
}

// ToEnvelope wraps a in its kind-tagged envelope.
func (c *Codec) ToEnvelope(a action.Action) (Envelope, error) {
	if a == nil {
		return Envelope{}, errx.New("action is nil",
			errx.WithCode(action.CodeNilAction),
			errx.WithType(errx.T_Validation),
		)
	}

	batch, ok := a.(action.BatchAction)
	if !ok {
		if _, err := c.lookup(a.Kind()); err != nil {
			return Envelope{}, err
		}
		payload, err := json.Marshal(a)
		if err != nil {
			return Envelope{}, errx.Wrap(err)
		}
		return Envelope{Kind: a.Kind(), Payload: payload}, nil
	}

	subs := make([]Envelope, 0, len(batch.Actions))
	for _, sub := range batch.Actions {
		env, err := c.ToEnvelope(sub)
		if err != nil {
			return Envelope{}, err
		}
		subs = append(subs, env)
	}

	payload, err := json.Marshal(subs)
	if err != nil {
		return Envelope{}, errx.Wrap(err)
	}
	return Envelope{Kind: action.KindBatch, Payload: payload}, nil
}

func (c *Codec) lookup(kind action.Kind) (binding, error) {
	c.mu.RLock()
	b, ok := c.kinds[kind]
	c.mu.RUnlock()

	if !ok {
		return binding{}, errx.New("unknown action kind",
			errx.WithCode(action.CodeUnknownKind),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"kind": kind}),
		)
	}
	return b, nil
}

func decodeFailed(kind action.Kind, err error) error {
	return errx.New("failed to decode payload",
		errx.WithCode(action.CodeDecodeFailed),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{
			"kind":  kind,
			"cause": err.Error(),
		}),
	)
}

// NotificationEnvelope is the wire form of a published result together with
// the action that produced it.
type NotificationEnvelope struct {
	Action Envelope        `json:"action"`
	Result json.RawMessage `json:"result"`
}

// EncodeNotification wraps a and its result r.
func (c *Codec) EncodeNotification(a action.Action, r action.Result) (NotificationEnvelope, error) {
	env, err := c.ToEnvelope(a)
	if err != nil {
		return NotificationEnvelope{}, err
	}
	raw, err := c.EncodeResult(r)
	if err != nil {
		return NotificationEnvelope{}, err
	}
	return NotificationEnvelope{Action: env, Result: raw}, nil
}

// DecodeNotification is the inverse of EncodeNotification.
func (c *Codec) DecodeNotification(n NotificationEnvelope) (action.Action, action.Result, error) {
	a, err := c.FromEnvelope(n.Action)
	if err != nil {
		return nil, nil, err
	}
	r, err := c.DecodeResult(a, n.Result)
	if err != nil {
		return nil, nil, err
	}
	return a, r, nil
}
