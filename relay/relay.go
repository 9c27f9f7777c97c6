// Package relay forwards results published by dispatch.Publishing to a
// watermill publisher, so subscribers outside the process (Kafka consumers,
// for example) see the same stream as long-polling clients.
package relay

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/code19m/errx"
	"github.com/google/uuid"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/dispatch"
	"github.com/rise-and-shine/actionrpc/meta"
	"github.com/rise-and-shine/actionrpc/wire"
)

// Metadata keys set on every relayed message.
const (
	MetadataActionKind   = "action_kind"
	MetadataPartitionKey = "partition_key"
	MetadataTraceID      = "trace_id"
)

// Config selects where results are relayed.
type Config struct {
	Topic string `yaml:"topic" validate:"required" default:"actionrpc.results"`
}

// Relay publishes each result as a wire.NotificationEnvelope.
type Relay struct {
	topic     string
	codec     *wire.Codec
	publisher message.Publisher
}

var _ dispatch.Relay = (*Relay)(nil)

func New(cfg Config, codec *wire.Codec, publisher message.Publisher) *Relay {
	return &Relay{
		topic:     cfg.Topic,
		codec:     codec,
		publisher: publisher,
	}
}

func (r *Relay) Relay(ctx context.Context, a action.Action, res action.Result) error {
	n, err := r.codec.EncodeNotification(a, res)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return errx.Wrap(err)
	}
	key, err := r.codec.Key(a)
	if err != nil {
		return err
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(MetadataActionKind, string(a.Kind()))
	msg.Metadata.Set(MetadataPartitionKey, key)
	if traceID := meta.Find(ctx, meta.TraceID); traceID != "" {
		msg.Metadata.Set(MetadataTraceID, traceID)
	}
	msg.SetContext(ctx)

	return errx.Wrap(r.publisher.Publish(r.topic, msg))
}

// Close closes the underlying publisher.
func (r *Relay) Close() error {
	return errx.Wrap(r.publisher.Close())
}

// Decode reads a relayed message back into the action and result.
func Decode(codec *wire.Codec, msg *message.Message) (action.Action, action.Result, error) {
	var n wire.NotificationEnvelope
	if err := json.Unmarshal(msg.Payload, &n); err != nil {
		return nil, nil, errx.New("failed to decode relayed message",
			errx.WithCode(action.CodeDecodeFailed),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"message_uuid": msg.UUID, "cause": err.Error()}),
		)
	}
	return codec.DecodeNotification(n)
}
