// Package action defines the data model shared by the client filter chain and
// the server dispatch core: actions, results, their capabilities and the
// Future that carries a single call outcome.
//
// An action is an immutable request value tagged with a Kind. Actions that take
// part in merging or caching are compared with Go equality, so their dynamic
// type must be comparable (a struct of comparable fields, for example).
package action

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/code19m/errx"
)

// Kind names an action type. It selects the handler on the server and the
// decoder on the wire.
type Kind string

// Action is a request submitted for execution.
type Action interface {
	Kind() Kind
}

// Result is the value produced by executing an action.
//
// IsComplete reports whether the result is final. A handler returning an
// incomplete result is invoked again with the same action.
type Result interface {
	IsComplete() bool
}

// Of is an action statically bound to the result type R it produces. The
// binding is declared once on the action type through the ResultOf marker, and
// every generic helper in this module relies on it instead of casting.
type Of[R Result] interface {
	Action
	ResultOf(R)
}

// Cacheable is an action whose results may be reused until CacheExpiry.
// An entry is valid only while the current time is before the expiry.
type Cacheable interface {
	Action
	CacheExpiry(r Result) time.Time
}

// Mergeable marks an action whose concurrent identical submissions share a
// single downstream call.
type Mergeable interface {
	Action
	Mergeable()
}

// Invoker is the asynchronous invoke primitive: it accepts an action and
// returns a Future that is resolved exactly once with the outcome.
type Invoker interface {
	Invoke(ctx context.Context, a Action) *Future
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, a Action) *Future

// Invoke calls f(ctx, a).
func (f InvokerFunc) Invoke(ctx context.Context, a Action) *Future {
	return f(ctx, a)
}

// Execute invokes a through inv, waits for the outcome and returns it as the
// result type bound to the action.
func Execute[R Result](ctx context.Context, inv Invoker, a Of[R]) (R, error) {
	var zero R

	res, err := inv.Invoke(ctx, a).Wait(ctx)
	if err != nil {
		return zero, err
	}

	typed, ok := res.(R)
	if !ok {
		return zero, errx.New(
			"result type does not match the action binding",
			errx.WithCode(CodeResultTypeMismatch),
			errx.WithType(errx.T_Internal),
			errx.WithDetails(errx.D{
				"kind":     a.Kind(),
				"expected": fmt.Sprintf("%T", zero),
				"actual":   fmt.Sprintf("%T", res),
			}),
		)
	}

	return typed, nil
}

// IsComparable reports whether a can be used as a map key.
func IsComparable(a Action) bool {
	return a != nil && reflect.TypeOf(a).Comparable()
}

// EnsureComparable returns an error when a cannot take part in equality based
// lookups.
func EnsureComparable(a Action) error {
	if a == nil {
		return errx.New("action is nil", errx.WithCode(CodeNilAction), errx.WithType(errx.T_Validation))
	}
	if !IsComparable(a) {
		return errx.New(
			"action type is not comparable",
			errx.WithCode(CodeActionNotComparable),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{
				"kind": a.Kind(),
				"type": reflect.TypeOf(a).String(),
			}),
		)
	}
	return nil
}
