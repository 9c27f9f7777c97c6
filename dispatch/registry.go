package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/code19m/errx"
	"github.com/samber/lo"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/handler"
)

// HandlerFunc is the type-erased form of a handler stored in a Registry.
type HandlerFunc func(ctx context.Context, a action.Action) (action.Result, error)

// Registry maps action kinds to handlers. Bindings are normally made at
// startup; lookups are safe at any time.
type Registry struct {
	mu       sync.RWMutex
	handlers map[action.Kind]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[action.Kind]HandlerFunc)}
}

// Handle binds fn to kind. Prefer the typed Bind.
func (r *Registry) Handle(kind action.Kind, fn HandlerFunc) error {
	if fn == nil {
		return errx.New("handler is nil",
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"kind": kind}),
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[kind]; ok {
		return errx.New("kind already has a handler",
			errx.WithCode(action.CodeDuplicateBinding),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"kind": kind}),
		)
	}
	r.handlers[kind] = fn
	return nil
}

// Kinds lists the bound kinds in lexical order.
func (r *Registry) Kinds() []action.Kind {
	r.mu.RLock()
	kinds := lo.Keys(r.handlers)
	r.mu.RUnlock()

	slices.Sort(kinds)
	return kinds
}

func (r *Registry) lookup(kind action.Kind) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.handlers[kind]
	return fn, ok
}

// Bind registers h, decorated with wraps, as the handler of A's kind.
func Bind[A action.Of[R], R action.Result](
	reg *Registry,
	h handler.Handler[A, R],
	wraps ...handler.WrapFunc[A, R],
) error {
	var zero A
	kind := zero.Kind()
	wrapped := handler.Wrap(h, wraps...)

	return reg.Handle(kind, func(ctx context.Context, a action.Action) (action.Result, error) {
		typed, ok := a.(A)
		if !ok {
			return nil, typeMismatch(kind, zero, a)
		}

		res, err := wrapped.Execute(ctx, typed)
		if err != nil {
			return nil, err
		}
		if isNil(res) {
			return nil, nilResult(kind)
		}
		return res, nil
	})
}

// MustBind is Bind that panics on error. Meant for program setup.
func MustBind[A action.Of[R], R action.Result](
	reg *Registry,
	h handler.Handler[A, R],
	wraps ...handler.WrapFunc[A, R],
) {
	if err := Bind(reg, h, wraps...); err != nil {
		panic(err)
	}
}

func isNil(r action.Result) bool {
	if r == nil {
		return true
	}
	v := reflect.ValueOf(r)
	switch v.Kind() { //nolint:exhaustive // only nillable kinds matter
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return v.IsNil()
	default:
		return false
	}
}

func typeMismatch(kind action.Kind, want any, got action.Action) error {
	return errx.New("action does not match the bound handler",
		errx.WithCode(action.CodeActionTypeMismatch),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{
			"kind":     kind,
			"expected": fmt.Sprintf("%T", want),
			"actual":   fmt.Sprintf("%T", got),
		}),
	)
}

func nilResult(kind action.Kind) error {
	return errx.New("handler returned a nil result",
		errx.WithCode(action.CodeNilResult),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{"kind": kind}),
	)
}
