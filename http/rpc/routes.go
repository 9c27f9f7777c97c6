// Package rpc exposes a dispatch.Publishing over HTTP and provides the
// matching client.
//
// Routes:
//
//	POST   /rpc/dispatch             action envelope -> {"result": ...}
//	POST   /rpc/subscriptions        {"kinds": [...]} -> {"subscription_id": n}
//	GET    /rpc/subscriptions/:id    ?wait=30s -> {"results": [...]}
//	DELETE /rpc/subscriptions/:id    -> 204
package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/dispatch"
	"github.com/rise-and-shine/actionrpc/meta"
	"github.com/rise-and-shine/actionrpc/observability/logger"
	"github.com/rise-and-shine/actionrpc/val"
	"github.com/rise-and-shine/actionrpc/wire"
)

// Backend is the dispatcher the routes serve.
type Backend interface {
	dispatch.Executor
	Subscribe(match dispatch.Predicate) dispatch.SubscriptionID
	CheckNotifications(ctx context.Context, id dispatch.SubscriptionID) ([]dispatch.Notification, error)
	Cancel(id dispatch.SubscriptionID) error
}

var _ Backend = (*dispatch.Publishing)(nil)

// Routes holds the handlers of the rpc endpoints.
type Routes struct {
	cfg     Config
	codec   *wire.Codec
	backend Backend
	logger  logger.Logger
}

func NewRoutes(cfg Config, codec *wire.Codec, backend Backend, log logger.Logger) *Routes {
	return &Routes{
		cfg:     cfg,
		codec:   codec,
		backend: backend,
		logger:  log.Named("rpc.routes"),
	}
}

// Register adds the rpc endpoints to r.
func (h *Routes) Register(r fiber.Router) {
	r.Post(PathDispatch, h.dispatch)
	r.Post(PathSubscriptions, h.subscribe)
	r.Get(PathSubscription, h.check)
	r.Delete(PathSubscription, h.cancel)
}

func (h *Routes) dispatch(c *fiber.Ctx) error {
	a, err := h.codec.DecodeAction(c.Body())
	if err != nil {
		return err
	}

	ctx := meta.InjectMetaToContext(c.UserContext(), map[meta.ContextKey]string{
		meta.ActionKind: string(a.Kind()),
	})

	res, err := h.backend.Dispatch(ctx, a)
	if err != nil {
		return err
	}

	raw, err := h.codec.EncodeResult(res)
	if err != nil {
		return err
	}

	return c.JSON(DispatchResponse{Result: raw})
}

func (h *Routes) subscribe(c *fiber.Ctx) error {
	var req SubscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.New("invalid request body",
			errx.WithCode(action.CodeDecodeFailed),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"cause": err.Error()}),
		)
	}
	if err := val.ValidateSchema(req); err != nil {
		return err
	}

	kinds := lo.Map(req.Kinds, func(k string, _ int) action.Kind { return action.Kind(k) })
	id := h.backend.Subscribe(dispatch.MatchKinds(kinds...))

	h.logger.WithContext(c.UserContext()).
		With(string(meta.SubscriptionID), id.String()).
		With("kinds", req.Kinds).
		Debug("subscription created")

	return c.Status(fiber.StatusCreated).JSON(SubscribeResponse{SubscriptionID: id})
}

func (h *Routes) check(c *fiber.Ctx) error {
	id, err := subscriptionID(c)
	if err != nil {
		return err
	}

	wait, err := h.waitOf(c)
	if err != nil {
		return err
	}

	parent := c.UserContext()
	ctx, cancel := context.WithTimeout(parent, wait)
	defer cancel()

	ns, err := h.backend.CheckNotifications(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil:
		ns = nil
	default:
		return err
	}

	resp := CheckResponse{Results: make([]wire.NotificationEnvelope, 0, len(ns))}
	for _, n := range ns {
		env, err := h.codec.EncodeNotification(n.Action, n.Result)
		if err != nil {
			return err
		}
		resp.Results = append(resp.Results, env)
	}

	return c.JSON(resp)
}

func (h *Routes) cancel(c *fiber.Ctx) error {
	id, err := subscriptionID(c)
	if err != nil {
		return err
	}
	if err := h.backend.Cancel(id); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// waitOf reads the wait query parameter, falling back to DefaultWait and
// capping at MaxWait.
func (h *Routes) waitOf(c *fiber.Ctx) (time.Duration, error) {
	raw := c.Query("wait")
	if raw == "" {
		return h.cfg.DefaultWait, nil
	}

	wait, err := cast.ToDurationE(raw)
	if err != nil || wait < 0 {
		return 0, errx.New("wait must be a non-negative duration",
			errx.WithType(errx.T_Validation),
			errx.WithCode(val.CodeValidationFailed),
			errx.WithFields(errx.M{"wait": "Must be a duration such as 30s"}),
		)
	}
	return min(wait, h.cfg.MaxWait), nil
}

func subscriptionID(c *fiber.Ctx) (dispatch.SubscriptionID, error) {
	id, err := cast.ToUint64E(c.Params("id"))
	if err != nil || id == 0 {
		return 0, errx.New("subscription id must be a positive integer",
			errx.WithCode(action.CodeInvalidSubscription),
			errx.WithType(errx.T_Validation),
			errx.WithDetails(errx.D{"id": c.Params("id")}),
		)
	}
	return dispatch.SubscriptionID(id), nil
}
