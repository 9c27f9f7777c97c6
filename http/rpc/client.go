package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/sony/gobreaker/v2"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/dispatch"
	"github.com/rise-and-shine/actionrpc/http/server"
	"github.com/rise-and-shine/actionrpc/http/server/middleware"
	"github.com/rise-and-shine/actionrpc/meta"
	"github.com/rise-and-shine/actionrpc/observability/logger"
	"github.com/rise-and-shine/actionrpc/wire"
)

const retryMaxJitter = 50 * time.Millisecond

// Client talks to the rpc routes. It is an action.Invoker, so it can be the
// downstream of a filter chain, and also exposes the subscription endpoints.
//
// Transport failures that happen before a request reaches the wire are
// retried. Failures after sending are retried only for dispatches of
// replayable actions. Error responses from the server never are.
// Calls whose retries all failed count towards the circuit breaker.
type Client struct {
	cfg     ClientConfig
	codec   *wire.Codec
	logger  logger.Logger
	breaker *gobreaker.CircuitBreaker[struct{}] // nil when disabled
}

var _ action.Invoker = (*Client)(nil)

func NewClient(cfg ClientConfig, codec *wire.Codec, log logger.Logger) *Client {
	c := &Client{
		cfg:    cfg,
		codec:  codec,
		logger: log.Named("rpc.client"),
	}

	if cfg.BreakerMaxFailures > 0 {
		c.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        cfg.BaseURL,
			MaxRequests: 1,
			Timeout:     cfg.BreakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.logger.
					With("breaker", name).
					With("from", from.String()).
					With("to", to.String()).
					Warn("circuit breaker state changed")
			},
		})
	}

	return c
}

// Invoke dispatches a on its own goroutine and resolves the future with the
// outcome.
func (c *Client) Invoke(ctx context.Context, a action.Action) *action.Future {
	f := action.NewFuture()
	go func() {
		f.Resolve(c.Dispatch(ctx, a))
	}()
	return f
}

// Dispatch sends a to the server and waits for its complete result.
func (c *Client) Dispatch(ctx context.Context, a action.Action) (action.Result, error) {
	body, err := c.codec.EncodeAction(a)
	if err != nil {
		return nil, err
	}

	var resp DispatchResponse
	if err := c.call(ctx, fiber.MethodPost, PathDispatch, body, 0, replayable(a), &resp); err != nil {
		return nil, err
	}

	return c.codec.DecodeResult(a, resp.Result)
}

// Subscribe creates a subscription for results of the given kinds.
func (c *Client) Subscribe(ctx context.Context, kinds ...action.Kind) (dispatch.SubscriptionID, error) {
	req := SubscribeRequest{Kinds: make([]string, 0, len(kinds))}
	for _, k := range kinds {
		req.Kinds = append(req.Kinds, string(k))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return 0, errx.Wrap(err)
	}

	var resp SubscribeResponse
	if err := c.call(ctx, fiber.MethodPost, PathSubscriptions, body, 0, false, &resp); err != nil {
		return 0, err
	}
	return resp.SubscriptionID, nil
}

// Check long-polls the subscription for up to wait. An empty list means
// nothing was published in time, or another check or a cancel took over.
func (c *Client) Check(
	ctx context.Context,
	id dispatch.SubscriptionID,
	wait time.Duration,
) ([]dispatch.Notification, error) {
	path := subscriptionPath(id) + "?wait=" + url.QueryEscape(wait.String())

	var resp CheckResponse
	if err := c.call(ctx, fiber.MethodGet, path, nil, wait, false, &resp); err != nil {
		return nil, err
	}

	out := make([]dispatch.Notification, 0, len(resp.Results))
	for _, env := range resp.Results {
		a, r, err := c.codec.DecodeNotification(env)
		if err != nil {
			return nil, err
		}
		out = append(out, dispatch.Notification{Action: a, Result: r})
	}
	return out, nil
}

// Cancel removes the subscription on the server.
func (c *Client) Cancel(ctx context.Context, id dispatch.SubscriptionID) error {
	return c.call(ctx, fiber.MethodDelete, subscriptionPath(id), nil, 0, false, nil)
}

// call performs one request with retries and decodes a success body into
// out. Error responses are rebuilt into errx errors. With replay unset, a
// request that may have reached the server is never sent again.
func (c *Client) call(
	ctx context.Context,
	method, path string,
	body []byte,
	extra time.Duration,
	replay bool,
	out any,
) error {
	var (
		status int
		data   []byte
	)

	err := c.guard(func() error {
		return retry.Do(
			func() error {
				var err error
				var sent bool
				status, data, sent, err = c.roundTrip(ctx, method, path, body, c.cfg.Timeout+extra)
				if err != nil && sent && !replay {
					return retry.Unrecoverable(err)
				}
				return err
			},
			retry.Attempts(c.cfg.RetryAttempts),
			retry.Delay(c.cfg.RetryDelay),
			retry.MaxJitter(retryMaxJitter),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				c.logger.WithContext(ctx).
					With("attempt", n+1).
					With("max_attempts", c.cfg.RetryAttempts).
					With("path", path).
					Warnx(err)
			}),
			retry.Context(ctx),
		)
	})
	if err != nil {
		return err
	}

	if status >= fiber.StatusBadRequest {
		return decodeErrorResponse(status, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errx.New("failed to decode response",
			errx.WithCode(action.CodeDecodeFailed),
			errx.WithType(errx.T_Internal),
			errx.WithDetails(errx.D{"path": path, "cause": err.Error()}),
		)
	}
	return nil
}

// guard runs fn through the circuit breaker, if any.
func (c *Client) guard(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}

	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errx.New("circuit breaker rejected the call",
			errx.WithCode(action.CodeCircuitOpen),
			errx.WithType(errx.T_Throttling),
			errx.WithDetails(errx.D{"breaker": c.breaker.Name(), "state": c.breaker.State().String()}),
		)
	}
	return err
}

func (c *Client) roundTrip(
	ctx context.Context,
	method, path string,
	body []byte,
	timeout time.Duration,
) (int, []byte, bool, error) {
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if timeout <= 0 {
		return 0, nil, false, retry.Unrecoverable(context.DeadlineExceeded)
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.cfg.BaseURL + path)
	if body != nil {
		req.Header.SetContentType(fiber.MIMEApplicationJSON)
		req.SetBody(body)
	}
	if traceID := meta.Find(ctx, meta.TraceID); traceID != "" {
		req.Header.Set(middleware.HeaderTraceID, traceID)
	}
	agent.Timeout(timeout)

	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return 0, nil, false, retry.Unrecoverable(transportFailed(path, err))
	}

	// Bytes releases the agent.
	status, data, errs := agent.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		return 0, nil, !isDialError(err), transportFailed(path, err)
	}
	return status, data, true, nil
}

// isDialError reports whether err happened while connecting, so the request
// never reached the server.
func isDialError(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// replayable reports whether a may be sent again after a failure that left
// its fate unknown. Cacheable and mergeable actions are reads by contract; a
// batch is replayable when all of its actions are.
func replayable(a action.Action) bool {
	if batch, ok := a.(action.BatchAction); ok {
		return lo.EveryBy(batch.Actions, replayable)
	}
	_, cacheable := a.(action.Cacheable)
	_, mergeable := a.(action.Mergeable)
	return cacheable || mergeable
}

func decodeErrorResponse(status int, data []byte) error {
	var resp server.ErrorResponse
	if err := json.Unmarshal(data, &resp); err != nil || resp.Error.Code == "" {
		return errx.New("server returned an unreadable error",
			errx.WithCode(action.CodeTransportFailed),
			errx.WithType(errx.T_Internal),
			errx.WithDetails(errx.D{"status": status, "body": string(data)}),
		)
	}

	body := wire.ErrorBody{
		Code:    resp.Error.Code,
		Type:    resp.Error.Type,
		Message: resp.Error.Message,
		Details: resp.Error.Details,
	}
	return body.Err()
}

func transportFailed(path string, err error) error {
	return errx.New("rpc transport failed",
		errx.WithCode(action.CodeTransportFailed),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{"path": path, "cause": err.Error()}),
	)
}

func subscriptionPath(id dispatch.SubscriptionID) string {
	return PathSubscriptions + "/" + strconv.FormatUint(uint64(id), 10)
}
