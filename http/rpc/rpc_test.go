package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/rcrowley/go-metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/action/actiontest"
	"github.com/rise-and-shine/actionrpc/dispatch"
	"github.com/rise-and-shine/actionrpc/handler"
	"github.com/rise-and-shine/actionrpc/http/rpc"
	"github.com/rise-and-shine/actionrpc/http/server"
	"github.com/rise-and-shine/actionrpc/http/server/middleware"
	"github.com/rise-and-shine/actionrpc/observability/logger"
	"github.com/rise-and-shine/actionrpc/wire"
)

type fixture struct {
	srv       *server.HTTPServer
	codec     *wire.Codec
	publisher *dispatch.Publishing
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	codec := wire.NewCodec()
	wire.MustRegister[actiontest.Echo, *actiontest.Text](codec)
	wire.MustRegister[actiontest.Fail, *actiontest.Text](codec)
	wire.MustRegister[actiontest.Count, *actiontest.Progress](codec)

	var mu sync.Mutex
	progress := make(map[actiontest.Count]int)

	reg := dispatch.NewRegistry()
	dispatch.MustBind(reg, handler.Func[actiontest.Echo, *actiontest.Text](
		func(_ context.Context, a actiontest.Echo) (*actiontest.Text, error) {
			return &actiontest.Text{Value: a.Text}, nil
		},
	))
	dispatch.MustBind(reg, handler.Func[actiontest.Fail, *actiontest.Text](
		func(_ context.Context, a actiontest.Fail) (*actiontest.Text, error) {
			return nil, errx.New(a.Reason,
				errx.WithCode("FAILED_ON_PURPOSE"),
				errx.WithType(errx.T_Conflict),
				errx.WithDetails(errx.D{"reason": a.Reason}),
			)
		},
	))
	dispatch.MustBind(reg, handler.Func[actiontest.Count, *actiontest.Progress](
		func(_ context.Context, a actiontest.Count) (*actiontest.Progress, error) {
			mu.Lock()
			defer mu.Unlock()
			progress[a]++
			step := progress[a]
			if step >= a.Steps {
				delete(progress, a)
			}
			return &actiontest.Progress{Step: step, Final: step >= a.Steps}, nil
		},
	))

	p := dispatch.NewPublishing(reg, dispatch.WithMetrics(metrics.NewRegistry()))
	require.NoError(t, dispatch.BindBatch(reg, p))

	srv := server.NewHTTPServer(server.Config{Host: "127.0.0.1", Port: 1}, []server.Middleware{
		middleware.NewMetaInjectMW(),
		middleware.NewErrorHandlerMW(false),
	})
	routes := rpc.NewRoutes(rpc.Config{DefaultWait: 50 * time.Millisecond, MaxWait: time.Second}, codec, p, logger.NewNop())
	srv.RegisterRouter(routes.Register)

	return &fixture{srv: srv, codec: codec, publisher: p}
}

// client serves the fixture on a loopback listener and returns a client for it.
func (f *fixture) client(t *testing.T) *rpc.Client {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() { _ = f.srv.Serve(ln) }()
	t.Cleanup(func() { _ = f.srv.Stop(context.Background()) })

	return rpc.NewClient(rpc.ClientConfig{
		BaseURL:       "http://" + ln.Addr().String(),
		Timeout:       2 * time.Second,
		RetryAttempts: 2,
		RetryDelay:    10 * time.Millisecond,
	}, f.codec, logger.NewNop())
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := f.srv.App().Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out.Bytes()
}

func TestRoutes_Dispatch(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
		wantResult string
	}{
		{
			name:       "complete result",
			body:       wire.Envelope{Kind: actiontest.KindEcho, Payload: json.RawMessage(`{"text":"hi"}`)},
			wantStatus: fiber.StatusOK,
			wantResult: `{"value":"hi"}`,
		},
		{
			name:       "partial results loop on the server",
			body:       wire.Envelope{Kind: actiontest.KindCount, Payload: json.RawMessage(`{"name":"c","steps":3}`)},
			wantStatus: fiber.StatusOK,
			wantResult: `{"step":3,"final":true}`,
		},
		{
			name:       "unknown kind",
			body:       wire.Envelope{Kind: "nope"},
			wantStatus: fiber.StatusBadRequest,
			wantCode:   action.CodeUnknownKind,
		},
		{
			name:       "handler error",
			body:       wire.Envelope{Kind: actiontest.KindFail, Payload: json.RawMessage(`{"reason":"x"}`)},
			wantStatus: fiber.StatusConflict,
			wantCode:   "FAILED_ON_PURPOSE",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, data := f.do(t, fiber.MethodPost, rpc.PathDispatch, tc.body)
			assert.Equal(t, tc.wantStatus, status)

			if tc.wantCode != "" {
				var resp server.ErrorResponse
				require.NoError(t, json.Unmarshal(data, &resp))
				assert.Equal(t, tc.wantCode, resp.Error.Code)
				return
			}

			var resp rpc.DispatchResponse
			require.NoError(t, json.Unmarshal(data, &resp))
			assert.JSONEq(t, tc.wantResult, string(resp.Result))
		})
	}
}

func TestRoutes_SubscriptionLifecycle(t *testing.T) {
	f := newFixture(t)

	status, data := f.do(t, fiber.MethodPost, rpc.PathSubscriptions, rpc.SubscribeRequest{Kinds: []string{"test.count"}})
	require.Equal(t, fiber.StatusCreated, status)

	var sub rpc.SubscribeResponse
	require.NoError(t, json.Unmarshal(data, &sub))
	path := "/rpc/subscriptions/" + sub.SubscriptionID.String()

	status, _ = f.do(t, fiber.MethodPost, rpc.PathDispatch,
		wire.Envelope{Kind: actiontest.KindCount, Payload: json.RawMessage(`{"name":"c","steps":2}`)})
	require.Equal(t, fiber.StatusOK, status)

	status, data = f.do(t, fiber.MethodGet, path+"?wait=1s", nil)
	require.Equal(t, fiber.StatusOK, status)

	var check rpc.CheckResponse
	require.NoError(t, json.Unmarshal(data, &check))
	require.Len(t, check.Results, 2)
	assert.Equal(t, actiontest.KindCount, check.Results[0].Action.Kind)
	assert.JSONEq(t, `{"step":1,"final":false}`, string(check.Results[0].Result))
	assert.JSONEq(t, `{"step":2,"final":true}`, string(check.Results[1].Result))

	// Nothing new: the default wait elapses and the list is empty.
	status, data = f.do(t, fiber.MethodGet, path, nil)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &check))
	assert.Empty(t, check.Results)

	status, _ = f.do(t, fiber.MethodDelete, path, nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = f.do(t, fiber.MethodGet, path, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRoutes_BadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode string
	}{
		{name: "no kinds", method: fiber.MethodPost, path: rpc.PathSubscriptions, body: rpc.SubscribeRequest{}, wantCode: "VALIDATION_FAILED"},
		{name: "malformed kind", method: fiber.MethodPost, path: rpc.PathSubscriptions, body: rpc.SubscribeRequest{Kinds: []string{"Bad Kind"}}, wantCode: "VALIDATION_FAILED"},
		{name: "malformed id", method: fiber.MethodGet, path: "/rpc/subscriptions/abc", wantCode: action.CodeInvalidSubscription},
		{name: "malformed wait", method: fiber.MethodGet, path: "/rpc/subscriptions/1?wait=soon", wantCode: "VALIDATION_FAILED"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, data := f.do(t, tc.method, tc.path, tc.body)
			assert.Equal(t, fiber.StatusBadRequest, status)

			var resp server.ErrorResponse
			require.NoError(t, json.Unmarshal(data, &resp))
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestClient_Dispatch(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)

	got, err := action.Execute[*actiontest.Text](t.Context(), c, actiontest.Echo{Text: "over http"})
	require.NoError(t, err)
	assert.Equal(t, "over http", got.Value)

	_, err = c.Dispatch(t.Context(), actiontest.Fail{Reason: "bad"})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, "FAILED_ON_PURPOSE"))
	assert.Equal(t, errx.T_Conflict, errx.GetType(err))
	assert.Equal(t, "bad", errx.AsErrorX(err).Details()["reason"])
}

func TestClient_Batch(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)

	res, err := c.Dispatch(t.Context(), action.BatchAction{Actions: []action.Action{
		actiontest.Echo{Text: "a"},
		actiontest.Fail{Reason: "b"},
	}})
	require.NoError(t, err)

	br := res.(*action.BatchResult)
	require.Len(t, br.Outcomes, 2)
	assert.Equal(t, &actiontest.Text{Value: "a"}, br.Outcomes[0].Result)
	assert.True(t, errx.IsCodeIn(br.Outcomes[1].Err, "FAILED_ON_PURPOSE"))
}

func TestClient_Subscriptions(t *testing.T) {
	f := newFixture(t)
	c := f.client(t)

	id, err := c.Subscribe(t.Context(), actiontest.KindEcho)
	require.NoError(t, err)

	type checked struct {
		ns  []dispatch.Notification
		err error
	}
	done := make(chan checked, 1)
	go func() {
		ns, err := c.Check(t.Context(), id, time.Second)
		done <- checked{ns: ns, err: err}
	}()

	timeout := time.After(2 * time.Second)
wait:
	for {
		_, err := f.publisher.Dispatch(t.Context(), actiontest.Echo{Text: "pushed"})
		require.NoError(t, err)

		select {
		case got := <-done:
			require.NoError(t, got.err)
			require.NotEmpty(t, got.ns)
			assert.Equal(t, actiontest.Echo{Text: "pushed"}, got.ns[0].Action)
			assert.Equal(t, &actiontest.Text{Value: "pushed"}, got.ns[0].Result)
			break wait
		case <-time.After(20 * time.Millisecond):
		case <-timeout:
			t.Fatal("check never returned")
		}
	}

	require.NoError(t, c.Cancel(t.Context(), id))

	err = c.Cancel(t.Context(), id)
	assert.True(t, errx.IsCodeIn(err, action.CodeInvalidSubscription))
}

func TestClient_TransportFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	codec := wire.NewCodec()
	wire.MustRegister[actiontest.Echo, *actiontest.Text](codec)

	c := rpc.NewClient(rpc.ClientConfig{
		BaseURL:       "http://" + addr,
		Timeout:       time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, codec, logger.NewNop())

	_, err = c.Dispatch(t.Context(), actiontest.Echo{Text: "x"})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, action.CodeTransportFailed))
}

func TestClient_CircuitBreaker(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	codec := wire.NewCodec()
	wire.MustRegister[actiontest.Echo, *actiontest.Text](codec)

	c := rpc.NewClient(rpc.ClientConfig{
		BaseURL:            "http://" + addr,
		Timeout:            time.Second,
		RetryAttempts:      1,
		BreakerMaxFailures: 1,
		BreakerOpenTimeout: time.Minute,
	}, codec, logger.NewNop())

	_, err = c.Dispatch(t.Context(), actiontest.Echo{Text: "x"})
	assert.True(t, errx.IsCodeIn(err, action.CodeTransportFailed))

	_, err = c.Dispatch(t.Context(), actiontest.Echo{Text: "x"})
	require.Error(t, err)
	assert.True(t, errx.IsCodeIn(err, action.CodeCircuitOpen))
	assert.Equal(t, errx.T_Throttling, errx.GetType(err))
}

// hangUpServer reads each request and closes the connection without
// answering. It reports how many connections it accepted.
func hangUpServer(t *testing.T) (string, *atomic.Int32) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	var accepted atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			buf := make([]byte, 4096)
			_, _ = conn.Read(buf)
			_ = conn.Close()
		}
	}()
	return "http://" + ln.Addr().String(), &accepted
}

func TestClient_ReplaysOnlyReplayableActions(t *testing.T) {
	tests := []struct {
		name   string
		action action.Action
		want   int32
	}{
		{name: "plain action is sent once", action: actiontest.Echo{Text: "x"}, want: 1},
		{name: "mergeable action is replayed", action: actiontest.Lookup{Key: "k"}, want: 3},
		{
			name:   "batch with a plain action is sent once",
			action: action.BatchAction{Actions: []action.Action{actiontest.Lookup{Key: "k"}, actiontest.Echo{Text: "x"}}},
			want:   1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			baseURL, accepted := hangUpServer(t)

			codec := wire.NewCodec()
			wire.MustRegister[actiontest.Echo, *actiontest.Text](codec)
			wire.MustRegister[actiontest.Lookup, *actiontest.Value](codec)

			c := rpc.NewClient(rpc.ClientConfig{
				BaseURL:       baseURL,
				Timeout:       time.Second,
				RetryAttempts: 3,
				RetryDelay:    time.Millisecond,
			}, codec, logger.NewNop())

			_, err := c.Dispatch(t.Context(), tc.action)
			require.Error(t, err)
			assert.True(t, errx.IsCodeIn(err, action.CodeTransportFailed))
			assert.Equal(t, tc.want, accepted.Load())
		})
	}
}
