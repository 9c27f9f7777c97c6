package wire_test

import (
	"testing"
	"time"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/actionrpc/action"
	"github.com/rise-and-shine/actionrpc/action/actiontest"
	"github.com/rise-and-shine/actionrpc/wire"
)

func newCodec(t *testing.T) *wire.Codec {
	t.Helper()

	c := wire.NewCodec()
	require.NoError(t, wire.Register[actiontest.Echo, *actiontest.Text](c))
	require.NoError(t, wire.Register[actiontest.Lookup, *actiontest.Value](c))
	return c
}

func TestRegister_Duplicate(t *testing.T) {
	c := newCodec(t)

	err := wire.Register[actiontest.Echo, *actiontest.Text](c)
	assert.True(t, errx.IsCodeIn(err, action.CodeDuplicateBinding))
	assert.Equal(t, []action.Kind{actiontest.KindEcho, actiontest.KindLookup}, c.Kinds())
}

func TestActionRoundTrip(t *testing.T) {
	c := newCodec(t)

	tests := []struct {
		name   string
		action action.Action
	}{
		{name: "plain action", action: actiontest.Echo{Text: "hello"}},
		{
			name: "batch of mixed kinds",
			action: action.BatchAction{Actions: []action.Action{
				actiontest.Echo{Text: "a"},
				actiontest.Lookup{Key: "k"},
			}},
		},
		{name: "empty batch", action: action.BatchAction{Actions: []action.Action{}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := c.EncodeAction(tc.action)
			require.NoError(t, err)

			got, err := c.DecodeAction(data)
			require.NoError(t, err)
			assert.Equal(t, tc.action, got)
		})
	}
}

func TestDecodeAction_UnknownKind(t *testing.T) {
	c := newCodec(t)

	_, err := c.DecodeAction([]byte(`{"kind":"nope","payload":{}}`))
	assert.True(t, errx.IsCodeIn(err, action.CodeUnknownKind))

	_, err = c.EncodeAction(actiontest.Count{Name: "x"})
	assert.True(t, errx.IsCodeIn(err, action.CodeUnknownKind))
}

func TestBatchResultRoundTrip(t *testing.T) {
	c := newCodec(t)
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	batch := action.BatchAction{Actions: []action.Action{
		actiontest.Echo{Text: "a"},
		actiontest.Lookup{Key: "k"},
		actiontest.Echo{Text: "b"},
	}}
	res := &action.BatchResult{Outcomes: []action.Outcome{
		action.Succeeded(&actiontest.Text{Value: "a"}),
		action.Succeeded(&actiontest.Value{Key: "k", Data: "v", ExpiresAt: expiry}),
		action.FailedWith(errx.New("no handler",
			errx.WithCode(action.CodeHandlerNotFound),
			errx.WithType(errx.T_NotFound),
		)),
	}}

	data, err := c.EncodeResult(res)
	require.NoError(t, err)

	got, err := c.DecodeResult(batch, data)
	require.NoError(t, err)

	br, ok := got.(*action.BatchResult)
	require.True(t, ok)
	require.Len(t, br.Outcomes, 3)
	assert.Equal(t, &actiontest.Text{Value: "a"}, br.Outcomes[0].Result)
	assert.Equal(t, &actiontest.Value{Key: "k", Data: "v", ExpiresAt: expiry}, br.Outcomes[1].Result)
	require.Error(t, br.Outcomes[2].Err)
	assert.True(t, errx.IsCodeIn(br.Outcomes[2].Err, action.CodeHandlerNotFound))
	assert.Equal(t, errx.T_NotFound, errx.GetType(br.Outcomes[2].Err))
}

func TestDecodeResult_KeepsExtraSlots(t *testing.T) {
	c := newCodec(t)

	batch := action.BatchAction{Actions: []action.Action{actiontest.Echo{Text: "a"}}}
	data := []byte(`[{"result":{"value":"a"}},{"result":{"value":"b"}}]`)

	got, err := c.DecodeResult(batch, data)
	require.NoError(t, err)

	br := got.(*action.BatchResult)
	require.Len(t, br.Outcomes, 2)
	assert.True(t, errx.IsCodeIn(br.Outcomes[1].Err, action.CodeBatchCountMismatch))
}

func TestKey(t *testing.T) {
	c := newCodec(t)

	k1, err := c.Key(actiontest.Lookup{Key: "a"})
	require.NoError(t, err)
	k2, err := c.Key(actiontest.Lookup{Key: "a"})
	require.NoError(t, err)
	k3, err := c.Key(actiontest.Lookup{Key: "b"})
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, `test.lookup:{"key":"a"}`, k1)
}

func TestNotificationRoundTrip(t *testing.T) {
	c := newCodec(t)

	n, err := c.EncodeNotification(actiontest.Echo{Text: "hi"}, &actiontest.Text{Value: "hi"})
	require.NoError(t, err)
	assert.Equal(t, actiontest.KindEcho, n.Action.Kind)

	a, r, err := c.DecodeNotification(n)
	require.NoError(t, err)
	assert.Equal(t, actiontest.Echo{Text: "hi"}, a)
	assert.Equal(t, &actiontest.Text{Value: "hi"}, r)
}
