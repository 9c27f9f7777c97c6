package logger

import (
	"context"
	"testing"

	"github.com/code19m/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rise-and-shine/actionrpc/meta"
)

func observed() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger{zap.New(core).Sugar()}, logs
}

func TestErrorxAttachesErrorFields(t *testing.T) {
	log, logs := observed()

	log.Errorx(errx.New("dispatch failed",
		errx.WithCode("HANDLER_NOT_FOUND"),
		errx.WithType(errx.T_NotFound),
	))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "HANDLER_NOT_FOUND", fields["error_code"])
	assert.Equal(t, errx.T_NotFound.String(), fields["error_type"])
}

func TestWarnxPlainError(t *testing.T) {
	log, logs := observed()

	log.Warnx(assert.AnError)

	require.Equal(t, 1, logs.Len())
	assert.NotContains(t, logs.All()[0].ContextMap(), "error_code")
}

func TestWithContextAddsMeta(t *testing.T) {
	log, logs := observed()

	ctx := meta.InjectMetaToContext(context.Background(), map[meta.ContextKey]string{
		meta.TraceID:    "trace-1",
		meta.ActionKind: "test.echo",
	})
	log.WithContext(ctx).Info("dispatched")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, "test.echo", fields["action_kind"])
}

func TestNewDisabled(t *testing.T) {
	log, err := New(Config{Level: "info", Encoding: "json", Disable: true})
	require.NoError(t, err)
	assert.NotPanics(t, func() { log.Named("x").With("k", "v").Info("dropped") })
}

func TestNewPretty(t *testing.T) {
	log, err := New(Config{Level: "debug", Encoding: "pretty"})
	require.NoError(t, err)
	assert.NotPanics(t, func() { log.With("attempt", 2).Debug("pretty entry") })
}

func TestSetGlobal(t *testing.T) {
	assert.Panics(t, func() { SetGlobal(Config{Level: "loud", Encoding: "json"}) })

	SetGlobal(Config{Disable: true})
	named := Named("main")
	require.NotNil(t, named)
	named.Info("discarded")
	assert.NoError(t, Sync())
}
