package tracing_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rise-and-shine/actionrpc/observability/tracing"
)

func TestInitGlobalTracer_Disabled(t *testing.T) {
	shutdown, err := tracing.InitGlobalTracer(tracing.Config{Disable: true})
	require.NoError(t, err)
	assert.NoError(t, shutdown())
}

func TestGetStartingTraceID_WithoutSpan(t *testing.T) {
	first := tracing.GetStartingTraceID(t.Context())
	second := tracing.GetStartingTraceID(t.Context())

	assert.True(t, strings.HasPrefix(first, "man-"))
	assert.NotEqual(t, first, second)
}
