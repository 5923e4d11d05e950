package logger

import (
	"context"
	"testing"

	"github.com/smallbiznis/invoiceflow/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationID(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := correlation.WithID(context.Background(), "req-9")

	WithContext(ctx, zap.New(core)).Info("confirmed")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-9", fields["correlation_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestWithContextWithoutValuesReturnsBase(t *testing.T) {
	base := zap.NewNop()
	assert.Same(t, base, WithContext(context.Background(), base))
}

func TestWithActor(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	WithActor(zap.New(core), " company ", "42").Info("x")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "company", logs.All()[0].ContextMap()["actor_role"])
	assert.Nil(t, WithActor(nil, "company", "1"))
}
