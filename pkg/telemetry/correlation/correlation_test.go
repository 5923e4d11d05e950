package correlation

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureMintsOnce(t *testing.T) {
	ctx, first := Ensure(context.Background())
	_, err := ulid.ParseStrict(first)
	require.NoError(t, err)

	_, second := Ensure(ctx)
	assert.Equal(t, first, second)
}

func TestWithIDKeepsCallerValue(t *testing.T) {
	ctx := WithID(context.Background(), "req-42")
	assert.Equal(t, "req-42", FromContext(ctx))

	assert.Equal(t, ctx, WithID(ctx, ""))
	assert.Empty(t, FromContext(context.Background()))
}
