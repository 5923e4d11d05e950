// Package correlation carries one id through every log line and audit row
// produced by a single service call, retries included.
package correlation

import (
	"context"

	"github.com/oklog/ulid/v2"
)

type ctxKey struct{}

// FromContext returns the correlation id on ctx, or "".
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithID returns ctx carrying id. An empty id leaves ctx unchanged so a
// caller-supplied id is never erased.
func WithID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// Ensure returns ctx with a correlation id, minting a ULID when ctx has none.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); id != "" {
		return ctx, id
	}
	id := ulid.Make().String()
	return WithID(ctx, id), id
}
