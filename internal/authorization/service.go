package authorization

import (
	"context"

	"github.com/smallbiznis/invoiceflow/internal/actor"
)

type Service interface {
	// Authorize returns an error wrapping ErrForbidden when the actor's role
	// may not perform action on object. Ownership checks stay with the caller.
	Authorize(ctx context.Context, a actor.Actor, object string, action string) error
}
