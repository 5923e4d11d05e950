package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMatchesKind(t *testing.T) {
	err := fmt.Errorf("create: %w", NewValidation("quantity", "must be at least 1"))

	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))
	assert.Equal(t, "quantity", verr.Field)
	assert.Equal(t, "validation_error: quantity: must be at least 1", verr.Error())
}

func TestNotFoundKeepsCode(t *testing.T) {
	err := NotFound("invoice_not_found")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "invoice_not_found", err.Error())

	assert.ErrorIs(t, Forbidden("not_owner"), ErrForbidden)
}

func TestNumberConflictKeepsCode(t *testing.T) {
	err := fmt.Errorf("confirm: %w", NumberConflict("invoice_number_exhausted"))
	assert.ErrorIs(t, err, ErrNumberConflict)
	assert.Equal(t, "confirm: invoice_number_exhausted", err.Error())
}
