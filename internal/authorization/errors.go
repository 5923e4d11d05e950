package authorization

import (
	"errors"

	"github.com/smallbiznis/invoiceflow/pkg/apperror"
)

var (
	ErrForbidden     = apperror.ErrForbidden
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
)
