package domain

import (
	"fmt"

	companydomain "github.com/smallbiznis/invoiceflow/internal/company/domain"
	freelancerdomain "github.com/smallbiznis/invoiceflow/internal/freelancer/domain"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
)

var (
	ErrValidation        = apperror.ErrValidation
	ErrInvalidTransition = apperror.ErrInvalidTransition
	ErrForbidden         = apperror.ErrForbidden
	ErrNumberConflict    = apperror.ErrNumberConflict
	ErrNotFound          = apperror.ErrNotFound

	ErrInvoiceNotFound    = apperror.NotFound("invoice_not_found")
	ErrFreelancerNotFound = freelancerdomain.ErrFreelancerNotFound
	ErrCompanyInfoMissing = companydomain.ErrCompanyInfoMissing

	ErrNotOwner               = apperror.Forbidden("invoice_belongs_to_another_freelancer")
	ErrInvoiceNumberExhausted = apperror.NumberConflict("invoice_number_exhausted")
	ErrInvalidPageToken       = apperror.NewValidation("pageToken", "invalid_page_token")
)

type ValidationError = apperror.ValidationError

// InvalidTransitionError reports an action attempted from a status that
// does not allow it.
type InvalidTransitionError struct {
	From   Status
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s an invoice in %s", ErrInvalidTransition, e.Action, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// NumberConflictError is returned once every confirmation attempt for a
// month prefix lost the race on the invoice-number unique index.
type NumberConflictError struct {
	Prefix   string
	Attempts int
}

func (e *NumberConflictError) Error() string {
	return fmt.Sprintf("%s: prefix %s after %d attempts", ErrNumberConflict, e.Prefix, e.Attempts)
}

func (e *NumberConflictError) Unwrap() error { return ErrNumberConflict }
