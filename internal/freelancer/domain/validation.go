package domain

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/invoiceflow/pkg/apperror"
)

var (
	postalCodePattern   = regexp.MustCompile(`^\d{7}$`)
	registrationPattern = regexp.MustCompile(`^T\d{13}$`)
)

// Validate checks a fully populated record before it is written.
func (f *Freelancer) Validate() error {
	if err := requireText("name", f.Name, 200); err != nil {
		return err
	}
	if f.NameKana != nil && utf8.RuneCountInString(*f.NameKana) > 200 {
		return apperror.NewValidation("nameKana", "must be at most 200 characters")
	}
	if _, err := mail.ParseAddress(f.Email); err != nil || !strings.Contains(f.Email, "@") {
		return apperror.NewValidation("email", "must be a valid email address")
	}
	if err := requireText("phone", f.Phone, 20); err != nil {
		return err
	}
	if !postalCodePattern.MatchString(f.PostalCode) {
		return apperror.NewValidation("postalCode", "must be 7 digits")
	}
	if err := requireText("address", f.Address, 0); err != nil {
		return err
	}
	if f.RegistrationNumber != nil && !registrationPattern.MatchString(*f.RegistrationNumber) {
		return apperror.NewValidation("registrationNumber", "must be T followed by 13 digits")
	}
	if err := requireText("bankName", f.BankName, 100); err != nil {
		return err
	}
	if err := requireText("bankBranch", f.BankBranch, 100); err != nil {
		return err
	}
	if !f.AccountType.Valid() {
		return apperror.NewValidation("accountType", "must be ORDINARY, CURRENT or SAVINGS")
	}
	if err := requireText("accountNumber", f.AccountNumber, 20); err != nil {
		return err
	}
	if err := requireText("accountHolder", f.AccountHolder, 200); err != nil {
		return err
	}
	if !f.Status.Valid() {
		return apperror.NewValidation("status", "must be ACTIVE or INACTIVE")
	}
	return nil
}

func requireText(field, value string, max int) error {
	if strings.TrimSpace(value) == "" {
		return apperror.NewValidation(field, "is required")
	}
	if max > 0 && utf8.RuneCountInString(value) > max {
		return apperror.NewValidation(field, "is too long")
	}
	return nil
}

// OptionalText trims value and maps an empty result to nil.
func OptionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
