package domain

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/smallbiznis/invoiceflow/pkg/apperror"
)

var postalCodePattern = regexp.MustCompile(`^\d{7}$`)

func (c *CompanyInfo) Validate() error {
	name := strings.TrimSpace(c.CompanyName)
	if name == "" {
		return apperror.NewValidation("companyName", "is required")
	}
	if utf8.RuneCountInString(name) > 200 {
		return apperror.NewValidation("companyName", "must be at most 200 characters")
	}
	if c.PostalCode != "" && !postalCodePattern.MatchString(c.PostalCode) {
		return apperror.NewValidation("postalCode", "must be 7 digits")
	}
	if utf8.RuneCountInString(c.Address) > 500 {
		return apperror.NewValidation("address", "must be at most 500 characters")
	}
	if utf8.RuneCountInString(c.Phone) > 20 {
		return apperror.NewValidation("phone", "must be at most 20 characters")
	}
	if c.Email != "" {
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return apperror.NewValidation("email", "must be a valid email address")
		}
	}
	if utf8.RuneCountInString(c.AdditionalInfo) > 1000 {
		return apperror.NewValidation("additionalInfo", "must be at most 1000 characters")
	}
	return nil
}
