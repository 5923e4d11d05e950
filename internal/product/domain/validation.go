package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
)

var hundred = decimal.NewFromInt(100)

func (p *Product) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return apperror.NewValidation("name", "is required")
	}
	if utf8.RuneCountInString(name) > 200 {
		return apperror.NewValidation("name", "must be at most 200 characters")
	}
	if p.UnitPrice < 0 {
		return apperror.NewValidation("unitPrice", "must not be negative")
	}
	if !p.TaxType.Valid() {
		return apperror.NewValidation("taxType", "must be INCLUSIVE or EXCLUSIVE")
	}
	if p.TaxRate.IsNegative() || p.TaxRate.GreaterThan(hundred) {
		return apperror.NewValidation("taxRate", "must be between 0 and 100")
	}
	if p.Status != StatusActive && p.Status != StatusInactive {
		return apperror.NewValidation("status", "must be ACTIVE or INACTIVE")
	}
	return nil
}
