package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiceflow/internal/calculation"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
)

const productNameMaxLength = 200

var defaultCommissionRate = decimal.NewFromInt(100)

type lineSet struct {
	items    []invoicedomain.InvoiceItem
	taxLines []invoicedomain.InvoiceTaxLine
	result   calculation.Result
}

// buildLines validates the inputs, runs the calculator and returns the rows
// that replace the invoice's current items and tax lines.
func (s *Service) buildLines(invoiceID snowflake.ID, inputs []invoicedomain.ItemInput, now time.Time) (lineSet, error) {
	calcItems := make([]calculation.Item, 0, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.ProductName)
		if name == "" {
			return lineSet{}, apperror.NewValidation(fmt.Sprintf("items[%d].productName", i), "is required")
		}
		if utf8.RuneCountInString(name) > productNameMaxLength {
			return lineSet{}, apperror.NewValidation(fmt.Sprintf("items[%d].productName", i), "must be at most 200 characters")
		}
		calcItems = append(calcItems, calculation.Item{
			UnitPrice:            in.UnitPrice,
			Quantity:             in.Quantity,
			CommissionRate:       commissionOrDefault(in.CommissionRate),
			TaxType:              in.TaxType,
			TaxRate:              in.TaxRate,
			WithholdingTaxTarget: in.WithholdingTaxTarget,
		})
	}

	res, err := calculation.Calculate(calcItems)
	if err != nil {
		return lineSet{}, err
	}

	out := lineSet{
		items:    make([]invoicedomain.InvoiceItem, 0, len(inputs)),
		taxLines: make([]invoicedomain.InvoiceTaxLine, 0, len(res.TaxGroups)),
		result:   res,
	}
	for i, in := range inputs {
		out.items = append(out.items, invoicedomain.InvoiceItem{
			ID:                   s.genID.Generate(),
			InvoiceID:            invoiceID,
			ProductID:            in.ProductID,
			LineNumber:           i + 1,
			ProductName:          strings.TrimSpace(in.ProductName),
			UnitPrice:            in.UnitPrice,
			Quantity:             in.Quantity,
			CommissionRate:       calcItems[i].CommissionRate,
			TaxType:              in.TaxType,
			TaxRate:              in.TaxRate,
			WithholdingTaxTarget: in.WithholdingTaxTarget,
			Amount:               res.Items[i].Amount,
			TaxAmount:            res.Items[i].TaxAmount,
			CreatedAt:            now,
		})
	}
	for _, group := range res.TaxGroups {
		out.taxLines = append(out.taxLines, invoicedomain.InvoiceTaxLine{
			ID:            s.genID.Generate(),
			InvoiceID:     invoiceID,
			TaxRate:       group.Rate,
			TaxableAmount: group.Base,
			Amount:        group.TaxAmount,
			CreatedAt:     now,
		})
	}
	return out, nil
}

func commissionOrDefault(rate *decimal.Decimal) decimal.Decimal {
	if rate == nil {
		return defaultCommissionRate
	}
	return *rate
}

// calendarDate keeps the year, month and day the caller wrote and pins them
// to UTC midnight, so a +09:00 date on the 1st stays on the 1st.
func calendarDate(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func calendarDatePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := calendarDate(*t)
	return &d
}

func validateDates(billing, due time.Time) error {
	if billing.IsZero() {
		return apperror.NewValidation("billingDate", "is required")
	}
	if due.IsZero() {
		return apperror.NewValidation("paymentDueDate", "is required")
	}
	if due.Before(billing) {
		return apperror.NewValidation("paymentDueDate", "must not be before billingDate")
	}
	return nil
}

// normalizeNotes trims notes, maps blank to nil and enforces the configured limit.
func (s *Service) normalizeNotes(notes *string) (*string, error) {
	if notes == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil, nil
	}
	limit := s.cfg.Get().NotesMaxLength
	if utf8.RuneCountInString(trimmed) > limit {
		return nil, apperror.NewValidation("notes", fmt.Sprintf("must be at most %d characters", limit))
	}
	return &trimmed, nil
}
