// Package calculation turns invoice line items into Japanese qualified-invoice
// totals. Item amounts are rounded half-up to whole yen; every tax figure is
// floored. Consumption tax is computed once per distinct rate on the summed
// base of that rate, never per line.
package calculation

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
)

type TaxType string

const (
	TaxTypeInclusive TaxType = "INCLUSIVE"
	TaxTypeExclusive TaxType = "EXCLUSIVE"
)

func (t TaxType) Valid() bool {
	return t == TaxTypeInclusive || t == TaxTypeExclusive
}

// rateScale is the number of decimal places a stored rate keeps.
const rateScale = 2

var (
	hundred = decimal.NewFromInt(100)

	// WithholdingRate is the statutory 10.21% withholding on freelancer fees.
	WithholdingRate = decimal.RequireFromString("0.1021")
)

// Item is one billable line. Rates are percentages, e.g. 10 for 10%.
type Item struct {
	UnitPrice            int64
	Quantity             int64
	CommissionRate       decimal.Decimal
	TaxType              TaxType
	TaxRate              decimal.Decimal
	WithholdingTaxTarget bool
}

// ItemResult is the per-line breakdown. TaxAmount is for display only and
// does not feed the invoice tax total.
type ItemResult struct {
	Amount    int64
	TaxAmount int64
}

// TaxGroup is the taxable base and floored tax for one rate.
type TaxGroup struct {
	Rate      decimal.Decimal
	Base      int64
	TaxAmount int64
}

type Result struct {
	Items                  []ItemResult
	TaxGroups              []TaxGroup
	Subtotal               int64
	WithholdingTaxSubtotal int64
	TaxTotal               int64
	TotalWithTax           int64
	WithholdingTax         int64
	InvoiceAmount          int64
}

// Calculate is pure: identical input always yields identical output.
func Calculate(items []Item) (Result, error) {
	if len(items) == 0 {
		return Result{}, apperror.NewValidation("items", "at least one item is required")
	}
	for i, item := range items {
		if err := validateItem(i, item); err != nil {
			return Result{}, err
		}
	}

	res := Result{Items: make([]ItemResult, len(items))}
	bases := map[string]*TaxGroup{}

	for i, item := range items {
		line := calculateItem(item)
		res.Items[i] = line
		res.Subtotal += line.Amount
		if item.WithholdingTaxTarget {
			res.WithholdingTaxSubtotal += line.Amount
		}

		key := item.TaxRate.String()
		group, ok := bases[key]
		if !ok {
			group = &TaxGroup{Rate: item.TaxRate}
			bases[key] = group
		}
		group.Base += line.Amount
	}

	res.TaxGroups = make([]TaxGroup, 0, len(bases))
	for _, group := range bases {
		group.TaxAmount = decimal.NewFromInt(group.Base).Mul(group.Rate).Div(hundred).Floor().IntPart()
		res.TaxTotal += group.TaxAmount
		res.TaxGroups = append(res.TaxGroups, *group)
	}
	sort.Slice(res.TaxGroups, func(i, j int) bool {
		return res.TaxGroups[i].Rate.LessThan(res.TaxGroups[j].Rate)
	})

	res.TotalWithTax = res.Subtotal + res.TaxTotal
	res.WithholdingTax = Withholding(res.WithholdingTaxSubtotal)
	res.InvoiceAmount = res.TotalWithTax - res.WithholdingTax
	return res, nil
}

// Withholding returns floor(base × 10.21%).
func Withholding(base int64) int64 {
	if base <= 0 {
		return 0
	}
	return decimal.NewFromInt(base).Mul(WithholdingRate).Floor().IntPart()
}

func calculateItem(item Item) ItemResult {
	gross := decimal.NewFromInt(item.UnitPrice).
		Mul(decimal.NewFromInt(item.Quantity)).
		Mul(item.CommissionRate).
		Div(hundred)

	if item.TaxType == TaxTypeInclusive {
		divisor := decimal.NewFromInt(1).Add(item.TaxRate.Div(hundred))
		amount := gross.Div(divisor).Round(0)
		return ItemResult{
			Amount:    amount.IntPart(),
			TaxAmount: gross.Sub(amount).Floor().IntPart(),
		}
	}

	amount := gross.Round(0)
	return ItemResult{
		Amount:    amount.IntPart(),
		TaxAmount: amount.Mul(item.TaxRate).Div(hundred).Floor().IntPart(),
	}
}

func validateItem(i int, item Item) error {
	field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

	if item.Quantity < 1 {
		return apperror.NewValidation(field("quantity"), "must be at least 1")
	}
	if item.UnitPrice < 0 {
		return apperror.NewValidation(field("unitPrice"), "must not be negative")
	}
	if !inPercentRange(item.CommissionRate) {
		return apperror.NewValidation(field("commissionRate"), "must be between 0 and 100")
	}
	if !withinStoredScale(item.CommissionRate) {
		return apperror.NewValidation(field("commissionRate"), "must have at most 2 decimal places")
	}
	if !inPercentRange(item.TaxRate) {
		return apperror.NewValidation(field("taxRate"), "must be between 0 and 100")
	}
	if !withinStoredScale(item.TaxRate) {
		return apperror.NewValidation(field("taxRate"), "must have at most 2 decimal places")
	}
	if !item.TaxType.Valid() {
		return apperror.NewValidation(field("taxType"), fmt.Sprintf("unknown tax type %q", item.TaxType))
	}
	return nil
}

func inPercentRange(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}

// withinStoredScale reports whether rate survives a numeric(5,2) column
// unchanged. Trailing zeros such as 10.000 are accepted.
func withinStoredScale(rate decimal.Decimal) bool {
	return rate.Equal(rate.Round(rateScale))
}
