package numbering

import (
	"context"
	"fmt"
	"time"

	"github.com/smallbiznis/invoiceflow/internal/clock"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Allocator hands out the next number for a billing month. Next must run
// inside the confirmation transaction so the counter bump rolls back with it.
type Allocator interface {
	Next(ctx context.Context, tx *gorm.DB, billingDate time.Time) (string, error)
}

type sequenceAllocator struct {
	clock clock.Clock
}

func NewAllocator(clk clock.Clock) Allocator {
	return &sequenceAllocator{clock: clk}
}

func (a *sequenceAllocator) Next(ctx context.Context, tx *gorm.DB, billingDate time.Time) (string, error) {
	prefix := Prefix(billingDate)
	now := a.clock.Now()
	db := tx.WithContext(ctx)

	highest, err := HighestAssigned(ctx, tx, prefix)
	if err != nil {
		return "", err
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&invoicedomain.InvoiceSequence{Prefix: prefix, LastValue: highest, UpdatedAt: now}).Error; err != nil {
		return "", fmt.Errorf("seed invoice sequence %s: %w", prefix, err)
	}

	// The UPDATE takes the row lock, so concurrent confirmations for the
	// same month queue here until the holder commits.
	if err := db.Model(&invoicedomain.InvoiceSequence{}).
		Where("prefix = ?", prefix).
		Updates(map[string]any{
			"last_value": gorm.Expr("last_value + 1"),
			"updated_at": now,
		}).Error; err != nil {
		return "", fmt.Errorf("bump invoice sequence %s: %w", prefix, err)
	}

	var seq invoicedomain.InvoiceSequence
	if err := db.Where("prefix = ?", prefix).Take(&seq).Error; err != nil {
		return "", fmt.Errorf("read invoice sequence %s: %w", prefix, err)
	}

	next := seq.LastValue
	if next <= highest {
		next = highest + 1
		if err := db.Model(&invoicedomain.InvoiceSequence{}).
			Where("prefix = ?", prefix).
			Update("last_value", next).Error; err != nil {
			return "", fmt.Errorf("realign invoice sequence %s: %w", prefix, err)
		}
	}
	if next > MaxSequence {
		return "", invoicedomain.ErrInvoiceNumberExhausted
	}
	return Format(prefix, next)
}

// HighestAssigned returns the largest NNNN already stored for prefix, or 0.
func HighestAssigned(ctx context.Context, tx *gorm.DB, prefix string) (int64, error) {
	var numbers []string
	err := tx.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("invoice_number LIKE ?", prefix+"-%").
		Order("invoice_number desc").
		Limit(1).
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return 0, fmt.Errorf("find highest invoice number %s: %w", prefix, err)
	}
	if len(numbers) == 0 {
		return 0, nil
	}
	_, seq, err := Parse(numbers[0])
	if err != nil {
		return 0, err
	}
	return seq, nil
}
