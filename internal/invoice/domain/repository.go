package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status       Status
	FreelancerID *snowflake.ID
	BillingFrom  *time.Time
	BillingTo    *time.Time
	Cursor       *InvoiceCursor
	Limit        int
}

type InvoiceCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type SummaryFilter struct {
	MonthStart time.Time
	MonthEnd   time.Time
}

// Repository is the storage collaborator. Every method runs on the db it is
// handed so callers can compose them inside one transaction.
type Repository interface {
	Create(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	// FindByID returns nil, nil when the invoice does not exist. forUpdate
	// locks the row on dialects that support it.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*Invoice, error)
	// Save writes the header. A collision on the invoice-number index is
	// reported as ErrNumberConflict.
	Save(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	// ReplaceItems swaps the item and tax-line sets of an invoice.
	ReplaceItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, items []InvoiceItem, taxLines []InvoiceTaxLine) error
	ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]InvoiceItem, error)
	ListTaxLines(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]InvoiceTaxLine, error)
	AppendHistory(ctx context.Context, db *gorm.DB, entry *InvoiceStatusHistory) error
	ListHistory(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]InvoiceStatusHistory, error)
	// Delete removes the invoice with its items, tax lines and history.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)
	Summarize(ctx context.Context, db *gorm.DB, filter SummaryFilter) (Summary, error)
}
