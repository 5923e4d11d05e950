// Package domain contains persistence models and contracts for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiceflow/internal/calculation"
	"gorm.io/datatypes"
)

// Status represents invoice lifecycle states.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusPaid            Status = "PAID"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusApproved, StatusRejected, StatusPaid:
		return true
	default:
		return false
	}
}

// Invoice holds the header and the derived totals of the current item set.
type Invoice struct {
	ID                     snowflake.ID   `gorm:"primaryKey" json:"id"`
	FreelancerID           snowflake.ID   `gorm:"not null;index" json:"freelancer_id"`
	CreatorID              snowflake.ID   `gorm:"not null" json:"creator_id"`
	Status                 Status         `gorm:"type:varchar(32);not null;default:DRAFT;index" json:"status"`
	BillingDate            time.Time      `gorm:"not null;index" json:"billing_date"`
	PaymentDueDate         time.Time      `gorm:"not null" json:"payment_due_date"`
	InvoiceNumber          *string        `gorm:"type:varchar(11);uniqueIndex:ux_invoices_invoice_number" json:"invoice_number,omitempty"`
	Subtotal               int64          `gorm:"not null;default:0" json:"subtotal"`
	WithholdingTaxSubtotal int64          `gorm:"not null;default:0" json:"withholding_tax_subtotal"`
	TaxAmount              int64          `gorm:"not null;default:0" json:"tax_amount"`
	TotalWithTax           int64          `gorm:"not null;default:0" json:"total_with_tax"`
	WithholdingTax         int64          `gorm:"not null;default:0" json:"withholding_tax"`
	InvoiceAmount          int64          `gorm:"not null;default:0" json:"invoice_amount"`
	Notes                  *string        `gorm:"type:text" json:"notes,omitempty"`
	FreelancerSnapshot     datatypes.JSON `json:"freelancer_snapshot,omitempty"`
	CompanySnapshot        datatypes.JSON `json:"company_snapshot,omitempty"`
	ConfirmedAt            *time.Time     `json:"confirmed_at,omitempty"`
	PaymentDate            *time.Time     `json:"payment_date,omitempty"`
	CreatedAt              time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"not null" json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }

// Editable reports whether items, dates and notes may still change.
func (i *Invoice) Editable() bool {
	return i.Status == StatusDraft || i.Status == StatusRejected
}

// ApplyTotals copies calculator output onto the header.
func (i *Invoice) ApplyTotals(res calculation.Result) {
	i.Subtotal = res.Subtotal
	i.WithholdingTaxSubtotal = res.WithholdingTaxSubtotal
	i.TaxAmount = res.TaxTotal
	i.TotalWithTax = res.TotalWithTax
	i.WithholdingTax = res.WithholdingTax
	i.InvoiceAmount = res.InvoiceAmount
}

// InvoiceItem is one line, ordered by LineNumber.
type InvoiceItem struct {
	ID                   snowflake.ID        `gorm:"primaryKey" json:"id"`
	InvoiceID            snowflake.ID        `gorm:"not null;index" json:"invoice_id"`
	ProductID            *snowflake.ID       `gorm:"index" json:"product_id,omitempty"`
	LineNumber           int                 `gorm:"not null" json:"line_number"`
	ProductName          string              `gorm:"type:varchar(200);not null" json:"product_name"`
	UnitPrice            int64               `gorm:"not null" json:"unit_price"`
	Quantity             int64               `gorm:"not null" json:"quantity"`
	CommissionRate       decimal.Decimal     `gorm:"type:numeric(5,2);not null" json:"commission_rate"`
	TaxType              calculation.TaxType `gorm:"type:varchar(16);not null" json:"tax_type"`
	TaxRate              decimal.Decimal     `gorm:"type:numeric(5,2);not null" json:"tax_rate"`
	WithholdingTaxTarget bool                `gorm:"not null" json:"withholding_tax_target"`
	Amount               int64               `gorm:"not null" json:"amount"`
	TaxAmount            int64               `gorm:"not null" json:"tax_amount"`
	CreatedAt            time.Time           `gorm:"not null" json:"created_at"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// CalculationItem converts the stored line back into calculator input.
func (it InvoiceItem) CalculationItem() calculation.Item {
	return calculation.Item{
		UnitPrice:            it.UnitPrice,
		Quantity:             it.Quantity,
		CommissionRate:       it.CommissionRate,
		TaxType:              it.TaxType,
		TaxRate:              it.TaxRate,
		WithholdingTaxTarget: it.WithholdingTaxTarget,
	}
}

// InvoiceTaxLine is the per-rate tax of the current item set.
type InvoiceTaxLine struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID     snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	TaxRate       decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"tax_rate"`
	TaxableAmount int64           `gorm:"not null" json:"taxable_amount"`
	Amount        int64           `gorm:"not null" json:"amount"`
	CreatedAt     time.Time       `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceTaxLine) TableName() string { return "invoice_tax_lines" }

// InvoiceStatusHistory is append-only. One row per transition.
type InvoiceStatusHistory struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID  snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	FromStatus Status       `gorm:"type:varchar(32);not null" json:"from_status"`
	ToStatus   Status       `gorm:"type:varchar(32);not null" json:"to_status"`
	ChangedBy  snowflake.ID `gorm:"not null" json:"changed_by"`
	Comment    *string      `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
}

func (InvoiceStatusHistory) TableName() string { return "invoice_status_histories" }

// InvoiceSequence is the per-month number counter keyed by YYYYMM.
type InvoiceSequence struct {
	Prefix    string    `gorm:"type:varchar(6);primaryKey" json:"prefix"`
	LastValue int64     `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }
