package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	"github.com/smallbiznis/invoiceflow/internal/calculation"
	"github.com/smallbiznis/invoiceflow/pkg/db/pagination"
)

// ItemInput is one caller-supplied line. A nil CommissionRate means 100%.
type ItemInput struct {
	ProductID            *snowflake.ID
	ProductName          string
	UnitPrice            int64
	Quantity             int64
	CommissionRate       *decimal.Decimal
	TaxType              calculation.TaxType
	TaxRate              decimal.Decimal
	WithholdingTaxTarget bool
}

type CreateInvoiceRequest struct {
	FreelancerID   snowflake.ID
	BillingDate    time.Time
	PaymentDueDate time.Time
	Notes          *string
	Items          []ItemInput
}

// UpdateInvoiceRequest leaves nil fields untouched. A nil Items keeps the
// current lines; a non-nil Items replaces them and must not be empty.
type UpdateInvoiceRequest struct {
	BillingDate    *time.Time
	PaymentDueDate *time.Time
	Notes          *string
	Items          []ItemInput
}

type TransitionRequest struct {
	Comment string
}

type MarkPaidRequest struct {
	// PaymentDate defaults to the current time.
	PaymentDate *time.Time
	Comment     string
}

type ListInvoiceRequest struct {
	pagination.Pagination
	Status       Status
	FreelancerID *snowflake.ID
	BillingFrom  *time.Time
	BillingTo    *time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// Summary is the monthly dashboard view.
type Summary struct {
	Month string `json:"month"`
	// InvoiceCount counts invoices billed in Month.
	InvoiceCount int64 `json:"invoice_count"`
	// ApprovedAmount sums invoiceAmount of APPROVED and PAID invoices billed in Month.
	ApprovedAmount int64 `json:"approved_amount"`
	// AwaitingPaymentCount counts APPROVED invoices regardless of month.
	AwaitingPaymentCount int64 `json:"awaiting_payment_count"`
	// Recent holds the newest invoices by creation time, any month or status.
	Recent []Invoice `json:"recent"`
}

type Service interface {
	Create(ctx context.Context, a actor.Actor, req CreateInvoiceRequest) (InvoiceDetail, error)
	Update(ctx context.Context, a actor.Actor, id snowflake.ID, req UpdateInvoiceRequest) (InvoiceDetail, error)
	Confirm(ctx context.Context, a actor.Actor, id snowflake.ID) (Invoice, error)
	Approve(ctx context.Context, a actor.Actor, id snowflake.ID, req TransitionRequest) (Invoice, error)
	Reject(ctx context.Context, a actor.Actor, id snowflake.ID, req TransitionRequest) (Invoice, error)
	MarkPaid(ctx context.Context, a actor.Actor, id snowflake.ID, req MarkPaidRequest) (Invoice, error)
	Delete(ctx context.Context, a actor.Actor, id snowflake.ID) error
	Duplicate(ctx context.Context, a actor.Actor, id snowflake.ID) (InvoiceDetail, error)
	Get(ctx context.Context, a actor.Actor, id snowflake.ID) (InvoiceDetail, error)
	List(ctx context.Context, a actor.Actor, req ListInvoiceRequest) (ListInvoiceResponse, error)
	Summary(ctx context.Context, a actor.Actor, month time.Time) (Summary, error)
}
