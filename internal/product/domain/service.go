package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	"github.com/smallbiznis/invoiceflow/internal/calculation"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
)

type Service interface {
	Create(ctx context.Context, a actor.Actor, req CreateRequest) (*Response, error)
	Update(ctx context.Context, a actor.Actor, id snowflake.ID, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, a actor.Actor, id snowflake.ID) (*Response, error)
	List(ctx context.Context, a actor.Actor, req ListRequest) ([]Response, error)
	Delete(ctx context.Context, a actor.Actor, id snowflake.ID) error
	// ToLineItem prefills an invoice line from an active product.
	ToLineItem(ctx context.Context, a actor.Actor, id snowflake.ID, quantity int64) (LineItemDraft, error)
}

type ListRequest struct {
	Status       Status
	FreelancerID *snowflake.ID
	Name         string
	SortBy       string
	OrderBy      string
}

type CreateRequest struct {
	Name                 string
	Description          *string
	UnitPrice            int64
	TaxType              calculation.TaxType
	TaxRate              decimal.Decimal
	WithholdingTaxTarget bool
	Status               Status
	FreelancerID         *snowflake.ID
}

type UpdateRequest struct {
	Name                 *string
	Description          *string
	UnitPrice            *int64
	TaxType              *calculation.TaxType
	TaxRate              *decimal.Decimal
	WithholdingTaxTarget *bool
	Status               *Status
}

type Response struct {
	ID                   string              `json:"id"`
	FreelancerID         *string             `json:"freelancer_id,omitempty"`
	Name                 string              `json:"name"`
	Description          *string             `json:"description,omitempty"`
	UnitPrice            int64               `json:"unit_price"`
	TaxType              calculation.TaxType `json:"tax_type"`
	TaxRate              decimal.Decimal     `json:"tax_rate"`
	WithholdingTaxTarget bool                `json:"withholding_tax_target"`
	Status               Status              `json:"status"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// LineItemDraft carries product defaults into an invoice line. Commission
// starts at 100%.
type LineItemDraft struct {
	ProductID            snowflake.ID
	ProductName          string
	UnitPrice            int64
	Quantity             int64
	CommissionRate       decimal.Decimal
	TaxType              calculation.TaxType
	TaxRate              decimal.Decimal
	WithholdingTaxTarget bool
}

var (
	ErrNotFound        = apperror.NotFound("product_not_found")
	ErrProductInactive = apperror.NewValidation("productId", "product is inactive")
)
