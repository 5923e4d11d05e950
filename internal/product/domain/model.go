package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiceflow/internal/calculation"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Product is a billable master. A nil FreelancerID makes it available to
// every freelancer.
type Product struct {
	ID                   snowflake.ID        `json:"id" gorm:"primaryKey"`
	FreelancerID         *snowflake.ID       `json:"freelancer_id,omitempty" gorm:"index"`
	Name                 string              `json:"name" gorm:"type:varchar(200);not null"`
	Description          *string             `json:"description,omitempty" gorm:"type:text"`
	UnitPrice            int64               `json:"unit_price" gorm:"not null"`
	TaxType              calculation.TaxType `json:"tax_type" gorm:"type:varchar(16);not null"`
	TaxRate              decimal.Decimal     `json:"tax_rate" gorm:"type:numeric(5,2);not null"`
	WithholdingTaxTarget bool                `json:"withholding_tax_target" gorm:"not null"`
	Status               Status              `json:"status" gorm:"type:varchar(16);not null;default:ACTIVE"`
	CreatedAt            time.Time           `json:"created_at" gorm:"not null"`
	UpdatedAt            time.Time           `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }
