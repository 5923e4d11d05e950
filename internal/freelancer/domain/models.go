package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type AccountType string

const (
	AccountTypeOrdinary AccountType = "ORDINARY"
	AccountTypeCurrent  AccountType = "CURRENT"
	AccountTypeSavings  AccountType = "SAVINGS"
)

func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeOrdinary, AccountTypeCurrent, AccountTypeSavings:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Freelancer is the payee master record. Invoices copy the payee fields at
// confirmation, so edits here never reach confirmed invoices.
type Freelancer struct {
	ID                    snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID                *snowflake.ID `gorm:"uniqueIndex" json:"user_id,omitempty"`
	Name                  string        `gorm:"type:varchar(200);not null" json:"name"`
	NameKana              *string       `gorm:"type:varchar(200)" json:"name_kana,omitempty"`
	Email                 string        `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Phone                 string        `gorm:"type:varchar(20);not null" json:"phone"`
	PostalCode            string        `gorm:"type:varchar(7);not null" json:"postal_code"`
	Address               string        `gorm:"type:text;not null" json:"address"`
	RegistrationNumber    *string       `gorm:"type:varchar(14)" json:"registration_number,omitempty"`
	BankName              string        `gorm:"type:varchar(100);not null" json:"bank_name"`
	BankBranch            string        `gorm:"type:varchar(100);not null" json:"bank_branch"`
	AccountType           AccountType   `gorm:"type:varchar(16);not null" json:"account_type"`
	AccountNumber         string        `gorm:"type:varchar(20);not null" json:"account_number"`
	AccountHolder         string        `gorm:"type:varchar(200);not null" json:"account_holder"`
	WithholdingTaxDefault bool          `gorm:"not null;default:true" json:"withholding_tax_default"`
	Status                Status        `gorm:"type:varchar(16);not null;default:ACTIVE" json:"status"`
	CreatedAt             time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time     `gorm:"not null" json:"updated_at"`
}

func (Freelancer) TableName() string { return "freelancers" }
