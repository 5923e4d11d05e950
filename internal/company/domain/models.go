package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// CompanyInfo is the payer identity printed on every invoice. There is at
// most one row.
type CompanyInfo struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyName    string       `gorm:"type:varchar(200);not null" json:"company_name"`
	PostalCode     string       `gorm:"type:varchar(7)" json:"postal_code,omitempty"`
	Address        string       `gorm:"type:varchar(500)" json:"address,omitempty"`
	Phone          string       `gorm:"type:varchar(20)" json:"phone,omitempty"`
	Email          string       `gorm:"type:varchar(255)" json:"email,omitempty"`
	AdditionalInfo string       `gorm:"type:text" json:"additional_info,omitempty"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

func (CompanyInfo) TableName() string { return "company_infos" }
