package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeCompany    ActorType = "company"
	ActorTypeFreelancer ActorType = "freelancer"
	ActorTypeSystem     ActorType = "system"
)

const (
	ActionInvoiceCreated    = "invoice.created"
	ActionInvoiceUpdated    = "invoice.updated"
	ActionInvoiceConfirmed  = "invoice.confirmed"
	ActionInvoiceApproved   = "invoice.approved"
	ActionInvoiceRejected   = "invoice.rejected"
	ActionInvoicePaid       = "invoice.paid"
	ActionInvoiceDeleted    = "invoice.deleted"
	ActionInvoiceDuplicated = "invoice.duplicated"

	ActionFreelancerCreated = "freelancer.created"
	ActionFreelancerUpdated = "freelancer.updated"
	ActionFreelancerDeleted = "freelancer.deleted"

	ActionCompanyInfoUpdated = "company_info.updated"

	ActionProductCreated = "product.created"
	ActionProductUpdated = "product.updated"
	ActionProductDeleted = "product.deleted"
)

// AuditLog is an immutable record of who did what to which target.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"type:varchar(32);not null" json:"actor_type"`
	ActorID    *string           `gorm:"type:varchar(64)" json:"actor_id,omitempty"`
	Action     string            `gorm:"type:varchar(64);not null;index" json:"action"`
	TargetType string            `gorm:"type:varchar(64);not null;index:idx_audit_target" json:"target_type"`
	TargetID   *string           `gorm:"type:varchar(64);index:idx_audit_target" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        snowflake.ID
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}
