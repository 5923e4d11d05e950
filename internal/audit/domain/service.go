package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/invoiceflow/internal/actor"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
	"github.com/smallbiznis/invoiceflow/pkg/db/pagination"
	"gorm.io/gorm"
)

// Entry is what a service hands to Record. TargetID is free-form so
// non-snowflake targets such as the company singleton fit.
type Entry struct {
	Actor      actor.Actor
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// Record writes through tx so the entry commits or rolls back with the
	// change it describes. A nil tx uses the service's own connection.
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, a actor.Actor, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}

var (
	ErrInvalidPageToken = apperror.NewValidation("pageToken", "invalid_page_token")
	ErrInvalidTimeRange = apperror.NewValidation("to", "invalid_time_range")
	ErrInvalidAction    = apperror.NewValidation("action", "invalid_action")
)
