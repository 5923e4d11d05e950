package domain

import (
	"context"

	"github.com/smallbiznis/invoiceflow/internal/actor"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
	"gorm.io/gorm"
)

type Repository interface {
	// Get returns nil, nil when the company has not been set up yet.
	Get(ctx context.Context, db *gorm.DB) (*CompanyInfo, error)
	Save(ctx context.Context, db *gorm.DB, info *CompanyInfo) error
}

type UpsertCompanyInfoRequest struct {
	CompanyName    string
	PostalCode     string
	Address        string
	Phone          string
	Email          string
	AdditionalInfo string
}

type Service interface {
	Get(ctx context.Context, a actor.Actor) (CompanyInfo, error)
	Upsert(ctx context.Context, a actor.Actor, req UpsertCompanyInfoRequest) (CompanyInfo, error)
}

var ErrCompanyInfoMissing = apperror.NotFound("company_info_missing")
