package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/invoiceflow/internal/company/domain"
	"github.com/smallbiznis/invoiceflow/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Get(ctx context.Context, conn *gorm.DB) (*domain.CompanyInfo, error) {
	var info domain.CompanyInfo
	stmt := conn.WithContext(ctx)
	if db.SupportsRowLocking(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "SHARE"})
	}
	err := stmt.Order("created_at asc").First(&info).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *repo) Save(ctx context.Context, conn *gorm.DB, info *domain.CompanyInfo) error {
	return conn.WithContext(ctx).Save(info).Error
}
