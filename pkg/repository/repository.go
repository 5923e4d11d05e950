// Package repository provides a generic gorm-backed store for simple master data tables.
package repository

import (
	"context"

	"github.com/smallbiznis/invoiceflow/pkg/db/option"
	"gorm.io/gorm"
)

type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
	Delete(ctx context.Context, id any) error
	Count(ctx context.Context, query *T) (int64, error)
}
