package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/freelancer/domain"
	"github.com/smallbiznis/invoiceflow/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) domain.Repository {
	return repository.ProvideStore[domain.Freelancer](db)
}

// CountReferences counts invoices and freelancer-scoped products that still
// point at the freelancer.
func CountReferences(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var total int64
	for _, table := range []string{"invoices", "products"} {
		var n int64
		if err := db.WithContext(ctx).Table(table).Where("freelancer_id = ?", id).Count(&n).Error; err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
