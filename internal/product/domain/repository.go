package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status       Status
	FreelancerID *snowflake.ID
	// VisibleTo restricts rows to global products plus the given freelancer's own.
	VisibleTo *snowflake.ID
	Name      string
	SortBy    string
	OrderBy   string
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Product, error)
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
