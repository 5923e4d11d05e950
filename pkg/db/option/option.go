// Package option holds composable gorm query modifiers.
package option

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type queryOptionFunc func(db *gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type Operator string

const (
	EQ   Operator = "="
	GTE  Operator = ">="
	LTE  Operator = "<="
	LT   Operator = "<"
	LIKE Operator = "LIKE"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a single WHERE condition. Field names are not escaped and must come from code.
func ApplyOperator(cond Condition) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.TrimSpace(cond.Field)
		if field == "" {
			return db
		}
		op := cond.Operator
		if op == "" {
			op = EQ
		}
		return db.Where(fmt.Sprintf("%s %s ?", field, op), cond.Value)
	})
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{
		SortBy:  strings.TrimSpace(sortBy),
		OrderBy: strings.TrimSpace(orderBy),
		Allow:   allow,
	}
}

// WithSortBy orders by an allow-listed column, falling back to created_at desc.
func WithSortBy(s QuerySortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		column := "created_at"
		if s.SortBy != "" && s.Allow[s.SortBy] {
			column = s.SortBy
		}
		direction := "desc"
		if strings.EqualFold(s.OrderBy, "asc") {
			direction = "asc"
		}
		return db.Order(fmt.Sprintf("%s %s, id %s", column, direction, direction))
	})
}

func WithLimit(limit int) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return db
		}
		return db.Limit(limit)
	})
}

// WithCursorBefore keeps rows strictly after the cursor in created_at desc, id desc order.
func WithCursorBefore(createdAt time.Time, id any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, id)
	})
}

// Scope wraps an arbitrary gorm scope, for conditions the helpers above cannot express.
func Scope(fn func(db *gorm.DB) *gorm.DB) QueryOption {
	return queryOptionFunc(fn)
}
