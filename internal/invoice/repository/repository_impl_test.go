package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiceflow/internal/calculation"
	"github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupRepo(t *testing.T) (*gorm.DB, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&domain.Invoice{},
		&domain.InvoiceItem{},
		&domain.InvoiceTaxLine{},
		&domain.InvoiceStatusHistory{},
	))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return db, node
}

func newInvoice(node *snowflake.Node, number *string, createdAt time.Time) *domain.Invoice {
	billing := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	return &domain.Invoice{
		ID:             node.Generate(),
		FreelancerID:   10,
		CreatorID:      1,
		Status:         domain.StatusDraft,
		BillingDate:    billing,
		PaymentDueDate: billing.AddDate(0, 1, 0),
		InvoiceNumber:  number,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestSaveMapsDuplicateNumberToConflict(t *testing.T) {
	db, node := setupRepo(t)
	r := Provide()
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	taken := "202405-0001"
	require.NoError(t, r.Create(ctx, db, newInvoice(node, &taken, now)))
	other := newInvoice(node, nil, now)
	require.NoError(t, r.Create(ctx, db, other))

	other.InvoiceNumber = &taken
	err := r.Save(ctx, db, other)
	assert.ErrorIs(t, err, domain.ErrNumberConflict)
}

func TestReplaceItemsSwapsLines(t *testing.T) {
	db, node := setupRepo(t)
	r := Provide()
	ctx := context.Background()
	now := time.Now().UTC()
	inv := newInvoice(node, nil, now)
	require.NoError(t, r.Create(ctx, db, inv))

	line := func(n int, name string) domain.InvoiceItem {
		return domain.InvoiceItem{
			ID:             node.Generate(),
			InvoiceID:      inv.ID,
			LineNumber:     n,
			ProductName:    name,
			UnitPrice:      100,
			Quantity:       1,
			CommissionRate: decimal.NewFromInt(100),
			TaxType:        calculation.TaxTypeExclusive,
			TaxRate:        decimal.NewFromInt(10),
			Amount:         100,
			TaxAmount:      10,
			CreatedAt:      now,
		}
	}
	require.NoError(t, r.ReplaceItems(ctx, db, inv.ID, []domain.InvoiceItem{line(2, "b"), line(1, "a")}, nil))
	require.NoError(t, r.ReplaceItems(ctx, db, inv.ID, []domain.InvoiceItem{line(1, "c")}, []domain.InvoiceTaxLine{{
		ID:            node.Generate(),
		InvoiceID:     inv.ID,
		TaxRate:       decimal.NewFromInt(10),
		TaxableAmount: 100,
		Amount:        10,
		CreatedAt:     now,
	}}))

	items, err := r.ListItems(ctx, db, inv.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].ProductName)

	lines, err := r.ListTaxLines(ctx, db, inv.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestFindByIDMissing(t *testing.T) {
	db, node := setupRepo(t)
	got, err := Provide().FindByID(context.Background(), db, node.Generate(), true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListNewestFirst(t *testing.T) {
	db, node := setupRepo(t)
	r := Provide()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	var ids []snowflake.ID
	for i := 0; i < 3; i++ {
		inv := newInvoice(node, nil, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, r.Create(ctx, db, inv))
		ids = append(ids, inv.ID)
	}

	got, err := r.List(ctx, db, domain.ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[1], got[1].ID)

	rest, err := r.List(ctx, db, domain.ListFilter{Cursor: &domain.InvoiceCursor{ID: got[1].ID, CreatedAt: got[1].CreatedAt}})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[0], rest[0].ID)
}
