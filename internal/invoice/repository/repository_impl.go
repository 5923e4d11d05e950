package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/smallbiznis/invoiceflow/pkg/db"
	"github.com/smallbiznis/invoiceflow/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	return tx.WithContext(ctx).Create(invoice).Error
}

func (r *repo) FindByID(ctx context.Context, tx *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Invoice, error) {
	stmt := tx.WithContext(ctx)
	if forUpdate && db.SupportsRowLocking(tx) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var invoice domain.Invoice
	err := stmt.Where("id = ?", id).Take(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) Save(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) error {
	if invoice == nil {
		return gorm.ErrInvalidData
	}
	err := tx.WithContext(ctx).Save(invoice).Error
	if db.IsDuplicateKeyErr(err) {
		return errors.Join(domain.ErrNumberConflict, err)
	}
	return err
}

func (r *repo) ReplaceItems(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID, items []domain.InvoiceItem, taxLines []domain.InvoiceTaxLine) error {
	stmt := tx.WithContext(ctx)
	if err := stmt.Where("invoice_id = ?", invoiceID).Delete(&domain.InvoiceItem{}).Error; err != nil {
		return err
	}
	if err := stmt.Where("invoice_id = ?", invoiceID).Delete(&domain.InvoiceTaxLine{}).Error; err != nil {
		return err
	}
	if len(items) > 0 {
		if err := stmt.Create(&items).Error; err != nil {
			return err
		}
	}
	if len(taxLines) > 0 {
		if err := stmt.Create(&taxLines).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ListItems(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceItem, error) {
	var items []domain.InvoiceItem
	err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("line_number asc").
		Find(&items).Error
	return items, err
}

func (r *repo) ListTaxLines(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceTaxLine, error) {
	var lines []domain.InvoiceTaxLine
	err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("tax_rate asc").
		Find(&lines).Error
	return lines, err
}

func (r *repo) AppendHistory(ctx context.Context, tx *gorm.DB, entry *domain.InvoiceStatusHistory) error {
	return tx.WithContext(ctx).Create(entry).Error
}

func (r *repo) ListHistory(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceStatusHistory, error) {
	var history []domain.InvoiceStatusHistory
	err := tx.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at asc, id asc").
		Find(&history).Error
	return history, err
}

func (r *repo) Delete(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	stmt := tx.WithContext(ctx)
	for _, model := range []any{&domain.InvoiceItem{}, &domain.InvoiceTaxLine{}, &domain.InvoiceStatusHistory{}} {
		if err := stmt.Where("invoice_id = ?", id).Delete(model).Error; err != nil {
			return err
		}
	}
	return stmt.Where("id = ?", id).Delete(&domain.Invoice{}).Error
}

func (r *repo) List(ctx context.Context, tx *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	stmt := tx.WithContext(ctx).Model(&domain.Invoice{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.FreelancerID != nil {
		stmt = stmt.Where("freelancer_id = ?", *filter.FreelancerID)
	}

	opts := []option.QueryOption{option.WithSortBy(option.QuerySortBy{})}
	if filter.BillingFrom != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "billing_date", Operator: option.GTE, Value: *filter.BillingFrom}))
	}
	if filter.BillingTo != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "billing_date", Operator: option.LTE, Value: *filter.BillingTo}))
	}
	if filter.Cursor != nil {
		opts = append(opts, option.WithCursorBefore(filter.Cursor.CreatedAt, filter.Cursor.ID))
	}
	if filter.Limit > 0 {
		opts = append(opts, option.WithLimit(filter.Limit))
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}

	var items []*domain.Invoice
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Summarize(ctx context.Context, tx *gorm.DB, filter domain.SummaryFilter) (domain.Summary, error) {
	scoped := func() *gorm.DB {
		return tx.WithContext(ctx).Model(&domain.Invoice{})
	}
	inMonth := func() *gorm.DB {
		return scoped().Where("billing_date >= ? AND billing_date < ?", filter.MonthStart, filter.MonthEnd)
	}

	var out domain.Summary
	if err := inMonth().Count(&out.InvoiceCount).Error; err != nil {
		return domain.Summary{}, err
	}
	if err := inMonth().
		Where("status IN ?", []domain.Status{domain.StatusApproved, domain.StatusPaid}).
		Select("COALESCE(SUM(invoice_amount), 0)").
		Scan(&out.ApprovedAmount).Error; err != nil {
		return domain.Summary{}, err
	}
	if err := scoped().Where("status = ?", domain.StatusApproved).Count(&out.AwaitingPaymentCount).Error; err != nil {
		return domain.Summary{}, err
	}
	return out, nil
}
