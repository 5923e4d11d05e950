package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	auditdomain "github.com/smallbiznis/invoiceflow/internal/audit/domain"
	auditrepo "github.com/smallbiznis/invoiceflow/internal/audit/repository"
	auditservice "github.com/smallbiznis/invoiceflow/internal/audit/service"
	"github.com/smallbiznis/invoiceflow/internal/authorization"
	"github.com/smallbiznis/invoiceflow/internal/calculation"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	companydomain "github.com/smallbiznis/invoiceflow/internal/company/domain"
	companyrepo "github.com/smallbiznis/invoiceflow/internal/company/repository"
	"github.com/smallbiznis/invoiceflow/internal/config"
	freelancerdomain "github.com/smallbiznis/invoiceflow/internal/freelancer/domain"
	freelancerrepo "github.com/smallbiznis/invoiceflow/internal/freelancer/repository"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/smallbiznis/invoiceflow/internal/invoice/numbering"
	"github.com/smallbiznis/invoiceflow/internal/invoice/repository"
	"github.com/smallbiznis/invoiceflow/internal/migration"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	mayBilling = time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	mayDue     = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
)

type invoiceTestEnv struct {
	db         *gorm.DB
	clock      *clock.FakeClock
	node       *snowflake.Node
	svc        invoicedomain.Service
	freelancer freelancerdomain.Freelancer
	company    actor.Actor
	owner      actor.Actor
	stranger   actor.Actor
}

type envOption func(*ServiceParam)

func setupInvoiceTest(t *testing.T, opts ...envOption) invoiceTestEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.AutoMigrate(db))

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})
	fake := clock.NewFakeClock(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))

	now := fake.Now()
	freelancer := freelancerdomain.Freelancer{
		ID:            node.Generate(),
		Name:          "Hanako Yamada",
		Email:         "hanako@example.com",
		Phone:         "0312345678",
		PostalCode:    "1500001",
		Address:       "Shibuya, Tokyo",
		BankName:      "Mizuho",
		BankBranch:    "Shibuya",
		AccountType:   freelancerdomain.AccountTypeOrdinary,
		AccountNumber: "1234567",
		AccountHolder: "YAMADA HANAKO",
		Status:        freelancerdomain.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, db.Create(&freelancer).Error)
	require.NoError(t, db.Create(&companydomain.CompanyInfo{
		ID:          node.Generate(),
		CompanyName: "Acme KK",
		PostalCode:  "1000001",
		Address:     "Chiyoda, Tokyo",
		Email:       "billing@acme.test",
		CreatedAt:   now,
		UpdatedAt:   now,
	}).Error)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
		Authz: authz,
		Clock: fake,
	})
	params := ServiceParam{
		DB:             db,
		Log:            zap.NewNop(),
		GenID:          node,
		Repo:           repository.Provide(),
		Numbers:        numbering.NewAllocator(fake),
		FreelancerRepo: freelancerrepo.Provide(db),
		CompanyRepo:    companyrepo.Provide(),
		Authz:          authz,
		AuditSvc:       auditSvc,
		Clock:          fake,
		Config:         config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()),
	}
	for _, opt := range opts {
		opt(&params)
	}

	return invoiceTestEnv{
		db:         db,
		clock:      fake,
		node:       node,
		svc:        NewService(params),
		freelancer: freelancer,
		company:    actor.Company(1),
		owner:      actor.Freelancer(2, freelancer.ID),
		stranger:   actor.Freelancer(3, node.Generate()),
	}
}

func exclusiveItem(name string, price int64, rate int64, withholding bool) invoicedomain.ItemInput {
	return invoicedomain.ItemInput{
		ProductName:          name,
		UnitPrice:            price,
		Quantity:             1,
		TaxType:              calculation.TaxTypeExclusive,
		TaxRate:              decimal.NewFromInt(rate),
		WithholdingTaxTarget: withholding,
	}
}

func (env invoiceTestEnv) createDraft(t *testing.T, billing time.Time) invoicedomain.InvoiceDetail {
	t.Helper()
	detail, err := env.svc.Create(context.Background(), env.company, invoicedomain.CreateInvoiceRequest{
		FreelancerID:   env.freelancer.ID,
		BillingDate:    billing,
		PaymentDueDate: billing.AddDate(0, 1, 0),
		Items:          []invoicedomain.ItemInput{exclusiveItem("Design", 10000, 10, true)},
	})
	require.NoError(t, err)
	return detail
}

// seedInvoice writes an invoice in any status, bypassing the lifecycle.
func (env invoiceTestEnv) seedInvoice(t *testing.T, status invoicedomain.Status, number *string) invoicedomain.Invoice {
	t.Helper()
	now := env.clock.Now()
	inv := invoicedomain.Invoice{
		ID:             env.node.Generate(),
		FreelancerID:   env.freelancer.ID,
		CreatorID:      env.company.UserID,
		Status:         status,
		BillingDate:    mayBilling,
		PaymentDueDate: mayDue,
		InvoiceNumber:  number,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, env.db.Create(&inv).Error)
	return inv
}

func (env invoiceTestEnv) reload(t *testing.T, id snowflake.ID) invoicedomain.Invoice {
	t.Helper()
	var inv invoicedomain.Invoice
	require.NoError(t, env.db.Where("id = ?", id).Take(&inv).Error)
	return inv
}

func (env invoiceTestEnv) count(t *testing.T, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, env.db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}

type stubAllocator struct {
	mock.Mock
}

func (m *stubAllocator) Next(ctx context.Context, tx *gorm.DB, billingDate time.Time) (string, error) {
	args := m.Called(numbering.Prefix(billingDate))
	return args.String(0), args.Error(1)
}

type stubAudit struct {
	mock.Mock
}

func (m *stubAudit) Record(ctx context.Context, tx *gorm.DB, entry auditdomain.Entry) error {
	return m.Called(entry.Action).Error(0)
}

func (m *stubAudit) List(ctx context.Context, a actor.Actor, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

func strPtr(s string) *string { return &s }
