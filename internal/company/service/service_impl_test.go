package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	auditdomain "github.com/smallbiznis/invoiceflow/internal/audit/domain"
	auditrepo "github.com/smallbiznis/invoiceflow/internal/audit/repository"
	auditservice "github.com/smallbiznis/invoiceflow/internal/audit/service"
	"github.com/smallbiznis/invoiceflow/internal/authorization"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	"github.com/smallbiznis/invoiceflow/internal/company/domain"
	"github.com/smallbiznis/invoiceflow/internal/company/repository"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupCompanyTest(t *testing.T) (*gorm.DB, *clock.FakeClock, domain.Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.CompanyInfo{}, &auditdomain.AuditLog{}))

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: zap.NewNop(), Enforcer: enforcer})
	fake := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  auditrepo.Provide(),
		Authz: authz,
		Clock: fake,
	})
	svc := New(Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Repo:     repository.Provide(),
		Authz:    authz,
		AuditSvc: auditSvc,
		Clock:    fake,
	})
	return db, fake, svc
}

func TestGetBeforeSetup(t *testing.T) {
	_, _, svc := setupCompanyTest(t)
	_, err := svc.Get(context.Background(), actor.Company(1))
	assert.ErrorIs(t, err, domain.ErrCompanyInfoMissing)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpsertCreatesThenUpdatesSingleRow(t *testing.T) {
	db, fake, svc := setupCompanyTest(t)
	ctx := context.Background()
	company := actor.Company(1)

	first, err := svc.Upsert(ctx, company, domain.UpsertCompanyInfoRequest{CompanyName: " Acme KK ", PostalCode: "1000001"})
	require.NoError(t, err)
	assert.Equal(t, "Acme KK", first.CompanyName)

	fake.Advance(time.Hour)
	second, err := svc.Upsert(ctx, company, domain.UpsertCompanyInfoRequest{CompanyName: "Acme Holdings", Email: "ap@acme.test"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	var rows int64
	require.NoError(t, db.Model(&domain.CompanyInfo{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	got, err := svc.Get(ctx, actor.Freelancer(2, 3))
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", got.CompanyName)
	assert.Empty(t, got.PostalCode)

	var logs []auditdomain.AuditLog
	require.NoError(t, db.Where("action = ?", auditdomain.ActionCompanyInfoUpdated).Order("created_at asc").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, true, logs[0].Metadata["created"])
	assert.Equal(t, false, logs[1].Metadata["created"])
}

func TestUpsertValidation(t *testing.T) {
	_, _, svc := setupCompanyTest(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, actor.Company(1), domain.UpsertCompanyInfoRequest{CompanyName: " "})
	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "companyName", verr.Field)

	_, err = svc.Upsert(ctx, actor.Company(1), domain.UpsertCompanyInfoRequest{CompanyName: "Acme", Email: "nope"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	_, err = svc.Get(ctx, actor.Company(1))
	assert.ErrorIs(t, err, domain.ErrCompanyInfoMissing)
}

func TestFreelancerCannotEditCompanyInfo(t *testing.T) {
	_, _, svc := setupCompanyTest(t)
	_, err := svc.Upsert(context.Background(), actor.Freelancer(2, 3), domain.UpsertCompanyInfoRequest{CompanyName: "Acme"})
	assert.ErrorIs(t, err, authorization.ErrForbidden)
}
