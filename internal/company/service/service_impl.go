package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	auditdomain "github.com/smallbiznis/invoiceflow/internal/audit/domain"
	"github.com/smallbiznis/invoiceflow/internal/authorization"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	"github.com/smallbiznis/invoiceflow/internal/company/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Authz    authorization.Service
	AuditSvc auditdomain.Service
	Clock    clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	authz    authorization.Service
	auditSvc auditdomain.Service
	clock    clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("company.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		authz:    p.Authz,
		auditSvc: p.AuditSvc,
		clock:    p.Clock,
	}
}

func (s *Service) Get(ctx context.Context, a actor.Actor) (domain.CompanyInfo, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectCompanyInfo, authorization.ActionCompanyInfoView); err != nil {
		return domain.CompanyInfo{}, err
	}
	info, err := s.repo.Get(ctx, s.db)
	if err != nil {
		return domain.CompanyInfo{}, err
	}
	if info == nil {
		return domain.CompanyInfo{}, domain.ErrCompanyInfoMissing
	}
	return *info, nil
}

func (s *Service) Upsert(ctx context.Context, a actor.Actor, req domain.UpsertCompanyInfoRequest) (domain.CompanyInfo, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectCompanyInfo, authorization.ActionCompanyInfoUpdate); err != nil {
		return domain.CompanyInfo{}, err
	}

	var saved domain.CompanyInfo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.Get(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		created := current == nil
		if created {
			current = &domain.CompanyInfo{ID: s.genID.Generate(), CreatedAt: now}
		}
		current.CompanyName = strings.TrimSpace(req.CompanyName)
		current.PostalCode = strings.TrimSpace(req.PostalCode)
		current.Address = strings.TrimSpace(req.Address)
		current.Phone = strings.TrimSpace(req.Phone)
		current.Email = strings.TrimSpace(req.Email)
		current.AdditionalInfo = strings.TrimSpace(req.AdditionalInfo)
		current.UpdatedAt = now

		if err := current.Validate(); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, tx, current); err != nil {
			return err
		}
		saved = *current

		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionCompanyInfoUpdated,
			TargetType: "company_info",
			TargetID:   current.ID.String(),
			Metadata:   map[string]any{"company_name": current.CompanyName, "created": created},
		})
	})
	if err != nil {
		return domain.CompanyInfo{}, err
	}
	return saved, nil
}
