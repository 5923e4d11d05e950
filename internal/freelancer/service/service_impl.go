package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	auditdomain "github.com/smallbiznis/invoiceflow/internal/audit/domain"
	"github.com/smallbiznis/invoiceflow/internal/audit/masking"
	"github.com/smallbiznis/invoiceflow/internal/authorization"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	"github.com/smallbiznis/invoiceflow/internal/freelancer/domain"
	"github.com/smallbiznis/invoiceflow/internal/freelancer/repository"
	"github.com/smallbiznis/invoiceflow/pkg/db"
	"github.com/smallbiznis/invoiceflow/pkg/db/option"
	"github.com/smallbiznis/invoiceflow/pkg/db/pagination"
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
		log:      p.Log.Named("freelancer.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		authz:    p.Authz,
		auditSvc: p.AuditSvc,
		clock:    p.Clock,
	}
}

func (s *Service) Create(ctx context.Context, a actor.Actor, req domain.CreateFreelancerRequest) (domain.Freelancer, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectFreelancer, authorization.ActionFreelancerCreate); err != nil {
		return domain.Freelancer{}, err
	}

	withholding := true
	if req.WithholdingTaxDefault != nil {
		withholding = *req.WithholdingTaxDefault
	}
	status := req.Status
	if status == "" {
		status = domain.StatusActive
	}

	now := s.clock.Now()
	freelancer := domain.Freelancer{
		ID:                    s.genID.Generate(),
		UserID:                req.UserID,
		Name:                  strings.TrimSpace(req.Name),
		NameKana:              domain.OptionalText(req.NameKana),
		Email:                 strings.TrimSpace(req.Email),
		Phone:                 strings.TrimSpace(req.Phone),
		PostalCode:            strings.TrimSpace(req.PostalCode),
		Address:               strings.TrimSpace(req.Address),
		RegistrationNumber:    domain.OptionalText(req.RegistrationNumber),
		BankName:              strings.TrimSpace(req.BankName),
		BankBranch:            strings.TrimSpace(req.BankBranch),
		AccountType:           req.AccountType,
		AccountNumber:         strings.TrimSpace(req.AccountNumber),
		AccountHolder:         strings.TrimSpace(req.AccountHolder),
		WithholdingTaxDefault: withholding,
		Status:                status,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := freelancer.Validate(); err != nil {
		return domain.Freelancer{}, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		taken, err := repo.Count(ctx, &domain.Freelancer{Email: freelancer.Email})
		if err != nil {
			return err
		}
		if taken > 0 {
			return domain.ErrEmailTaken
		}
		if err := repo.Create(ctx, &freelancer); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionFreelancerCreated,
			TargetType: "freelancer",
			TargetID:   freelancer.ID.String(),
			Metadata:   map[string]any{"name": freelancer.Name, "email": freelancer.Email},
		})
	})
	if err != nil {
		return domain.Freelancer{}, err
	}
	return freelancer, nil
}

func (s *Service) Update(ctx context.Context, a actor.Actor, id snowflake.ID, req domain.UpdateFreelancerRequest) (domain.Freelancer, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectFreelancer, authorization.ActionFreelancerUpdate); err != nil {
		return domain.Freelancer{}, err
	}
	if id == 0 {
		return domain.Freelancer{}, domain.ErrFreelancerNotFound
	}

	var updated domain.Freelancer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		current, err := repo.FindOne(ctx, &domain.Freelancer{ID: id})
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrFreelancerNotFound
		}

		changed := applyUpdate(current, req)
		if err := current.Validate(); err != nil {
			return err
		}
		if req.Email != nil {
			var clash int64
			if err := tx.Model(&domain.Freelancer{}).
				Where("email = ? AND id <> ?", current.Email, current.ID).
				Count(&clash).Error; err != nil {
				return err
			}
			if clash > 0 {
				return domain.ErrEmailTaken
			}
		}

		current.UpdatedAt = s.clock.Now()
		if err := repo.Save(ctx, current); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrEmailTaken
			}
			return err
		}
		updated = *current

		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionFreelancerUpdated,
			TargetType: "freelancer",
			TargetID:   current.ID.String(),
			Metadata:   masking.MaskFields(changed, "account_number"),
		})
	})
	if err != nil {
		return domain.Freelancer{}, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, a actor.Actor, id snowflake.ID) (domain.Freelancer, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectFreelancer, authorization.ActionFreelancerView); err != nil {
		return domain.Freelancer{}, err
	}
	if a.IsFreelancer() && !a.Owns(id) {
		return domain.Freelancer{}, fmt.Errorf("%w: freelancer profile belongs to someone else", authorization.ErrForbidden)
	}
	if id == 0 {
		return domain.Freelancer{}, domain.ErrFreelancerNotFound
	}

	item, err := s.repo.FindOne(ctx, &domain.Freelancer{ID: id})
	if err != nil {
		return domain.Freelancer{}, err
	}
	if item == nil {
		return domain.Freelancer{}, domain.ErrFreelancerNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, a actor.Actor, req domain.ListFreelancerRequest) (domain.ListFreelancerResponse, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectFreelancer, authorization.ActionFreelancerView); err != nil {
		return domain.ListFreelancerResponse{}, err
	}

	pageSize := req.Size()
	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{}),
		option.WithLimit(pageSize + 1),
	}
	if a.IsFreelancer() {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "id", Operator: option.EQ, Value: *a.FreelancerID}))
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "name", Operator: option.LIKE, Value: "%" + name + "%"}))
	}
	cursorID, cursorAt, ok, err := pagination.ParseToken(req.PageToken)
	if err != nil {
		return domain.ListFreelancerResponse{}, domain.ErrInvalidPageToken
	}
	if ok {
		opts = append(opts, option.WithCursorBefore(cursorAt, cursorID))
	}

	items, err := s.repo.Find(ctx, &domain.Freelancer{Status: req.Status}, opts...)
	if err != nil {
		return domain.ListFreelancerResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(f *domain.Freelancer) string {
		return pagination.Token(f.ID, f.CreatedAt)
	})

	freelancers := make([]domain.Freelancer, 0, len(items))
	for _, item := range items {
		freelancers = append(freelancers, *item)
	}
	return domain.ListFreelancerResponse{PageInfo: pageInfo, Freelancers: freelancers}, nil
}

func (s *Service) Delete(ctx context.Context, a actor.Actor, id snowflake.ID) error {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectFreelancer, authorization.ActionFreelancerDelete); err != nil {
		return err
	}
	if id == 0 {
		return domain.ErrFreelancerNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		current, err := repo.FindOne(ctx, &domain.Freelancer{ID: id})
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrFreelancerNotFound
		}

		refs, err := repository.CountReferences(ctx, tx, id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return domain.ErrFreelancerInUse
		}

		if err := repo.Delete(ctx, id); err != nil {
			if db.IsForeignKeyErr(err) {
				return domain.ErrFreelancerInUse
			}
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionFreelancerDeleted,
			TargetType: "freelancer",
			TargetID:   id.String(),
			Metadata:   map[string]any{"name": current.Name},
		})
	})
}

func (s *Service) FindByUserID(ctx context.Context, userID snowflake.ID) (domain.Freelancer, error) {
	if userID == 0 {
		return domain.Freelancer{}, domain.ErrFreelancerNotFound
	}
	item, err := s.repo.FindOne(ctx, &domain.Freelancer{UserID: &userID})
	if err != nil {
		return domain.Freelancer{}, err
	}
	if item == nil {
		return domain.Freelancer{}, domain.ErrFreelancerNotFound
	}
	return *item, nil
}

func applyUpdate(f *domain.Freelancer, req domain.UpdateFreelancerRequest) map[string]any {
	changed := map[string]any{}
	setText := func(key string, dst *string, src *string) {
		if src == nil {
			return
		}
		*dst = strings.TrimSpace(*src)
		changed[key] = *dst
	}
	setOptional := func(key string, dst **string, src *string) {
		if src == nil {
			return
		}
		*dst = domain.OptionalText(*src)
		changed[key] = strings.TrimSpace(*src)
	}

	setText("name", &f.Name, req.Name)
	setOptional("name_kana", &f.NameKana, req.NameKana)
	setText("email", &f.Email, req.Email)
	setText("phone", &f.Phone, req.Phone)
	setText("postal_code", &f.PostalCode, req.PostalCode)
	setText("address", &f.Address, req.Address)
	setOptional("registration_number", &f.RegistrationNumber, req.RegistrationNumber)
	setText("bank_name", &f.BankName, req.BankName)
	setText("bank_branch", &f.BankBranch, req.BankBranch)
	setText("account_number", &f.AccountNumber, req.AccountNumber)
	setText("account_holder", &f.AccountHolder, req.AccountHolder)
	if req.AccountType != nil {
		f.AccountType = *req.AccountType
		changed["account_type"] = string(*req.AccountType)
	}
	if req.WithholdingTaxDefault != nil {
		f.WithholdingTaxDefault = *req.WithholdingTaxDefault
		changed["withholding_tax_default"] = *req.WithholdingTaxDefault
	}
	if req.Status != nil {
		f.Status = *req.Status
		changed["status"] = string(*req.Status)
	}
	return changed
}
