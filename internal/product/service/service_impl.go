package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	auditdomain "github.com/smallbiznis/invoiceflow/internal/audit/domain"
	"github.com/smallbiznis/invoiceflow/internal/authorization"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	"github.com/smallbiznis/invoiceflow/internal/product/domain"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
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
	repo     domain.Repository
	genID    *snowflake.Node
	authz    authorization.Service
	auditSvc auditdomain.Service
	clock    clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("product.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		authz:    p.Authz,
		auditSvc: p.AuditSvc,
		clock:    p.Clock,
	}
}

var commissionFull = decimal.NewFromInt(100)

func (s *Service) List(ctx context.Context, a actor.Actor, req domain.ListRequest) ([]domain.Response, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectProduct, authorization.ActionProductView); err != nil {
		return nil, err
	}

	filter := domain.ListFilter{
		Status:       req.Status,
		FreelancerID: req.FreelancerID,
		Name:         strings.TrimSpace(req.Name),
		SortBy:       strings.TrimSpace(req.SortBy),
		OrderBy:      strings.TrimSpace(req.OrderBy),
	}
	if a.IsFreelancer() {
		filter.VisibleTo = a.FreelancerID
		filter.FreelancerID = nil
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Create(ctx context.Context, a actor.Actor, req domain.CreateRequest) (*domain.Response, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectProduct, authorization.ActionProductCreate); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.StatusActive
	}
	now := s.clock.Now()
	entity := &domain.Product{
		ID:                   s.genID.Generate(),
		FreelancerID:         req.FreelancerID,
		Name:                 strings.TrimSpace(req.Name),
		Description:          optionalText(req.Description),
		UnitPrice:            req.UnitPrice,
		TaxType:              req.TaxType,
		TaxRate:              req.TaxRate,
		WithholdingTaxTarget: req.WithholdingTaxTarget,
		Status:               status,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, entity); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionProductCreated,
			TargetType: "product",
			TargetID:   entity.ID.String(),
			Metadata:   map[string]any{"name": entity.Name, "unit_price": entity.UnitPrice},
		})
	})
	if err != nil {
		return nil, err
	}

	resp := toResponse(entity)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, a actor.Actor, id snowflake.ID) (*domain.Response, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectProduct, authorization.ActionProductView); err != nil {
		return nil, err
	}
	item, err := s.load(ctx, s.db, a, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(item)
	return &resp, nil
}

func (s *Service) Update(ctx context.Context, a actor.Actor, id snowflake.ID, req domain.UpdateRequest) (*domain.Response, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectProduct, authorization.ActionProductUpdate); err != nil {
		return nil, err
	}

	var updated *domain.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.load(ctx, tx, a, id)
		if err != nil {
			return err
		}

		changed := applyUpdate(item, req)
		if err := item.Validate(); err != nil {
			return err
		}
		item.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		updated = item

		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionProductUpdated,
			TargetType: "product",
			TargetID:   item.ID.String(),
			Metadata:   changed,
		})
	})
	if err != nil {
		return nil, err
	}

	resp := toResponse(updated)
	return &resp, nil
}

func (s *Service) Delete(ctx context.Context, a actor.Actor, id snowflake.ID) error {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectProduct, authorization.ActionProductDelete); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.load(ctx, tx, a, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionProductDeleted,
			TargetType: "product",
			TargetID:   id.String(),
			Metadata:   map[string]any{"name": item.Name},
		})
	})
}

func (s *Service) ToLineItem(ctx context.Context, a actor.Actor, id snowflake.ID, quantity int64) (domain.LineItemDraft, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectProduct, authorization.ActionProductView); err != nil {
		return domain.LineItemDraft{}, err
	}
	if quantity <= 0 {
		return domain.LineItemDraft{}, apperror.NewValidation("quantity", "must be at least 1")
	}
	item, err := s.load(ctx, s.db, a, id)
	if err != nil {
		return domain.LineItemDraft{}, err
	}
	if item.Status != domain.StatusActive {
		return domain.LineItemDraft{}, domain.ErrProductInactive
	}

	return domain.LineItemDraft{
		ProductID:            item.ID,
		ProductName:          item.Name,
		UnitPrice:            item.UnitPrice,
		Quantity:             quantity,
		CommissionRate:       commissionFull,
		TaxType:              item.TaxType,
		TaxRate:              item.TaxRate,
		WithholdingTaxTarget: item.WithholdingTaxTarget,
	}, nil
}

// load fetches a product and hides another freelancer's private products.
func (s *Service) load(ctx context.Context, db *gorm.DB, a actor.Actor, id snowflake.ID) (*domain.Product, error) {
	item, err := s.repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	if a.IsFreelancer() && item.FreelancerID != nil && !a.Owns(*item.FreelancerID) {
		return nil, fmt.Errorf("%w: product belongs to another freelancer", authorization.ErrForbidden)
	}
	return item, nil
}

func applyUpdate(p *domain.Product, req domain.UpdateRequest) map[string]any {
	changed := map[string]any{}
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
		changed["name"] = p.Name
	}
	if req.Description != nil {
		p.Description = optionalText(req.Description)
		changed["description"] = strings.TrimSpace(*req.Description)
	}
	if req.UnitPrice != nil {
		p.UnitPrice = *req.UnitPrice
		changed["unit_price"] = p.UnitPrice
	}
	if req.TaxType != nil {
		p.TaxType = *req.TaxType
		changed["tax_type"] = string(p.TaxType)
	}
	if req.TaxRate != nil {
		p.TaxRate = *req.TaxRate
		changed["tax_rate"] = p.TaxRate.String()
	}
	if req.WithholdingTaxTarget != nil {
		p.WithholdingTaxTarget = *req.WithholdingTaxTarget
		changed["withholding_tax_target"] = p.WithholdingTaxTarget
	}
	if req.Status != nil {
		p.Status = *req.Status
		changed["status"] = string(p.Status)
	}
	return changed
}

func optionalText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toResponse(p *domain.Product) domain.Response {
	var freelancerID *string
	if p.FreelancerID != nil {
		v := p.FreelancerID.String()
		freelancerID = &v
	}
	return domain.Response{
		ID:                   p.ID.String(),
		FreelancerID:         freelancerID,
		Name:                 p.Name,
		Description:          p.Description,
		UnitPrice:            p.UnitPrice,
		TaxType:              p.TaxType,
		TaxRate:              p.TaxRate,
		WithholdingTaxTarget: p.WithholdingTaxTarget,
		Status:               p.Status,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}
