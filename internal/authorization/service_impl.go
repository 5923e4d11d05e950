package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectInvoice     = "invoice"
	ObjectFreelancer  = "freelancer"
	ObjectCompanyInfo = "company_info"
	ObjectProduct     = "product"
	ObjectAuditLog    = "audit_log"
)

const (
	ActionInvoiceView      = "invoice.view"
	ActionInvoiceCreate    = "invoice.create"
	ActionInvoiceUpdate    = "invoice.update"
	ActionInvoiceConfirm   = "invoice.confirm"
	ActionInvoiceApprove   = "invoice.approve"
	ActionInvoiceReject    = "invoice.reject"
	ActionInvoicePay       = "invoice.pay"
	ActionInvoiceDelete    = "invoice.delete"
	ActionInvoiceDuplicate = "invoice.duplicate"
	ActionInvoiceSummary   = "invoice.summary"

	ActionFreelancerView   = "freelancer.view"
	ActionFreelancerCreate = "freelancer.create"
	ActionFreelancerUpdate = "freelancer.update"
	ActionFreelancerDelete = "freelancer.delete"

	ActionCompanyInfoView   = "company_info.view"
	ActionCompanyInfoUpdate = "company_info.update"

	ActionProductView   = "product.view"
	ActionProductCreate = "product.create"
	ActionProductUpdate = "product.update"
	ActionProductDelete = "product.delete"

	ActionAuditLogView = "audit_log.view"
)

const (
	subjectCompany    = "role:company"
	subjectFreelancer = "role:freelancer"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// built-in role grants on every start.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, a actor.Actor, object string, action string) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	allowed, err := s.enforcer.Enforce(a.Subject(), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", a.Subject()),
			zap.String("user_id", a.UserID.String()),
			zap.String("object", object),
			zap.String("action", action),
		)
		return fmt.Errorf("%w: %s may not %s", ErrForbidden, strings.ToLower(string(a.Role)), action)
	}
	return nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Company staff run the back office.
		{subjectCompany, ObjectInvoice, ActionInvoiceView},
		{subjectCompany, ObjectInvoice, ActionInvoiceCreate},
		{subjectCompany, ObjectInvoice, ActionInvoiceUpdate},
		{subjectCompany, ObjectInvoice, ActionInvoiceConfirm},
		{subjectCompany, ObjectInvoice, ActionInvoiceReject},
		{subjectCompany, ObjectInvoice, ActionInvoicePay},
		{subjectCompany, ObjectInvoice, ActionInvoiceDelete},
		{subjectCompany, ObjectInvoice, ActionInvoiceDuplicate},
		{subjectCompany, ObjectInvoice, ActionInvoiceSummary},
		{subjectCompany, ObjectFreelancer, ActionFreelancerView},
		{subjectCompany, ObjectFreelancer, ActionFreelancerCreate},
		{subjectCompany, ObjectFreelancer, ActionFreelancerUpdate},
		{subjectCompany, ObjectFreelancer, ActionFreelancerDelete},
		{subjectCompany, ObjectCompanyInfo, ActionCompanyInfoView},
		{subjectCompany, ObjectCompanyInfo, ActionCompanyInfoUpdate},
		{subjectCompany, ObjectProduct, ActionProductView},
		{subjectCompany, ObjectProduct, ActionProductCreate},
		{subjectCompany, ObjectProduct, ActionProductUpdate},
		{subjectCompany, ObjectProduct, ActionProductDelete},
		{subjectCompany, ObjectAuditLog, ActionAuditLogView},

		// Freelancers review their own invoices.
		{subjectFreelancer, ObjectInvoice, ActionInvoiceView},
		{subjectFreelancer, ObjectInvoice, ActionInvoiceApprove},
		{subjectFreelancer, ObjectInvoice, ActionInvoiceReject},
		{subjectFreelancer, ObjectFreelancer, ActionFreelancerView},
		{subjectFreelancer, ObjectCompanyInfo, ActionCompanyInfoView},
		{subjectFreelancer, ObjectProduct, ActionProductView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
