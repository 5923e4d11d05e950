package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	auditdomain "github.com/smallbiznis/invoiceflow/internal/audit/domain"
	"github.com/smallbiznis/invoiceflow/internal/authorization"
	"github.com/smallbiznis/invoiceflow/internal/clock"
	companydomain "github.com/smallbiznis/invoiceflow/internal/company/domain"
	"github.com/smallbiznis/invoiceflow/internal/config"
	freelancerdomain "github.com/smallbiznis/invoiceflow/internal/freelancer/domain"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/smallbiznis/invoiceflow/internal/invoice/numbering"
	"github.com/smallbiznis/invoiceflow/internal/observability/metrics"
	"github.com/smallbiznis/invoiceflow/internal/observability/tracing"
	"github.com/smallbiznis/invoiceflow/pkg/apperror"
	"github.com/smallbiznis/invoiceflow/pkg/db/pagination"
	"github.com/smallbiznis/invoiceflow/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Repo           invoicedomain.Repository
	Numbers        numbering.Allocator
	FreelancerRepo freelancerdomain.Repository
	CompanyRepo    companydomain.Repository
	Authz          authorization.Service
	AuditSvc       auditdomain.Service
	Clock          clock.Clock
	Config         *config.InvoicingConfigHolder
	Metrics        *metrics.Metrics     `optional:"true"`
	Tracer         trace.TracerProvider `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID          *snowflake.Node
	repo           invoicedomain.Repository
	numbers        numbering.Allocator
	freelancerRepo freelancerdomain.Repository
	companyRepo    companydomain.Repository
	authz          authorization.Service
	auditSvc       auditdomain.Service
	clock          clock.Clock
	cfg            *config.InvoicingConfigHolder
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

func NewService(p ServiceParam) invoicedomain.Service {
	m := p.Metrics
	if m == nil {
		m = metrics.NewNoop()
	}
	tp := p.Tracer
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:          p.GenID,
		repo:           p.Repo,
		numbers:        p.Numbers,
		freelancerRepo: p.FreelancerRepo,
		companyRepo:    p.CompanyRepo,
		authz:          p.Authz,
		auditSvc:       p.AuditSvc,
		clock:          p.Clock,
		cfg:            p.Config,
		metrics:        m,
		tracer:         tp.Tracer("invoiceflow/invoice"),
	}
}

func (s *Service) Create(ctx context.Context, a actor.Actor, req invoicedomain.CreateInvoiceRequest) (detail invoicedomain.InvoiceDetail, err error) {
	ctx, _ = correlation.Ensure(ctx)
	ctx, span := s.tracer.Start(ctx, "invoice.Create")
	defer func() { tracing.End(span, err) }()
	defer func() { s.metrics.RecordTransition(ctx, "create", string(invoicedomain.StatusDraft), outcome(err)) }()

	if err := s.authz.Authorize(ctx, a, authorization.ObjectInvoice, authorization.ActionInvoiceCreate); err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.FreelancerID == 0 {
			return invoicedomain.ErrFreelancerNotFound
		}
		freelancer, err := s.freelancerRepo.WithTrx(tx).FindOne(ctx, &freelancerdomain.Freelancer{ID: req.FreelancerID})
		if err != nil {
			return err
		}
		if freelancer == nil {
			return invoicedomain.ErrFreelancerNotFound
		}

		billing, due := calendarDate(req.BillingDate), calendarDate(req.PaymentDueDate)
		if err := validateDates(billing, due); err != nil {
			return err
		}
		notes, err := s.normalizeNotes(req.Notes)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		invoice := invoicedomain.Invoice{
			ID:             s.genID.Generate(),
			FreelancerID:   freelancer.ID,
			CreatorID:      a.UserID,
			Status:         invoicedomain.StatusDraft,
			BillingDate:    billing,
			PaymentDueDate: due,
			Notes:          notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		lines, err := s.buildLines(invoice.ID, req.Items, now)
		if err != nil {
			return err
		}
		s.metrics.RecordCalculation(ctx, "create")
		invoice.ApplyTotals(lines.result)

		if err := s.repo.Create(ctx, tx, &invoice); err != nil {
			return err
		}
		if err := s.repo.ReplaceItems(ctx, tx, invoice.ID, lines.items, lines.taxLines); err != nil {
			return err
		}
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionInvoiceCreated,
			TargetType: "invoice",
			TargetID:   invoice.ID.String(),
			Metadata:   amountMetadata(&invoice, nil),
		}); err != nil {
			return err
		}

		detail, err = invoicedomain.NewInvoiceDetail(invoice, lines.items, lines.taxLines, nil)
		return err
	})
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	return detail, nil
}

func (s *Service) Update(ctx context.Context, a actor.Actor, id snowflake.ID, req invoicedomain.UpdateInvoiceRequest) (detail invoicedomain.InvoiceDetail, err error) {
	ctx, _ = correlation.Ensure(ctx)
	ctx, span := s.tracer.Start(ctx, "invoice.Update", trace.WithAttributes(attribute.String("invoice.id", id.String())))
	defer func() { tracing.End(span, err) }()
	var status invoicedomain.Status
	defer func() { s.metrics.RecordTransition(ctx, string(invoicedomain.ActionUpdate), string(status), outcome(err)) }()

	if err := s.authz.Authorize(ctx, a, authorization.ObjectInvoice, authorization.ActionInvoiceUpdate); err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.load(ctx, tx, a, id, true)
		if err != nil {
			return err
		}
		status, err = invoicedomain.NextStatus(invoice.Status, invoicedomain.ActionUpdate)
		if err != nil {
			return err
		}

		changed := map[string]any{}
		billing, due := invoice.BillingDate, invoice.PaymentDueDate
		if req.BillingDate != nil {
			billing = calendarDate(*req.BillingDate)
			changed["billing_date"] = billing.Format(time.DateOnly)
		}
		if req.PaymentDueDate != nil {
			due = calendarDate(*req.PaymentDueDate)
			changed["payment_due_date"] = due.Format(time.DateOnly)
		}
		if err := validateDates(billing, due); err != nil {
			return err
		}
		invoice.BillingDate, invoice.PaymentDueDate = billing, due

		if req.Notes != nil {
			notes, err := s.normalizeNotes(req.Notes)
			if err != nil {
				return err
			}
			invoice.Notes = notes
			changed["notes"] = true
		}

		now := s.clock.Now()
		if req.Items != nil {
			lines, err := s.buildLines(invoice.ID, req.Items, now)
			if err != nil {
				return err
			}
			s.metrics.RecordCalculation(ctx, "update")
			invoice.ApplyTotals(lines.result)
			if err := s.repo.ReplaceItems(ctx, tx, invoice.ID, lines.items, lines.taxLines); err != nil {
				return err
			}
			changed["items"] = len(lines.items)
		}

		invoice.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, invoice); err != nil {
			return err
		}
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionInvoiceUpdated,
			TargetType: "invoice",
			TargetID:   invoice.ID.String(),
			Metadata:   amountMetadata(invoice, changed),
		}); err != nil {
			return err
		}

		detail, err = s.detail(ctx, tx, invoice)
		return err
	})
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	return detail, nil
}

func (s *Service) Delete(ctx context.Context, a actor.Actor, id snowflake.ID) (err error) {
	ctx, _ = correlation.Ensure(ctx)
	ctx, span := s.tracer.Start(ctx, "invoice.Delete", trace.WithAttributes(attribute.String("invoice.id", id.String())))
	defer func() { tracing.End(span, err) }()
	defer func() { s.metrics.RecordTransition(ctx, string(invoicedomain.ActionDelete), "deleted", outcome(err)) }()

	if err := s.authz.Authorize(ctx, a, authorization.ObjectInvoice, authorization.ActionInvoiceDelete); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.load(ctx, tx, a, id, true)
		if err != nil {
			return err
		}
		if _, err := invoicedomain.NextStatus(invoice.Status, invoicedomain.ActionDelete); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return err
		}
		return s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionInvoiceDeleted,
			TargetType: "invoice",
			TargetID:   id.String(),
			Metadata:   amountMetadata(invoice, nil),
		})
	})
}

// Duplicate copies an invoice's lines into a fresh DRAFT billed at the end
// of the following month. Numbers and snapshots are not carried over.
func (s *Service) Duplicate(ctx context.Context, a actor.Actor, id snowflake.ID) (detail invoicedomain.InvoiceDetail, err error) {
	ctx, _ = correlation.Ensure(ctx)
	ctx, span := s.tracer.Start(ctx, "invoice.Duplicate", trace.WithAttributes(attribute.String("invoice.id", id.String())))
	defer func() { tracing.End(span, err) }()
	defer func() { s.metrics.RecordTransition(ctx, "duplicate", string(invoicedomain.StatusDraft), outcome(err)) }()

	if err := s.authz.Authorize(ctx, a, authorization.ObjectInvoice, authorization.ActionInvoiceDuplicate); err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		source, err := s.load(ctx, tx, a, id, false)
		if err != nil {
			return err
		}
		sourceItems, err := s.repo.ListItems(ctx, tx, source.ID)
		if err != nil {
			return err
		}

		inputs := make([]invoicedomain.ItemInput, 0, len(sourceItems))
		for _, item := range sourceItems {
			commission := item.CommissionRate
			inputs = append(inputs, invoicedomain.ItemInput{
				ProductID:            item.ProductID,
				ProductName:          item.ProductName,
				UnitPrice:            item.UnitPrice,
				Quantity:             item.Quantity,
				CommissionRate:       &commission,
				TaxType:              item.TaxType,
				TaxRate:              item.TaxRate,
				WithholdingTaxTarget: item.WithholdingTaxTarget,
			})
		}

		now := s.clock.Now()
		invoice := invoicedomain.Invoice{
			ID:             s.genID.Generate(),
			FreelancerID:   source.FreelancerID,
			CreatorID:      a.UserID,
			Status:         invoicedomain.StatusDraft,
			BillingDate:    endOfNextMonth(source.BillingDate),
			PaymentDueDate: endOfNextMonth(source.PaymentDueDate),
			Notes:          source.Notes,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		lines, err := s.buildLines(invoice.ID, inputs, now)
		if err != nil {
			return err
		}
		s.metrics.RecordCalculation(ctx, "duplicate")
		invoice.ApplyTotals(lines.result)

		if err := s.repo.Create(ctx, tx, &invoice); err != nil {
			return err
		}
		if err := s.repo.ReplaceItems(ctx, tx, invoice.ID, lines.items, lines.taxLines); err != nil {
			return err
		}
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionInvoiceDuplicated,
			TargetType: "invoice",
			TargetID:   invoice.ID.String(),
			Metadata:   amountMetadata(&invoice, map[string]any{"source_invoice_id": source.ID.String()}),
		}); err != nil {
			return err
		}

		detail, err = invoicedomain.NewInvoiceDetail(invoice, lines.items, lines.taxLines, nil)
		return err
	})
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	return detail, nil
}

func (s *Service) Get(ctx context.Context, a actor.Actor, id snowflake.ID) (invoicedomain.InvoiceDetail, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectInvoice, authorization.ActionInvoiceView); err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	invoice, err := s.load(ctx, s.db, a, id, false)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	return s.detail(ctx, s.db, invoice)
}

func (s *Service) List(ctx context.Context, a actor.Actor, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectInvoice, authorization.ActionInvoiceView); err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	if req.Status != "" && !req.Status.Valid() {
		return invoicedomain.ListInvoiceResponse{}, apperror.NewValidation("status", "unknown invoice status")
	}
	from, to := calendarDatePtr(req.BillingFrom), calendarDatePtr(req.BillingTo)
	if from != nil && to != nil && to.Before(*from) {
		return invoicedomain.ListInvoiceResponse{}, apperror.NewValidation("billingTo", "must not be before billingFrom")
	}

	pageSize := req.Size()
	filter := invoicedomain.ListFilter{
		Status:       req.Status,
		FreelancerID: req.FreelancerID,
		BillingFrom:  from,
		BillingTo:    to,
		Limit:        pageSize + 1,
	}
	if a.IsFreelancer() {
		filter.FreelancerID = a.FreelancerID
	}

	cursorID, cursorAt, ok, err := pagination.ParseToken(req.PageToken)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
	}
	if ok {
		filter.Cursor = &invoicedomain.InvoiceCursor{ID: cursorID, CreatedAt: cursorAt}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(inv *invoicedomain.Invoice) string {
		return pagination.Token(inv.ID, inv.CreatedAt)
	})

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}
	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

// Summary reports the dashboard figures for the calendar month month falls in,
// read in month's own location.
func (s *Service) Summary(ctx context.Context, a actor.Actor, month time.Time) (invoicedomain.Summary, error) {
	if err := s.authz.Authorize(ctx, a, authorization.ObjectInvoice, authorization.ActionInvoiceSummary); err != nil {
		return invoicedomain.Summary{}, err
	}
	if month.IsZero() {
		month = s.clock.Now()
	}
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	out, err := s.repo.Summarize(ctx, s.db, invoicedomain.SummaryFilter{
		MonthStart: start,
		MonthEnd:   start.AddDate(0, 1, 0),
	})
	if err != nil {
		return invoicedomain.Summary{}, err
	}
	out.Month = numbering.Prefix(start)

	recent, err := s.repo.List(ctx, s.db, invoicedomain.ListFilter{Limit: summaryRecentLimit})
	if err != nil {
		return invoicedomain.Summary{}, err
	}
	out.Recent = make([]invoicedomain.Invoice, 0, len(recent))
	for _, inv := range recent {
		out.Recent = append(out.Recent, *inv)
	}
	return out, nil
}

// load fetches the invoice and enforces freelancer ownership.
func (s *Service) load(ctx context.Context, db *gorm.DB, a actor.Actor, id snowflake.ID, forUpdate bool) (*invoicedomain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, db, id, forUpdate)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	if a.IsFreelancer() && !a.Owns(invoice.FreelancerID) {
		return nil, invoicedomain.ErrNotOwner
	}
	return invoice, nil
}

func (s *Service) detail(ctx context.Context, db *gorm.DB, invoice *invoicedomain.Invoice) (invoicedomain.InvoiceDetail, error) {
	items, err := s.repo.ListItems(ctx, db, invoice.ID)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	taxLines, err := s.repo.ListTaxLines(ctx, db, invoice.ID)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	history, err := s.repo.ListHistory(ctx, db, invoice.ID)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	return invoicedomain.NewInvoiceDetail(*invoice, items, taxLines, history)
}

func amountMetadata(invoice *invoicedomain.Invoice, extra map[string]any) map[string]any {
	metadata := map[string]any{
		"freelancer_id":  invoice.FreelancerID.String(),
		"status":         string(invoice.Status),
		"subtotal":       invoice.Subtotal,
		"tax_amount":     invoice.TaxAmount,
		"invoice_amount": invoice.InvoiceAmount,
	}
	if invoice.InvoiceNumber != nil {
		metadata["invoice_number"] = *invoice.InvoiceNumber
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}
	return metadata
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperror.ErrValidation):
		return "invalid"
	case errors.Is(err, apperror.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, apperror.ErrForbidden):
		return "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrNumberConflict):
		return "number_conflict"
	default:
		return "error"
	}
}

const summaryRecentLimit = 5

func endOfNextMonth(t time.Time) time.Time {
	u := t.UTC()
	firstAfter := time.Date(u.Year(), u.Month()+2, 1, 0, 0, 0, 0, time.UTC)
	return firstAfter.AddDate(0, 0, -1)
}
