package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	auditdomain "github.com/smallbiznis/invoiceflow/internal/audit/domain"
	"github.com/smallbiznis/invoiceflow/internal/authorization"
	freelancerdomain "github.com/smallbiznis/invoiceflow/internal/freelancer/domain"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/smallbiznis/invoiceflow/internal/invoice/numbering"
	"github.com/smallbiznis/invoiceflow/internal/invoice/snapshot"
	"github.com/smallbiznis/invoiceflow/internal/observability/logger"
	"github.com/smallbiznis/invoiceflow/internal/observability/tracing"
	"github.com/smallbiznis/invoiceflow/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const confirmComment = "Invoice confirmed and sent for approval"

// Confirm assigns the invoice number, freezes both snapshots and moves the
// invoice to PENDING_APPROVAL. Losing the number race retries the whole
// transaction up to the configured attempt limit.
func (s *Service) Confirm(ctx context.Context, a actor.Actor, id snowflake.ID) (invoice invoicedomain.Invoice, err error) {
	ctx, _ = correlation.Ensure(ctx)
	ctx, span := s.tracer.Start(ctx, "invoice.Confirm", trace.WithAttributes(attribute.String("invoice.id", id.String())))
	defer func() { tracing.End(span, err) }()
	defer func() {
		s.metrics.RecordTransition(ctx, string(invoicedomain.ActionConfirm), string(invoicedomain.StatusPendingApproval), outcome(err))
	}()

	if err := s.authz.Authorize(ctx, a, authorization.ObjectInvoice, authorization.ActionInvoiceConfirm); err != nil {
		return invoicedomain.Invoice{}, err
	}

	maxAttempts := s.cfg.Get().Numbering.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	log := logger.WithContext(ctx, s.log).With(zap.String("invoice_id", id.String()))

	for attempt := 1; ; attempt++ {
		confirmed, prefix, err := s.confirmOnce(ctx, a, id)
		if err == nil {
			span.SetAttributes(attribute.Int("invoice.confirm_attempts", attempt))
			return confirmed, nil
		}
		if !errors.Is(err, invoicedomain.ErrNumberConflict) || errors.Is(err, invoicedomain.ErrInvoiceNumberExhausted) {
			return invoicedomain.Invoice{}, err
		}

		s.metrics.RecordNumberConflict(ctx, prefix, attempt)
		log.Warn("invoice number conflict",
			zap.String("prefix", prefix),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
		)
		if attempt >= maxAttempts {
			return invoicedomain.Invoice{}, &invoicedomain.NumberConflictError{Prefix: prefix, Attempts: attempt}
		}
	}
}

func (s *Service) confirmOnce(ctx context.Context, a actor.Actor, id snowflake.ID) (invoicedomain.Invoice, string, error) {
	var (
		confirmed invoicedomain.Invoice
		prefix    string
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.load(ctx, tx, a, id, true)
		if err != nil {
			return err
		}
		to, err := invoicedomain.NextStatus(invoice.Status, invoicedomain.ActionConfirm)
		if err != nil {
			return err
		}

		freelancer, err := s.freelancerRepo.WithTrx(tx).FindOne(ctx, &freelancerdomain.Freelancer{ID: invoice.FreelancerID})
		if err != nil {
			return err
		}
		if freelancer == nil {
			return invoicedomain.ErrFreelancerNotFound
		}
		company, err := s.companyRepo.Get(ctx, tx)
		if err != nil {
			return err
		}
		if company == nil {
			return invoicedomain.ErrCompanyInfoMissing
		}

		prefix = numbering.Prefix(invoice.BillingDate)
		// A re-confirmed invoice keeps its number unless its billing month moved.
		if invoice.InvoiceNumber == nil || !strings.HasPrefix(*invoice.InvoiceNumber, prefix+"-") {
			number, err := s.numbers.Next(ctx, tx, invoice.BillingDate)
			if err != nil {
				return err
			}
			invoice.InvoiceNumber = &number
		}

		freelancerSnap, err := snapshot.Encode(snapshot.FromFreelancer(*freelancer))
		if err != nil {
			return err
		}
		companySnap, err := snapshot.Encode(snapshot.FromCompany(*company))
		if err != nil {
			return err
		}

		from := invoice.Status
		now := s.clock.Now()
		invoice.Status = to
		invoice.FreelancerSnapshot = freelancerSnap
		invoice.CompanySnapshot = companySnap
		invoice.ConfirmedAt = &now
		invoice.UpdatedAt = now
		if err := s.repo.Save(ctx, tx, invoice); err != nil {
			return err
		}

		if err := s.appendHistory(ctx, tx, a, invoice.ID, from, to, confirmComment, now); err != nil {
			return err
		}
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     auditdomain.ActionInvoiceConfirmed,
			TargetType: "invoice",
			TargetID:   invoice.ID.String(),
			Metadata:   amountMetadata(invoice, map[string]any{"previous_status": string(from)}),
		}); err != nil {
			return err
		}

		confirmed = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, prefix, err
	}
	return confirmed, prefix, nil
}

func (s *Service) Approve(ctx context.Context, a actor.Actor, id snowflake.ID, req invoicedomain.TransitionRequest) (invoicedomain.Invoice, error) {
	return s.transition(ctx, a, id, transitionOp{
		action:      invoicedomain.ActionApprove,
		authzAction: authorization.ActionInvoiceApprove,
		auditAction: auditdomain.ActionInvoiceApproved,
		comment:     req.Comment,
	})
}

// Reject sends a pending invoice back. Freelancers reject their own invoices;
// company staff use it to recall one for editing.
func (s *Service) Reject(ctx context.Context, a actor.Actor, id snowflake.ID, req invoicedomain.TransitionRequest) (invoicedomain.Invoice, error) {
	return s.transition(ctx, a, id, transitionOp{
		action:      invoicedomain.ActionReject,
		authzAction: authorization.ActionInvoiceReject,
		auditAction: auditdomain.ActionInvoiceRejected,
		comment:     req.Comment,
	})
}

func (s *Service) MarkPaid(ctx context.Context, a actor.Actor, id snowflake.ID, req invoicedomain.MarkPaidRequest) (invoicedomain.Invoice, error) {
	return s.transition(ctx, a, id, transitionOp{
		action:      invoicedomain.ActionMarkPaid,
		authzAction: authorization.ActionInvoicePay,
		auditAction: auditdomain.ActionInvoicePaid,
		comment:     req.Comment,
		apply: func(invoice *invoicedomain.Invoice) {
			paid := s.clock.Now()
			if req.PaymentDate != nil {
				paid = req.PaymentDate.UTC()
			}
			invoice.PaymentDate = &paid
		},
	})
}

type transitionOp struct {
	action      invoicedomain.Action
	authzAction string
	auditAction string
	comment     string
	apply       func(*invoicedomain.Invoice)
}

// transition runs a plain status change: status, history row and audit entry
// commit together.
func (s *Service) transition(ctx context.Context, a actor.Actor, id snowflake.ID, op transitionOp) (result invoicedomain.Invoice, err error) {
	ctx, _ = correlation.Ensure(ctx)
	ctx, span := s.tracer.Start(ctx, "invoice."+string(op.action), trace.WithAttributes(attribute.String("invoice.id", id.String())))
	defer func() { tracing.End(span, err) }()
	var to invoicedomain.Status
	defer func() { s.metrics.RecordTransition(ctx, string(op.action), string(to), outcome(err)) }()

	if err := s.authz.Authorize(ctx, a, authorization.ObjectInvoice, op.authzAction); err != nil {
		return invoicedomain.Invoice{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.load(ctx, tx, a, id, true)
		if err != nil {
			return err
		}
		to, err = invoicedomain.NextStatus(invoice.Status, op.action)
		if err != nil {
			return err
		}

		from := invoice.Status
		now := s.clock.Now()
		invoice.Status = to
		invoice.UpdatedAt = now
		if op.apply != nil {
			op.apply(invoice)
		}
		if err := s.repo.Save(ctx, tx, invoice); err != nil {
			return err
		}

		if err := s.appendHistory(ctx, tx, a, invoice.ID, from, to, op.comment, now); err != nil {
			return err
		}
		metadata := map[string]any{"previous_status": string(from)}
		if c := strings.TrimSpace(op.comment); c != "" {
			metadata["comment"] = c
		}
		if err := s.auditSvc.Record(ctx, tx, auditdomain.Entry{
			Actor:      a,
			Action:     op.auditAction,
			TargetType: "invoice",
			TargetID:   invoice.ID.String(),
			Metadata:   amountMetadata(invoice, metadata),
		}); err != nil {
			return err
		}

		result = *invoice
		return nil
	})
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return result, nil
}

func (s *Service) appendHistory(ctx context.Context, tx *gorm.DB, a actor.Actor, invoiceID snowflake.ID, from, to invoicedomain.Status, comment string, now time.Time) error {
	var note *string
	if c := strings.TrimSpace(comment); c != "" {
		note = &c
	}
	return s.repo.AppendHistory(ctx, tx, &invoicedomain.InvoiceStatusHistory{
		ID:         s.genID.Generate(),
		InvoiceID:  invoiceID,
		FromStatus: from,
		ToStatus:   to,
		ChangedBy:  a.UserID,
		Comment:    note,
		CreatedAt:  now,
	})
}
