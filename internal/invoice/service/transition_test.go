package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiceflow/internal/actor"
	auditdomain "github.com/smallbiznis/invoiceflow/internal/audit/domain"
	companydomain "github.com/smallbiznis/invoiceflow/internal/company/domain"
	freelancerdomain "github.com/smallbiznis/invoiceflow/internal/freelancer/domain"
	invoicedomain "github.com/smallbiznis/invoiceflow/internal/invoice/domain"
	"github.com/smallbiznis/invoiceflow/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmAssignsSequentialNumbersPerMonth(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()

	first := env.createDraft(t, mayBilling)
	second := env.createDraft(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	june := env.createDraft(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))

	got := make([]string, 0, 3)
	for _, id := range []snowflake.ID{first.Invoice.ID, second.Invoice.ID, june.Invoice.ID} {
		inv, err := env.svc.Confirm(ctx, env.company, id)
		require.NoError(t, err)
		require.NotNil(t, inv.InvoiceNumber)
		got = append(got, *inv.InvoiceNumber)
	}
	assert.Equal(t, []string{"202405-0001", "202405-0002", "202406-0001"}, got)
}

func TestConfirmNumbersByCalendarMonthOfBillingDate(t *testing.T) {
	env := setupInvoiceTest(t)
	jst := time.FixedZone("JST", 9*60*60)
	draft := env.createDraft(t, time.Date(2024, 6, 1, 0, 0, 0, 0, jst))

	inv, err := env.svc.Confirm(context.Background(), env.company, draft.Invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, inv.InvoiceNumber)
	assert.Equal(t, "202406-0001", *inv.InvoiceNumber)
}

func TestConfirmFreezesSnapshots(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()
	draft := env.createDraft(t, mayBilling)

	confirmed, err := env.svc.Confirm(ctx, env.company, draft.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPendingApproval, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	assert.True(t, confirmed.ConfirmedAt.Equal(env.clock.Now()))

	require.NoError(t, env.db.Model(&freelancerdomain.Freelancer{}).
		Where("id = ?", env.freelancer.ID).
		Update("bank_name", "Resona").Error)
	require.NoError(t, env.db.Model(&companydomain.CompanyInfo{}).
		Where("1 = 1").
		Update("company_name", "Renamed KK").Error)

	detail, err := env.svc.Get(ctx, env.owner, draft.Invoice.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.FreelancerSnapshot)
	assert.Equal(t, "Mizuho", detail.FreelancerSnapshot.BankName)
	assert.Equal(t, "1234567", detail.FreelancerSnapshot.AccountNumber)
	require.NotNil(t, detail.CompanySnapshot)
	assert.Equal(t, "Acme KK", detail.CompanySnapshot.CompanyName)
}

func TestConfirmWithoutCompanyInfo(t *testing.T) {
	env := setupInvoiceTest(t)
	draft := env.createDraft(t, mayBilling)
	require.NoError(t, env.db.Where("1 = 1").Delete(&companydomain.CompanyInfo{}).Error)

	_, err := env.svc.Confirm(context.Background(), env.company, draft.Invoice.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)

	stored := env.reload(t, draft.Invoice.ID)
	assert.Equal(t, invoicedomain.StatusDraft, stored.Status)
	assert.Nil(t, stored.InvoiceNumber)
	assert.Equal(t, int64(0), env.count(t, &invoicedomain.InvoiceSequence{}, "1 = 1"))
}

func TestFullLifecycleRecordsHistory(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()
	draft := env.createDraft(t, mayBilling)

	_, err := env.svc.Confirm(ctx, env.company, draft.Invoice.ID)
	require.NoError(t, err)
	env.clock.Advance(time.Hour)

	approved, err := env.svc.Approve(ctx, env.owner, draft.Invoice.ID, invoicedomain.TransitionRequest{Comment: "looks right"})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusApproved, approved.Status)
	env.clock.Advance(time.Hour)

	paidOn := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	paid, err := env.svc.MarkPaid(ctx, env.company, draft.Invoice.ID, invoicedomain.MarkPaidRequest{PaymentDate: &paidOn})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentDate)
	assert.True(t, paid.PaymentDate.Equal(paidOn))
	assert.Equal(t, "202405-0001", *paid.InvoiceNumber)

	detail, err := env.svc.Get(ctx, env.company, draft.Invoice.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, 3)

	h := detail.History
	assert.Equal(t, invoicedomain.StatusDraft, h[0].FromStatus)
	assert.Equal(t, invoicedomain.StatusPendingApproval, h[0].ToStatus)
	assert.Equal(t, env.company.UserID, h[0].ChangedBy)
	require.NotNil(t, h[0].Comment)
	assert.Equal(t, confirmComment, *h[0].Comment)

	assert.Equal(t, invoicedomain.StatusApproved, h[1].ToStatus)
	assert.Equal(t, env.owner.UserID, h[1].ChangedBy)
	require.NotNil(t, h[1].Comment)
	assert.Equal(t, "looks right", *h[1].Comment)

	assert.Equal(t, invoicedomain.StatusApproved, h[2].FromStatus)
	assert.Equal(t, invoicedomain.StatusPaid, h[2].ToStatus)
	assert.Nil(t, h[2].Comment)

	assert.Equal(t, int64(1), env.count(t, &auditdomain.AuditLog{}, "action = ?", auditdomain.ActionInvoicePaid))
}

func TestMarkPaidDefaultsPaymentDateToNow(t *testing.T) {
	env := setupInvoiceTest(t)
	inv := env.seedInvoice(t, invoicedomain.StatusApproved, strPtr("202405-0001"))

	paid, err := env.svc.MarkPaid(context.Background(), env.company, inv.ID, invoicedomain.MarkPaidRequest{})
	require.NoError(t, err)
	require.NotNil(t, paid.PaymentDate)
	assert.True(t, paid.PaymentDate.Equal(env.clock.Now()))
}

func TestRejectedInvoiceCanBeEditedAndReconfirmed(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()
	draft := env.createDraft(t, mayBilling)

	_, err := env.svc.Confirm(ctx, env.company, draft.Invoice.ID)
	require.NoError(t, err)
	rejected, err := env.svc.Reject(ctx, env.owner, draft.Invoice.ID, invoicedomain.TransitionRequest{Comment: "wrong amount"})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusRejected, rejected.Status)

	updated, err := env.svc.Update(ctx, env.company, draft.Invoice.ID, invoicedomain.UpdateInvoiceRequest{
		Items: []invoicedomain.ItemInput{exclusiveItem("Design", 12000, 10, true)},
	})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusRejected, updated.Invoice.Status)
	assert.Equal(t, int64(12000), updated.Invoice.Subtotal)

	again, err := env.svc.Confirm(ctx, env.company, draft.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.StatusPendingApproval, again.Status)
	assert.Equal(t, "202405-0001", *again.InvoiceNumber)

	detail, err := env.svc.Get(ctx, env.company, draft.Invoice.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, 3)
	assert.Equal(t, invoicedomain.StatusRejected, detail.History[2].FromStatus)
	require.NotNil(t, detail.History[1].Comment)
	assert.Equal(t, "wrong amount", *detail.History[1].Comment)
}

func TestReconfirmAfterMonthChangeTakesNewNumber(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()
	draft := env.createDraft(t, mayBilling)

	_, err := env.svc.Confirm(ctx, env.company, draft.Invoice.ID)
	require.NoError(t, err)
	_, err = env.svc.Reject(ctx, env.company, draft.Invoice.ID, invoicedomain.TransitionRequest{})
	require.NoError(t, err)

	june := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	due := june.AddDate(0, 1, 0)
	_, err = env.svc.Update(ctx, env.company, draft.Invoice.ID, invoicedomain.UpdateInvoiceRequest{BillingDate: &june, PaymentDueDate: &due})
	require.NoError(t, err)

	again, err := env.svc.Confirm(ctx, env.company, draft.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "202406-0001", *again.InvoiceNumber)
}

func TestTransitionMatrix(t *testing.T) {
	ctx := context.Background()
	for _, from := range invoicedomain.Statuses {
		for _, action := range invoicedomain.Actions {
			t.Run(fmt.Sprintf("%s/%s", from, action), func(t *testing.T) {
				env := setupInvoiceTest(t)
				var number *string
				if from != invoicedomain.StatusDraft {
					number = strPtr("202405-0001")
				}
				inv := env.seedInvoice(t, from, number)

				err := env.apply(ctx, action, inv)

				want, allowed := invoicedomain.NextStatus(from, action)
				if allowed != nil {
					assert.ErrorIs(t, err, invoicedomain.ErrInvalidTransition)
					var terr *invoicedomain.InvalidTransitionError
					require.ErrorAs(t, err, &terr)
					assert.Equal(t, from, terr.From)
					assert.Equal(t, action, terr.Action)
					assert.Equal(t, from, env.reload(t, inv.ID).Status)
					assert.Equal(t, int64(0), env.count(t, &invoicedomain.InvoiceStatusHistory{}, "invoice_id = ?", inv.ID))
					return
				}
				require.NoError(t, err)
				if action == invoicedomain.ActionDelete {
					assert.Equal(t, int64(0), env.count(t, &invoicedomain.Invoice{}, "id = ?", inv.ID))
					return
				}
				assert.Equal(t, want, env.reload(t, inv.ID).Status)
			})
		}
	}
}

// apply runs action as the role that is permitted to perform it.
func (env invoiceTestEnv) apply(ctx context.Context, action invoicedomain.Action, inv invoicedomain.Invoice) error {
	var err error
	switch action {
	case invoicedomain.ActionUpdate:
		_, err = env.svc.Update(ctx, env.company, inv.ID, invoicedomain.UpdateInvoiceRequest{Notes: strPtr("edited")})
	case invoicedomain.ActionConfirm:
		_, err = env.svc.Confirm(ctx, env.company, inv.ID)
	case invoicedomain.ActionApprove:
		_, err = env.svc.Approve(ctx, env.owner, inv.ID, invoicedomain.TransitionRequest{})
	case invoicedomain.ActionReject:
		_, err = env.svc.Reject(ctx, env.owner, inv.ID, invoicedomain.TransitionRequest{})
	case invoicedomain.ActionMarkPaid:
		_, err = env.svc.MarkPaid(ctx, env.company, inv.ID, invoicedomain.MarkPaidRequest{})
	case invoicedomain.ActionDelete:
		err = env.svc.Delete(ctx, env.company, inv.ID)
	default:
		err = fmt.Errorf("unhandled action %s", action)
	}
	return err
}

func TestRoleAndOwnershipChecks(t *testing.T) {
	env := setupInvoiceTest(t)
	ctx := context.Background()
	pending := env.seedInvoice(t, invoicedomain.StatusPendingApproval, strPtr("202405-0001"))
	draft := env.seedInvoice(t, invoicedomain.StatusDraft, nil)

	tests := []struct {
		name string
		call func() error
	}{
		{"stranger approves", func() error {
			_, err := env.svc.Approve(ctx, env.stranger, pending.ID, invoicedomain.TransitionRequest{})
			return err
		}},
		{"stranger rejects", func() error {
			_, err := env.svc.Reject(ctx, env.stranger, pending.ID, invoicedomain.TransitionRequest{})
			return err
		}},
		{"company approves", func() error {
			_, err := env.svc.Approve(ctx, env.company, pending.ID, invoicedomain.TransitionRequest{})
			return err
		}},
		{"freelancer confirms", func() error {
			_, err := env.svc.Confirm(ctx, env.owner, draft.ID)
			return err
		}},
		{"freelancer updates", func() error {
			_, err := env.svc.Update(ctx, env.owner, draft.ID, invoicedomain.UpdateInvoiceRequest{Notes: strPtr("x")})
			return err
		}},
		{"freelancer deletes", func() error {
			return env.svc.Delete(ctx, env.owner, draft.ID)
		}},
		{"freelancer marks paid", func() error {
			_, err := env.svc.MarkPaid(ctx, env.owner, pending.ID, invoicedomain.MarkPaidRequest{})
			return err
		}},
		{"missing role", func() error {
			_, err := env.svc.Get(ctx, actor.Actor{UserID: 9}, draft.ID)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), invoicedomain.ErrForbidden)
		})
	}

	assert.Equal(t, invoicedomain.StatusPendingApproval, env.reload(t, pending.ID).Status)
	assert.Equal(t, invoicedomain.StatusDraft, env.reload(t, draft.ID).Status)
}

func TestNotFoundBeforeStateCheck(t *testing.T) {
	env := setupInvoiceTest(t)
	_, err := env.svc.Approve(context.Background(), env.owner, env.node.Generate(), invoicedomain.TransitionRequest{})
	assert.ErrorIs(t, err, invoicedomain.ErrNotFound)
}

func TestAuditFailureRollsBackConfirm(t *testing.T) {
	audit := &stubAudit{}
	audit.On("Record", auditdomain.ActionInvoiceCreated).Return(nil)
	audit.On("Record", auditdomain.ActionInvoiceConfirmed).Return(errors.New("audit store unavailable"))
	env := setupInvoiceTest(t, func(p *ServiceParam) { p.AuditSvc = audit })
	draft := env.createDraft(t, mayBilling)

	_, err := env.svc.Confirm(context.Background(), env.company, draft.Invoice.ID)
	require.Error(t, err)

	stored := env.reload(t, draft.Invoice.ID)
	assert.Equal(t, invoicedomain.StatusDraft, stored.Status)
	assert.Nil(t, stored.InvoiceNumber)
	assert.Nil(t, stored.ConfirmedAt)
	assert.Empty(t, stored.FreelancerSnapshot)
	assert.Equal(t, int64(0), env.count(t, &invoicedomain.InvoiceStatusHistory{}, "invoice_id = ?", stored.ID))
	assert.Equal(t, int64(0), env.count(t, &invoicedomain.InvoiceSequence{}, "1 = 1"))
	audit.AssertExpectations(t)
}

func TestConfirmRetriesOnNumberConflict(t *testing.T) {
	numbers := &stubAllocator{}
	numbers.On("Next", "202405").Return("202405-0001", nil).Once()
	numbers.On("Next", "202405").Return("202405-0002", nil).Once()
	env := setupInvoiceTest(t, func(p *ServiceParam) { p.Numbers = numbers })

	env.seedInvoice(t, invoicedomain.StatusPaid, strPtr("202405-0001"))
	draft := env.createDraft(t, mayBilling)

	confirmed, err := env.svc.Confirm(context.Background(), env.company, draft.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, "202405-0002", *confirmed.InvoiceNumber)
	numbers.AssertNumberOfCalls(t, "Next", 2)
	assert.Equal(t, int64(1), env.count(t, &invoicedomain.InvoiceStatusHistory{}, "invoice_id = ?", draft.Invoice.ID))
}

func TestConfirmGivesUpAfterMaxAttempts(t *testing.T) {
	numbers := &stubAllocator{}
	numbers.On("Next", "202405").Return("202405-0001", nil)
	env := setupInvoiceTest(t, func(p *ServiceParam) { p.Numbers = numbers })

	env.seedInvoice(t, invoicedomain.StatusPaid, strPtr("202405-0001"))
	draft := env.createDraft(t, mayBilling)

	_, err := env.svc.Confirm(context.Background(), env.company, draft.Invoice.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrNumberConflict)
	var conflict *invoicedomain.NumberConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "202405", conflict.Prefix)
	assert.Equal(t, 3, conflict.Attempts)
	numbers.AssertNumberOfCalls(t, "Next", 3)
	assert.Equal(t, invoicedomain.StatusDraft, env.reload(t, draft.Invoice.ID).Status)
}

func TestAllocatorErrorIsNotRetried(t *testing.T) {
	numbers := &stubAllocator{}
	numbers.On("Next", "202405").Return("", invoicedomain.ErrInvoiceNumberExhausted)
	env := setupInvoiceTest(t, func(p *ServiceParam) { p.Numbers = numbers })
	draft := env.createDraft(t, mayBilling)

	_, err := env.svc.Confirm(context.Background(), env.company, draft.Invoice.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNumberExhausted)
	assert.ErrorIs(t, err, invoicedomain.ErrNumberConflict)
	var conflict *invoicedomain.NumberConflictError
	assert.False(t, errors.As(err, &conflict))
	numbers.AssertNumberOfCalls(t, "Next", 1)
}

// The in-memory database holds a single connection, so these confirmations
// run one after another. This covers numbering under concurrent callers;
// the lost-race retry path is covered by TestConfirmRetriesOnNumberConflict.
func TestConcurrentConfirmsGetDistinctNumbers(t *testing.T) {
	env := setupInvoiceTest(t)
	const n = 5
	drafts := make([]invoicedomain.InvoiceDetail, n)
	for i := range drafts {
		drafts[i] = env.createDraft(t, mayBilling)
	}

	var wg sync.WaitGroup
	numbers := make([]string, n)
	errs := make([]error, n)
	for i := range drafts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inv, err := env.svc.Confirm(context.Background(), env.company, drafts[i].Invoice.ID)
			errs[i] = err
			if err == nil {
				numbers[i] = *inv.InvoiceNumber
			}
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	want := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		want = append(want, fmt.Sprintf("202405-%04d", i))
	}
	assert.ElementsMatch(t, want, numbers)
}

func TestConfirmTagsAuditWithCorrelationID(t *testing.T) {
	env := setupInvoiceTest(t)
	draft := env.createDraft(t, mayBilling)

	ctx := correlation.WithID(context.Background(), "req-7")
	_, err := env.svc.Confirm(ctx, env.company, draft.Invoice.ID)
	require.NoError(t, err)

	var entry auditdomain.AuditLog
	require.NoError(t, env.db.Where("action = ?", auditdomain.ActionInvoiceConfirmed).Take(&entry).Error)
	assert.Equal(t, "req-7", entry.Metadata["correlation_id"])
	assert.Equal(t, "202405-0001", entry.Metadata["invoice_number"])
}
