package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/policy-billing/internal/model"
)

func TestOpenBillsAnnualSchedule(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleAnnual)

	invoices := f.invoices(t, account, true)
	require.Len(t, invoices, 1)
	assert.Equal(t, int64(1200), invoices[0].AmountDue)
}

func TestOpenBillsMonthlySchedule(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleMonthly)

	invoices := f.invoices(t, account, true)
	require.Len(t, invoices, 12)
	for _, invoice := range invoices {
		assert.Equal(t, int64(1200/12), invoice.AmountDue)
	}
}

func TestOpenDoesNotRebillPolicyWithInvoices(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleMonthly)

	reopened, err := f.svc.Open(context.Background(), account.Policy().ID)
	require.NoError(t, err)

	invoices := f.invoices(t, reopened, true)
	assert.Len(t, invoices, 12)
	for _, invoice := range invoices {
		assert.Equal(t, 1, invoice.Generation)
	}
}

func TestOpenUnrecognizedScheduleBillsFullPremiumOnce(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, "Semi-Annual")

	invoices := f.invoices(t, account, true)
	require.Len(t, invoices, 1)
	assert.Equal(t, int64(1200), invoices[0].AmountDue)
	assert.Equal(t, "2015-01-01", model.FormatDate(invoices[0].BillDate))
}

func TestOpenUnknownPolicy(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Open(context.Background(), uuid.New())

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup(t *testing.T) {
	f := newFixture(t)
	policy := f.policy(t, 1200, model.BillingScheduleAnnual)

	found, err := f.svc.Lookup(context.Background(), "  Test Policy ")
	require.NoError(t, err)
	assert.Equal(t, policy.ID, found.ID)

	_, err = f.svc.Lookup(context.Background(), "Test Policyfoo")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Lookup(context.Background(), " ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBalance(t *testing.T) {
	testCases := []struct {
		name     string
		schedule model.BillingSchedule
		asOf     time.Time
		expected int64
	}{
		{name: "annual_on_effective_date", schedule: model.BillingScheduleAnnual, asOf: date(2015, time.January, 1), expected: 1200},
		{name: "quarterly_on_effective_date", schedule: model.BillingScheduleQuarterly, asOf: date(2015, time.January, 1), expected: 300},
		{name: "quarterly_on_last_installment_bill_date", schedule: model.BillingScheduleQuarterly, asOf: date(2015, time.October, 1), expected: 1200},
		{name: "quarterly_day_before_second_bill_date", schedule: model.BillingScheduleQuarterly, asOf: date(2015, time.March, 31), expected: 300},
		{name: "before_effective_date", schedule: model.BillingScheduleMonthly, asOf: date(2014, time.December, 31), expected: 0},
		{name: "zero_date_means_today", schedule: model.BillingScheduleMonthly, asOf: time.Time{}, expected: 1200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			account := f.open(t, 1200, tc.schedule)

			assert.Equal(t, tc.expected, f.balance(t, account, tc.asOf))
		})
	}
}

func TestBalanceQuarterlyWithFullPaymentOnSecondBillDate(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleQuarterly)
	invoices := f.invoices(t, account, false)

	f.pay(t, account, invoices[1].BillDate, 600)

	assert.Equal(t, int64(0), f.balance(t, account, invoices[1].BillDate))
	assert.Equal(t, int64(300), f.balance(t, account, invoices[0].BillDate))
}

func TestBalanceIgnoresSupersededInvoice(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleQuarterly)
	invoices := f.invoices(t, account, false)

	require.NoError(t, f.db.Model(&model.Invoice{}).
		Where("id = ?", invoices[0].ID).
		Update("state", model.InvoiceStateSuperseded).Error)

	assert.Equal(t, int64(900), f.balance(t, account, invoices[3].BillDate))
}

func TestBalanceMayGoNegative(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleAnnual)

	f.pay(t, account, date(2015, time.January, 1), 1500)

	assert.Equal(t, int64(-300), f.balance(t, account, date(2015, time.January, 1)))
}

func TestBalanceAfterPayingInvoiceOnDueDate(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleMonthly)
	invoices := f.invoices(t, account, false)

	f.pay(t, account, invoices[0].DueDate, invoices[0].AmountDue)

	dayAfter := invoices[0].DueDate.AddDate(0, 0, 1)
	var remaining int64
	for _, invoice := range invoices[1:] {
		if model.OnOrBefore(invoice.BillDate, dayAfter) {
			remaining += invoice.AmountDue
		}
	}
	assert.Equal(t, remaining, f.balance(t, account, dayAfter))
}

func TestRecordPayment(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleAnnual)

	payment, err := account.RecordPayment(context.Background(), PaymentInput{Amount: 365})
	require.NoError(t, err)

	assert.Equal(t, account.Policy().ID, payment.PolicyID)
	require.NotNil(t, payment.ContactID)
	assert.Equal(t, f.insured.ID, *payment.ContactID)
	assert.Equal(t, model.FormatDate(testToday), model.FormatDate(payment.TransactionDate))
	assert.Equal(t, int64(365), payment.AmountPaid)

	payments, err := account.Payments(context.Background(), time.Time{})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, payment.ID, payments[0].ID)
}

func TestRecordPaymentExplicitContact(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleAnnual)

	payment, err := account.RecordPayment(context.Background(), PaymentInput{
		ContactID: &f.agent.ID,
		Date:      date(2015, time.June, 18),
		Amount:    100,
	})
	require.NoError(t, err)

	require.NotNil(t, payment.ContactID)
	assert.Equal(t, f.agent.ID, *payment.ContactID)
	assert.Equal(t, "2015-06-18", model.FormatDate(payment.TransactionDate))
}

func TestRecordPaymentWithoutNamedInsured(t *testing.T) {
	f := newFixture(t)
	policy := model.NewPolicy("Policy One", date(2015, time.January, 1), 365)
	require.NoError(t, f.store.CreatePolicy(context.Background(), &policy))
	account, err := f.svc.Open(context.Background(), policy.ID)
	require.NoError(t, err)

	payment, err := account.RecordPayment(context.Background(), PaymentInput{Amount: 0})

	require.NoError(t, err)
	assert.Nil(t, payment.ContactID)
}

func TestRecordPaymentAcceptsNegativeAmount(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleAnnual)

	f.pay(t, account, date(2015, time.January, 1), -50)

	assert.Equal(t, int64(1250), f.balance(t, account, date(2015, time.January, 1)))
}

func TestRecordPaymentDuplicateReference(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleAnnual)
	reference := "CHK-1"

	_, err := account.RecordPayment(context.Background(), PaymentInput{Amount: 10, Reference: &reference})
	require.NoError(t, err)

	_, err = account.RecordPayment(context.Background(), PaymentInput{Amount: 10, Reference: &reference})
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestCancellationPending(t *testing.T) {
	t.Run("false_when_paid_in_full", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 400, model.BillingScheduleAnnual)
		invoices := f.invoices(t, account, false)
		limbo := invoices[0].DueDate.AddDate(0, 0, 1)
		for _, invoice := range invoices {
			f.pay(t, account, invoice.DueDate, invoice.AmountDue)
		}

		assert.Equal(t, int64(0), f.balance(t, account, limbo))
		pending, err := account.CancellationPending(context.Background(), limbo)
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("false_once_cancel_date_passed", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 400, model.BillingScheduleAnnual)
		invoices := f.invoices(t, account, false)
		alreadyCanceled := invoices[0].CancelDate.AddDate(0, 0, 1)

		assert.NotEqual(t, int64(0), f.balance(t, account, alreadyCanceled))
		pending, err := account.CancellationPending(context.Background(), alreadyCanceled)
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("false_before_due_date", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 400, model.BillingScheduleAnnual)

		pending, err := account.CancellationPending(context.Background(), date(2015, time.January, 15))
		require.NoError(t, err)
		assert.False(t, pending)
	})

	t.Run("true_when_one_invoice_not_paid", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 400, model.BillingScheduleAnnual)
		invoices := f.invoices(t, account, false)
		limbo := invoices[0].DueDate.AddDate(0, 0, 1)

		assert.NotEqual(t, int64(0), f.balance(t, account, limbo))
		pending, err := account.CancellationPending(context.Background(), limbo)
		require.NoError(t, err)
		assert.True(t, pending)
	})

	t.Run("true_when_many_invoices_not_paid", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 400, model.BillingScheduleQuarterly)
		invoices := f.invoices(t, account, false)
		limbo := invoices[0].DueDate.AddDate(0, 0, 1)

		pending, err := account.CancellationPending(context.Background(), limbo)
		require.NoError(t, err)
		assert.True(t, pending)
	})

	t.Run("true_on_due_date", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 400, model.BillingScheduleAnnual)
		invoices := f.invoices(t, account, false)

		pending, err := account.CancellationPending(context.Background(), invoices[0].DueDate)
		require.NoError(t, err)
		assert.True(t, pending)
	})
}

func TestEvaluateCancellation(t *testing.T) {
	t.Run("changes_status_and_stores_cancel_date_and_reason", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 1200, model.BillingScheduleAnnual)
		invoices := f.invoices(t, account, false)
		reason := "Because I said so"

		assert.Equal(t, model.PolicyStatusActive, account.Policy().Status)
		canceled, err := account.EvaluateCancellation(context.Background(), invoices[len(invoices)-1].CancelDate, &reason)
		require.NoError(t, err)
		assert.True(t, canceled)

		stored := f.reload(t, account)
		assert.Equal(t, model.PolicyStatusCanceled, stored.Status)
		require.NotNil(t, stored.CancelDate)
		assert.Equal(t, model.FormatDate(testToday), model.FormatDate(*stored.CancelDate))
		require.NotNil(t, stored.CancelReason)
		assert.Equal(t, reason, *stored.CancelReason)
		assert.Equal(t, model.PolicyStatusCanceled, account.Policy().Status)
	})

	t.Run("reason_is_optional", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 1200, model.BillingScheduleAnnual)

		canceled, err := account.EvaluateCancellation(context.Background(), date(2015, time.February, 15), nil)
		require.NoError(t, err)
		assert.True(t, canceled)
		assert.Nil(t, f.reload(t, account).CancelReason)
	})

	t.Run("no_invoice_reached_cancel_date", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 1200, model.BillingScheduleAnnual)

		canceled, err := account.EvaluateCancellation(context.Background(), date(2015, time.February, 14), nil)
		require.NoError(t, err)
		assert.False(t, canceled)

		stored := f.reload(t, account)
		assert.Equal(t, model.PolicyStatusActive, stored.Status)
		assert.Nil(t, stored.CancelDate)
	})

	t.Run("paid_before_cancel_date", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 1200, model.BillingScheduleAnnual)
		f.pay(t, account, date(2015, time.February, 1), 1200)

		canceled, err := account.EvaluateCancellation(context.Background(), date(2015, time.December, 31), nil)
		require.NoError(t, err)
		assert.False(t, canceled)
		assert.Equal(t, model.PolicyStatusActive, f.reload(t, account).Status)
	})

	t.Run("paid_after_cancel_date_still_cancels", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 1200, model.BillingScheduleQuarterly)
		f.pay(t, account, date(2015, time.February, 20), 300)

		canceled, err := account.EvaluateCancellation(context.Background(), date(2015, time.March, 1), nil)
		require.NoError(t, err)
		assert.True(t, canceled)
	})

	t.Run("later_unpaid_invoice_cancels", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 1200, model.BillingScheduleQuarterly)
		f.pay(t, account, date(2015, time.February, 1), 300)

		canceled, err := account.EvaluateCancellation(context.Background(), date(2015, time.May, 14), nil)
		require.NoError(t, err)
		assert.False(t, canceled)

		canceled, err = account.EvaluateCancellation(context.Background(), date(2015, time.May, 15), nil)
		require.NoError(t, err)
		assert.True(t, canceled)
	})

	t.Run("already_canceled_policy_is_untouched", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 1200, model.BillingScheduleAnnual)
		first, second := "first", "second"

		canceled, err := account.EvaluateCancellation(context.Background(), date(2015, time.March, 1), &first)
		require.NoError(t, err)
		require.True(t, canceled)

		f.svc.now = func() time.Time { return testToday.AddDate(0, 0, 3) }
		canceled, err = account.EvaluateCancellation(context.Background(), date(2015, time.March, 1), &second)
		require.NoError(t, err)
		assert.False(t, canceled)

		stored := f.reload(t, account)
		assert.Equal(t, first, *stored.CancelReason)
		assert.Equal(t, model.FormatDate(testToday), model.FormatDate(*stored.CancelDate))
	})
}

func TestChangeBillingSchedule(t *testing.T) {
	t.Run("quarterly_to_monthly", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 1200, model.BillingScheduleQuarterly)

		invoices := f.invoices(t, account, true)
		require.Len(t, invoices, 4)
		assert.Equal(t, int64(1200), f.balance(t, account, invoices[3].DueDate))

		payment := f.pay(t, account, invoices[0].DueDate, invoices[0].AmountDue)

		require.NoError(t, account.ChangeBillingSchedule(context.Background(), model.BillingScheduleMonthly))

		invoices = f.invoices(t, account, true)
		require.Len(t, invoices, 16)
		for i, invoice := range invoices {
			assert.Equal(t, i < 4, invoice.Deleted(), "invoice %d", i)
		}

		finalDueDate := invoices[len(invoices)-1].DueDate
		assert.Equal(t, "2016-01-01", model.FormatDate(finalDueDate))
		assert.Equal(t, int64(1200)-payment.AmountPaid, f.balance(t, account, finalDueDate))
		assert.Equal(t, model.BillingScheduleMonthly, account.Policy().BillingSchedule)
		assert.Equal(t, model.BillingScheduleMonthly, f.reload(t, account).BillingSchedule)
	})

	t.Run("annual_to_quarterly", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 1200, model.BillingScheduleAnnual)

		invoices := f.invoices(t, account, true)
		require.Len(t, invoices, 1)
		assert.Equal(t, int64(1200), f.balance(t, account, invoices[0].DueDate))

		payment := f.pay(t, account, invoices[0].DueDate, invoices[0].AmountDue/2)

		require.NoError(t, account.ChangeBillingSchedule(context.Background(), model.BillingScheduleQuarterly))

		invoices = f.invoices(t, account, true)
		require.Len(t, invoices, 5)
		for i, invoice := range invoices {
			assert.Equal(t, i < 1, invoice.Deleted(), "invoice %d", i)
			if i >= 1 {
				assert.Equal(t, 2, invoice.Generation)
			}
		}

		finalDueDate := invoices[len(invoices)-1].DueDate
		assert.Equal(t, int64(1200)-payment.AmountPaid, f.balance(t, account, finalDueDate))

		payments, err := account.Payments(context.Background(), time.Time{})
		require.NoError(t, err)
		assert.Len(t, payments, 1)
	})

	t.Run("reopening_after_change_keeps_new_generation", func(t *testing.T) {
		f := newFixture(t)
		account := f.open(t, 1200, model.BillingScheduleAnnual)
		require.NoError(t, account.ChangeBillingSchedule(context.Background(), model.BillingScheduleTwoPay))

		reopened, err := f.svc.Open(context.Background(), account.Policy().ID)
		require.NoError(t, err)

		active := f.invoices(t, reopened, false)
		require.Len(t, active, 2)
		assert.Equal(t, int64(600), active[0].AmountDue)
		assert.Equal(t, "2015-07-01", model.FormatDate(active[1].BillDate))
	})
}

func TestStatement(t *testing.T) {
	f := newFixture(t)
	policy := f.policy(t, 1200, model.BillingScheduleQuarterly)
	account, err := f.svc.Open(context.Background(), policy.ID)
	require.NoError(t, err)
	f.pay(t, account, date(2015, time.February, 1), 300)
	f.pay(t, account, date(2015, time.June, 1), 300)

	statement, err := f.svc.Statement(context.Background(), policy.ID, date(2015, time.May, 2))
	require.NoError(t, err)

	assert.Equal(t, policy.ID, statement.Policy.ID)
	assert.Equal(t, "2015-05-02", model.FormatDate(statement.AsOf))
	require.NotNil(t, statement.NamedInsured)
	assert.Equal(t, "Test Insured", statement.NamedInsured.Name)
	require.NotNil(t, statement.Agent)
	assert.Equal(t, "Test Agent", statement.Agent.Name)
	assert.Len(t, statement.Invoices, 2)
	assert.Len(t, statement.Payments, 1)
	assert.Equal(t, int64(300), statement.Balance)
	assert.True(t, statement.CancellationPending)
	assert.Equal(t, int64(600), statement.TotalBilled())
	assert.Equal(t, int64(300), statement.TotalPaid())
}

func TestStatementUnknownPolicy(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Statement(context.Background(), uuid.New(), time.Time{})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivePolicies(t *testing.T) {
	f := newFixture(t)
	account := f.open(t, 1200, model.BillingScheduleAnnual)
	_, err := account.EvaluateCancellation(context.Background(), date(2015, time.March, 1), nil)
	require.NoError(t, err)

	other := model.NewPolicy("Another Policy", date(2015, time.January, 1), 100)
	require.NoError(t, f.store.CreatePolicy(context.Background(), &other))

	active, err := f.svc.ActivePolicies(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Another Policy", active[0].PolicyNumber)
}
