package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/policy-billing/internal/model"
	"github.com/nurpe/policy-billing/internal/repository"
)

// PolicyAccount is the accounting session for one policy. It is meant to be
// used within a single request and then dropped.
type PolicyAccount struct {
	svc    *AccountingService
	policy *model.Policy
}

func (a *PolicyAccount) Policy() model.Policy {
	return *a.policy
}

// Balance returns what is owed as of asOf (today when zero). Negative means
// the policy is overpaid.
func (a *PolicyAccount) Balance(ctx context.Context, asOf time.Time) (int64, error) {
	asOf = a.svc.dateOrToday(asOf)

	var balance int64
	err := a.svc.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		balance, err = a.balance(ctx, tx, asOf)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (a *PolicyAccount) balance(ctx context.Context, store repository.Store, asOf time.Time) (int64, error) {
	invoices, err := store.ListInvoices(ctx, model.InvoiceFilter{
		PolicyID:         a.policy.ID,
		BilledOnOrBefore: &asOf,
	})
	if err != nil {
		return 0, fmt.Errorf("list invoices: %w", err)
	}

	payments, err := store.ListPayments(ctx, model.PaymentFilter{
		PolicyID:             a.policy.ID,
		TransactedOnOrBefore: &asOf,
	})
	if err != nil {
		return 0, fmt.Errorf("list payments: %w", err)
	}

	return outstanding(invoices, payments, asOf), nil
}

type PaymentInput struct {
	// ContactID defaults to the policy's named insured.
	ContactID *uuid.UUID
	// Date defaults to today.
	Date      time.Time
	Amount    int64
	Reference *string
}

// RecordPayment credits the policy. The amount is taken as given: overpayment,
// zero and negative amounts are all recorded.
func (a *PolicyAccount) RecordPayment(ctx context.Context, input PaymentInput) (*model.Payment, error) {
	contactID := input.ContactID
	if contactID == nil && a.policy.NamedInsuredID != nil {
		insured := *a.policy.NamedInsuredID
		contactID = &insured
	}

	payment := &model.Payment{
		PolicyID:        a.policy.ID,
		ContactID:       contactID,
		AmountPaid:      input.Amount,
		TransactionDate: a.svc.dateOrToday(input.Date),
		Reference:       input.Reference,
	}

	err := a.svc.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return storeWriteError("create payment", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.svc.metrics.RecordPayment()
	a.svc.log.Info().
		Str("policy_number", a.policy.PolicyNumber).
		Int64("amount", payment.AmountPaid).
		Str("transaction_date", model.FormatDate(payment.TransactionDate)).
		Msg("payment recorded")
	return payment, nil
}

// CancellationPending reports whether an invoice is past its due date but not
// yet at its cancel date while the policy still owes money.
func (a *PolicyAccount) CancellationPending(ctx context.Context, asOf time.Time) (bool, error) {
	asOf = a.svc.dateOrToday(asOf)

	var pending bool
	err := a.svc.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		pending, err = a.cancellationPending(ctx, tx, asOf)
		return err
	})
	if err != nil {
		return false, err
	}
	return pending, nil
}

// The balance is policy-wide, so one overdue invoice is as good as all of
// them: the balance is computed at most once.
func (a *PolicyAccount) cancellationPending(ctx context.Context, store repository.Store, asOf time.Time) (bool, error) {
	overdue, err := store.ListInvoices(ctx, model.InvoiceFilter{
		PolicyID:      a.policy.ID,
		DueOnOrBefore: &asOf,
		CancelAfter:   &asOf,
	})
	if err != nil {
		return false, fmt.Errorf("list overdue invoices: %w", err)
	}
	if len(overdue) == 0 {
		return false, nil
	}

	balance, err := a.balance(ctx, store, asOf)
	if err != nil {
		return false, err
	}
	return balance != 0, nil
}

// EvaluateCancellation cancels the policy when an invoice whose cancel date is
// on or before asOf was still unpaid on that cancel date. Candidates are
// checked in bill-date order and the first unpaid one decides. The cancel
// date recorded on the policy is today, not the invoice's cancel date.
// Policies that are already canceled are left as they are.
func (a *PolicyAccount) EvaluateCancellation(ctx context.Context, asOf time.Time, reason *string) (bool, error) {
	asOf = a.svc.dateOrToday(asOf)

	var (
		updated *model.Policy
		lapsed  *model.Invoice
	)
	err := a.svc.store.Transaction(ctx, func(tx repository.Store) error {
		current, err := findPolicy(ctx, tx, model.PolicyFilter{ID: &a.policy.ID})
		if err != nil {
			return err
		}
		if current.IsCanceled() {
			updated = current
			return nil
		}

		candidates, err := tx.ListInvoices(ctx, model.InvoiceFilter{
			PolicyID:         current.ID,
			CancelOnOrBefore: &asOf,
		})
		if err != nil {
			return fmt.Errorf("list cancellable invoices: %w", err)
		}

		lapsed, err = firstMatch(candidates, func(invoice model.Invoice) (bool, error) {
			balance, err := a.balance(ctx, tx, invoice.CancelDate)
			return balance != 0, err
		})
		if err != nil || lapsed == nil {
			updated = current
			return err
		}

		today := a.svc.today()
		current.Status = model.PolicyStatusCanceled
		current.CancelDate = &today
		current.CancelReason = reason
		if err := tx.SavePolicy(ctx, current); err != nil {
			return storeWriteError("save policy", err)
		}
		updated = current
		return nil
	})
	if err != nil {
		return false, err
	}

	a.policy = updated
	if lapsed == nil {
		return false, nil
	}

	a.svc.metrics.RecordCancellation()
	a.svc.log.Info().
		Str("policy_number", updated.PolicyNumber).
		Str("invoice_cancel_date", model.FormatDate(lapsed.CancelDate)).
		Str("as_of", model.FormatDate(asOf)).
		Msg("policy canceled for non-payment")
	return true, nil
}

// ChangeBillingSchedule switches the schedule and rebills the policy. Old
// invoices are superseded, not removed, and payments carry over untouched.
func (a *PolicyAccount) ChangeBillingSchedule(ctx context.Context, schedule model.BillingSchedule) error {
	var (
		updated *model.Policy
		run     *invoiceRun
	)
	err := a.svc.store.Transaction(ctx, func(tx repository.Store) error {
		current, err := findPolicy(ctx, tx, model.PolicyFilter{ID: &a.policy.ID})
		if err != nil {
			return err
		}

		current.BillingSchedule = schedule
		if err := tx.SavePolicy(ctx, current); err != nil {
			return storeWriteError("save policy", err)
		}

		run, err = a.svc.makeInvoices(ctx, tx, current)
		if err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		return err
	}

	a.policy = updated
	a.svc.reportInvoiceRun(updated, run)
	return nil
}

type InvoiceQuery struct {
	IncludeSuperseded bool
	// BilledOnOrBefore bounds the bill date; zero means no bound.
	BilledOnOrBefore time.Time
}

// Invoices lists the policy's invoices batch by batch.
func (a *PolicyAccount) Invoices(ctx context.Context, query InvoiceQuery) ([]model.Invoice, error) {
	filter := model.InvoiceFilter{
		PolicyID:          a.policy.ID,
		IncludeSuperseded: query.IncludeSuperseded,
		Order:             model.InvoiceOrderGeneration,
	}
	if !query.BilledOnOrBefore.IsZero() {
		billed := model.DateOf(query.BilledOnOrBefore)
		filter.BilledOnOrBefore = &billed
	}

	invoices, err := a.svc.store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

// Payments lists payments made on or before asOf; zero means all of them.
func (a *PolicyAccount) Payments(ctx context.Context, asOf time.Time) ([]model.Payment, error) {
	filter := model.PaymentFilter{PolicyID: a.policy.ID}
	if !asOf.IsZero() {
		bound := model.DateOf(asOf)
		filter.TransactedOnOrBefore = &bound
	}

	payments, err := a.svc.store.ListPayments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
