package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nurpe/policy-billing/internal/invoicing"
	"github.com/nurpe/policy-billing/internal/metrics"
	"github.com/nurpe/policy-billing/internal/model"
	"github.com/nurpe/policy-billing/internal/repository"
)

// AccountingService opens per-policy accounting sessions. It keeps no policy
// state between calls; every Open reads the store again.
type AccountingService struct {
	store   repository.Store
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*AccountingService)

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *AccountingService) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AccountingService) {
		s.metrics = m
	}
}

func NewAccountingService(store repository.Store, log zerolog.Logger, opts ...Option) *AccountingService {
	s := &AccountingService{
		store: store,
		log:   log.With().Str("component", "accounting").Logger(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open loads the policy and, when it has no active invoices yet, bills it
// according to its schedule before returning the session.
func (s *AccountingService) Open(ctx context.Context, policyID uuid.UUID) (*PolicyAccount, error) {
	var (
		policy *model.Policy
		run    *invoiceRun
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		found, err := findPolicy(ctx, tx, model.PolicyFilter{ID: &policyID})
		if err != nil {
			return err
		}

		active, err := tx.ListInvoices(ctx, model.InvoiceFilter{PolicyID: found.ID})
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}
		if len(active) == 0 {
			run, err = s.makeInvoices(ctx, tx, found)
			if err != nil {
				return err
			}
		}

		policy = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.reportInvoiceRun(policy, run)
	return &PolicyAccount{svc: s, policy: policy}, nil
}

// Lookup resolves a policy number.
func (s *AccountingService) Lookup(ctx context.Context, policyNumber string) (*model.Policy, error) {
	policyNumber = strings.TrimSpace(policyNumber)
	if policyNumber == "" {
		return nil, fmt.Errorf("%w: policy number is required", ErrInvalidInput)
	}
	return findPolicy(ctx, s.store, model.PolicyFilter{PolicyNumber: policyNumber})
}

func (s *AccountingService) ActivePolicies(ctx context.Context) ([]model.Policy, error) {
	policies, err := s.store.ListPolicies(ctx, model.PolicyFilter{Status: model.PolicyStatusActive})
	if err != nil {
		return nil, fmt.Errorf("list active policies: %w", err)
	}
	return policies, nil
}

// Statement assembles everything a caller needs to display the policy as of
// asOf: balance, pending flag, invoices billed so far (superseded included)
// and payments made so far.
func (s *AccountingService) Statement(ctx context.Context, policyID uuid.UUID, asOf time.Time) (*model.PolicyStatement, error) {
	account, err := s.Open(ctx, policyID)
	if err != nil {
		return nil, err
	}

	asOf = s.dateOrToday(asOf)
	policy := account.Policy()
	statement := &model.PolicyStatement{Policy: policy, AsOf: asOf}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		if statement.NamedInsured, err = findContact(ctx, tx, policy.NamedInsuredID); err != nil {
			return err
		}
		if statement.Agent, err = findContact(ctx, tx, policy.AgentID); err != nil {
			return err
		}
		if statement.Balance, err = account.balance(ctx, tx, asOf); err != nil {
			return err
		}
		if statement.CancellationPending, err = account.cancellationPending(ctx, tx, asOf); err != nil {
			return err
		}

		statement.Invoices, err = tx.ListInvoices(ctx, model.InvoiceFilter{
			PolicyID:          policy.ID,
			IncludeSuperseded: true,
			BilledOnOrBefore:  &asOf,
			Order:             model.InvoiceOrderGeneration,
		})
		if err != nil {
			return fmt.Errorf("list invoices: %w", err)
		}

		statement.Payments, err = tx.ListPayments(ctx, model.PaymentFilter{
			PolicyID:             policy.ID,
			TransactedOnOrBefore: &asOf,
		})
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return statement, nil
}

type invoiceRun struct {
	invoices   []model.Invoice
	superseded int64
	recognized bool
}

// makeInvoices supersedes the policy's active invoices and writes a fresh
// generation for its current schedule. Callers run it inside a transaction.
func (s *AccountingService) makeInvoices(ctx context.Context, tx repository.Store, policy *model.Policy) (*invoiceRun, error) {
	superseded, err := tx.SupersedeInvoices(ctx, policy.ID)
	if err != nil {
		return nil, fmt.Errorf("supersede invoices: %w", err)
	}

	generation, err := tx.NextInvoiceGeneration(ctx, policy.ID)
	if err != nil {
		return nil, fmt.Errorf("next invoice generation: %w", err)
	}

	invoices, recognized := invoicing.Generate(*policy, generation)
	if err := tx.CreateInvoices(ctx, invoices); err != nil {
		return nil, storeWriteError("create invoices", err)
	}

	return &invoiceRun{invoices: invoices, superseded: superseded, recognized: recognized}, nil
}

func (s *AccountingService) reportInvoiceRun(policy *model.Policy, run *invoiceRun) {
	if run == nil {
		return
	}
	if !run.recognized {
		s.log.Warn().
			Str("policy_number", policy.PolicyNumber).
			Str("billing_schedule", string(policy.BillingSchedule)).
			Msg("unrecognized billing schedule, billing the full premium in one invoice")
	}
	s.log.Debug().
		Str("policy_number", policy.PolicyNumber).
		Str("billing_schedule", string(policy.BillingSchedule)).
		Int("invoices", len(run.invoices)).
		Int64("superseded", run.superseded).
		Msg("invoices generated")
	s.metrics.RecordInvoices(policy.BillingSchedule, len(run.invoices), run.recognized)
}

func (s *AccountingService) today() time.Time {
	return model.DateOf(s.now())
}

func (s *AccountingService) dateOrToday(t time.Time) time.Time {
	if t.IsZero() {
		return s.today()
	}
	return model.DateOf(t)
}

func findPolicy(ctx context.Context, store repository.Store, filter model.PolicyFilter) (*model.Policy, error) {
	policy, err := store.FindPolicy(ctx, filter)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find policy: %w", err)
	}
	return policy, nil
}

// findContact tolerates dangling references: a missing contact yields nil.
func findContact(ctx context.Context, store repository.Store, id *uuid.UUID) (*model.Contact, error) {
	if id == nil {
		return nil, nil
	}
	contact, err := store.FindContact(ctx, *id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find contact: %w", err)
	}
	return contact, nil
}

func storeWriteError(op string, err error) error {
	if repository.IsConstraintViolation(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrConstraintViolation, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
