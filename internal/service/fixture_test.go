package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/nurpe/policy-billing/internal/model"
	"github.com/nurpe/policy-billing/internal/repository"
	"github.com/nurpe/policy-billing/internal/repository/sqlitetest"
)

var testToday = date(2026, time.October, 17)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	db      *gorm.DB
	store   *repository.GormStore
	svc     *AccountingService
	insured model.Contact
	agent   model.Contact
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := sqlitetest.Open(t)
	store := repository.NewGormStore(db)
	f := &fixture{
		db:    db,
		store: store,
		svc: NewAccountingService(store, zerolog.Nop(), WithClock(func() time.Time {
			return testToday.Add(15 * time.Hour)
		})),
		insured: model.Contact{Name: "Test Insured", Role: model.ContactRoleNamedInsured},
		agent:   model.Contact{Name: "Test Agent", Role: model.ContactRoleAgent},
	}
	require.NoError(t, store.CreateContact(context.Background(), &f.insured))
	require.NoError(t, store.CreateContact(context.Background(), &f.agent))
	return f
}

func (f *fixture) policy(t *testing.T, premium int64, schedule model.BillingSchedule) *model.Policy {
	t.Helper()
	policy := model.NewPolicy("Test Policy", date(2015, time.January, 1), premium)
	policy.BillingSchedule = schedule
	policy.NamedInsuredID = &f.insured.ID
	policy.AgentID = &f.agent.ID
	require.NoError(t, f.store.CreatePolicy(context.Background(), &policy))
	return &policy
}

func (f *fixture) open(t *testing.T, premium int64, schedule model.BillingSchedule) *PolicyAccount {
	t.Helper()
	policy := f.policy(t, premium, schedule)
	account, err := f.svc.Open(context.Background(), policy.ID)
	require.NoError(t, err)
	return account
}

func (f *fixture) invoices(t *testing.T, account *PolicyAccount, includeSuperseded bool) []model.Invoice {
	t.Helper()
	invoices, err := account.Invoices(context.Background(), InvoiceQuery{IncludeSuperseded: includeSuperseded})
	require.NoError(t, err)
	return invoices
}

func (f *fixture) reload(t *testing.T, account *PolicyAccount) *model.Policy {
	t.Helper()
	id := account.Policy().ID
	policy, err := f.store.FindPolicy(context.Background(), model.PolicyFilter{ID: &id})
	require.NoError(t, err)
	return policy
}

func (f *fixture) pay(t *testing.T, account *PolicyAccount, on time.Time, amount int64) *model.Payment {
	t.Helper()
	payment, err := account.RecordPayment(context.Background(), PaymentInput{Date: on, Amount: amount})
	require.NoError(t, err)
	return payment
}

func (f *fixture) balance(t *testing.T, account *PolicyAccount, asOf time.Time) int64 {
	t.Helper()
	balance, err := account.Balance(context.Background(), asOf)
	require.NoError(t, err)
	return balance
}
