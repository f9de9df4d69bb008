// Package seed loads the demo book of business: a handful of contacts and
// four policies with their first payments.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/policy-billing/internal/model"
	"github.com/nurpe/policy-billing/internal/repository"
	"github.com/nurpe/policy-billing/internal/service"
)

const markerPolicy = "Policy One"

type contactSeed struct {
	key  string
	name string
	role model.ContactRole
}

type policySeed struct {
	number    string
	effective time.Time
	premium   int64
	schedule  model.BillingSchedule
	insured   string
	agent     string
}

type paymentSeed struct {
	policy string
	payer  string
	date   time.Time
	amount int64
}

var contacts = []contactSeed{
	{key: "john-agent", name: "John Doe", role: model.ContactRoleAgent},
	{key: "john-insured", name: "John Doe", role: model.ContactRoleNamedInsured},
	{key: "bob", name: "Bob Smith", role: model.ContactRoleAgent},
	{key: "anna", name: "Anna White", role: model.ContactRoleNamedInsured},
	{key: "joe", name: "Joe Lee", role: model.ContactRoleAgent},
	{key: "ryan", name: "Ryan Bucket", role: model.ContactRoleNamedInsured},
}

var policies = []policySeed{
	{number: "Policy One", effective: day(2015, time.January, 1), premium: 365, schedule: model.BillingScheduleAnnual, insured: "john-insured", agent: "bob"},
	{number: "Policy Two", effective: day(2015, time.February, 1), premium: 1600, schedule: model.BillingScheduleQuarterly, insured: "anna", agent: "joe"},
	{number: "Policy Three", effective: day(2015, time.January, 1), premium: 1200, schedule: model.BillingScheduleMonthly, insured: "ryan", agent: "john-agent"},
	{number: "Policy Four", effective: day(2015, time.February, 1), premium: 500, schedule: model.BillingScheduleTwoPay, insured: "ryan", agent: "john-agent"},
}

var payments = []paymentSeed{
	{policy: "Policy Two", payer: "anna", date: day(2015, time.February, 1), amount: 400},
	{policy: "Policy One", payer: "john-insured", date: day(2015, time.June, 18), amount: 365},
}

// Run inserts the demo data unless it is already there. It reports whether
// anything was written.
func Run(ctx context.Context, store repository.Store, accounting *service.AccountingService) (bool, error) {
	_, err := store.FindPolicy(ctx, model.PolicyFilter{PolicyNumber: markerPolicy})
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, fmt.Errorf("check demo data: %w", err)
	}

	contactIDs := make(map[string]uuid.UUID, len(contacts))
	policyIDs := make(map[string]uuid.UUID, len(policies))

	err = store.Transaction(ctx, func(tx repository.Store) error {
		for _, entry := range contacts {
			contact := model.Contact{Name: entry.name, Role: entry.role}
			if err := tx.CreateContact(ctx, &contact); err != nil {
				return fmt.Errorf("create contact %s: %w", entry.name, err)
			}
			contactIDs[entry.key] = contact.ID
		}

		for _, entry := range policies {
			policy := model.NewPolicy(entry.number, entry.effective, entry.premium)
			policy.BillingSchedule = entry.schedule
			insured, agent := contactIDs[entry.insured], contactIDs[entry.agent]
			policy.NamedInsuredID = &insured
			policy.AgentID = &agent
			if err := tx.CreatePolicy(ctx, &policy); err != nil {
				return fmt.Errorf("create policy %s: %w", entry.number, err)
			}
			policyIDs[entry.number] = policy.ID
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	accounts := make(map[string]*service.PolicyAccount, len(policies))
	for _, entry := range policies {
		account, err := accounting.Open(ctx, policyIDs[entry.number])
		if err != nil {
			return false, fmt.Errorf("bill %s: %w", entry.number, err)
		}
		accounts[entry.number] = account
	}

	for _, entry := range payments {
		payer := contactIDs[entry.payer]
		_, err := accounts[entry.policy].RecordPayment(ctx, service.PaymentInput{
			ContactID: &payer,
			Date:      entry.date,
			Amount:    entry.amount,
		})
		if err != nil {
			return false, fmt.Errorf("record payment on %s: %w", entry.policy, err)
		}
	}
	return true, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
