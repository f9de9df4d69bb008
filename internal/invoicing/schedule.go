// Package invoicing expands a policy's billing schedule into the invoices that
// cover one policy year.
package invoicing

import (
	"time"

	"github.com/google/uuid"

	"github.com/nurpe/policy-billing/internal/model"
)

const (
	dueAfterMonths  = 1
	cancelGraceDays = 14
)

// Terms describes how a schedule splits the annual premium.
type Terms struct {
	Installments   int
	IntervalMonths int
}

// TermsFor is the single mapping from schedule to installment terms. Every
// value returned by model.BillingSchedules must have a case here.
func TermsFor(schedule model.BillingSchedule) (Terms, bool) {
	switch schedule {
	case model.BillingScheduleAnnual:
		return Terms{Installments: 1, IntervalMonths: 12}, true
	case model.BillingScheduleTwoPay:
		return Terms{Installments: 2, IntervalMonths: 6}, true
	case model.BillingScheduleQuarterly:
		return Terms{Installments: 4, IntervalMonths: 3}, true
	case model.BillingScheduleMonthly:
		return Terms{Installments: 12, IntervalMonths: 1}, true
	default:
		return Terms{}, false
	}
}

// Generate builds the invoices for one policy year, tagged with generation.
// An unknown schedule yields a single invoice for the full premium and
// recognized == false.
//
// Installment amounts use truncating division, so the batch can sum to up to
// Installments-1 units less than the annual premium.
func Generate(policy model.Policy, generation int) (invoices []model.Invoice, recognized bool) {
	terms, recognized := TermsFor(policy.BillingSchedule)
	if !recognized {
		terms = Terms{Installments: 1, IntervalMonths: 12}
	}

	effective := model.DateOf(policy.EffectiveDate)
	amount := policy.AnnualPremium / int64(terms.Installments)

	invoices = make([]model.Invoice, 0, terms.Installments)
	for i := 0; i < terms.Installments; i++ {
		billDate := AddMonths(effective, i*terms.IntervalMonths)
		invoices = append(invoices, model.Invoice{
			ID:         uuid.New(),
			PolicyID:   policy.ID,
			BillDate:   billDate,
			DueDate:    DueDate(billDate),
			CancelDate: CancelDate(billDate),
			AmountDue:  amount,
			State:      model.InvoiceStateActive,
			Generation: generation,
		})
	}
	return invoices, recognized
}

func DueDate(billDate time.Time) time.Time {
	return AddMonths(billDate, dueAfterMonths)
}

func CancelDate(billDate time.Time) time.Time {
	return AddMonths(billDate, dueAfterMonths).AddDate(0, 0, cancelGraceDays)
}

// AddMonths moves t by n calendar months, clamping the day to the end of the
// target month (Jan 31 + 1 month = Feb 28).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}
