package service

import (
	"time"

	"github.com/nurpe/policy-billing/internal/model"
)

// outstanding is the amount due on active invoices billed by asOf minus the
// payments made by asOf. Inputs outside those bounds are ignored.
func outstanding(invoices []model.Invoice, payments []model.Payment, asOf time.Time) int64 {
	var due int64
	for _, invoice := range invoices {
		if invoice.Deleted() || !model.OnOrBefore(invoice.BillDate, asOf) {
			continue
		}
		due += invoice.AmountDue
	}
	for _, payment := range payments {
		if !model.OnOrBefore(payment.TransactionDate, asOf) {
			continue
		}
		due -= payment.AmountPaid
	}
	return due
}

// firstMatch evaluates match over candidates in order and stops at the first
// true. Candidates after the match are never evaluated.
func firstMatch(candidates []model.Invoice, match func(model.Invoice) (bool, error)) (*model.Invoice, error) {
	for i := range candidates {
		ok, err := match(candidates[i])
		if err != nil {
			return nil, err
		}
		if ok {
			return &candidates[i], nil
		}
	}
	return nil, nil
}
