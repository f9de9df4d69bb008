package model

import "time"

// PolicyStatement is the read model rendered by the API and the exports.
type PolicyStatement struct {
	Policy              Policy
	NamedInsured        *Contact
	Agent               *Contact
	AsOf                time.Time
	Balance             int64
	CancellationPending bool
	Invoices            []Invoice
	Payments            []Payment
}

func (s PolicyStatement) TotalBilled() int64 {
	var total int64
	for _, invoice := range s.Invoices {
		if !invoice.Deleted() {
			total += invoice.AmountDue
		}
	}
	return total
}

func (s PolicyStatement) TotalPaid() int64 {
	var total int64
	for _, payment := range s.Payments {
		total += payment.AmountPaid
	}
	return total
}
