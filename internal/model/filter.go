package model

import (
	"time"

	"github.com/google/uuid"
)

type PolicyFilter struct {
	ID           *uuid.UUID
	PolicyNumber string
	Status       PolicyStatus
}

type InvoiceOrder int

const (
	// InvoiceOrderBillDate orders by bill date, then generation.
	InvoiceOrderBillDate InvoiceOrder = iota
	// InvoiceOrderGeneration orders batch by batch, each batch by bill date.
	InvoiceOrderGeneration
)

// InvoiceFilter selects a policy's invoices. Superseded invoices are excluded
// unless IncludeSuperseded is set; every date bound is inclusive except
// CancelAfter.
type InvoiceFilter struct {
	PolicyID          uuid.UUID
	IncludeSuperseded bool
	BilledOnOrBefore  *time.Time
	DueOnOrBefore     *time.Time
	CancelOnOrBefore  *time.Time
	CancelAfter       *time.Time
	Order             InvoiceOrder
}

type PaymentFilter struct {
	PolicyID             uuid.UUID
	TransactedOnOrBefore *time.Time
}
