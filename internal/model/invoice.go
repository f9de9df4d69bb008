package model

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceState is the soft-delete marker. Superseded invoices stay in storage
// but never count toward a balance.
type InvoiceState string

const (
	InvoiceStateActive     InvoiceState = "active"
	InvoiceStateSuperseded InvoiceState = "superseded"
)

type Invoice struct {
	ID         uuid.UUID    `gorm:"type:uuid;primaryKey"`
	PolicyID   uuid.UUID    `gorm:"type:uuid;not null;index:idx_invoices_policy_state_bill"`
	BillDate   time.Time    `gorm:"type:date;not null;index:idx_invoices_policy_state_bill"`
	DueDate    time.Time    `gorm:"type:date;not null"`
	CancelDate time.Time    `gorm:"type:date;not null"`
	AmountDue  int64        `gorm:"not null"`
	State      InvoiceState `gorm:"type:varchar(16);not null;index:idx_invoices_policy_state_bill"`
	Generation int          `gorm:"not null"`
	CreatedAt  time.Time
}

func (i Invoice) Deleted() bool {
	return i.State == InvoiceStateSuperseded
}
