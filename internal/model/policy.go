package model

import (
	"time"

	"github.com/google/uuid"
)

type PolicyStatus string

const (
	PolicyStatusActive   PolicyStatus = "Active"
	PolicyStatusCanceled PolicyStatus = "Canceled"
)

// BillingSchedule controls how the annual premium is split into invoices.
type BillingSchedule string

const (
	BillingScheduleAnnual    BillingSchedule = "Annual"
	BillingScheduleTwoPay    BillingSchedule = "Two-Pay"
	BillingScheduleQuarterly BillingSchedule = "Quarterly"
	BillingScheduleMonthly   BillingSchedule = "Monthly"
)

// BillingSchedules lists every schedule the invoicing package must know about.
func BillingSchedules() []BillingSchedule {
	return []BillingSchedule{
		BillingScheduleAnnual,
		BillingScheduleTwoPay,
		BillingScheduleQuarterly,
		BillingScheduleMonthly,
	}
}

func (s BillingSchedule) Valid() bool {
	for _, known := range BillingSchedules() {
		if s == known {
			return true
		}
	}
	return false
}

type Policy struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PolicyNumber    string          `gorm:"type:varchar(128);uniqueIndex;not null"`
	EffectiveDate   time.Time       `gorm:"type:date;not null"`
	AnnualPremium   int64           `gorm:"not null"`
	BillingSchedule BillingSchedule `gorm:"type:varchar(32);not null"`
	NamedInsuredID  *uuid.UUID      `gorm:"type:uuid"`
	AgentID         *uuid.UUID      `gorm:"type:uuid"`
	Status          PolicyStatus    `gorm:"type:varchar(16);not null"`
	CancelDate      *time.Time      `gorm:"type:date"`
	CancelReason    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewPolicy returns an active, annually billed policy.
func NewPolicy(number string, effective time.Time, annualPremium int64) Policy {
	return Policy{
		PolicyNumber:    number,
		EffectiveDate:   DateOf(effective),
		AnnualPremium:   annualPremium,
		BillingSchedule: BillingScheduleAnnual,
		Status:          PolicyStatusActive,
	}
}

func (p Policy) IsCanceled() bool {
	return p.Status == PolicyStatusCanceled
}
