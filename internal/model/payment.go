package model

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PolicyID        uuid.UUID  `gorm:"type:uuid;not null;index:idx_payments_policy_date"`
	ContactID       *uuid.UUID `gorm:"type:uuid"`
	AmountPaid      int64      `gorm:"not null"`
	TransactionDate time.Time  `gorm:"type:date;not null;index:idx_payments_policy_date"`
	Reference       *string    `gorm:"type:varchar(128);uniqueIndex"`
	CreatedAt       time.Time
}
