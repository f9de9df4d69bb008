package model

import (
	"time"

	"github.com/google/uuid"
)

type ContactRole string

const (
	ContactRoleAgent        ContactRole = "Agent"
	ContactRoleNamedInsured ContactRole = "Named Insured"
)

type Contact struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Name      string      `gorm:"not null"`
	Role      ContactRole `gorm:"type:varchar(32);not null"`
	CreatedAt time.Time
}
