package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS contacts (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		role VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS policies (
		id UUID PRIMARY KEY,
		policy_number VARCHAR(128) NOT NULL,
		effective_date DATE NOT NULL,
		annual_premium BIGINT NOT NULL,
		billing_schedule VARCHAR(32) NOT NULL DEFAULT 'Annual',
		named_insured_id UUID REFERENCES contacts(id),
		agent_id UUID REFERENCES contacts(id),
		status VARCHAR(16) NOT NULL DEFAULT 'Active',
		cancel_date DATE,
		cancel_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_policies_policy_number ON policies (policy_number);`,
	`CREATE INDEX IF NOT EXISTS idx_policies_status ON policies (status);`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id UUID PRIMARY KEY,
		policy_id UUID NOT NULL REFERENCES policies(id) ON DELETE CASCADE,
		bill_date DATE NOT NULL,
		due_date DATE NOT NULL,
		cancel_date DATE NOT NULL,
		amount_due BIGINT NOT NULL,
		state VARCHAR(16) NOT NULL DEFAULT 'active',
		generation INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_invoices_state CHECK (state IN ('active', 'superseded'))
	);`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_policy_state_bill ON invoices (policy_id, state, bill_date);`,
	`CREATE INDEX IF NOT EXISTS idx_invoices_policy_generation ON invoices (policy_id, generation);`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY,
		policy_id UUID NOT NULL REFERENCES policies(id) ON DELETE CASCADE,
		contact_id UUID REFERENCES contacts(id),
		amount_paid BIGINT NOT NULL,
		transaction_date DATE NOT NULL,
		reference VARCHAR(128),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_payments_policy_date ON payments (policy_id, transaction_date);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_payments_reference ON payments (reference) WHERE reference IS NOT NULL;`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
