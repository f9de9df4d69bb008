package repository

//go:generate mockgen -source=store.go -destination=mocks/store_mock.go -package=mocks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/nurpe/policy-billing/internal/model"
)

// Store is the ledger of contacts, policies, invoices and payments.
// Lookups that match nothing return gorm.ErrRecordNotFound.
type Store interface {
	// Transaction runs fn against a Store bound to a single transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	FindPolicy(ctx context.Context, filter model.PolicyFilter) (*model.Policy, error)
	ListPolicies(ctx context.Context, filter model.PolicyFilter) ([]model.Policy, error)
	CreatePolicy(ctx context.Context, policy *model.Policy) error
	SavePolicy(ctx context.Context, policy *model.Policy) error

	FindContact(ctx context.Context, id uuid.UUID) (*model.Contact, error)
	CreateContact(ctx context.Context, contact *model.Contact) error

	ListInvoices(ctx context.Context, filter model.InvoiceFilter) ([]model.Invoice, error)
	NextInvoiceGeneration(ctx context.Context, policyID uuid.UUID) (int, error)
	SupersedeInvoices(ctx context.Context, policyID uuid.UUID) (int64, error)
	CreateInvoices(ctx context.Context, invoices []model.Invoice) error

	ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error)
	CreatePayment(ctx context.Context, payment *model.Payment) error
}

// IsConstraintViolation reports whether err is an integrity constraint
// failure raised by the database.
func IsConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code)
}
