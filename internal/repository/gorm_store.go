package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/policy-billing/internal/model"
)

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func (s *GormStore) FindPolicy(ctx context.Context, filter model.PolicyFilter) (*model.Policy, error) {
	if filter.ID == nil && filter.PolicyNumber == "" {
		return nil, fmt.Errorf("find policy: id or policy number is required")
	}

	var policy model.Policy
	if err := s.policyQuery(ctx, filter).First(&policy).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

func (s *GormStore) ListPolicies(ctx context.Context, filter model.PolicyFilter) ([]model.Policy, error) {
	var policies []model.Policy
	if err := s.policyQuery(ctx, filter).Order("policy_number ASC").Find(&policies).Error; err != nil {
		return nil, err
	}
	return policies, nil
}

func (s *GormStore) policyQuery(ctx context.Context, filter model.PolicyFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&model.Policy{})
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.PolicyNumber != "" {
		query = query.Where("policy_number = ?", filter.PolicyNumber)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}

func (s *GormStore) CreatePolicy(ctx context.Context, policy *model.Policy) error {
	if policy.ID == uuid.Nil {
		policy.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(policy).Error
}

func (s *GormStore) SavePolicy(ctx context.Context, policy *model.Policy) error {
	return s.db.WithContext(ctx).Save(policy).Error
}

func (s *GormStore) FindContact(ctx context.Context, id uuid.UUID) (*model.Contact, error) {
	var contact model.Contact
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&contact).Error; err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *GormStore) CreateContact(ctx context.Context, contact *model.Contact) error {
	if contact.ID == uuid.Nil {
		contact.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(contact).Error
}

func (s *GormStore) ListInvoices(ctx context.Context, filter model.InvoiceFilter) ([]model.Invoice, error) {
	query := s.db.WithContext(ctx).Where("policy_id = ?", filter.PolicyID)
	if !filter.IncludeSuperseded {
		query = query.Where("state = ?", model.InvoiceStateActive)
	}
	if filter.BilledOnOrBefore != nil {
		query = query.Where("bill_date <= ?", model.DateOf(*filter.BilledOnOrBefore))
	}
	if filter.DueOnOrBefore != nil {
		query = query.Where("due_date <= ?", model.DateOf(*filter.DueOnOrBefore))
	}
	if filter.CancelOnOrBefore != nil {
		query = query.Where("cancel_date <= ?", model.DateOf(*filter.CancelOnOrBefore))
	}
	if filter.CancelAfter != nil {
		query = query.Where("cancel_date > ?", model.DateOf(*filter.CancelAfter))
	}

	switch filter.Order {
	case model.InvoiceOrderGeneration:
		query = query.Order("generation ASC").Order("bill_date ASC")
	default:
		query = query.Order("bill_date ASC").Order("generation ASC")
	}

	var invoices []model.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *GormStore) NextInvoiceGeneration(ctx context.Context, policyID uuid.UUID) (int, error) {
	var current int
	err := s.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Select("COALESCE(MAX(generation), 0)").
		Where("policy_id = ?", policyID).
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

func (s *GormStore) SupersedeInvoices(ctx context.Context, policyID uuid.UUID) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("policy_id = ? AND state = ?", policyID, model.InvoiceStateActive).
		Update("state", model.InvoiceStateSuperseded)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (s *GormStore) CreateInvoices(ctx context.Context, invoices []model.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	for i := range invoices {
		if invoices[i].ID == uuid.Nil {
			invoices[i].ID = uuid.New()
		}
	}
	return s.db.WithContext(ctx).Create(&invoices).Error
}

func (s *GormStore) ListPayments(ctx context.Context, filter model.PaymentFilter) ([]model.Payment, error) {
	query := s.db.WithContext(ctx).Where("policy_id = ?", filter.PolicyID)
	if filter.TransactedOnOrBefore != nil {
		query = query.Where("transaction_date <= ?", model.DateOf(*filter.TransactedOnOrBefore))
	}

	var payments []model.Payment
	if err := query.Order("transaction_date ASC").Order("created_at ASC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (s *GormStore) CreatePayment(ctx context.Context, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return s.db.WithContext(ctx).Create(payment).Error
}
