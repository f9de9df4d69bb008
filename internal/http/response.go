package http

import (
	"github.com/google/uuid"

	"github.com/nurpe/policy-billing/internal/model"
)

type contactResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role string    `json:"role"`
}

type policyResponse struct {
	ID              uuid.UUID  `json:"id"`
	PolicyNumber    string     `json:"policy_number"`
	EffectiveDate   string     `json:"effective_date"`
	AnnualPremium   int64      `json:"annual_premium"`
	BillingSchedule string     `json:"billing_schedule"`
	Status          string     `json:"status"`
	CancelDate      *string    `json:"cancel_date,omitempty"`
	CancelReason    *string    `json:"cancel_reason,omitempty"`
	NamedInsuredID  *uuid.UUID `json:"named_insured_id,omitempty"`
	AgentID         *uuid.UUID `json:"agent_id,omitempty"`
}

type invoiceResponse struct {
	ID         uuid.UUID `json:"id"`
	BillDate   string    `json:"bill_date"`
	DueDate    string    `json:"due_date"`
	CancelDate string    `json:"cancel_date"`
	AmountDue  int64     `json:"amount_due"`
	Deleted    bool      `json:"deleted"`
	Generation int       `json:"generation"`
}

type paymentResponse struct {
	ID              uuid.UUID  `json:"id"`
	PolicyID        uuid.UUID  `json:"policy_id"`
	ContactID       *uuid.UUID `json:"contact_id,omitempty"`
	AmountPaid      int64      `json:"amount_paid"`
	TransactionDate string     `json:"transaction_date"`
	Reference       *string    `json:"reference,omitempty"`
}

type statementResponse struct {
	Policy              policyResponse    `json:"policy"`
	NamedInsured        *contactResponse  `json:"named_insured,omitempty"`
	Agent               *contactResponse  `json:"agent,omitempty"`
	AsOf                string            `json:"as_of"`
	Balance             int64             `json:"balance"`
	CancellationPending bool              `json:"cancellation_pending"`
	Invoices            []invoiceResponse `json:"invoices"`
	Payments            []paymentResponse `json:"payments"`
}

func toPolicyResponse(policy model.Policy) policyResponse {
	resp := policyResponse{
		ID:              policy.ID,
		PolicyNumber:    policy.PolicyNumber,
		EffectiveDate:   model.FormatDate(policy.EffectiveDate),
		AnnualPremium:   policy.AnnualPremium,
		BillingSchedule: string(policy.BillingSchedule),
		Status:          string(policy.Status),
		CancelReason:    policy.CancelReason,
		NamedInsuredID:  policy.NamedInsuredID,
		AgentID:         policy.AgentID,
	}
	if policy.CancelDate != nil {
		cancelDate := model.FormatDate(*policy.CancelDate)
		resp.CancelDate = &cancelDate
	}
	return resp
}

func toContactResponse(contact *model.Contact) *contactResponse {
	if contact == nil {
		return nil
	}
	return &contactResponse{ID: contact.ID, Name: contact.Name, Role: string(contact.Role)}
}

func toPaymentResponse(payment model.Payment) paymentResponse {
	return paymentResponse{
		ID:              payment.ID,
		PolicyID:        payment.PolicyID,
		ContactID:       payment.ContactID,
		AmountPaid:      payment.AmountPaid,
		TransactionDate: model.FormatDate(payment.TransactionDate),
		Reference:       payment.Reference,
	}
}

func toStatementResponse(statement *model.PolicyStatement) statementResponse {
	resp := statementResponse{
		Policy:              toPolicyResponse(statement.Policy),
		NamedInsured:        toContactResponse(statement.NamedInsured),
		Agent:               toContactResponse(statement.Agent),
		AsOf:                model.FormatDate(statement.AsOf),
		Balance:             statement.Balance,
		CancellationPending: statement.CancellationPending,
		Invoices:            make([]invoiceResponse, 0, len(statement.Invoices)),
		Payments:            make([]paymentResponse, 0, len(statement.Payments)),
	}
	for _, invoice := range statement.Invoices {
		resp.Invoices = append(resp.Invoices, invoiceResponse{
			ID:         invoice.ID,
			BillDate:   model.FormatDate(invoice.BillDate),
			DueDate:    model.FormatDate(invoice.DueDate),
			CancelDate: model.FormatDate(invoice.CancelDate),
			AmountDue:  invoice.AmountDue,
			Deleted:    invoice.Deleted(),
			Generation: invoice.Generation,
		})
	}
	for _, payment := range statement.Payments {
		resp.Payments = append(resp.Payments, toPaymentResponse(payment))
	}
	return resp
}
