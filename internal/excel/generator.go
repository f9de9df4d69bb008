package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/policy-billing/internal/model"
)

const (
	summarySheet  = "Summary"
	invoicesSheet = "Invoices"
	paymentsSheet = "Payments"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders a policy statement as an xlsx workbook with a summary
// sheet followed by the invoice and payment ledgers.
func (g *Generator) Generate(statement model.PolicyStatement) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	g.writeSummary(file, statement)

	for _, sheet := range []string{invoicesSheet, paymentsSheet} {
		if _, err := file.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}
	g.writeInvoices(file, statement.Invoices)
	g.writePayments(file, statement.Payments)

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, statement model.PolicyStatement) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(summarySheet, cell, value)
	}

	policy := statement.Policy
	rows := [][2]interface{}{
		{"Policy number", policy.PolicyNumber},
		{"Named insured", contactName(statement.NamedInsured)},
		{"Agent", contactName(statement.Agent)},
		{"Effective date", model.FormatDate(policy.EffectiveDate)},
		{"Billing schedule", string(policy.BillingSchedule)},
		{"Status", string(policy.Status)},
		{"Cancel date", formatOptionalDate(policy.CancelDate)},
		{"Cancel reason", formatString(policy.CancelReason)},
		{"As of", model.FormatDate(statement.AsOf)},
		{"Annual premium", policy.AnnualPremium},
		{"Total billed", statement.TotalBilled()},
		{"Total paid", statement.TotalPaid()},
		{"Balance", statement.Balance},
		{"Cancellation pending", yesNo(statement.CancellationPending)},
	}
	for i, row := range rows {
		set(fmt.Sprintf("A%d", i+1), row[0])
		set(fmt.Sprintf("B%d", i+1), row[1])
	}

	_ = file.SetColWidth(summarySheet, "A", "A", 24)
	_ = file.SetColWidth(summarySheet, "B", "B", 32)
}

func (g *Generator) writeInvoices(file *excelize.File, invoices []model.Invoice) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(invoicesSheet, cell, value)
	}

	headers := []string{"Bill date", "Due date", "Cancel date", "Amount due", "State", "Batch"}
	writeHeaders(file, invoicesSheet, headers)

	for i, invoice := range invoices {
		row := 2 + i
		set(fmt.Sprintf("A%d", row), model.FormatDate(invoice.BillDate))
		set(fmt.Sprintf("B%d", row), model.FormatDate(invoice.DueDate))
		set(fmt.Sprintf("C%d", row), model.FormatDate(invoice.CancelDate))
		set(fmt.Sprintf("D%d", row), invoice.AmountDue)
		set(fmt.Sprintf("E%d", row), string(invoice.State))
		set(fmt.Sprintf("F%d", row), invoice.Generation)
	}

	_ = file.SetColWidth(invoicesSheet, "A", "C", 14)
	_ = file.SetColWidth(invoicesSheet, "D", "F", 12)
}

func (g *Generator) writePayments(file *excelize.File, payments []model.Payment) {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(paymentsSheet, cell, value)
	}

	headers := []string{"Transaction date", "Amount paid", "Reference"}
	writeHeaders(file, paymentsSheet, headers)

	for i, payment := range payments {
		row := 2 + i
		set(fmt.Sprintf("A%d", row), model.FormatDate(payment.TransactionDate))
		set(fmt.Sprintf("B%d", row), payment.AmountPaid)
		set(fmt.Sprintf("C%d", row), formatString(payment.Reference))
	}

	_ = file.SetColWidth(paymentsSheet, "A", "A", 18)
	_ = file.SetColWidth(paymentsSheet, "B", "B", 12)
	_ = file.SetColWidth(paymentsSheet, "C", "C", 24)
}

func writeHeaders(file *excelize.File, sheet string, headers []string) {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = file.SetCellValue(sheet, cell, header)
	}
}

func contactName(contact *model.Contact) string {
	if contact == nil {
		return ""
	}
	return contact.Name
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return model.FormatDate(*t)
}

func formatString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func yesNo(value bool) string {
	if value {
		return "Yes"
	}
	return "No"
}
