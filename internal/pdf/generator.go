package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/policy-billing/internal/model"
)

const fontName = "Helvetica"

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders a printable policy statement: a summary block, the
// invoices billed by the statement date and the payments received.
func (g *Generator) Generate(statement model.PolicyStatement) ([]byte, error) {
	policy := statement.Policy

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetTitle(fmt.Sprintf("Statement %s", policy.PolicyNumber), false)
	pdf.AddPage()

	pdf.SetFont(fontName, "B", 14)
	pdf.CellFormat(0, 10, "Policy Statement", "", 1, "C", false, 0, "")
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Policy %s as of %s", policy.PolicyNumber, model.FormatDate(statement.AsOf)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	summary := [][2]string{
		{"Named insured", contactName(statement.NamedInsured)},
		{"Agent", contactName(statement.Agent)},
		{"Effective date", model.FormatDate(policy.EffectiveDate)},
		{"Billing schedule", string(policy.BillingSchedule)},
		{"Annual premium", formatAmount(policy.AnnualPremium)},
		{"Status", statusLine(policy)},
		{"Balance", formatAmount(statement.Balance)},
	}
	for _, line := range summary {
		pdf.SetFont(fontName, "B", 10)
		pdf.CellFormat(45, 6, line[0], "", 0, "L", false, 0, "")
		pdf.SetFont(fontName, "", 10)
		pdf.CellFormat(0, 6, safeValue(line[1]), "", 1, "L", false, 0, "")
	}

	if statement.CancellationPending {
		pdf.Ln(2)
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, "Payment is past due. The policy will be canceled if the balance is not paid by the cancel date.", "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(4)
	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, "Invoices", "", 1, "L", false, 0, "")

	invoiceWidths := []float64{32, 32, 32, 32, 30, 22}
	drawTableRow(pdf, []string{"Bill date", "Due date", "Cancel date", "Amount due", "State", "Batch"}, invoiceWidths, true)
	for _, invoice := range statement.Invoices {
		drawTableRow(pdf, []string{
			model.FormatDate(invoice.BillDate),
			model.FormatDate(invoice.DueDate),
			model.FormatDate(invoice.CancelDate),
			formatAmount(invoice.AmountDue),
			string(invoice.State),
			strconv.Itoa(invoice.Generation),
		}, invoiceWidths, false)
	}

	pdf.Ln(4)
	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, "Payments", "", 1, "L", false, 0, "")

	paymentWidths := []float64{45, 45, 90}
	drawTableRow(pdf, []string{"Transaction date", "Amount paid", "Reference"}, paymentWidths, true)
	for _, payment := range statement.Payments {
		reference := ""
		if payment.Reference != nil {
			reference = *payment.Reference
		}
		drawTableRow(pdf, []string{
			model.FormatDate(payment.TransactionDate),
			formatAmount(payment.AmountPaid),
			reference,
		}, paymentWidths, false)
	}

	pdf.Ln(2)
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total billed: %s", formatAmount(statement.TotalBilled())), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Total paid: %s", formatAmount(statement.TotalPaid())), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func drawTableRow(pdf *gofpdf.Fpdf, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if !header && strings.HasPrefix(col, "$") {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func statusLine(policy model.Policy) string {
	if !policy.IsCanceled() {
		return string(policy.Status)
	}
	line := string(policy.Status)
	if policy.CancelDate != nil {
		line += " on " + model.FormatDate(*policy.CancelDate)
	}
	if policy.CancelReason != nil && *policy.CancelReason != "" {
		line += " (" + *policy.CancelReason + ")"
	}
	return line
}

func contactName(contact *model.Contact) string {
	if contact == nil {
		return ""
	}
	return contact.Name
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatAmount(value int64) string {
	if value < 0 {
		return "-$" + strconv.FormatInt(-value, 10)
	}
	return "$" + strconv.FormatInt(value, 10)
}
