package payroll

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Payslip renders one employee's line from a finalized run as a PDF. Draft
// runs have no payslips since their numbers can still change.
func (e *Engine) Payslip(ctx context.Context, runID, employeeID string) ([]byte, error) {
	run, err := e.store.GetRun(ctx, e.store.DB, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != RunFinalized {
		return nil, fmt.Errorf("%w: payslips are only available for finalized runs", ErrInvalidState)
	}
	line, err := e.store.GetLine(ctx, runID, employeeID)
	if err != nil {
		return nil, err
	}
	details, err := e.store.ListDetails(ctx, line.ID)
	if err != nil {
		return nil, err
	}
	return renderPayslip(run, line, details)
}

func renderPayslip(run Run, line EmployeeLine, details []Detail) ([]byte, error) {
	period := time.Date(run.Year, time.Month(run.Month), 1, 0, 0, 0, 0, time.UTC)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", line.EmployeeName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s", period.Format("January 2006")))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Days worked: %.1f of %.1f (loss of pay: %.1f)", line.DaysWorked, line.WorkingDays, line.LossOfPayDays))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Earnings")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	for _, d := range details {
		if d.Type != ComponentEarning {
			continue
		}
		pdf.Cell(100, 7, d.ComponentName)
		pdf.CellFormat(40, 7, fmt.Sprintf("%.2f", d.Amount), "", 0, "R", false, 0, "")
		pdf.Ln(7)
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Deductions")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	for _, d := range details {
		if d.Type != ComponentDeduction {
			continue
		}
		pdf.Cell(100, 7, d.ComponentName)
		pdf.CellFormat(40, 7, fmt.Sprintf("%.2f", d.Amount), "", 0, "R", false, 0, "")
		pdf.Ln(7)
	}

	pdf.Ln(5)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Gross: %.2f", line.GrossEarnings))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Deductions: %.2f", line.TotalDeductions))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Net pay: %.2f", line.NetPay))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
