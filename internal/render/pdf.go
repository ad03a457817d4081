package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer lays a bill out as a one-page PDF mirroring the colony's
// printed bill: header block, user details, units details, charges details
// and a footer note.
type PDFRenderer struct {
	// HeaderLines print centered at the top of every bill.
	HeaderLines []string
}

// NewPDFRenderer returns a renderer with the standard colony header.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{
		HeaderLines: []string{
			"NED UNIVERSITY OF ENGINEERING & TECHNOLOGY",
			"DIRECTORATE OF WORKS & SERVICES",
			"ELECTRIC BILL FOR NED STAFF COLONY",
		},
	}
}

func (r *PDFRenderer) Render(bill Bill) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.AddPage()
	r.writeBillPage(pdf, bill)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render bill pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) RenderBatch(billingMonth string, bills []Bill) ([]byte, error) {
	if len(bills) == 0 {
		return nil, fmt.Errorf("no bills to render for %s", billingMonth)
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	for _, bill := range bills {
		pdf.AddPage()
		r.writeBillPage(pdf, bill)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render bulk bill pdf for %s: %w", billingMonth, err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) writeBillPage(pdf *fpdf.Fpdf, bill Bill) {
	pageWidth, _ := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 14)
	for _, line := range r.HeaderLines {
		pdf.CellFormat(pageWidth-20, 8, line, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	half := (pageWidth - 20) / 2
	pdf.CellFormat(half, 7, fmt.Sprintf("Flat No: %s", bill.FlatNo), "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 7, fmt.Sprintf("Load Sanctioned: %.1f kW", bill.LoadSanctioned), "", 1, "L", false, 0, "")
	pdf.CellFormat(half, 7, fmt.Sprintf("Pers No: %s", bill.PersonID), "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 7, fmt.Sprintf("Phase: %s", bill.Phase), "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 7, fmt.Sprintf("Name: %s", bill.Name), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.CellFormat(half, 7, fmt.Sprintf("Billing Month: %s", bill.BillingMonth), "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 7, fmt.Sprintf("Reading Date: %s", bill.ReadingDate), "", 1, "L", false, 0, "")
	if bill.BillNumber != "" {
		pdf.CellFormat(pageWidth-20, 7, fmt.Sprintf("Bill No: %s", bill.BillNumber), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(pageWidth-20, 7, "Units Details", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Previous Reading: %.2f", bill.PreviousReading), "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Present Reading: %.2f", bill.PresentReading), "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Units Adjusted: %.2f", bill.UnitsAdjusted), "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Units Consumed: %.2f", bill.UnitsConsumed), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(pageWidth-20, 7, "Charges Details (PKR)", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Rate Per Unit: %s", bill.RatePerUnit.StringFixed(4)), "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Variable Charges: %s", bill.VariableCharges.StringFixed(2)), "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Electric Duty: %s", bill.ElectricDuty.StringFixed(2)), "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("GST: %s", bill.GST.StringFixed(2)), "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Surcharge: %s", bill.TotalSurcharge.StringFixed(2)), "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Net Amount: %s", bill.NetAmount.StringFixed(2)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Payable Amount: %s", bill.PayableAmount.StringFixed(2)), "", 1, "L", false, 0, "")
	if bill.Status != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(pageWidth-20, 6, fmt.Sprintf("Status: %s", bill.Status), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(pageWidth-20, 5, "Note: Meter Reading will be taken on 1st of every month.", "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 5, "This is a computer-generated bill and does not require a signature.", "", 1, "L", false, 0, "")
	pdf.CellFormat(pageWidth-20, 5, fmt.Sprintf("Bill Generated on: %s", time.Now().Format("02/01/2006")), "", 1, "R", false, 0, "")
}
