package render

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
)

func sampleBill() Bill {
	return Bill{
		FlatNo:          "A1",
		PersonID:        "P-100",
		Name:            "Asha Khan",
		LoadSanctioned:  1.0,
		Phase:           "1-Phase",
		BillingMonth:    "2025-03",
		ReadingDate:     "01-03-2025",
		BillNumber:      "7e6f9c2e",
		Status:          "Due",
		PreviousReading: 50,
		PresentReading:  120,
		UnitsConsumed:   70,
		RatePerUnit:     decimal.NewFromInt(10),
		VariableCharges: decimal.NewFromInt(700),
		ElectricDuty:    decimal.NewFromInt(20),
		GST:             decimal.NewFromInt(50),
		TotalSurcharge:  decimal.NewFromInt(30),
		NetAmount:       decimal.NewFromInt(770),
		PayableAmount:   decimal.NewFromInt(800),
	}
}

func TestBillFilename(t *testing.T) {
	if got := BillFilename("A1", "2025-03"); got != "A1_ElectricBill_2025-03.pdf" {
		t.Errorf("BillFilename = %q", got)
	}
	if got := BulkFilename("2025-03"); got != "Bulk_Bills_2025-03.pdf" {
		t.Errorf("BulkFilename = %q", got)
	}
}

func TestReadingDate(t *testing.T) {
	if got := ReadingDate("2025-03"); got != "01-03-2025" {
		t.Errorf("ReadingDate = %q", got)
	}
	if got := ReadingDate("garbage"); got != "" {
		t.Errorf("ReadingDate for bad month = %q, want empty", got)
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	r := NewPDFRenderer()
	out, err := r.Render(sampleBill())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty PDF output")
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output is not a PDF, starts with %q", out[:8])
	}
}

func TestPDFRenderer_RenderBatch(t *testing.T) {
	r := NewPDFRenderer()

	b1 := sampleBill()
	b2 := sampleBill()
	b2.FlatNo = "B2"
	b2.PersonID = "P-200"

	out, err := r.RenderBatch("2025-03", []Bill{b1, b2})
	if err != nil {
		t.Fatalf("RenderBatch failed: %v", err)
	}
	single, err := r.Render(b1)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(out) <= len(single) {
		t.Fatalf("batch output should exceed a single bill: batch=%d single=%d", len(out), len(single))
	}
}

func TestPDFRenderer_RenderBatchEmpty(t *testing.T) {
	r := NewPDFRenderer()
	if _, err := r.RenderBatch("2025-03", nil); err == nil {
		t.Fatal("expected error for empty batch")
	}
}
