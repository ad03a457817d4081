package render

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Bill is a fully-resolved bill ready for formatting: computed figures plus
// the display metadata the document shows. Renderers never touch storage.
type Bill struct {
	FlatNo         string
	PersonID       string
	Name           string
	LoadSanctioned float64
	Phase          string
	BillingMonth   string
	ReadingDate    string
	BillNumber     string
	Status         string

	PreviousReading float64
	PresentReading  float64
	UnitsAdjusted   float64
	UnitsConsumed   float64

	RatePerUnit     decimal.Decimal
	VariableCharges decimal.Decimal
	ElectricDuty    decimal.Decimal
	GST             decimal.Decimal
	TotalSurcharge  decimal.Decimal
	NetAmount       decimal.Decimal
	PayableAmount   decimal.Decimal
}

// Renderer formats bills into a printable document.
type Renderer interface {
	// Render produces a single-bill document.
	Render(bill Bill) ([]byte, error)
	// RenderBatch produces one document containing a section per bill, all
	// for the same billing month.
	RenderBatch(billingMonth string, bills []Bill) ([]byte, error)
}

// BillFilename is the naming convention for a single bill document.
func BillFilename(flatNo, billingMonth string) string {
	return fmt.Sprintf("%s_ElectricBill_%s.pdf", flatNo, billingMonth)
}

// BulkFilename is the naming convention for a batch document.
func BulkFilename(billingMonth string) string {
	return fmt.Sprintf("Bulk_Bills_%s.pdf", billingMonth)
}

// ReadingDate renders the conventional reading date for a billing month:
// readings are taken on the first of the month.
func ReadingDate(billingMonth string) string {
	t, err := time.Parse("2006-01", billingMonth)
	if err != nil {
		return ""
	}
	return t.Format("02-01-2006")
}
