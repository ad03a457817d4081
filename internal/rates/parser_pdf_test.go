package rates

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/storage"
	"github.com/nedworks/ebilling/pkg/errors"
)

func TestParseSlabsFromText(t *testing.T) {
	sample := `
Residential Tariff Schedule
0 - 100 units Rs. 16.48 per unit
101 - 300 units Rs. 22.95 per unit
301 - 700 units Rs. 32.03 per unit
Above 700 units Rs. 35.24 per unit
Electric Duty: Rs. 150
GST @ 17%
`
	sched, err := ParseSlabsFromText(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sched.Slabs) != 4 {
		t.Fatalf("expected 4 slabs, got %d", len(sched.Slabs))
	}
	first := sched.Slabs[0]
	if first.MinUnits != 0 || first.MaxUnits != 100 {
		t.Errorf("first slab range = %v-%v", first.MinUnits, first.MaxUnits)
	}
	if !first.RatePerUnit.Equal(decimal.RequireFromString("16.48")) {
		t.Errorf("first slab rate = %v", first.RatePerUnit)
	}
	last := sched.Slabs[3]
	if last.MinUnits != 701 || last.MaxUnits != openEndedMax {
		t.Errorf("top slab range = %v-%v", last.MinUnits, last.MaxUnits)
	}
	if sched.ElectricDuty == nil || !sched.ElectricDuty.Equal(decimal.NewFromInt(150)) {
		t.Errorf("electric duty = %v", sched.ElectricDuty)
	}
	if sched.GSTPercent == nil || !sched.GSTPercent.Equal(decimal.NewFromInt(17)) {
		t.Errorf("gst percent = %v", sched.GSTPercent)
	}
}

func TestParseSlabsFromText_SlashUnitFormat(t *testing.T) {
	sample := `
0 - 50 PKR 4.00/unit
51 - 100 PKR 7.00/unit
`
	sched, err := ParseSlabsFromText(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sched.Slabs) != 2 {
		t.Fatalf("expected 2 slabs, got %d", len(sched.Slabs))
	}
	if !sched.Slabs[1].RatePerUnit.Equal(decimal.NewFromInt(7)) {
		t.Errorf("second slab rate = %v", sched.Slabs[1].RatePerUnit)
	}
	if sched.ElectricDuty != nil || sched.GSTPercent != nil {
		t.Errorf("no levy lines in sample, got duty=%v gst=%v", sched.ElectricDuty, sched.GSTPercent)
	}
}

func TestParseSlabsFromText_NoSlabs(t *testing.T) {
	_, err := ParseSlabsFromText("Notice of scheduled maintenance, no rates here.")
	if !errors.Is(err, errors.CodeInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestImportFromText_ReplacesSlabTable(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	if err := st.ReplaceTariffSlabs(ctx, []storage.TariffSlab{
		{MinUnits: 0, MaxUnits: 999, RatePerUnit: decimal.NewFromInt(1)},
	}); err != nil {
		t.Fatalf("seed slabs: %v", err)
	}

	svc := NewImportService(st, zerolog.Nop())
	sample := `
0 - 100 units Rs. 16.48 per unit
101 - 300 units Rs. 22.95 per unit
Electric Duty: Rs. 150
`
	if _, err := svc.ImportFromText(ctx, sample); err != nil {
		t.Fatalf("import failed: %v", err)
	}

	slabs, err := st.ListTariffSlabs(ctx)
	if err != nil {
		t.Fatalf("list slabs: %v", err)
	}
	if len(slabs) != 2 {
		t.Fatalf("expected old table replaced with 2 slabs, got %d", len(slabs))
	}
	duty, err := st.LatestElectricDutyRate(ctx)
	if err != nil || duty == nil {
		t.Fatalf("duty rate not stored: %v", err)
	}
	if !duty.Amount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("duty amount = %v", duty.Amount)
	}
}

func TestImportFromText_OverlappingSlabsRejected(t *testing.T) {
	ctx := context.Background()
	svc := NewImportService(storage.NewMemory(), zerolog.Nop())
	sample := `
0 - 100 units Rs. 10.00 per unit
90 - 300 units Rs. 15.00 per unit
`
	if _, err := svc.ImportFromText(ctx, sample); !errors.Is(err, errors.CodeMisconfiguredTariff) {
		t.Fatalf("expected MisconfiguredTariff, got %v", err)
	}
}
