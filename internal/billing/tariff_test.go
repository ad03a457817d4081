package billing

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/storage"
)

func TestResolveRate_SlabLookup(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	if err := st.ReplaceTariffSlabs(ctx, []storage.TariffSlab{
		{MinUnits: 0, MaxUnits: 100, RatePerUnit: decimal.NewFromInt(10)},
		{MinUnits: 101, MaxUnits: 300, RatePerUnit: decimal.NewFromInt(15)},
		{MinUnits: 301, MaxUnits: 1e9, RatePerUnit: decimal.NewFromInt(22)},
	}); err != nil {
		t.Fatalf("seed slabs: %v", err)
	}
	r := NewTariffResolver(st, zerolog.Nop())

	cases := []struct {
		units float64
		want  int64
	}{
		{0, 10},
		{70, 10},
		{100, 10},   // inclusive upper bound
		{101, 15},   // inclusive lower bound
		{300, 15},
		{301, 22},
		{50000, 22},
	}
	for _, tc := range cases {
		got, err := r.ResolveRate(ctx, tc.units)
		if err != nil {
			t.Fatalf("ResolveRate(%v) failed: %v", tc.units, err)
		}
		if !got.Equal(decimal.NewFromInt(tc.want)) {
			t.Errorf("ResolveRate(%v) = %v, want %d", tc.units, got, tc.want)
		}
	}
}

func TestResolveRate_GapDegradesToZero(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	if err := st.ReplaceTariffSlabs(ctx, []storage.TariffSlab{
		{MinUnits: 0, MaxUnits: 100, RatePerUnit: decimal.NewFromInt(10)},
		{MinUnits: 201, MaxUnits: 300, RatePerUnit: decimal.NewFromInt(15)},
	}); err != nil {
		t.Fatalf("seed slabs: %v", err)
	}
	r := NewTariffResolver(st, zerolog.Nop())

	got, err := r.ResolveRate(ctx, 150) // falls into the gap
	if err != nil {
		t.Fatalf("ResolveRate failed: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("expected rate 0 for gap, got %v", got)
	}

	got, err = r.ResolveRate(ctx, -5) // negative units never match
	if err != nil {
		t.Fatalf("ResolveRate failed: %v", err)
	}
	if !got.IsZero() {
		t.Errorf("expected rate 0 for negative units, got %v", got)
	}
}

func TestResolveRate_OverlapFirstSlabWins(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	if err := st.ReplaceTariffSlabs(ctx, []storage.TariffSlab{
		{MinUnits: 50, MaxUnits: 200, RatePerUnit: decimal.NewFromInt(99)},
		{MinUnits: 0, MaxUnits: 100, RatePerUnit: decimal.NewFromInt(10)},
	}); err != nil {
		t.Fatalf("seed slabs: %v", err)
	}
	r := NewTariffResolver(st, zerolog.Nop())

	// 70 sits in both slabs; ascending MinUnits order makes (0,100) win.
	got, err := r.ResolveRate(ctx, 70)
	if err != nil {
		t.Fatalf("ResolveRate failed: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("overlap tie-break: got %v, want 10", got)
	}
}

func TestResolveRate_Deterministic(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	if err := st.ReplaceTariffSlabs(ctx, []storage.TariffSlab{
		{MinUnits: 0, MaxUnits: 100, RatePerUnit: decimal.NewFromInt(10)},
	}); err != nil {
		t.Fatalf("seed slabs: %v", err)
	}
	r := NewTariffResolver(st, zerolog.Nop())

	first, err := r.ResolveRate(ctx, 42)
	if err != nil {
		t.Fatalf("ResolveRate failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := r.ResolveRate(ctx, 42)
		if err != nil {
			t.Fatalf("ResolveRate failed: %v", err)
		}
		if !again.Equal(first) {
			t.Fatalf("rate changed between calls: %v then %v", first, again)
		}
	}
}
