package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/pkg/errors"
)

func testRecord(prev, present float64) BillRecord {
	units := present - prev
	if units < 0 {
		units = -units
	}
	rate := decimal.NewFromInt(10)
	variable := rate.Mul(decimal.NewFromFloat(units))
	return BillRecord{
		PreviousReading: prev,
		PresentReading:  present,
		RatePerUnit:     rate,
		VariableCharges: variable,
		ElectricDuty:    decimal.NewFromInt(20),
		GST:             decimal.NewFromInt(50),
		TotalSurcharge:  decimal.NewFromInt(30),
		NetAmount:       variable.Add(decimal.NewFromInt(70)),
		PayableAmount:   variable.Add(decimal.NewFromInt(100)),
	}
}

func TestMemoryInsertBill_Duplicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.InsertBill(ctx, "A1", "2025-03", testRecord(50, 120)); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	_, err := m.InsertBill(ctx, "A1", "2025-03", testRecord(50, 130))
	if !errors.Is(err, errors.CodeDuplicateKey) {
		t.Fatalf("expected DuplicateKey, got %v", err)
	}
}

func TestMemoryInsertThenDelete_RestoresState(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.InsertBill(ctx, "A1", "2025-03", testRecord(50, 120)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := m.DeleteBill(ctx, "A1", "2025-03"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	bill, err := m.GetBill(ctx, "A1", "2025-03")
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if bill != nil {
		t.Fatalf("expected no bill after delete, got %+v", bill)
	}
	reading, err := m.GetReading(ctx, "A1", "2025-03")
	if err != nil {
		t.Fatalf("GetReading failed: %v", err)
	}
	if reading != nil {
		t.Fatalf("expected no reading after delete, got %+v", reading)
	}
}

func TestMemoryDeleteBill_Absent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.DeleteBill(ctx, "B9", "2025-01")
	if !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMemoryUpdateBill_PreservesIdentity(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	id, err := m.InsertBill(ctx, "A1", "2025-03", testRecord(50, 120))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	before, _ := m.GetBill(ctx, "A1", "2025-03")
	if err := m.UpdateBill(ctx, "A1", "2025-03", testRecord(50, 150)); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	after, err := m.GetBill(ctx, "A1", "2025-03")
	if err != nil {
		t.Fatalf("GetBill failed: %v", err)
	}
	if after.Reading.ReadingID != id {
		t.Fatalf("reading id changed on update: want %d got %d", id, after.Reading.ReadingID)
	}
	if after.Charge.BillNumber != before.Charge.BillNumber {
		t.Fatalf("bill number changed on update")
	}
	if after.Reading.PresentReading != 150 {
		t.Fatalf("present reading not updated: %v", after.Reading.PresentReading)
	}
}

func TestMemoryUpdateBill_Absent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.UpdateBill(ctx, "A1", "2025-03", testRecord(0, 10))
	if !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMemoryLatestSurchargeRate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.UpsertSurchargeType(ctx, SurchargeType{Name: "FuelAdjustment"}); err != nil {
		t.Fatalf("upsert type failed: %v", err)
	}
	types, _ := m.ListSurchargeTypes(ctx)
	if len(types) != 1 {
		t.Fatalf("expected one surcharge type, got %d", len(types))
	}

	old := SurchargeRate{
		SurchargeTypeID: types[0].ID,
		Amount:          decimal.NewFromInt(15),
		EffectiveDate:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := SurchargeRate{
		SurchargeTypeID: types[0].ID,
		Amount:          decimal.NewFromInt(25),
		EffectiveDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := m.UpsertSurchargeRate(ctx, old); err != nil {
		t.Fatalf("upsert rate failed: %v", err)
	}
	if err := m.UpsertSurchargeRate(ctx, newer); err != nil {
		t.Fatalf("upsert rate failed: %v", err)
	}

	// As of mid-2024 only the old rate applies.
	got, err := m.LatestSurchargeRate(ctx, "FuelAdjustment", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got == nil || !got.Amount.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected amount 15, got %+v", got)
	}

	// As of 2025 the newer rate wins.
	got, err = m.LatestSurchargeRate(ctx, "FuelAdjustment", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got == nil || !got.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected amount 25, got %+v", got)
	}

	// Unknown type resolves to nothing, not an error.
	got, err = m.LatestSurchargeRate(ctx, "Unknown", time.Now())
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for unknown type, got %+v, %v", got, err)
	}
}

func TestMemorySetBillStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.InsertBill(ctx, "A1", "2025-03", testRecord(0, 40)); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	bill, _ := m.GetBill(ctx, "A1", "2025-03")
	if bill.Charge.Status != BillStatusDue {
		t.Fatalf("new bill should be Due, got %s", bill.Charge.Status)
	}

	if err := m.SetBillStatus(ctx, "A1", "2025-03", BillStatusPaid); err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	bill, _ = m.GetBill(ctx, "A1", "2025-03")
	if bill.Charge.Status != BillStatusPaid {
		t.Fatalf("expected Paid, got %s", bill.Charge.Status)
	}

	if err := m.SetBillStatus(ctx, "Z9", "2025-03", BillStatusPaid); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected NotFound for absent bill, got %v", err)
	}
}
