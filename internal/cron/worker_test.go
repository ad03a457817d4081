package cron

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/billing"
	"github.com/nedworks/ebilling/internal/render"
	"github.com/nedworks/ebilling/internal/storage"
	"github.com/nedworks/ebilling/pkg/errors"
)

func newTestWorker(t *testing.T) (*Worker, storage.Storage, string) {
	t.Helper()
	st := storage.NewMemory()
	svc := billing.NewService(st, render.NewPDFRenderer(), zerolog.Nop())
	dir := t.TempDir()
	return NewWorker(svc, dir, "24h", zerolog.Nop()), st, dir
}

func TestNextRun(t *testing.T) {
	w, _, _ := newTestWorker(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	if got := w.nextRun("1h", base); !got.Equal(base.Add(time.Hour)) {
		t.Errorf("duration setting: next = %v", got)
	}
	// @daily fires at the next midnight.
	if got := w.nextRun("@daily", base); !got.Equal(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("cron setting: next = %v", got)
	}
	// Garbage falls back to 24h.
	if got := w.nextRun("whenever", base); !got.Equal(base.Add(24 * time.Hour)) {
		t.Errorf("fallback: next = %v", got)
	}
}

func TestRunOnceWritesBulkDocument(t *testing.T) {
	ctx := context.Background()
	w, st, dir := newTestWorker(t)

	month := time.Now().Format("2006-01")
	_, err := st.InsertBill(ctx, "A1", month, storage.BillRecord{
		PresentReading: 70,
		RatePerUnit:    decimal.NewFromInt(10),
		PayableAmount:  decimal.NewFromInt(800),
	})
	if err != nil {
		t.Fatalf("seed bill: %v", err)
	}

	if err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	path := filepath.Join(dir, "Bulk_Bills_"+month+".pdf")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("bulk document not written: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("bulk document is empty")
	}
}

func TestRunOnce_NoBills(t *testing.T) {
	w, _, _ := newTestWorker(t)
	if err := w.RunOnce(context.Background()); !errors.Is(err, errors.CodeNotFound) {
		t.Fatalf("expected NotFound with no bills, got %v", err)
	}
}
