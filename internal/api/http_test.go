package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/billing"
	"github.com/nedworks/ebilling/internal/render"
	"github.com/nedworks/ebilling/internal/storage"
)

func newTestMux(t *testing.T) (*http.ServeMux, storage.Storage) {
	t.Helper()
	st := storage.NewMemory()
	if err := st.ReplaceTariffSlabs(context.Background(), []storage.TariffSlab{
		{MinUnits: 0, MaxUnits: 100, RatePerUnit: decimal.NewFromInt(10)},
		{MinUnits: 101, MaxUnits: 300, RatePerUnit: decimal.NewFromInt(15)},
	}); err != nil {
		t.Fatalf("seed slabs: %v", err)
	}
	svc := billing.NewService(st, render.NewPDFRenderer(), zerolog.Nop())
	return NewServer(svc, zerolog.Nop()).NewMux(), st
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoints(t *testing.T) {
	mux, _ := newTestMux(t)
	for _, path := range []string{"/healthz", "/readyz", "/livez"} {
		rec := doJSON(t, mux, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestUserLifecycle(t *testing.T) {
	mux, _ := newTestMux(t)

	user := map[string]any{
		"person_id": "P-100",
		"name":      "Asha Khan",
		"flat_no":   "A1",
		"user_type": "Residential",
		"phase":     "1-Phase",
	}
	if rec := doJSON(t, mux, http.MethodPost, "/users", user); rec.Code != http.StatusCreated {
		t.Fatalf("create user = %d: %s", rec.Code, rec.Body.String())
	}
	// Duplicate person_id conflicts.
	if rec := doJSON(t, mux, http.MethodPost, "/users", user); rec.Code != http.StatusConflict {
		t.Errorf("duplicate create = %d", rec.Code)
	}

	rec := doJSON(t, mux, http.MethodGet, "/users/P-100", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get user = %d", rec.Code)
	}
	var got storage.User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if got.Name != "Asha Khan" {
		t.Errorf("name = %q", got.Name)
	}

	if rec := doJSON(t, mux, http.MethodDelete, "/users/P-100", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete user = %d", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodGet, "/users/P-404", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get absent user = %d", rec.Code)
	}
}

func TestBillEndpoints(t *testing.T) {
	mux, _ := newTestMux(t)

	in := map[string]any{
		"person_id":       "P-100",
		"flat_no":         "A1",
		"billing_month":   "2025-03",
		"present_reading": 70,
		"electric_duty":   "20",
		"gst":             "50",
		"surcharge_total": "30",
	}
	rec := doJSON(t, mux, http.MethodPost, "/bills", in)
	if rec.Code != http.StatusCreated {
		t.Fatalf("insert bill = %d: %s", rec.Code, rec.Body.String())
	}
	var res billing.InsertResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode insert result: %v", err)
	}
	if !res.Computation.PayableAmount.Equal(decimal.NewFromInt(800)) {
		t.Errorf("payable = %v", res.Computation.PayableAmount)
	}

	// Same flat and month conflicts.
	if rec := doJSON(t, mux, http.MethodPost, "/bills", in); rec.Code != http.StatusConflict {
		t.Errorf("duplicate insert = %d", rec.Code)
	}

	if rec := doJSON(t, mux, http.MethodGet, "/bills/A1/2025-03", nil); rec.Code != http.StatusOK {
		t.Errorf("get bill = %d", rec.Code)
	}

	upd := map[string]any{"person_id": "P-100", "present_reading": 90}
	if rec := doJSON(t, mux, http.MethodPut, "/bills/A1/2025-03", upd); rec.Code != http.StatusOK {
		t.Errorf("update bill = %d: %s", rec.Code, rec.Body.String())
	}

	status := map[string]any{"status": "Paid"}
	if rec := doJSON(t, mux, http.MethodPut, "/bills/A1/2025-03/status", status); rec.Code != http.StatusNoContent {
		t.Errorf("set status = %d", rec.Code)
	}
	bad := map[string]any{"status": "Settled"}
	if rec := doJSON(t, mux, http.MethodPut, "/bills/A1/2025-03/status", bad); rec.Code != http.StatusBadRequest {
		t.Errorf("bad status = %d", rec.Code)
	}

	if rec := doJSON(t, mux, http.MethodDelete, "/bills/A1/2025-03", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete bill = %d", rec.Code)
	}
	if rec := doJSON(t, mux, http.MethodDelete, "/bills/A1/2025-03", nil); rec.Code != http.StatusNotFound {
		t.Errorf("delete absent bill = %d", rec.Code)
	}
}

func TestBillPDFEndpoints(t *testing.T) {
	mux, st := newTestMux(t)
	ctx := context.Background()

	if err := st.CreateUser(ctx, storage.User{PersonID: "P-100", Name: "Asha Khan", FlatNo: "A1"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	in := map[string]any{
		"person_id":       "P-100",
		"flat_no":         "A1",
		"billing_month":   "2025-03",
		"present_reading": 70,
		"electric_duty":   "20",
		"gst":             "50",
		"surcharge_total": "30",
	}
	if rec := doJSON(t, mux, http.MethodPost, "/bills", in); rec.Code != http.StatusCreated {
		t.Fatalf("insert bill = %d", rec.Code)
	}

	rec := doJSON(t, mux, http.MethodGet, "/bills/A1/2025-03/pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("single pdf = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "A1_ElectricBill_2025-03.pdf") {
		t.Errorf("content disposition = %q", cd)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF document")
	}

	rec = doJSON(t, mux, http.MethodGet, "/bills/bulk/2025-03/pdf", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("bulk pdf = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "Bulk_Bills_2025-03.pdf") {
		t.Errorf("content disposition = %q", cd)
	}

	if rec := doJSON(t, mux, http.MethodGet, "/bills/bulk/2031-01/pdf", nil); rec.Code != http.StatusNotFound {
		t.Errorf("bulk pdf for empty month = %d", rec.Code)
	}
}

func TestRateEndpoints(t *testing.T) {
	mux, st := newTestMux(t)

	if rec := doJSON(t, mux, http.MethodGet, "/tariff/slabs", nil); rec.Code != http.StatusOK {
		t.Errorf("list slabs = %d", rec.Code)
	}

	body := map[string]any{"amount": "17", "effective_date": "2025-01-01"}
	if rec := doJSON(t, mux, http.MethodPut, "/rates/gst", body); rec.Code != http.StatusOK {
		t.Errorf("upsert gst = %d: %s", rec.Code, rec.Body.String())
	}
	gst, err := st.LatestGSTRate(context.Background())
	if err != nil || gst == nil {
		t.Fatalf("gst rate not stored: %v", err)
	}
	if !gst.Amount.Equal(decimal.NewFromInt(17)) {
		t.Errorf("gst amount = %v", gst.Amount)
	}

	bad := map[string]any{"amount": "17", "effective_date": "01/01/2025"}
	if rec := doJSON(t, mux, http.MethodPut, "/rates/duty", bad); rec.Code != http.StatusBadRequest {
		t.Errorf("bad effective date = %d", rec.Code)
	}

	surcharge := map[string]any{"amount": "25", "effective_date": "2025-01-01"}
	if rec := doJSON(t, mux, http.MethodPost, "/rates/surcharges/Fuel%20Adjustment", surcharge); rec.Code != http.StatusOK {
		t.Errorf("upsert surcharge = %d: %s", rec.Code, rec.Body.String())
	}
}
