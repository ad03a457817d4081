package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/billing"
	"github.com/nedworks/ebilling/internal/metrics"
	"github.com/nedworks/ebilling/internal/storage"
	"github.com/nedworks/ebilling/pkg/errors"
)

// Server exposes the billing service over HTTP.
type Server struct {
	svc *billing.Service
	log zerolog.Logger
}

func NewServer(svc *billing.Service, log zerolog.Logger) *Server {
	return &Server{svc: svc, log: log}
}

// NewMux constructs the HTTP mux, wiring in the billing endpoints, metrics,
// and health endpoints.
func (s *Server) NewMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Metrics endpoint.
	mux.Handle("/metrics", promhttp.Handler())

	// Health / readiness / liveness.
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.Store().Ping(r.Context()); err != nil {
			s.log.Warn().Err(err).Msg("readyz: db ping failed")
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("live"))
	})

	// Users.
	mux.HandleFunc("POST /users", s.handleCreateUser)
	mux.HandleFunc("GET /users", s.handleListUsers)
	mux.HandleFunc("GET /users/{personID}", s.handleGetUser)
	mux.HandleFunc("PUT /users/{personID}", s.handleUpdateUser)
	mux.HandleFunc("DELETE /users/{personID}", s.handleDeleteUser)
	mux.HandleFunc("GET /users/{personID}/consumption", s.handleConsumption)

	// Bills.
	mux.HandleFunc("POST /bills", s.handleInsertBill)
	mux.HandleFunc("PUT /bills/{flatNo}/{month}", s.handleUpdateBill)
	mux.HandleFunc("DELETE /bills/{flatNo}/{month}", s.handleDeleteBill)
	mux.HandleFunc("GET /bills/{flatNo}/{month}", s.handleGetBill)
	mux.HandleFunc("PUT /bills/{flatNo}/{month}/status", s.handleSetBillStatus)

	// Bill documents.
	mux.HandleFunc("GET /bills/{flatNo}/{month}/pdf", s.handleBillPDF)
	mux.HandleFunc("GET /bills/bulk/{month}/pdf", s.handleBulkPDF)

	// Rate tables.
	mux.HandleFunc("GET /tariff/slabs", s.handleListSlabs)
	mux.HandleFunc("PUT /rates/gst", s.handleUpsertGST)
	mux.HandleFunc("PUT /rates/duty", s.handleUpsertDuty)
	mux.HandleFunc("POST /rates/surcharges/{type}", s.handleUpsertSurchargeRate)

	return mux
}

// writeError renders a coded error as a JSON body with the mapped status.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.CodeOf(err)
	if code == "" {
		code = errors.CodePersistenceFailure
	}
	status := errors.HTTPStatus(code)
	metrics.RequestErrorsTotal.WithLabelValues(r.URL.Path, fmt.Sprintf("%d", status)).Inc()
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":  string(code),
		"error": err.Error(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encode response failed")
	}
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.CodeInvalidInput, err, "decode request body")
	}
	return nil
}

// Users

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var u storage.User
	if err := decodeBody(r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(u.PersonID) == "" || strings.TrimSpace(u.FlatNo) == "" {
		s.writeError(w, r, errors.New(errors.CodeInvalidInput, "person_id and flat_no are required"))
		return
	}
	if err := s.svc.Store().CreateUser(r.Context(), u); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Store().ListUsers(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.svc.Store().GetUser(r.Context(), r.PathValue("personID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if u == nil {
		s.writeError(w, r, errors.New(errors.CodeNotFound, "no user %s", r.PathValue("personID")))
		return
	}
	s.writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var u storage.User
	if err := decodeBody(r, &u); err != nil {
		s.writeError(w, r, err)
		return
	}
	u.PersonID = r.PathValue("personID")
	if err := s.svc.Store().UpdateUser(r.Context(), u); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Store().DeleteUser(r.Context(), r.PathValue("personID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConsumption(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Store().ListConsumption(r.Context(), r.PathValue("personID"), r.URL.Query().Get("flat_no"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

// Bills

func (s *Server) handleInsertBill(w http.ResponseWriter, r *http.Request) {
	var in billing.BillInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.svc.InsertBill(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleUpdateBill(w http.ResponseWriter, r *http.Request) {
	var in billing.BillInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.FlatNo = r.PathValue("flatNo")
	in.BillingMonth = r.PathValue("month")
	comp, err := s.svc.UpdateBill(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, comp)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteBill(r.Context(), r.PathValue("flatNo"), r.PathValue("month")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.svc.Store().GetBill(r.Context(), r.PathValue("flatNo"), r.PathValue("month"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if bill == nil {
		s.writeError(w, r, errors.New(errors.CodeNotFound,
			"no bill for flat %s month %s", r.PathValue("flatNo"), r.PathValue("month")))
		return
	}
	s.writeJSON(w, http.StatusOK, bill)
}

func (s *Server) handleSetBillStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.svc.SetBillStatus(r.Context(), r.PathValue("flatNo"), r.PathValue("month"), body.Status); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Documents

func (s *Server) handleBillPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.GenerateBill(r.Context(), r.PathValue("flatNo"), r.PathValue("month"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	servePDF(w, doc.Filename, doc.Bytes)
}

func (s *Server) handleBulkPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := s.svc.GenerateBulkBills(r.Context(), r.PathValue("month"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	servePDF(w, doc.Filename, doc.Bytes)
}

func servePDF(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	_, _ = w.Write(data)
}

// Rate tables

func (s *Server) handleListSlabs(w http.ResponseWriter, r *http.Request) {
	slabs, err := s.svc.Store().ListTariffSlabs(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, slabs)
}

type rateBody struct {
	Amount        decimal.Decimal `json:"amount"`
	EffectiveDate string          `json:"effective_date"`
}

func (b rateBody) effective() (time.Time, error) {
	if b.EffectiveDate == "" {
		return time.Now(), nil
	}
	d, err := time.Parse("2006-01-02", b.EffectiveDate)
	if err != nil {
		return time.Time{}, errors.Wrap(errors.CodeInvalidInput, err, "effective_date must be YYYY-MM-DD")
	}
	return d, nil
}

func (s *Server) handleUpsertGST(w http.ResponseWriter, r *http.Request) {
	var body rateBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	eff, err := body.effective()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rate := storage.GSTRate{Amount: body.Amount, EffectiveDate: eff}
	if err := s.svc.Store().UpsertGSTRate(r.Context(), rate); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rate)
}

func (s *Server) handleUpsertDuty(w http.ResponseWriter, r *http.Request) {
	var body rateBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	eff, err := body.effective()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rate := storage.ElectricDutyRate{Amount: body.Amount, EffectiveDate: eff}
	if err := s.svc.Store().UpsertElectricDutyRate(r.Context(), rate); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rate)
}

func (s *Server) handleUpsertSurchargeRate(w http.ResponseWriter, r *http.Request) {
	typeName := r.PathValue("type")
	var body rateBody
	if err := decodeBody(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	eff, err := body.effective()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	if err := s.svc.Store().UpsertSurchargeType(ctx, storage.SurchargeType{Name: typeName}); err != nil {
		s.writeError(w, r, err)
		return
	}
	types, err := s.svc.Store().ListSurchargeTypes(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var typeID uint
	for _, t := range types {
		if t.Name == typeName {
			typeID = t.ID
			break
		}
	}
	rate := storage.SurchargeRate{SurchargeTypeID: typeID, Amount: body.Amount, EffectiveDate: eff}
	if err := s.svc.Store().UpsertSurchargeRate(ctx, rate); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rate)
}
