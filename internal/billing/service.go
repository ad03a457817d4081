package billing

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/metrics"
	"github.com/nedworks/ebilling/internal/render"
	"github.com/nedworks/ebilling/internal/storage"
	"github.com/nedworks/ebilling/pkg/errors"
)

// Service wires the calculator, the record store and the document renderer
// into the operator-facing billing flows.
type Service struct {
	store      storage.Storage
	calc       *Calculator
	surcharges *SurchargeResolver
	renderer   render.Renderer
	log        zerolog.Logger
}

func NewService(store storage.Storage, renderer render.Renderer, log zerolog.Logger) *Service {
	tariff := NewTariffResolver(store, log)
	reading := NewReadingResolver(store)
	return &Service{
		store:      store,
		calc:       NewCalculator(tariff, reading, log),
		surcharges: NewSurchargeResolver(store),
		renderer:   renderer,
		log:        log,
	}
}

// Calculator exposes the underlying bill calculator for callers that only
// need a computation.
func (s *Service) Calculator() *Calculator { return s.calc }

// Surcharges exposes the surcharge resolver for component-wise resolution.
func (s *Service) Surcharges() *SurchargeResolver { return s.surcharges }

// Store exposes the persistence backend.
func (s *Service) Store() storage.Storage { return s.store }

// BillInput is the operator submission for an insert or update: the person
// and flat, the new present reading, and the already-resolved charge
// components (rate-table lookups or manual overrides happen before this).
type BillInput struct {
	PersonID       string          `json:"person_id"`
	FlatNo         string          `json:"flat_no"`
	BillingMonth   string          `json:"billing_month"`
	PresentReading float64         `json:"present_reading"`
	ElectricDuty   decimal.Decimal `json:"electric_duty"`
	GST            decimal.Decimal `json:"gst"`
	UnitsAdjusted  float64         `json:"units_adjusted"`
	SurchargeTotal decimal.Decimal `json:"surcharge_total"`
}

func (in BillInput) computeInput() ComputeInput {
	return ComputeInput{
		FlatNo:         in.FlatNo,
		BillingMonth:   in.BillingMonth,
		PresentReading: in.PresentReading,
		ElectricDuty:   in.ElectricDuty,
		GST:            in.GST,
		UnitsAdjusted:  in.UnitsAdjusted,
		SurchargeTotal: in.SurchargeTotal,
	}
}

// InsertResult reports a stored bill: its reading ID and the computation it
// was derived from.
type InsertResult struct {
	ReadingID   uint         `json:"reading_id"`
	Computation *Computation `json:"computation"`
}

// InsertBill computes the bill for the input, stores the reading and charge
// rows, and appends the consumption history record. Validation failures
// surface before anything is written.
func (s *Service) InsertBill(ctx context.Context, in BillInput) (*InsertResult, error) {
	comp, err := s.calc.Compute(ctx, in.computeInput())
	if err != nil {
		metrics.BillOperationsTotal.WithLabelValues("insert", "error").Inc()
		return nil, err
	}

	readingID, err := s.store.InsertBill(ctx, in.FlatNo, in.BillingMonth, recordFromComputation(comp))
	if err != nil {
		metrics.BillOperationsTotal.WithLabelValues("insert", "error").Inc()
		return nil, err
	}

	s.appendConsumption(ctx, in.PersonID, comp)
	metrics.BillOperationsTotal.WithLabelValues("insert", "ok").Inc()
	s.log.Info().
		Str("flat_no", in.FlatNo).
		Str("billing_month", in.BillingMonth).
		Uint("reading_id", readingID).
		Msg("bill inserted")

	return &InsertResult{ReadingID: readingID, Computation: comp}, nil
}

// UpdateBill recomputes the bill keeping the stored previous reading and
// overwrites both rows in place.
func (s *Service) UpdateBill(ctx context.Context, in BillInput) (*Computation, error) {
	existing, err := s.store.GetReading(ctx, in.FlatNo, in.BillingMonth)
	if err != nil {
		metrics.BillOperationsTotal.WithLabelValues("update", "error").Inc()
		return nil, errors.Wrap(errors.CodePersistenceFailure, err, "look up bill for flat %s month %s", in.FlatNo, in.BillingMonth)
	}
	if existing == nil {
		metrics.BillOperationsTotal.WithLabelValues("update", "error").Inc()
		return nil, errors.New(errors.CodeNotFound, "no bill for flat %s month %s", in.FlatNo, in.BillingMonth)
	}

	comp, err := s.calc.ComputeWithPrevious(ctx, in.computeInput(), existing.PreviousReading)
	if err != nil {
		metrics.BillOperationsTotal.WithLabelValues("update", "error").Inc()
		return nil, err
	}

	if err := s.store.UpdateBill(ctx, in.FlatNo, in.BillingMonth, recordFromComputation(comp)); err != nil {
		metrics.BillOperationsTotal.WithLabelValues("update", "error").Inc()
		return nil, err
	}

	s.appendConsumption(ctx, in.PersonID, comp)
	metrics.BillOperationsTotal.WithLabelValues("update", "ok").Inc()
	s.log.Info().
		Str("flat_no", in.FlatNo).
		Str("billing_month", in.BillingMonth).
		Msg("bill updated")

	return comp, nil
}

// DeleteBill removes the reading and charge rows for the key.
func (s *Service) DeleteBill(ctx context.Context, flatNo, billingMonth string) error {
	if err := s.store.DeleteBill(ctx, flatNo, billingMonth); err != nil {
		metrics.BillOperationsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}
	metrics.BillOperationsTotal.WithLabelValues("delete", "ok").Inc()
	s.log.Info().
		Str("flat_no", flatNo).
		Str("billing_month", billingMonth).
		Msg("bill deleted")
	return nil
}

// SetBillStatus marks a stored bill Due, Paid or Unpaid.
func (s *Service) SetBillStatus(ctx context.Context, flatNo, billingMonth, status string) error {
	switch status {
	case storage.BillStatusDue, storage.BillStatusPaid, storage.BillStatusUnpaid:
	default:
		return errors.New(errors.CodeInvalidInput, "unknown bill status %q", status)
	}
	return s.store.SetBillStatus(ctx, flatNo, billingMonth, status)
}

// Document is a rendered bill artifact with its conventional filename.
type Document struct {
	Filename string `json:"filename"`
	Bytes    []byte `json:"-"`
}

// GenerateBill renders the stored bill for one flat and month.
func (s *Service) GenerateBill(ctx context.Context, flatNo, billingMonth string) (*Document, error) {
	stored, err := s.store.GetBill(ctx, flatNo, billingMonth)
	if err != nil {
		return nil, errors.Wrap(errors.CodePersistenceFailure, err, "fetch bill for flat %s month %s", flatNo, billingMonth)
	}
	if stored == nil {
		return nil, errors.New(errors.CodeNotFound, "no bill for flat %s month %s", flatNo, billingMonth)
	}

	user, err := s.userForFlat(ctx, flatNo)
	if err != nil {
		return nil, err
	}

	out, err := s.renderer.Render(billView(*stored, user))
	if err != nil {
		return nil, err
	}
	metrics.DocumentsRenderedTotal.WithLabelValues("single").Inc()
	return &Document{Filename: render.BillFilename(flatNo, billingMonth), Bytes: out}, nil
}

// GenerateBulkBills renders one document containing every stored bill for
// the month, one section per user.
func (s *Service) GenerateBulkBills(ctx context.Context, billingMonth string) (*Document, error) {
	stored, err := s.store.ListBillsForMonth(ctx, billingMonth)
	if err != nil {
		return nil, errors.Wrap(errors.CodePersistenceFailure, err, "list bills for month %s", billingMonth)
	}
	if len(stored) == 0 {
		return nil, errors.New(errors.CodeNotFound, "no bills for month %s", billingMonth)
	}

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodePersistenceFailure, err, "list users")
	}
	byFlat := make(map[string]*storage.User, len(users))
	for i := range users {
		byFlat[users[i].FlatNo] = &users[i]
	}

	bills := make([]render.Bill, 0, len(stored))
	for _, b := range stored {
		bills = append(bills, billView(b, byFlat[b.Reading.FlatNo]))
	}

	out, err := s.renderer.RenderBatch(billingMonth, bills)
	if err != nil {
		return nil, err
	}
	metrics.DocumentsRenderedTotal.WithLabelValues("bulk").Inc()
	return &Document{Filename: render.BulkFilename(billingMonth), Bytes: out}, nil
}

func (s *Service) appendConsumption(ctx context.Context, personID string, comp *Computation) {
	// History is a derived log; failing to append must not fail the bill.
	err := s.store.AppendConsumption(ctx, storage.ConsumptionRecord{
		PersonID:      personID,
		FlatNo:        comp.FlatNo,
		BillingMonth:  comp.BillingMonth,
		UnitsConsumed: comp.UnitsConsumed,
	})
	if err != nil {
		s.log.Warn().Err(err).
			Str("flat_no", comp.FlatNo).
			Str("billing_month", comp.BillingMonth).
			Msg("consumption history append failed")
	}
}

func (s *Service) userForFlat(ctx context.Context, flatNo string) (*storage.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodePersistenceFailure, err, "list users")
	}
	for i := range users {
		if users[i].FlatNo == flatNo {
			return &users[i], nil
		}
	}
	return nil, nil
}

func recordFromComputation(comp *Computation) storage.BillRecord {
	return storage.BillRecord{
		PreviousReading: comp.PreviousReading,
		PresentReading:  comp.PresentReading,
		RatePerUnit:     comp.RatePerUnit,
		VariableCharges: comp.VariableCharges,
		ElectricDuty:    comp.ElectricDuty,
		GST:             comp.GST,
		TotalSurcharge:  comp.TotalSurcharge,
		NetAmount:       comp.NetAmount,
		PayableAmount:   comp.PayableAmount,
	}
}

func billView(stored storage.StoredBill, user *storage.User) render.Bill {
	bill := render.Bill{
		FlatNo:          stored.Reading.FlatNo,
		BillingMonth:    stored.Reading.BillingMonth,
		ReadingDate:     render.ReadingDate(stored.Reading.BillingMonth),
		BillNumber:      stored.Charge.BillNumber,
		Status:          stored.Charge.Status,
		PreviousReading: stored.Reading.PreviousReading,
		PresentReading:  stored.Reading.PresentReading,
		RatePerUnit:     stored.Charge.RatePerUnit,
		VariableCharges: stored.Charge.VariableCharges,
		ElectricDuty:    stored.Charge.ElectricDuty,
		GST:             stored.Charge.GST,
		TotalSurcharge:  stored.Charge.TotalSurcharge,
		NetAmount:       stored.Charge.NetAmount,
		PayableAmount:   stored.Charge.PayableAmount,
	}
	// Stored readings do not carry the adjustment; recover billed units from
	// the charge figures where possible, else from the reading delta.
	if !stored.Charge.RatePerUnit.IsZero() {
		bill.UnitsConsumed, _ = stored.Charge.VariableCharges.Div(stored.Charge.RatePerUnit).Float64()
	} else {
		delta := stored.Reading.PresentReading - stored.Reading.PreviousReading
		if delta < 0 {
			delta = -delta
		}
		bill.UnitsConsumed = delta
	}
	if user != nil {
		bill.PersonID = user.PersonID
		bill.Name = user.Name
		bill.LoadSanctioned = user.LoadSanctioned
		bill.Phase = user.Phase
	}
	return bill
}
