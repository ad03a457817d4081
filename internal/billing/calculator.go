package billing

import (
	"context"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/metrics"
	"github.com/nedworks/ebilling/pkg/errors"
)

// ComputeInput carries the operator-supplied figures for one bill.
type ComputeInput struct {
	FlatNo         string          `json:"flat_no"`
	BillingMonth   string          `json:"billing_month"`
	PresentReading float64         `json:"present_reading"`
	ElectricDuty   decimal.Decimal `json:"electric_duty"`
	GST            decimal.Decimal `json:"gst"`
	UnitsAdjusted  float64         `json:"units_adjusted"`
	SurchargeTotal decimal.Decimal `json:"surcharge_total"`
}

// Computation is the full result of one bill computation: the resolved
// readings, derived units, and every charge figure.
type Computation struct {
	FlatNo          string          `json:"flat_no"`
	BillingMonth    string          `json:"billing_month"`
	PreviousReading float64         `json:"previous_reading"`
	PresentReading  float64         `json:"present_reading"`
	UnitsAdjusted   float64         `json:"units_adjusted"`
	UnitsConsumed   float64         `json:"units_consumed"`
	RatePerUnit     decimal.Decimal `json:"rate_per_unit"`
	VariableCharges decimal.Decimal `json:"variable_charges"`
	ElectricDuty    decimal.Decimal `json:"electric_duty"`
	GST             decimal.Decimal `json:"gst"`
	TotalSurcharge  decimal.Decimal `json:"total_surcharge"`
	NetAmount       decimal.Decimal `json:"net_amount"`
	PayableAmount   decimal.Decimal `json:"payable_amount"`
}

// Calculator derives a bill from a present reading and the resolver lookups.
type Calculator struct {
	tariff  *TariffResolver
	reading *ReadingResolver
	log     zerolog.Logger
}

func NewCalculator(tariff *TariffResolver, reading *ReadingResolver, log zerolog.Logger) *Calculator {
	return &Calculator{tariff: tariff, reading: reading, log: log}
}

// Compute resolves the previous reading for the billing month and runs the
// charge pipeline. It has no side effects; calling it twice against an
// unchanged store yields identical output.
func (c *Calculator) Compute(ctx context.Context, in ComputeInput) (*Computation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	previous, err := c.reading.ResolvePreviousReading(ctx, in.FlatNo, in.BillingMonth)
	if err != nil {
		return nil, err
	}
	return c.computeFrom(ctx, in, previous)
}

// ComputeWithPrevious runs the same pipeline against an explicit previous
// reading. Update flows use this: the stored bill keeps its original
// previous reading rather than re-resolving the prior month.
func (c *Calculator) ComputeWithPrevious(ctx context.Context, in ComputeInput, previousReading float64) (*Computation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	return c.computeFrom(ctx, in, previousReading)
}

func (c *Calculator) computeFrom(ctx context.Context, in ComputeInput, previous float64) (*Computation, error) {
	// Absolute value tolerates meter rollover at the cost of masking
	// reversed data entry. Preserved as the established billing policy.
	unitsConsumed := math.Abs(in.PresentReading-previous) + in.UnitsAdjusted

	rate, err := c.tariff.ResolveRate(ctx, unitsConsumed)
	if err != nil {
		return nil, err
	}

	variable := rate.Mul(decimal.NewFromFloat(unitsConsumed))
	net := variable.Add(in.ElectricDuty).Add(in.GST)
	payable := net.Add(in.SurchargeTotal)

	metrics.BillsComputedTotal.Inc()
	c.log.Debug().
		Str("flat_no", in.FlatNo).
		Str("billing_month", in.BillingMonth).
		Float64("units_consumed", unitsConsumed).
		Str("payable_amount", payable.String()).
		Msg("bill computed")

	return &Computation{
		FlatNo:          in.FlatNo,
		BillingMonth:    in.BillingMonth,
		PreviousReading: previous,
		PresentReading:  in.PresentReading,
		UnitsAdjusted:   in.UnitsAdjusted,
		UnitsConsumed:   unitsConsumed,
		RatePerUnit:     rate,
		VariableCharges: variable,
		ElectricDuty:    in.ElectricDuty,
		GST:             in.GST,
		TotalSurcharge:  in.SurchargeTotal,
		NetAmount:       net,
		PayableAmount:   payable,
	}, nil
}

func validateInput(in ComputeInput) error {
	if in.PresentReading < 0 {
		return errors.New(errors.CodeInvalidInput, "present reading must not be negative, got %v", in.PresentReading)
	}
	if in.UnitsAdjusted < 0 {
		return errors.New(errors.CodeInvalidInput, "units adjusted must not be negative, got %v", in.UnitsAdjusted)
	}
	if _, err := PreviousMonth(in.BillingMonth); err != nil {
		return err
	}
	return nil
}
