package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/storage"
	"github.com/nedworks/ebilling/pkg/errors"
)

// TotalSurcharge sums the current month's surcharge with any adjustment
// amounts carried over from prior months. Components arrive already
// resolved; retroactive corrections stay auditable because each month's
// share is a separate input.
func TotalSurcharge(current decimal.Decimal, adjustments ...decimal.Decimal) decimal.Decimal {
	total := current
	for _, a := range adjustments {
		total = total.Add(a)
	}
	return total
}

// SurchargeComponent describes one surcharge share: either a named type to
// resolve against the rate table for a target month, or a manual amount.
type SurchargeComponent struct {
	TypeName string           `json:"type_name,omitempty"`
	Month    string           `json:"month"`
	Manual   *decimal.Decimal `json:"manual,omitempty"`
}

// SurchargeResolver turns components into concrete amounts using the
// effective-dated surcharge rate table.
type SurchargeResolver struct {
	store storage.Storage
}

func NewSurchargeResolver(store storage.Storage) *SurchargeResolver {
	return &SurchargeResolver{store: store}
}

// Resolve returns the amount for one component. Manual entries win outright.
// A named type resolves to the newest rate effective on or before the end of
// the target month; a type with no configured rate resolves to 0.
func (r *SurchargeResolver) Resolve(ctx context.Context, c SurchargeComponent) (decimal.Decimal, error) {
	if c.Manual != nil {
		return *c.Manual, nil
	}
	if c.TypeName == "" {
		return decimal.Zero, nil
	}

	t, err := time.Parse(monthLayout, c.Month)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.CodeInvalidInput, err, "surcharge month %q is not YYYY-MM", c.Month)
	}
	cutoff := t.AddDate(0, 1, 0) // rates effective before the next month apply

	rate, err := r.store.LatestSurchargeRate(ctx, c.TypeName, cutoff)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.CodePersistenceFailure, err, "look up surcharge rate %s for %s", c.TypeName, c.Month)
	}
	if rate == nil {
		return decimal.Zero, nil
	}
	return rate.Amount, nil
}

// ResolveTotal resolves the current-month component and every adjustment
// component, then sums them.
func (r *SurchargeResolver) ResolveTotal(ctx context.Context, current SurchargeComponent, adjustments []SurchargeComponent) (decimal.Decimal, error) {
	currentAmount, err := r.Resolve(ctx, current)
	if err != nil {
		return decimal.Zero, err
	}

	amounts := make([]decimal.Decimal, 0, len(adjustments))
	for _, adj := range adjustments {
		amount, err := r.Resolve(ctx, adj)
		if err != nil {
			return decimal.Zero, err
		}
		amounts = append(amounts, amount)
	}
	return TotalSurcharge(currentAmount, amounts...), nil
}
