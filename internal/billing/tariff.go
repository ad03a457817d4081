package billing

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/metrics"
	"github.com/nedworks/ebilling/internal/storage"
	"github.com/nedworks/ebilling/pkg/errors"
)

// TariffResolver maps a unit count to its per-unit rate via the slab table.
type TariffResolver struct {
	store storage.Storage
	log   zerolog.Logger
}

func NewTariffResolver(store storage.Storage, log zerolog.Logger) *TariffResolver {
	return &TariffResolver{store: store, log: log}
}

// ResolveRate returns the rate of the slab whose [MinUnits, MaxUnits] range
// contains unitsConsumed. Slabs are scanned in ascending MinUnits order, so
// an overlapping configuration still resolves deterministically. When no
// slab matches the resolver degrades to rate 0 — a data-quality signal, not
// a failure; it is logged and counted.
func (r *TariffResolver) ResolveRate(ctx context.Context, unitsConsumed float64) (decimal.Decimal, error) {
	slabs, err := r.store.ListTariffSlabs(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.CodePersistenceFailure, err, "list tariff slabs")
	}

	for _, slab := range slabs {
		if unitsConsumed >= slab.MinUnits && unitsConsumed <= slab.MaxUnits {
			return slab.RatePerUnit, nil
		}
	}

	metrics.TariffMissesTotal.Inc()
	r.log.Warn().
		Float64("units_consumed", unitsConsumed).
		Int("slab_count", len(slabs)).
		Msg("no tariff slab matches; using rate 0")
	return decimal.Zero, nil
}
