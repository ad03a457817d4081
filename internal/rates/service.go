package rates

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/storage"
	"github.com/nedworks/ebilling/pkg/errors"
)

// Schedule is the parsed content of a tariff schedule: the slab table plus
// any levy amounts published alongside it.
type Schedule struct {
	Slabs        []storage.TariffSlab
	ElectricDuty *decimal.Decimal
	GSTPercent   *decimal.Decimal
}

// ImportService loads a published tariff schedule and replaces the stored
// slab table with it.
type ImportService struct {
	store storage.Storage
	log   zerolog.Logger
}

func NewImportService(store storage.Storage, log zerolog.Logger) *ImportService {
	return &ImportService{store: store, log: log}
}

// ImportFromPDF parses the schedule PDF at path and replaces the slab table.
// Levy amounts found in the schedule are versioned with today's date.
func (s *ImportService) ImportFromPDF(ctx context.Context, path string) (*Schedule, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.CodeInvalidInput, err, "schedule PDF not found at %s", path)
	}
	sched, err := ParseSlabsFromPDF(path)
	if err != nil {
		return nil, err
	}
	return sched, s.apply(ctx, sched)
}

// ImportFromText is ImportFromPDF for already-extracted schedule text.
func (s *ImportService) ImportFromText(ctx context.Context, text string) (*Schedule, error) {
	sched, err := ParseSlabsFromText(text)
	if err != nil {
		return nil, err
	}
	return sched, s.apply(ctx, sched)
}

func (s *ImportService) apply(ctx context.Context, sched *Schedule) error {
	if err := validateSlabs(sched.Slabs); err != nil {
		return err
	}
	if err := s.store.ReplaceTariffSlabs(ctx, sched.Slabs); err != nil {
		return err
	}
	s.log.Info().Int("slabs", len(sched.Slabs)).Msg("tariff slab table replaced")

	today := time.Now().Truncate(24 * time.Hour)
	if sched.ElectricDuty != nil {
		if err := s.store.UpsertElectricDutyRate(ctx, storage.ElectricDutyRate{
			Amount:        *sched.ElectricDuty,
			EffectiveDate: today,
		}); err != nil {
			return err
		}
	}
	if sched.GSTPercent != nil {
		if err := s.store.UpsertGSTRate(ctx, storage.GSTRate{
			Amount:        *sched.GSTPercent,
			EffectiveDate: today,
		}); err != nil {
			return err
		}
	}
	return nil
}

// validateSlabs rejects tables whose ranges overlap; a reading matching two
// slabs would bill at whichever sorts first.
func validateSlabs(slabs []storage.TariffSlab) error {
	for i := 1; i < len(slabs); i++ {
		if slabs[i].MinUnits <= slabs[i-1].MaxUnits {
			return errors.New(errors.CodeMisconfiguredTariff,
				"slab starting at %v overlaps slab ending at %v",
				slabs[i].MinUnits, slabs[i-1].MaxUnits)
		}
	}
	return nil
}
