package billing

import (
	"context"
	"time"

	"github.com/nedworks/ebilling/internal/storage"
	"github.com/nedworks/ebilling/pkg/errors"
)

// monthLayout is the billing period key format, e.g. "2025-03".
const monthLayout = "2006-01"

// PreviousMonth returns the calendar month immediately preceding the given
// billing month.
func PreviousMonth(billingMonth string) (string, error) {
	t, err := time.Parse(monthLayout, billingMonth)
	if err != nil {
		return "", errors.Wrap(errors.CodeInvalidInput, err, "billing month %q is not YYYY-MM", billingMonth)
	}
	return t.AddDate(0, -1, 0).Format(monthLayout), nil
}

// ReadingResolver finds the meter reading a new bill should start from.
type ReadingResolver struct {
	store storage.Storage
}

func NewReadingResolver(store storage.Storage) *ReadingResolver {
	return &ReadingResolver{store: store}
}

// ResolvePreviousReading returns the present reading stored for the flat in
// the month preceding billingMonth. Absence means a new account or first
// bill and resolves to 0, not an error.
func (r *ReadingResolver) ResolvePreviousReading(ctx context.Context, flatNo, billingMonth string) (float64, error) {
	prevMonth, err := PreviousMonth(billingMonth)
	if err != nil {
		return 0, err
	}

	reading, err := r.store.GetReading(ctx, flatNo, prevMonth)
	if err != nil {
		return 0, errors.Wrap(errors.CodePersistenceFailure, err, "look up reading for flat %s month %s", flatNo, prevMonth)
	}
	if reading == nil {
		return 0, nil
	}
	return reading.PresentReading, nil
}
