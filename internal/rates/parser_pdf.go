package rates

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"

	pdf "github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"

	"github.com/nedworks/ebilling/internal/storage"
	"github.com/nedworks/ebilling/pkg/errors"
)

// ParseSlabsFromPDF opens a published tariff schedule PDF at the given path,
// extracts text, and delegates to ParseSlabsFromText.
func ParseSlabsFromPDF(path string) (*Schedule, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	rc, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}

	return ParseSlabsFromText(buf.String())
}

// ParseSlabsFromText parses a plain-text representation of a tariff schedule
// and extracts slab ranges and per-unit rates using regex heuristics.
func ParseSlabsFromText(text string) (*Schedule, error) {
	// Tabular format: "0 - 100    Rs. 16.48 per unit" (also "Rs 16.48/unit").
	slabRangeRe := regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*[-–]\s*([0-9]+(?:\.[0-9]+)?)\s+(?:units?\s+)?(?:Rs\.?|PKR)?\s*([0-9]+(?:\.[0-9]+)?)\s*(?:per unit|/\s*unit)`)
	// Open-ended top slab: "Above 700    Rs. 35.24 per unit".
	slabAboveRe := regexp.MustCompile(`(?:Above|Over|Exceeding)\s+([0-9]+(?:\.[0-9]+)?)\s+(?:units?\s+)?(?:Rs\.?|PKR)?\s*([0-9]+(?:\.[0-9]+)?)\s*(?:per unit|/\s*unit)`)
	// Levy lines that sometimes accompany the slab table.
	dutyRe := regexp.MustCompile(`Electric(?:ity)?\s+Duty[:\s]*(?:Rs\.?|PKR)?\s*([0-9]+(?:\.[0-9]+)?)`)
	gstRe := regexp.MustCompile(`(?:GST|Sales Tax)[:\s@]*\s*([0-9]+(?:\.[0-9]+)?)\s*%?`)

	var slabs []storage.TariffSlab
	for _, m := range slabRangeRe.FindAllStringSubmatch(text, -1) {
		min, err1 := strconv.ParseFloat(m[1], 64)
		max, err2 := strconv.ParseFloat(m[2], 64)
		rate, err3 := decimal.NewFromString(m[3])
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if max < min {
			return nil, errors.New(errors.CodeMisconfiguredTariff, "slab range %s-%s is inverted", m[1], m[2])
		}
		slabs = append(slabs, storage.TariffSlab{MinUnits: min, MaxUnits: max, RatePerUnit: rate})
	}
	for _, m := range slabAboveRe.FindAllStringSubmatch(text, -1) {
		min, err1 := strconv.ParseFloat(m[1], 64)
		rate, err2 := decimal.NewFromString(m[2])
		if err1 != nil || err2 != nil {
			continue
		}
		// "Above N" starts at the first unit past N.
		slabs = append(slabs, storage.TariffSlab{MinUnits: min + 1, MaxUnits: openEndedMax, RatePerUnit: rate})
	}

	if len(slabs) == 0 {
		return nil, errors.New(errors.CodeInvalidInput, "no tariff slabs found in schedule text")
	}
	sort.Slice(slabs, func(i, j int) bool { return slabs[i].MinUnits < slabs[j].MinUnits })

	sched := &Schedule{Slabs: slabs}
	if m := dutyRe.FindStringSubmatch(text); m != nil {
		if d, err := decimal.NewFromString(m[1]); err == nil {
			sched.ElectricDuty = &d
		}
	}
	if m := gstRe.FindStringSubmatch(text); m != nil {
		if g, err := decimal.NewFromString(m[1]); err == nil {
			sched.GSTPercent = &g
		}
	}
	return sched, nil
}

// openEndedMax caps "Above N" slabs; no meter reading approaches it.
const openEndedMax = 1e9
