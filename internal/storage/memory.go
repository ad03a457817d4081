package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nedworks/ebilling/pkg/errors"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests and
// simple single-process deployments.
type MemoryStorage struct {
	mu sync.RWMutex

	users          map[string]User
	flats          map[string]Flat
	slabs          []TariffSlab
	gstRates       []GSTRate
	dutyRates      []ElectricDutyRate
	surchargeTypes map[string]SurchargeType
	surchargeRates []SurchargeRate
	readings       map[string]BillingReading // key: flat|month
	charges        map[uint]BillingCharge    // key: reading ID
	consumption    []ConsumptionRecord
	settings       map[string]string
	jobs           map[string]ScheduledJob

	nextReadingID   uint
	nextChargeID    uint
	nextSlabID      uint
	nextRateID      uint
	nextSurchTypeID uint
}

func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		users:          make(map[string]User),
		flats:          make(map[string]Flat),
		surchargeTypes: make(map[string]SurchargeType),
		readings:       make(map[string]BillingReading),
		charges:        make(map[uint]BillingCharge),
		settings:       make(map[string]string),
		jobs:           make(map[string]ScheduledJob),
	}
}

func billKey(flatNo, billingMonth string) string { return flatNo + "|" + billingMonth }

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

// Users

func (m *MemoryStorage) CreateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.PersonID]; ok {
		return errors.New(errors.CodeDuplicateKey, "user %s already exists", u.PersonID)
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.PersonID] = u
	return nil
}

func (m *MemoryStorage) GetUser(ctx context.Context, personID string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[personID]
	if !ok {
		return nil, nil
	}
	cp := u
	return &cp, nil
}

func (m *MemoryStorage) UpdateUser(ctx context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.UpdatedAt = time.Now()
	m.users[u.PersonID] = u
	return nil
}

func (m *MemoryStorage) DeleteUser(ctx context.Context, personID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, personID)
	return nil
}

func (m *MemoryStorage) ListUsers(ctx context.Context) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Flats

func (m *MemoryStorage) UpsertFlat(ctx context.Context, f Flat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flats[f.FlatNo] = f
	return nil
}

func (m *MemoryStorage) ListFlats(ctx context.Context) ([]Flat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Flat, 0, len(m.flats))
	for _, f := range m.flats {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FlatNo < out[j].FlatNo })
	return out, nil
}

// Tariff slabs

func (m *MemoryStorage) ListTariffSlabs(ctx context.Context) ([]TariffSlab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TariffSlab, len(m.slabs))
	copy(out, m.slabs)
	sort.Slice(out, func(i, j int) bool { return out[i].MinUnits < out[j].MinUnits })
	return out, nil
}

func (m *MemoryStorage) ReplaceTariffSlabs(ctx context.Context, slabs []TariffSlab) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slabs = nil
	for _, s := range slabs {
		m.nextSlabID++
		s.ID = m.nextSlabID
		m.slabs = append(m.slabs, s)
	}
	return nil
}

// Rate tables

func (m *MemoryStorage) UpsertGSTRate(ctx context.Context, r GSTRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRateID++
	r.ID = m.nextRateID
	m.gstRates = append(m.gstRates, r)
	return nil
}

func (m *MemoryStorage) LatestGSTRate(ctx context.Context) (*GSTRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *GSTRate
	for i := range m.gstRates {
		r := m.gstRates[i]
		if latest == nil || r.EffectiveDate.After(latest.EffectiveDate) {
			cp := r
			latest = &cp
		}
	}
	return latest, nil
}

func (m *MemoryStorage) UpsertElectricDutyRate(ctx context.Context, r ElectricDutyRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRateID++
	r.ID = m.nextRateID
	m.dutyRates = append(m.dutyRates, r)
	return nil
}

func (m *MemoryStorage) LatestElectricDutyRate(ctx context.Context) (*ElectricDutyRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *ElectricDutyRate
	for i := range m.dutyRates {
		r := m.dutyRates[i]
		if latest == nil || r.EffectiveDate.After(latest.EffectiveDate) {
			cp := r
			latest = &cp
		}
	}
	return latest, nil
}

func (m *MemoryStorage) UpsertSurchargeType(ctx context.Context, t SurchargeType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.surchargeTypes[t.Name]; ok {
		t.ID = existing.ID
	} else {
		m.nextSurchTypeID++
		t.ID = m.nextSurchTypeID
	}
	m.surchargeTypes[t.Name] = t
	return nil
}

func (m *MemoryStorage) ListSurchargeTypes(ctx context.Context) ([]SurchargeType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SurchargeType, 0, len(m.surchargeTypes))
	for _, t := range m.surchargeTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStorage) UpsertSurchargeRate(ctx context.Context, r SurchargeRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextRateID++
	r.ID = m.nextRateID
	m.surchargeRates = append(m.surchargeRates, r)
	return nil
}

func (m *MemoryStorage) LatestSurchargeRate(ctx context.Context, typeName string, notAfter time.Time) (*SurchargeRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.surchargeTypes[typeName]
	if !ok {
		return nil, nil
	}
	var latest *SurchargeRate
	for i := range m.surchargeRates {
		r := m.surchargeRates[i]
		if r.SurchargeTypeID != t.ID || r.EffectiveDate.After(notAfter) {
			continue
		}
		if latest == nil || r.EffectiveDate.After(latest.EffectiveDate) {
			cp := r
			latest = &cp
		}
	}
	return latest, nil
}

// Readings

func (m *MemoryStorage) GetReading(ctx context.Context, flatNo, billingMonth string) (*BillingReading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.readings[billKey(flatNo, billingMonth)]
	if !ok {
		return nil, nil
	}
	cp := r
	return &cp, nil
}

// Bills

func (m *MemoryStorage) InsertBill(ctx context.Context, flatNo, billingMonth string, rec BillRecord) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := billKey(flatNo, billingMonth)
	if _, ok := m.readings[key]; ok {
		return 0, errors.New(errors.CodeDuplicateKey, "bill already exists for flat %s month %s", flatNo, billingMonth)
	}

	m.nextReadingID++
	now := time.Now()
	reading := BillingReading{
		ReadingID:       m.nextReadingID,
		FlatNo:          flatNo,
		BillingMonth:    billingMonth,
		PreviousReading: rec.PreviousReading,
		PresentReading:  rec.PresentReading,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.readings[key] = reading

	m.nextChargeID++
	charge := chargeFromRecord(reading.ReadingID, rec)
	charge.ChargeID = m.nextChargeID
	charge.BillNumber = uuid.NewString()
	charge.Status = BillStatusDue
	m.charges[reading.ReadingID] = charge

	return reading.ReadingID, nil
}

func (m *MemoryStorage) UpdateBill(ctx context.Context, flatNo, billingMonth string, rec BillRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := billKey(flatNo, billingMonth)
	reading, ok := m.readings[key]
	if !ok {
		return errors.New(errors.CodeNotFound, "no bill for flat %s month %s", flatNo, billingMonth)
	}

	reading.PreviousReading = rec.PreviousReading
	reading.PresentReading = rec.PresentReading
	reading.UpdatedAt = time.Now()
	m.readings[key] = reading

	charge := m.charges[reading.ReadingID]
	updated := chargeFromRecord(reading.ReadingID, rec)
	updated.ChargeID = charge.ChargeID
	updated.BillNumber = charge.BillNumber
	updated.Status = charge.Status
	m.charges[reading.ReadingID] = updated
	return nil
}

func (m *MemoryStorage) DeleteBill(ctx context.Context, flatNo, billingMonth string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := billKey(flatNo, billingMonth)
	reading, ok := m.readings[key]
	if !ok {
		return errors.New(errors.CodeNotFound, "no bill for flat %s month %s", flatNo, billingMonth)
	}
	delete(m.charges, reading.ReadingID)
	delete(m.readings, key)
	return nil
}

func (m *MemoryStorage) GetBill(ctx context.Context, flatNo, billingMonth string) (*StoredBill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	reading, ok := m.readings[billKey(flatNo, billingMonth)]
	if !ok {
		return nil, nil
	}
	charge, ok := m.charges[reading.ReadingID]
	if !ok {
		return nil, nil
	}
	return &StoredBill{Reading: reading, Charge: charge}, nil
}

func (m *MemoryStorage) ListBillsForMonth(ctx context.Context, billingMonth string) ([]StoredBill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var bills []StoredBill
	for _, r := range m.readings {
		if r.BillingMonth != billingMonth {
			continue
		}
		charge, ok := m.charges[r.ReadingID]
		if !ok {
			continue
		}
		bills = append(bills, StoredBill{Reading: r, Charge: charge})
	}
	sort.Slice(bills, func(i, j int) bool { return bills[i].Reading.FlatNo < bills[j].Reading.FlatNo })
	return bills, nil
}

func (m *MemoryStorage) SetBillStatus(ctx context.Context, flatNo, billingMonth, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reading, ok := m.readings[billKey(flatNo, billingMonth)]
	if !ok {
		return errors.New(errors.CodeNotFound, "no bill for flat %s month %s", flatNo, billingMonth)
	}
	charge := m.charges[reading.ReadingID]
	charge.Status = status
	m.charges[reading.ReadingID] = charge
	return nil
}

// Consumption history

func (m *MemoryStorage) AppendConsumption(ctx context.Context, rec ConsumptionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ConsumptionID = uint(len(m.consumption) + 1)
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	m.consumption = append(m.consumption, rec)
	return nil
}

func (m *MemoryStorage) ListConsumption(ctx context.Context, personID, flatNo string) ([]ConsumptionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ConsumptionRecord
	for _, rec := range m.consumption {
		if personID != "" && rec.PersonID != personID {
			continue
		}
		if flatNo != "" && rec.FlatNo != flatNo {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BillingMonth > out[j].BillingMonth })
	return out, nil
}

// Settings

func (m *MemoryStorage) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStorage) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := 0
	if success {
		status = 1
	}
	m.jobs[name] = ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    status,
		LastError:      errMsg,
	}
	return nil
}
