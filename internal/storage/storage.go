package storage

import (
	"context"
	"time"
)

// Storage abstracts persistence for users, rate tables and billing records.
// Lookup methods return (nil, nil) when no row exists; the bill mutation
// methods return coded errors because absence is meaningful there.
type Storage interface {
	// Users
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, personID string) (*User, error)
	UpdateUser(ctx context.Context, u User) error
	DeleteUser(ctx context.Context, personID string) error
	ListUsers(ctx context.Context) ([]User, error)

	// Flats
	UpsertFlat(ctx context.Context, f Flat) error
	ListFlats(ctx context.Context) ([]Flat, error)

	// Tariff slabs, ordered by min_units ascending.
	ListTariffSlabs(ctx context.Context) ([]TariffSlab, error)
	ReplaceTariffSlabs(ctx context.Context, slabs []TariffSlab) error

	// Rate tables, versioned by effective date.
	UpsertGSTRate(ctx context.Context, r GSTRate) error
	LatestGSTRate(ctx context.Context) (*GSTRate, error)
	UpsertElectricDutyRate(ctx context.Context, r ElectricDutyRate) error
	LatestElectricDutyRate(ctx context.Context) (*ElectricDutyRate, error)
	UpsertSurchargeType(ctx context.Context, t SurchargeType) error
	ListSurchargeTypes(ctx context.Context) ([]SurchargeType, error)
	UpsertSurchargeRate(ctx context.Context, r SurchargeRate) error
	// LatestSurchargeRate returns the newest rate for the named type whose
	// effective date is not after the given instant.
	LatestSurchargeRate(ctx context.Context, typeName string, notAfter time.Time) (*SurchargeRate, error)

	// Readings
	GetReading(ctx context.Context, flatNo, billingMonth string) (*BillingReading, error)

	// Bills. Each mutation covers the reading row and its charge row in one
	// transaction; a partial pair never survives.
	InsertBill(ctx context.Context, flatNo, billingMonth string, rec BillRecord) (uint, error)
	UpdateBill(ctx context.Context, flatNo, billingMonth string, rec BillRecord) error
	DeleteBill(ctx context.Context, flatNo, billingMonth string) error
	GetBill(ctx context.Context, flatNo, billingMonth string) (*StoredBill, error)
	ListBillsForMonth(ctx context.Context, billingMonth string) ([]StoredBill, error)
	SetBillStatus(ctx context.Context, flatNo, billingMonth, status string) error

	// Consumption history (append-only).
	AppendConsumption(ctx context.Context, rec ConsumptionRecord) error
	ListConsumption(ctx context.Context, personID, flatNo string) ([]ConsumptionRecord, error)

	// Settings and background job bookkeeping.
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error

	Close() error
	Ping(ctx context.Context) error
}
