package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bill status values carried on a BillingCharge row.
const (
	BillStatusDue    = "Due"
	BillStatusPaid   = "Paid"
	BillStatusUnpaid = "Unpaid"
)

// User type and phase values accepted on a User row.
const (
	UserTypeResidential = "Residential"
	UserTypeCommercial  = "Commercial"

	PhaseSingle = "1-Phase"
	PhaseThree  = "3-Phase"
)

// User is a registered electricity consumer.
type User struct {
	PersonID       string    `json:"person_id" gorm:"primaryKey;column:person_id"`
	Name           string    `json:"name" gorm:"column:name"`
	FlatNo         string    `json:"flat_no" gorm:"column:flat_no"`
	UserType       string    `json:"user_type" gorm:"column:user_type"`
	LoadSanctioned float64   `json:"load_sanctioned" gorm:"column:load_sanctioned"`
	Phase          string    `json:"phase" gorm:"column:phase"`
	CreatedAt      time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// Flat is a billable premises that users are attached to.
type Flat struct {
	FlatNo  string `json:"flat_no" gorm:"primaryKey;column:flat_no"`
	Address string `json:"address,omitempty" gorm:"column:address"`
}

// TariffSlab is one contiguous unit range with its per-unit rate. The slab
// table is expected to partition the non-negative unit line.
type TariffSlab struct {
	ID          uint            `json:"id" gorm:"primaryKey;column:id"`
	MinUnits    float64         `json:"min_units" gorm:"column:min_units"`
	MaxUnits    float64         `json:"max_units" gorm:"column:max_units"`
	RatePerUnit decimal.Decimal `json:"rate_per_unit" gorm:"column:rate_per_unit;type:numeric(12,4)"`
}

// GSTRate is a GST amount versioned by effective date.
type GSTRate struct {
	ID            uint            `json:"id" gorm:"primaryKey;column:id"`
	Amount        decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(12,2)"`
	EffectiveDate time.Time       `json:"effective_date" gorm:"column:effective_date"`
}

// ElectricDutyRate is an electric duty amount versioned by effective date.
type ElectricDutyRate struct {
	ID            uint            `json:"id" gorm:"primaryKey;column:id"`
	Amount        decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(12,2)"`
	EffectiveDate time.Time       `json:"effective_date" gorm:"column:effective_date"`
}

// SurchargeType names a category of surcharge (e.g. fuel adjustment).
type SurchargeType struct {
	ID   uint   `json:"id" gorm:"primaryKey;column:id"`
	Name string `json:"name" gorm:"unique;column:name"`
}

// SurchargeRate is a surcharge amount for a type, versioned by effective date.
type SurchargeRate struct {
	ID              uint            `json:"id" gorm:"primaryKey;column:id"`
	SurchargeTypeID uint            `json:"surcharge_type_id" gorm:"column:surcharge_type_id"`
	Amount          decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(12,2)"`
	EffectiveDate   time.Time       `json:"effective_date" gorm:"column:effective_date"`
}

// BillingReading holds the meter readings for one flat and billing month.
// (flat_no, billing_month) is the natural key and is unique.
type BillingReading struct {
	ReadingID       uint      `json:"reading_id" gorm:"primaryKey;autoIncrement;column:reading_id"`
	FlatNo          string    `json:"flat_no" gorm:"column:flat_no;uniqueIndex:idx_flat_month"`
	BillingMonth    string    `json:"billing_month" gorm:"column:billing_month;uniqueIndex:idx_flat_month"`
	PreviousReading float64   `json:"previous_reading" gorm:"column:previous_reading"`
	PresentReading  float64   `json:"present_reading" gorm:"column:present_reading"`
	CreatedAt       time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// BillingCharge holds the computed charge figures for one reading (1:1,
// owned by it). Deleting the reading deletes the charge.
type BillingCharge struct {
	ChargeID        uint            `json:"charge_id" gorm:"primaryKey;autoIncrement;column:charge_id"`
	ReadingID       uint            `json:"reading_id" gorm:"column:reading_id;uniqueIndex"`
	BillNumber      string          `json:"bill_number" gorm:"column:bill_number"`
	RatePerUnit     decimal.Decimal `json:"rate_per_unit" gorm:"column:rate_per_unit;type:numeric(12,4)"`
	VariableCharges decimal.Decimal `json:"variable_charges" gorm:"column:variable_charges;type:numeric(12,2)"`
	ElectricDuty    decimal.Decimal `json:"electric_duty" gorm:"column:electric_duty;type:numeric(12,2)"`
	GST             decimal.Decimal `json:"gst" gorm:"column:gst;type:numeric(12,2)"`
	TotalSurcharge  decimal.Decimal `json:"total_surcharge" gorm:"column:total_surcharge;type:numeric(12,2)"`
	NetAmount       decimal.Decimal `json:"net_amount" gorm:"column:net_amount;type:numeric(12,2)"`
	PayableAmount   decimal.Decimal `json:"payable_amount" gorm:"column:payable_amount;type:numeric(12,2)"`
	Status          string          `json:"status" gorm:"column:status"`
}

// ConsumptionRecord is an append-only log of units consumed per user per month.
type ConsumptionRecord struct {
	ConsumptionID uint      `json:"consumption_id" gorm:"primaryKey;autoIncrement;column:consumption_id"`
	PersonID      string    `json:"person_id" gorm:"column:person_id"`
	FlatNo        string    `json:"flat_no" gorm:"column:flat_no"`
	BillingMonth  string    `json:"billing_month" gorm:"column:billing_month"`
	UnitsConsumed float64   `json:"units_consumed" gorm:"column:units_consumed"`
	RecordedAt    time.Time `json:"recorded_at" gorm:"column:recorded_at"`
}

func (ConsumptionRecord) TableName() string { return "consumption_history" }

// Administrator is an operator account record. Authentication is out of
// scope; the table exists for reference and reporting.
type Administrator struct {
	ID        uint      `json:"id" gorm:"primaryKey;column:id"`
	Username  string    `json:"username" gorm:"unique;column:username"`
	FullName  string    `json:"full_name" gorm:"column:full_name"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

// UserClassification is static reference data mapping a classification code
// to its description.
type UserClassification struct {
	ID          uint   `json:"id" gorm:"primaryKey;column:id"`
	Code        string `json:"code" gorm:"unique;column:code"`
	Description string `json:"description" gorm:"column:description"`
}

func (UserClassification) TableName() string { return "user_classification" }

// Setting is a small key/value table for operator-tunable knobs, e.g. the
// bulk-bill worker interval.
type Setting struct {
	Key       string    `gorm:"primaryKey;column:key"`
	Value     string    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// ScheduledJob records the last outcome of a background job.
type ScheduledJob struct {
	Name           string    `gorm:"primaryKey;column:name"`
	LastRunAt      time.Time `gorm:"column:last_run_at"`
	LastDurationMs int64     `gorm:"column:last_duration_ms"`
	LastSuccess    int       `gorm:"column:last_success"`
	LastError      string    `gorm:"column:last_error"`
}

// BillRecord carries the values the store writes for one bill: the reading
// pair plus every computed charge figure. The calculator produces these
// numbers; the store never recomputes them.
type BillRecord struct {
	PreviousReading float64
	PresentReading  float64
	RatePerUnit     decimal.Decimal
	VariableCharges decimal.Decimal
	ElectricDuty    decimal.Decimal
	GST             decimal.Decimal
	TotalSurcharge  decimal.Decimal
	NetAmount       decimal.Decimal
	PayableAmount   decimal.Decimal
}

// StoredBill is a reading row joined with its charge row.
type StoredBill struct {
	Reading BillingReading `json:"reading"`
	Charge  BillingCharge  `json:"charge"`
}
