package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/nedworks/ebilling/pkg/errors"
)

// GormStorage implements Storage on top of GORM with a sqlite or postgres
// dialector.
type GormStorage struct {
	db *gorm.DB
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	switch driver {
	case "postgres":
		gormDialector = postgres.Open(dsn)
	case "sqlite":
		gormDialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{db: db}, nil
}

// Migrate creates or updates every table via AutoMigrate. The goose
// migrations under internal/migrate are the canonical schema; AutoMigrate
// keeps ad-hoc and test databases usable without running them.
func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&User{},
		&Flat{},
		&TariffSlab{},
		&GSTRate{},
		&ElectricDutyRate{},
		&SurchargeType{},
		&SurchargeRate{},
		&BillingReading{},
		&BillingCharge{},
		&ConsumptionRecord{},
		&Administrator{},
		&UserClassification{},
		&Setting{},
		&ScheduledJob{},
	)
}

// Users

func (s *GormStorage) CreateUser(ctx context.Context, u User) error {
	return pfail(s.db.WithContext(ctx).Create(&u).Error, "create user")
}

func (s *GormStorage) GetUser(ctx context.Context, personID string) (*User, error) {
	var u User
	result := s.db.WithContext(ctx).First(&u, "person_id = ?", personID)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &u, nil
}

func (s *GormStorage) UpdateUser(ctx context.Context, u User) error {
	return pfail(s.db.WithContext(ctx).Save(&u).Error, "update user")
}

func (s *GormStorage) DeleteUser(ctx context.Context, personID string) error {
	return pfail(s.db.WithContext(ctx).Delete(&User{}, "person_id = ?", personID).Error, "delete user")
}

func (s *GormStorage) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	result := s.db.WithContext(ctx).Order("name").Find(&users)
	return users, result.Error
}

// Flats

func (s *GormStorage) UpsertFlat(ctx context.Context, f Flat) error {
	return pfail(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "flat_no"}},
		UpdateAll: true,
	}).Create(&f).Error, "upsert flat")
}

func (s *GormStorage) ListFlats(ctx context.Context) ([]Flat, error) {
	var flats []Flat
	result := s.db.WithContext(ctx).Order("flat_no").Find(&flats)
	return flats, result.Error
}

// Tariff slabs

func (s *GormStorage) ListTariffSlabs(ctx context.Context) ([]TariffSlab, error) {
	var slabs []TariffSlab
	result := s.db.WithContext(ctx).Order("min_units asc").Find(&slabs)
	return slabs, result.Error
}

func (s *GormStorage) ReplaceTariffSlabs(ctx context.Context, slabs []TariffSlab) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&TariffSlab{}).Error; err != nil {
			return err
		}
		for i := range slabs {
			slabs[i].ID = 0
			if err := tx.Create(&slabs[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return pfail(err, "replace tariff slabs")
}

// Rate tables

func (s *GormStorage) UpsertGSTRate(ctx context.Context, r GSTRate) error {
	return pfail(s.db.WithContext(ctx).Create(&r).Error, "upsert gst rate")
}

func (s *GormStorage) LatestGSTRate(ctx context.Context) (*GSTRate, error) {
	var r GSTRate
	result := s.db.WithContext(ctx).Order("effective_date desc").First(&r)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &r, nil
}

func (s *GormStorage) UpsertElectricDutyRate(ctx context.Context, r ElectricDutyRate) error {
	return pfail(s.db.WithContext(ctx).Create(&r).Error, "upsert electric duty rate")
}

func (s *GormStorage) LatestElectricDutyRate(ctx context.Context) (*ElectricDutyRate, error) {
	var r ElectricDutyRate
	result := s.db.WithContext(ctx).Order("effective_date desc").First(&r)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &r, nil
}

func (s *GormStorage) UpsertSurchargeType(ctx context.Context, t SurchargeType) error {
	return pfail(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&t).Error, "upsert surcharge type")
}

func (s *GormStorage) ListSurchargeTypes(ctx context.Context) ([]SurchargeType, error) {
	var types []SurchargeType
	result := s.db.WithContext(ctx).Order("name").Find(&types)
	return types, result.Error
}

func (s *GormStorage) UpsertSurchargeRate(ctx context.Context, r SurchargeRate) error {
	return pfail(s.db.WithContext(ctx).Create(&r).Error, "upsert surcharge rate")
}

func (s *GormStorage) LatestSurchargeRate(ctx context.Context, typeName string, notAfter time.Time) (*SurchargeRate, error) {
	var r SurchargeRate
	result := s.db.WithContext(ctx).
		Joins("JOIN surcharge_types ON surcharge_types.id = surcharge_rates.surcharge_type_id").
		Where("surcharge_types.name = ? AND surcharge_rates.effective_date <= ?", typeName, notAfter).
		Order("surcharge_rates.effective_date desc").
		First(&r)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &r, nil
}

// Readings

func (s *GormStorage) GetReading(ctx context.Context, flatNo, billingMonth string) (*BillingReading, error) {
	var r BillingReading
	result := s.db.WithContext(ctx).First(&r, "flat_no = ? AND billing_month = ?", flatNo, billingMonth)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &r, nil
}

// Bills

func (s *GormStorage) InsertBill(ctx context.Context, flatNo, billingMonth string, rec BillRecord) (uint, error) {
	var readingID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing BillingReading
		err := tx.First(&existing, "flat_no = ? AND billing_month = ?", flatNo, billingMonth).Error
		if err == nil {
			return errors.New(errors.CodeDuplicateKey, "bill already exists for flat %s month %s", flatNo, billingMonth)
		}
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		reading := BillingReading{
			FlatNo:          flatNo,
			BillingMonth:    billingMonth,
			PreviousReading: rec.PreviousReading,
			PresentReading:  rec.PresentReading,
		}
		if err := tx.Create(&reading).Error; err != nil {
			return err
		}

		charge := chargeFromRecord(reading.ReadingID, rec)
		charge.BillNumber = uuid.NewString()
		charge.Status = BillStatusDue
		if err := tx.Create(&charge).Error; err != nil {
			return err
		}

		readingID = reading.ReadingID
		return nil
	})
	if err != nil {
		if errors.As(err) != nil {
			return 0, err
		}
		return 0, errors.Wrap(errors.CodePersistenceFailure, err, "insert bill for flat %s month %s", flatNo, billingMonth)
	}
	return readingID, nil
}

func (s *GormStorage) UpdateBill(ctx context.Context, flatNo, billingMonth string, rec BillRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reading BillingReading
		err := tx.First(&reading, "flat_no = ? AND billing_month = ?", flatNo, billingMonth).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New(errors.CodeNotFound, "no bill for flat %s month %s", flatNo, billingMonth)
		}
		if err != nil {
			return err
		}

		reading.PreviousReading = rec.PreviousReading
		reading.PresentReading = rec.PresentReading
		if err := tx.Save(&reading).Error; err != nil {
			return err
		}

		return tx.Model(&BillingCharge{}).
			Where("reading_id = ?", reading.ReadingID).
			Updates(map[string]any{
				"rate_per_unit":    rec.RatePerUnit,
				"variable_charges": rec.VariableCharges,
				"electric_duty":    rec.ElectricDuty,
				"gst":              rec.GST,
				"total_surcharge":  rec.TotalSurcharge,
				"net_amount":       rec.NetAmount,
				"payable_amount":   rec.PayableAmount,
			}).Error
	})
	if err != nil {
		if errors.As(err) != nil {
			return err
		}
		return errors.Wrap(errors.CodePersistenceFailure, err, "update bill for flat %s month %s", flatNo, billingMonth)
	}
	return nil
}

func (s *GormStorage) DeleteBill(ctx context.Context, flatNo, billingMonth string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var reading BillingReading
		err := tx.First(&reading, "flat_no = ? AND billing_month = ?", flatNo, billingMonth).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New(errors.CodeNotFound, "no bill for flat %s month %s", flatNo, billingMonth)
		}
		if err != nil {
			return err
		}

		// Charge first: it is owned by the reading.
		if err := tx.Delete(&BillingCharge{}, "reading_id = ?", reading.ReadingID).Error; err != nil {
			return err
		}
		return tx.Delete(&BillingReading{}, "reading_id = ?", reading.ReadingID).Error
	})
	if err != nil {
		if errors.As(err) != nil {
			return err
		}
		return errors.Wrap(errors.CodePersistenceFailure, err, "delete bill for flat %s month %s", flatNo, billingMonth)
	}
	return nil
}

func (s *GormStorage) GetBill(ctx context.Context, flatNo, billingMonth string) (*StoredBill, error) {
	reading, err := s.GetReading(ctx, flatNo, billingMonth)
	if err != nil || reading == nil {
		return nil, err
	}
	var charge BillingCharge
	result := s.db.WithContext(ctx).First(&charge, "reading_id = ?", reading.ReadingID)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &StoredBill{Reading: *reading, Charge: charge}, nil
}

func (s *GormStorage) ListBillsForMonth(ctx context.Context, billingMonth string) ([]StoredBill, error) {
	var readings []BillingReading
	if err := s.db.WithContext(ctx).
		Where("billing_month = ?", billingMonth).
		Order("flat_no").
		Find(&readings).Error; err != nil {
		return nil, err
	}

	bills := make([]StoredBill, 0, len(readings))
	for _, r := range readings {
		var charge BillingCharge
		err := s.db.WithContext(ctx).First(&charge, "reading_id = ?", r.ReadingID).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		bills = append(bills, StoredBill{Reading: r, Charge: charge})
	}
	return bills, nil
}

func (s *GormStorage) SetBillStatus(ctx context.Context, flatNo, billingMonth, status string) error {
	reading, err := s.GetReading(ctx, flatNo, billingMonth)
	if err != nil {
		return pfail(err, "set bill status")
	}
	if reading == nil {
		return errors.New(errors.CodeNotFound, "no bill for flat %s month %s", flatNo, billingMonth)
	}
	result := s.db.WithContext(ctx).Model(&BillingCharge{}).
		Where("reading_id = ?", reading.ReadingID).
		Update("status", status)
	return pfail(result.Error, "set bill status")
}

// Consumption history

func (s *GormStorage) AppendConsumption(ctx context.Context, rec ConsumptionRecord) error {
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now()
	}
	return pfail(s.db.WithContext(ctx).Create(&rec).Error, "append consumption")
}

func (s *GormStorage) ListConsumption(ctx context.Context, personID, flatNo string) ([]ConsumptionRecord, error) {
	q := s.db.WithContext(ctx).Model(&ConsumptionRecord{})
	if personID != "" {
		q = q.Where("person_id = ?", personID)
	}
	if flatNo != "" {
		q = q.Where("flat_no = ?", flatNo)
	}
	var records []ConsumptionRecord
	result := q.Order("billing_month desc").Find(&records)
	return records, result.Error
}

// Settings

func (s *GormStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var setting Setting
	result := s.db.WithContext(ctx).First(&setting, "key = ?", key)
	if result.Error != nil {
		if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return setting.Value, nil
}

func (s *GormStorage) SetSetting(ctx context.Context, key, value string) error {
	setting := Setting{Key: key, Value: value, UpdatedAt: time.Now()}
	return pfail(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&setting).Error, "set setting")
}

func (s *GormStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	status := 0
	if success {
		status = 1
	}
	job := ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    status,
		LastError:      errMsg,
	}
	return pfail(s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&job).Error, "update scheduled job")
}

// Close & Ping

func (s *GormStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func chargeFromRecord(readingID uint, rec BillRecord) BillingCharge {
	return BillingCharge{
		ReadingID:       readingID,
		RatePerUnit:     rec.RatePerUnit,
		VariableCharges: rec.VariableCharges,
		ElectricDuty:    rec.ElectricDuty,
		GST:             rec.GST,
		TotalSurcharge:  rec.TotalSurcharge,
		NetAmount:       rec.NetAmount,
		PayableAmount:   rec.PayableAmount,
	}
}

// pfail tags a storage error with the persistence failure code, leaving nil
// and already-coded errors alone.
func pfail(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.As(err) != nil {
		return err
	}
	return errors.Wrap(errors.CodePersistenceFailure, err, "%s", op)
}
