package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotRecord is one vehicle's aggregate as observed by one successful
// poll cycle. Rows are append-only; the newest row per vehicle is what
// the API serves after a restart, before the first live cycle completes.
type SnapshotRecord struct {
	ID         int64     `gorm:"autoIncrement;primaryKey"`
	VehicleID  int64     `gorm:"not null;index:idx_snapshot_vehicle_observed"`
	ObservedAt time.Time `gorm:"not null;index:idx_snapshot_vehicle_observed"`

	ServiceCost decimal.Decimal `gorm:"type:numeric;not null"`
	RepairCost  decimal.Decimal `gorm:"type:numeric;not null"`
	UpgradeCost decimal.Decimal `gorm:"type:numeric;not null"`
	TaxCost     decimal.Decimal `gorm:"type:numeric;not null"`
	FuelCost    decimal.Decimal `gorm:"type:numeric;not null"`

	Odometer     float64
	OdometerDate *time.Time

	ReminderID          *int64
	ReminderDescription string `gorm:"size:512"`
	ReminderUrgency     string `gorm:"size:32"`
	ReminderDueDays     *int
	ReminderDueDistance *float64

	Warnings int `gorm:"not null"`
}
