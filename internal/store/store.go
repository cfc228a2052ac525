package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lubelogger-bridge/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	// UpsertVehicles writes the directory listing from a successful poll.
	UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) error
	// RemoveVehicle deletes a vehicle that has aged out of the directory.
	RemoveVehicle(ctx context.Context, vehicleID int64) error
	// AppendSnapshots appends one cycle's aggregate rows.
	AppendSnapshots(ctx context.Context, snapshots []model.SnapshotRecord) error
	// LatestSnapshots returns the newest snapshot row per known vehicle.
	LatestSnapshots(ctx context.Context) (map[int64]model.SnapshotRecord, error)
	// CostHistory returns a vehicle's snapshot rows observed since a cutoff.
	CostHistory(ctx context.Context, vehicleID int64, since time.Time) ([]model.SnapshotRecord, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// UpsertVehicles batch-upserts the vehicle directory keyed on the
// server-assigned id.
func (s *gormStore) UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) error {
	if len(vehicles) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "make", "model", "year", "license_plate", "is_electric", "odometer_unit", "updated_at"}),
	}).Create(&vehicles).Error
	if err != nil {
		return fmt.Errorf("batch upsert vehicles failed: %w", err)
	}
	return nil
}

func (s *gormStore) RemoveVehicle(ctx context.Context, vehicleID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vehicle_id = ?", vehicleID).Delete(&model.SnapshotRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete snapshot rows for vehicle %d: %w", vehicleID, err)
		}
		if err := tx.Delete(&model.Vehicle{}, vehicleID).Error; err != nil {
			return fmt.Errorf("failed to delete vehicle %d: %w", vehicleID, err)
		}
		return nil
	})
}

func (s *gormStore) AppendSnapshots(ctx context.Context, snapshots []model.SnapshotRecord) error {
	if len(snapshots) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&snapshots).Error; err != nil {
		return fmt.Errorf("failed to append snapshot rows: %w", err)
	}
	return nil
}

// LatestSnapshots fetches snapshot rows newest first and keeps the first
// row seen per vehicle.
func (s *gormStore) LatestSnapshots(ctx context.Context) (map[int64]model.SnapshotRecord, error) {
	var rows []model.SnapshotRecord
	if err := s.db.WithContext(ctx).Order("observed_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot rows: %w", err)
	}

	latest := make(map[int64]model.SnapshotRecord, len(rows))
	for _, row := range rows {
		if _, seen := latest[row.VehicleID]; !seen {
			latest[row.VehicleID] = row
		}
	}
	return latest, nil
}

func (s *gormStore) CostHistory(ctx context.Context, vehicleID int64, since time.Time) ([]model.SnapshotRecord, error) {
	var rows []model.SnapshotRecord
	err := s.db.WithContext(ctx).
		Where("vehicle_id = ? AND observed_at >= ?", vehicleID, since).
		Order("observed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cost history for vehicle %d: %w", vehicleID, err)
	}
	return rows, nil
}
