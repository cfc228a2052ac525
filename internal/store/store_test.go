package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"lubelogger-bridge/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormStore_UpsertVehicles(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "vehicles" .* ON CONFLICT \("id"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectCommit()

	err := s.UpsertVehicles(context.Background(), []model.Vehicle{
		{ID: 1, DisplayName: "2016 Toyota Corolla"},
		{ID: 2, DisplayName: "2021 Tesla Model 3", IsElectric: true},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_UpsertVehicles_EmptyListIsNoOp(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	// No expectations: an empty directory page must not touch the database.
	err := s.UpsertVehicles(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_RemoveVehicle(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "snapshot_records" WHERE vehicle_id = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "vehicles" WHERE "vehicles"."id" = $1`)).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.RemoveVehicle(context.Background(), 7)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_RemoveVehicle_RollsBackOnError(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "snapshot_records"`)).
		WithArgs(int64(7)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.RemoveVehicle(context.Background(), 7)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_AppendSnapshots(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "snapshot_records"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := s.AppendSnapshots(context.Background(), []model.SnapshotRecord{
		{VehicleID: 1, ObservedAt: now, Odometer: 12345},
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_LatestSnapshots(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	now := time.Now()

	// Rows arrive newest first; only the first row per vehicle survives.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "snapshot_records"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "vehicle_id", "observed_at", "service_cost", "odometer"}).
			AddRow(30, 1, now, "150.00", 12500.0).
			AddRow(29, 2, now, "80.50", 9000.0).
			AddRow(28, 1, now.Add(-time.Hour), "120.00", 12400.0))

	latest, err := s.LatestSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(30), latest[1].ID)
	assert.Equal(t, "150", latest[1].ServiceCost.String())
	assert.Equal(t, int64(29), latest[2].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CostHistory(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	since := time.Now().Add(-90 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "snapshot_records" WHERE vehicle_id = $1 AND observed_at >= $2`)).
		WithArgs(int64(1), since).
		WillReturnRows(sqlmock.NewRows([]string{"id", "vehicle_id", "fuel_cost"}).
			AddRow(1, 1, "40.00").
			AddRow(2, 1, "45.10"))

	rows, err := s.CostHistory(context.Background(), 1, since)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "45.1", rows[1].FuelCost.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
