package coordinator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lubelogger-bridge/config"
	"lubelogger-bridge/internal/lubelogger"
	"lubelogger-bridge/internal/model"
	"lubelogger-bridge/internal/notification"
	"lubelogger-bridge/internal/store"
)

// mockClient is a mock implementation of the APIClient interface.
type mockClient struct {
	VehiclesFunc  func(ctx context.Context) ([]lubelogger.Vehicle, error)
	RecordsFunc   func(ctx context.Context, vehicleID int64, category lubelogger.Category) ([]lubelogger.Record, error)
	RemindersFunc func(ctx context.Context, vehicleID int64) ([]lubelogger.Reminder, error)
}

func (m *mockClient) Vehicles(ctx context.Context) ([]lubelogger.Vehicle, error) {
	return m.VehiclesFunc(ctx)
}

func (m *mockClient) Records(ctx context.Context, vehicleID int64, category lubelogger.Category) ([]lubelogger.Record, error) {
	return m.RecordsFunc(ctx, vehicleID, category)
}

func (m *mockClient) Reminders(ctx context.Context, vehicleID int64) ([]lubelogger.Reminder, error) {
	return m.RemindersFunc(ctx, vehicleID)
}

// mockStore is a mock implementation of the store.Store interface.
type mockStore struct {
	Upserted []model.Vehicle
	Appended []model.SnapshotRecord
	Removed  []int64
}

var _ store.Store = (*mockStore)(nil)

func (m *mockStore) UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) error {
	m.Upserted = append(m.Upserted, vehicles...)
	return nil
}

func (m *mockStore) RemoveVehicle(ctx context.Context, vehicleID int64) error {
	m.Removed = append(m.Removed, vehicleID)
	return nil
}

func (m *mockStore) AppendSnapshots(ctx context.Context, snapshots []model.SnapshotRecord) error {
	m.Appended = append(m.Appended, snapshots...)
	return nil
}

func (m *mockStore) LatestSnapshots(ctx context.Context) (map[int64]model.SnapshotRecord, error) {
	return nil, nil
}

func (m *mockStore) CostHistory(ctx context.Context, vehicleID int64, since time.Time) ([]model.SnapshotRecord, error) {
	return nil, nil
}

func (m *mockStore) DB() *gorm.DB { return nil }

// mockNotifier records dispatched alerts.
type mockNotifier struct {
	Alerts []notification.ReminderAlert
}

func (m *mockNotifier) Dispatch(alert notification.ReminderAlert) {
	m.Alerts = append(m.Alerts, alert)
}

func testConfig() *config.Config {
	return &config.Config{
		LubeLogger: config.LubeLoggerConfig{
			Interval:     time.Minute,
			FetchWorkers: 2,
			DistanceUnit: "miles",
		},
	}
}

func twoVehicles() []lubelogger.Vehicle {
	return []lubelogger.Vehicle{
		{ID: 1, Make: "Toyota", Model: "Corolla", Year: 2016},
		{ID: 2, Make: "Honda", Model: "Civic", Year: 2019},
	}
}

// healthyClient serves both vehicles with one service record each.
func healthyClient() *mockClient {
	return &mockClient{
		VehiclesFunc: func(ctx context.Context) ([]lubelogger.Vehicle, error) {
			return twoVehicles(), nil
		},
		RecordsFunc: func(ctx context.Context, vehicleID int64, category lubelogger.Category) ([]lubelogger.Record, error) {
			if category == lubelogger.CategoryService {
				return []lubelogger.Record{{ID: vehicleID * 10, Date: "2025-06-01", Cost: fmt.Sprintf("%d", vehicleID*100), Odometer: "5000"}}, nil
			}
			return nil, nil
		},
		RemindersFunc: func(ctx context.Context, vehicleID int64) ([]lubelogger.Reminder, error) {
			return nil, nil
		},
	}
}

func TestSyncOnce_PublishesSnapshot(t *testing.T) {
	st := &mockStore{}
	coord := New(testConfig(), healthyClient(), st, nil)

	coord.SyncOnce(context.Background())

	set := coord.Snapshot()
	require.Len(t, set.Vehicles, 2)
	assert.Equal(t, "100", set.Vehicles[1].Snapshot.Costs[lubelogger.CategoryService].String())
	assert.Equal(t, "200", set.Vehicles[2].Snapshot.Costs[lubelogger.CategoryService].String())

	status := coord.Status()
	assert.True(t, status.Available)
	assert.False(t, status.NeedsReauth)
	assert.False(t, status.LastSync.IsZero())

	// The cycle was mirrored into the store.
	assert.Len(t, st.Upserted, 2)
	assert.Len(t, st.Appended, 2)
}

func TestSyncOnce_PerVehicleIsolation(t *testing.T) {
	client := healthyClient()
	coord := New(testConfig(), client, &mockStore{}, nil)

	// First cycle: both vehicles healthy.
	coord.SyncOnce(context.Background())
	before := coord.Snapshot()
	require.Len(t, before.Vehicles, 2)

	// Second cycle: vehicle 1's fetches fail, vehicle 2 reports new data.
	client.RecordsFunc = func(ctx context.Context, vehicleID int64, category lubelogger.Category) ([]lubelogger.Record, error) {
		if vehicleID == 1 {
			return nil, &lubelogger.ConnectivityError{Op: "list records", Err: fmt.Errorf("boom")}
		}
		if category == lubelogger.CategoryService {
			return []lubelogger.Record{{ID: 20, Date: "2025-06-10", Cost: "999", Odometer: "6000"}}, nil
		}
		return nil, nil
	}
	coord.SyncOnce(context.Background())

	after := coord.Snapshot()
	require.Len(t, after.Vehicles, 2)

	// Vehicle 1 keeps its stale-but-valid aggregate.
	assert.Equal(t, before.Vehicles[1].Snapshot, after.Vehicles[1].Snapshot)
	// Vehicle 2 updated.
	assert.Equal(t, "999", after.Vehicles[2].Snapshot.Costs[lubelogger.CategoryService].String())

	// A per-vehicle failure does not make the coordinator unavailable.
	assert.True(t, coord.Status().Available)
}

func TestSyncOnce_DirectoryFailureRetainsSnapshot(t *testing.T) {
	client := healthyClient()
	coord := New(testConfig(), client, &mockStore{}, nil)

	coord.SyncOnce(context.Background())
	before := coord.Snapshot()

	client.VehiclesFunc = func(ctx context.Context) ([]lubelogger.Vehicle, error) {
		return nil, &lubelogger.ConnectivityError{Op: "list vehicles", Err: fmt.Errorf("down")}
	}
	coord.SyncOnce(context.Background())

	// The exact same set, untouched: publication never happened.
	assert.Same(t, before, coord.Snapshot())

	status := coord.Status()
	assert.False(t, status.Available)
	assert.False(t, status.NeedsReauth)
	assert.NotEmpty(t, status.LastError)
	// The last successful sync time survives the failed cycle.
	assert.Equal(t, before.SyncedAt, status.LastSync)
}

func TestSyncOnce_AuthFailureIsDistinguished(t *testing.T) {
	t.Run("on the directory listing", func(t *testing.T) {
		coord := New(testConfig(), &mockClient{
			VehiclesFunc: func(ctx context.Context) ([]lubelogger.Vehicle, error) {
				return nil, &lubelogger.AuthError{Op: "list vehicles"}
			},
		}, &mockStore{}, nil)

		coord.SyncOnce(context.Background())
		assert.True(t, coord.Status().NeedsReauth)
	})

	t.Run("during a per-vehicle fetch", func(t *testing.T) {
		client := healthyClient()
		coord := New(testConfig(), client, &mockStore{}, nil)

		coord.SyncOnce(context.Background())
		before := coord.Snapshot()

		client.RecordsFunc = func(ctx context.Context, vehicleID int64, category lubelogger.Category) ([]lubelogger.Record, error) {
			return nil, &lubelogger.AuthError{Op: "list records"}
		}
		coord.SyncOnce(context.Background())

		// Auth failure aborts the whole cycle rather than degrading to
		// per-vehicle staleness.
		assert.Same(t, before, coord.Snapshot())
		assert.True(t, coord.Status().NeedsReauth)
	})
}

func TestSyncOnce_RemovalDebounce(t *testing.T) {
	client := healthyClient()
	st := &mockStore{}
	coord := New(testConfig(), client, st, nil)

	coord.SyncOnce(context.Background())
	require.Len(t, coord.Snapshot().Vehicles, 2)

	// Vehicle 2 disappears from the directory listing.
	client.VehiclesFunc = func(ctx context.Context) ([]lubelogger.Vehicle, error) {
		return twoVehicles()[:1], nil
	}

	// Absent once: carried forward against a transient omission.
	coord.SyncOnce(context.Background())
	set := coord.Snapshot()
	require.Len(t, set.Vehicles, 2)
	_, stillThere := set.Vehicles[2]
	assert.True(t, stillThere)
	assert.Empty(t, st.Removed)

	// Absent twice in a row: removed.
	coord.SyncOnce(context.Background())
	set = coord.Snapshot()
	require.Len(t, set.Vehicles, 1)
	assert.Equal(t, []int64{2}, st.Removed)
}

func TestSyncOnce_ReappearanceResetsDebounce(t *testing.T) {
	client := healthyClient()
	coord := New(testConfig(), client, &mockStore{}, nil)

	coord.SyncOnce(context.Background())

	// Absent once...
	client.VehiclesFunc = func(ctx context.Context) ([]lubelogger.Vehicle, error) {
		return twoVehicles()[:1], nil
	}
	coord.SyncOnce(context.Background())

	// ...then back. The absence counter must reset.
	client.VehiclesFunc = func(ctx context.Context) ([]lubelogger.Vehicle, error) {
		return twoVehicles(), nil
	}
	coord.SyncOnce(context.Background())

	// Gone again: only the first absence of a fresh streak.
	client.VehiclesFunc = func(ctx context.Context) ([]lubelogger.Vehicle, error) {
		return twoVehicles()[:1], nil
	}
	coord.SyncOnce(context.Background())

	_, stillThere := coord.Snapshot().Vehicles[2]
	assert.True(t, stillThere)
}

func TestResolve(t *testing.T) {
	coord := New(testConfig(), healthyClient(), &mockStore{}, nil)

	// Before any poll the directory is empty.
	_, err := coord.Resolve(1)
	var notFound *lubelogger.NotFoundError
	require.ErrorAs(t, err, &notFound)

	coord.SyncOnce(context.Background())

	vehicle, err := coord.Resolve(1)
	require.NoError(t, err)
	assert.Equal(t, "Toyota", vehicle.Make)

	_, err = coord.Resolve(99)
	assert.ErrorAs(t, err, &notFound)
}

func TestSyncOnce_DispatchesOverdueReminderAlertOnce(t *testing.T) {
	client := healthyClient()
	client.RemindersFunc = func(ctx context.Context, vehicleID int64) ([]lubelogger.Reminder, error) {
		if vehicleID != 1 {
			return nil, nil
		}
		return []lubelogger.Reminder{
			{ID: 5, Description: "Oil change", Urgency: "PastDue", Metric: "Date", DueDate: "2020-01-01"},
		}, nil
	}

	notifier := &mockNotifier{}
	coord := New(testConfig(), client, &mockStore{}, notifier)

	coord.SyncOnce(context.Background())
	require.Len(t, notifier.Alerts, 1)
	assert.Equal(t, int64(1), notifier.Alerts[0].VehicleID)
	assert.Equal(t, "Oil change", notifier.Alerts[0].Description)

	// The same reminder does not alert again on the next cycle.
	coord.SyncOnce(context.Background())
	assert.Len(t, notifier.Alerts, 1)
}
