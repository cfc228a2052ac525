package coordinator

import (
	"context"
	"errors"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"lubelogger-bridge/config"
	"lubelogger-bridge/internal/aggregate"
	"lubelogger-bridge/internal/lubelogger"
	"lubelogger-bridge/internal/model"
	"lubelogger-bridge/internal/notification"
	"lubelogger-bridge/internal/store"
)

// APIClient is the slice of the LubeLogger client the coordinator reads
// through.
type APIClient interface {
	Vehicles(ctx context.Context) ([]lubelogger.Vehicle, error)
	Records(ctx context.Context, vehicleID int64, category lubelogger.Category) ([]lubelogger.Record, error)
	Reminders(ctx context.Context, vehicleID int64) ([]lubelogger.Reminder, error)
}

// Notifier receives reminder alerts raised by poll cycles.
type Notifier interface {
	Dispatch(alert notification.ReminderAlert)
}

// VehicleState pairs a vehicle's directory entry with its aggregate.
type VehicleState struct {
	Vehicle  lubelogger.Vehicle `json:"vehicle"`
	Snapshot aggregate.Snapshot `json:"snapshot"`
}

// SnapshotSet is one fully-consistent published view of every vehicle.
// It is immutable after publication; readers hold it without locks.
type SnapshotSet struct {
	Vehicles map[int64]VehicleState `json:"vehicles"`
	SyncedAt time.Time              `json:"synced_at"`
}

// Status describes the coordinator's relationship with the upstream
// server as of the most recent cycle.
type Status struct {
	Available   bool      `json:"available"`
	NeedsReauth bool      `json:"needs_reauth"`
	LastSync    time.Time `json:"last_sync,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
}

// Coordinator owns the polling cadence against the LubeLogger server and
// the single published snapshot set consumed by every observer. All
// mutation happens on the poll goroutine; publication is an atomic
// pointer swap, so readers always see either the previous complete set
// or the new one, never an interleaving.
type Coordinator struct {
	cfg      *config.Config
	client   APIClient
	store    store.Store
	notifier Notifier

	current   atomic.Pointer[SnapshotSet]
	status    atomic.Pointer[Status]
	directory atomic.Pointer[map[int64]lubelogger.Vehicle]

	// Bookkeeping below is touched only by the poll goroutine.
	missing  map[int64]int   // consecutive directory polls a vehicle has been absent
	notified map[int64]int64 // vehicle id -> reminder id already alerted

	syncing atomic.Bool
}

// New creates a coordinator. The notifier may be nil when push alerts
// are not configured.
func New(cfg *config.Config, client APIClient, st store.Store, notifier Notifier) *Coordinator {
	c := &Coordinator{
		cfg:      cfg,
		client:   client,
		store:    st,
		notifier: notifier,
		missing:  make(map[int64]int),
		notified: make(map[int64]int64),
	}
	c.current.Store(&SnapshotSet{Vehicles: map[int64]VehicleState{}})
	c.status.Store(&Status{})
	emptyDir := map[int64]lubelogger.Vehicle{}
	c.directory.Store(&emptyDir)
	return c
}

// Snapshot returns the last published snapshot set. The returned set must
// be treated as read-only.
func (c *Coordinator) Snapshot() *SnapshotSet {
	return c.current.Load()
}

// Status returns the coordinator's availability as of the last cycle.
func (c *Coordinator) Status() Status {
	return *c.status.Load()
}

// Resolve looks a vehicle up in the directory maintained by the polling
// loop. It never triggers a synchronous poll; write latency stays
// independent of poll cadence.
func (c *Coordinator) Resolve(vehicleID int64) (lubelogger.Vehicle, error) {
	dir := *c.directory.Load()
	if vehicle, ok := dir[vehicleID]; ok {
		return vehicle, nil
	}
	return lubelogger.Vehicle{}, &lubelogger.NotFoundError{VehicleID: vehicleID}
}

// Run starts the polling loop. It performs one immediate cycle, then
// polls on the configured interval until the context is cancelled.
// Cancellation abandons any in-flight cycle; the last published snapshot
// stays intact because publication is all-or-nothing.
func (c *Coordinator) Run(ctx context.Context) {
	log.Println("Starting sync coordinator...")
	c.SyncOnce(ctx)

	timer := time.NewTimer(c.cfg.LubeLogger.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Sync coordinator shutting down.")
			return
		case <-timer.C:
			c.SyncOnce(ctx)
			timer.Reset(c.cfg.LubeLogger.Interval)
		}
	}
}

// vehicleResult is one vehicle's outcome within a cycle.
type vehicleResult struct {
	vehicle  lubelogger.Vehicle
	snapshot aggregate.Snapshot
	warnings []string
	err      error
}

// SyncOnce executes a single poll cycle. A tick that arrives while a
// cycle is still in flight is skipped, not queued, to bound resource use
// against a slow server.
func (c *Coordinator) SyncOnce(ctx context.Context) {
	if !c.syncing.CompareAndSwap(false, true) {
		log.Println("Previous sync cycle still in flight; skipping this tick.")
		return
	}
	defer c.syncing.Store(false)

	vehicles, err := c.client.Vehicles(ctx)
	if err != nil {
		// Directory failure aborts the whole cycle; the previous snapshot
		// set is retained untouched and unavailability is reported once.
		c.reportFailure(err)
		return
	}

	dir := make(map[int64]lubelogger.Vehicle, len(vehicles))
	for _, vehicle := range vehicles {
		dir[vehicle.ID] = vehicle
	}
	c.directory.Store(&dir)

	prev := c.current.Load()
	now := time.Now().UTC()

	results := make([]vehicleResult, len(vehicles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.LubeLogger.FetchWorkers)
	for i, vehicle := range vehicles {
		g.Go(func() error {
			var previous *aggregate.Odometer
			if prevState, ok := prev.Vehicles[vehicle.ID]; ok {
				previous = prevState.Snapshot.LastOdometer
			}
			snapshot, warnings, err := c.fetchVehicle(gctx, vehicle, previous, now)
			results[i] = vehicleResult{vehicle: vehicle, snapshot: snapshot, warnings: warnings, err: err}

			// An auth failure is not a per-vehicle condition; cancel the
			// remaining fetches and abort the cycle.
			var authErr *lubelogger.AuthError
			if errors.As(err, &authErr) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.reportFailure(err)
		return
	}

	next := &SnapshotSet{
		Vehicles: make(map[int64]VehicleState, len(vehicles)),
		SyncedAt: now,
	}
	var fresh []vehicleResult
	for _, result := range results {
		if result.err != nil {
			// Per-vehicle isolation: keep the stale-but-valid entry.
			log.Printf("Warning: failed to fetch vehicle %d (%s): %v", result.vehicle.ID, result.vehicle.DisplayName(), result.err)
			if prevState, ok := prev.Vehicles[result.vehicle.ID]; ok {
				next.Vehicles[result.vehicle.ID] = VehicleState{
					Vehicle:  result.vehicle,
					Snapshot: prevState.Snapshot,
				}
			}
			continue
		}
		for _, warning := range result.warnings {
			log.Printf("Data quality warning for vehicle %d: %s", result.vehicle.ID, warning)
		}
		next.Vehicles[result.vehicle.ID] = VehicleState{
			Vehicle:  result.vehicle,
			Snapshot: result.snapshot,
		}
		fresh = append(fresh, result)
	}

	c.debounceRemovals(ctx, prev, dir, next)

	c.current.Store(next)
	c.status.Store(&Status{Available: true, LastSync: now})

	c.persist(ctx, vehicles, fresh, now)
	c.dispatchAlerts(next)
}

// fetchVehicle pulls every record category and the reminders for one
// vehicle and aggregates them. Any fetch error fails the vehicle as a
// whole; a partially-fetched vehicle would publish cost totals that no
// single server state ever contained.
func (c *Coordinator) fetchVehicle(ctx context.Context, vehicle lubelogger.Vehicle, previous *aggregate.Odometer, now time.Time) (aggregate.Snapshot, []string, error) {
	records := make(map[lubelogger.Category][]lubelogger.Record, len(lubelogger.CostCategories)+1)
	for _, category := range append(lubelogger.CostCategories, lubelogger.CategoryOdometer) {
		list, err := c.client.Records(ctx, vehicle.ID, category)
		if err != nil {
			return aggregate.Snapshot{}, nil, err
		}
		records[category] = list
	}

	reminders, err := c.client.Reminders(ctx, vehicle.ID)
	if err != nil {
		return aggregate.Snapshot{}, nil, err
	}

	snapshot, warnings := aggregate.Build(aggregate.Input{
		Records:   records,
		Reminders: reminders,
		Previous:  previous,
		Now:       now,
	})
	return snapshot, warnings, nil
}

// debounceRemovals carries forward vehicles that vanished from the
// directory listing until they have been absent from two consecutive
// successful polls, guarding against transient omissions.
func (c *Coordinator) debounceRemovals(ctx context.Context, prev *SnapshotSet, dir map[int64]lubelogger.Vehicle, next *SnapshotSet) {
	for id := range dir {
		delete(c.missing, id)
	}
	for id, state := range prev.Vehicles {
		if _, listed := dir[id]; listed {
			continue
		}
		c.missing[id]++
		if c.missing[id] < 2 {
			next.Vehicles[id] = state
			continue
		}
		delete(c.missing, id)
		delete(c.notified, id)
		log.Printf("Vehicle %d absent from two consecutive directory polls; removing.", id)
		if err := c.store.RemoveVehicle(ctx, id); err != nil {
			log.Printf("Warning: failed to remove vehicle %d from store: %v", id, err)
		}
	}
}

// reportFailure publishes an unavailability status while leaving the
// snapshot set untouched. Auth failures are distinguished so the caller
// can prompt for reauthentication instead of retrying forever.
func (c *Coordinator) reportFailure(err error) {
	last := c.status.Load()
	status := &Status{
		LastSync:  last.LastSync,
		LastError: err.Error(),
	}
	var authErr *lubelogger.AuthError
	if errors.As(err, &authErr) {
		status.NeedsReauth = true
		log.Printf("Sync cycle aborted, reauthentication required: %v", err)
	} else {
		log.Printf("Sync cycle aborted: %v", err)
	}
	c.status.Store(status)
}

// persist mirrors the cycle into the store. Persistence failures are
// logged, not fatal; the published snapshot is the source of truth.
func (c *Coordinator) persist(ctx context.Context, listed []lubelogger.Vehicle, fresh []vehicleResult, now time.Time) {
	rows := make([]model.Vehicle, 0, len(listed))
	for _, vehicle := range listed {
		rows = append(rows, model.Vehicle{
			ID:           vehicle.ID,
			DisplayName:  vehicle.DisplayName(),
			Make:         vehicle.Make,
			Model:        vehicle.Model,
			Year:         vehicle.Year,
			LicensePlate: vehicle.LicensePlate,
			IsElectric:   vehicle.IsElectric,
			OdometerUnit: c.cfg.LubeLogger.DistanceUnit,
		})
	}
	if err := c.store.UpsertVehicles(ctx, rows); err != nil {
		log.Printf("Warning: failed to persist vehicle directory: %v", err)
	}

	snapshots := make([]model.SnapshotRecord, 0, len(fresh))
	for _, result := range fresh {
		snapshots = append(snapshots, snapshotRow(result, now))
	}
	if err := c.store.AppendSnapshots(ctx, snapshots); err != nil {
		log.Printf("Warning: failed to persist snapshot rows: %v", err)
	}
}

func snapshotRow(result vehicleResult, now time.Time) model.SnapshotRecord {
	snapshot := result.snapshot
	row := model.SnapshotRecord{
		VehicleID:   result.vehicle.ID,
		ObservedAt:  now,
		ServiceCost: snapshot.Costs[lubelogger.CategoryService],
		RepairCost:  snapshot.Costs[lubelogger.CategoryRepair],
		UpgradeCost: snapshot.Costs[lubelogger.CategoryUpgrade],
		TaxCost:     snapshot.Costs[lubelogger.CategoryTax],
		FuelCost:    snapshot.Costs[lubelogger.CategoryFuel],
		Warnings:    len(result.warnings),
	}
	if snapshot.LastOdometer != nil {
		row.Odometer = snapshot.LastOdometer.Value
		date := snapshot.LastOdometer.Date
		row.OdometerDate = &date
	}
	if reminder := snapshot.NextReminder; reminder != nil {
		id := reminder.ID
		row.ReminderID = &id
		row.ReminderDescription = reminder.Description
		row.ReminderUrgency = reminder.Urgency.String()
		row.ReminderDueDays = reminder.DueDays
		row.ReminderDueDistance = reminder.DueDistance
	}
	return row
}

// dispatchAlerts raises one push alert per vehicle the first time a poll
// observes its next reminder as overdue or very urgent.
func (c *Coordinator) dispatchAlerts(set *SnapshotSet) {
	if c.notifier == nil {
		return
	}
	for id, state := range set.Vehicles {
		reminder := state.Snapshot.NextReminder
		if reminder == nil {
			continue
		}
		if !reminder.Overdue() && reminder.Urgency < aggregate.UrgencyVeryUrgent {
			continue
		}
		if c.notified[id] == reminder.ID {
			continue
		}
		c.notified[id] = reminder.ID
		c.notifier.Dispatch(notification.ReminderAlert{
			VehicleID:   id,
			VehicleName: state.Vehicle.DisplayName(),
			Description: reminder.Description,
			DueDays:     reminder.DueDays,
			DueDistance: reminder.DueDistance,
		})
	}
}
