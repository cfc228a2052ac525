package coordinator

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"lubelogger-bridge/internal/aggregate"
	"lubelogger-bridge/internal/lubelogger"
	"lubelogger-bridge/internal/model"
)

// Seed pre-populates the snapshot set and vehicle directory from the
// store so the API can answer immediately after a restart, before the
// first live cycle completes. The seeded data is served with
// Available=false until a cycle succeeds. Seed is called before Run and
// must not race with it.
func (c *Coordinator) Seed(ctx context.Context) error {
	var vehicles []model.Vehicle
	if err := c.store.DB().WithContext(ctx).Find(&vehicles).Error; err != nil {
		return fmt.Errorf("failed to load persisted vehicles: %w", err)
	}
	if len(vehicles) == 0 {
		return nil
	}

	latest, err := c.store.LatestSnapshots(ctx)
	if err != nil {
		return err
	}

	dir := make(map[int64]lubelogger.Vehicle, len(vehicles))
	set := &SnapshotSet{Vehicles: make(map[int64]VehicleState, len(vehicles))}
	for _, row := range vehicles {
		vehicle := lubelogger.Vehicle{
			ID:           row.ID,
			Make:         row.Make,
			Model:        row.Model,
			Year:         row.Year,
			LicensePlate: row.LicensePlate,
			IsElectric:   row.IsElectric,
		}
		dir[row.ID] = vehicle

		snapshot, ok := latest[row.ID]
		if !ok {
			continue
		}
		set.Vehicles[row.ID] = VehicleState{
			Vehicle:  vehicle,
			Snapshot: seededSnapshot(snapshot),
		}
		if set.SyncedAt.Before(snapshot.ObservedAt) {
			set.SyncedAt = snapshot.ObservedAt
		}
	}

	c.directory.Store(&dir)
	c.current.Store(set)
	log.Printf("Seeded %d vehicle snapshots from the store.", len(set.Vehicles))
	return nil
}

// seededSnapshot rebuilds an aggregate view from a persisted row. The
// reminder's due date and odometer are not persisted; the seeded view
// carries what the observer surface needs until the first live cycle
// replaces it.
func seededSnapshot(row model.SnapshotRecord) aggregate.Snapshot {
	snapshot := aggregate.Snapshot{
		Costs: map[lubelogger.Category]decimal.Decimal{
			lubelogger.CategoryService: row.ServiceCost,
			lubelogger.CategoryRepair:  row.RepairCost,
			lubelogger.CategoryUpgrade: row.UpgradeCost,
			lubelogger.CategoryTax:     row.TaxCost,
			lubelogger.CategoryFuel:    row.FuelCost,
		},
	}
	if row.Odometer > 0 && row.OdometerDate != nil {
		snapshot.LastOdometer = &aggregate.Odometer{Date: *row.OdometerDate, Value: row.Odometer}
	}
	if row.ReminderID != nil {
		urgency, _ := aggregate.ParseUrgency(row.ReminderUrgency)
		snapshot.NextReminder = &aggregate.Reminder{
			ID:          *row.ReminderID,
			Description: row.ReminderDescription,
			Urgency:     urgency,
			DueDays:     row.ReminderDueDays,
			DueDistance: row.ReminderDueDistance,
		}
	}
	return snapshot
}
