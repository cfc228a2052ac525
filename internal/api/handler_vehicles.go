package api

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"lubelogger-bridge/internal/aggregate"
	"lubelogger-bridge/internal/coordinator"
	"lubelogger-bridge/internal/lubelogger"
)

// vehicleView is the flattened per-vehicle aggregate served to observers.
type vehicleView struct {
	ID           int64                                   `json:"id"`
	DisplayName  string                                  `json:"display_name"`
	Make         string                                  `json:"make,omitempty"`
	Model        string                                  `json:"model,omitempty"`
	Year         int                                     `json:"year,omitempty"`
	LicensePlate string                                  `json:"license_plate,omitempty"`
	IsElectric   bool                                    `json:"is_electric"`
	Costs        map[lubelogger.Category]decimal.Decimal `json:"costs"`
	LastOdometer *aggregate.Odometer                     `json:"last_odometer,omitempty"`
	NextReminder *aggregate.Reminder                     `json:"next_reminder,omitempty"`
}

func viewOf(state coordinator.VehicleState) vehicleView {
	return vehicleView{
		ID:           state.Vehicle.ID,
		DisplayName:  state.Vehicle.DisplayName(),
		Make:         state.Vehicle.Make,
		Model:        state.Vehicle.Model,
		Year:         state.Vehicle.Year,
		LicensePlate: state.Vehicle.LicensePlate,
		IsElectric:   state.Vehicle.IsElectric,
		Costs:        state.Snapshot.Costs,
		LastOdometer: state.Snapshot.LastOdometer,
		NextReminder: state.Snapshot.NextReminder,
	}
}

type vehiclesResponse struct {
	SyncedAt time.Time     `json:"synced_at"`
	Vehicles []vehicleView `json:"vehicles"`
}

// GetVehicles handles GET /api/vehicles: the whole snapshot set.
func (h *Handler) GetVehicles(c *gin.Context) {
	set := h.source.Snapshot()

	views := make([]vehicleView, 0, len(set.Vehicles))
	for _, state := range set.Vehicles {
		views = append(views, viewOf(state))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })

	c.JSON(http.StatusOK, vehiclesResponse{SyncedAt: set.SyncedAt, Vehicles: views})
}

// GetVehicle handles GET /api/vehicles/:vehicle_id.
func (h *Handler) GetVehicle(c *gin.Context) {
	vehicleID, err := strconv.ParseInt(c.Param("vehicle_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return
	}

	set := h.source.Snapshot()
	state, ok := set.Vehicles[vehicleID]
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Unknown vehicle"})
		return
	}
	c.JSON(http.StatusOK, viewOf(state))
}

// GetStatus handles GET /api/status: the coordinator's availability.
func (h *Handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.source.Status())
}
