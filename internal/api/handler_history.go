package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// costHistoryEntry is one persisted poll observation of a vehicle.
type costHistoryEntry struct {
	ObservedAt  time.Time       `json:"observed_at"`
	ServiceCost decimal.Decimal `json:"service_cost"`
	RepairCost  decimal.Decimal `json:"repair_cost"`
	UpgradeCost decimal.Decimal `json:"upgrade_cost"`
	TaxCost     decimal.Decimal `json:"tax_cost"`
	FuelCost    decimal.Decimal `json:"fuel_cost"`
	Odometer    float64         `json:"odometer,omitempty"`
}

// GetCostHistory handles GET /api/vehicles/:vehicle_id/history?days=N,
// serving the persisted per-cycle aggregates.
func (h *Handler) GetCostHistory(c *gin.Context) {
	vehicleID, err := strconv.ParseInt(c.Param("vehicle_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return
	}

	days := 90
	if raw := c.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid days parameter"})
			return
		}
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := h.store.CostHistory(c.Request.Context(), vehicleID, since)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve cost history"})
		return
	}

	entries := make([]costHistoryEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, costHistoryEntry{
			ObservedAt:  row.ObservedAt,
			ServiceCost: row.ServiceCost,
			RepairCost:  row.RepairCost,
			UpgradeCost: row.UpgradeCost,
			TaxCost:     row.TaxCost,
			FuelCost:    row.FuelCost,
			Odometer:    row.Odometer,
		})
	}
	c.JSON(http.StatusOK, entries)
}
