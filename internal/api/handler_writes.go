package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lubelogger-bridge/internal/gateway"
	"lubelogger-bridge/internal/lubelogger"
)

// PostOdometer handles POST /api/vehicles/:vehicle_id/odometer.
func (h *Handler) PostOdometer(c *gin.Context) {
	vehicleID, ok := pathVehicleID(c)
	if !ok {
		return
	}
	var req gateway.OdometerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.gateway.AddOdometer(c.Request.Context(), vehicleID, req); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// PostFuel handles POST /api/vehicles/:vehicle_id/fuel.
func (h *Handler) PostFuel(c *gin.Context) {
	vehicleID, ok := pathVehicleID(c)
	if !ok {
		return
	}
	var req gateway.FuelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.gateway.AddFuel(c.Request.Context(), vehicleID, req); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

// PostReminder handles POST /api/vehicles/:vehicle_id/reminders.
func (h *Handler) PostReminder(c *gin.Context) {
	vehicleID, ok := pathVehicleID(c)
	if !ok {
		return
	}
	var req gateway.ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.gateway.AddReminder(c.Request.Context(), vehicleID, req); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

func pathVehicleID(c *gin.Context) (int64, bool) {
	vehicleID, err := strconv.ParseInt(c.Param("vehicle_id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID"})
		return 0, false
	}
	return vehicleID, true
}

// writeError maps the write-path error taxonomy onto HTTP statuses. The
// caller of a write must see the failure synchronously; nothing here is
// deferred to the next poll.
func writeError(c *gin.Context, err error) {
	var (
		validationErr   *lubelogger.ValidationError
		notFoundErr     *lubelogger.NotFoundError
		authErr         *lubelogger.AuthError
		connectivityErr *lubelogger.ConnectivityError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &authErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "needs_reauth": true})
	case errors.As(err, &connectivityErr):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
