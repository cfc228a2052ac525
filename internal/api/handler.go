package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"

	"lubelogger-bridge/internal/coordinator"
	"lubelogger-bridge/internal/gateway"
	"lubelogger-bridge/internal/store"
)

// SnapshotSource is the coordinator's read surface.
type SnapshotSource interface {
	Snapshot() *coordinator.SnapshotSet
	Status() coordinator.Status
}

// WriteGateway is the validated write surface.
type WriteGateway interface {
	AddOdometer(ctx context.Context, vehicleID int64, req gateway.OdometerRequest) error
	AddFuel(ctx context.Context, vehicleID int64, req gateway.FuelRequest) error
	AddReminder(ctx context.Context, vehicleID int64, req gateway.ReminderRequest) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	source  SnapshotSource
	gateway WriteGateway
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, source SnapshotSource, gw WriteGateway, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		source:  source,
		gateway: gw,
		webpush: webpushOptions,
	}
}
