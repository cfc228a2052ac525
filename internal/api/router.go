package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"lubelogger-bridge/internal/mw"
)

// RouterConfig carries the middleware knobs for the local API.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
}

// NewRouter creates and configures a new Gin router.
func NewRouter(handler *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		// Snapshot reads. Cached briefly; the snapshot only changes once
		// per poll cycle anyway.
		api.GET("/status", handler.GetStatus)
		api.GET("/vehicles", caching, handler.GetVehicles)
		api.GET("/vehicles/:vehicle_id", caching, handler.GetVehicle)
		api.GET("/vehicles/:vehicle_id/history", caching, handler.GetCostHistory)

		// Write gateway. Never cached, never rate-limited away from the
		// caller silently: a 429 is an explicit failure.
		api.POST("/vehicles/:vehicle_id/odometer", handler.PostOdometer)
		api.POST("/vehicles/:vehicle_id/fuel", handler.PostFuel)
		api.POST("/vehicles/:vehicle_id/reminders", handler.PostReminder)

		// Push subscription management.
		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
