package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"lubelogger-bridge/config"
	"lubelogger-bridge/internal/api"
	"lubelogger-bridge/internal/coordinator"
	"lubelogger-bridge/internal/db"
	"lubelogger-bridge/internal/gateway"
	"lubelogger-bridge/internal/lubelogger"
	"lubelogger-bridge/internal/notification"
	"lubelogger-bridge/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "lubelogger-bridge ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Build the LubeLogger client. Credential and URL validation happens
	// here, before anything dials out.
	client, err := lubelogger.NewClient(cfg.LubeLogger.URL, cfg.LubeLogger.Username, cfg.LubeLogger.Password, cfg.LubeLogger.Timeout)
	if err != nil {
		logger.Fatalf("invalid LubeLogger configuration: %v", err)
	}

	// Reachability probe. Bad credentials fail fast; a server that is
	// merely down right now is left to the coordinator, which will report
	// unavailability until it recovers.
	probeCtx, probeCancel := context.WithTimeout(context.Background(), cfg.LubeLogger.Timeout)
	_, probeErr := client.Vehicles(probeCtx)
	probeCancel()
	var authErr *lubelogger.AuthError
	switch {
	case probeErr == nil:
		logger.Printf("connected to LubeLogger at %s", cfg.LubeLogger.URL)
	case errors.As(probeErr, &authErr):
		logger.Fatalf("LubeLogger rejected the configured credentials: %v", probeErr)
	default:
		logger.Printf("Warning: LubeLogger is not reachable yet: %v", probeErr)
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Push alerts are optional; without VAPID keys the coordinator simply
	// never dispatches.
	var webpushOptions *webpush.Options
	var notifier coordinator.Notifier
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		notifier = pool
		logger.Println("reminder push notifications enabled")
	} else {
		logger.Println("VAPID keys not configured; reminder push notifications disabled")
	}

	coord := coordinator.New(cfg, client, appStore, notifier)
	if err := coord.Seed(ctx); err != nil {
		logger.Printf("Warning: could not seed snapshots from the store: %v", err)
	}
	go coord.Run(ctx)

	gw := gateway.New(client, coord)

	// Initialize router
	handler := api.NewHandler(appStore, coord, gw, webpushOptions)
	router := api.NewRouter(handler, api.RouterConfig{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
		CacheTTL:        time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
