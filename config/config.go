package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	LubeLogger LubeLoggerConfig `yaml:"lubelogger"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// LubeLoggerConfig holds the connection and polling settings for the
// upstream LubeLogger server.
type LubeLoggerConfig struct {
	URL             string        `yaml:"url"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	Timeout         time.Duration `yaml:"-"`
	FetchWorkers    int           `yaml:"fetch_workers"`
	DistanceUnit    string        `yaml:"distance_unit"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications. Push alerts
// are disabled when the keys are left empty.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// ServerConfig holds the local HTTP API configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 15
	}

	// The upstream integration polls every 30 minutes; maintenance data
	// does not change faster than that.
	if cfg.LubeLogger.IntervalSeconds <= 0 {
		cfg.LubeLogger.IntervalSeconds = 1800
	}
	cfg.LubeLogger.Interval = time.Duration(cfg.LubeLogger.IntervalSeconds) * time.Second

	if cfg.LubeLogger.TimeoutSeconds <= 0 {
		cfg.LubeLogger.TimeoutSeconds = 30
	}
	cfg.LubeLogger.Timeout = time.Duration(cfg.LubeLogger.TimeoutSeconds) * time.Second

	if cfg.LubeLogger.FetchWorkers <= 0 {
		cfg.LubeLogger.FetchWorkers = 4
	}
	if cfg.LubeLogger.DistanceUnit == "" {
		cfg.LubeLogger.DistanceUnit = "miles"
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "lubelogger-bridge.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
