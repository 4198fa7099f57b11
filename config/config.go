package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Redis     RedisConfig
	Provider  ProviderConfig
	Solver    SolverConfig
	Telemetry TelemetryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Debug        bool
}

// StoreConfig holds tabular-store (PostgREST) connection settings.
type StoreConfig struct {
	URL        string
	ServiceKey string
}

// RedisConfig holds the optional hot distance-cache settings. An empty
// Host disables the hot layer entirely.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// ProviderConfig holds driving-distance provider settings. An empty
// APIKey disables provider fetches (haversine fallback only).
type ProviderConfig struct {
	APIKey         string
	RateLimitDelay time.Duration
	BatchSize      int
}

// SolverConfig holds per-run planner parameters.
type SolverConfig struct {
	Timeout             time.Duration
	CacheTolerance      float64
	MaxClusterRadiusMi  float64
	MaxStopsPerTrip     int
	SetupBufferHours    float64
	TeardownBufferHours float64
}

// TelemetryConfig holds the optional error-telemetry sink.
type TelemetryConfig struct {
	SentryDSN string
}

// Addr returns the Redis address in host:port format.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether the hot cache layer is configured.
func (r *RedisConfig) Enabled() bool {
	return r.Host != ""
}

// ServerAddr returns the HTTP listen address in host:port format.
func (s *ServerConfig) ServerAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// ── Defaults ────────────────────────────────────────
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", 5001)
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "120s")
	viper.SetDefault("SERVER_IDLE_TIMEOUT", "120s")
	viper.SetDefault("SERVER_DEBUG", false)

	viper.SetDefault("STORE_URL", "")
	viper.SetDefault("STORE_SERVICE_KEY", "")

	viper.SetDefault("REDIS_HOST", "")
	viper.SetDefault("REDIS_PORT", 6379)
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_POOL_SIZE", 100)

	viper.SetDefault("DISTANCE_PROVIDER_API_KEY", "")
	viper.SetDefault("DISTANCE_PROVIDER_RATE_LIMIT_MS", 200)
	viper.SetDefault("DISTANCE_PROVIDER_BATCH_SIZE", 25)

	viper.SetDefault("SOLVER_TIMEOUT_MS", 30000)
	viper.SetDefault("DISTANCE_CACHE_TOLERANCE", 0.001)
	viper.SetDefault("MAX_CLUSTER_RADIUS_MILES", 150.0)
	viper.SetDefault("MAX_STOPS_PER_TRIP", 4)
	viper.SetDefault("SETUP_BUFFER_HOURS", 4.0)
	viper.SetDefault("TEARDOWN_BUFFER_HOURS", 3.0)

	viper.SetDefault("OPTIMIZER_SENTRY_DSN", "")

	// Try to read .env file. If it doesn't exist (e.g., inside a
	// container), env vars injected by the runtime are used instead.
	_ = viper.ReadInConfig()

	cfg := &Config{}

	// ── Server ──────────────────────────────────────────
	cfg.Server = ServerConfig{
		Host:         viper.GetString("SERVER_HOST"),
		Port:         viper.GetInt("SERVER_PORT"),
		ReadTimeout:  viper.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout: viper.GetDuration("SERVER_WRITE_TIMEOUT"),
		IdleTimeout:  viper.GetDuration("SERVER_IDLE_TIMEOUT"),
		Debug:        viper.GetBool("SERVER_DEBUG"),
	}

	// ── Tabular store ───────────────────────────────────
	cfg.Store = StoreConfig{
		URL:        viper.GetString("STORE_URL"),
		ServiceKey: viper.GetString("STORE_SERVICE_KEY"),
	}

	// ── Redis (optional hot cache) ──────────────────────
	cfg.Redis = RedisConfig{
		Host:     viper.GetString("REDIS_HOST"),
		Port:     viper.GetInt("REDIS_PORT"),
		Password: viper.GetString("REDIS_PASSWORD"),
		DB:       viper.GetInt("REDIS_DB"),
		PoolSize: viper.GetInt("REDIS_POOL_SIZE"),
	}

	// ── Distance provider ───────────────────────────────
	cfg.Provider = ProviderConfig{
		APIKey:         viper.GetString("DISTANCE_PROVIDER_API_KEY"),
		RateLimitDelay: time.Duration(viper.GetInt("DISTANCE_PROVIDER_RATE_LIMIT_MS")) * time.Millisecond,
		BatchSize:      viper.GetInt("DISTANCE_PROVIDER_BATCH_SIZE"),
	}

	// ── Solver ──────────────────────────────────────────
	cfg.Solver = SolverConfig{
		Timeout:             time.Duration(viper.GetInt("SOLVER_TIMEOUT_MS")) * time.Millisecond,
		CacheTolerance:      viper.GetFloat64("DISTANCE_CACHE_TOLERANCE"),
		MaxClusterRadiusMi:  viper.GetFloat64("MAX_CLUSTER_RADIUS_MILES"),
		MaxStopsPerTrip:     viper.GetInt("MAX_STOPS_PER_TRIP"),
		SetupBufferHours:    viper.GetFloat64("SETUP_BUFFER_HOURS"),
		TeardownBufferHours: viper.GetFloat64("TEARDOWN_BUFFER_HOURS"),
	}

	// ── Telemetry ───────────────────────────────────────
	cfg.Telemetry = TelemetryConfig{
		SentryDSN: viper.GetString("OPTIMIZER_SENTRY_DSN"),
	}

	return cfg, nil
}
