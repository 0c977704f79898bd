package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Values come from environment variables, an optional YAML file named by
// LEDGER_CONFIG_FILE, and the defaults below, in that order of precedence.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Observability
	OTLPEndpoint string

	// Persistence. An empty DatabaseURL selects the in-memory store.
	DatabaseURL      string
	DBMaxConns       int32
	DBConnectRetries int
	DBInitialBackoff time.Duration

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration
	DevAuth      bool // DEV_AUTH=true exposes POST /v1/dev/token

	// Ledger
	MaxConcurrency      int
	ConflictMaxAttempts int
	ConflictBackoff     []time.Duration
	CardSecretCost      int
	DefaultDailyLimit   decimal.Decimal
	ClockLocation       *time.Location
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("DB_INITIAL_BACKOFF", "200ms")

	v.SetDefault("JWT_SECRET", "ledger-default-dev-secret-change-me")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("DEV_AUTH", false)

	v.SetDefault("MAX_CONCURRENCY", 50)
	v.SetDefault("CONFLICT_MAX_ATTEMPTS", 3)
	v.SetDefault("CONFLICT_BACKOFF", "20ms,40ms,80ms")
	v.SetDefault("CARD_SECRET_COST", 10)
	v.SetDefault("DEFAULT_DAILY_LIMIT", "5000")
	v.SetDefault("CLOCK_LOCATION", "UTC")
}

// Load reads configuration. A missing LEDGER_CONFIG_FILE is an error; no
// file at all is fine.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("LEDGER_CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	backoff, err := parseDurations(v.GetString("CONFLICT_BACKOFF"))
	if err != nil {
		return nil, fmt.Errorf("CONFLICT_BACKOFF: %w", err)
	}
	dailyLimit, err := decimal.NewFromString(v.GetString("DEFAULT_DAILY_LIMIT"))
	if err != nil || !dailyLimit.IsPositive() {
		return nil, fmt.Errorf("DEFAULT_DAILY_LIMIT must be a positive decimal, got %q", v.GetString("DEFAULT_DAILY_LIMIT"))
	}
	loc, err := time.LoadLocation(v.GetString("CLOCK_LOCATION"))
	if err != nil {
		return nil, fmt.Errorf("CLOCK_LOCATION: %w", err)
	}

	cfg := &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),

		DatabaseURL:      v.GetString("DATABASE_URL"),
		DBMaxConns:       v.GetInt32("DB_MAX_CONNS"),
		DBConnectRetries: v.GetInt("DB_CONNECT_RETRIES"),
		DBInitialBackoff: v.GetDuration("DB_INITIAL_BACKOFF"),

		JWTSecret:    v.GetString("JWT_SECRET"),
		JWTAccessTTL: v.GetDuration("JWT_ACCESS_TTL"),
		DevAuth:      v.GetBool("DEV_AUTH"),

		MaxConcurrency:      v.GetInt("MAX_CONCURRENCY"),
		ConflictMaxAttempts: v.GetInt("CONFLICT_MAX_ATTEMPTS"),
		ConflictBackoff:     backoff,
		CardSecretCost:      v.GetInt("CARD_SECRET_COST"),
		DefaultDailyLimit:   dailyLimit,
		ClockLocation:       loc,
	}
	if cfg.ConflictMaxAttempts < 1 {
		return nil, fmt.Errorf("CONFLICT_MAX_ATTEMPTS must be at least 1, got %d", cfg.ConflictMaxAttempts)
	}
	return cfg, nil
}

// parseDurations parses a comma-separated list such as "20ms,40ms,80ms".
func parseDurations(s string) ([]time.Duration, error) {
	var out []time.Duration
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := time.ParseDuration(part)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
