package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL string

	// Generator configuration
	TargetCustomers   []string
	GeneratorMinDelay time.Duration
	GeneratorMaxDelay time.Duration

	// KPI snapshot configuration
	SnapshotInterval    time.Duration
	FrozenSnapshotRates bool // one FX rate set per snapshot instead of per-conversion jitter

	// Insights cache configuration
	InsightsMaxAge   time.Duration
	InsightsMaxCalls int

	// Environment
	Environment string // "development" or "production"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Generator defaults
		TargetCustomers: []string{
			"223345",
			"445566",
			"786052",
			"78605200",
			"BFLUK012025",
			"SIUAE2025",
		},
		GeneratorMinDelay: 2 * time.Second,
		GeneratorMaxDelay: 3 * time.Second,

		// Snapshot defaults
		SnapshotInterval:    5 * time.Second,
		FrozenSnapshotRates: os.Getenv("FROZEN_SNAPSHOT_RATES") == "true",

		// Insights cache defaults
		InsightsMaxAge:   60 * time.Second,
		InsightsMaxCalls: 10,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if customers := os.Getenv("TARGET_CUSTOMERS"); customers != "" {
		var parsed []string
		for _, c := range strings.Split(customers, ",") {
			c = strings.TrimSpace(c)
			if c != "" {
				parsed = append(parsed, c)
			}
		}
		config.TargetCustomers = parsed
	}
	if interval := os.Getenv("SNAPSHOT_INTERVAL_SECONDS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.SnapshotInterval = time.Duration(parsed) * time.Second
		}
	}
	if delay := os.Getenv("GENERATOR_MIN_DELAY_MS"); delay != "" {
		if parsed, err := strconv.Atoi(delay); err == nil && parsed > 0 {
			config.GeneratorMinDelay = time.Duration(parsed) * time.Millisecond
		}
	}
	if delay := os.Getenv("GENERATOR_MAX_DELAY_MS"); delay != "" {
		if parsed, err := strconv.Atoi(delay); err == nil && parsed > 0 {
			config.GeneratorMaxDelay = time.Duration(parsed) * time.Millisecond
		}
	}
	if maxAge := os.Getenv("INSIGHTS_MAX_AGE_SECONDS"); maxAge != "" {
		if parsed, err := strconv.Atoi(maxAge); err == nil && parsed > 0 {
			config.InsightsMaxAge = time.Duration(parsed) * time.Second
		}
	}
	if maxCalls := os.Getenv("INSIGHTS_MAX_CALLS"); maxCalls != "" {
		if parsed, err := strconv.Atoi(maxCalls); err == nil && parsed > 0 {
			config.InsightsMaxCalls = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	if config.GeneratorMaxDelay < config.GeneratorMinDelay {
		return nil, fmt.Errorf("GENERATOR_MAX_DELAY_MS must be >= GENERATOR_MIN_DELAY_MS")
	}

	return config, nil
}
