package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"osgb/internal/logger"
	"osgb/internal/pricing"
)

type Config struct {
	// Record store
	DBDriver string
	DBDSN    string
	DBDebug  bool

	// Snapshot mirrors
	MirrorFile  string
	MirrorURL   string
	MirrorToken string

	// Pricing policy
	TierFallback     pricing.TierFallback
	ImplicitBranches bool
	RetireSubsumed   bool

	// Google Sheets Configuration
	GoogleSheetURL       string
	GoogleSheetWorksheet string
	PaymentSheet         string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	fallback, err := pricing.ParseTierFallback(getEnv("OSGB_TIER_FALLBACK", string(pricing.FallbackBaseFee)))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: OSGB_TIER_FALLBACK: %w", err)
	}

	config := &Config{
		DBDriver:             strings.ToLower(getEnv("OSGB_DB_DRIVER", "sqlite")),
		DBDSN:                getEnv("OSGB_DB_DSN", "osgb.db"),
		DBDebug:              getEnvBool("OSGB_DB_DEBUG", false),
		MirrorFile:           getEnv("OSGB_MIRROR_FILE", ""),
		MirrorURL:            getEnv("OSGB_MIRROR_URL", ""),
		MirrorToken:          getEnv("OSGB_MIRROR_TOKEN", ""),
		TierFallback:         fallback,
		ImplicitBranches:     getEnvBool("OSGB_POOL_IMPLICIT_BRANCHES", false),
		RetireSubsumed:       getEnvBool("OSGB_RETIRE_SUBSUMED_DRAFTS", false),
		GoogleSheetURL:       getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet: getEnv("GOOGLE_SHEET_WORKSHEET", "Cari"),
		PaymentSheet:         getEnv("OSGB_PAYMENT_SHEET", "Tahsilat"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		LogFormat:            getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:        getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:            getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("OSGB_DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("OSGB_DB_DSN is required")
	}
	if c.MirrorURL != "" && !strings.HasPrefix(c.MirrorURL, "http://") && !strings.HasPrefix(c.MirrorURL, "https://") {
		return fmt.Errorf("OSGB_MIRROR_URL must be an http(s) URL")
	}
	return nil
}

// PricingOptions returns the engine policies selected by configuration.
func (c *Config) PricingOptions() pricing.Options {
	return pricing.Options{
		TierFallback:     c.TierFallback,
		ImplicitBranches: c.ImplicitBranches,
	}
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
