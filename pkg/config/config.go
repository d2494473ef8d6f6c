// Package config holds CLI-host configuration for the evidence verifier.
//
// Nothing here is read by pkg/verify: the verification core is pure and
// takes every input as an explicit argument. This config only scopes the
// surrounding host process (log level, optional metrics listener, optional
// address registry, warning thresholds).
package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
)

// Config holds configuration for the safe-verify CLI host.
type Config struct {
	// LogLevel controls pkg/logging verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// LogFormat selects the slog handler: "json" or "text".
	LogFormat string

	// RegistryPath optionally points at a YAML address-label registry
	// consumed by pkg/registry for the warning analyzer (spec §4.7).
	RegistryPath string

	// MetricsAddr, if non-empty, serves Prometheus metrics on this address
	// (host-side instrumentation only; see pkg/metrics).
	MetricsAddr string

	// WarningValueThresholdWei is the configurable pure-value-transfer
	// threshold below which an unknown-target transfer is not warned about
	// (spec §4.7).
	WarningValueThresholdWei string
}

// Default returns the baseline configuration used when no environment
// variables are set.
func Default() *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                "text",
		RegistryPath:             "",
		MetricsAddr:              "",
		WarningValueThresholdWei: "0",
	}
}

// Load reads configuration from environment variables, falling back to
// Default() for anything unset.
func Load() (*Config, error) {
	cfg := Default()
	cfg.LogLevel = getEnv("SAFE_VERIFY_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("SAFE_VERIFY_LOG_FORMAT", cfg.LogFormat)
	cfg.RegistryPath = getEnv("SAFE_VERIFY_REGISTRY", cfg.RegistryPath)
	cfg.MetricsAddr = getEnv("SAFE_VERIFY_METRICS_ADDR", cfg.MetricsAddr)
	cfg.WarningValueThresholdWei = getEnv("SAFE_VERIFY_WARNING_THRESHOLD_WEI", cfg.WarningValueThresholdWei)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL %q must be one of debug/info/warn/error", c.LogLevel))
	}

	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("LOG_FORMAT %q must be one of json/text", c.LogFormat))
	}

	if v, ok := new(big.Int).SetString(c.WarningValueThresholdWei, 10); (!ok || v.Sign() < 0) && c.WarningValueThresholdWei != "" {
		errs = append(errs, fmt.Sprintf("WARNING_THRESHOLD_WEI %q is not a decimal integer", c.WarningValueThresholdWei))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration invalid:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
