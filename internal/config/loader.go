// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load reads configuration from environment variables.
// It attempts to load from .env file first (for local development),
// then parses environment variables into the Config struct.
func Load() (*Config, error) {
	// In production (Docker/K8s), environment variables are injected directly
	if err := godotenv.Load(); err != nil {
		logrus.Warnf("no .env file found or error loading it: %v (this is normal in production)", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	return cfg, nil
}

// Validate performs custom validation on the configuration.
func (c *Config) Validate() error {
	for name, port := range map[string]int{
		"GRPC_PORT":    c.GRPCPort,
		"HTTP_PORT":    c.HTTPPort,
		"METRICS_PORT": c.MetricsPort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: %d (must be 1-65535)", name, port)
		}
	}
	if c.HTTPPort == c.MetricsPort || c.HTTPPort == c.GRPCPort || c.GRPCPort == c.MetricsPort {
		return fmt.Errorf("GRPC_PORT, HTTP_PORT and METRICS_PORT must differ")
	}

	switch c.LedgerBackend {
	case LedgerRedis:
	case LedgerAccelByte:
		if c.ABNamespace == "" || c.ABBaseURL == "" || c.ABClientID == "" || c.ABClientSecret == "" {
			return fmt.Errorf("LEDGER_BACKEND=accelbyte requires AB_NAMESPACE, AB_BASE_URL, AB_CLIENT_ID and AB_CLIENT_SECRET")
		}
	default:
		return fmt.Errorf("invalid LEDGER_BACKEND: %q (must be %s or %s)", c.LedgerBackend, LedgerRedis, LedgerAccelByte)
	}

	if c.HostID == "" {
		return fmt.Errorf("HOST_ID is required")
	}
	if c.DedupWindowMs <= 0 || c.DedupSweepIntervalMs <= 0 {
		return fmt.Errorf("DEDUP_WINDOW_MS and DEDUP_SWEEP_INTERVAL_MS must be positive")
	}
	if c.QueueGraceDelayMs < 0 {
		return fmt.Errorf("QUEUE_GRACE_DELAY_MS must be non-negative")
	}
	if c.QueueWatchdogSeconds <= 0 {
		return fmt.Errorf("QUEUE_WATCHDOG_SECONDS must be positive")
	}

	return nil
}
