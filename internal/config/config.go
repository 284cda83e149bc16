// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

// Config holds all application configuration loaded from environment variables.
// This struct uses github.com/caarlos0/env for automatic environment variable parsing.
type Config struct {
	// ============================================================
	// Server configuration
	// ============================================================
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8000"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"ExtendStreamDuels"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	// Comma-separated origins allowed to open the overlay websocket; empty allows any.
	OverlayOrigins []string `env:"OVERLAY_ALLOWED_ORIGINS" envSeparator:","`

	// ============================================================
	// AccelByte configuration (required when LEDGER_BACKEND=accelbyte)
	// ============================================================
	ABNamespace    string `env:"AB_NAMESPACE"`
	ABBaseURL      string `env:"AB_BASE_URL"`
	ABClientID     string `env:"AB_CLIENT_ID"`
	ABClientSecret string `env:"AB_CLIENT_SECRET"`
	XPStatCode     string `env:"XP_STAT_CODE" envDefault:"stream-duels-xp"`

	// ============================================================
	// Redis configuration
	// ============================================================
	RedisHost       string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisMaxRetries int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	RedisKeyPrefix  string `env:"REDIS_KEY_PREFIX" envDefault:"stream_duels:"`

	// ============================================================
	// Orchestration
	// ============================================================
	GamesConfigPath      string `env:"GAMES_CONFIG_PATH" envDefault:"config/games.yaml"`
	HistoryDBPath        string `env:"HISTORY_DB_PATH" envDefault:"data/history.db"`
	HostID               string `env:"HOST_ID" envDefault:"host"`
	HostName             string `env:"HOST_NAME" envDefault:"Host"`
	LedgerBackend        string `env:"LEDGER_BACKEND" envDefault:"redis"`
	DedupWindowMs        int    `env:"DEDUP_WINDOW_MS" envDefault:"1000"`
	DedupSweepIntervalMs int    `env:"DEDUP_SWEEP_INTERVAL_MS" envDefault:"5000"`
	QueueGraceDelayMs    int    `env:"QUEUE_GRACE_DELAY_MS" envDefault:"2000"`
	QueueWatchdogSeconds int    `env:"QUEUE_WATCHDOG_SECONDS" envDefault:"30"`
}

// Ledger backends.
const (
	LedgerRedis     = "redis"
	LedgerAccelByte = "accelbyte"
)
