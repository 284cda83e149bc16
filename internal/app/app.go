// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AccelByte/extend-stream-duels/internal/bootstrap"
	"github.com/AccelByte/extend-stream-duels/internal/config"
	"github.com/AccelByte/extend-stream-duels/internal/server"
	"github.com/AccelByte/extend-stream-duels/pkg/broadcast"
	"github.com/AccelByte/extend-stream-duels/pkg/handler"
	"github.com/AccelByte/extend-stream-duels/pkg/history"
	"github.com/AccelByte/extend-stream-duels/pkg/ledger"
	"github.com/AccelByte/extend-stream-duels/pkg/lifecycle"
	"github.com/AccelByte/extend-stream-duels/pkg/store"
	"github.com/AccelByte/extend-stream-duels/pkg/trigger"
	"github.com/cenkalti/backoff/v4"

	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/factory"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/iam"
	"github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/service/social"
	sdkAuth "github.com/AccelByte/accelbyte-go-sdk/services-api/pkg/utils/auth"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// App holds all application dependencies and manages the application lifecycle.
type App struct {
	cfg               *config.Config
	grpcServer        *server.GRPCServer
	httpServer        *server.HTTPServer
	metricsServer     *server.MetricsServer
	redisClient       *redis.Client
	history           *history.Store
	hub               *broadcast.Hub
	controller        *lifecycle.Controller
	dedup             *trigger.Deduplicator
	shutdownTelemetry func(context.Context) error

	// AccelByte SDK repositories, shared by every AGS service client.
	configRepo *sdkAuth.ConfigRepositoryImpl
	tokenRepo  *sdkAuth.TokenRepositoryImpl
}

// New creates and initializes a new application instance.
//
// Components are initialized in dependency order:
// 1. Redis (sessions, ratings, streaks, challenges)
// 2. Reward ledger (Redis, or AGS statistics after client login)
// 3. Outcome history (SQLite)
// 4. Game catalogue and rules engines
// 5. Overlay hub and lifecycle controller
// 6. Servers (gRPC, HTTP, metrics)
// 7. Telemetry (OpenTelemetry tracing)
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logrus.Info("initializing application...")

	app := &App{cfg: cfg}

	if err := app.initRedis(ctx); err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	st := store.NewRedisStore(app.redisClient, store.RedisStoreConfig{KeyPrefix: cfg.RedisKeyPrefix})

	rewards, err := app.initLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to init reward ledger: %w", err)
	}

	if err := app.initHistory(); err != nil {
		return nil, fmt.Errorf("failed to init history: %w", err)
	}

	games, rules, err := bootstrap.InitGames(cfg.GamesConfigPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init games: %w", err)
	}

	app.hub = broadcast.NewHub(cfg.OverlayOrigins)
	app.controller, app.dedup = bootstrap.InitController(
		bootstrap.Dependencies{
			Games:   games,
			Rules:   rules,
			Store:   st,
			History: app.history,
			Ledger:  rewards,
			Emitter: app.hub,
		},
		bootstrap.ControllerSettings{
			HostID:          cfg.HostID,
			HostName:        cfg.HostName,
			DedupWindow:     time.Duration(cfg.DedupWindowMs) * time.Millisecond,
			DedupSweep:      time.Duration(cfg.DedupSweepIntervalMs) * time.Millisecond,
			GraceDelay:      time.Duration(cfg.QueueGraceDelayMs) * time.Millisecond,
			WatchdogTimeout: time.Duration(cfg.QueueWatchdogSeconds) * time.Second,
		},
	)

	app.grpcServer = server.NewGRPCServer(cfg.GRPCPort, app.controller)
	if err := app.grpcServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup gRPC server: %w", err)
	}

	api := handler.NewAPI(app.controller, handler.APIConfig{
		History: app.history,
		Ratings: st,
		Health:  st,
		Overlay: app.hub,
	})
	app.httpServer = server.NewHTTPServer(cfg.HTTPPort, api.Routes())

	app.metricsServer = server.NewMetricsServer(cfg.MetricsPort, "/metrics")
	if err := app.metricsServer.Setup(); err != nil {
		return nil, fmt.Errorf("failed to setup metrics server: %w", err)
	}

	shutdownTelemetry, err := server.SetupTelemetry(ctx, cfg.ServiceName, cfg.Environment, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to setup telemetry: %w", err)
	}
	app.shutdownTelemetry = shutdownTelemetry

	logrus.Info("application initialized successfully")

	return app, nil
}

// initRedis connects to Redis, retrying the first ping with exponential backoff.
func (a *App) initRedis(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         a.cfg.RedisHost + ":" + a.cfg.RedisPort,
		Password:     a.cfg.RedisPassword,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	b := backoff.NewExponentialBackOff()
	maxRetries := backoff.WithMaxRetries(b, uint64(a.cfg.RedisMaxRetries))

	err := backoff.Retry(
		func() error {
			_, err := client.Ping(ctx).Result()
			if err != nil {
				logrus.Warnf("Redis connection failed: %v, retrying...", err)
				return err
			}
			return nil
		},
		backoff.WithContext(maxRetries, ctx),
	)

	if err != nil {
		client.Close()
		return err
	}

	a.redisClient = client
	logrus.Info("Redis client initialized")
	return nil
}

// initLedger picks the XP backend. The AGS backend logs in with client credentials
// and reuses a.configRepo and a.tokenRepo for the statistic client.
func (a *App) initLedger() (ledger.Ledger, error) {
	if a.cfg.LedgerBackend != config.LedgerAccelByte {
		logrus.Info("using Redis reward ledger")
		return ledger.NewRedisLedger(a.redisClient), nil
	}

	if err := a.initAccelByteSDKAuth(); err != nil {
		return nil, err
	}

	statisticService := &social.UserStatisticService{
		Client:           factory.NewSocialClient(a.configRepo),
		ConfigRepository: a.configRepo,
		TokenRepository:  a.tokenRepo,
	}
	logrus.Infof("using AccelByte statistic ledger (stat %s)", a.cfg.XPStatCode)
	return ledger.NewStatisticLedger(statisticService, ledger.StatisticLedgerConfig{
		Namespace: a.cfg.ABNamespace,
		StatCode:  a.cfg.XPStatCode,
	}), nil
}

// initAccelByteSDKAuth performs the client login against AGS IAM.
// The SDK refreshes the token automatically at 80% of its TTL.
func (a *App) initAccelByteSDKAuth() error {
	a.configRepo = sdkAuth.DefaultConfigRepositoryImpl()
	a.tokenRepo = sdkAuth.DefaultTokenRepositoryImpl()
	refreshRepo := &sdkAuth.RefreshTokenImpl{AutoRefresh: true, RefreshRate: 0.8}

	oauthService := iam.OAuth20Service{
		Client:                 factory.NewIamClient(a.configRepo),
		ConfigRepository:       a.configRepo,
		TokenRepository:        a.tokenRepo,
		RefreshTokenRepository: refreshRepo,
	}

	clientID := a.configRepo.GetClientId()
	clientSecret := a.configRepo.GetClientSecret()

	if err := oauthService.LoginClient(&clientID, &clientSecret); err != nil {
		return fmt.Errorf("unable to login using clientId and clientSecret: %w", err)
	}

	logrus.Info("AccelByte SDK initialized and authenticated")
	return nil
}

func (a *App) initHistory() error {
	if dir := filepath.Dir(a.cfg.HistoryDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	h, err := history.New(a.cfg.HistoryDBPath)
	if err != nil {
		return err
	}
	a.history = h
	logrus.Infof("outcome history at %s", a.cfg.HistoryDBPath)
	return nil
}
