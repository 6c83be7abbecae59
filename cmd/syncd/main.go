package main

import (
	"context"
	"log"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/brainbow/syncd/api/handler"
	"github.com/brainbow/syncd/internal/config"
	"github.com/brainbow/syncd/internal/infrastructure/cache"
	"github.com/brainbow/syncd/internal/infrastructure/monitor"
	pgInfra "github.com/brainbow/syncd/internal/infrastructure/postgres"
	redisInfra "github.com/brainbow/syncd/internal/infrastructure/redis"
	"github.com/brainbow/syncd/internal/middleware"
	"github.com/brainbow/syncd/internal/router"
	"github.com/brainbow/syncd/internal/services"
	"github.com/brainbow/syncd/internal/services/lifecycle"
	"github.com/brainbow/syncd/pkg/events"
	"github.com/brainbow/syncd/pkg/httpcontext"
	"github.com/brainbow/syncd/pkg/logger"
	"github.com/brainbow/syncd/pkg/retry"
	"github.com/brainbow/syncd/repository/postgres"
	redisRepo "github.com/brainbow/syncd/repository/redis"
	authUC "github.com/brainbow/syncd/usecase/auth"
	syncUC "github.com/brainbow/syncd/usecase/sync"
	"github.com/brainbow/syncd/usecase/view"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	// Failed migrations are not fatal: the remote may simply be unreachable,
	// which is the normal offline boot path.
	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Warn("migrations skipped", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Remote, zapLogger)
	if err != nil {
		zapLogger.Fatal("remote config invalid", zap.Error(err))
	}
	manager.Register("remote", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	cacheStore, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		zapLogger.Fatal("failed to open local cache", zap.Error(err))
	}
	manager.Register("cache", func(ctx context.Context) error {
		return cacheStore.Close()
	})

	bus := events.NewBus()
	manager.Register("events", func(ctx context.Context) error {
		bus.Close()
		return nil
	})

	mon := monitor.New(pool, redisClient, cacheStore, bus, cfg.Sync.MonitorInterval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	taskGateway := postgres.NewTaskGateway(pool)
	filterGateway := postgres.NewFilterGateway(pool)
	profileGateway := postgres.NewProfileGateway(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.Sync.SessionTTL)

	registry := services.NewRegistry(func(userID string) *syncUC.Engine {
		policy := retry.New()
		policy.MaxRetries = cfg.Retry.MaxRetries
		policy.BaseDelay = cfg.Retry.BaseDelay
		policy.MaxDelay = cfg.Retry.MaxDelay
		return syncUC.New(syncUC.Config{
			UserID:  userID,
			Gateway: taskGateway,
			Cache:   cacheStore,
			Retry:   policy,
			Online:  mon.IsOnline,
			Confirm: syncUC.ConfirmFromContext,
			Bus:     bus,
			Logger:  zapLogger,
		})
	})

	syncer := services.NewSyncer(registry, mon, bus, zapLogger, services.SyncerConfig{
		Interval:     cfg.Sync.Interval,
		DrainTimeout: cfg.Context.RequestTimeout,
	})
	syncer.Start()
	manager.Register("syncer", func(ctx context.Context) error {
		syncer.Stop(ctx)
		return nil
	})

	authUseCase := authUC.New(profileGateway, sessionRepo, bus, zapLogger)
	filterService := view.NewFilterService(filterGateway, profileGateway, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:   apiHandler.NewAuthHandler(authUseCase, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.Sync.SessionTTL, ctxAdapter, zapLogger),
		Task:   apiHandler.NewTaskHandler(registry, ctxAdapter, zapLogger),
		Filter: apiHandler.NewFilterHandler(filterService, ctxAdapter, zapLogger),
		Sync:   apiHandler.NewSyncHandler(registry, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
