package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	documentapp "github.com/garage-erp/backend/internal/application/document"
	fiscalapp "github.com/garage-erp/backend/internal/application/fiscal"
	inventoryapp "github.com/garage-erp/backend/internal/application/inventory"
	treasuryapp "github.com/garage-erp/backend/internal/application/treasury"
	"github.com/garage-erp/backend/internal/domain/treasury"
	"github.com/garage-erp/backend/internal/infrastructure/cache"
	"github.com/garage-erp/backend/internal/infrastructure/config"
	"github.com/garage-erp/backend/internal/infrastructure/lock"
	"github.com/garage-erp/backend/internal/infrastructure/logger"
	"github.com/garage-erp/backend/internal/infrastructure/persistence"
	"github.com/garage-erp/backend/internal/infrastructure/scheduler"
	"github.com/garage-erp/backend/internal/infrastructure/telemetry"
	"github.com/garage-erp/backend/internal/interfaces/http/handler"
	"github.com/garage-erp/backend/internal/interfaces/http/middleware"
	"github.com/garage-erp/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log := lp.Bridge(baseLog, logger.ParseLevel(cfg.Log.Level))
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting garage ERP backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", Version),
		zap.String("lock_backend", cfg.Lock.Backend),
	)

	meter := mp.Meter(cfg.Telemetry.ServiceName)
	coreMetrics, err := telemetry.NewCoreMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create core metrics", zap.Error(err))
	}

	dbOpts := persistence.Options{
		Logger:        log,
		LogLevel:      logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbOpts.Plugins = append(dbOpts.Plugins, telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log))
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	poolMetrics, err := telemetry.RegisterPoolMetrics(meter, db.Stats)
	if err != nil {
		log.Fatal("Failed to register pool metrics", zap.Error(err))
	}
	defer func() {
		_ = poolMetrics.Unregister()
	}()

	useRedisIdempotency := cfg.Idempotency.Enabled && cfg.Idempotency.Backend == config.IdempotencyBackendRedis
	var redisClient redis.Cmdable
	if cfg.Lock.Backend == config.LockBackendRedis || useRedisIdempotency {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rc.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		}
		defer func() {
			_ = rc.Close()
		}()
		redisClient = rc
	}

	locker, err := lock.New(cfg.Lock, db.DB, redisClient, lock.Options{
		Metrics: coreMetrics,
		Logger:  log,
	})
	if err != nil {
		log.Fatal("Failed to create chain locker", zap.Error(err))
	}

	// Repositories outside a transaction serve reads only
	scope := persistence.NewGormTransactionScope(db.DB)
	settingsRepo := persistence.NewGormSettingsRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)
	chainRepo := persistence.NewGormFiscalChainRepository(db.DB)

	toleranceService := treasuryapp.NewToleranceService(settingsRepo, treasury.ToleranceSettings{
		Enabled:    cfg.Treasury.ToleranceEnabled,
		Percentage: cfg.Treasury.TolerancePercentage,
		MaxAmount:  cfg.Treasury.ToleranceMaxAmount,
		Source:     treasury.ToleranceSourceSystem,
	}, log)
	allocationService := treasuryapp.NewAllocationService(documentRepo, settingsRepo, toleranceService, scope, coreMetrics, log)
	postingService := documentapp.NewPostingService(scope, locker, coreMetrics, log)
	countingService := inventoryapp.NewCountingService(scope, cfg.Inventory.ReconcileWorkers, coreMetrics, log)
	verificationService := fiscalapp.NewVerificationService(chainRepo, coreMetrics, log)

	var verifyScheduler *scheduler.Scheduler
	if cfg.Fiscal.VerifyInterval > 0 {
		verifyScheduler, err = scheduler.NewScheduler(scheduler.Config{
			Interval:   cfg.Fiscal.VerifyInterval,
			JobTimeout: cfg.Fiscal.VerifyTimeout,
		}, fiscalapp.NewChainVerificationJob(verificationService), log)
		if err != nil {
			log.Fatal("Failed to create chain verification scheduler", zap.Error(err))
		}
		if err := verifyScheduler.Start(ctx); err != nil {
			log.Fatal("Failed to start chain verification scheduler", zap.Error(err))
		}
	}

	var idempotency gin.HandlerFunc
	if cfg.Idempotency.Enabled {
		var store cache.IdempotencyStore
		if useRedisIdempotency {
			store = cache.NewRedisIdempotencyStore(redisClient, "")
		} else {
			store = cache.NewMemoryIdempotencyStore(0)
		}
		defer func() {
			_ = store.Close()
		}()
		idempotency = middleware.Idempotency(store, middleware.IdempotencyOptions{
			TTL:        cfg.Idempotency.TTL,
			PendingTTL: cfg.HTTP.WriteTimeout,
			Logger:     log,
		})
	}

	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to set up request validation", zap.Error(err))
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	// Tracing runs before the access log so log lines carry the trace id
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.SpanEnricher(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.HTTPMetrics(meter, log),
		middleware.Secure(),
		middleware.CORSWithConfig(corsCfg),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
	)

	groups := router.Mount(engine, router.Handlers{
		Treasury: handler.NewTreasuryHandler(allocationService, toleranceService),
		Document: handler.NewDocumentHandler(postingService),
		Counting: handler.NewCountingHandler(countingService),
		Fiscal:   handler.NewFiscalHandler(verificationService),
		System:   handler.NewSystemHandler(cfg.App.Name, Version, db.Ping),

		Idempotency: idempotency,
	})
	for _, g := range groups {
		for _, endpoint := range g.Endpoints() {
			log.Debug("Route mounted", zap.String("endpoint", endpoint))
		}
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if verifyScheduler != nil {
		if err := verifyScheduler.Stop(shutdownCtx); err != nil {
			log.Warn("Chain verification scheduler did not stop", zap.Error(err))
		}
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tp.Shutdown,
		"meter":  mp.Shutdown,
		"logs":   lp.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			baseLog.Warn("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}
