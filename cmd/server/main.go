package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	shippingapp "github.com/prepflow/backend/internal/application/shipping"
	"github.com/prepflow/backend/internal/infrastructure/auth"
	"github.com/prepflow/backend/internal/infrastructure/cache"
	"github.com/prepflow/backend/internal/infrastructure/config"
	"github.com/prepflow/backend/internal/infrastructure/logger"
	"github.com/prepflow/backend/internal/infrastructure/persistence"
	"github.com/prepflow/backend/internal/infrastructure/spapi"
	"github.com/prepflow/backend/internal/infrastructure/storage"
	"github.com/prepflow/backend/internal/infrastructure/telemetry"
	"github.com/prepflow/backend/internal/interfaces/http/handler"
	"github.com/prepflow/backend/internal/interfaces/http/middleware"
	"github.com/prepflow/backend/internal/interfaces/http/router"
)

//	@title			PrepFlow Backend API
//	@version		1.0
//	@description	Inbound shipment packing orchestration for FBA prep workflows

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting PrepFlow backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	// Initialize OpenTelemetry metrics
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to shutdown meter provider", zap.Error(err))
		}
	}()

	// Initialize database with the zap-backed GORM logger
	gormLogger := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLogger)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database connection", zap.Error(err))
		}
	}()
	log.Info("Database connection established",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("dbname", cfg.Database.DBName),
	)

	// Register database query tracing when enabled
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Validate seller platform API settings before constructing any client
	if err := cfg.SPAPI.Validate(); err != nil {
		log.Fatal("Invalid seller platform API configuration", zap.Error(err))
	}

	// Repositories
	requestRepo := persistence.NewGormShipmentRequestRepository(db.DB)
	intakeRepo := persistence.NewGormIntakeRepository(db.DB)
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)

	// Seller platform transport: signed client, inbound API surface, poller
	// and the STS/LWA credential broker
	spClient := spapi.NewClient(&cfg.SPAPI, log)
	inboundAPI := spapi.NewAPI(spClient, log)
	poller := spapi.NewPoller(inboundAPI, &cfg.SPAPI, log)
	broker := spapi.NewBroker(&cfg.SPAPI, &http.Client{
		Timeout: time.Duration(cfg.SPAPI.TimeoutSeconds) * time.Second,
	})
	sessions := shippingapp.NewSessionManager(broker, integrationRepo)

	// Throttle cooldown store: Redis when available so cooldowns survive
	// restarts and are shared across replicas, in-memory otherwise
	var throttleStore shippingapp.ThrottleStore
	if cfg.Redis.Enabled {
		redisThrottle, err := cache.NewRedisThrottleStore(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		throttleStore = redisThrottle
		log.Info("Using Redis throttle store",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	} else {
		throttleStore = cache.NewInMemoryThrottleStore()
		log.Info("Using in-memory throttle store")
	}

	// Submission audit archive: S3-compatible object storage when enabled
	var auditStore shippingapp.AuditStore
	if cfg.Storage.Enabled {
		s3Audit, err := storage.NewS3AuditStore(&cfg.Storage, log)
		if err != nil {
			log.Fatal("Failed to initialize audit store", zap.Error(err))
		}
		auditStore = s3Audit
		log.Info("Submission audit archival enabled",
			zap.String("bucket", cfg.Storage.Bucket),
		)
	} else {
		auditStore = storage.NoopAuditStore{}
	}

	// Application services
	optionService := shippingapp.NewPackingOptionService(
		requestRepo, sessions, inboundAPI, poller, throttleStore, &cfg.SPAPI, log)
	groupService := shippingapp.NewPackingGroupService(
		requestRepo, intakeRepo, sessions, inboundAPI, throttleStore, &cfg.SPAPI, log)
	submissionService := shippingapp.NewSubmissionService(
		requestRepo, intakeRepo, sessions, inboundAPI, poller, throttleStore, auditStore, log)
	statusService := shippingapp.NewStatusService(requestRepo)

	// Pipeline business metrics
	var packingMetrics *telemetry.PackingMetrics
	if meterProvider.IsEnabled() {
		packingMetrics, err = telemetry.NewPackingMetrics(telemetry.PackingMetricsConfig{
			Meter:           meterProvider.Meter("prepflow-backend"),
			Logger:          log,
			PendingProvider: telemetry.NewGormPendingRequestsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize packing metrics", zap.Error(err))
			packingMetrics = nil
		} else {
			packingMetrics.StartPeriodicCollection(ctx, 5*time.Minute)
			defer packingMetrics.Stop()
		}
	}

	// JWT authentication
	jwtService := auth.NewJWTService(cfg.JWT)
	var tokenBlacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect token blacklist to Redis", zap.Error(err))
		}
		tokenBlacklist = redisBlacklist
	} else {
		tokenBlacklist = auth.NewInMemoryTokenBlacklist()
	}

	// Handlers
	packingHandler := handler.NewPackingHandler(
		optionService, groupService, submissionService, statusService)
	systemHandler := handler.NewSystemHandler()

	// Gin engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSFromConfig(cfg.HTTP))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
	}
	if cfg.HTTP.RateLimitEnabled {
		globalLimiter := middleware.NewRateLimiter(
			cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(globalLimiter))
	}

	// Health check outside the versioned API, no authentication
	engine.GET("/health", healthHandler(db))

	// Routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/health",
			"/api/v1/system/ping",
		},
		Logger: log,
	})

	submitLimiter := middleware.NewRateLimiter(
		cfg.HTTP.SubmitRateLimitRequests, cfg.HTTP.SubmitRateLimitWindow)

	shipmentGroup := router.NewDomainGroup("shipping", "/shipments").
		Use(jwtMiddleware).
		POST("/:id/packing/resolve-options",
			stageRecorder(packingMetrics, telemetry.StageResolveOptions),
			packingHandler.ResolveOptions).
		POST("/:id/packing/hydrate-groups",
			stageRecorder(packingMetrics, telemetry.StageHydrateGroups),
			packingHandler.HydrateGroups).
		POST("/:id/packing/submit",
			middleware.SubmitRateLimit(submitLimiter),
			stageRecorder(packingMetrics, telemetry.StageSubmit),
			packingHandler.Submit).
		GET("/:id/packing/status", packingHandler.Status)

	systemGroup := router.NewDomainGroup("system", "/system").
		GET("/ping", systemHandler.Ping).
		GET("/info", jwtMiddleware, systemHandler.GetSystemInfo)

	r.Register(shipmentGroup)
	r.Register(systemGroup)
	r.Setup()

	// HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Shutting down server", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// healthHandler reports liveness including database connectivity.
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// stageRecorder emits pipeline stage metrics for a packing endpoint. The
// outcome is derived from the response status after the handler runs.
func stageRecorder(pm *telemetry.PackingMetrics, stage telemetry.Stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pm == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		tenantID, err := uuid.Parse(middleware.GetJWTTenantID(c))
		if err != nil {
			return
		}

		status := c.Writer.Status()
		switch {
		case status == http.StatusTooManyRequests:
			pm.RecordThrottle(c.Request.Context(), tenantID, stage)
		case status >= 400:
			pm.RecordStage(c.Request.Context(), tenantID, stage, telemetry.OutcomeFailed, time.Since(start))
		default:
			pm.RecordStage(c.Request.Context(), tenantID, stage, telemetry.OutcomeSuccess, time.Since(start))
		}
	}
}
