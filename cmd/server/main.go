package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appstock "github.com/erp/stockengine/internal/application/stock"
	"github.com/erp/stockengine/internal/infrastructure/cache"
	"github.com/erp/stockengine/internal/infrastructure/config"
	"github.com/erp/stockengine/internal/infrastructure/event"
	"github.com/erp/stockengine/internal/infrastructure/logger"
	"github.com/erp/stockengine/internal/infrastructure/persistence"
	"github.com/erp/stockengine/internal/interfaces/http/handler"
	"github.com/erp/stockengine/internal/interfaces/http/middleware"
	"github.com/erp/stockengine/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting stock accounting engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Availability read cache: Redis when reachable, in-process otherwise.
	var availabilityCache cache.AvailabilityCache
	redisCache, err := cache.NewRedisAvailabilityCache(&cfg.Redis,
		cache.WithRedisTTL(cfg.Accounting.AvailabilityCacheTTL),
		cache.WithRedisLogger(log),
	)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory availability cache", zap.Error(err))
		availabilityCache = cache.NewInMemoryAvailabilityCache(
			cache.WithInMemoryTTL(cfg.Accounting.AvailabilityCacheTTL),
			cache.WithInMemoryLogger(log),
		)
	} else {
		availabilityCache = redisCache
	}
	defer func() {
		if err := availabilityCache.Close(); err != nil {
			log.Error("Error closing availability cache", zap.Error(err))
		}
	}()

	eventBus := event.NewInMemoryEventBus(log)

	scope := persistence.NewGormTransactionScope(db,
		cfg.Accounting.MaxTransactionRetries,
		cfg.Accounting.UpsertChunkSize,
	)

	accountingService := appstock.NewStockAccountingService(
		scope,
		eventBus,
		appstock.NewStockAggregator(log),
		appstock.NewWarehouseStockAggregator(log),
		appstock.NewReservedStockCalculator(log),
		appstock.NewNotAvailableForSaleCalculator(log),
		appstock.NewAvailableStockCalculator(log),
		appstock.NewReorderPointTracker(log),
		log,
	)

	// Inbound integration events from the surrounding services.
	orderWrittenHandler := appstock.NewOrderWrittenHandler(accountingService, log)
	eventBus.Subscribe(orderWrittenHandler)
	warehouseWrittenHandler := appstock.NewWarehouseWrittenHandler(accountingService, log)
	eventBus.Subscribe(warehouseWrittenHandler)
	productWrittenHandler := appstock.NewProductWrittenHandler(accountingService, log)
	eventBus.Subscribe(productWrittenHandler)
	locationReassignedHandler := appstock.NewLocationReassignedHandler(accountingService, log)
	eventBus.Subscribe(locationReassignedHandler)

	// Outbound accounting notifications invalidate the availability cache.
	invalidationHandler := cache.NewAvailabilityInvalidationHandler(availabilityCache, log)
	eventBus.Subscribe(invalidationHandler)

	log.Info("Event handlers registered",
		zap.Strings("order_written_events", orderWrittenHandler.EventTypes()),
		zap.Strings("warehouse_written_events", warehouseWrittenHandler.EventTypes()),
		zap.Strings("product_written_events", productWrittenHandler.EventTypes()),
		zap.Strings("location_reassigned_events", locationReassignedHandler.EventTypes()),
		zap.Strings("cache_invalidation_events", invalidationHandler.EventTypes()),
	)

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	engine.GET("/health", healthHandler(db))

	stockHandler := handler.NewStockHandler(
		accountingService,
		scope,
		availabilityCache,
		cfg.Accounting.AvailabilityCacheTTL,
		log,
	)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(stockHandler)
	r.Setup()

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports process and database health
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
