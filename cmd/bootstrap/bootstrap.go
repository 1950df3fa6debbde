package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-appointment-service/config"
	deliveryHttp "clinic-appointment-service/internal/delivery/http"
	"clinic-appointment-service/internal/delivery/http/handler"
	"clinic-appointment-service/internal/delivery/http/middleware"
	"clinic-appointment-service/internal/infrastructure/cache"
	"clinic-appointment-service/internal/infrastructure/database"
	"clinic-appointment-service/internal/repository"
	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/internal/usecase"
	"clinic-appointment-service/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server

	doctorLockService *service.DoctorLockService
	warmupService     *service.AvailabilityWarmupService
}

// Options tweaks startup behaviour from the command line.
type Options struct {
	// Migrate applies pending migrations before serving.
	Migrate bool
}

// New creates a new App instance with all dependencies initialized
func New(ctx context.Context, opts Options) (*App, error) {
	app := &App{}

	cfg, log, err := loadConfig()
	if err != nil {
		return nil, err
	}
	app.Config = cfg
	app.Log = log

	location, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.App.Timezone, err)
	}

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, location.String(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db

	if opts.Migrate {
		migrator, err := database.NewMigrator(db, log)
		if err != nil {
			app.Close()
			return nil, err
		}
		if err := migrator.Up(); err != nil {
			app.Close()
			return nil, err
		}
	}

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis, log)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient

	// Initialize all layers
	app.Server = app.initializeServer(location)

	return app, nil
}

// NewMigrator connects to the database only, for the migrate subcommands.
// The returned close func releases the connection.
func NewMigrator() (*database.Migrator, func(), error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Timezone, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}

	migrator, err := database.NewMigrator(db, log)
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	return migrator, closeDB, nil
}

func loadConfig() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg.App.LogLevel)
	log.Info("Configuration loaded successfully")

	return cfg, log, nil
}

// setupLogger configures the logrus logger
func setupLogger(level string) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	return log
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer(location *time.Location) *http.Server {
	cfg := app.Config
	log := app.Log

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize repositories
	txManager := repository.NewTransactionManager(app.DB, cfg.Booking.LockTimeout)
	doctorRepo := repository.NewDoctorRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	auditService := service.NewAuditService(log, auditLogRepo)
	availabilityCache := service.NewAvailabilityCache(app.RedisClient, log, cfg.Booking.AvailabilityCacheTTL)
	app.doctorLockService = service.NewDoctorLockService(log, cfg.Booking.LockTimeout)
	app.warmupService = service.NewAvailabilityWarmupService(txManager, doctorRepo, appointmentRepo, availabilityCache, log, location, time.Now)

	// Initialize usecases
	doctorUsecase := usecase.NewDoctorUsecase(txManager, log, doctorRepo, auditService, availabilityCache)
	availabilityUsecase := usecase.NewAvailabilityUsecase(txManager, log, doctorRepo, appointmentRepo, availabilityCache, location)
	appointmentUsecase := usecase.NewAppointmentUsecase(txManager, log, doctorRepo, appointmentRepo, auditService, app.doctorLockService, availabilityCache, location, time.Now)
	auditLogUsecase := usecase.NewAuditLogUsecase(txManager, log, auditLogRepo)

	// Initialize handlers
	doctorHandler := handler.NewDoctorHandler(doctorUsecase, customValidator)
	availabilityHandler := handler.NewAvailabilityHandler(availabilityUsecase, handler.AvailabilityOptions{
		InactiveDoctorStrict: cfg.Availability.InactiveDoctorStrict,
		NoHoursStrict:        cfg.Availability.NoHoursStrict,
	})
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase)

	// Initialize middleware
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.AllowedOrigins)
	bookingRateLimiter := middleware.NewBookingRateLimiter(cfg.RateLimit.BookingsPerMinute)

	// Initialize router
	router := deliveryHttp.NewRouter(log, doctorHandler, availabilityHandler, appointmentHandler, auditLogHandler, corsMiddleware, bookingRateLimiter)
	httpRouter := router.Setup()

	// Create server
	serverAddr := fmt.Sprintf(":%s", cfg.App.Port)
	return &http.Server{
		Addr:              serverAddr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run(ctx context.Context) {
	// A cold cache only costs latency, so a failed warm-up is not fatal.
	if _, err := app.warmupService.WarmUp(ctx, app.Config.Booking.WarmupDays); err != nil {
		app.Log.Warnf("Availability warm-up failed (non-fatal): %+v", err)
	}

	// Start server in goroutine
	go func() {
		app.Log.Infof("Server starting on port %s", app.Config.App.Port)
		app.Log.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Log.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		app.Log.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	app.Log.Info("Server shutdown complete")
}

// Close stops background services and closes all connections.
func (app *App) Close() {
	if app.doctorLockService != nil {
		app.doctorLockService.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
