package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partnerhub/core/internal/config"
	"github.com/partnerhub/core/internal/database"
	"github.com/partnerhub/core/internal/middleware"
	"github.com/partnerhub/core/internal/modules/lifecycle"
	"github.com/partnerhub/core/internal/modules/webhook"
	pkgcron "github.com/partnerhub/core/internal/pkg/cron"
	"github.com/partnerhub/core/internal/pkg/jwt"
	pkgredis "github.com/partnerhub/core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg      *config.AppConfig
	router   *gin.Engine
	db       *gorm.DB
	rc       *pkgredis.Client
	keys     *jwt.Keyring
	webhooks *webhook.Service
	notifier *lifecycle.Notifier
	sched    *pkgcron.Scheduler
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// New initializes the application: config → DB → Redis → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	keys, err := applyRuntimeSettings(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	var rc *pkgredis.Client
	if cfg.Redis.Enable {
		if rc, err = pkgredis.Connect(cfg.RedisURL); err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return nil, fmt.Errorf("redis: %w", err)
		}
	} else {
		logger.Info("redis disabled, active subscription cache and rate limiting are off")
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger.Named("HTTP")))
	router.Use(newCORS(cfg))

	wcfg := cfg.Webhook
	webhooks := webhook.NewService(db,
		webhook.WithLogger(logger),
		webhook.WithCache(webhook.NewActiveCache(rc, wcfg.CacheTTL)),
		webhook.WithDeliveryConfig(webhook.DeliveryConfig{
			Timeout:              wcfg.Timeout,
			MaxResponseBodyBytes: wcfg.MaxResponseBodyBytes,
			MaxAttempts:          wcfg.MaxAttempts,
			RetryBaseDelay:       wcfg.RetryBaseDelay,
			RetryMaxDelay:        wcfg.RetryMaxDelay,
			UserAgent:            wcfg.UserAgent,
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	sched := pkgcron.New(logger)
	registerCronJobs(sched, webhooks, cfg)
	sched.Start(ctx)

	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		rc:       rc,
		keys:     keys,
		webhooks: webhooks,
		notifier: lifecycle.New(webhooks, logger),
		sched:    sched,
		logger:   logger,
		cancel:   cancel,
	}
	app.registerRoutes()
	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Webhooks exposes the webhook service to the host application.
func (a *App) Webhooks() *webhook.Service { return a.webhooks }

// Notifier is where business code reports lifecycle changes.
func (a *App) Notifier() *lifecycle.Notifier { return a.notifier }

// Shutdown stops background jobs, drains in-flight deliveries until ctx is
// done and closes connections.
func (a *App) Shutdown(ctx context.Context) error {
	a.cancel()
	a.sched.Wait()

	var errs []error
	if err := a.webhooks.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain webhook deliveries: %w", err))
	}
	if a.rc != nil {
		if err := a.rc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

var processStart = time.Now()
