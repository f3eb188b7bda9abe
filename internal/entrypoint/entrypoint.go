package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/auth"
	"github.com/mrlokans/phonedir/internal/config"
	"github.com/mrlokans/phonedir/internal/crypto"
	http_controllers "github.com/mrlokans/phonedir/internal/http"
	"github.com/mrlokans/phonedir/internal/scheduler"
	"github.com/mrlokans/phonedir/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, logger *zap.Logger, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second
	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server", zap.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener so running batches can
	// persist their progress.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	logger.Info("server exiting")
}

func Run(cfg *config.Config, version string) {
	logger, err := NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting phonedir", zap.String("version", version))
	if !cfg.Global.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := Bootstrap(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("error closing database", zap.Error(err))
		}
	}()

	// Task queue for batch imports and notification cleanup
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	var batches http_controllers.BatchQueue
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.FromConfig(cfg.Tasks), logger)
		if err != nil {
			logger.Fatal("failed to initialize task queue", zap.Error(err))
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error("error closing task client", zap.Error(err))
			}
		}()

		taskClient.Register(
			tasks.NewImportBatchQueue(app.Imports, app.Runs, app.Notifications, cfg.Import.RequestTimeout, logger.Named("batch")),
			tasks.NewCleanupNotificationsQueue(app.Notifications, logger),
		)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)

		batches = tasks.NewBatchImports(taskClient, app.Runs, app.Settings.ImportBatchSize, logger)
	} else {
		logger.Warn("task queue disabled, /import-batch is unavailable")
	}

	retention := cfg.Sync.NotificationRetentionDays
	maintenance := func(ctx context.Context) error {
		if taskClient != nil {
			_, err := taskClient.Add(tasks.CleanupNotificationsTask{RetentionDays: retention}).Ctx(ctx).Save()
			return err
		}
		_, err := app.Notifications.Cleanup(time.Duration(retention) * 24 * time.Hour)
		return err
	}

	syncScheduler := scheduler.NewLDAPSyncScheduler(app.Sync, app.Settings,
		scheduler.WithMaxRetries(cfg.Sync.MaxRetries),
		scheduler.WithMaintenance(maintenance),
		scheduler.WithLogger(logger.Named("scheduler")))
	if err := syncScheduler.Start(context.Background()); err != nil {
		logger.Error("failed to start sync scheduler", zap.Error(err))
	}

	sqlDB, err := app.DB.DB.DB()
	if err != nil {
		logger.Fatal("failed to get SQL DB for sessions", zap.Error(err))
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		logger.Fatal("failed to initialize session manager", zap.Error(err))
	}
	csrfSecret, err := crypto.DeriveKey(app.Secret, crypto.PurposeCSRF)
	if err != nil {
		logger.Fatal("failed to derive CSRF key", zap.Error(err))
	}
	if cfg.Auth.APIToken == "" {
		logger.Info("AUTH_API_TOKEN is not set, the CLI cannot reach this server")
	}

	routerCfg := http_controllers.RouterConfig{
		Contacts:       app.Contacts,
		Imports:        app.Imports,
		Batches:        batches,
		Sync:           app.Sync,
		Notifications:  app.Notifications,
		Settings:       app.Settings,
		Scheduler:      syncScheduler,
		Database:       app.DB,
		TestLDAP:       app.TestDirectory,
		Phones:         app.PhoneLookup,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		SecureCookies:  cfg.Auth.SecureCookies,
		APIToken:       cfg.Auth.APIToken,
		StaticPath:     cfg.UI.StaticPath,
		Version:        version,
		Debug:          cfg.Global.Debug,
		Logger:         logger.Named("http"),
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		syncScheduler.Stop()
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, logger, onShutdown)
}
