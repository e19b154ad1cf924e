package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/roster-ledger-api/api/swagger"
	"github.com/noah-isme/roster-ledger-api/internal/bootstrap"
	"github.com/noah-isme/roster-ledger-api/internal/handler"
	"github.com/noah-isme/roster-ledger-api/internal/ledger"
	"github.com/noah-isme/roster-ledger-api/internal/middleware"
	"github.com/noah-isme/roster-ledger-api/internal/repository"
	"github.com/noah-isme/roster-ledger-api/internal/service"
	"github.com/noah-isme/roster-ledger-api/internal/validation"
	"github.com/noah-isme/roster-ledger-api/pkg/cache"
	"github.com/noah-isme/roster-ledger-api/pkg/config"
	"github.com/noah-isme/roster-ledger-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/roster-ledger-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/roster-ledger-api/pkg/middleware/requestid"
	"github.com/noah-isme/roster-ledger-api/pkg/tabular"
)

// @title Roster Ledger API
// @version 1.0.0
// @description Versioned workforce roster with an append-only audit log
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	metrics := service.NewMetricsService()
	validate := validation.New()

	cacheSvc := service.NewCacheService(nil, metrics, cfg.Cache.TTL, logr, false)
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("roster cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			cacheSvc = service.NewCacheService(repository.NewCacheRepository(client, logr), metrics, cfg.Cache.TTL, logr, true)
			cacheSvc.InvalidateRoster(ctx)
		}
	}

	target, err := bootstrap.SyncReplica(ctx, cfg.Sync)
	if err != nil {
		return fmt.Errorf("sync replica: %w", err)
	}

	var syncSvc *service.SyncService
	hooks := []ledger.Option{
		ledger.WithObserver(metrics),
		ledger.WithCommitHook(func(revision uint64) {
			if syncSvc != nil {
				syncSvc.Hook(revision)
			}
		}),
		ledger.WithCommitHook(func(uint64) {
			if cacheSvc.Enabled() {
				go cacheSvc.InvalidateRoster(context.Background())
			}
		}),
	}
	store, err := bootstrap.OpenStore(ctx, cfg, logr, hooks...)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()

	if target != nil {
		syncSvc = service.NewSyncService(store, target, service.SyncConfig{
			Workers:    cfg.Sync.Workers,
			BufferSize: cfg.Sync.BufferSize,
			Retries:    cfg.Sync.Retries,
			RetryDelay: cfg.Sync.RetryDelay,
		}, metrics, logr)
		syncSvc.Start(ctx)
		defer syncSvc.Stop()
		logr.Info("ledger sync enabled", zap.String("target", target.Target()))
	}

	archiver, err := bootstrap.Archiver(cfg, target, logr)
	if err != nil {
		return err
	}

	rosterSvc := service.NewRosterService(store, validate, logr,
		service.WithStrictCatalog(cfg.Ledger.StrictCatalog),
		service.WithMutationRecorder(metrics),
	)
	importSvc := service.NewImportService(store, tabular.Reader{MaxBytes: cfg.Import.MaxFileSizeBytes}, logr, metrics)
	querySvc := service.NewQueryService(store, cacheSvc, logr)
	exportSvc := service.NewExportService(store, logr, nil, nil, nil)
	authSvc := service.NewAuthService(repository.NewCredentialsRepository(cfg.Credentials.File), validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	adminSvc := service.NewAdminService(store, archiver, cfg.Ledger.WipeCode, cfg.Ledger.ArchiveOnWipe, logr)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.Register(r, cfg.APIPrefix, authSvc, handler.Handlers{
		Auth:    handler.NewAuthHandler(authSvc),
		Roster:  handler.NewRosterHandler(rosterSvc, querySvc),
		Import:  handler.NewImportHandler(importSvc),
		Export:  handler.NewExportHandler(exportSvc),
		Audit:   handler.NewAuditHandler(querySvc),
		Admin:   handler.NewAdminHandler(adminSvc, metrics),
		Metrics: handler.NewMetricsHandler(metrics, store.Verify),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "backend", cfg.Ledger.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
