package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/estateops/estateops/internal/app"
	"github.com/estateops/estateops/internal/auth"
	"github.com/estateops/estateops/internal/files"
	"github.com/estateops/estateops/internal/inspections"
	"github.com/estateops/estateops/internal/maintenance"
	"github.com/estateops/estateops/internal/masterdata/branches"
	"github.com/estateops/estateops/internal/masterdata/companies"
	"github.com/estateops/estateops/internal/owners"
	"github.com/estateops/estateops/internal/payments"
	"github.com/estateops/estateops/internal/platform/cache"
	"github.com/estateops/estateops/internal/platform/db"
	"github.com/estateops/estateops/internal/properties"
	"github.com/estateops/estateops/internal/rbac"
	"github.com/estateops/estateops/internal/shared"
	"github.com/estateops/estateops/internal/tenants"
	"github.com/estateops/estateops/internal/users"
	"github.com/estateops/estateops/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "estateops_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	rbacStore := rbac.NewRepository(dbpool)
	rbacCache := rbac.NewCache(redisClient, rbac.DefaultCacheTTL)
	rbacService := rbac.NewService(rbacStore, rbacCache, logger)
	rbacMiddleware := rbac.Middleware{Checker: rbacService.Checker(), Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacService, rbacMiddleware)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, rbacService.Checker(), rbacService)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	auditLogger := shared.NewAuditLogger(dbpool)

	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(dbpool)), rbacMiddleware)
	companiesHandler := companies.NewHandler(logger, companies.NewService(companies.NewRepository(dbpool)), rbacMiddleware)
	branchesHandler := branches.NewHandler(logger, branches.NewService(branches.NewRepository(dbpool)), rbacMiddleware)
	propertiesHandler := properties.NewHandler(logger, properties.NewService(properties.NewRepository(dbpool)), rbacMiddleware)
	ownersHandler := owners.NewHandler(logger, owners.NewService(owners.NewRepository(dbpool)), rbacMiddleware)

	tenantsRepo := tenants.NewRepository(dbpool)
	tenantsHandler := tenants.NewHandler(logger, tenants.NewService(tenantsRepo), rbacMiddleware)

	paymentsService := payments.NewService(payments.NewRepository(dbpool), tenantsRepo, jobClient, idempotencyStore, auditLogger, logger)
	paymentsHandler := payments.NewHandler(logger, paymentsService, rbacMiddleware)

	maintenanceService := maintenance.NewService(maintenance.NewRepository(dbpool), jobClient, logger)
	maintenanceHandler := maintenance.NewHandler(logger, maintenanceService, rbacMiddleware)

	inspectionsHandler := inspections.NewHandler(logger, inspections.NewService(inspections.NewRepository(dbpool)), rbacMiddleware)

	objectStore, err := files.NewS3Store(ctx, files.S3Config{
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		Endpoint:     cfg.S3Endpoint,
		UsePathStyle: cfg.S3UsePathStyle,
	})
	if err != nil {
		logger.Error("init object store", slog.Any("error", err))
		os.Exit(1)
	}
	filesService := files.NewService(files.NewRepository(dbpool), objectStore, logger)
	filesHandler := files.NewHandler(logger, filesService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		RBACHandler:        rbacHandler,
		UsersHandler:       usersHandler,
		CompaniesHandler:   companiesHandler,
		BranchesHandler:    branchesHandler,
		PropertiesHandler:  propertiesHandler,
		OwnersHandler:      ownersHandler,
		TenantsHandler:     tenantsHandler,
		PaymentsHandler:    paymentsHandler,
		MaintenanceHandler: maintenanceHandler,
		InspectionsHandler: inspectionsHandler,
		FilesHandler:       filesHandler,
		JobsHandler:        jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
