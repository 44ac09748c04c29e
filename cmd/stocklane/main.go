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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane-erp/stocklane/internal/app"
	"github.com/stocklane-erp/stocklane/internal/audit"
	"github.com/stocklane-erp/stocklane/internal/auth"
	"github.com/stocklane-erp/stocklane/internal/delivery"
	"github.com/stocklane-erp/stocklane/internal/inventory"
	"github.com/stocklane-erp/stocklane/internal/masterdata/categories"
	"github.com/stocklane-erp/stocklane/internal/masterdata/products"
	"github.com/stocklane-erp/stocklane/internal/notifications"
	"github.com/stocklane-erp/stocklane/internal/observability"
	"github.com/stocklane-erp/stocklane/internal/orders"
	"github.com/stocklane-erp/stocklane/internal/platform/cache"
	"github.com/stocklane-erp/stocklane/internal/rbac"
	"github.com/stocklane-erp/stocklane/internal/reports"
	"github.com/stocklane-erp/stocklane/internal/shared"
	"github.com/stocklane-erp/stocklane/internal/users"
	"github.com/stocklane-erp/stocklane/jobs"
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, permission cache disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)

	var permissionCache *rbac.PermissionCache
	if redisClient != nil {
		permissionCache = rbac.NewPermissionCache(redisClient, cfg.PermissionCacheTTL)
	}
	rbacService := rbac.NewService(rbac.NewRepository(dbpool), permissionCache, auditLogger, logger)
	gate := rbac.Gate{}

	tokenCfg := auth.TokenConfig{
		Secret:    cfg.JWTSecret,
		Algorithm: cfg.JWTAlgorithm,
		TTL:       cfg.AccessTokenTTL,
	}
	issuer, err := auth.NewIssuer(tokenCfg, rbacService, logger)
	if err != nil {
		logger.Error("init token issuer", slog.Any("error", err))
		os.Exit(1)
	}
	verifier, err := auth.NewVerifier(tokenCfg, logger)
	if err != nil {
		logger.Error("init token verifier", slog.Any("error", err))
		os.Exit(1)
	}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, logger, cfg.BcryptCost)
	authHandler := auth.NewHandler(logger, authService, issuer)
	authMiddleware := auth.Middleware{Verifier: verifier, Logger: logger}

	jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, auditLogger, logger, cfg.BcryptCost)
	categoriesService := categories.NewService(dbpool, auditLogger, logger)
	productsService := products.NewService(dbpool, auditLogger, logger)
	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, jobsClient, logger)
	ordersRepo := orders.NewRepository(dbpool)
	ordersService := orders.NewService(ordersRepo, auditLogger, logger)
	deliveriesService := delivery.NewService(dbpool, auditLogger, logger)
	notificationsService := notifications.NewService(dbpool, logger)
	auditService := audit.NewService(dbpool)
	reportsService := reports.NewService(dbpool, auditLogger, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		AuthMiddleware:       authMiddleware,
		AuthHandler:          authHandler,
		RolesHandler:         rbac.NewRolesHandler(logger, rbacService, gate),
		PermissionsHandler:   rbac.NewPermissionsHandler(logger, rbacService, gate),
		UsersHandler:         users.NewHandler(logger, usersService, gate),
		CategoriesHandler:    categories.NewHandler(logger, categoriesService, gate),
		ProductsHandler:      products.NewHandler(logger, productsService, gate),
		InventoryHandler:     inventory.NewHandler(logger, inventoryService, gate),
		OrdersHandler:        orders.NewHandler(logger, ordersService, gate),
		DeliveriesHandler:    delivery.NewHandler(logger, deliveriesService, gate),
		NotificationsHandler: notifications.NewHandler(logger, notificationsService, gate),
		AuditHandler:         audit.NewHandler(logger, auditService, gate),
		ReportsHandler:       reports.NewHandler(logger, reportsService, gate),
		Metrics:              metrics,
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
