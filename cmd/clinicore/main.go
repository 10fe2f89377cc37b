package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicore/clinicore/internal/access"
	"github.com/clinicore/clinicore/internal/app"
	"github.com/clinicore/clinicore/internal/auth"
	"github.com/clinicore/clinicore/internal/grants"
	"github.com/clinicore/clinicore/internal/identity"
	"github.com/clinicore/clinicore/internal/observability"
	"github.com/clinicore/clinicore/internal/patients"
	"github.com/clinicore/clinicore/internal/platform/cache"
	"github.com/clinicore/clinicore/internal/platform/db"
	"github.com/clinicore/clinicore/internal/roles"
	"github.com/clinicore/clinicore/internal/shared"
	"github.com/clinicore/clinicore/internal/team"
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

	sessionManager := shared.NewSessionManager(redisClient, "clinicore_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	metrics := observability.NewMetrics()

	identityRepo := identity.NewRepository(dbpool)
	resolver := identity.NewResolver(identityRepo, logger)

	grantsRepo := grants.NewRepository(dbpool)
	grantsCache := grants.NewCache(redisClient, 10*time.Minute)
	grantsService := grants.NewService(grantsRepo, grantsCache, auditLogger, logger)
	if err := grantsCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("grants cache listener", slog.Any("error", err))
	}

	registry := access.NewRegistry(grantsService, redisClient, logger)
	registry.Listen(ctx)
	guard := access.Middleware{Resolver: resolver, Registry: registry, Logger: logger, Metrics: metrics}

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, resolver, sessionManager, csrfManager, registry, auditLogger)

	accessHandler := access.NewHandler(logger, guard)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, auditLogger, logger)
	rolesHandler := roles.NewHandler(logger, rolesService)

	grantsHandler := grants.NewHandler(logger, grantsService, func(raw string) bool {
		_, ok := access.ParseModule(raw)
		return ok
	})

	teamRepo := team.NewRepository(dbpool)
	teamService := team.NewService(teamRepo, rolesService, auditLogger, logger)
	teamHandler := team.NewHandler(logger, teamService)

	patientsRepo := patients.NewRepository(dbpool)
	patientsService := patients.NewService(patientsRepo, auditLogger, logger)
	patientsHandler := patients.NewHandler(logger, patientsService)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		AuthHandler:     authHandler,
		AccessHandler:   accessHandler,
		TeamHandler:     teamHandler,
		RolesHandler:    rolesHandler,
		GrantsHandler:   grantsHandler,
		PatientsHandler: patientsHandler,
		Guard:           guard,
		Metrics:         metrics,
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
