package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/enrollment-backend/api/routes"
	"github.com/angelmondragon/enrollment-backend/internal/applications"
	"github.com/angelmondragon/enrollment-backend/internal/auth"
	"github.com/angelmondragon/enrollment-backend/internal/clearance"
	"github.com/angelmondragon/enrollment-backend/internal/ledger"
	"github.com/angelmondragon/enrollment-backend/internal/notifications"
	"github.com/angelmondragon/enrollment-backend/internal/organizations"
	"github.com/angelmondragon/enrollment-backend/internal/provisioning"
	"github.com/angelmondragon/enrollment-backend/internal/recurring"
	"github.com/angelmondragon/enrollment-backend/internal/registration"
	"github.com/angelmondragon/enrollment-backend/internal/users"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
	"github.com/angelmondragon/enrollment-backend/pkg/metrics"
	"github.com/angelmondragon/enrollment-backend/pkg/migrate"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
	"github.com/angelmondragon/enrollment-backend/pkg/redis"
	"github.com/angelmondragon/enrollment-backend/pkg/security"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDeps(cfg, logg, dbClient, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.Redis = redisClient
	deps.Idempotency = redisClient

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}

// buildDeps assembles the pipeline services over one database client. The
// redis-backed fields are filled by the caller.
func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, registry *prometheus.Registry) (routes.Deps, error) {
	conn := dbClient.DB()
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)
	pipelineMetrics := metrics.NewPipelineMetrics(registry)
	usersRepo := users.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	orgService, err := organizations.NewService(organizations.NewRepository(conn), dbClient, publisher, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	ledgerRepo := ledger.NewRepository(conn)
	ledgerService, err := ledger.NewService(ledgerRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	appRepo := applications.NewRepository(conn)
	appService, err := applications.NewService(appRepo, dbClient, publisher, ledgerService, orgService, logg)
	if err != nil {
		return routes.Deps{}, err
	}
	appFees, err := applications.NewFeeHandler(appRepo, publisher)
	if err != nil {
		return routes.Deps{}, err
	}

	trainees := registration.NewRepository(conn)
	regService, err := registration.NewService(appRepo, trainees, dbClient, publisher, ledgerService, logg)
	if err != nil {
		return routes.Deps{}, err
	}
	regFees, err := registration.NewFeeHandler(appRepo, trainees, publisher)
	if err != nil {
		return routes.Deps{}, err
	}

	clearanceService, err := clearance.NewService(ledgerRepo, dbClient, publisher, map[enums.FeePurpose]clearance.Handler{
		enums.FeePurposeApplication:  appFees,
		enums.FeePurposeRegistration: regFees,
	}, cfg.Clearance, pipelineMetrics, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	provService, err := provisioning.NewService(provisioning.Deps{
		Applications: appRepo,
		Users:        usersRepo,
		Records:      provisioning.NewRepository(conn),
		Roles:        provisioning.NewRoleAssigner(usersRepo),
		Hasher:       security.NewHasher(cfg.Password),
		Tx:           dbClient,
		Outbox:       publisher,
		Metrics:      pipelineMetrics,
		Logger:       logg,
	}, cfg.Provisioning)
	if err != nil {
		return routes.Deps{}, err
	}

	generator, err := recurring.NewGenerator(recurring.Deps{
		Sources: recurring.NewSourceRepository(conn),
		Ledger:  ledgerRepo,
		Tx:      dbClient,
		Outbox:  publisher,
		Metrics: pipelineMetrics,
		Logger:  logg,
	}, cfg.Recurring)
	if err != nil {
		return routes.Deps{}, err
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Gatherer:      registry,
		Auth:          authService,
		Applications:  appService,
		Ledger:        ledgerService,
		Clearance:     clearanceService,
		Provisioning:  provService,
		Registration:  regService,
		Recurring:     generator,
		Notifications: notificationService,
	}, nil
}
