package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/enrollment-backend/internal/notifications"
	"github.com/angelmondragon/enrollment-backend/internal/users"
	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/db"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
	"github.com/angelmondragon/enrollment-backend/pkg/metrics"
	"github.com/angelmondragon/enrollment-backend/pkg/migrate"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/enrollment-backend/pkg/outbox/registry"
	"github.com/angelmondragon/enrollment-backend/pkg/pubsub"
	"github.com/angelmondragon/enrollment-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-dispatcher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-dispatcher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-dispatcher",
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

	guard, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	var sender notifications.Sender
	if strings.EqualFold(cfg.Notify.Transport, config.NotifyTransportPubSub) {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.Notify, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub client", err)
			}
		}()
		sender, err = notifications.NewSender(cfg.Notify, pubsubClient, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create notification sender", err)
			os.Exit(1)
		}
	} else {
		sender, err = notifications.NewSender(cfg.Notify, nil, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create notification sender", err)
			os.Exit(1)
		}
	}
	if closer, ok := sender.(interface{ Close() error }); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logg.Error(context.Background(), "error closing notification sender", err)
			}
		}()
	}

	recipients, err := notifications.NewRecipientResolver(users.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create recipient resolver", err)
		os.Exit(1)
	}

	dispatcher, err := notifications.NewDispatcher(notifications.DispatcherParams{
		Logger:        logg,
		DB:            dbClient,
		Outbox:        outbox.NewRepository(dbClient.DB()),
		DLQ:           outbox.NewDLQRepository(dbClient.DB()),
		Registry:      registry.NewEventRegistry(),
		Notifications: notifications.NewRepository(dbClient.DB()),
		Recipients:    recipients,
		Sender:        sender,
		Idempotency:   guard,
		Metrics:       metrics.NewPipelineMetrics(prometheus.DefaultRegisterer),
		Config:        cfg.Outbox,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox dispatcher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"transport":   cfg.Notify.Transport,
	})
	logg.Info(ctx, "starting outbox dispatcher")

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox dispatcher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox dispatcher shutting down gracefully")
}
