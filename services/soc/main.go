package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/securepulse/securepulse/pkg/config"
	"github.com/securepulse/securepulse/pkg/database"
	"github.com/securepulse/securepulse/pkg/events"
	"github.com/securepulse/securepulse/pkg/logger"
	"github.com/securepulse/securepulse/pkg/server"
	"github.com/securepulse/securepulse/services/soc/internal/audit"
	"github.com/securepulse/securepulse/services/soc/internal/handlers"
	"github.com/securepulse/securepulse/services/soc/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := server.SignalContext()
	defer stop()

	redisClient, err := database.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	eventBus, err := events.Connect(cfg.NATS.URL, "securepulse-soc")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	if err := audit.NewConsumer(eventBus).Start(); err != nil {
		logger.Error("Failed to subscribe to auth events", "error", err)
		os.Exit(1)
	}

	broker := tasks.NewRedisBroker(redisClient)

	runner := tasks.NewRunner(broker)
	runner.Register(tasks.PollAlertsTask, tasks.PollAlerts)

	scheduler := tasks.NewScheduler(broker, tasks.PollAlertsTask, cfg.SOC.AlertPollInterval)
	srv := server.New("soc", cfg.Services.SOCPort, handlers.New(broker).Routes(), cfg.Server)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runner.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("SOC service error", "error", err)
		os.Exit(1)
	}
}
