package main

import (
	"os"

	"github.com/securepulse/securepulse/pkg/config"
	"github.com/securepulse/securepulse/pkg/logger"
	"github.com/securepulse/securepulse/pkg/server"
	"github.com/securepulse/securepulse/pkg/stub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := server.SignalContext()
	defer stop()

	srv := server.New("reports", cfg.Services.ReportsPort, stub.Routes("reports", "Reports"), cfg.Server)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Reports service error", "error", err)
		os.Exit(1)
	}
}
