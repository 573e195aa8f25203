package main

import (
	"context"
	"os"

	"github.com/securepulse/securepulse/pkg/auth"
	"github.com/securepulse/securepulse/pkg/config"
	"github.com/securepulse/securepulse/pkg/database"
	"github.com/securepulse/securepulse/pkg/events"
	"github.com/securepulse/securepulse/pkg/logger"
	"github.com/securepulse/securepulse/pkg/password"
	"github.com/securepulse/securepulse/pkg/server"
	"github.com/securepulse/securepulse/services/auth/internal/handlers"
	"github.com/securepulse/securepulse/services/auth/internal/repository"
	"github.com/securepulse/securepulse/services/auth/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Signing is validated before anything else so a bad secret never
	// serves a request.
	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		Secret:     cfg.Auth.JWTSecret,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		logger.Error("Failed to configure token issuer", "error", err)
		os.Exit(1)
	}

	hasher, err := password.NewHasher(password.DefaultParams, cfg.Auth.HashWorkers)
	if err != nil {
		logger.Error("Failed to configure password hasher", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Error("Failed to apply schema", "error", err)
		os.Exit(1)
	}

	eventBus, err := events.Connect(cfg.NATS.URL, "securepulse-auth")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(userRepo, hasher, issuer, eventBus)
	h := handlers.New(authService)

	runCtx, stop := server.SignalContext()
	defer stop()

	srv := server.New("auth", cfg.Services.AuthPort, h.Routes(), cfg.Server)
	if err := srv.Run(runCtx); err != nil {
		logger.Error("Auth service error", "error", err)
		os.Exit(1)
	}
}
