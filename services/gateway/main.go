package main

import (
	"os"

	"github.com/securepulse/securepulse/pkg/auth"
	"github.com/securepulse/securepulse/pkg/config"
	"github.com/securepulse/securepulse/pkg/logger"
	"github.com/securepulse/securepulse/pkg/server"
	"github.com/securepulse/securepulse/services/gateway/internal/handlers"
	"github.com/securepulse/securepulse/services/gateway/internal/proxy"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	issuer, err := auth.NewIssuer(auth.IssuerConfig{
		Secret:     cfg.Auth.JWTSecret,
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
	})
	if err != nil {
		logger.Error("Failed to configure token validation", "error", err)
		os.Exit(1)
	}

	// Upstream calls must finish inside the gateway's own write timeout.
	timeout := cfg.Server.WriteTimeout
	svc := cfg.Services
	h := handlers.New(issuer, handlers.Upstreams{
		Auth:      proxy.NewServiceProxy("auth", svc.AuthURL, timeout),
		Inventory: proxy.NewServiceProxy("inventory", svc.InventoryURL, timeout),
		SOC:       proxy.NewServiceProxy("soc", svc.SOCURL, timeout),
		AI:        proxy.NewServiceProxy("ai", svc.AIURL, timeout),
		Reports:   proxy.NewServiceProxy("reports", svc.ReportsURL, timeout),
	})

	ctx, stop := server.SignalContext()
	defer stop()

	srv := server.New("gateway", svc.GatewayPort, h.Routes(), cfg.Server)
	if err := srv.Run(ctx); err != nil {
		logger.Error("Gateway server error", "error", err)
		os.Exit(1)
	}
}
