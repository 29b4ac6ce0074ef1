package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bmxtools/raceday/app/eventbus"
	"github.com/bmxtools/raceday/app/gateway"
	"github.com/bmxtools/raceday/config"
	"github.com/bmxtools/raceday/internal/observability"
	"github.com/bmxtools/raceday/pkg/jwt"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := observability.NewLogger(observability.Config{
		ServiceName: "raceday-gateway",
		Environment: cfg.Observability.Environment,
		LogLevel:    cfg.Observability.LogLevel,
	})

	bus, err := eventbus.New(ctx, cfg.NATS.URL, logger)
	if err != nil {
		log.Fatalf("Failed to connect event bus: %v", err)
	}
	defer bus.Close()

	sessions := jwt.NewService(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.RefreshAfter)
	hub := gateway.NewHub(ctx, bus, sessions, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)

	addr := os.Getenv("GATEWAY_ADDRESS")
	if addr == "" {
		addr = ":8081"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("WebSocket gateway listening", "address", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Gateway stopped", "error", err.Error())
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", "error", err.Error())
	}
	logger.Info("WebSocket gateway stopped")
}
