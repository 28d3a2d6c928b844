package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/rideline/navigator/internal/cache"
	"github.com/rideline/navigator/internal/clients/directions"
	"github.com/rideline/navigator/internal/config"
	"github.com/rideline/navigator/internal/services"
	"github.com/rideline/navigator/internal/tracing"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing is optional; without it handlers run unwrapped
	wrap := func(h http.HandlerFunc, _ string) http.Handler { return h }
	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(tracing.Config{
			ServiceName:    cfg.Tracing.ServiceName,
			JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		})
		if err != nil {
			logger.Fatal("failed to initialize tracing", zap.Error(err))
		}
		defer shutdown(ctx)
		wrap = tracing.WrapHandlerFunc
	}

	routeCache := cache.New(logger)
	routeCache.StartPeriodicCleanup(ctx, cfg.Cache.CleanupInterval())

	var opts []directions.Option
	if cfg.Directions.BaseURL != "" {
		opts = append(opts, directions.WithBaseURL(cfg.Directions.BaseURL))
	}
	opts = append(opts, directions.WithTimeout(cfg.Directions.Timeout()))
	directionsClient := directions.NewClient(cfg.Directions.APIKey, logger, opts...)

	hub := services.NewProgressHub()
	navService := services.NewNavigationService(directionsClient, routeCache, hub, cfg, logger)
	handlers := services.NewHandlers(navService, hub, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	handlers.Register(mux, wrap)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("navigation server listening", zap.String("addr", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatal("server failed", zap.Error(err))
	case sig := <-shutdown:
		logger.Info("shutting down", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete, forcing close", zap.Error(err))
			server.Close()
		}
	}
}
