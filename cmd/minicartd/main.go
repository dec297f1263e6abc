// Minicart daemon - keeps a local cart reconciled with a remote storefront
// order form and serves the cart state over HTTP.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minicart-sync/internal/analytics"
	"minicart-sync/internal/api"
	"minicart-sync/internal/checkout"
	"minicart-sync/internal/config"
	"minicart-sync/internal/connectivity"
	"minicart-sync/internal/middleware"
	"minicart-sync/internal/notify"
	"minicart-sync/internal/persist"
	"minicart-sync/internal/store"
	cartsync "minicart-sync/internal/sync"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	// Load configuration
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("store_id", cfg.StoreID),
		slog.String("environment", cfg.Environment),
		slog.String("store_url", cfg.Store.StoreURL),
	)

	// Open local persistence
	blobs, err := persist.OpenSQLite(cfg.StateDBPath)
	if err != nil {
		return fmt.Errorf("opening state db: %w", err)
	}
	defer blobs.Close()

	// Analytics sink: Kafka when brokers are configured, log otherwise
	emitter, closeEmitter, err := buildEmitter(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating analytics emitter: %w", err)
	}
	defer closeEmitter()

	// Remote checkout client
	remote, err := checkout.New(checkout.Config{
		StoreURL: cfg.Store.StoreURL,
		Account:  cfg.Store.Account,
		APIToken: cfg.Store.APIToken,
	})
	if err != nil {
		return fmt.Errorf("creating checkout client: %w", err)
	}

	// Hydrate the cart store. The remote form is best-effort: a cold start
	// while unreachable falls back to the persisted snapshot.
	st := store.New(blobs, emitter, logger)
	remoteForm, err := remote.GetOrderForm(ctx)
	if err != nil {
		logger.Warn("fetching order form for hydration",
			slog.String("error", err.Error()))
		remoteForm = nil
	}
	st.Hydrate(remoteForm)
	defer st.Close()

	// Reachability monitor. Without a probe URL the daemon assumes online.
	monitor := connectivity.NewMonitor(false)
	defer monitor.Close()
	if cfg.ProbeURL != "" {
		prober := connectivity.NewProber(monitor, cfg.ProbeURL, cfg.ProbeInterval)
		go prober.Run(ctx)
	}

	// Sync coordinator
	coordinator := cartsync.NewCoordinator(st, remote, monitor, notify.NewLogNotifier(logger), logger)
	defer coordinator.Close()
	go coordinator.Run(ctx)

	// Setup routes
	h := api.New(st, logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery -> logging -> handler
	// Recovery must be outermost to catch panics from logging middleware
	httpHandler := middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logging(logger),
	)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-shutdown:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Stop applying in-flight sync results before tearing anything down
		coordinator.Close()
		cancel()

		// Give outstanding requests time to complete
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// buildEmitter selects the analytics sink. The returned closer is always
// safe to call.
func buildEmitter(cfg *config.Config, logger *slog.Logger) (analytics.Emitter, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		return analytics.NewLogEmitter(logger), func() {}, nil
	}

	kafka, err := analytics.NewKafkaEmitter(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("analytics events to kafka",
		slog.Any("brokers", cfg.KafkaBrokers),
		slog.String("topic", cfg.KafkaTopic),
	)
	return kafka, kafka.Close, nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
