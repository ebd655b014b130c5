package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"brink_bridge/internal/api"
	"brink_bridge/internal/auth"
	"brink_bridge/internal/collector"
	"brink_bridge/internal/config"
	"brink_bridge/internal/coordinator"
	"brink_bridge/internal/homeassistant"
	"brink_bridge/internal/server"
	"brink_bridge/internal/snapshot"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid config", "error", err)
		os.Exit(1)
	}

	// Setup logging
	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting Brink bridge", "listen_addr", cfg.ListenAddr, "scan_interval", cfg.ScanInterval)

	// Create portal clients sharing one cookie session
	authClient := auth.NewAuthClient(cfg.APIURL, cfg.RequestTimeout, logger)
	creds := auth.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
	}
	apiClient := api.NewAPIClient(authClient, creds, cfg.APIURL, logger)

	store := snapshot.New()
	coord := coordinator.New(apiClient, store, logger)

	// Create and register Prometheus collector
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	brinkCollector := collector.NewBrinkCollector(store, logger)
	registry.MustRegister(brinkCollector)
	coord.SetObserver(brinkCollector)

	// Home Assistant bridge
	var mqttClient mqtt.Client
	if cfg.Mqtt.Enabled() {
		mqttClient = connectMQTT(cfg, coord, logger)
	} else {
		logger.Info("MQTT broker not configured, Home Assistant bridge disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go coord.Run(ctx, cfg.ScanInterval)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.New(coord, registry, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	logger.Info("Shutting down gracefully...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}

	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}

	logger.Info("Bridge stopped")
}

// connectMQTT connects to the broker and subscribes the Home Assistant bridge
// to snapshot updates. Connection failures are logged; the bridge keeps retrying.
func connectMQTT(cfg *config.Config, coord *coordinator.Coordinator, logger *slog.Logger) mqtt.Client {
	opts := cfg.Mqtt.ClientOptions(logger)
	opts.SetConnectRetry(true)

	var bridge *homeassistant.Bridge
	// Re-publish discovery and re-subscribe after every (re)connect.
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("MQTT connected", "broker", cfg.Mqtt.Broker)
		if bridge != nil {
			bridge.Reset()
			bridge.Update(coord.Systems())
		}
	})

	client := mqtt.NewClient(opts)
	bridge = homeassistant.NewBridge(client, coord, cfg.Mqtt.TopicPrefix, cfg.Mqtt.DiscoveryPrefix, cfg.RequestTimeout, logger)
	coord.Subscribe(bridge.Update)

	if t := client.Connect(); t.WaitTimeout(cfg.RequestTimeout) && t.Error() != nil {
		logger.Error("MQTT connection error", "error", t.Error())
	}

	return client
}

// setupLogger creates a structured logger based on configuration.
func setupLogger(level, format string) *slog.Logger {
	var handler slog.Handler

	logLevel := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
