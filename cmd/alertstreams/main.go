// Package main provides the CLI entry point for the alert stream
// supervisor. It loads the stream configuration, builds the stream
// registry, and supervises one listener per active stream until the
// process is terminated.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"alertstreams/internal/config"
	"alertstreams/internal/metrics"
	"alertstreams/internal/stream"
	"alertstreams/internal/supervisor"

	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
)

func main() {
	var configPath string
	var redisAddr string
	var logFormat string
	var logLevel string
	var reportInterval time.Duration
	flag.StringVar(&configPath, "config", getEnvOrDefault("ALERT_STREAMS_CONFIG", "streams.json"), "Path to the stream configuration file")
	flag.StringVar(&redisAddr, "redis-addr", getEnvOrDefault("REDIS_ADDR", ""), "Redis address for metrics reporting (empty disables metrics)")
	flag.StringVar(&logFormat, "log-format", "json", "Log output format: json or text")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, or error")
	flag.DurationVar(&reportInterval, "metrics-interval", metrics.DefaultReportInterval, "Interval for writing metrics reports")
	flag.Parse()

	setupLogger(logFormat, logLevel)

	slog.Info("Starting alertstreams supervisor",
		"config", configPath,
		"redis_addr", redisAddr,
		"metrics_interval", reportInterval,
	)

	entries, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load stream configuration", "error", err)
		os.Exit(1)
	}

	streams, err := stream.Build(entries)
	if err != nil {
		slog.Error("Invalid stream configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Stream registry built", "streams", len(streams))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if redisAddr != "" {
		slog.Info("Connecting to Redis for metrics reporting", "addr", redisAddr)
		redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		collector := metrics.NewCollector("alertstreams", redisClient)
		collector.SetReportInterval(reportInterval)
		for _, st := range streams {
			st.SetRecorder(collector.Stream(st.Name()))
		}
		collector.Start(ctx)
		defer collector.Stop()
	}

	if err := supervisor.New(streams).Run(ctx); err != nil {
		slog.Error("Supervisor failed", "error", err)
		os.Exit(1)
	}

	slog.Info("alertstreams supervisor stopped")
}

// setupLogger installs the process-wide default logger.
func setupLogger(format, level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	var handler slog.Handler
	if format == "text" {
		handler = tint.NewHandler(os.Stderr, &tint.Options{Level: lvl})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}

// getEnvOrDefault returns the environment variable value or a fallback.
func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
