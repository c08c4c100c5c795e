// Command furrdb runs a FurrDB server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/furrdb/furr/internal/server"
	"github.com/furrdb/furr/wire"
)

func main() {
	addr := flag.String("addr", server.DefaultAddr, "TCP address to listen on")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address serving /metrics (disabled if empty)")
	maxMessageSize := flag.Int("max-message-size", wire.DefaultMaxMessageSize, "Maximum request line length in bytes")
	idleTimeout := flag.Duration("idle-timeout", 0, "Close connections idle for this long (0 disables)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if *metricsAddr != "" {
		go serveMetrics(ctx, logger, *metricsAddr, registry)
	}

	srv := server.New(server.Config{
		Addr:           *addr,
		Logger:         logger,
		Registerer:     registry,
		MaxMessageSize: *maxMessageSize,
		IdleTimeout:    *idleTimeout,
	})

	logger.Info("furrdb starting", zap.String("addr", *addr))
	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
	logger.Info("furrdb stopped")
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func serveMetrics(ctx context.Context, logger *zap.Logger, addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	context.AfterFunc(ctx, func() { _ = httpServer.Close() })

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", zap.Error(err))
	}
}
