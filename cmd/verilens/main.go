// cmd/verilens/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const version = "1.0.0"

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := LoadConfig()
	if err != nil {
		// Configuration errors are fatal: the process must not start
		logger.Fatal("configuration error", zap.Error(err))
	}

	logger.Info("verilens starting",
		zap.String("version", version),
		zap.Int("port", cfg.Port),
		zap.String("analysis_mode", cfg.AnalysisMode),
		zap.String("vision_provider", cfg.VisionProvider),
		zap.String("vision_model", cfg.VisionModel),
		zap.Int("max_workers", cfg.MaxWorkers))

	search := NewTavilyClient(cfg.TavilyAPIKey, cfg.SearchDomains, cfg.SearchTimeout, cfg.SearchRatePerSec, logger)
	vision := NewVisionClient(cfg, logger)
	pipeline := NewPipeline(cfg, search, vision, logger)
	metrics := NewMetricsCollector()
	server := NewServer(cfg, pipeline, metrics, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown did not complete cleanly", zap.Error(err))
	}
}
