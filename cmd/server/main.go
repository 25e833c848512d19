package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/api"
	"github.com/yourusername/yt-audio-extract/api/handlers"
	"github.com/yourusername/yt-audio-extract/internal/app"
	"github.com/yourusername/yt-audio-extract/internal/browser"
	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/infrastructure"
	"github.com/yourusername/yt-audio-extract/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

var configPath = flag.String("config", "", "Path to config file (default: ./configs, ~/.ytaudio, /etc/ytaudio)")

func main() {
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	if err := createDirectories(config); err != nil {
		return err
	}

	// category logs: extraction lifecycle and application errors
	multiLog, err := logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Logging.LogsDir,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize category logs: %w", err)
	}
	defer multiLog.Close()

	log.Info("Starting yt-audio-extract server",
		zap.String("version", handlers.Version),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("converter", config.Converter.URL),
		zap.String("output_dir", config.Extraction.OutputDir),
		zap.Int("concurrent_limit", config.Extraction.ConcurrentLimit))

	repo, err := infrastructure.NewSQLiteExtractionRepository(config.Queue.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	ext, err := app.BuildExtractor(config, log)
	if err != nil {
		return err
	}

	var notifier app.Notifier
	if config.Notification.Enabled {
		notifier = infrastructure.NewNotificationService(&config.Notification, log)
	}

	hub := app.NewProgressHub(&config.Progress, log)
	extractionMgr := app.NewExtractionManager(repo, ext, hub, notifier, &config.Extraction, log)
	queueMgr := app.NewQueueManager(repo, extractionMgr, hub, &config.Queue, multiLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go browser.StartProfileSweeper(ctx, config.Browser.ProfileDir,
		config.Browser.OrphanTTL, config.Browser.SweepInterval, log)

	if config.Extraction.AutoStartWorkers {
		if err := queueMgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start queue manager: %w", err)
		}
	}

	router := api.SetupRouter(queueMgr, extractionMgr, hub, repo, log, multiLog)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serveErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down server...")

	// running attempts are abandoned; their records are requeued on next start
	cancel()
	if queueMgr.IsRunning() {
		if err := queueMgr.Stop(); err != nil {
			log.Error("Error stopping queue manager", zap.Error(err))
		}
	}

	// release SSE and websocket followers before draining connections
	hub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
	return nil
}

func createDirectories(config *domain.Config) error {
	dirs := []string{
		config.Extraction.OutputDir,
		config.Browser.ProfileDir,
		config.Logging.LogsDir,
		filepath.Dir(config.Queue.DatabasePath),
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
