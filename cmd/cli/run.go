package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/yt-audio-extract/internal/app"
	"github.com/yourusername/yt-audio-extract/internal/browser"
	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/pkg/logger"
)

var runCmd = &cobra.Command{
	Use:   "run [url...]",
	Short: "Extract audio in-process without a server",
	Long: `Run drives a local headless Chrome through the converter site for every
URL, at most --concurrency at a time, and prints where each file landed.
Every URL gets its own directory under --output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		outputDir, _ := cmd.Flags().GetString("output")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		verbose, _ := cmd.Flags().GetBool("verbose")

		config, err := app.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if outputDir == "" {
			outputDir = config.Extraction.OutputDir
		}
		if concurrency < 1 {
			concurrency = config.Extraction.ConcurrentLimit
		}

		log := logger.NewCLI(verbose)
		defer log.Sync()

		browser.SweepOrphanProfiles(config.Browser.ProfileDir, config.Browser.OrphanTTL, log)

		ext, err := app.BuildExtractor(config, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runExtractions(ctx, ext, args, outputDir, concurrency, log)
	},
}

// callbackExtractor is the part of the extractor run needs
type callbackExtractor interface {
	ExtractWithCallback(ctx context.Context, sourceURL, outputDir string, onProgress func(domain.ExtractionEvent)) (string, error)
}

func runExtractions(ctx context.Context, ext callbackExtractor, urls []string, outputDir string, concurrency int, log *zap.Logger) error {
	var (
		mu     sync.Mutex
		failed int
	)
	printf := func(format string, a ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Printf(format, a...)
	}

	// a failed URL must not cancel the others, so no errgroup context
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, raw := range urls {
		raw := raw
		label := fmt.Sprintf("%d", i+1)
		dir := filepath.Join(outputDir, label)
		if ref, err := domain.ParseReference(raw); err == nil {
			label = ref.VideoID
			dir = filepath.Join(outputDir, fmt.Sprintf("%02d-%s", i+1, ref.VideoID))
		}

		g.Go(func() error {
			path, err := ext.ExtractWithCallback(ctx, raw, dir, func(ev domain.ExtractionEvent) {
				if ev.IsSentinel() {
					return
				}
				printf("[%s] %-22s %s\n", label, ev.Stage, ev.Message)
			})
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				log.Debug("Extraction failed", zap.String("url", raw), zap.Error(err))
				printf("[%s] FAILED %v\n", label, err)
				return nil
			}
			printf("[%s] %s\n", label, path)
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		return fmt.Errorf("%d of %d extractions failed", failed, len(urls))
	}
	if err := ctx.Err(); err != nil {
		return errors.New("interrupted")
	}
	return nil
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "Path to config file")
	runCmd.Flags().StringP("output", "o", "", "Output directory (default: extraction.output_dir)")
	runCmd.Flags().IntP("concurrency", "n", 0, "Concurrent browser sessions (default: extraction.concurrent_limit)")
	runCmd.Flags().BoolP("verbose", "v", false, "Verbose logging")
}
