package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/yt-audio-extract/internal/browser"
	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/extractor"
	"github.com/yourusername/yt-audio-extract/internal/fingerprint"
	"github.com/yourusername/yt-audio-extract/internal/humanize"
	"github.com/yourusername/yt-audio-extract/internal/jitter"
)

// BuildExtractor wires the Chrome-backed extractor from configuration. The
// fingerprint generator and the interaction simulator share one random
// source.
func BuildExtractor(config *domain.Config, logger *zap.Logger) (*extractor.Extractor, error) {
	rnd := jitter.New()

	profiles, err := fingerprint.NewGenerator(config.Fingerprint, rnd)
	if err != nil {
		return nil, fmt.Errorf("failed to create fingerprint generator: %w", err)
	}

	opener, err := browser.NewRodOpener(&config.Browser, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser opener: %w", err)
	}

	sim := humanize.New(config.Humanize, rnd, logger)

	return extractor.New(opener, profiles, sim, rnd, config.Converter, config.Extraction, logger), nil
}
