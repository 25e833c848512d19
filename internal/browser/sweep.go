package browser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SweepOrphanProfiles removes profile directories under baseDir that carry
// ProfileDirPrefix and were last modified more than ttl ago. Such directories
// are left behind when the process dies with a browser still open.
func SweepOrphanProfiles(baseDir string, ttl time.Duration, logger *zap.Logger) int {
	if baseDir == "" {
		baseDir = os.TempDir()
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		logger.Warn("Failed to read profile directory", zap.String("dir", baseDir), zap.Error(err))
		return 0
	}

	removed := 0
	now := time.Now()
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), ProfileDirPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= ttl {
			continue
		}

		fullPath := filepath.Join(baseDir, entry.Name())
		if err := os.RemoveAll(fullPath); err != nil {
			logger.Warn("Failed to remove orphan profile", zap.String("path", fullPath), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("Removed orphan browser profiles",
			zap.String("dir", baseDir),
			zap.Int("count", removed))
	}
	return removed
}

// StartProfileSweeper sweeps once immediately and then every interval until
// ctx is cancelled
func StartProfileSweeper(ctx context.Context, baseDir string, ttl, interval time.Duration, logger *zap.Logger) {
	if ttl <= 0 || interval <= 0 {
		return
	}

	SweepOrphanProfiles(baseDir, ttl, logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			SweepOrphanProfiles(baseDir, ttl, logger)
		}
	}
}
