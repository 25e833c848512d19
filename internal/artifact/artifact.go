// Package artifact finds and removes files produced by the converter site's
// download.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Cleanup removes the artifact at path. A missing path is not an error, so
// calling it twice is safe.
func Cleanup(path string) error {
	if path == "" {
		return nil
	}
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to remove artifact %s: %w", path, err)
}

// Latest returns the newest regular file in dir whose extension matches ext
// (case-insensitive), or "" when none exists. Modification time stands in for
// creation time; equal times fall back to the lexically greater name.
func Latest(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var (
		best     string
		bestInfo fs.FileInfo
	)
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !MatchesExt(entry.Name(), ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		if bestInfo == nil || newer(info, bestInfo) {
			best, bestInfo = entry.Name(), info
		}
	}

	if bestInfo == nil {
		return "", nil
	}
	return filepath.Join(dir, best), nil
}

// MatchesExt reports whether name carries ext, ignoring case
func MatchesExt(name, ext string) bool {
	if ext == "" {
		return false
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.EqualFold(filepath.Ext(name), ext)
}

func newer(a, b fs.FileInfo) bool {
	if !a.ModTime().Equal(b.ModTime()) {
		return a.ModTime().After(b.ModTime())
	}
	return a.Name() > b.Name()
}
