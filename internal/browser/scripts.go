package browser

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/yt-audio-extract/internal/fingerprint"
)

// LoadInitScripts reads the given JS files and rejects any that do not parse
func LoadInitScripts(paths []string) ([]string, error) {
	scripts := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read init script: %w", err)
		}
		src := string(data)
		if err := fingerprint.CompileCheck(filepath.Base(path), src); err != nil {
			return nil, err
		}
		scripts = append(scripts, src)
	}
	return scripts, nil
}
