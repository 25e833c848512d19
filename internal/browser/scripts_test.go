package browser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadInitScripts(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.js")
	bad := filepath.Join(dir, "bad.js")
	require.NoError(t, os.WriteFile(good, []byte(`Object.defineProperty(navigator, "hardwareConcurrency", {get: () => 8});`), 0644))
	require.NoError(t, os.WriteFile(bad, []byte(`function (`), 0644))

	scripts, err := LoadInitScripts([]string{good})
	require.NoError(t, err)
	assert.Len(t, scripts, 1)

	_, err = LoadInitScripts([]string{good, bad})
	assert.Error(t, err)

	_, err = LoadInitScripts([]string{filepath.Join(dir, "missing.js")})
	assert.Error(t, err)
}
