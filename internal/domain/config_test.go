package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 8080, config.Server.Port)
	assert.True(t, config.Browser.Headless)
	assert.Equal(t, "https://cnvmp3.com/", config.Converter.URL)
	assert.Equal(t, ".mp3", config.Converter.ArtifactExt)
	assert.Equal(t, []string{"1366x768", "1280x720", "1024x768"}, config.Fingerprint.Viewports)
	assert.Len(t, config.Fingerprint.UserAgents, 5)
	assert.Equal(t, 60*time.Second, config.Extraction.PollTimeout)
	assert.Equal(t, 500*time.Millisecond, config.Extraction.PollIntervalMin)
	assert.Equal(t, 1500*time.Millisecond, config.Extraction.PollIntervalMax)
	assert.Equal(t, 20*time.Millisecond, config.Humanize.KeystrokeMin)
	assert.Equal(t, 50*time.Millisecond, config.Humanize.KeystrokeMax)
	assert.Equal(t, 64, config.Progress.BufferSize)
	assert.Equal(t, "info", config.Logging.Level)
}

func TestDefaultConfig_CatalogsAreCopies(t *testing.T) {
	a := DefaultConfig()
	a.Fingerprint.UserAgents[0] = "mutated"

	b := DefaultConfig()
	assert.NotEqual(t, "mutated", b.Fingerprint.UserAgents[0])
}
