package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/yt-audio-extract/internal/domain"
	"github.com/yourusername/yt-audio-extract/internal/fingerprint"
)

// EnvPrefix prefixes every environment override, e.g. YTAUDIO_SERVER_PORT
const EnvPrefix = "YTAUDIO"

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	config := domain.DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.ytaudio")
		v.AddConfigPath("/etc/ytaudio")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// envKeys are the settings most often overridden from the environment. Viper
// only consults the environment for keys it already knows about.
var envKeys = []string{
	"server.host",
	"server.port",
	"browser.bin",
	"browser.headless",
	"browser.no_sandbox",
	"browser.profile_dir",
	"converter.url",
	"extraction.output_dir",
	"extraction.poll_timeout",
	"extraction.concurrent_limit",
	"extraction.max_retries",
	"extraction.launches_per_minute",
	"queue.database_path",
	"logging.level",
	"logging.format",
	"logging.logs_dir",
}

func bindEnv(v *viper.Viper) {
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Extraction.OutputDir = expandPath(config.Extraction.OutputDir)
	config.Queue.DatabasePath = expandPath(config.Queue.DatabasePath)
	config.Browser.ProfileDir = expandPath(config.Browser.ProfileDir)
	config.Browser.Bin = expandPath(config.Browser.Bin)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)

	for i, script := range config.Browser.InitScripts {
		config.Browser.InitScripts[i] = expandPath(script)
	}

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Converter.URL == "" {
		return fmt.Errorf("converter url not configured")
	}
	if config.Converter.InputSelector == "" || config.Converter.ConvertSelector == "" {
		return fmt.Errorf("converter selectors not configured")
	}
	if config.Converter.ArtifactExt == "" {
		return fmt.Errorf("converter artifact extension not configured")
	}

	if len(config.Fingerprint.Viewports) == 0 {
		return fmt.Errorf("viewport catalog is empty")
	}
	for _, vp := range config.Fingerprint.Viewports {
		if _, err := fingerprint.ParseViewport(vp); err != nil {
			return err
		}
	}
	if len(config.Fingerprint.UserAgents) == 0 {
		return fmt.Errorf("user agent catalog is empty")
	}

	h := config.Humanize
	if h.KeystrokeMin > h.KeystrokeMax || h.StartMin > h.StartMax || h.SettleMin > h.SettleMax ||
		h.StepPauseMin > h.StepPauseMax || h.PreClickMin > h.PreClickMax {
		return fmt.Errorf("humanize minimum delays must not exceed maximums")
	}
	if h.WaypointsMin < 1 || h.WaypointsMin > h.WaypointsMax || h.StepsMin < 1 || h.StepsMin > h.StepsMax {
		return fmt.Errorf("invalid humanize waypoint or step range")
	}

	e := config.Extraction
	if e.OutputDir == "" {
		return fmt.Errorf("extraction output directory not configured")
	}
	if e.PollTimeout <= 0 {
		return fmt.Errorf("poll timeout must be positive")
	}
	if e.PollIntervalMin <= 0 || e.PollIntervalMin > e.PollIntervalMax {
		return fmt.Errorf("invalid poll interval range")
	}
	if e.NavigationTimeout <= 0 || e.ElementTimeout <= 0 {
		return fmt.Errorf("navigation and element timeouts must be positive")
	}
	if e.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if e.ConcurrentLimit < 1 {
		return fmt.Errorf("concurrent limit must be at least 1")
	}
	if e.LaunchesPerMinute < 0 {
		return fmt.Errorf("launches per minute cannot be negative")
	}

	if config.Queue.DatabasePath == "" {
		return fmt.Errorf("queue database path not configured")
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("server", config.Server)
	v.Set("browser", config.Browser)
	v.Set("converter", config.Converter)
	v.Set("fingerprint", config.Fingerprint)
	v.Set("humanize", config.Humanize)
	v.Set("extraction", config.Extraction)
	v.Set("queue", config.Queue)
	v.Set("progress", config.Progress)
	v.Set("notification", config.Notification)
	v.Set("logging", config.Logging)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
