package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server" yaml:"server"`
	Browser      BrowserConfig      `mapstructure:"browser" yaml:"browser"`
	Converter    ConverterConfig    `mapstructure:"converter" yaml:"converter"`
	Fingerprint  FingerprintConfig  `mapstructure:"fingerprint" yaml:"fingerprint"`
	Humanize     HumanizeConfig     `mapstructure:"humanize" yaml:"humanize"`
	Extraction   ExtractionConfig   `mapstructure:"extraction" yaml:"extraction"`
	Queue        QueueConfig        `mapstructure:"queue" yaml:"queue"`
	Progress     ProgressConfig     `mapstructure:"progress" yaml:"progress"`
	Notification NotificationConfig `mapstructure:"notification" yaml:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// BrowserConfig controls how Chrome is launched for each session
type BrowserConfig struct {
	Bin           string        `mapstructure:"bin" yaml:"bin"` // empty: look up a local Chrome
	Headless      bool          `mapstructure:"headless" yaml:"headless"`
	Leakless      bool          `mapstructure:"leakless" yaml:"leakless"`
	NoSandbox     bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	ProfileDir    string        `mapstructure:"profile_dir" yaml:"profile_dir"`   // parent of per-session user-data dirs, empty: os.TempDir
	ExtraFlags    []string      `mapstructure:"extra_flags" yaml:"extra_flags"`   // "name=value" or "name"
	InitScripts   []string      `mapstructure:"init_scripts" yaml:"init_scripts"` // JS files evaluated on every new document
	OrphanTTL     time.Duration `mapstructure:"orphan_ttl" yaml:"orphan_ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// ConverterConfig describes the third-party converter site
type ConverterConfig struct {
	URL             string `mapstructure:"url" yaml:"url"`
	InputSelector   string `mapstructure:"input_selector" yaml:"input_selector"`
	ConvertSelector string `mapstructure:"convert_selector" yaml:"convert_selector"`
	ArtifactExt     string `mapstructure:"artifact_ext" yaml:"artifact_ext"`
}

// FingerprintConfig holds the catalogs profiles are drawn from
type FingerprintConfig struct {
	Viewports     []string `mapstructure:"viewports" yaml:"viewports"` // "WIDTHxHEIGHT"
	UserAgents    []string `mapstructure:"user_agents" yaml:"user_agents"`
	Languages     []string `mapstructure:"languages" yaml:"languages"`
	WebGLVendor   string   `mapstructure:"webgl_vendor" yaml:"webgl_vendor"`
	WebGLRenderer string   `mapstructure:"webgl_renderer" yaml:"webgl_renderer"`
}

// HumanizeConfig bounds the randomized input timings
type HumanizeConfig struct {
	KeystrokeMin time.Duration `mapstructure:"keystroke_min" yaml:"keystroke_min"`
	KeystrokeMax time.Duration `mapstructure:"keystroke_max" yaml:"keystroke_max"`
	WaypointsMin int           `mapstructure:"waypoints_min" yaml:"waypoints_min"`
	WaypointsMax int           `mapstructure:"waypoints_max" yaml:"waypoints_max"`
	StepsMin     int           `mapstructure:"steps_min" yaml:"steps_min"`
	StepsMax     int           `mapstructure:"steps_max" yaml:"steps_max"`
	StepPauseMin time.Duration `mapstructure:"step_pause_min" yaml:"step_pause_min"`
	StepPauseMax time.Duration `mapstructure:"step_pause_max" yaml:"step_pause_max"`
	StartMin     time.Duration `mapstructure:"start_min" yaml:"start_min"`
	StartMax     time.Duration `mapstructure:"start_max" yaml:"start_max"`
	SettleMin    time.Duration `mapstructure:"settle_min" yaml:"settle_min"`
	SettleMax    time.Duration `mapstructure:"settle_max" yaml:"settle_max"`
	PreClickMin  time.Duration `mapstructure:"pre_click_min" yaml:"pre_click_min"`
	PreClickMax  time.Duration `mapstructure:"pre_click_max" yaml:"pre_click_max"`
	RegionWidth  int           `mapstructure:"region_width" yaml:"region_width"`
	RegionHeight int           `mapstructure:"region_height" yaml:"region_height"`
}

// ExtractionConfig contains extraction workflow configuration
type ExtractionConfig struct {
	OutputDir         string        `mapstructure:"output_dir" yaml:"output_dir"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	ElementTimeout    time.Duration `mapstructure:"element_timeout" yaml:"element_timeout"`
	PageSettleMin     time.Duration `mapstructure:"page_settle_min" yaml:"page_settle_min"`
	PageSettleMax     time.Duration `mapstructure:"page_settle_max" yaml:"page_settle_max"`
	PollTimeout       time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	PollIntervalMin   time.Duration `mapstructure:"poll_interval_min" yaml:"poll_interval_min"`
	PollIntervalMax   time.Duration `mapstructure:"poll_interval_max" yaml:"poll_interval_max"`
	WatchDownloads    bool          `mapstructure:"watch_downloads" yaml:"watch_downloads"`
	MaxRetries        int           `mapstructure:"max_retries" yaml:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
	ConcurrentLimit   int           `mapstructure:"concurrent_limit" yaml:"concurrent_limit"`
	LaunchesPerMinute float64       `mapstructure:"launches_per_minute" yaml:"launches_per_minute"` // 0 means unlimited
	AutoStartWorkers  bool          `mapstructure:"auto_start_workers" yaml:"auto_start_workers"`
}

// QueueConfig contains queue-related configuration
type QueueConfig struct {
	DatabasePath  string        `mapstructure:"database_path" yaml:"database_path"`
	CheckInterval time.Duration `mapstructure:"check_interval" yaml:"check_interval"`
}

// ProgressConfig sizes the per-attempt event streams
type ProgressConfig struct {
	BufferSize  int           `mapstructure:"buffer_size" yaml:"buffer_size"`
	HistorySize int           `mapstructure:"history_size" yaml:"history_size"`
	RetainFor   time.Duration `mapstructure:"retain_for" yaml:"retain_for"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Sound   bool   `mapstructure:"sound" yaml:"sound"`
	Method  string `mapstructure:"method" yaml:"method"` // osascript, notify-send
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`             // debug, info, warn, error
	Format     string `mapstructure:"format" yaml:"format"`           // json, console
	OutputPath string `mapstructure:"output_path" yaml:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir" yaml:"logs_dir"`       // category log files
}

// DefaultUserAgents are recent desktop Chrome builds
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Browser: BrowserConfig{
			Headless:      true,
			Leakless:      false,
			NoSandbox:     true,
			OrphanTTL:     30 * time.Minute,
			SweepInterval: 10 * time.Minute,
		},
		Converter: ConverterConfig{
			URL:             "https://cnvmp3.com/",
			InputSelector:   ".input-field-url",
			ConvertSelector: "#convert-button-1",
			ArtifactExt:     ".mp3",
		},
		Fingerprint: FingerprintConfig{
			Viewports:     []string{"1366x768", "1280x720", "1024x768"},
			UserAgents:    append([]string(nil), DefaultUserAgents...),
			Languages:     []string{"en-US", "en"},
			WebGLVendor:   "Intel Inc.",
			WebGLRenderer: "Intel(R) Iris(TM) Graphics 6100",
		},
		Humanize: HumanizeConfig{
			KeystrokeMin: 20 * time.Millisecond,
			KeystrokeMax: 50 * time.Millisecond,
			WaypointsMin: 2,
			WaypointsMax: 3,
			StepsMin:     2,
			StepsMax:     3,
			StepPauseMin: 50 * time.Millisecond,
			StepPauseMax: 100 * time.Millisecond,
			StartMin:     100 * time.Millisecond,
			StartMax:     200 * time.Millisecond,
			SettleMin:    200 * time.Millisecond,
			SettleMax:    300 * time.Millisecond,
			PreClickMin:  200 * time.Millisecond,
			PreClickMax:  400 * time.Millisecond,
			RegionWidth:  400,
			RegionHeight: 300,
		},
		Extraction: ExtractionConfig{
			OutputDir:         "$HOME/Downloads/ytaudio/artifacts",
			NavigationTimeout: 30 * time.Second,
			ElementTimeout:    10 * time.Second,
			PageSettleMin:     2 * time.Second,
			PageSettleMax:     3 * time.Second,
			PollTimeout:       60 * time.Second,
			PollIntervalMin:   500 * time.Millisecond,
			PollIntervalMax:   1500 * time.Millisecond,
			WatchDownloads:    true,
			MaxRetries:        1,
			RetryDelay:        10 * time.Second,
			ConcurrentLimit:   2,
			LaunchesPerMinute: 0,
			AutoStartWorkers:  true,
		},
		Queue: QueueConfig{
			DatabasePath:  "$HOME/Downloads/ytaudio/config/extractions.db",
			CheckInterval: 5 * time.Second,
		},
		Progress: ProgressConfig{
			BufferSize:  64,
			HistorySize: 128,
			RetainFor:   10 * time.Minute,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   false,
			Method:  "notify-send",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
			LogsDir:    "$HOME/Downloads/ytaudio/logs",
		},
	}
}
