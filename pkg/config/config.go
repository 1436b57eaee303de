package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/killallgit/spectrogram-api/internal/services/render"
	"github.com/killallgit/spectrogram-api/internal/services/spectral"
	"github.com/killallgit/spectrogram-api/internal/services/validator"
	"github.com/killallgit/spectrogram-api/internal/services/workers"
	"github.com/killallgit/spectrogram-api/pkg/download"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// SPECTRO_SERVER_PORT for server.port
const EnvPrefix = "SPECTRO"

// DefaultConfigFile is read when present
const DefaultConfigFile = "./config/settings.yaml"

var (
	once        sync.Once
	initErr     error
	initialized bool
)

// Init initializes the configuration system
// This should be called once at application startup
func Init() error {
	once.Do(func() {
		initErr = load(DefaultConfigFile)
		initialized = initErr == nil
	})

	return initErr
}

// IsInitialized reports whether Init completed successfully
func IsInitialized() bool {
	return initialized
}

func load(configFile string) error {
	setDefaults()

	// Set up environment variable reading for overrides
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	configPath := filepath.Clean(configFile)
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		// A missing file just means defaults and env vars
		if !os.IsNotExist(err) {
			return fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}

	if err := validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfig returns the current configuration as a struct
// Init() must be called before using this
func GetConfig() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetString returns a string config value
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a time.Duration config value
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// validate validates the configuration using Viper values
func validate() error {
	port := viper.GetInt("server.port")
	if port <= 0 || port > 65535 {
		return fmt.Errorf("invalid server port: %d", port)
	}

	if _, err := spectral.ParseMode(viper.GetString("pipeline.db_mode")); err != nil {
		return err
	}

	if viper.GetString("database.path") == "" {
		logrus.Debug("No database path configured, render history disabled")
	}

	// Auto-correct invalid worker count
	if viper.GetInt("processing.workers") <= 0 {
		viper.Set("processing.workers", 2)
	}

	// Auto-correct invalid queue size
	if viper.GetInt("processing.max_queue_size") <= 0 {
		viper.Set("processing.max_queue_size", 100)
	}

	return nil
}

// Validate validates a Config struct and corrects pool sizes
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if _, err := spectral.ParseMode(c.Pipeline.DBMode); err != nil {
		return err
	}

	if c.Processing.Workers <= 0 {
		c.Processing.Workers = 2
	}

	if c.Processing.MaxQueueSize <= 0 {
		c.Processing.MaxQueueSize = 100
	}

	return nil
}

// Address returns the host:port the server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// HistoryEnabled reports whether render history is persisted
func (c *Config) HistoryEnabled() bool {
	return c.Database.Path != ""
}

// SpectralConfig translates pipeline settings into analyzer options.
// Zero values keep the analyzer defaults.
func (c *Config) SpectralConfig() (spectral.Config, error) {
	cfg := spectral.DefaultConfig()

	mode, err := spectral.ParseMode(c.Pipeline.DBMode)
	if err != nil {
		return cfg, err
	}
	cfg.Mode = mode

	if c.Pipeline.WindowSize > 0 {
		cfg.WindowSize = c.Pipeline.WindowSize
	}
	if c.Pipeline.HopSize > 0 {
		cfg.HopSize = c.Pipeline.HopSize
	}
	if c.Pipeline.Epsilon > 0 {
		cfg.Epsilon = c.Pipeline.Epsilon
	}
	if c.Pipeline.TopDB >= 0 {
		cfg.TopDB = c.Pipeline.TopDB
	}

	return cfg, cfg.Validate()
}

// RenderOptions translates render settings into renderer options
func (c *Config) RenderOptions() render.Options {
	opts := render.DefaultOptions()
	if c.Render.Width > 0 {
		opts.Width = c.Render.Width
	}
	if c.Render.Height > 0 {
		opts.Height = c.Render.Height
	}
	if c.Render.FreqTickStep > 0 {
		opts.FreqTickStep = c.Render.FreqTickStep
	}
	if c.Render.TextScale > 0 {
		opts.TextScale = c.Render.TextScale
	}
	return opts
}

// DownloadOptions translates download settings into fetcher options
func (c *Config) DownloadOptions() download.DownloadOptions {
	opts := download.DefaultOptions()
	if c.Download.Timeout > 0 {
		opts.Timeout = c.Download.Timeout
	}
	if c.Download.MaxSize > 0 {
		opts.MaxSize = c.Download.MaxSize
	}
	if c.Download.UserAgent != "" {
		opts.UserAgent = c.Download.UserAgent
	}
	return opts
}

// WorkerOptions translates processing settings into pool options
func (c *Config) WorkerOptions() workers.Options {
	return workers.Options{
		Workers:      c.Processing.Workers,
		MaxQueueSize: c.Processing.MaxQueueSize,
		JobTimeout:   c.Processing.JobTimeout,
	}
}

// Validator builds the extension allow-list
func (c *Config) Validator() *validator.Validator {
	return validator.New(c.Pipeline.SupportedExtensions)
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("environment", "development")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 5*time.Minute)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_header_bytes", 1048576)
	viper.SetDefault("server.max_body_bytes", 64*1024)

	// Database defaults
	viper.SetDefault("database.path", "./data/spectro.db")
	viper.SetDefault("database.verbose", false)

	// Processing defaults
	viper.SetDefault("processing.workers", 2)
	viper.SetDefault("processing.max_queue_size", 100)
	viper.SetDefault("processing.job_timeout", 5*time.Minute)
	viper.SetDefault("processing.ffmpeg_path", "ffmpeg")
	viper.SetDefault("processing.ffprobe_path", "ffprobe")
	viper.SetDefault("processing.ffmpeg_timeout", 2*time.Minute)

	// Download defaults
	viper.SetDefault("download.timeout", 5*time.Minute)
	viper.SetDefault("download.max_size", 500*1024*1024)
	viper.SetDefault("download.user_agent", "SpectrogramAPI/1.0")

	// Pipeline defaults
	viper.SetDefault("pipeline.supported_extensions", validator.DefaultExtensions)
	viper.SetDefault("pipeline.db_mode", string(spectral.ModePeak))
	viper.SetDefault("pipeline.window_size", 4096)
	viper.SetDefault("pipeline.hop_size", 512)
	viper.SetDefault("pipeline.epsilon", 1e-6)
	viper.SetDefault("pipeline.top_db", 80.0)
	viper.SetDefault("pipeline.max_duration", time.Duration(0))

	// Render defaults
	viper.SetDefault("render.width", 1500)
	viper.SetDefault("render.height", 750)
	viper.SetDefault("render.freq_tick_step", 2000.0)
	viper.SetDefault("render.text_scale", 2)

	// Storage defaults
	viper.SetDefault("storage.temp_dir", "")
	viper.SetDefault("storage.max_temp_age", 1*time.Hour)
	viper.SetDefault("storage.cleanup_interval", 15*time.Minute)

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cors_origins", []string{"*"})

	// Rate limiting defaults
	viper.SetDefault("rate_limiting.enabled", true)
	viper.SetDefault("rate_limiting.requests_per_minute", 30)
	viper.SetDefault("rate_limiting.burst", 5)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Monitoring defaults
	viper.SetDefault("monitoring.enabled", true)
	viper.SetDefault("monitoring.metrics_path", "/metrics")
}
