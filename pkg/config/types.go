package config

import "time"

// Config represents the complete application configuration
type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Processing  ProcessingConfig `mapstructure:"processing"`
	Download    DownloadConfig   `mapstructure:"download"`
	Pipeline    PipelineConfig   `mapstructure:"pipeline"`
	Render      RenderConfig     `mapstructure:"render"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Security    SecurityConfig   `mapstructure:"security"`
	RateLimit   RateLimitConfig  `mapstructure:"rate_limiting"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// DatabaseConfig contains render history settings. An empty path disables
// history.
type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	Verbose bool   `mapstructure:"verbose"`
}

// ProcessingConfig contains worker pool and ffmpeg settings
type ProcessingConfig struct {
	Workers       int           `mapstructure:"workers"`
	MaxQueueSize  int           `mapstructure:"max_queue_size"`
	JobTimeout    time.Duration `mapstructure:"job_timeout"`
	FFmpegPath    string        `mapstructure:"ffmpeg_path"`
	FFprobePath   string        `mapstructure:"ffprobe_path"`
	FFmpegTimeout time.Duration `mapstructure:"ffmpeg_timeout"`
}

// DownloadConfig contains fetcher settings
type DownloadConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxSize   int64         `mapstructure:"max_size"`
	UserAgent string        `mapstructure:"user_agent"`
}

// PipelineConfig contains validation and analysis settings
type PipelineConfig struct {
	SupportedExtensions []string      `mapstructure:"supported_extensions"`
	DBMode              string        `mapstructure:"db_mode"`
	WindowSize          int           `mapstructure:"window_size"`
	HopSize             int           `mapstructure:"hop_size"`
	Epsilon             float64       `mapstructure:"epsilon"`
	TopDB               float64       `mapstructure:"top_db"`
	MaxDuration         time.Duration `mapstructure:"max_duration"`
}

// RenderConfig contains image settings
type RenderConfig struct {
	Width        int     `mapstructure:"width"`
	Height       int     `mapstructure:"height"`
	FreqTickStep float64 `mapstructure:"freq_tick_step"`
	TextScale    int     `mapstructure:"text_scale"`
}

// StorageConfig contains temp storage settings
type StorageConfig struct {
	TempDir         string        `mapstructure:"temp_dir"`
	MaxTempAge      time.Duration `mapstructure:"max_temp_age"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// SecurityConfig contains CORS settings
type SecurityConfig struct {
	EnableCORS  bool     `mapstructure:"enable_cors"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// RateLimitConfig contains per-client rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	Burst             int  `mapstructure:"burst"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MonitoringConfig contains metrics settings
type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}
