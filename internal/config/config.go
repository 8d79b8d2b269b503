package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tapestry/safefetch/internal/domain/vo"
)

// EnvPrefix prefixes environment overrides, e.g. SAFEFETCH_DOWNLOAD_TIMEOUT
const EnvPrefix = "SAFEFETCH"

// Config represents the entire application configuration
type Config struct {
	Download    DownloadConfig    `mapstructure:"download"`
	Sanitize    SanitizeConfig    `mapstructure:"sanitize"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Journal     JournalConfig     `mapstructure:"journal"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// DownloadConfig contains downloader limits and transport settings
type DownloadConfig struct {
	OutputDir        string `mapstructure:"output_dir"`
	MaxSizeMB        int    `mapstructure:"max_size_mb"`
	MaxRedirects     int    `mapstructure:"max_redirects"`
	Timeout          string `mapstructure:"timeout"`
	Overwrite        bool   `mapstructure:"overwrite"`
	UserAgent        string `mapstructure:"user_agent"`
	VerifyResolvedIP bool   `mapstructure:"verify_resolved_ip"`
	BufferSizeKB     int    `mapstructure:"buffer_size_kb"`
	ProgressInterval string `mapstructure:"progress_interval"`
}

// SanitizeConfig contains filename sanitizer settings
type SanitizeConfig struct {
	MaxLength int `mapstructure:"max_length"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// JournalConfig contains download journal settings. An empty path
// disables the journal.
type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// MaintenanceConfig contains temp sweeper settings
type MaintenanceConfig struct {
	TempFileMaxAge string `mapstructure:"temp_file_max_age"`
	SweepInterval  string `mapstructure:"sweep_interval"`
}

// flagKeys maps command-line flag names to config keys
var flagKeys = map[string]string{
	"output-dir":    "download.output_dir",
	"max-size-mb":   "download.max_size_mb",
	"max-redirects": "download.max_redirects",
	"timeout":       "download.timeout",
	"overwrite":     "download.overwrite",
	"user-agent":    "download.user_agent",
	"max-length":    "sanitize.max_length",
	"log-level":     "logging.level",
	"log-format":    "logging.format",
	"journal":       "journal.path",
	"max-age":       "maintenance.temp_file_max_age",
	"interval":      "maintenance.sweep_interval",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("download.output_dir", ".")
	v.SetDefault("download.max_size_mb", 100)
	v.SetDefault("download.max_redirects", 5)
	v.SetDefault("download.timeout", "300s")
	v.SetDefault("download.overwrite", false)
	v.SetDefault("download.user_agent", "Mozilla/5.0 (compatible; Tapestry/1.0)")
	v.SetDefault("download.verify_resolved_ip", true)
	v.SetDefault("download.buffer_size_kb", 32)
	v.SetDefault("download.progress_interval", "5s")
	v.SetDefault("sanitize.max_length", 100)
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")
	v.SetDefault("journal.path", "")
	v.SetDefault("maintenance.temp_file_max_age", "24h")
	v.SetDefault("maintenance.sweep_interval", "1h")
}

// Load builds the configuration from defaults, an optional YAML file,
// SAFEFETCH_* environment variables and flags, in increasing precedence.
// An empty configPath skips the file. flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Download.OutputDir == "" {
		return errors.New("download.output_dir is required")
	}
	if c.Download.MaxSizeMB <= 0 {
		return errors.New("download.max_size_mb must be positive")
	}
	if c.Download.MaxRedirects < 0 {
		return errors.New("download.max_redirects cannot be negative")
	}
	if c.Download.BufferSizeKB < 0 {
		return errors.New("download.buffer_size_kb cannot be negative")
	}
	if c.Sanitize.MaxLength <= 0 {
		return errors.New("sanitize.max_length must be positive")
	}

	durations := map[string]string{
		"download.timeout":              c.Download.Timeout,
		"download.progress_interval":    c.Download.ProgressInterval,
		"maintenance.temp_file_max_age": c.Maintenance.TempFileMaxAge,
		"maintenance.sweep_interval":    c.Maintenance.SweepInterval,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("%s cannot be negative", key)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetMaxBytes returns the size limit in bytes
func (c *DownloadConfig) GetMaxBytes() int64 {
	return vo.ByteSizeFromMB(c.MaxSizeMB).Bytes()
}

// GetTimeout returns the whole-transfer timeout as time.Duration
func (c *DownloadConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 300 * time.Second
	}
	return d
}

// GetBufferSize returns the copy buffer size in bytes
func (c *DownloadConfig) GetBufferSize() int {
	if c.BufferSizeKB <= 0 {
		return 32 * 1024
	}
	return c.BufferSizeKB * 1024
}

// GetProgressInterval returns the progress log interval as time.Duration
func (c *DownloadConfig) GetProgressInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressInterval)
	if d == 0 {
		return 5 * time.Second
	}
	return d
}

// GetTempFileMaxAge returns the temp file age threshold as time.Duration
func (c *MaintenanceConfig) GetTempFileMaxAge() time.Duration {
	d, _ := time.ParseDuration(c.TempFileMaxAge)
	if d == 0 {
		return 24 * time.Hour
	}
	return d
}

// GetSweepInterval returns the sweep interval. Zero means sweep once.
func (c *MaintenanceConfig) GetSweepInterval() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}
