// Package config loads the gateway daemon configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the gateway daemon configuration.
type Config struct {
	// Listen is the gateway bind address
	Listen string `mapstructure:"listen"`

	// SpoolDir receives the per-request spool files
	SpoolDir string `mapstructure:"spool_dir"`

	// MaxFileSize rejects declared payload sizes above this many bytes;
	// zero disables the ceiling
	MaxFileSize uint64 `mapstructure:"max_file_size"`

	// ScanTimeout bounds a single engine invocation
	ScanTimeout time.Duration `mapstructure:"scan_timeout"`

	// IOTimeout bounds each read/write on a client connection
	IOTimeout time.Duration `mapstructure:"io_timeout"`

	Engine EngineConfig `mapstructure:"engine"`
	Log    LogConfig    `mapstructure:"log"`
}

// EngineConfig selects and configures the scanning engine.
type EngineConfig struct {
	// Kind is "exec" (clamscan subprocess) or "clamd" (daemon)
	Kind string `mapstructure:"kind"`

	// Binary is the clamscan executable for the exec engine
	Binary string `mapstructure:"binary"`

	// ClamdAddr is the daemon endpoint for the clamd engine,
	// e.g. "tcp://127.0.0.1:3310" or a unix socket path
	ClamdAddr string `mapstructure:"clamd_addr"`
}

// LogConfig configures the daemon logger.
type LogConfig struct {
	// Level is a logrus level name (debug, info, warn, error)
	Level string `mapstructure:"level"`

	// Format is "text" or "json"
	Format string `mapstructure:"format"`

	// Output is "stdout", "stderr" or a file path (rotated)
	Output string `mapstructure:"output"`

	// Rotation settings, used when Output is a file path
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// Load reads the configuration from the YAML file at path, applies defaults
// and SCANGW_* environment overrides, and validates the result. An empty path
// yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("SCANGW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:12067")
	v.SetDefault("spool_dir", os.TempDir())
	v.SetDefault("max_file_size", uint64(100*1024*1024))
	v.SetDefault("scan_timeout", "300s")
	v.SetDefault("io_timeout", "30s")
	v.SetDefault("engine.kind", "exec")
	v.SetDefault("engine.binary", "clamscan")
	v.SetDefault("engine.clamd_addr", "tcp://127.0.0.1:3310")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
}

func validate(cfg *Config) error {
	if cfg.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if cfg.ScanTimeout <= 0 {
		return fmt.Errorf("scan_timeout must be positive, got %v", cfg.ScanTimeout)
	}
	if cfg.IOTimeout <= 0 {
		return fmt.Errorf("io_timeout must be positive, got %v", cfg.IOTimeout)
	}

	switch cfg.Engine.Kind {
	case "exec":
		if cfg.Engine.Binary == "" {
			return fmt.Errorf("engine.binary is required for the exec engine")
		}
	case "clamd":
		if cfg.Engine.ClamdAddr == "" {
			return fmt.Errorf("engine.clamd_addr is required for the clamd engine")
		}
	default:
		return fmt.Errorf("unknown engine kind %q (want exec or clamd)", cfg.Engine.Kind)
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (want text or json)", cfg.Log.Format)
	}

	return nil
}
