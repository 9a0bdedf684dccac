package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Pomodoro PomodoroConfig `mapstructure:"pomodoro"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	History  HistoryConfig  `mapstructure:"history"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// PomodoroConfig seeds the session clock. Stored settings take precedence
// over the minutes here once the user has changed them.
type PomodoroConfig struct {
	FocusMinutes  int    `mapstructure:"focus_minutes"`
	BreakMinutes  int    `mapstructure:"break_minutes"`
	TickInterval  string `mapstructure:"tick_interval"`
	CloseOnSwitch bool   `mapstructure:"close_on_switch"`
}

// StorageConfig selects the settings/history backend
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // sqlite, bolt or redis
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Addr        string `mapstructure:"addr"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	DialTimeout string `mapstructure:"dial_timeout"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

type HistoryConfig struct {
	RetentionDays int `mapstructure:"retention_days"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("deskpet")
		v.AddConfigPath(".")
	}
	v.SetEnvPrefix("DESKPET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("pomodoro.focus_minutes", 45)
	v.SetDefault("pomodoro.break_minutes", 5)
	v.SetDefault("pomodoro.tick_interval", "1s")
	v.SetDefault("pomodoro.close_on_switch", false)

	v.SetDefault("storage.type", "sqlite")
	v.SetDefault("storage.path", "deskpet.db")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.dial_timeout", "5s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.path", "deskpet.log")

	v.SetDefault("history.retention_days", 90)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9464")
}

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.Storage.Type {
	case "sqlite", "bolt":
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for %s storage", cfg.Storage.Type)
		}
	case "redis":
		if cfg.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for redis storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %q", cfg.Storage.Type)
	}

	if _, err := time.ParseDuration(cfg.Pomodoro.TickInterval); err != nil {
		return fmt.Errorf("invalid pomodoro.tick_interval: %w", err)
	}

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid logging format: %q", cfg.Logging.Format)
	}

	if cfg.History.RetentionDays < 0 {
		return fmt.Errorf("invalid history.retention_days: %d", cfg.History.RetentionDays)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}

	return nil
}

// TickDuration returns the parsed engine tick interval.
func (c PomodoroConfig) TickDuration() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}
