// Package conf loads and validates the alert engine configuration.
package conf

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the alert engine service.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Log          LogConfig          `mapstructure:"log"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Capacity     CapacityConfig     `mapstructure:"capacity"`
	Notification NotificationConfig `mapstructure:"notification"`

	// Tenants lists the tenant IDs this instance serves. Default rules are
	// seeded and capacity sweeps run for each of them.
	Tenants []string `mapstructure:"tenants"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// DatabaseConfig selects the backing store. Driver is "sqlite" or "mysql".
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchedulerConfig controls the periodic evaluation loop.
type SchedulerConfig struct {
	TickInterval Duration `mapstructure:"tick_interval"`
	Workers      int      `mapstructure:"workers"`
	DailyHour    int      `mapstructure:"daily_hour"`
}

// CapacityConfig controls the class capacity subsystem.
type CapacityConfig struct {
	DefaultWarningThresholdPercent int      `mapstructure:"default_warning_threshold_percent"`
	SweepInterval                  Duration `mapstructure:"sweep_interval"`
}

// NotificationConfig configures the channel senders.
type NotificationConfig struct {
	// PushURLs are shoutrrr service URLs keyed by a human name
	// (e.g. telegram-staff: "telegram://token@telegram?chats=...").
	PushURLs map[string]string `mapstructure:"push_urls"`
	MQTT     MQTTConfig        `mapstructure:"mqtt"`
}

// MQTTConfig configures the optional MQTT alert channel.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
}

// Load reads configuration from the given file path (optional), environment
// variables prefixed with ALERTENGINE_, and built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ALERTENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8090")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "alertengine.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("scheduler.tick_interval", "30s")
	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.daily_hour", 6)
	v.SetDefault("capacity.default_warning_threshold_percent", 80)
	v.SetDefault("capacity.sweep_interval", "15m")
	v.SetDefault("notification.mqtt.enabled", false)
	v.SetDefault("notification.mqtt.topic_prefix", "alerts")
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be positive, got %d", c.Scheduler.Workers)
	}
	if c.Scheduler.TickInterval.Std() <= 0 {
		return fmt.Errorf("scheduler.tick_interval must be positive")
	}
	if c.Scheduler.DailyHour < 0 || c.Scheduler.DailyHour > 23 {
		return fmt.Errorf("scheduler.daily_hour must be 0-23, got %d", c.Scheduler.DailyHour)
	}
	if p := c.Capacity.DefaultWarningThresholdPercent; p <= 0 || p > 100 {
		return fmt.Errorf("capacity.default_warning_threshold_percent must be 1-100, got %d", p)
	}
	return nil
}
