package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.TickInterval.Std())
	assert.Equal(t, 4, cfg.Scheduler.Workers)
	assert.Equal(t, 80, cfg.Capacity.DefaultWarningThresholdPercent)
	assert.Equal(t, 15*time.Minute, cfg.Capacity.SweepInterval.Std())
	assert.False(t, cfg.Notification.MQTT.Enabled)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  address: ":9000"
database:
  driver: mysql
  dsn: "user:pass@tcp(db:3306)/alerts?parseTime=true"
scheduler:
  tick_interval: 10s
  workers: 8
  daily_hour: 7
capacity:
  sweep_interval: 5m
tenants:
  - tenant-a
  - tenant-b
notification:
  mqtt:
    enabled: true
    broker: "tcp://broker:1883"
    topic_prefix: "edu/alerts"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.TickInterval.Std())
	assert.Equal(t, 8, cfg.Scheduler.Workers)
	assert.Equal(t, 7, cfg.Scheduler.DailyHour)
	assert.Equal(t, 5*time.Minute, cfg.Capacity.SweepInterval.Std())
	assert.Equal(t, []string{"tenant-a", "tenant-b"}, cfg.Tenants)
	assert.True(t, cfg.Notification.MQTT.Enabled)
	assert.Equal(t, "edu/alerts", cfg.Notification.MQTT.TopicPrefix)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"bad driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"zero workers", func(c *Config) { c.Scheduler.Workers = 0 }},
		{"zero tick", func(c *Config) { c.Scheduler.TickInterval = 0 }},
		{"daily hour out of range", func(c *Config) { c.Scheduler.DailyHour = 24 }},
		{"threshold over 100", func(c *Config) { c.Capacity.DefaultWarningThresholdPercent = 101 }},
		{"threshold zero", func(c *Config) { c.Capacity.DefaultWarningThresholdPercent = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
