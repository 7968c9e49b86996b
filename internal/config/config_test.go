package config

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

	assert.Equal(t, "ordertrack", cfg.App.Name)
	assert.Equal(t, 3000, cfg.App.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, DriverRabbitMQ, cfg.Realtime.Driver)
	assert.Equal(t, 20*time.Second, cfg.Realtime.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Thresholds.New)
	assert.Equal(t, 30*time.Minute, cfg.Thresholds.Active)
	assert.Equal(t, 45*time.Minute, cfg.Thresholds.Delivery)
	assert.Equal(t, time.Duration(0), cfg.Thresholds.Completed)
	assert.Equal(t, "file", cfg.Storage.Driver)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ORDERTRACK_DATABASE_HOST", "db.internal")
	t.Setenv("ORDERTRACK_REALTIME_DRIVER", "postgres")
	t.Setenv("ORDERTRACK_REALTIME_POLL_INTERVAL", "15s")
	t.Setenv("ORDERTRACK_THRESHOLDS_NEW", "5m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, DriverPostgres, cfg.Realtime.Driver)
	assert.Equal(t, 15*time.Second, cfg.Realtime.PollInterval)
	assert.Equal(t, 5*time.Minute, cfg.Thresholds.New)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
database:
  host: pg.local
  database: orders
realtime:
  driver: kafka
  poll_interval: 30s
kafka:
  brokers: ["k1:9092", "k2:9092"]
  topic: orders-cdc
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pg.local", cfg.Database.Host)
	assert.Equal(t, "orders", cfg.Database.Database)
	assert.Equal(t, DriverKafka, cfg.Realtime.Driver)
	assert.Equal(t, 30*time.Second, cfg.Realtime.PollInterval)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "orders-cdc", cfg.Kafka.Topic)
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("ORDERTRACK_REALTIME_DRIVER", "carrier-pigeon")

	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: 1, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable", c.DSN())
	assert.Equal(t, "pgx5://u:p@h:1/d?sslmode=disable", c.URL())
}
