package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Log        LogConfig        `mapstructure:"log"`
	Database   DatabaseConfig   `mapstructure:"database"`
	RabbitMQ   RabbitMQConfig   `mapstructure:"rabbitmq"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Realtime   RealtimeConfig   `mapstructure:"realtime"`
	Thresholds ThresholdsConfig `mapstructure:"thresholds"`
	Storage    StorageConfig    `mapstructure:"storage"`
	ProfileAPI ProfileAPIConfig `mapstructure:"profile_api"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the connection string understood by pgx.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// URL returns the postgres URL used by migrations.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

type RabbitMQConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Exchange string `mapstructure:"exchange"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

const (
	DriverRabbitMQ = "rabbitmq"
	DriverKafka    = "kafka"
	DriverPostgres = "postgres"
)

type RealtimeConfig struct {
	Driver        string        `mapstructure:"driver"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	NotifyChannel string        `mapstructure:"notify_channel"`
	BufferSize    int           `mapstructure:"buffer_size"`
}

// ThresholdsConfig holds the per-category delay thresholds. Zero disables
// the delay flag for that category.
type ThresholdsConfig struct {
	New       time.Duration `mapstructure:"new"`
	Active    time.Duration `mapstructure:"active"`
	Delivery  time.Duration `mapstructure:"delivery"`
	Completed time.Duration `mapstructure:"completed"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory, file, redis
	Path   string `mapstructure:"path"`
}

type ProfileAPIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Token   string        `mapstructure:"token"`
}

// PricingConfig holds decimal strings, e.g. "2.50" and "0.10".
type PricingConfig struct {
	DeliveryFee string `mapstructure:"delivery_fee"`
	TaxRate     string `mapstructure:"tax_rate"`
}

var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from path (optional) and ORDERTRACK_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("ORDERTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ordertrack")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", 3000)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "restaurant")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.exchange", "order_changes")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "order-changes")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "ordertrack:")

	v.SetDefault("realtime.driver", DriverRabbitMQ)
	v.SetDefault("realtime.poll_interval", 20*time.Second)
	v.SetDefault("realtime.notify_channel", "order_changes")
	v.SetDefault("realtime.buffer_size", 64)

	v.SetDefault("thresholds.new", 10*time.Minute)
	v.SetDefault("thresholds.active", 30*time.Minute)
	v.SetDefault("thresholds.delivery", 45*time.Minute)
	v.SetDefault("thresholds.completed", time.Duration(0))

	v.SetDefault("storage.driver", "file")
	v.SetDefault("storage.path", ".ordertrack/storage.json")

	v.SetDefault("profile_api.base_url", "http://localhost:8080")
	v.SetDefault("profile_api.timeout", 10*time.Second)
	v.SetDefault("profile_api.token", "")

	v.SetDefault("pricing.delivery_fee", "0")
	v.SetDefault("pricing.tax_rate", "0")
}

// applyDefaults fills values that an explicit empty setting would otherwise zero.
func applyDefaults(cfg *Config) {
	if cfg.Realtime.PollInterval <= 0 {
		cfg.Realtime.PollInterval = 20 * time.Second
	}
	if cfg.Realtime.BufferSize <= 0 {
		cfg.Realtime.BufferSize = 64
	}
	if cfg.ProfileAPI.Timeout <= 0 {
		cfg.ProfileAPI.Timeout = 10 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.RabbitMQ.Exchange == "" {
		cfg.RabbitMQ.Exchange = "order_changes"
	}
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("%w: database.host is required", ErrInvalidConfig)
	}
	if c.Database.Database == "" {
		return fmt.Errorf("%w: database.database is required", ErrInvalidConfig)
	}

	switch c.Realtime.Driver {
	case DriverRabbitMQ, DriverKafka, DriverPostgres:
	default:
		return fmt.Errorf("%w: unknown realtime.driver %q", ErrInvalidConfig, c.Realtime.Driver)
	}

	switch c.Storage.Driver {
	case "memory", "file", "redis":
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	if c.Realtime.Driver == DriverKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("%w: kafka.brokers is required for the kafka driver", ErrInvalidConfig)
	}

	return nil
}
