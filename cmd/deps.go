package main

import (
	"context"
	"fmt"
	"os"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/kafka"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/postgres"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/rabbitmq"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/storage"
	"github.com/YelzhanWeb/ordertrack/internal/app/projection"
	"github.com/YelzhanWeb/ordertrack/internal/config"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, service string) logger.Logger {
	return logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: service,
	})
}

type database struct {
	pool *pgxpool.Pool
	db   postgres.DB
}

func openDatabase(ctx context.Context, cfg *config.Config, lgr logger.Logger) (*database, error) {
	pool, err := postgres.ConnectPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	lgr.Info("db_connected", "Connected to PostgreSQL database", "startup", map[string]interface{}{
		"host": cfg.Database.Host,
		"db":   cfg.Database.Database,
	})
	return &database{pool: pool, db: postgres.NewDB(pool)}, nil
}

func (d *database) Close() {
	d.pool.Close()
}

// changeBus is the publisher and feed of the configured realtime driver.
type changeBus struct {
	publisher interfaces.ChangePublisher
	feed      interfaces.ChangeFeed
	close     func() error
}

func openChangeBus(cfg *config.Config, db *database, lgr logger.Logger) (*changeBus, error) {
	buffer := cfg.Realtime.BufferSize

	switch cfg.Realtime.Driver {
	case config.DriverRabbitMQ:
		conn, err := rabbitmq.Connect(cfg.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		lgr.Info("rabbitmq_connected", "Connected to RabbitMQ", "startup", map[string]interface{}{
			"host":     cfg.RabbitMQ.Host,
			"exchange": cfg.RabbitMQ.Exchange,
		})
		return &changeBus{
			publisher: rabbitmq.NewPublisher(conn, cfg.RabbitMQ.Exchange),
			feed:      rabbitmq.NewFeed(conn, cfg.RabbitMQ.Exchange, buffer, lgr),
			close:     conn.Close,
		}, nil

	case config.DriverKafka:
		writer := kafka.NewWriter(cfg.Kafka)
		lgr.Info("kafka_configured", "Kafka change feed configured", "startup", map[string]interface{}{
			"brokers": cfg.Kafka.Brokers,
			"topic":   cfg.Kafka.Topic,
		})
		return &changeBus{
			publisher: kafka.NewPublisher(writer),
			feed:      kafka.NewFeed(kafka.NewReaderFactory(cfg.Kafka), buffer, lgr),
			close:     writer.Close,
		}, nil

	case config.DriverPostgres:
		lgr.Info("notify_configured", "PostgreSQL LISTEN/NOTIFY change feed configured", "startup", map[string]interface{}{
			"channel": cfg.Realtime.NotifyChannel,
		})
		return &changeBus{
			publisher: postgres.NewNotifyPublisher(db.db, cfg.Realtime.NotifyChannel),
			feed:      postgres.NewNotifyFeed(db.pool, cfg.Realtime.NotifyChannel, buffer, lgr),
			close:     func() error { return nil },
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown realtime.driver %q", config.ErrInvalidConfig, cfg.Realtime.Driver)
	}
}

// openStore returns the local key-value store and its closer.
func openStore(ctx context.Context, cfg *config.Config) (interfaces.KeyValueStore, func() error, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemoryStore(), func() error { return nil }, nil
	case "file":
		s, err := storage.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return storage.NewRedisStore(client, cfg.Redis.KeyPrefix), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown storage.driver %q", config.ErrInvalidConfig, cfg.Storage.Driver)
	}
}

// loadTaxonomy reads the active statuses, falling back to the built-in
// taxonomy while the table is still empty.
func loadTaxonomy(ctx context.Context, repo interfaces.StatusRepository, lgr logger.Logger) (*domain.Taxonomy, error) {
	statuses, err := repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load statuses: %w", err)
	}
	if len(statuses) == 0 {
		lgr.Warn("taxonomy_empty", "No statuses in the database, using the built-in taxonomy", "startup", nil)
		return domain.DefaultTaxonomy(), nil
	}
	return domain.NewTaxonomy(statuses)
}

func thresholds(cfg config.ThresholdsConfig) projection.Thresholds {
	return projection.Thresholds{
		domain.CategoryNew:       cfg.New,
		domain.CategoryActive:    cfg.Active,
		domain.CategoryDelivery:  cfg.Delivery,
		domain.CategoryCompleted: cfg.Completed,
	}
}
