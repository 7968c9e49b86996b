package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/changefeed"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/config"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type MessageReader interface {
	ReadMessage(ctx context.Context) (kafkago.Message, error)
	Close() error
}

func NewWriter(cfg config.KafkaConfig) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
}

// NewReaderFactory returns readers that each join their own consumer group,
// so every subscriber sees every partition from the latest offset.
func NewReaderFactory(cfg config.KafkaConfig) func(scope domain.OrderScope) MessageReader {
	return func(scope domain.OrderScope) MessageReader {
		return kafkago.NewReader(kafkago.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       cfg.Topic,
			GroupID:     "ordertrack-" + scope.Key() + "-" + uuid.NewString(),
			StartOffset: kafkago.LastOffset,
			MaxWait:     500 * time.Millisecond,
		})
	}
}

// Publisher writes one message per change, keyed by order ID so changes to
// the same order stay on one partition.
type Publisher struct {
	writer MessageWriter
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{writer: writer}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := changefeed.Encode(ev)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:     []byte(ev.ID()),
		Value:   payload,
		Headers: []kafkago.Header{{Key: "op", Value: []byte(ev.Op)}},
		Time:    ev.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to write change event: %w", err)
	}
	return nil
}

// Feed reads the change topic. Kafka cannot filter by scope, so events are
// filtered after receipt.
type Feed struct {
	newReader func(scope domain.OrderScope) MessageReader
	buffer    int
	logger    logger.Logger
}

func NewFeed(newReader func(scope domain.OrderScope) MessageReader, buffer int, logger logger.Logger) *Feed {
	return &Feed{newReader: newReader, buffer: buffer, logger: logger}
}

func (f *Feed) Subscribe(ctx context.Context, scope domain.OrderScope) (interfaces.Subscription, error) {
	reader := f.newReader(scope)
	stream := changefeed.NewStream(ctx, f.buffer, reader.Close)
	go f.read(stream, reader, scope)
	return stream, nil
}

func (f *Feed) read(stream *changefeed.Stream, reader MessageReader, scope domain.OrderScope) {
	ctx := stream.Context()
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("kafka_read_failed", "Change topic read failed", "", map[string]interface{}{"error": err.Error()})
			stream.Fail(err)
			return
		}

		ev, err := changefeed.Decode(msg.Value)
		if err != nil {
			f.logger.Error("kafka_decode_failed", "Dropping malformed change message", "", map[string]interface{}{
				"offset": msg.Offset,
			}, err)
			continue
		}
		if !changefeed.Relevant(scope, ev) {
			continue
		}
		if !stream.Emit(ev) {
			return
		}
	}
}
