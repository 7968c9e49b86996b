package rabbitmq

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/changefeed"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const exchangeKind = "topic"

// Publisher sends order changes to a topic exchange, once per routing key
// of the order (admin, user.<id>, device.<fingerprint>).
type Publisher struct {
	conn     Connection
	exchange string
}

func NewPublisher(conn Connection, exchange string) *Publisher {
	return &Publisher{conn: conn, exchange: exchange}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(p.exchange, exchangeKind, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	body, err := changefeed.Encode(ev)
	if err != nil {
		return err
	}

	for _, key := range domain.RoutingKeys(ev.Record) {
		err = ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
			ContentType: "application/json",
			MessageId:   ev.ID(),
			Type:        string(ev.Op),
			Timestamp:   ev.OccurredAt,
			Body:        body,
		})
		if err != nil {
			return fmt.Errorf("failed to publish message: %w", err)
		}
	}

	return nil
}
