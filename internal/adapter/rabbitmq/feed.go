package rabbitmq

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/changefeed"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Feed subscribes with a temporary exclusive queue bound to the scope's
// routing key, so the broker does the filtering.
type Feed struct {
	conn     Connection
	exchange string
	buffer   int
	logger   logger.Logger
}

func NewFeed(conn Connection, exchange string, buffer int, logger logger.Logger) *Feed {
	return &Feed{conn: conn, exchange: exchange, buffer: buffer, logger: logger}
}

func (f *Feed) Subscribe(ctx context.Context, scope domain.OrderScope) (interfaces.Subscription, error) {
	ch, err := f.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	// Отслеживаем закрытие канала
	closeChan := ch.NotifyClose()

	msgs, err := f.setup(ch, scope)
	if err != nil {
		ch.Close()
		return nil, err
	}

	stream := changefeed.NewStream(ctx, f.buffer, ch.Close)
	go f.consume(stream, closeChan, msgs, scope)

	f.logger.Debug("feed_subscribed", "Subscribed to order changes", "", map[string]interface{}{
		"exchange": f.exchange,
		"scope":    scope.Key(),
	})
	return stream, nil
}

func (f *Feed) setup(ch Channel, scope domain.OrderScope) (<-chan amqp.Delivery, error) {
	if err := ch.ExchangeDeclare(f.exchange, exchangeKind, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, scope.Key(), f.exchange, false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}
	return msgs, nil
}

func (f *Feed) consume(stream *changefeed.Stream, closeChan <-chan *amqp.Error, msgs <-chan amqp.Delivery, scope domain.OrderScope) {
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case err := <-closeChan:
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				stream.Fail(fmt.Errorf("channel closed: %w", err))
				return
			}
			stream.Fail(fmt.Errorf("channel closed gracefully"))
			return

		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() == nil {
					stream.Fail(fmt.Errorf("messages channel closed"))
				}
				return
			}

			ev, err := changefeed.Decode(msg.Body)
			if err != nil {
				f.logger.Error("feed_decode_failed", "Dropping malformed change message", "", nil, err)
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
}
