package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/changefeed"
	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxNotifyPayload stays under the 8000 byte NOTIFY limit.
const maxNotifyPayload = 7900

// NotifyFeed delivers order changes over LISTEN/NOTIFY. Postgres cannot
// filter notifications, so events are filtered by scope after receipt.
type NotifyFeed struct {
	pool    *pgxpool.Pool
	channel string
	buffer  int
	logger  logger.Logger
}

func NewNotifyFeed(pool *pgxpool.Pool, channel string, buffer int, logger logger.Logger) *NotifyFeed {
	return &NotifyFeed{pool: pool, channel: channel, buffer: buffer, logger: logger}
}

func (f *NotifyFeed) Subscribe(ctx context.Context, scope domain.OrderScope) (interfaces.Subscription, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}

	listen := "LISTEN " + pgx.Identifier{f.channel}.Sanitize()
	if _, err := conn.Exec(ctx, listen); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", f.channel, err)
	}

	exited := make(chan struct{})
	var stream *changefeed.Stream
	stream = changefeed.NewStream(ctx, f.buffer, func() error {
		// Close cancelled the stream context; wait for the listen
		// goroutine to stop using the connection.
		<-exited
		var err error
		if !conn.Conn().IsClosed() {
			unlistenCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_, err = conn.Exec(unlistenCtx, "UNLISTEN *")
			cancel()
		}
		conn.Release()
		return err
	})

	go func() {
		defer close(exited)
		f.listen(stream, conn, scope)
	}()

	f.logger.Debug("notify_subscribed", "Listening for order changes", "", map[string]interface{}{
		"channel": f.channel,
		"scope":   scope.Key(),
	})
	return stream, nil
}

func (f *NotifyFeed) listen(stream *changefeed.Stream, conn *pgxpool.Conn, scope domain.OrderScope) {
	ctx := stream.Context()
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("notify_connection_lost", "Listen connection lost", "", map[string]interface{}{"error": err.Error()})
			stream.Fail(err)
			return
		}

		ev, err := changefeed.Decode([]byte(n.Payload))
		if err != nil {
			f.logger.Error("notify_decode_failed", "Dropping malformed notification", "", nil, err)
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

// NotifyPublisher announces changes with pg_notify.
type NotifyPublisher struct {
	db      DB
	channel string
}

func NewNotifyPublisher(db DB, channel string) *NotifyPublisher {
	return &NotifyPublisher{db: db, channel: channel}
}

func (p *NotifyPublisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	payload, err := notifyPayload(ev)
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, `SELECT pg_notify($1, $2)`, p.channel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", p.channel, err)
	}
	return nil
}

var errPayloadTooLarge = errors.New("change event too large for NOTIFY")

// notifyPayload encodes ev, dropping the items when the order is too big for
// a notification. Subscribers still get the status change; the next full
// fetch brings the items back.
func notifyPayload(ev domain.ChangeEvent) ([]byte, error) {
	payload, err := changefeed.Encode(ev)
	if err != nil {
		return nil, err
	}
	if len(payload) <= maxNotifyPayload || ev.Record == nil {
		return payload, nil
	}

	slim := ev.Record.Clone()
	slim.Items = nil
	ev.Record = slim
	payload, err = changefeed.Encode(ev)
	if err != nil {
		return nil, err
	}
	if len(payload) > maxNotifyPayload {
		return nil, errPayloadTooLarge
	}
	return payload, nil
}
