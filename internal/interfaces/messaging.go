package interfaces

import (
	"context"

	"github.com/YelzhanWeb/ordertrack/internal/domain"
)

// ChangePublisher announces order changes on the realtime feed.
type ChangePublisher interface {
	Publish(ctx context.Context, event domain.ChangeEvent) error
}

// ChangeFeed opens subscriptions to order change events. Implementations
// filter server-side by scope where the transport allows it; consumers still
// filter client-side.
type ChangeFeed interface {
	Subscribe(ctx context.Context, scope domain.OrderScope) (Subscription, error)
}

// Subscription is a live change stream. Events are delivered in arrival order
// on a single channel. Done is closed when the connection drops or Close is
// called; Err then reports why.
type Subscription interface {
	Events() <-chan domain.ChangeEvent
	Done() <-chan struct{}
	Err() error
	Close() error
}
