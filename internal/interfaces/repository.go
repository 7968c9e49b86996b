package interfaces

import (
	"context"

	"github.com/YelzhanWeb/ordertrack/internal/domain"
)

// Интерфейсы Репозиториев (Adapter/Postgres)
type StatusRepository interface {
	// ListActive returns active statuses ordered by sort order.
	ListActive(ctx context.Context) ([]domain.OrderStatus, error)
	Upsert(ctx context.Context, statuses []domain.OrderStatus) error
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// ListByScope returns the scoped orders, newest first.
	ListByScope(ctx context.Context, scope domain.OrderScope) ([]domain.Order, error)
	GenerateOrderNumber(ctx context.Context) (string, error)
	UpdateStatus(ctx context.Context, order *domain.Order, changedBy string) error
	Delete(ctx context.Context, id string) error
	GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error)
}
