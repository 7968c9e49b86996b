package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
)

// CancelledStatus is the status Cancel moves an order to.
const CancelledStatus = "cancelled"

type Service struct {
	repo      interfaces.OrderRepository
	publisher interfaces.ChangePublisher
	taxonomy  *domain.Taxonomy
	logger    logger.Logger
	now       func() time.Time
}

func NewService(repo interfaces.OrderRepository, publisher interfaces.ChangePublisher, taxonomy *domain.Taxonomy, logger logger.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		taxonomy:  taxonomy,
		logger:    logger,
		now:       time.Now,
	}
}

// Advance moves the order to next if the taxonomy allows the transition.
func (s *Service) Advance(ctx context.Context, orderID, next, actor string) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status

	// Обновляем в памяти
	if err := order.TransitionTo(s.taxonomy, next, s.now().UTC()); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, order, actor); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info("order_status_changed", fmt.Sprintf("Order %s moved to %s", order.Number, next), "", map[string]interface{}{
		"order_number": order.Number,
		"old_status":   oldStatus,
		"new_status":   next,
		"changed_by":   actor,
	})

	// Отправляем уведомление
	s.publish(ctx, domain.ChangeEvent{Op: domain.ChangeUpdate, OrderID: order.ID, Record: order.Clone(), OccurredAt: order.UpdatedAt})

	return order, nil
}

func (s *Service) Cancel(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	return s.Advance(ctx, orderID, CancelledStatus, actor)
}

// Delete removes the order. The delete event carries the last known record
// so scoped subscribers can route it.
func (s *Service) Delete(ctx context.Context, orderID, actor string) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, orderID); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}

	s.logger.Info("order_deleted", fmt.Sprintf("Order %s deleted", order.Number), "", map[string]interface{}{
		"order_number": order.Number,
		"deleted_by":   actor,
	})

	s.publish(ctx, domain.ChangeEvent{Op: domain.ChangeDelete, OrderID: order.ID, Record: order, OccurredAt: s.now().UTC()})
	return nil
}

func (s *Service) publish(ctx context.Context, ev domain.ChangeEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		// Не блокируем процесс из-за ошибки уведомления
		s.logger.Error("change_publish_failed", "Failed to publish order change", "", map[string]interface{}{"order_id": ev.ID(), "op": string(ev.Op)}, err)
	}
}
