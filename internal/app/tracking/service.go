package tracking

import (
	"context"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/app/projection"
	"github.com/YelzhanWeb/ordertrack/internal/app/statusgroup"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
)

type Service struct {
	orderRepo interfaces.OrderRepository
	groups    *statusgroup.Loader
	projector *projection.Projector
	logger    logger.Logger
	now       func() time.Time
}

func NewService(orderRepo interfaces.OrderRepository, groups *statusgroup.Loader, projector *projection.Projector, logger logger.Logger) *Service {
	return &Service{
		orderRepo: orderRepo,
		groups:    groups,
		projector: projector,
		logger:    logger,
		now:       time.Now,
	}
}

// StatusGroups loads the grouping fresh on every call.
func (s *Service) StatusGroups(ctx context.Context) (domain.StatusGroups, error) {
	res := s.groups.Load(ctx)
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Groups, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*projection.View, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.projector.Project(order, s.now())
	return &view, nil
}

func (s *Service) ListOrders(ctx context.Context, scope domain.OrderScope) ([]projection.View, error) {
	orders, err := s.orderRepo.ListByScope(ctx, scope)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("orders_listed", "Scoped orders listed", "", map[string]interface{}{
		"scope": scope.Key(),
		"count": len(orders),
	})
	return s.projector.ProjectAll(orders, s.now()), nil
}

func (s *Service) GetOrderHistory(ctx context.Context, id string) ([]*domain.StatusLog, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.orderRepo.GetStatusHistory(ctx, order.ID)
}
