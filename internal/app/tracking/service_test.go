package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/app/projection"
	"github.com/YelzhanWeb/ordertrack/internal/app/statusgroup"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatuses struct {
	statuses []domain.OrderStatus
	err      error
}

func (f *fakeStatuses) ListActive(ctx context.Context) ([]domain.OrderStatus, error) {
	return f.statuses, f.err
}

func (f *fakeStatuses) Upsert(ctx context.Context, statuses []domain.OrderStatus) error {
	return nil
}

type fakeOrders struct {
	interfaces.OrderRepository
	orders    []domain.Order
	listScope domain.OrderScope
	history   []*domain.StatusLog
}

func (f *fakeOrders) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	for i := range f.orders {
		if f.orders[i].ID == id {
			return f.orders[i].Clone(), nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeOrders) ListByScope(ctx context.Context, scope domain.OrderScope) ([]domain.Order, error) {
	f.listScope = scope
	return f.orders, nil
}

func (f *fakeOrders) GetStatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	return f.history, nil
}

var now = time.Date(2026, 10, 17, 12, 45, 0, 0, time.UTC)

func newService(orders *fakeOrders, statuses *fakeStatuses) *Service {
	tax := domain.DefaultTaxonomy()
	s := NewService(orders,
		statusgroup.NewLoader(statuses, logger.NewNop()),
		projection.NewProjector(tax, nil),
		logger.NewNop())
	s.now = func() time.Time { return now }
	return s
}

func sampleOrders() []domain.Order {
	name := "Ana"
	return []domain.Order{
		{ID: "o-2", Number: "ORD_20261017_002", Status: "pending", CreatedAt: now.Add(-45 * time.Minute), GuestName: &name},
		{ID: "o-1", Number: "ORD_20261017_001", Status: "preparing", CreatedAt: now.Add(-5 * time.Minute)},
	}
}

func TestStatusGroups(t *testing.T) {
	statuses := &fakeStatuses{statuses: domain.DefaultTaxonomy().Statuses()}
	s := newService(&fakeOrders{}, statuses)

	groups, err := s.StatusGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pending"}, groups[domain.CategoryNew])
	assert.Equal(t, []string{"delivering"}, groups[domain.CategoryDelivery])

	statuses.err = errors.New("db down")
	groups, err = s.StatusGroups(context.Background())
	assert.Error(t, err)
	assert.Nil(t, groups)
}

func TestListOrders(t *testing.T) {
	orders := &fakeOrders{orders: sampleOrders()}
	s := newService(orders, &fakeStatuses{})

	views, err := s.ListOrders(context.Background(), domain.GuestScope("fp-1"))
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, "device.fp-1", orders.listScope.Key())
	assert.Equal(t, "o-2", views[0].ID)
	assert.True(t, views[0].Delayed)
	assert.Equal(t, "Ana", views[0].DisplayName)
	assert.False(t, views[1].Delayed)
	assert.Equal(t, projection.GuestName, views[1].DisplayName)
}

func TestGetOrder(t *testing.T) {
	s := newService(&fakeOrders{orders: sampleOrders()}, &fakeStatuses{})

	view, err := s.GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryActive, view.Category)
	assert.Equal(t, 5*time.Minute, view.Elapsed)

	_, err = s.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestGetOrderHistory(t *testing.T) {
	history := []*domain.StatusLog{{ID: 1, OrderID: "o-1", Status: "pending", ChangedBy: "system"}}
	s := newService(&fakeOrders{orders: sampleOrders(), history: history}, &fakeStatuses{})

	got, err := s.GetOrderHistory(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, history, got)

	_, err = s.GetOrderHistory(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
