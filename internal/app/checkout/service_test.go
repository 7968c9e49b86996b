package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	interfaces.OrderRepository
	created   []*domain.Order
	createErr error
}

func (r *fakeRepo) GenerateOrderNumber(ctx context.Context) (string, error) {
	return "ORD_20261017_001", nil
}

func (r *fakeRepo) Create(ctx context.Context, o *domain.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, o)
	return nil
}

type fakePublisher struct {
	events []domain.ChangeEvent
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	p.events = append(p.events, ev)
	return p.err
}

func strPtr(s string) *string { return &s }

func newService(repo *fakeRepo, pub *fakePublisher, pricing Pricing) *Service {
	s := NewService(repo, pub, domain.DefaultTaxonomy(), pricing, logger.NewNop())
	s.now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }
	return s
}

func pickupCommand() interfaces.PlaceOrderCommand {
	return interfaces.PlaceOrderCommand{
		DeviceFingerprint: strPtr("fp-1"),
		OrderType:         "pickup",
		GuestName:         strPtr("Carlos"),
		Items: []interfaces.PlaceOrderItemCommand{
			{ProductID: "p-1", Name: "Tortilla", Quantity: 2, UnitPrice: decimal.RequireFromString("6.50")},
		},
	}
}

func TestPlaceOrder_Guest(t *testing.T) {
	repo, pub := &fakeRepo{}, &fakePublisher{}
	s := newService(repo, pub, Pricing{})

	o, err := s.PlaceOrder(context.Background(), pickupCommand())
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "ORD_20261017_001", o.Number)
	assert.Equal(t, "pending", o.Status)
	assert.Equal(t, "fp-1", *o.DeviceFingerprint)
	assert.Nil(t, o.UserID)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("13.00")))
	assert.Equal(t, o.ID, o.Items[0].OrderID)
	require.Len(t, repo.created, 1)

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.ChangeInsert, pub.events[0].Op)
	assert.Equal(t, o.ID, pub.events[0].ID())
}

func TestPlaceOrder_DeliveryPricing(t *testing.T) {
	repo, pub := &fakeRepo{}, &fakePublisher{}
	s := newService(repo, pub, Pricing{
		DeliveryFee: decimal.RequireFromString("2.50"),
		TaxRate:     decimal.RequireFromString("0.10"),
	})

	cmd := pickupCommand()
	cmd.OrderType = "delivery"
	cmd.DeliveryAddress = strPtr("Calle Mayor 12, Madrid")
	tip := decimal.RequireFromString("1.00")
	cmd.Tip = &tip

	o, err := s.PlaceOrder(context.Background(), cmd)
	require.NoError(t, err)

	assert.True(t, o.Subtotal.Equal(decimal.RequireFromString("13.00")))
	assert.True(t, o.Tax.Decimal.Equal(decimal.RequireFromString("1.30")))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("17.80")), o.Total.String())
}

func TestPlaceOrder_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*interfaces.PlaceOrderCommand)
		wantErr error
	}{
		{"no owner", func(c *interfaces.PlaceOrderCommand) { c.DeviceFingerprint = nil }, ErrNoOwner},
		{"delivery without address", func(c *interfaces.PlaceOrderCommand) { c.OrderType = "delivery" }, domain.ErrMissingAddress},
		{"negative price", func(c *interfaces.PlaceOrderCommand) {
			c.Items[0].UnitPrice = decimal.NewFromInt(-1)
		}, domain.ErrNegativeAmount},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, pub := &fakeRepo{}, &fakePublisher{}
			cmd := pickupCommand()
			tc.mutate(&cmd)

			_, err := newService(repo, pub, Pricing{}).PlaceOrder(context.Background(), cmd)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Empty(t, repo.created)
			assert.Empty(t, pub.events)
		})
	}

	t.Run("validator tags", func(t *testing.T) {
		cmd := pickupCommand()
		cmd.Items[0].Quantity = 0
		_, err := newService(&fakeRepo{}, &fakePublisher{}, Pricing{}).PlaceOrder(context.Background(), cmd)
		assert.Error(t, err)

		cmd = pickupCommand()
		cmd.OrderType = "dine_in"
		_, err = newService(&fakeRepo{}, &fakePublisher{}, Pricing{}).PlaceOrder(context.Background(), cmd)
		assert.Error(t, err)
	})
}

func TestPlaceOrder_PublishFailureIsNotFatal(t *testing.T) {
	repo, pub := &fakeRepo{}, &fakePublisher{err: errors.New("broker down")}

	o, err := newService(repo, pub, Pricing{}).PlaceOrder(context.Background(), pickupCommand())
	require.NoError(t, err)
	assert.NotNil(t, o)
	assert.Len(t, repo.created, 1)
}

func TestPlaceOrder_StoreFailure(t *testing.T) {
	repo, pub := &fakeRepo{createErr: errors.New("db down")}, &fakePublisher{}

	_, err := newService(repo, pub, Pricing{}).PlaceOrder(context.Background(), pickupCommand())
	assert.Error(t, err)
	assert.Empty(t, pub.events)
}
