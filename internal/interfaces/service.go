package interfaces

import (
	"context"

	"github.com/YelzhanWeb/ordertrack/internal/app/projection"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/shopspring/decimal"
)

// Интерфейсы Сервисов (Business Logic)
type CheckoutService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (*domain.Order, error)
}

type AdminService interface {
	Advance(ctx context.Context, orderID, next, actor string) (*domain.Order, error)
	Cancel(ctx context.Context, orderID, actor string) (*domain.Order, error)
	Delete(ctx context.Context, orderID, actor string) error
}

type TrackingService interface {
	StatusGroups(ctx context.Context) (domain.StatusGroups, error)
	GetOrder(ctx context.Context, id string) (*projection.View, error)
	ListOrders(ctx context.Context, scope domain.OrderScope) ([]projection.View, error)
	GetOrderHistory(ctx context.Context, id string) ([]*domain.StatusLog, error)
}

// Команды для сервисов
type PlaceOrderCommand struct {
	UserID               *string                 `json:"user_id,omitempty"`
	DeviceFingerprint    *string                 `json:"device_fingerprint,omitempty"`
	OrderType            string                  `json:"order_type" validate:"required,oneof=delivery pickup"`
	GuestName            *string                 `json:"guest_name,omitempty" validate:"omitempty,min=1,max=100"`
	GuestPhone           *string                 `json:"guest_phone,omitempty" validate:"omitempty,min=6,max=20"`
	GuestEmail           *string                 `json:"guest_email,omitempty" validate:"omitempty,email"`
	ContactPhone         *string                 `json:"contact_phone,omitempty" validate:"omitempty,min=6,max=20"`
	DeliveryAddress      *string                 `json:"delivery_address,omitempty" validate:"omitempty,min=5,max=255"`
	DeliveryInstructions *string                 `json:"delivery_instructions,omitempty" validate:"omitempty,max=500"`
	Tip                  *decimal.Decimal        `json:"tip,omitempty"`
	Items                []PlaceOrderItemCommand `json:"items" validate:"required,min=1,max=50,dive"`
}

type PlaceOrderItemCommand struct {
	ProductID string          `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"required,max=100"`
	Quantity  int             `json:"quantity" validate:"min=1,max=99"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
