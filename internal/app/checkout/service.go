package checkout

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNoOwner         = errors.New("order needs a user or a device fingerprint")
	ErrNoInitialStatus = errors.New("taxonomy has no initial status")
)

// Pricing holds the charges added on top of the items.
type Pricing struct {
	DeliveryFee decimal.Decimal
	TaxRate     decimal.Decimal
}

type Service struct {
	repo      interfaces.OrderRepository
	publisher interfaces.ChangePublisher
	taxonomy  *domain.Taxonomy
	pricing   Pricing
	validate  *validator.Validate
	logger    logger.Logger
	now       func() time.Time
}

func NewService(repo interfaces.OrderRepository, publisher interfaces.ChangePublisher, taxonomy *domain.Taxonomy, pricing Pricing, logger logger.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		taxonomy:  taxonomy,
		pricing:   pricing,
		validate:  newValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) PlaceOrder(ctx context.Context, cmd interfaces.PlaceOrderCommand) (*domain.Order, error) {
	// 1. Валидация команды
	if err := s.validate.Struct(cmd); err != nil {
		s.logger.Error("validation_failed", "Order validation failed", "", nil, err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if isBlank(cmd.UserID) && isBlank(cmd.DeviceFingerprint) {
		return nil, ErrNoOwner
	}

	initial, ok := s.taxonomy.Initial()
	if !ok {
		return nil, ErrNoInitialStatus
	}

	// 2. Доменная сущность
	order := s.buildOrder(cmd, initial.ID)
	if err := order.Validate(); err != nil {
		s.logger.Error("validation_failed", "Order validation failed", "", nil, err)
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// 3. Номер заказа
	number, err := s.repo.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order number: %w", err)
	}
	order.Number = number

	// 4. Сохранение в БД
	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error("db_transaction_failed", "Failed to create order", "", nil, err)
		return nil, err
	}
	s.logger.Debug("order_received", "Order created in DB", "", map[string]interface{}{"order_number": order.Number})

	// 5. Публикация изменения; подписчики догонят через полную выборку, если она потеряется
	ev := domain.ChangeEvent{Op: domain.ChangeInsert, OrderID: order.ID, Record: order.Clone(), OccurredAt: order.CreatedAt}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("change_publish_failed", "Failed to publish new order", "", map[string]interface{}{"order_number": order.Number}, err)
	} else {
		s.logger.Debug("order_published", "New order published", "", map[string]interface{}{"order_number": order.Number})
	}

	return order, nil
}

func (s *Service) buildOrder(cmd interfaces.PlaceOrderCommand, status string) *domain.Order {
	now := s.now().UTC()
	order := &domain.Order{
		ID:                   uuid.NewString(),
		CreatedAt:            now,
		UpdatedAt:            now,
		Status:               status,
		Type:                 domain.OrderType(cmd.OrderType),
		UserID:               nonBlank(cmd.UserID),
		GuestName:            nonBlank(cmd.GuestName),
		GuestPhone:           nonBlank(cmd.GuestPhone),
		GuestEmail:           nonBlank(cmd.GuestEmail),
		ContactPhone:         nonBlank(cmd.ContactPhone),
		DeliveryAddress:      nonBlank(cmd.DeliveryAddress),
		DeliveryInstructions: nonBlank(cmd.DeliveryInstructions),
		DeviceFingerprint:    nonBlank(cmd.DeviceFingerprint),
		Items:                make([]domain.OrderItem, len(cmd.Items)),
	}

	for i, item := range cmd.Items {
		order.Items[i] = domain.OrderItem{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	if cmd.Tip != nil {
		order.Tip = decimal.NewNullDecimal(*cmd.Tip)
	}
	if order.Type == domain.OrderTypeDelivery && s.pricing.DeliveryFee.IsPositive() {
		order.DeliveryFee = decimal.NewNullDecimal(s.pricing.DeliveryFee)
	}

	order.CalculateTotals()
	if s.pricing.TaxRate.IsPositive() {
		order.Tax = decimal.NewNullDecimal(order.Subtotal.Mul(s.pricing.TaxRate).Round(2))
		order.CalculateTotals()
	}

	return order
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

func nonBlank(s *string) *string {
	if isBlank(s) {
		return nil
	}
	v := *s
	return &v
}
