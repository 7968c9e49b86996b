package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

// Order represents a restaurant order entity
type Order struct {
	ID                   string              `json:"id"`
	Number               string              `json:"order_number"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
	Status               string              `json:"status"`
	Type                 OrderType           `json:"order_type"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	Total                decimal.Decimal     `json:"total"`
	Tax                  decimal.NullDecimal `json:"tax"`
	DeliveryFee          decimal.NullDecimal `json:"delivery_fee"`
	Discount             decimal.NullDecimal `json:"discount"`
	Tip                  decimal.NullDecimal `json:"tip"`
	UserID               *string             `json:"user_id,omitempty"`
	Customer             *CustomerContact    `json:"customer,omitempty"`
	GuestName            *string             `json:"guest_name,omitempty"`
	GuestPhone           *string             `json:"guest_phone,omitempty"`
	GuestEmail           *string             `json:"guest_email,omitempty"`
	ContactPhone         *string             `json:"contact_phone,omitempty"`
	DeliveryAddress      *string             `json:"delivery_address,omitempty"`
	DeliveryInstructions *string             `json:"delivery_instructions,omitempty"`
	DeviceFingerprint    *string             `json:"device_fingerprint,omitempty"`
	Lifecycle            Lifecycle           `json:"lifecycle"`
	Items                []OrderItem         `json:"items"`
}

// CustomerContact is the registered profile joined onto an order.
type CustomerContact struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// OrderItem represents an item in an order. UnitPrice is the price at the
// time of ordering and does not follow later product price changes.
type OrderItem struct {
	ID        string          `json:"id"`
	OrderID   string          `json:"order_id"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal is quantity times the unit price snapshot.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidOrderType   = errors.New("invalid order type")
	ErrNegativeAmount     = errors.New("monetary amounts must not be negative")
	ErrInvalidQuantity    = errors.New("item quantity must be positive")
	ErrMissingAddress     = errors.New("delivery address required for delivery orders")
	ErrNoItems            = errors.New("order must contain at least one item")
	ErrTimestampSet       = errors.New("lifecycle timestamp already set")
	ErrTimestampRegressed = errors.New("lifecycle timestamp precedes an earlier stage")
)

// Validate applies business validation rules
func (o *Order) Validate() error {
	if o.Type != OrderTypeDelivery && o.Type != OrderTypePickup {
		return ErrInvalidOrderType
	}

	if o.Type == OrderTypeDelivery && (o.DeliveryAddress == nil || *o.DeliveryAddress == "") {
		return ErrMissingAddress
	}

	if len(o.Items) == 0 {
		return ErrNoItems
	}

	for _, item := range o.Items {
		if item.Quantity < 1 {
			return fmt.Errorf("%w: %s", ErrInvalidQuantity, item.Name)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: unit price of %s", ErrNegativeAmount, item.Name)
		}
	}

	amounts := map[string]decimal.Decimal{"subtotal": o.Subtotal, "total": o.Total}
	for name, v := range map[string]decimal.NullDecimal{
		"tax": o.Tax, "delivery_fee": o.DeliveryFee, "discount": o.Discount, "tip": o.Tip,
	} {
		if v.Valid {
			amounts[name] = v.Decimal
		}
	}
	for name, v := range amounts {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s", ErrNegativeAmount, name)
		}
	}

	return o.Lifecycle.Validate(o.CreatedAt)
}

// CalculateTotals recomputes subtotal from the items and total from the
// subtotal and the optional charges. A discount never drives the total below zero.
func (o *Order) CalculateTotals() {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	o.Subtotal = subtotal

	total := subtotal
	if o.Tax.Valid {
		total = total.Add(o.Tax.Decimal)
	}
	if o.DeliveryFee.Valid {
		total = total.Add(o.DeliveryFee.Decimal)
	}
	if o.Tip.Valid {
		total = total.Add(o.Tip.Decimal)
	}
	if o.Discount.Valid {
		total = total.Sub(o.Discount.Decimal)
	}
	if total.IsNegative() {
		total = decimal.Zero
	}
	o.Total = total
}

// ItemCount is the sum of item quantities.
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// TransitionTo moves the order to next if the taxonomy allows it and stamps
// the matching lifecycle timestamp.
func (o *Order) TransitionTo(t *Taxonomy, next string, at time.Time) error {
	if _, ok := t.Lookup(next); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, next)
	}
	if !t.CanTransition(o.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, o.Status, next)
	}
	if err := o.Lifecycle.Stamp(next, at); err != nil {
		return err
	}
	o.Status = next
	o.UpdatedAt = at
	return nil
}

// Clone returns a deep copy so callers never share item slices or pointers.
func (o *Order) Clone() *Order {
	c := *o
	c.UserID = cloneString(o.UserID)
	c.GuestName = cloneString(o.GuestName)
	c.GuestPhone = cloneString(o.GuestPhone)
	c.GuestEmail = cloneString(o.GuestEmail)
	c.ContactPhone = cloneString(o.ContactPhone)
	c.DeliveryAddress = cloneString(o.DeliveryAddress)
	c.DeliveryInstructions = cloneString(o.DeliveryInstructions)
	c.DeviceFingerprint = cloneString(o.DeviceFingerprint)
	if o.Customer != nil {
		customer := *o.Customer
		c.Customer = &customer
	}
	c.Lifecycle = o.Lifecycle.clone()
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// StatusLog represents a log entry for order status changes
type StatusLog struct {
	ID        int64     `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Notes     *string   `json:"notes,omitempty"`
}
