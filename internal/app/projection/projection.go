package projection

import (
	"fmt"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/shopspring/decimal"
)

// GuestName is shown when neither a profile nor a guest name is on the order.
const GuestName = "Guest"

// Thresholds is how long an order may sit in a category before it is
// flagged as delayed. A zero value disables the flag for that category.
type Thresholds map[domain.StatusCategory]time.Duration

func DefaultThresholds() Thresholds {
	return Thresholds{
		domain.CategoryNew:       10 * time.Minute,
		domain.CategoryActive:    30 * time.Minute,
		domain.CategoryDelivery:  45 * time.Minute,
		domain.CategoryCompleted: 0,
	}
}

// View is the display-ready shape of an order.
type View struct {
	ID           string                `json:"id"`
	Number       string                `json:"order_number"`
	Status       string                `json:"status"`
	Category     domain.StatusCategory `json:"category,omitempty"`
	StatusLabel  domain.LocalizedText  `json:"status_label"`
	StatusColor  string                `json:"status_color,omitempty"`
	StatusIcon   string                `json:"status_icon,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	Elapsed      time.Duration         `json:"elapsed_ns"`
	ElapsedText  string                `json:"elapsed"`
	Delayed      bool                  `json:"delayed"`
	DisplayName  string                `json:"display_name"`
	DisplayPhone *string               `json:"display_phone,omitempty"`
	Type         domain.OrderType      `json:"order_type"`
	Address      *string               `json:"delivery_address,omitempty"`
	ItemCount    int                   `json:"item_count"`
	Items        []domain.OrderItem    `json:"items"`
	Total        decimal.Decimal       `json:"total"`
}

type Projector struct {
	taxonomy   *domain.Taxonomy
	thresholds Thresholds
}

func NewProjector(taxonomy *domain.Taxonomy, thresholds Thresholds) *Projector {
	if thresholds == nil {
		thresholds = DefaultThresholds()
	}
	return &Projector{taxonomy: taxonomy, thresholds: thresholds}
}

// Project builds the view of o as seen at now. o is not modified.
func (p *Projector) Project(o *domain.Order, now time.Time) View {
	elapsed := now.Sub(o.CreatedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	v := View{
		ID:          o.ID,
		Number:      o.Number,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		Elapsed:     elapsed,
		ElapsedText: FormatElapsed(elapsed),
		DisplayName: DisplayName(o),
		Type:        o.Type,
		ItemCount:   o.ItemCount(),
		Total:       o.Total,
	}

	if phone := DisplayPhone(o); phone != "" {
		v.DisplayPhone = &phone
	}
	if o.DeliveryAddress != nil {
		addr := *o.DeliveryAddress
		v.Address = &addr
	}
	v.Items = make([]domain.OrderItem, len(o.Items))
	copy(v.Items, o.Items)

	if p.taxonomy != nil {
		if st, ok := p.taxonomy.Lookup(o.Status); ok {
			v.Category = st.Category
			v.StatusLabel = st.Label
			v.StatusColor = st.Color
			v.StatusIcon = st.Icon
		}
	}

	v.Delayed = p.delayed(v.Category, elapsed)

	return v
}

// ProjectAll projects every order in list order.
func (p *Projector) ProjectAll(orders []domain.Order, now time.Time) []View {
	views := make([]View, 0, len(orders))
	for i := range orders {
		views = append(views, p.Project(&orders[i], now))
	}
	return views
}

func (p *Projector) delayed(c domain.StatusCategory, elapsed time.Duration) bool {
	limit, ok := p.thresholds[c]
	if !ok || limit <= 0 {
		return false
	}
	return elapsed > limit
}

// FormatElapsed renders a duration the way the order boards show it.
func FormatElapsed(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min", int(d/time.Minute))
	case d < 24*time.Hour:
		h := int(d / time.Hour)
		m := int((d % time.Hour) / time.Minute)
		return fmt.Sprintf("%d h %02d min", h, m)
	default:
		days := int(d / (24 * time.Hour))
		h := int((d % (24 * time.Hour)) / time.Hour)
		return fmt.Sprintf("%d d %d h", days, h)
	}
}
