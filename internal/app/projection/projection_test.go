package projection

import (
	"testing"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

var base = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

func newOrder(status string) *domain.Order {
	return &domain.Order{
		ID:        "o-1",
		Number:    "ORD_20261017_001",
		CreatedAt: base,
		Status:    status,
		Type:      domain.OrderTypePickup,
		Total:     decimal.RequireFromString("12.50"),
		Items: []domain.OrderItem{
			{ProductID: "p-1", Name: "Empanada", Quantity: 3, UnitPrice: decimal.RequireFromString("2.50")},
			{ProductID: "p-2", Name: "Agua", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
	}
}

func TestProject_NewOrderDelayed(t *testing.T) {
	p := NewProjector(domain.DefaultTaxonomy(), Thresholds{domain.CategoryNew: 10 * time.Minute})

	v := p.Project(newOrder("pending"), base.Add(45*time.Minute))

	assert.True(t, v.Delayed)
	assert.Equal(t, domain.CategoryNew, v.Category)
	assert.Equal(t, 45*time.Minute, v.Elapsed)
	assert.Equal(t, "45 min", v.ElapsedText)
	assert.Equal(t, 4, v.ItemCount)
}

func TestProject_DelayBoundaries(t *testing.T) {
	p := NewProjector(domain.DefaultTaxonomy(), nil)

	tests := []struct {
		name    string
		status  string
		elapsed time.Duration
		want    bool
	}{
		{"new at threshold", "pending", 10 * time.Minute, false},
		{"new past threshold", "pending", 10*time.Minute + time.Second, true},
		{"active within", "preparing", 20 * time.Minute, false},
		{"active past", "preparing", 31 * time.Minute, true},
		{"delivery past", "delivering", 46 * time.Minute, true},
		{"completed never", "delivered", 48 * time.Hour, false},
		{"unknown status never", "ghost", 48 * time.Hour, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := p.Project(newOrder(tc.status), base.Add(tc.elapsed))
			assert.Equal(t, tc.want, v.Delayed)
		})
	}
}

func TestProject_DisplayName(t *testing.T) {
	p := NewProjector(domain.DefaultTaxonomy(), nil)

	t.Run("profile wins over guest", func(t *testing.T) {
		o := newOrder("pending")
		o.Customer = &domain.CustomerContact{FullName: "Ana"}
		o.GuestName = strPtr("Carlos")
		assert.Equal(t, "Ana", p.Project(o, base).DisplayName)
	})

	t.Run("guest without profile", func(t *testing.T) {
		o := newOrder("pending")
		o.GuestName = strPtr("Carlos")
		assert.Equal(t, "Carlos", p.Project(o, base).DisplayName)
	})

	t.Run("neither", func(t *testing.T) {
		assert.Equal(t, "Guest", p.Project(newOrder("pending"), base).DisplayName)
	})

	t.Run("blank profile name falls through", func(t *testing.T) {
		o := newOrder("pending")
		o.Customer = &domain.CustomerContact{FullName: "  "}
		o.GuestName = strPtr("Carlos")
		assert.Equal(t, "Carlos", p.Project(o, base).DisplayName)
	})
}

func TestProject_DisplayPhone(t *testing.T) {
	p := NewProjector(domain.DefaultTaxonomy(), nil)

	o := newOrder("pending")
	assert.Nil(t, p.Project(o, base).DisplayPhone)

	o.GuestPhone = strPtr("600111222")
	v := p.Project(o, base)
	require.NotNil(t, v.DisplayPhone)
	assert.Equal(t, "600111222", *v.DisplayPhone)

	o.Customer = &domain.CustomerContact{FullName: "Ana", Phone: "600333444"}
	assert.Equal(t, "600333444", *p.Project(o, base).DisplayPhone)

	o.ContactPhone = strPtr("600555666")
	assert.Equal(t, "600555666", *p.Project(o, base).DisplayPhone)
}

func TestProject_PureAndNonMutating(t *testing.T) {
	p := NewProjector(domain.DefaultTaxonomy(), nil)
	o := newOrder("preparing")
	o.DeliveryAddress = strPtr("Calle Mayor 12")
	before := o.Clone()

	now := base.Add(90 * time.Minute)
	v1 := p.Project(o, now)
	v2 := p.Project(o, now)

	assert.Equal(t, v1, v2)
	assert.Equal(t, before, o)

	v1.Items[0].Quantity = 100
	*v1.Address = "elsewhere"
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.Equal(t, "Calle Mayor 12", *o.DeliveryAddress)
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "just now"},
		{59 * time.Second, "just now"},
		{12 * time.Minute, "12 min"},
		{65 * time.Minute, "1 h 05 min"},
		{23*time.Hour + 59*time.Minute, "23 h 59 min"},
		{51 * time.Hour, "2 d 3 h"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatElapsed(tc.d), tc.d.String())
	}
}

func TestProject_ClockSkew(t *testing.T) {
	p := NewProjector(domain.DefaultTaxonomy(), nil)
	v := p.Project(newOrder("pending"), base.Add(-time.Minute))
	assert.Equal(t, time.Duration(0), v.Elapsed)
	assert.False(t, v.Delayed)
}

func TestFirstNonEmpty(t *testing.T) {
	empty := func(*domain.Order) string { return "" }
	a := func(*domain.Order) string { return "a" }
	b := func(*domain.Order) string { return "b" }

	o := newOrder("pending")
	assert.Equal(t, "a", FirstNonEmpty(o, empty, a, b))
	assert.Equal(t, "b", FirstNonEmpty(o, empty, b, a))
	assert.Equal(t, "", FirstNonEmpty(o, empty))
	assert.Equal(t, "", FirstNonEmpty(o))
}
