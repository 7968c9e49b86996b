package projection

import (
	"strings"

	"github.com/YelzhanWeb/ordertrack/internal/domain"
)

// Extractor pulls one candidate value out of an order. An empty result
// means the candidate is absent.
type Extractor func(o *domain.Order) string

// FirstNonEmpty returns the first non-blank value produced by the
// extractors, in order.
func FirstNonEmpty(o *domain.Order, extractors ...Extractor) string {
	for _, ex := range extractors {
		if v := strings.TrimSpace(ex(o)); v != "" {
			return v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func profileName(o *domain.Order) string {
	if o.Customer == nil {
		return ""
	}
	return o.Customer.FullName
}

func profilePhone(o *domain.Order) string {
	if o.Customer == nil {
		return ""
	}
	return o.Customer.Phone
}

func guestName(o *domain.Order) string    { return deref(o.GuestName) }
func guestPhone(o *domain.Order) string   { return deref(o.GuestPhone) }
func contactPhone(o *domain.Order) string { return deref(o.ContactPhone) }

var (
	nameChain  = []Extractor{profileName, guestName}
	phoneChain = []Extractor{contactPhone, profilePhone, guestPhone}
)

// DisplayName resolves profile name, then guest name, then "Guest".
func DisplayName(o *domain.Order) string {
	if name := FirstNonEmpty(o, nameChain...); name != "" {
		return name
	}
	return GuestName
}

// DisplayPhone resolves contact phone, then profile phone, then guest phone.
// Empty means no phone is known.
func DisplayPhone(o *domain.Order) string {
	return FirstNonEmpty(o, phoneChain...)
}
