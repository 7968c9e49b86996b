package domain

import "sort"

// OrderScope selects the orders a viewer is allowed to see: the signed-in
// user's orders, a guest device's orders, or every non-terminal order for
// admin dashboards.
type OrderScope struct {
	UserID      string
	Fingerprint string
	Admin       bool
	// Terminal lists the status IDs excluded from admin scope.
	Terminal map[string]bool
}

func UserScope(userID string) OrderScope {
	return OrderScope{UserID: userID}
}

func GuestScope(fingerprint string) OrderScope {
	return OrderScope{Fingerprint: fingerprint}
}

func AdminScope(terminal map[string]bool) OrderScope {
	return OrderScope{Admin: true, Terminal: terminal}
}

// Valid reports whether the scope selects anything at all.
func (s OrderScope) Valid() bool {
	return s.Admin || s.UserID != "" || s.Fingerprint != ""
}

// Matches reports whether the order belongs to the scope.
func (s OrderScope) Matches(o *Order) bool {
	if o == nil {
		return false
	}
	switch {
	case s.Admin:
		return !s.Terminal[o.Status]
	case s.UserID != "":
		return o.UserID != nil && *o.UserID == s.UserID
	case s.Fingerprint != "":
		return o.DeviceFingerprint != nil && *o.DeviceFingerprint == s.Fingerprint
	default:
		return false
	}
}

// TerminalIDs returns the excluded statuses in a stable order.
func (s OrderScope) TerminalIDs() []string {
	ids := make([]string, 0, len(s.Terminal))
	for id, ok := range s.Terminal {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Key identifies the scope, e.g. for routing keys and log fields.
func (s OrderScope) Key() string {
	switch {
	case s.Admin:
		return "admin"
	case s.UserID != "":
		return "user." + s.UserID
	case s.Fingerprint != "":
		return "device." + s.Fingerprint
	default:
		return "none"
	}
}

// RoutingKeys returns the topic keys an order change is published under.
func RoutingKeys(o *Order) []string {
	keys := []string{"admin"}
	if o == nil {
		return keys
	}
	if o.UserID != nil && *o.UserID != "" {
		keys = append(keys, "user."+*o.UserID)
	}
	if o.DeviceFingerprint != nil && *o.DeviceFingerprint != "" {
		keys = append(keys, "device."+*o.DeviceFingerprint)
	}
	return keys
}
