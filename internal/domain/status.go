package domain

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// StatusCategory is the coarse grouping of fine-grained order statuses.
type StatusCategory string

const (
	CategoryNew       StatusCategory = "new"
	CategoryActive    StatusCategory = "active"
	CategoryDelivery  StatusCategory = "delivery"
	CategoryCompleted StatusCategory = "completed"
)

// Categories returns the four categories in display order.
func Categories() []StatusCategory {
	return []StatusCategory{CategoryNew, CategoryActive, CategoryDelivery, CategoryCompleted}
}

// ParseCategory reports whether s names one of the four categories.
func ParseCategory(s string) (StatusCategory, bool) {
	switch c := StatusCategory(s); c {
	case CategoryNew, CategoryActive, CategoryDelivery, CategoryCompleted:
		return c, true
	default:
		return "", false
	}
}

// LocalizedText is a display label in the two supported languages.
type LocalizedText struct {
	ES string `yaml:"es" json:"es"`
	EN string `yaml:"en" json:"en"`
}

// OrderStatus is one entry of the status taxonomy.
type OrderStatus struct {
	ID           string         `yaml:"id" json:"id"`
	Label        LocalizedText  `yaml:"label" json:"label"`
	Color        string         `yaml:"color" json:"color"`
	Icon         string         `yaml:"icon" json:"icon"`
	SortOrder    int            `yaml:"sort_order" json:"sort_order"`
	Active       bool           `yaml:"active" json:"active"`
	Category     StatusCategory `yaml:"category" json:"category"`
	NextStatuses []string       `yaml:"next_statuses" json:"next_statuses"`
}

var (
	ErrUnknownStatus           = errors.New("unknown status")
	ErrInvalidCategory         = errors.New("invalid status category")
	ErrDuplicateStatus         = errors.New("duplicate status id")
	ErrDanglingNextStatus      = errors.New("next status references unknown status")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

// Taxonomy is the validated, indexed set of order statuses.
type Taxonomy struct {
	byID    map[string]OrderStatus
	ordered []OrderStatus
}

// NewTaxonomy validates statuses and indexes them by ID.
func NewTaxonomy(statuses []OrderStatus) (*Taxonomy, error) {
	t := &Taxonomy{byID: make(map[string]OrderStatus, len(statuses))}

	for _, s := range statuses {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: empty id", ErrUnknownStatus)
		}
		if _, ok := ParseCategory(string(s.Category)); !ok {
			return nil, fmt.Errorf("%w: %q on status %s", ErrInvalidCategory, s.Category, s.ID)
		}
		if _, dup := t.byID[s.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStatus, s.ID)
		}
		s.NextStatuses = append([]string(nil), s.NextStatuses...)
		t.byID[s.ID] = s
		t.ordered = append(t.ordered, s)
	}

	for _, s := range t.ordered {
		for _, next := range s.NextStatuses {
			if _, ok := t.byID[next]; !ok {
				return nil, fmt.Errorf("%w: %s -> %s", ErrDanglingNextStatus, s.ID, next)
			}
		}
	}

	sort.SliceStable(t.ordered, func(i, j int) bool {
		return t.ordered[i].SortOrder < t.ordered[j].SortOrder
	})

	return t, nil
}

// Lookup returns the status with the given ID.
func (t *Taxonomy) Lookup(id string) (OrderStatus, bool) {
	s, ok := t.byID[id]
	return s, ok
}

// CategoryOf returns the category of the status, or false when unknown.
func (t *Taxonomy) CategoryOf(id string) (StatusCategory, bool) {
	s, ok := t.byID[id]
	if !ok {
		return "", false
	}
	return s.Category, true
}

// CanTransition checks the next_statuses list of from.
func (t *Taxonomy) CanTransition(from, to string) bool {
	s, ok := t.byID[from]
	if !ok {
		return false
	}
	for _, next := range s.NextStatuses {
		if next == to {
			return true
		}
	}
	return false
}

// Statuses returns all statuses sorted by sort order.
func (t *Taxonomy) Statuses() []OrderStatus {
	out := make([]OrderStatus, len(t.ordered))
	copy(out, t.ordered)
	return out
}

// Initial returns the first active status of the new category, the one
// orders are placed in.
func (t *Taxonomy) Initial() (OrderStatus, bool) {
	for _, st := range t.ordered {
		if st.Category == CategoryNew && st.Active {
			return st, true
		}
	}
	return OrderStatus{}, false
}

// Terminal returns the IDs of statuses an order never leaves.
func (t *Taxonomy) Terminal() map[string]bool {
	terminal := make(map[string]bool)
	for _, s := range t.ordered {
		if s.Category == CategoryCompleted || len(s.NextStatuses) == 0 {
			terminal[s.ID] = true
		}
	}
	return terminal
}

//go:embed statuses.yaml
var defaultStatusesYAML []byte

type statusFile struct {
	Statuses []OrderStatus `yaml:"statuses"`
}

// ParseTaxonomy decodes a YAML document with a top-level "statuses" list.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var f statusFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse status taxonomy: %w", err)
	}
	return NewTaxonomy(f.Statuses)
}

// DefaultTaxonomy returns the built-in restaurant status taxonomy.
func DefaultTaxonomy() *Taxonomy {
	t, err := ParseTaxonomy(defaultStatusesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded status taxonomy is invalid: %v", err))
	}
	return t
}

// StatusGroups maps every category to the IDs of the active statuses in it.
type StatusGroups map[StatusCategory][]string

// NewStatusGroups returns a grouping with all four categories present.
func NewStatusGroups() StatusGroups {
	g := make(StatusGroups, 4)
	for _, c := range Categories() {
		g[c] = []string{}
	}
	return g
}

// Add appends the status to its category group. Unknown categories and
// inactive statuses are skipped.
func (g StatusGroups) Add(s OrderStatus) {
	if !s.Active {
		return
	}
	if _, ok := ParseCategory(string(s.Category)); !ok {
		return
	}
	g[s.Category] = append(g[s.Category], s.ID)
}

// Contains reports whether the status ID is in the given category.
func (g StatusGroups) Contains(c StatusCategory, id string) bool {
	for _, s := range g[c] {
		if s == id {
			return true
		}
	}
	return false
}
