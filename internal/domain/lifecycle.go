package domain

import (
	"fmt"
	"time"
)

// Lifecycle holds the timestamps an order collects as it moves through the
// kitchen. Each one is set at most once and they never go backwards.
type Lifecycle struct {
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	PreparingAt  *time.Time `json:"preparing_at,omitempty"`
	ReadyAt      *time.Time `json:"ready_at,omitempty"`
	DeliveringAt *time.Time `json:"delivering_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

// stages in the order they happen; cancellation is handled separately.
func (l *Lifecycle) stages() []**time.Time {
	return []**time.Time{&l.ConfirmedAt, &l.PreparingAt, &l.ReadyAt, &l.DeliveringAt, &l.CompletedAt}
}

func (l *Lifecycle) slotFor(status string) (**time.Time, int) {
	switch status {
	case "confirmed":
		return &l.ConfirmedAt, 0
	case "preparing":
		return &l.PreparingAt, 1
	case "ready":
		return &l.ReadyAt, 2
	case "delivering":
		return &l.DeliveringAt, 3
	case "delivered", "completed":
		return &l.CompletedAt, 4
	case "cancelled":
		return &l.CancelledAt, -1
	default:
		return nil, 0
	}
}

// Stamp records at for the timestamp that belongs to status. Statuses without
// a lifecycle timestamp (e.g. pending) are a no-op.
func (l *Lifecycle) Stamp(status string, at time.Time) error {
	slot, idx := l.slotFor(status)
	if slot == nil {
		return nil
	}
	if *slot != nil {
		return fmt.Errorf("%w: %s", ErrTimestampSet, status)
	}

	stages := l.stages()
	limit := len(stages)
	if idx >= 0 {
		limit = idx
	}
	for _, prev := range stages[:limit] {
		if *prev != nil && at.Before(**prev) {
			return fmt.Errorf("%w: %s", ErrTimestampRegressed, status)
		}
	}

	t := at
	*slot = &t
	return nil
}

// Validate checks that present timestamps are not before createdAt and are
// non-decreasing in stage order.
func (l Lifecycle) Validate(createdAt time.Time) error {
	var last *time.Time
	for _, ts := range l.stages() {
		if *ts == nil {
			continue
		}
		if !createdAt.IsZero() && (*ts).Before(createdAt) {
			return ErrTimestampRegressed
		}
		if last != nil && (*ts).Before(*last) {
			return ErrTimestampRegressed
		}
		last = *ts
	}
	if l.CancelledAt != nil {
		if !createdAt.IsZero() && l.CancelledAt.Before(createdAt) {
			return ErrTimestampRegressed
		}
		if last != nil && l.CancelledAt.Before(*last) {
			return ErrTimestampRegressed
		}
	}
	return nil
}

func (l Lifecycle) clone() Lifecycle {
	return Lifecycle{
		ConfirmedAt:  cloneTime(l.ConfirmedAt),
		PreparingAt:  cloneTime(l.PreparingAt),
		ReadyAt:      cloneTime(l.ReadyAt),
		DeliveringAt: cloneTime(l.DeliveringAt),
		CompletedAt:  cloneTime(l.CompletedAt),
		CancelledAt:  cloneTime(l.CancelledAt),
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
