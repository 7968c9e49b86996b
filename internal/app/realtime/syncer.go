package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
)

const DefaultPollInterval = 20 * time.Second

type Mode int

const (
	ModeIdle Mode = iota
	ModeLive
	ModePolling
	ModeStopped
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeLive:
		return "live"
	case ModePolling:
		return "polling"
	case ModeStopped:
		return "stopped"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Fetcher performs the full fetch of the orders in a scope.
type Fetcher interface {
	ListByScope(ctx context.Context, scope domain.OrderScope) ([]domain.Order, error)
}

type Options struct {
	PollInterval time.Duration
}

// Syncer keeps a local collection of the orders in one scope up to date.
// All mutations happen on the goroutine running Run.
type Syncer struct {
	scope    domain.OrderScope
	fetcher  Fetcher
	feed     interfaces.ChangeFeed
	logger   logger.Logger
	interval time.Duration

	mu     sync.RWMutex
	orders []domain.Order
	mode   Mode
	err    error

	changes chan struct{}
}

func NewSyncer(scope domain.OrderScope, fetcher Fetcher, feed interfaces.ChangeFeed, logger logger.Logger, opts Options) *Syncer {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Syncer{
		scope:    scope,
		fetcher:  fetcher,
		feed:     feed,
		logger:   logger,
		interval: interval,
		changes:  make(chan struct{}, 1),
	}
}

// Run subscribes, fetches and applies changes until ctx is cancelled. A
// failed initial fetch drops the subscription and starts polling. When
// the subscription drops it polls every PollInterval, trying to resubscribe
// first; after a successful resubscribe one full fetch runs before any new
// event is applied.
func (s *Syncer) Run(ctx context.Context) error {
	defer s.setMode(ModeStopped)

	if !s.scope.Valid() {
		return fmt.Errorf("realtime: empty scope")
	}

	s.logger.Info("sync_started", "Order sync started", "", s.fields(nil))

	// Сначала подписка, потом загрузка
	sub, err := s.feed.Subscribe(ctx, s.scope)
	if err != nil {
		s.logger.Warn("subscribe_failed", "Falling back to polling", "", s.fields(map[string]interface{}{"error": err.Error()}))
		sub = nil
	}

	alive, err := s.fetch(ctx, "initial")
	if !alive {
		if sub != nil {
			_ = sub.Close()
		}
		return nil
	}
	if err != nil && sub != nil {
		// Live mode only starts from a complete snapshot.
		_ = sub.Close()
		sub = nil
		s.logger.Warn("initial_fetch_failed", "Polling until a full fetch succeeds", "", s.fields(nil))
	}

	for {
		if sub != nil {
			s.setMode(ModeLive)
			s.consume(ctx, sub)
			_ = sub.Close()
			if ctx.Err() != nil {
				s.logger.Info("sync_stopped", "Order sync stopped", "", s.fields(nil))
				return nil
			}
			s.logger.Warn("subscription_dropped", "Change feed disconnected, polling", "", s.fields(errDetails(sub.Err())))
		}

		s.setMode(ModePolling)
		sub = s.poll(ctx)
		if sub == nil {
			s.logger.Info("sync_stopped", "Order sync stopped", "", s.fields(nil))
			return nil
		}
		s.logger.Info("subscription_restored", "Change feed reconnected", "", s.fields(nil))
	}
}

// consume applies events in arrival order until the subscription ends.
func (s *Syncer) consume(ctx context.Context, sub interfaces.Subscription) {
	events := sub.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.apply(ev)
		case <-sub.Done():
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return
					}
					s.apply(ev)
				default:
					return
				}
			}
		}
	}
}

// poll runs until a resubscribe succeeds and the reconcile fetch completes,
// or ctx ends. It returns nil when ctx ends.
func (s *Syncer) poll(ctx context.Context) interfaces.Subscription {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		sub, err := s.feed.Subscribe(ctx, s.scope)
		if err == nil {
			alive, fetchErr := s.fetch(ctx, "reconcile")
			if !alive {
				_ = sub.Close()
				return nil
			}
			if fetchErr == nil {
				return sub
			}
			_ = sub.Close()
			continue
		}

		if alive, _ := s.fetch(ctx, "poll"); !alive {
			return nil
		}
	}
}

// fetch replaces the collection with a full fetch. alive is false once ctx
// has ended; the result is then discarded.
func (s *Syncer) fetch(ctx context.Context, reason string) (alive bool, err error) {
	orders, err := s.fetcher.ListByScope(ctx, s.scope)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		s.setErr(err)
		s.logger.Error("fetch_failed", "Failed to fetch orders", "", s.fields(map[string]interface{}{"reason": reason}), err)
		return true, err
	}

	kept := make([]domain.Order, 0, len(orders))
	seen := make(map[string]bool, len(orders))
	for i := range orders {
		o := &orders[i]
		if seen[o.ID] || !s.scope.Matches(o) {
			continue
		}
		seen[o.ID] = true
		kept = append(kept, *o.Clone())
	}

	s.mu.Lock()
	s.orders = kept
	s.err = nil
	s.mu.Unlock()
	s.notify()

	s.logger.Debug("orders_fetched", "Orders fetched", "", s.fields(map[string]interface{}{
		"reason": reason,
		"count":  len(kept),
	}))
	return true, nil
}

// apply merges one change into the collection.
func (s *Syncer) apply(ev domain.ChangeEvent) {
	id := ev.ID()
	if id == "" {
		return
	}

	s.mu.Lock()
	changed := false
	idx := s.indexOf(id)

	switch ev.Op {
	case domain.ChangeInsert, domain.ChangeUpdate:
		if ev.Record == nil {
			break
		}
		rec := ev.Record.Clone()
		switch {
		case !s.scope.Matches(rec):
			if idx >= 0 {
				s.removeAt(idx)
				changed = true
			}
		case idx >= 0 && ev.Op == domain.ChangeUpdate:
			s.orders[idx] = *rec
			changed = true
		case idx < 0:
			s.orders = append(s.orders, *rec)
			changed = true
		}
	case domain.ChangeDelete:
		if idx >= 0 {
			s.removeAt(idx)
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

func (s *Syncer) indexOf(id string) int {
	for i := range s.orders {
		if s.orders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Syncer) removeAt(i int) {
	s.orders = append(s.orders[:i], s.orders[i+1:]...)
}

// Orders returns a deep copy of the current collection.
func (s *Syncer) Orders() []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, len(s.orders))
	for i := range s.orders {
		out[i] = *s.orders[i].Clone()
	}
	return out
}

func (s *Syncer) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// Err returns the last fetch error, cleared by the next successful fetch.
func (s *Syncer) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Syncer) Scope() domain.OrderScope {
	return s.scope
}

// Changes signals after the collection changes. Signals are coalesced.
func (s *Syncer) Changes() <-chan struct{} {
	return s.changes
}

func (s *Syncer) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Syncer) setMode(m Mode) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

func (s *Syncer) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *Syncer) fields(extra map[string]interface{}) map[string]interface{} {
	f := map[string]interface{}{"scope": s.scope.Key()}
	for k, v := range extra {
		f[k] = v
	}
	return f
}

func errDetails(err error) map[string]interface{} {
	if err == nil {
		return nil
	}
	return map[string]interface{}{"error": err.Error()}
}
