package realtime

import (
	"context"
	"sync"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
)

// Manager runs at most one Syncer at a time. Switching scope stops the
// running one, and waits for its subscription and poll timer to be gone,
// before the next one starts.
type Manager struct {
	fetcher Fetcher
	feed    interfaces.ChangeFeed
	logger  logger.Logger
	opts    Options

	mu      sync.Mutex
	current *Syncer
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewManager(fetcher Fetcher, feed interfaces.ChangeFeed, logger logger.Logger, opts Options) *Manager {
	return &Manager{fetcher: fetcher, feed: feed, logger: logger, opts: opts}
}

// Switch starts syncing scope and returns the new Syncer.
func (m *Manager) Switch(ctx context.Context, scope domain.OrderScope) *Syncer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	s := NewSyncer(scope, m.fetcher, m.feed, m.logger, m.opts)
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := s.Run(runCtx); err != nil {
			m.logger.Error("sync_failed", "Order sync exited", "", map[string]interface{}{"scope": scope.Key()}, err)
		}
	}()

	m.current = s
	m.cancel = cancel
	m.done = done
	return s
}

// Current returns the running Syncer, or nil.
func (m *Manager) Current() *Syncer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Stop tears down the running Syncer and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.current = nil
	m.cancel = nil
	m.done = nil
}
