package statusgroup

import (
	"context"
	"fmt"
	"sync"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
)

// Result is the outcome of one load. Groups is nil whenever Err is set.
type Result struct {
	Groups  domain.StatusGroups
	Loading bool
	Err     error
}

// Loader groups the active statuses by category. It keeps only the result
// of the latest load; a failed load does not fall back to an earlier one.
type Loader struct {
	repo   interfaces.StatusRepository
	logger logger.Logger

	mu      sync.RWMutex
	current Result
}

func NewLoader(repo interfaces.StatusRepository, logger logger.Logger) *Loader {
	return &Loader{repo: repo, logger: logger}
}

// Load reads the active statuses once and partitions them.
func (l *Loader) Load(ctx context.Context) Result {
	l.set(Result{Loading: true})

	statuses, err := l.repo.ListActive(ctx)
	if err != nil {
		l.logger.Error("status_groups_load_failed", "Failed to load active statuses", "", nil, err)
		res := Result{Err: fmt.Errorf("failed to load statuses: %w", err)}
		l.set(res)
		return res
	}

	groups := Group(statuses)
	l.logger.Debug("status_groups_loaded", "Status groups loaded", "", map[string]interface{}{
		"statuses": len(statuses),
	})

	res := Result{Groups: groups}
	l.set(res)
	return res
}

// Current returns the result of the latest load.
func (l *Loader) Current() Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

func (l *Loader) set(r Result) {
	l.mu.Lock()
	l.current = r
	l.mu.Unlock()
}

// Group partitions statuses into the four categories, keeping input order.
func Group(statuses []domain.OrderStatus) domain.StatusGroups {
	groups := domain.NewStatusGroups()
	for _, s := range statuses {
		groups.Add(s)
	}
	return groups
}
