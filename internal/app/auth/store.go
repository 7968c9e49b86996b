package auth

import (
	"context"
	"sync"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
)

// State is what the UI reads from the store.
type State struct {
	Profile    *domain.Profile
	Loading    bool
	PromptOpen bool
}

// Store holds the current profile. Only the profile is persisted.
type Store struct {
	persister Persister
	logger    logger.Logger

	mu        sync.RWMutex
	state     State
	listeners map[int]chan State
	nextID    int
}

// NewStore rehydrates the profile from persister. Loading is false after
// rehydration whatever was stored.
func NewStore(ctx context.Context, persister Persister, logger logger.Logger) *Store {
	if persister == nil {
		persister = NopPersister{}
	}
	s := &Store{
		persister: persister,
		logger:    logger,
		state:     State{Loading: true},
		listeners: make(map[int]chan State),
	}

	profile, err := persister.Load(ctx)
	if err != nil {
		s.logger.Error("auth_rehydrate_failed", "Failed to rehydrate auth store", "", nil, err)
		profile = nil
	}
	s.state = State{Profile: cloneProfile(profile), Loading: false}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Profile = cloneProfile(s.state.Profile)
	return st
}

func (s *Store) Profile() *domain.Profile {
	return s.Snapshot().Profile
}

// SetProfile replaces the profile and persists it. A nil profile signs out.
// The in-memory state changes even when persisting fails.
func (s *Store) SetProfile(ctx context.Context, p *domain.Profile) error {
	s.update(func(st *State) { st.Profile = cloneProfile(p) })
	return s.persister.Save(ctx, p)
}

func (s *Store) SetLoading(loading bool) {
	s.update(func(st *State) { st.Loading = loading })
}

func (s *Store) OpenPrompt() {
	s.update(func(st *State) { st.PromptOpen = true })
}

func (s *Store) ClosePrompt() {
	s.update(func(st *State) { st.PromptOpen = false })
}

// Subscribe returns a channel receiving the state after every change, and a
// cancel func. Slow listeners only see the latest state.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan State, 1)
	s.listeners[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if l, ok := s.listeners[id]; ok {
			delete(s.listeners, id)
			close(l)
		}
	}
}

func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
	for _, ch := range s.listeners {
		snap := s.state
		snap.Profile = cloneProfile(s.state.Profile)
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func cloneProfile(p *domain.Profile) *domain.Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Phone = cloneStr(p.Phone)
	c.Address = cloneStr(p.Address)
	c.AvatarURL = cloneStr(p.AvatarURL)
	return &c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
