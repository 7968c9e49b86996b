package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
)

// StorageKey is the key the profile is persisted under.
const StorageKey = "auth-storage"

// Persister loads and saves the persisted part of the auth state.
type Persister interface {
	Load(ctx context.Context) (*domain.Profile, error)
	Save(ctx context.Context, p *domain.Profile) error
}

type persistedState struct {
	User *domain.Profile `json:"user"`
}

// KVPersister keeps the profile as JSON in a key-value store.
type KVPersister struct {
	store interfaces.KeyValueStore
	key   string
}

func NewKVPersister(store interfaces.KeyValueStore) *KVPersister {
	return &KVPersister{store: store, key: StorageKey}
}

func (p *KVPersister) Load(ctx context.Context) (*domain.Profile, error) {
	raw, err := p.store.Get(ctx, p.key)
	if errors.Is(err, interfaces.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read auth state: %w", err)
	}

	var st persistedState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("failed to decode auth state: %w", err)
	}
	return st.User, nil
}

func (p *KVPersister) Save(ctx context.Context, profile *domain.Profile) error {
	data, err := json.Marshal(persistedState{User: profile})
	if err != nil {
		return fmt.Errorf("failed to encode auth state: %w", err)
	}
	if err := p.store.Set(ctx, p.key, string(data)); err != nil {
		return fmt.Errorf("failed to write auth state: %w", err)
	}
	return nil
}

// NopPersister keeps nothing.
type NopPersister struct{}

func (NopPersister) Load(ctx context.Context) (*domain.Profile, error) { return nil, nil }
func (NopPersister) Save(ctx context.Context, p *domain.Profile) error { return nil }
