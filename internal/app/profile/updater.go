package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/app/auth"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUnauthenticated = errors.New("no active session")
	ErrSessionExpired  = errors.New("session expired")
	ErrEmptyPatch      = errors.New("profile patch changes nothing")
	ErrInvalidPatch    = errors.New("invalid profile patch")
)

// TokenSource supplies the current session's bearer token. An empty token
// means there is no session.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, e.g. from the command line.
type StaticToken string

func (t StaticToken) Token(ctx context.Context) (string, error) {
	return string(t), nil
}

// Client performs the remote profile update.
type Client interface {
	UpdateProfile(ctx context.Context, token string, patch domain.ProfilePatch) (*domain.Profile, error)
}

type Updater struct {
	tokens   TokenSource
	client   Client
	store    *auth.Store
	validate *validator.Validate
	logger   logger.Logger
	now      func() time.Time
}

func NewUpdater(tokens TokenSource, client Client, store *auth.Store, logger logger.Logger) *Updater {
	return &Updater{
		tokens:   tokens,
		client:   client,
		store:    store,
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}
}

// Update applies patch remotely and stores the returned profile. Session
// errors are returned as is and never retried.
func (u *Updater) Update(ctx context.Context, patch domain.ProfilePatch) (*domain.Profile, error) {
	if patch.Empty() {
		return nil, ErrEmptyPatch
	}
	if err := u.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	token, err := u.token(ctx)
	if err != nil {
		u.logger.Warn("profile_update_rejected", "Profile update without a valid session", "", map[string]interface{}{"reason": err.Error()})
		return nil, err
	}

	if u.store != nil {
		u.store.SetLoading(true)
		defer u.store.SetLoading(false)
	}

	updated, err := u.client.UpdateProfile(ctx, token, patch)
	if err != nil {
		u.logger.Error("profile_update_failed", "Failed to update profile", "", nil, err)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if u.store != nil {
		if err := u.store.SetProfile(ctx, updated); err != nil {
			u.logger.Error("profile_persist_failed", "Failed to persist updated profile", "", nil, err)
		}
	}

	u.logger.Info("profile_updated", "Profile updated", "", map[string]interface{}{"user_id": updated.ID})
	return updated, nil
}

func (u *Updater) token(ctx context.Context) (string, error) {
	if u.tokens == nil {
		return "", ErrUnauthenticated
	}
	token, err := u.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if token == "" {
		return "", ErrUnauthenticated
	}
	if expired(token, u.now()) {
		return "", ErrSessionExpired
	}
	return token, nil
}

// expired reports whether a JWT's exp claim has passed. The signature is not
// checked here; that is the backend's job. Opaque tokens never count as
// expired.
func expired(token string, now time.Time) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}
