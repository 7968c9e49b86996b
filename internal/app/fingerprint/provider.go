package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/google/uuid"
)

// StorageKey is where the identifier lives in the key-value store.
const StorageKey = "device_fingerprint"

// Descriptors is diagnostic context about the device. None of it is stable
// and none of it identifies the device.
type Descriptors struct {
	UserAgent        string `json:"user_agent,omitempty"`
	ScreenResolution string `json:"screen_resolution,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
	Language         string `json:"language,omitempty"`
	Platform         string `json:"platform,omitempty"`
}

// Environment reports what is known about the device.
type Environment interface {
	Descriptors() Descriptors
}

type Provider struct {
	store  interfaces.KeyValueStore
	env    Environment
	logger logger.Logger
}

// NewProvider accepts a nil store or environment; the provider then returns
// empty values instead of failing.
func NewProvider(store interfaces.KeyValueStore, env Environment, logger logger.Logger) *Provider {
	return &Provider{store: store, env: env, logger: logger}
}

// Fingerprint returns the stored identifier, creating and persisting a new
// v4 UUID on first use.
func (p *Provider) Fingerprint(ctx context.Context) (string, error) {
	if p.store == nil {
		return "", nil
	}

	fp, err := p.store.Get(ctx, StorageKey)
	if err == nil && fp != "" {
		return fp, nil
	}
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return "", fmt.Errorf("failed to read fingerprint: %w", err)
	}

	fp = uuid.NewString()
	if err := p.store.Set(ctx, StorageKey, fp); err != nil {
		return "", fmt.Errorf("failed to persist fingerprint: %w", err)
	}

	p.logger.Info("fingerprint_created", "Device fingerprint created", "", map[string]interface{}{"fingerprint": fp})
	return fp, nil
}

// Reset forgets the identifier; the next Fingerprint call creates a new one.
func (p *Provider) Reset(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	if err := p.store.Remove(ctx, StorageKey); err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		return fmt.Errorf("failed to reset fingerprint: %w", err)
	}
	p.logger.Info("fingerprint_reset", "Device fingerprint reset", "", nil)
	return nil
}

func (p *Provider) Descriptors() Descriptors {
	if p.env == nil {
		return Descriptors{}
	}
	return p.env.Descriptors()
}

// HostEnvironment describes the machine the process runs on.
type HostEnvironment struct {
	UserAgent string
}

func (h HostEnvironment) Descriptors() Descriptors {
	zone, _ := time.Now().Zone()
	if tz := os.Getenv("TZ"); tz != "" {
		zone = tz
	}

	lang := os.Getenv("LANG")
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}

	return Descriptors{
		UserAgent: h.UserAgent,
		Timezone:  zone,
		Language:  lang,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}
