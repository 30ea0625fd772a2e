package config

import (
	"context"
	"fmt"

	"github.com/Almirante-Ming/Rose/client"
	"github.com/Almirante-Ming/Rose/kv"
	"go.uber.org/zap"
)

const BaseURLKey = "tinto_url"

type BaseURLSetter interface {
	SetBaseURL(raw string) error
}

// Preferences keeps the user's chosen API address in plain local storage
// and pushes it into the HTTP client. Nothing here is secret.
type Preferences struct {
	store    kv.Store
	target   BaseURLSetter
	fallback string
	logger   *zap.Logger
}

func NewPreferences(store kv.Store, target BaseURLSetter, fallback string, logger *zap.Logger) *Preferences {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fallback) == 0 {
		fallback = client.DefaultBaseURL
	}

	return &Preferences{
		store:    store,
		target:   target,
		fallback: fallback,
		logger:   logger.With(zap.String("component", "preferences")),
	}
}

// Load applies the saved address, or the fallback when none is saved. A
// saved address that no longer parses is ignored.
func (p *Preferences) Load(ctx context.Context) (string, error) {
	saved, ok, err := p.store.Get(ctx, BaseURLKey)

	if err != nil {
		return "", fmt.Errorf("failed to read saved base url: %w", err)
	}

	if ok {
		if err := p.target.SetBaseURL(saved); err == nil {
			return saved, nil
		}

		p.logger.Warn("ignoring saved base url", zap.String("url", saved))
	}

	if err := p.target.SetBaseURL(p.fallback); err != nil {
		return "", err
	}

	return p.fallback, nil
}

func (p *Preferences) SetBaseURL(ctx context.Context, raw string) (string, error) {
	normalized, err := client.NormalizeBaseURL(raw)

	if err != nil {
		return "", err
	}

	if err := p.store.Set(ctx, BaseURLKey, normalized); err != nil {
		return "", fmt.Errorf("failed to save base url: %w", err)
	}

	if err := p.target.SetBaseURL(normalized); err != nil {
		return "", err
	}

	p.logger.Info("base url changed", zap.String("url", normalized))

	return normalized, nil
}

// BaseURL returns the saved address, or the fallback.
func (p *Preferences) BaseURL(ctx context.Context) (string, error) {
	saved, ok, err := p.store.Get(ctx, BaseURLKey)

	if err != nil {
		return "", fmt.Errorf("failed to read saved base url: %w", err)
	}

	if !ok {
		return p.fallback, nil
	}

	return saved, nil
}

// Clear forgets the saved address and goes back to the fallback.
func (p *Preferences) Clear(ctx context.Context) error {
	if err := p.store.Delete(ctx, BaseURLKey); err != nil {
		return fmt.Errorf("failed to clear base url: %w", err)
	}

	return p.target.SetBaseURL(p.fallback)
}
