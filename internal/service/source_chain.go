package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-room-schedule/internal/schedule"
)

// SourceProvider fetches raw timetable text by logical name.
type SourceProvider interface {
	Kind() string
	Fetch(ctx context.Context, name string) (string, error)
}

// ChainSource asks each provider in order and returns the first successful fetch.
type ChainSource struct {
	providers []SourceProvider
	logger    *zap.Logger
}

// NewChainSource builds a chain. Nil providers are ignored.
func NewChainSource(logger *zap.Logger, providers ...SourceProvider) *ChainSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	chain := &ChainSource{logger: logger}
	for _, p := range providers {
		if p != nil {
			chain.providers = append(chain.providers, p)
		}
	}
	return chain
}

// Resolve returns the text and the kind of the provider that produced it. When every provider
// fails the error wraps schedule.ErrSourceUnavailable.
func (c *ChainSource) Resolve(ctx context.Context, name string) (string, string, error) {
	var lastErr error
	for _, p := range c.providers {
		text, err := p.Fetch(ctx, name)
		if err == nil {
			return text, p.Kind(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", "", ctxErr
		}
		lastErr = err
		if !errors.Is(err, schedule.ErrSourceUnavailable) {
			c.logger.Warn("schedule source provider failed", zap.String("provider", p.Kind()), zap.String("source", name), zap.Error(err))
		}
	}
	if lastErr == nil {
		return "", "", fmt.Errorf("no source providers configured: %w", schedule.ErrSourceUnavailable)
	}
	if errors.Is(lastErr, schedule.ErrSourceUnavailable) {
		return "", "", lastErr
	}
	return "", "", fmt.Errorf("%w: %v", schedule.ErrSourceUnavailable, lastErr)
}
