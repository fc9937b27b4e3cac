package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Vector-Space-Retrieval/pkg/resilience"
)

// guarded routes Backend calls through a circuit breaker. A key miss is a
// healthy answer and does not count as a failure.
type guarded struct {
	backend Backend
	breaker *resilience.Breaker
}

// WithBreaker wraps backend so that a failing Redis is skipped until the
// breaker lets a probe through.
func WithBreaker(backend Backend, breaker *resilience.Breaker) Backend {
	return &guarded{backend: backend, breaker: breaker}
}

func (g *guarded) Get(ctx context.Context, key string) (string, error) {
	var (
		value  string
		getErr error
	)
	err := g.breaker.Do(func() error {
		value, getErr = g.backend.Get(ctx, key)
		if getErr != nil && !isMiss(getErr) {
			return getErr
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, getErr
}

func (g *guarded) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.breaker.Do(func() error {
		return g.backend.Set(ctx, key, value, ttl)
	})
}

func (g *guarded) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var deleted int64
	err := g.breaker.Do(func() error {
		var err error
		deleted, err = g.backend.FlushByPattern(ctx, pattern)
		return err
	})
	return deleted, err
}
