package geo

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mdmc/smartlinks/internal/model"
)

// Breaker settings. A vendor that keeps failing is skipped for a cooldown
// window instead of burning its timeout on every cache miss.
const (
	breakerConsecutiveFailures = 5
	breakerCooldown            = 30 * time.Second
)

// breakerProvider wraps a Provider with a circuit breaker.
type breakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker wraps p so repeated failures open a circuit and short-circuit
// subsequent calls with gobreaker.ErrOpenState.
func WithBreaker(p Provider) Provider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    p.Name(),
		Timeout: breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerConsecutiveFailures
		},
	})
	return &breakerProvider{inner: p, cb: cb}
}

func (b *breakerProvider) Name() string { return b.inner.Name() }

func (b *breakerProvider) Lookup(ctx context.Context, ip string) (model.GeoRecord, error) {
	result, err := b.cb.Execute(func() (any, error) {
		return b.inner.Lookup(ctx, ip)
	})
	if err != nil {
		return model.GeoRecord{}, err
	}
	return result.(model.GeoRecord), nil
}
