package notify

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer spaces consecutive pushes.
type Pacer interface {
	Pace(ctx context.Context) error
}

// RandomPacer waits a uniformly random duration in [Min, Max).
type RandomPacer struct {
	Min time.Duration
	Max time.Duration
}

var DefaultPacer = RandomPacer{Min: 500 * time.Millisecond, Max: time.Second}

func (p RandomPacer) Duration() time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + rand.N(p.Max-p.Min)
}

func (p RandomPacer) Pace(ctx context.Context) error {
	timer := time.NewTimer(p.Duration())
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoPacer does not wait at all.
type NoPacer struct{}

func (NoPacer) Pace(ctx context.Context) error {
	return ctx.Err()
}
