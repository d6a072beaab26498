package pusher

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"scorepusher/lib/timezone"
	"time"
)

// Interval is the wait between cycles, Base scaled by a uniform factor in
// [1-Jitter, 1+Jitter).
type Interval struct {
	Base   time.Duration
	Jitter float64
}

var DefaultInterval = Interval{Base: time.Hour, Jitter: 0.2}

func (i Interval) Next() time.Duration {
	factor := 1 - i.Jitter + rand.Float64()*2*i.Jitter
	return time.Duration(float64(i.Base) * factor)
}

// Loop runs cycles until ctx is done. A failed cycle is logged and the
// next one starts after the usual wait.
func (s Service) Loop(ctx context.Context, interval Interval) {
	for ctx.Err() == nil {
		_, err := s.RunCycle(ctx)
		if err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "failed to fetch data", "kind", ErrorKind(err), "err", err)
		}

		wait := interval.Next()
		slog.InfoContext(ctx, "next update", "at", timezone.Format(timezone.Now().Add(wait)))

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
