// Package resolve turns addresses into geocodes and place ids into place
// details, consulting the blob cache before any remote call.
package resolve

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/place-enrich/internal/metrics"
	"github.com/sells-group/place-enrich/pkg/google"
)

// Option configures a resolver.
type Option func(*throttle)

// WithDelay sets the minimum pause between the end of one remote call and
// the start of the next. Zero disables the delay.
func WithDelay(d time.Duration) Option {
	return func(t *throttle) {
		t.delay = d
	}
}

// WithMetrics records remote calls in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *throttle) {
		t.metrics = m
	}
}

// throttle spaces remote calls of one resolver and counts them.
type throttle struct {
	operation string
	delay     time.Duration
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	calls     int
}

func newThrottle(operation string, opts []Option) *throttle {
	t := &throttle{operation: operation}
	for _, o := range opts {
		o(t)
	}
	t.limiter = newLimiter(t.delay)
	return t
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// do waits for the limiter, then runs fn and records the outcome. Offline
// refusals are not counted as calls.
func (t *throttle) do(ctx context.Context, fn func(context.Context) error) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "resolve: %s rate limit", t.operation)
	}

	start := time.Now()
	err := fn(ctx)
	if errors.Is(err, google.ErrOffline) {
		return err
	}
	t.calls++
	t.metrics.ObserveRemoteCall(t.operation, time.Since(start), err)
	t.restart(time.Now())
	return err
}

// restart empties the limiter at now so the next call waits a full delay
// after this one finished, however long it took.
func (t *throttle) restart(now time.Time) {
	t.limiter = newLimiter(t.delay)
	t.limiter.AllowN(now, 1)
}
