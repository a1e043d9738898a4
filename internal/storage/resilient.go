package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"

	"github.com/bowerhall/graphcol/internal/logger"
)

// ErrCircuitOpen is returned while the breaker refuses uploads.
var ErrCircuitOpen = errors.New("upload circuit open")

// RetryOption configures the backoff between upload attempts.
type RetryOption struct {
	MaxRetries  int
	InitBackoff time.Duration
	MaxBackoff  time.Duration
	Multiplier  float64
	RandFactor  float64
}

// DefaultRetryOption retries three times, starting at 200ms.
var DefaultRetryOption = RetryOption{
	MaxRetries:  3,
	InitBackoff: 200 * time.Millisecond,
	MaxBackoff:  10 * time.Second,
	Multiplier:  2,
	RandFactor:  0.15,
}

// BreakerConfig configures the circuit breaker in front of the sink.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips once 80% of at least 5 requests in a window failed.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// Resilient retries failed puts with exponential backoff and stops calling
// the underlying sink while it keeps failing.
type Resilient struct {
	sink  Sink
	retry RetryOption
	cb    *gobreaker.CircuitBreaker
	sleep func(ctx context.Context, d time.Duration) error
}

func NewResilient(sink Sink, retry RetryOption, breaker BreakerConfig) *Resilient {
	if retry.InitBackoff == 0 {
		retry.InitBackoff = DefaultRetryOption.InitBackoff
	}
	if retry.MaxBackoff == 0 {
		retry.MaxBackoff = DefaultRetryOption.MaxBackoff
	}
	if retry.Multiplier == 0 {
		retry.Multiplier = DefaultRetryOption.Multiplier
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        breaker.Name,
		MaxRequests: breaker.MaxRequests,
		Interval:    breaker.Interval,
		Timeout:     breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= breaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("upload breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Resilient{
		sink:  sink,
		retry: retry,
		cb:    cb,
		sleep: sleepCtx,
	}
}

// Put tries the underlying sink up to MaxRetries+1 times.
func (r *Resilient) Put(ctx context.Context, path string, data []byte, contentType string) error {
	var lastErr error

	for attempt := 0; attempt <= r.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := r.backoff(attempt)
			logger.Debug("retrying upload", "path", path, "attempt", attempt, "wait", wait, "error", lastErr)
			if err := r.sleep(ctx, wait); err != nil {
				return fmt.Errorf("put %s: %w (last error: %v)", path, err, lastErr)
			}
		}

		_, err := r.cb.Execute(func() (any, error) {
			return nil, r.sink.Put(ctx, path, data, contentType)
		})
		if err == nil {
			return nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("put %s: %w", path, ErrCircuitOpen)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("put %s: %w", path, ctx.Err())
		}

		lastErr = err
	}

	return fmt.Errorf("put %s: giving up after %d attempts: %w", path, r.retry.MaxRetries+1, lastErr)
}

func (r *Resilient) backoff(attempt int) time.Duration {
	backoff := float64(r.retry.InitBackoff) * math.Pow(r.retry.Multiplier, float64(attempt-1))
	if ceiling := float64(r.retry.MaxBackoff); backoff > ceiling {
		backoff = ceiling
	}

	delta := r.retry.RandFactor * backoff
	return time.Duration(backoff - delta + rand.Float64()*(2*delta))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
