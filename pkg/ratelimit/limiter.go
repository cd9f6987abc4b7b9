// Package ratelimit enforces the per-run API call budget: a steady-state
// token bucket smooths bursts, and a hard ceiling fails fast rather than
// queuing once a run has spent its allowance.
package ratelimit

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrBudgetExhausted is returned by Acquire once used would exceed ceiling.
// The limiter fails rather than blocks past the ceiling — unlike the
// steady-state rate component, the ceiling is a hard stop.
var ErrBudgetExhausted = errors.New("ratelimit: api call budget exhausted")

const (
	defaultBase = time.Second
	defaultCap  = 30 * time.Second
)

// Limiter is a token-bucket rate limiter wrapped around a hard call ceiling.
// The bucket (golang.org/x/time/rate) smooths request bursts; the ceiling
// and its counter are a plain mutex-guarded int, mirroring the teacher's
// AIMD controller's short, hand-rolled critical section.
type Limiter struct {
	bucket  *rate.Limiter
	mu      sync.Mutex
	used    int
	ceiling int
	base    time.Duration
	cap     time.Duration
}

// New builds a Limiter allowing ratePerSecond steady-state requests (with a
// burst of the same size) and a hard ceiling of ceiling calls for the run's
// lifetime.
func New(ratePerSecond float64, ceiling int) *Limiter {
	burst := int(ratePerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		bucket:  rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		ceiling: ceiling,
		base:    defaultBase,
		cap:     defaultCap,
	}
}

// Acquire blocks until a token is available (respecting ctx cancellation)
// and atomically increments the used counter. It returns ErrBudgetExhausted
// immediately, without waiting on the bucket, if the ceiling would be
// exceeded — budget checks never queue.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	if l.used >= l.ceiling {
		l.mu.Unlock()
		return ErrBudgetExhausted
	}
	l.used++
	l.mu.Unlock()

	if err := l.bucket.Wait(ctx); err != nil {
		l.mu.Lock()
		l.used--
		l.mu.Unlock()
		return err
	}
	return nil
}

// Remaining returns how many calls are still available under the ceiling.
func (l *Limiter) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	r := l.ceiling - l.used
	if r < 0 {
		return 0
	}
	return r
}

// Used returns how many calls have been accounted for so far.
func (l *Limiter) Used() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

// Ceiling returns the configured hard call ceiling.
func (l *Limiter) Ceiling() int {
	return l.ceiling
}

// Backoff computes a retry delay for the given zero-based attempt number:
// min(base*2^attempt + jitter, cap), jitter uniform in [0, base).
func (l *Limiter) Backoff(attempt int) time.Duration {
	return backoff(l.base, l.cap, attempt)
}

func backoff(base, capDur time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Guard against overflow for pathologically large attempt counts.
	shift := attempt
	if shift > 20 {
		shift = 20
	}
	d := base * time.Duration(1<<uint(shift))
	jitter := time.Duration(rand.Int63n(int64(base)))
	total := d + jitter
	if total > capDur {
		return capDur
	}
	return total
}
