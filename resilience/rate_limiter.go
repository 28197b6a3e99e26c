package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned when a request cannot get a token in time.
var ErrRateLimited = errors.New("rate limit exceeded")

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	// Name identifies the limiter in logs and callbacks.
	Name string
	// Rate is the sustained number of requests per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
	// MaxDelay caps how long Wait may block. A request that would wait
	// longer fails with ErrRateLimited and gives its token back. Zero means
	// no cap.
	MaxDelay time.Duration
	// OnLimit is called with the delay whenever a request has to wait.
	OnLimit func(name string, delay time.Duration)
}

// DefaultRateLimiterConfig returns ten requests per second with bursts of
// twenty.
func DefaultRateLimiterConfig(name string) RateLimiterConfig {
	return RateLimiterConfig{
		Name:  name,
		Rate:  10,
		Burst: 20,
	}
}

// RateLimiter paces outgoing requests with a token bucket. Waiters reserve
// their token up front, so concurrent callers are served in arrival order;
// a waiter that gives up returns its token.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 10
	}
	if config.Burst <= 0 {
		config.Burst = max(1, int(config.Rate))
	}
	rl := &RateLimiter{config: config, now: time.Now}
	rl.tokens = float64(config.Burst)
	rl.last = rl.now()
	return rl
}

// Allow takes a token if one is available now.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens < 1 {
		return false
	}
	rl.tokens--
	return true
}

// Wait blocks until the caller's token is due and returns how long it
// waited. It fails fast with ErrRateLimited when the delay exceeds MaxDelay
// or would outlast ctx's deadline, and with ctx's error when ctx ends first.
func (rl *RateLimiter) Wait(ctx context.Context) (time.Duration, error) {
	delay := rl.reserve()
	if delay <= 0 {
		return 0, nil
	}
	if rl.config.MaxDelay > 0 && delay > rl.config.MaxDelay {
		rl.cancel()
		return 0, fmt.Errorf("%w: %s: next token in %s", ErrRateLimited, rl.config.Name, delay)
	}
	if deadline, ok := ctx.Deadline(); ok && rl.now().Add(delay).After(deadline) {
		rl.cancel()
		return 0, fmt.Errorf("%w: %s: next token in %s is past the deadline", ErrRateLimited, rl.config.Name, delay)
	}
	if rl.config.OnLimit != nil {
		rl.config.OnLimit(rl.config.Name, delay)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		rl.cancel()
		return 0, ctx.Err()
	case <-timer.C:
		return delay, nil
	}
}

// Tokens returns the tokens available now. It is negative while waiters
// hold reservations.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

// Rate returns the sustained rate in requests per second.
func (rl *RateLimiter) Rate() float64 { return rl.config.Rate }

// Burst returns the bucket capacity.
func (rl *RateLimiter) Burst() int { return rl.config.Burst }

// reserve takes a token, going into debt if needed, and returns when it is
// due.
func (rl *RateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	rl.tokens--
	if rl.tokens >= 0 {
		return 0
	}
	return time.Duration(-rl.tokens / rl.config.Rate * float64(time.Second))
}

func (rl *RateLimiter) cancel() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.tokens = min(rl.tokens+1, float64(rl.config.Burst))
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.last).Seconds()
	rl.last = now
	if elapsed <= 0 {
		return
	}
	rl.tokens = min(rl.tokens+elapsed*rl.config.Rate, float64(rl.config.Burst))
}
