package webhookauth

import (
	"context"
	"time"

	"github.com/aevon-lab/hookline/internal/core/storage"
)

// Rate limit defaults.
const (
	DefaultRateLimitMax    = 60
	DefaultRateLimitWindow = 60 * time.Second
)

// RateLimiter is a sliding-window limiter that counts recorded deliveries
// per endpoint.
//
// Count-then-compare is not atomic. With N requests racing at the
// threshold, up to N-1 of them can be admitted past the limit.
type RateLimiter struct {
	store       storage.WebhookRequestStore
	maxRequests int
	window      time.Duration
	nowFn       func() time.Time
}

// NewRateLimiter creates a limiter. Non-positive values use the defaults.
func NewRateLimiter(store storage.WebhookRequestStore, maxRequests int, window time.Duration) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = DefaultRateLimitMax
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &RateLimiter{
		store:       store,
		maxRequests: maxRequests,
		window:      window,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Allow reports whether another request may be accepted for endpoint.
// On a store error it returns allowed=false with the error; the caller
// applies the failure policy.
func (l *RateLimiter) Allow(ctx context.Context, endpoint string) (bool, error) {
	since := l.nowFn().Add(-l.window)
	count, err := l.store.CountWebhookRequestsSince(ctx, endpoint, since)
	if err != nil {
		return false, err
	}
	return count < l.maxRequests, nil
}
