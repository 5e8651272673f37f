package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"place-discovery/storage"
)

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed        bool
	HoursRemaining float64
	LastRun        time.Time
}

// RateLimiter allows one auto-suggestion run per property per window. The
// last run time is derived from stored auto-suggested rows.
type RateLimiter struct {
	store  storage.RecommendationStore
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter returns a limiter over store. A non-positive window
// disables the limit.
func NewRateLimiter(store storage.RecommendationStore, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, window: window, now: time.Now}
}

// Check reports whether a new run may start for the property.
func (r *RateLimiter) Check(ctx context.Context, propertyID int64) (Decision, error) {
	if r.window <= 0 {
		return Decision{Allowed: true}, nil
	}

	last, ok, err := r.store.LastAutoSuggestedAt(ctx, propertyID)
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: %w", err)
	}
	if !ok {
		return Decision{Allowed: true}, nil
	}

	windowHours := r.window.Hours()
	elapsed := r.now().Sub(last).Hours()
	if elapsed >= windowHours {
		return Decision{Allowed: true, LastRun: last}, nil
	}

	remaining := windowHours - elapsed
	if remaining > windowHours {
		remaining = windowHours
	}
	return Decision{
		Allowed:        false,
		HoursRemaining: math.Round(remaining*10) / 10,
		LastRun:        last,
	}, nil
}

// Gate returns a *RateLimitError when the run is denied.
func (r *RateLimiter) Gate(ctx context.Context, propertyID int64) error {
	d, err := r.Check(ctx, propertyID)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &RateLimitError{HoursRemaining: d.HoursRemaining}
	}
	return nil
}
