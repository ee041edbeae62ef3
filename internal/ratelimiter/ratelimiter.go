// Package ratelimiter throttles outgoing grid API calls.
//
// Listing a large special collection or walking a deep tree issues one round
// trip per page, so a single client can saturate a catalog server. A Session
// waits on a RateLimiter before every call.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// unlimited is used when the configured rate is zero.
const unlimited = 1_000_000_000

// RateLimiter is a token bucket shared by every call on a session.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter.
//
// Parameters:
//   - requestsPerSecond: Sustained call rate. Zero disables throttling.
//   - burst: Calls that may be issued back to back before throttling applies.
//     Zero means the same as requestsPerSecond.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
		burst = unlimited
	}
	if burst == 0 {
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether a call may be issued now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Wait blocks until a token is available or the context is cancelled.
//
// Returns the context error if ctx ends before a token is available.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// SetLimit changes the sustained rate. Zero disables throttling.
func (r *RateLimiter) SetLimit(requestsPerSecond uint) {
	if requestsPerSecond == 0 {
		r.limiter.SetLimit(rate.Inf)
		return
	}
	r.limiter.SetLimit(rate.Limit(requestsPerSecond))
}

// Tokens returns the current number of available tokens.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
