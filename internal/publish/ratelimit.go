package publish

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Transport with a token bucket. Publish blocks until a
// token is available or ctx is done; it never retries.
type RateLimited struct {
	next    Transport
	limiter *rate.Limiter
}

// NewRateLimited returns next unchanged when rps is not positive.
func NewRateLimited(next Transport, rps float64, burst int) Transport {
	if rps <= 0 {
		return next
	}
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Publish waits for a token and forwards to the wrapped transport.
func (r *RateLimited) Publish(ctx context.Context, topic, subject string, body []byte) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	return r.next.Publish(ctx, topic, subject, body)
}

// Close closes the wrapped transport.
func (r *RateLimited) Close() error {
	return r.next.Close()
}
