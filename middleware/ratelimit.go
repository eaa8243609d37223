package middleware

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"

	"github.com/mcp-conductor/mcp/protocol"
)

// RateLimitOption configures the rate limiter.
type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	keyFunc func(context.Context, *protocol.Request) string
	logger  Logger
}

// WithRateLimitKeyFunc sets a function to extract a rate limit key from
// the request and its context. This allows per-client, per-connection,
// or per-method rate limiting.
func WithRateLimitKeyFunc(fn func(context.Context, *protocol.Request) string) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.keyFunc = fn
	}
}

// WithRateLimitLogger sets the logger for rate limit events.
func WithRateLimitLogger(l Logger) RateLimitOption {
	return func(o *rateLimitConfig) {
		o.logger = l
	}
}

// RateLimit returns middleware that limits request rate using a token bucket algorithm.
// The rate is specified as requests per second.
// Burst allows short bursts above the rate limit.
func RateLimit(rate int, burst int, opts ...RateLimitOption) Middleware {
	cfg := &rateLimitConfig{
		keyFunc: func(_ context.Context, _ *protocol.Request) string { return "global" }, // Global by default
	}
	for _, opt := range opts {
		opt(cfg)
	}

	// Create rate limiter with fortify
	limiter := ratelimit.New(&ratelimit.Config{
		Rate:     rate,
		Burst:    burst,
		Interval: time.Second,
	})

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			key := cfg.keyFunc(ctx, req)

			if !limiter.Allow(ctx, key) {
				if cfg.logger != nil {
					cfg.logger.Warn("rate limit exceeded",
						Field{Key: "method", Value: req.Method},
						Field{Key: "key", Value: key},
					)
				}
				return nil, protocol.NewRateLimited("rate limit exceeded")
			}

			return next(ctx, req)
		}
	}
}

// RateLimitByMethod returns rate limiting middleware that applies per-method limits.
func RateLimitByMethod(rate int, burst int, opts ...RateLimitOption) Middleware {
	allOpts := append([]RateLimitOption{
		WithRateLimitKeyFunc(func(_ context.Context, req *protocol.Request) string {
			return req.Method
		}),
	}, opts...)
	return RateLimit(rate, burst, allOpts...)
}

// RateLimitByClient returns rate limiting middleware that applies per-client limits.
// The clientIDFunc should extract a unique client identifier from the request
// and its context.
func RateLimitByClient(rate int, burst int, clientIDFunc func(context.Context, *protocol.Request) string, opts ...RateLimitOption) Middleware {
	allOpts := append([]RateLimitOption{
		WithRateLimitKeyFunc(clientIDFunc),
	}, opts...)
	return RateLimit(rate, burst, allOpts...)
}

// RateLimitByConn returns rate limiting middleware that applies one limit
// per connection, keyed by the connection id the server attaches to the
// request's context in Server.dispatch. Requests with no connection id
// in context (e.g. a handler invoked directly in a test) share a single
// fallback bucket.
func RateLimitByConn(rate int, burst int, opts ...RateLimitOption) Middleware {
	allOpts := append([]RateLimitOption{
		WithRateLimitKeyFunc(func(ctx context.Context, _ *protocol.Request) string {
			if id := ConnIDFromContext(ctx); id != "" {
				return id
			}
			return "no-conn"
		}),
	}, opts...)
	return RateLimit(rate, burst, allOpts...)
}
