package middleware

import (
	"context"
	"time"

	"github.com/mcp-conductor/mcp/protocol"
)

// Timeout returns middleware that enforces a request deadline.
// The handler's context is cancelled once the duration elapses; the
// middleware returns whatever the handler returns, so a handler that
// does not watch ctx runs to completion.
func Timeout(d time.Duration) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}
