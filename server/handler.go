package server

import (
	"github.com/mcp-conductor/mcp/middleware"
)

// HandlerFunc is the signature for request handlers.
type HandlerFunc = middleware.HandlerFunc

// Middleware wraps a handler with additional behavior. Anything built
// against the middleware package (Recover, RequestID, Logging, ...)
// satisfies this directly.
type Middleware = middleware.Middleware

// Chain composes middleware in order, executing first middleware first.
func Chain(middlewares ...Middleware) Middleware {
	return middleware.Chain(middlewares...)
}
