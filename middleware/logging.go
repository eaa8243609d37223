package middleware

import (
	"context"
	"time"

	"github.com/mcp-conductor/mcp/protocol"
)

// Logger is the interface for structured logging.
type Logger interface {
	Info(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value any
}

// F creates a new Field with the given key and value.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

const connIDKey contextKey = "connID"

// ContextWithConnID returns a new context carrying the id of the
// connection a request arrived on. The server package calls this in
// Server.dispatch so middleware can log or rate-limit per connection
// without importing server (which would create an import cycle, since
// server already imports middleware).
func ContextWithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey, id)
}

// ConnIDFromContext returns the connection id set by ContextWithConnID,
// or empty string if none is present.
func ConnIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(connIDKey).(string)
	return id
}

// Logging returns middleware that logs request details.
// Successful requests are logged at info level, errors at error level.
func Logging(logger Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
			start := time.Now()

			resp, err := next(ctx, req)

			duration := time.Since(start)

			// Build fields
			fields := []Field{
				F("method", req.Method),
				F("duration", duration),
			}

			// Add request ID if present
			if requestID := RequestIDFromContext(ctx); requestID != "" {
				fields = append(fields, F("request_id", requestID))
			}

			// Add connection ID if present
			if connID := ConnIDFromContext(ctx); connID != "" {
				fields = append(fields, F("conn_id", connID))
			}

			if err != nil {
				fields = append(fields, F("error", err.Error()))
				logger.Error("request failed", fields...)
			} else {
				logger.Info("request completed", fields...)
			}

			return resp, err
		}
	}
}

// NopLogger is a logger that discards all log entries.
type NopLogger struct{}

func (NopLogger) Info(msg string, fields ...Field)  {}
func (NopLogger) Error(msg string, fields ...Field) {}
func (NopLogger) Debug(msg string, fields ...Field) {}
func (NopLogger) Warn(msg string, fields ...Field)  {}
