package server

import "github.com/mcp-conductor/mcp/protocol"

// LoggingMessage is a log message sent from server to client via
// notifications/message.
type LoggingMessage struct {
	Level  protocol.LogLevel `json:"level"`
	Logger string            `json:"logger,omitempty"`
	Data   any               `json:"data"`
}
