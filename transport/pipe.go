package transport

import (
	"context"
	"sync"

	"github.com/mcp-conductor/mcp/protocol"
)

// Pipe is an in-process Transport backed by buffered channels, used to
// connect a client and server directly in tests without a real socket.
type Pipe struct {
	out chan []byte
	in  chan []byte

	mu        sync.Mutex
	connected bool
	closeOnce sync.Once
}

// NewPipePair returns two connected Pipe transports: messages sent on a
// arrive on b's Receive, and vice versa.
func NewPipePair() (a, b *Pipe) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	a = &Pipe{out: ab, in: ba, connected: true}
	b = &Pipe{out: ba, in: ab, connected: true}
	return a, b
}

// Connect is a no-op; NewPipePair already establishes the connection.
func (p *Pipe) Connect(ctx context.Context) error { return nil }

// Send writes a message to the paired Pipe's Receive channel.
func (p *Pipe) Send(ctx context.Context, message []byte) error {
	if !p.IsConnected() {
		return protocol.ErrDisconnected
	}
	buf := make([]byte, len(message))
	copy(buf, message)
	select {
	case p.out <- buf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until a message arrives from the paired Pipe.
func (p *Pipe) Receive(ctx context.Context) ([]byte, error) {
	select {
	case msg, ok := <-p.in:
		if !ok {
			return nil, protocol.ErrDisconnected
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disconnect marks the pipe closed. It is idempotent.
func (p *Pipe) Disconnect(ctx context.Context) error {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.closeOnce.Do(func() { close(p.out) })
	return nil
}

// IsConnected reports whether the pipe has been disconnected.
func (p *Pipe) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}
