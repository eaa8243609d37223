package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/mcp-conductor/mcp/protocol"
)

// Stdio is a duplex Transport over a pair of byte streams, one line of
// JSON per message. It is used both for a server reading its own
// stdin/stdout and for a client that spawned a server subprocess.
type Stdio struct {
	in  *bufio.Scanner
	out io.Writer

	closer io.Closer // optional, e.g. the spawned process's stdin

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool

	lines   chan string
	readErr chan error
	started sync.Once
}

// NewStdio returns a transport reading from in and writing to out. If
// closer is non-nil it is closed by Disconnect (used to signal EOF to a
// subprocess).
func NewStdio(in io.Reader, out io.Writer, closer io.Closer) *Stdio {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &Stdio{
		in:      scanner,
		out:     out,
		closer:  closer,
		lines:   make(chan string),
		readErr: make(chan error, 1),
	}
}

// NewProcessStdio returns the transport a server uses over its own
// os.Stdin/os.Stdout.
func NewProcessStdio() *Stdio {
	return NewStdio(os.Stdin, os.Stdout, nil)
}

// SpawnStdio starts command as a subprocess and returns a Stdio
// transport wired to its stdin/stdout. The subprocess's stderr is
// discarded; use SpawnStdioWithStderr to capture it. Disconnect closes
// the subprocess's stdin and waits for it to exit.
func SpawnStdio(ctx context.Context, command string, args ...string) (*Stdio, error) {
	return spawnStdio(ctx, io.Discard, command, args...)
}

// SpawnStdioWithStderr is like SpawnStdio but copies the subprocess's
// stderr to stderr.
func SpawnStdioWithStderr(ctx context.Context, stderr io.Writer, command string, args ...string) (*Stdio, error) {
	return spawnStdio(ctx, stderr, command, args...)
}

func spawnStdio(ctx context.Context, stderr io.Writer, command string, args ...string) (*Stdio, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

	return NewStdio(stdout, stdin, &processCloser{cmd: cmd, stdin: stdin}), nil
}

// processCloser closes a spawned subprocess's stdin and waits for it
// to exit when the transport disconnects.
type processCloser struct {
	cmd   *exec.Cmd
	stdin io.Closer
}

func (p *processCloser) Close() error {
	_ = p.stdin.Close()
	return p.cmd.Wait()
}

// Connect starts the background line reader.
func (s *Stdio) Connect(ctx context.Context) error {
	s.started.Do(func() {
		go s.readLines()
	})
	return nil
}

func (s *Stdio) readLines() {
	for s.in.Scan() {
		s.lines <- s.in.Text()
	}
	if err := s.in.Err(); err != nil {
		s.readErr <- err
	} else {
		s.readErr <- io.EOF
	}
	close(s.lines)
}

// Send writes one JSON line.
func (s *Stdio) Send(ctx context.Context, message []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if !s.IsConnected() {
		return protocol.ErrDisconnected
	}
	if _, err := s.out.Write(message); err != nil {
		return err
	}
	_, err := s.out.Write([]byte("\n"))
	return err
}

// Receive returns the next line read from the input stream.
func (s *Stdio) Receive(ctx context.Context) ([]byte, error) {
	select {
	case line, ok := <-s.lines:
		if !ok {
			return nil, io.EOF
		}
		return []byte(line), nil
	case err := <-s.readErr:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Disconnect marks the transport closed and closes the optional closer
// (e.g. a subprocess's stdin) to signal EOF.
func (s *Stdio) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// IsConnected reports whether Disconnect has not yet been called.
func (s *Stdio) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}
