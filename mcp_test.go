package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/mcp-conductor/mcp/transport"
)

func dialTestServer(t *testing.T, srv *Server) *Client {
	t.Helper()

	clientTransport, serverTransport := transport.NewPipePair()

	connCh := make(chan *Conn, 1)
	go func() {
		conn, err := srv.Serve(context.Background(), serverTransport)
		if err != nil {
			t.Errorf("serve: %v", err)
			return
		}
		connCh <- conn
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, clientTransport, WithClientImplementation("test-client", "1.0.0"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	select {
	case <-connCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server to accept connection")
	}

	return c
}

func TestNewServer(t *testing.T) {
	reg := NewServer("test-server", "1.0.0", RegistryCapabilities{})
	if reg == nil {
		t.Fatal("expected registry to be created")
	}
}

func TestServeInitialize(t *testing.T) {
	reg := NewServer("test-server", "1.0.0", RegistryCapabilities{})
	srv := NewService(reg, WithImplementation("test-server", "1.0.0"))

	c := dialTestServer(t, srv)

	if c.ServerInfo().Name != "test-server" {
		t.Errorf("ServerInfo().Name = %q, want %q", c.ServerInfo().Name, "test-server")
	}
}

func TestServeToolsList(t *testing.T) {
	reg := NewServer("test-server", "1.0.0", RegistryCapabilities{})

	type SearchInput struct {
		Query string `json:"query"`
	}
	reg.Tool("search").
		Description("Search for items").
		Handler(func(input SearchInput) (string, error) {
			return "result", nil
		})

	srv := NewService(reg)
	c := dialTestServer(t, srv)

	tools, err := c.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "search" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
	if tools[0].Description != "Search for items" {
		t.Errorf("Description = %q, want %q", tools[0].Description, "Search for items")
	}
}

func TestServeToolsCall(t *testing.T) {
	reg := NewServer("test-server", "1.0.0", RegistryCapabilities{})

	type AddInput struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	reg.Tool("add").
		Description("Add two numbers").
		Handler(func(input AddInput) (int, error) {
			return input.A + input.B, nil
		})

	srv := NewService(reg)
	c := dialTestServer(t, srv)

	result, err := c.CallTool(context.Background(), "add", map[string]any{"a": 5, "b": 3})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %+v", result)
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content in result")
	}
}

func TestServePing(t *testing.T) {
	reg := NewServer("test-server", "1.0.0", RegistryCapabilities{})
	srv := NewService(reg)
	c := dialTestServer(t, srv)

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
