// Package testutil provides testing utilities for MCP servers.
//
// This package helps developers write tests for their MCP servers by
// driving a real handshake and request/response cycle over an
// in-memory transport pipe, without needing a subprocess or a socket.
//
// Example usage:
//
//	func TestMyServer(t *testing.T) {
//	    reg := server.NewRegistry("test", "1.0.0", server.RegistryCapabilities{})
//	    reg.Tool("greet").Handler(func(ctx context.Context, input GreetInput) (string, error) {
//	        return "Hello, " + input.Name, nil
//	    })
//
//	    tc := testutil.NewTestClient(t, reg)
//	    defer tc.Close()
//
//	    result, err := tc.CallTool("greet", map[string]any{"name": "World"})
//	    require.NoError(t, err)
//	    assert.Equal(t, "Hello, World", result)
//	}
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mcp-conductor/mcp/protocol"
	"github.com/mcp-conductor/mcp/server"
	"github.com/mcp-conductor/mcp/session"
	"github.com/mcp-conductor/mcp/transport"
)

// TestClient drives a real MCP client/server exchange over an
// in-memory transport pipe.
type TestClient struct {
	t    testing.TB
	sess *session.Session
	srv  *server.Server
	conn *server.Conn
}

// NewTestClient creates a Server around service, connects a client
// session to it over an in-memory pipe, and completes the
// initialize/initialized handshake before returning.
func NewTestClient(t testing.TB, service server.Service, opts ...server.Option) *TestClient {
	t.Helper()

	clientTransport, serverTransport := transport.NewPipePair()
	srv := server.New(service, opts...)

	connCh := make(chan *server.Conn, 1)
	errCh := make(chan error, 1)
	go func() {
		conn, err := srv.Serve(context.Background(), serverTransport)
		if err != nil {
			errCh <- err
			return
		}
		connCh <- conn
	}()

	sess := session.New(clientTransport)
	if err := sess.Run(context.Background()); err != nil {
		t.Fatalf("run client session: %v", err)
	}
	t.Cleanup(func() { _ = sess.Stop(context.Background()) })

	tc := &TestClient{t: t, sess: sess, srv: srv}

	if _, err := tc.Initialize(); err != nil {
		t.Fatalf("failed to initialize server: %v", err)
	}
	if err := sess.Notify(context.Background(), protocol.MethodInitialized, nil); err != nil {
		t.Fatalf("failed to notify initialized: %v", err)
	}

	select {
	case conn := <-connCh:
		tc.conn = conn
	case err := <-errCh:
		t.Fatalf("serve: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handshake")
	}

	return tc
}

// Close stops the client session.
func (tc *TestClient) Close() {
	_ = tc.sess.Stop(context.Background())
}

// Conn returns the server-side connection handle, once the handshake
// has completed. Useful for driving server-initiated flows in tests
// (notifications, subscriptions) from the same test.
func (tc *TestClient) Conn() *server.Conn {
	return tc.conn
}

// SendRequest sends a raw request and decodes its result into dst.
// Pass a *json.RawMessage for dst to inspect the raw wire result.
func (tc *TestClient) SendRequest(method string, params any, dst any) error {
	tc.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	raw, err := tc.sess.Request(ctx, method, params)
	if err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// Initialize sends an initialize request to the server.
func (tc *TestClient) Initialize() (*protocol.InitializeResult, error) {
	tc.t.Helper()

	var result protocol.InitializeResult
	err := tc.SendRequest(protocol.MethodInitialize, protocol.InitializeParams{
		ProtocolVersion: protocol.MCPVersion,
		ClientInfo:      protocol.Implementation{Name: "test-client", Version: "1.0.0"},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListTools lists all available tools.
func (tc *TestClient) ListTools() ([]protocol.Tool, error) {
	tc.t.Helper()

	var result struct {
		Tools []protocol.Tool `json:"tools"`
	}
	if err := tc.SendRequest(protocol.MethodToolsList, nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool calls a tool with the given arguments and returns the text
// of its first content item.
func (tc *TestClient) CallTool(name string, args any) (string, error) {
	tc.t.Helper()

	result, err := tc.CallToolRaw(name, args)
	if err != nil {
		return "", err
	}
	if result.IsError {
		return "", fmt.Errorf("tool error: %v", result.Content)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("empty content array")
	}
	item, ok := result.Content[0].(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected content item type: %T", result.Content[0])
	}
	text, _ := item["text"].(string)
	return text, nil
}

// CallToolRaw calls a tool and returns the decoded tool result.
func (tc *TestClient) CallToolRaw(name string, args any) (*protocol.ToolResult, error) {
	tc.t.Helper()

	var result protocol.ToolResult
	err := tc.SendRequest(protocol.MethodToolsCall, map[string]any{
		"name":      name,
		"arguments": args,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources lists all available resources.
func (tc *TestClient) ListResources() ([]protocol.Resource, error) {
	tc.t.Helper()

	var result struct {
		Resources []protocol.Resource `json:"resources"`
	}
	if err := tc.SendRequest(protocol.MethodResourcesList, nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ReadResource reads a resource by URI and returns the text of its
// first content item.
func (tc *TestClient) ReadResource(uri string) (string, error) {
	tc.t.Helper()

	var result struct {
		Contents []protocol.ResourceContents `json:"contents"`
	}
	err := tc.SendRequest(protocol.MethodResourcesRead, map[string]any{"uri": uri}, &result)
	if err != nil {
		return "", err
	}
	if len(result.Contents) == 0 {
		return "", fmt.Errorf("empty contents array")
	}
	return result.Contents[0].Text, nil
}

// ListPrompts lists all available prompts.
func (tc *TestClient) ListPrompts() ([]protocol.Prompt, error) {
	tc.t.Helper()

	var result struct {
		Prompts []protocol.Prompt `json:"prompts"`
	}
	if err := tc.SendRequest(protocol.MethodPromptsList, nil, &result); err != nil {
		return nil, err
	}
	return result.Prompts, nil
}

// GetPromptResult is the decoded result of a prompts/get call.
type GetPromptResult struct {
	Description string                   `json:"description"`
	Messages    []protocol.PromptMessage `json:"messages"`
}

// GetPrompt gets a prompt by name with the given arguments.
func (tc *TestClient) GetPrompt(name string, args map[string]string) (*GetPromptResult, error) {
	tc.t.Helper()

	var result GetPromptResult
	err := tc.SendRequest(protocol.MethodPromptsGet, map[string]any{
		"name":      name,
		"arguments": args,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping sends a ping request.
func (tc *TestClient) Ping() error {
	tc.t.Helper()
	return tc.SendRequest(protocol.MethodPing, nil, nil)
}

// AssertToolExists asserts that a tool with the given name exists.
func (tc *TestClient) AssertToolExists(name string) {
	tc.t.Helper()

	tools, err := tc.ListTools()
	if err != nil {
		tc.t.Fatalf("ListTools failed: %v", err)
	}
	for _, tool := range tools {
		if tool.Name == name {
			return
		}
	}
	tc.t.Errorf("tool %q not found", name)
}

// AssertResourceExists asserts that a resource matching the given URI
// exists.
func (tc *TestClient) AssertResourceExists(uri string) {
	tc.t.Helper()

	resources, err := tc.ListResources()
	if err != nil {
		tc.t.Fatalf("ListResources failed: %v", err)
	}
	for _, res := range resources {
		if res.URI == uri {
			return
		}
	}
	tc.t.Errorf("resource %q not found", uri)
}

// AssertPromptExists asserts that a prompt with the given name exists.
func (tc *TestClient) AssertPromptExists(name string) {
	tc.t.Helper()

	prompts, err := tc.ListPrompts()
	if err != nil {
		tc.t.Fatalf("ListPrompts failed: %v", err)
	}
	for _, prompt := range prompts {
		if prompt.Name == name {
			return
		}
	}
	tc.t.Errorf("prompt %q not found", name)
}
