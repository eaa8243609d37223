// Package e2e provides end-to-end compliance tests for the MCP implementation,
// driving a real Server over an in-memory transport pipe one raw JSON-RPC
// envelope at a time so the wire format itself is under test, not just the
// typed client helpers.
package e2e

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mcp-conductor/mcp"
	"github.com/mcp-conductor/mcp/protocol"
	"github.com/mcp-conductor/mcp/transport"
)

// harness drives one raw JSON-RPC request/response cycle at a time
// against a live Server, over an in-memory pipe.
type harness struct {
	t *testing.T
	c *transport.Pipe
}

func newHarness(t *testing.T, reg *mcp.Registry) *harness {
	t.Helper()

	clientSide, serverSide := transport.NewPipePair()
	srv := mcp.NewService(reg, mcp.WithImplementation("compliance-test", "1.0.0"))

	go func() {
		_, _ = srv.Serve(context.Background(), serverSide)
	}()

	h := &harness{t: t, c: clientSide}

	initResp := h.send(&protocol.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`0`),
		Method:  protocol.MethodInitialize,
		Params: mustMarshal(t, protocol.InitializeParams{
			ProtocolVersion: protocol.MCPVersion,
			ClientInfo:      protocol.Implementation{Name: "compliance-client", Version: "1.0.0"},
		}),
	})
	if initResp.Error != nil {
		t.Fatalf("initialize failed: %v", initResp.Error)
	}
	h.notify(protocol.MethodInitialized, nil)

	return h
}

func (h *harness) send(req *protocol.Request) *protocol.Response {
	h.t.Helper()

	data, err := json.Marshal(req)
	if err != nil {
		h.t.Fatalf("marshal request: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.c.Send(ctx, data); err != nil {
		h.t.Fatalf("send: %v", err)
	}

	raw, err := h.c.Receive(ctx)
	if err != nil {
		h.t.Fatalf("receive: %v", err)
	}

	var resp protocol.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		h.t.Fatalf("unmarshal response: %v (raw: %s)", err, raw)
	}
	return &resp
}

func (h *harness) notify(method string, params any) {
	h.t.Helper()

	notification := struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{"2.0", method, params}

	data, err := json.Marshal(notification)
	if err != nil {
		h.t.Fatalf("marshal notification: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.c.Send(ctx, data); err != nil {
		h.t.Fatalf("send notification: %v", err)
	}
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func decodeResult(t *testing.T, resp *protocol.Response, v any) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}
	if err := json.Unmarshal(resp.Result, v); err != nil {
		t.Fatalf("decode result: %v (raw: %s)", err, resp.Result)
	}
}

// TestMCPCompliance_Initialize tests the initialize handshake.
func TestMCPCompliance_Initialize(t *testing.T) {
	reg := mcp.NewServer("compliance-test", "1.0.0", mcp.RegistryCapabilities{})
	reg.Tool("noop").Handler(func(input struct{}) (string, error) { return "", nil })
	reg.Resource("file://{path}").Name("File").Handler(
		func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			return &mcp.ResourceContent{URI: uri}, nil
		})
	reg.Prompt("greet").Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
		return &mcp.PromptResult{}, nil
	})

	h := newHarness(t, reg)

	t.Run("returns correct protocol version", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodInitialize,
			Params: mustMarshal(t, protocol.InitializeParams{
				ProtocolVersion: protocol.MCPVersion,
				ClientInfo:      protocol.Implementation{Name: "test-client", Version: "1.0.0"},
			}),
		})

		var result protocol.InitializeResult
		decodeResult(t, resp, &result)
		if result.ProtocolVersion != protocol.MCPVersion {
			t.Errorf("protocolVersion = %v, want %v", result.ProtocolVersion, protocol.MCPVersion)
		}
	})

	t.Run("returns server info", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodInitialize,
			Params: mustMarshal(t, protocol.InitializeParams{
				ProtocolVersion: protocol.MCPVersion,
				ClientInfo:      protocol.Implementation{Name: "test-client", Version: "1.0.0"},
			}),
		})

		var result protocol.InitializeResult
		decodeResult(t, resp, &result)
		if result.ServerInfo.Name != "compliance-test" {
			t.Errorf("serverInfo.name = %v, want %q", result.ServerInfo.Name, "compliance-test")
		}
		if result.ServerInfo.Version != "1.0.0" {
			t.Errorf("serverInfo.version = %v, want %q", result.ServerInfo.Version, "1.0.0")
		}
	})

	t.Run("returns capabilities for registered content", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodInitialize,
			Params: mustMarshal(t, protocol.InitializeParams{
				ProtocolVersion: protocol.MCPVersion,
				ClientInfo:      protocol.Implementation{Name: "test-client", Version: "1.0.0"},
			}),
		})

		var result protocol.InitializeResult
		decodeResult(t, resp, &result)
		if result.Capabilities.Tools == nil {
			t.Error("expected tools capability")
		}
		if result.Capabilities.Resources == nil {
			t.Error("expected resources capability")
		}
		if result.Capabilities.Prompts == nil {
			t.Error("expected prompts capability")
		}
	})
}

// TestMCPCompliance_Tools tests tool operations.
func TestMCPCompliance_Tools(t *testing.T) {
	type AddInput struct {
		A int `json:"a"`
		B int `json:"b"`
	}

	reg := mcp.NewServer("compliance-test", "1.0.0", mcp.RegistryCapabilities{})
	reg.Tool("add").
		Description("Add two numbers").
		Handler(func(input AddInput) (int, error) {
			return input.A + input.B, nil
		})

	h := newHarness(t, reg)

	t.Run("tools/list returns registered tools", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodToolsList,
		})

		var result struct {
			Tools []protocol.Tool `json:"tools"`
		}
		decodeResult(t, resp, &result)

		if len(result.Tools) != 1 {
			t.Fatalf("expected 1 tool, got %d", len(result.Tools))
		}
		if result.Tools[0].Name != "add" {
			t.Errorf("tool.name = %v, want %q", result.Tools[0].Name, "add")
		}
		if result.Tools[0].Description != "Add two numbers" {
			t.Errorf("tool.description = %v, want %q", result.Tools[0].Description, "Add two numbers")
		}
		if result.Tools[0].InputSchema == nil {
			t.Error("expected inputSchema")
		}
	})

	t.Run("tools/call executes tool", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodToolsCall,
			Params:  json.RawMessage(`{"name":"add","arguments":{"a":2,"b":3}}`),
		})

		var result protocol.ToolResult
		decodeResult(t, resp, &result)

		if len(result.Content) != 1 {
			t.Fatalf("expected 1 content item, got %d", len(result.Content))
		}
		item, ok := result.Content[0].(map[string]any)
		if !ok {
			t.Fatalf("unexpected content item type: %T", result.Content[0])
		}
		if item["type"] != "text" {
			t.Errorf("content.type = %v, want %q", item["type"], "text")
		}
		if item["text"] != "5" {
			t.Errorf("content.text = %v, want %q", item["text"], "5")
		}
	})

	t.Run("tools/call returns error for unknown tool", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodToolsCall,
			Params:  json.RawMessage(`{"name":"unknown","arguments":{}}`),
		})

		if resp.Error == nil {
			t.Fatal("expected error for unknown tool")
		}
		if resp.Error.Code != protocol.CodeInvalidParams {
			t.Errorf("error.code = %d, want %d", resp.Error.Code, protocol.CodeInvalidParams)
		}
	})
}

// TestMCPCompliance_Resources tests resource operations.
func TestMCPCompliance_Resources(t *testing.T) {
	reg := mcp.NewServer("compliance-test", "1.0.0", mcp.RegistryCapabilities{})
	reg.Resource("file://{path}").
		Name("File").
		Description("Read a file").
		MimeType("text/plain").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			return &mcp.ResourceContent{
				URI:      uri,
				MimeType: "text/plain",
				Text:     "Content of " + params["path"],
			}, nil
		})

	h := newHarness(t, reg)

	t.Run("resources/list returns registered resources", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodResourcesList,
		})

		var result struct {
			Resources []protocol.Resource `json:"resources"`
		}
		decodeResult(t, resp, &result)

		if len(result.Resources) != 1 {
			t.Fatalf("expected 1 resource, got %d", len(result.Resources))
		}
		if result.Resources[0].Name != "File" {
			t.Errorf("resource.name = %v, want %q", result.Resources[0].Name, "File")
		}
	})

	t.Run("resources/read returns resource content", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodResourcesRead,
			Params:  json.RawMessage(`{"uri":"file://test.txt"}`),
		})

		var result struct {
			Contents []protocol.ResourceContents `json:"contents"`
		}
		decodeResult(t, resp, &result)

		if len(result.Contents) != 1 {
			t.Fatalf("expected 1 content item, got %d", len(result.Contents))
		}
		if result.Contents[0].URI != "file://test.txt" {
			t.Errorf("content.uri = %v, want %q", result.Contents[0].URI, "file://test.txt")
		}
		if result.Contents[0].Text != "Content of test.txt" {
			t.Errorf("content.text = %v, want %q", result.Contents[0].Text, "Content of test.txt")
		}
	})

	t.Run("resources/read returns error for unknown resource", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodResourcesRead,
			Params:  json.RawMessage(`{"uri":"unknown://resource"}`),
		})

		if resp.Error == nil {
			t.Fatal("expected error for unknown resource")
		}
		if resp.Error.Code != protocol.CodeInvalidParams {
			t.Errorf("error.code = %d, want %d", resp.Error.Code, protocol.CodeInvalidParams)
		}
	})
}

// TestMCPCompliance_Prompts tests prompt operations.
func TestMCPCompliance_Prompts(t *testing.T) {
	reg := mcp.NewServer("compliance-test", "1.0.0", mcp.RegistryCapabilities{})
	reg.Prompt("greet").
		Description("Generate a greeting").
		Argument("name", "Name to greet", true).
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Messages: []protocol.PromptMessage{
					{
						Role: "user",
						Content: protocol.TextContent{
							Type: "text",
							Text: "Hello, " + args["name"] + "!",
						},
					},
				},
			}, nil
		})

	h := newHarness(t, reg)

	t.Run("prompts/list returns registered prompts", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodPromptsList,
		})

		var result struct {
			Prompts []protocol.Prompt `json:"prompts"`
		}
		decodeResult(t, resp, &result)

		if len(result.Prompts) != 1 {
			t.Fatalf("expected 1 prompt, got %d", len(result.Prompts))
		}
		if result.Prompts[0].Name != "greet" {
			t.Errorf("prompt.name = %v, want %q", result.Prompts[0].Name, "greet")
		}
	})

	t.Run("prompts/get returns prompt messages", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodPromptsGet,
			Params:  json.RawMessage(`{"name":"greet","arguments":{"name":"World"}}`),
		})

		var result struct {
			Messages []protocol.PromptMessage `json:"messages"`
		}
		decodeResult(t, resp, &result)

		if len(result.Messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(result.Messages))
		}
		if result.Messages[0].Role != "user" {
			t.Errorf("message.role = %v, want %q", result.Messages[0].Role, "user")
		}

		content, ok := result.Messages[0].Content.(map[string]any)
		if !ok {
			t.Fatalf("unexpected content type: %T", result.Messages[0].Content)
		}
		if content["text"] != "Hello, World!" {
			t.Errorf("content.text = %v, want %q", content["text"], "Hello, World!")
		}
	})

	t.Run("prompts/get validates required arguments", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodPromptsGet,
			Params:  json.RawMessage(`{"name":"greet","arguments":{}}`),
		})

		if resp.Error == nil {
			t.Fatal("expected error for missing required argument")
		}
	})
}

// TestMCPCompliance_Ping tests the ping operation.
func TestMCPCompliance_Ping(t *testing.T) {
	reg := mcp.NewServer("compliance-test", "1.0.0", mcp.RegistryCapabilities{})
	h := newHarness(t, reg)

	t.Run("ping returns empty response", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodPing,
		})

		var result map[string]any
		decodeResult(t, resp, &result)
		if len(result) != 0 {
			t.Errorf("expected empty response, got %v", result)
		}
	})
}

// TestMCPCompliance_Errors tests error handling.
func TestMCPCompliance_Errors(t *testing.T) {
	reg := mcp.NewServer("compliance-test", "1.0.0", mcp.RegistryCapabilities{})
	reg.Tool("test").Handler(func(input struct{ X int }) (int, error) { return input.X, nil })
	h := newHarness(t, reg)

	t.Run("unknown method returns MethodNotFound", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  "unknown/method",
		})

		if resp.Error == nil {
			t.Fatal("expected error for unknown method")
		}
		if resp.Error.Code != protocol.CodeMethodNotFound {
			t.Errorf("error.code = %d, want %d", resp.Error.Code, protocol.CodeMethodNotFound)
		}
	})

	t.Run("invalid params returns InvalidParams", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodToolsCall,
			Params:  json.RawMessage(`{"name":"test","arguments":"invalid"}`),
		})

		if resp.Error == nil {
			t.Fatal("expected error for invalid params")
		}
		if resp.Error.Code != protocol.CodeInvalidParams {
			t.Errorf("error.code = %d, want %d", resp.Error.Code, protocol.CodeInvalidParams)
		}
	})
}

// TestMCPCompliance_JSONRPC tests JSON-RPC 2.0 compliance.
func TestMCPCompliance_JSONRPC(t *testing.T) {
	reg := mcp.NewServer("compliance-test", "1.0.0", mcp.RegistryCapabilities{})
	h := newHarness(t, reg)

	t.Run("response includes jsonrpc version", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`1`),
			Method:  protocol.MethodPing,
		})

		if resp.JSONRPC != "2.0" {
			t.Errorf("jsonrpc = %q, want %q", resp.JSONRPC, "2.0")
		}
	})

	t.Run("response includes request ID", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`"test-id-123"`),
			Method:  protocol.MethodPing,
		})

		if string(resp.ID) != `"test-id-123"` {
			t.Errorf("id = %s, want %q", resp.ID, "test-id-123")
		}
	})

	t.Run("supports numeric request ID", func(t *testing.T) {
		resp := h.send(&protocol.Request{
			JSONRPC: "2.0",
			ID:      json.RawMessage(`42`),
			Method:  protocol.MethodPing,
		})

		if string(resp.ID) != "42" {
			t.Errorf("id = %s, want %q", resp.ID, "42")
		}
	})
}
