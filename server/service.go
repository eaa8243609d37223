package server

import (
	"context"
	"encoding/json"

	"github.com/mcp-conductor/mcp/protocol"
)

// Service implements the server side of the MCP protocol: the actual
// resources, prompts, and tools a server exposes. A Server dispatches
// each inbound request to the matching Service method and handles the
// JSON-RPC envelope, handshake, and transport concerns itself.
//
// Embed UnimplementedService to satisfy the interface without writing
// every method; only override what the server actually supports.
type Service interface {
	// Initialize is called once per connection after the client's
	// initialize request arrives. It returns the capabilities this
	// service supports for that connection.
	Initialize(ctx context.Context, clientInfo protocol.Implementation, caps protocol.ClientCapabilities) (protocol.ServerCapabilities, error)

	ListResources(ctx context.Context, cursor string) (resources []protocol.Resource, nextCursor string, err error)
	ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error)
	Subscribe(ctx context.Context, uri string) error
	Unsubscribe(ctx context.Context, uri string) error
	ListResourceTemplates(ctx context.Context) ([]protocol.ResourceTemplate, error)

	ListPrompts(ctx context.Context, cursor string) (prompts []protocol.Prompt, nextCursor string, err error)
	GetPrompt(ctx context.Context, name string, args map[string]string) (description string, messages []protocol.PromptMessage, err error)

	ListTools(ctx context.Context, cursor string) (tools []protocol.Tool, nextCursor string, err error)
	CallTool(ctx context.Context, name string, arguments json.RawMessage) (*protocol.ToolResult, error)

	SetLogLevel(ctx context.Context, level protocol.LogLevel) error
	Complete(ctx context.Context, ref protocol.CompletionRef, argument protocol.CompletionArgument) (*protocol.CompletionResult, error)

	// ClientConnected is called after the initialize handshake completes.
	ClientConnected(ctx context.Context, conn *Conn)
	// ClientDisconnected is called by Server.Close for each connection it
	// closes; a client that disconnects on its own does not trigger it.
	ClientDisconnected(ctx context.Context, conn *Conn)
	// RootsUpdated is called when a client sends notifications/roots/list_changed
	// and the server has fetched the new root list.
	RootsUpdated(ctx context.Context, conn *Conn, roots []protocol.Root)
}

// UnimplementedService provides no-op/not-supported defaults for every
// Service method. Embed it in a concrete service and override only the
// operations that service supports.
type UnimplementedService struct{}

func (UnimplementedService) Initialize(context.Context, protocol.Implementation, protocol.ClientCapabilities) (protocol.ServerCapabilities, error) {
	return protocol.ServerCapabilities{}, nil
}

func (UnimplementedService) ListResources(context.Context, string) ([]protocol.Resource, string, error) {
	return nil, "", protocol.NewMethodNotFound(protocol.MethodResourcesList)
}

func (UnimplementedService) ReadResource(context.Context, string) ([]protocol.ResourceContents, error) {
	return nil, protocol.NewMethodNotFound(protocol.MethodResourcesRead)
}

func (UnimplementedService) Subscribe(context.Context, string) error {
	return protocol.NewMethodNotFound(protocol.MethodResourcesSubscribe)
}

func (UnimplementedService) Unsubscribe(context.Context, string) error {
	return protocol.NewMethodNotFound(protocol.MethodResourcesUnsubscribe)
}

func (UnimplementedService) ListResourceTemplates(context.Context) ([]protocol.ResourceTemplate, error) {
	return nil, nil
}

func (UnimplementedService) ListPrompts(context.Context, string) ([]protocol.Prompt, string, error) {
	return nil, "", protocol.NewMethodNotFound(protocol.MethodPromptsList)
}

func (UnimplementedService) GetPrompt(context.Context, string, map[string]string) (string, []protocol.PromptMessage, error) {
	return "", nil, protocol.NewMethodNotFound(protocol.MethodPromptsGet)
}

func (UnimplementedService) ListTools(context.Context, string) ([]protocol.Tool, string, error) {
	return nil, "", protocol.NewMethodNotFound(protocol.MethodToolsList)
}

func (UnimplementedService) CallTool(context.Context, string, json.RawMessage) (*protocol.ToolResult, error) {
	return nil, protocol.NewMethodNotFound(protocol.MethodToolsCall)
}

func (UnimplementedService) SetLogLevel(context.Context, protocol.LogLevel) error {
	return protocol.NewMethodNotFound(protocol.MethodLoggingSetLevel)
}

func (UnimplementedService) Complete(context.Context, protocol.CompletionRef, protocol.CompletionArgument) (*protocol.CompletionResult, error) {
	return &protocol.CompletionResult{Values: []string{}}, nil
}

func (UnimplementedService) ClientConnected(context.Context, *Conn)              {}
func (UnimplementedService) ClientDisconnected(context.Context, *Conn)           {}
func (UnimplementedService) RootsUpdated(context.Context, *Conn, []protocol.Root) {}
