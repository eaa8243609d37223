// Package server implements the server side of the Model Context
// Protocol: request dispatch, session handshake, and a declarative
// registry for tools, resources, and prompts.
//
// # Service
//
// Service is the contract a server answers requests with. Implement it
// directly for full control, or embed UnimplementedService and override
// only the operations you support:
//
//	type myService struct {
//	    server.UnimplementedService
//	}
//
//	func (s *myService) Initialize(ctx context.Context, info protocol.Implementation, caps protocol.ClientCapabilities) (protocol.ServerCapabilities, error) {
//	    return protocol.ServerCapabilities{}, nil
//	}
//
// # Registry
//
// Registry is a Service that answers tools/resources/prompts by looking
// them up in maps populated through a fluent builder API. It advertises
// only the capabilities it actually has content for:
//
//	reg := server.NewRegistry("my-server", "1.0.0", server.RegistryCapabilities{
//	    ToolsListChanged: true,
//	})
//
//	type SearchInput struct {
//	    Query string `json:"query" jsonschema:"required"`
//	}
//
//	reg.Tool("search").
//	    Description("Search for items").
//	    Handler(func(ctx context.Context, input SearchInput) ([]string, error) {
//	        return []string{"result1", "result2"}, nil
//	    })
//
//	reg.Resource("file://{path}").
//	    Name("File").
//	    MimeType("text/plain").
//	    Handler(func(ctx context.Context, uri string, params map[string]string) (*server.ResourceContent, error) {
//	        return &server.ResourceContent{URI: uri, Text: "content"}, nil
//	    })
//
//	reg.Prompt("greet").
//	    Argument("name", "Name to greet", true).
//	    Handler(func(ctx context.Context, args map[string]string) (*server.PromptResult, error) {
//	        return &server.PromptResult{
//	            Messages: []protocol.PromptMessage{
//	                {Role: "user", Content: protocol.TextContent{Type: "text", Text: "Hello, " + args["name"]}},
//	            },
//	        }, nil
//	    })
//
// # Server
//
// Server dispatches requests arriving on a transport to a Service,
// running the initialize/initialized handshake before handing the
// connection to the service:
//
//	srv := server.New(reg, server.WithImplementation("my-server", "1.0.0"))
//	conn, err := srv.Serve(ctx, t)
//
// Conn is the resulting per-connection handle: it lets a Service push
// notifications, request sampling or roots from the client, log at a
// severity level, and manage progress, cancellation, and resource
// subscriptions for that connection.
package server
