package testutil_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mcp-conductor/mcp/protocol"
	"github.com/mcp-conductor/mcp/server"
	"github.com/mcp-conductor/mcp/testutil"
)

func TestTestClient_Tools(t *testing.T) {
	reg := server.NewRegistry("test-server", "1.0.0", server.RegistryCapabilities{})

	type GreetInput struct {
		Name string `json:"name" jsonschema:"required"`
	}

	reg.Tool("greet").
		Description("Greet someone").
		Handler(func(ctx context.Context, input GreetInput) (string, error) {
			return "Hello, " + input.Name + "!", nil
		})

	reg.Tool("error-tool").
		Description("Always fails").
		Handler(func(ctx context.Context, input struct{}) (string, error) {
			return "", errors.New("intentional error")
		})

	client := testutil.NewTestClient(t, reg)

	t.Run("Initialize", func(t *testing.T) {
		result, err := client.Initialize()
		if err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}

		if result.ServerInfo.Name != "test-server" {
			t.Errorf("expected name 'test-server', got %v", result.ServerInfo.Name)
		}
	})

	t.Run("ListTools", func(t *testing.T) {
		tools, err := client.ListTools()
		if err != nil {
			t.Fatalf("ListTools failed: %v", err)
		}

		if len(tools) != 2 {
			t.Errorf("expected 2 tools, got %d", len(tools))
		}

		found := false
		for _, tool := range tools {
			if tool.Name == "greet" {
				found = true
				if tool.Description != "Greet someone" {
					t.Errorf("expected description 'Greet someone', got %v", tool.Description)
				}
				break
			}
		}
		if !found {
			t.Error("greet tool not found")
		}
	})

	t.Run("CallTool success", func(t *testing.T) {
		result, err := client.CallTool("greet", map[string]string{"name": "World"})
		if err != nil {
			t.Fatalf("CallTool failed: %v", err)
		}

		if result != "Hello, World!" {
			t.Errorf("expected 'Hello, World!', got %q", result)
		}
	})

	t.Run("CallTool error", func(t *testing.T) {
		_, err := client.CallTool("error-tool", struct{}{})
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("CallTool not found", func(t *testing.T) {
		_, err := client.CallTool("nonexistent", nil)
		if err == nil {
			t.Fatal("expected error for nonexistent tool")
		}
	})

	t.Run("Ping", func(t *testing.T) {
		err := client.Ping()
		if err != nil {
			t.Fatalf("Ping failed: %v", err)
		}
	})
}

func TestTestClient_Resources(t *testing.T) {
	reg := server.NewRegistry("test-server", "1.0.0", server.RegistryCapabilities{})

	reg.Resource("file:///{path}").
		Name("file").
		Description("Read files").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*server.ResourceContent, error) {
			return &server.ResourceContent{
				URI:      uri,
				MimeType: "text/plain",
				Text:     "content of " + uri,
			}, nil
		})

	client := testutil.NewTestClient(t, reg)

	t.Run("ListResources", func(t *testing.T) {
		resources, err := client.ListResources()
		if err != nil {
			t.Fatalf("ListResources failed: %v", err)
		}

		if len(resources) != 1 {
			t.Errorf("expected 1 resource, got %d", len(resources))
		}
	})

	t.Run("ReadResource", func(t *testing.T) {
		content, err := client.ReadResource("file:///test.txt")
		if err != nil {
			t.Fatalf("ReadResource failed: %v", err)
		}

		expected := "content of file:///test.txt"
		if content != expected {
			t.Errorf("expected %q, got %q", expected, content)
		}
	})

	t.Run("ReadResource not found", func(t *testing.T) {
		_, err := client.ReadResource("unknown://resource")
		if err == nil {
			t.Fatal("expected error for unknown resource")
		}
	})
}

func TestTestClient_Prompts(t *testing.T) {
	reg := server.NewRegistry("test-server", "1.0.0", server.RegistryCapabilities{})

	reg.Prompt("summarize").
		Description("Summarize content").
		Argument("content", "Content to summarize", true).
		Handler(func(ctx context.Context, args map[string]string) (*server.PromptResult, error) {
			return &server.PromptResult{
				Description: "Summary prompt",
				Messages: []protocol.PromptMessage{
					{
						Role: "user",
						Content: protocol.TextContent{
							Type: "text",
							Text: "Please summarize: " + args["content"],
						},
					},
				},
			}, nil
		})

	client := testutil.NewTestClient(t, reg)

	t.Run("ListPrompts", func(t *testing.T) {
		prompts, err := client.ListPrompts()
		if err != nil {
			t.Fatalf("ListPrompts failed: %v", err)
		}

		if len(prompts) != 1 {
			t.Errorf("expected 1 prompt, got %d", len(prompts))
		}

		if prompts[0].Name != "summarize" {
			t.Errorf("expected 'summarize', got %v", prompts[0].Name)
		}
	})

	t.Run("GetPrompt", func(t *testing.T) {
		result, err := client.GetPrompt("summarize", map[string]string{"content": "test text"})
		if err != nil {
			t.Fatalf("GetPrompt failed: %v", err)
		}

		if result.Description != "Summary prompt" {
			t.Errorf("expected 'Summary prompt', got %v", result.Description)
		}

		if len(result.Messages) != 1 {
			t.Errorf("expected 1 message, got %d", len(result.Messages))
		}
	})

	t.Run("GetPrompt not found", func(t *testing.T) {
		_, err := client.GetPrompt("nonexistent", nil)
		if err == nil {
			t.Fatal("expected error for nonexistent prompt")
		}
	})
}

func TestAssertToolExists(t *testing.T) {
	reg := server.NewRegistry("test-server", "1.0.0", server.RegistryCapabilities{})

	reg.Tool("existing-tool").
		Description("Exists").
		Handler(func(ctx context.Context, input struct{}) (string, error) {
			return "ok", nil
		})

	client := testutil.NewTestClient(t, reg)

	client.AssertToolExists("existing-tool")
}

func TestAssertResourceExists(t *testing.T) {
	reg := server.NewRegistry("test-server", "1.0.0", server.RegistryCapabilities{})

	reg.Resource("test://resource").
		Name("test").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*server.ResourceContent, error) {
			return &server.ResourceContent{}, nil
		})

	client := testutil.NewTestClient(t, reg)

	client.AssertResourceExists("test://resource")
}

func TestAssertPromptExists(t *testing.T) {
	reg := server.NewRegistry("test-server", "1.0.0", server.RegistryCapabilities{})

	reg.Prompt("test-prompt").
		Description("Test").
		Handler(func(ctx context.Context, args map[string]string) (*server.PromptResult, error) {
			return &server.PromptResult{}, nil
		})

	client := testutil.NewTestClient(t, reg)

	client.AssertPromptExists("test-prompt")
}
