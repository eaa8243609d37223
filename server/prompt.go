package server

import (
	"context"
	"fmt"

	"github.com/mcp-conductor/mcp/protocol"
)

// PromptResult is the result of getting a prompt.
type PromptResult struct {
	Description string                    `json:"description,omitempty"`
	Messages    []protocol.PromptMessage `json:"messages"`
}

// PromptHandler is the function signature for prompt handlers.
type PromptHandler func(ctx context.Context, args map[string]string) (*PromptResult, error)

// Prompt represents a prompt template exposed via MCP.
type Prompt struct {
	name        string
	description string
	arguments   []protocol.PromptArgument
	handler     PromptHandler
	annotations *PromptAnnotations
}

// PromptInfo represents metadata about a registered prompt.
type PromptInfo struct {
	Name        string
	Description string
	Arguments   []protocol.PromptArgument
	Annotations *PromptAnnotations
}

// PromptBuilder provides a fluent API for building prompts.
type PromptBuilder struct {
	prompt   *Prompt
	registry *Registry
	err      error
}

// Description sets the prompt description.
func (b *PromptBuilder) Description(desc string) *PromptBuilder {
	if b.err != nil {
		return b
	}
	b.prompt.description = desc
	return b
}

// Argument adds an argument to the prompt.
func (b *PromptBuilder) Argument(name, description string, required bool) *PromptBuilder {
	if b.err != nil {
		return b
	}
	b.prompt.arguments = append(b.prompt.arguments, protocol.PromptArgument{
		Name:        name,
		Description: description,
		Required:    required,
	})
	return b
}

// Handler sets the prompt handler function.
func (b *PromptBuilder) Handler(fn PromptHandler) *PromptBuilder {
	if b.err != nil {
		return b
	}

	b.prompt.handler = fn
	b.registry.registerPrompt(b.prompt)
	return b
}

// Get executes the prompt handler with the given arguments.
func (p *Prompt) Get(ctx context.Context, args map[string]string) (*PromptResult, error) {
	for _, arg := range p.arguments {
		if arg.Required {
			if args == nil || args[arg.Name] == "" {
				return nil, fmt.Errorf("missing required argument: %s", arg.Name)
			}
		}
	}

	return p.handler(ctx, args)
}
