package server

import (
	"context"

	"github.com/mcp-conductor/mcp/protocol"
)

// CompletionHandler handles completion requests for prompts or resources.
type CompletionHandler func(ctx context.Context, ref protocol.CompletionRef, argument protocol.CompletionArgument) (*protocol.CompletionResult, error)

// completionRegistry stores completion handlers.
type completionRegistry struct {
	promptHandlers   map[string]CompletionHandler // keyed by prompt name
	resourceHandlers map[string]CompletionHandler // keyed by URI template
	defaultHandler   CompletionHandler
}

// newCompletionRegistry creates a new completion registry.
func newCompletionRegistry() *completionRegistry {
	return &completionRegistry{
		promptHandlers:   make(map[string]CompletionHandler),
		resourceHandlers: make(map[string]CompletionHandler),
	}
}

// RegisterPromptCompletion registers a completion handler for a prompt.
func (r *completionRegistry) RegisterPromptCompletion(name string, handler CompletionHandler) {
	r.promptHandlers[name] = handler
}

// RegisterResourceCompletion registers a completion handler for a resource.
func (r *completionRegistry) RegisterResourceCompletion(uriTemplate string, handler CompletionHandler) {
	r.resourceHandlers[uriTemplate] = handler
}

// SetDefaultHandler sets a default handler for unmatched completions.
func (r *completionRegistry) SetDefaultHandler(handler CompletionHandler) {
	r.defaultHandler = handler
}

// Handle processes a completion request.
func (r *completionRegistry) Handle(ctx context.Context, ref protocol.CompletionRef, arg protocol.CompletionArgument) (*protocol.CompletionResult, error) {
	var handler CompletionHandler

	switch ref.Type {
	case "ref/prompt":
		handler = r.promptHandlers[ref.Name]
	case "ref/resource":
		handler = r.resourceHandlers[ref.URI]
		if handler == nil {
			for template, h := range r.resourceHandlers {
				if _, ok := matchURI(template, ref.URI); ok {
					handler = h
					break
				}
			}
		}
	}

	if handler == nil {
		handler = r.defaultHandler
	}

	if handler == nil {
		return &protocol.CompletionResult{Values: []string{}}, nil
	}

	result, err := handler(ctx, ref, arg)
	if err != nil {
		return nil, err
	}

	// MCP caps completion suggestions at 100 values per response.
	if len(result.Values) > 100 {
		result.Values = result.Values[:100]
		result.HasMore = true
	}

	return result, nil
}

// PromptCompletionBuilder builds a completion handler for one prompt.
type PromptCompletionBuilder struct {
	name     string
	registry *Registry
}

// Handler sets the completion handler and registers it.
func (b *PromptCompletionBuilder) Handler(fn CompletionHandler) {
	b.registry.RegisterPromptCompletion(b.name, fn)
}

// ResourceCompletionBuilder builds a completion handler for one resource template.
type ResourceCompletionBuilder struct {
	uriTemplate string
	registry    *Registry
}

// Handler sets the completion handler and registers it.
func (b *ResourceCompletionBuilder) Handler(fn CompletionHandler) {
	b.registry.RegisterResourceCompletion(b.uriTemplate, fn)
}
