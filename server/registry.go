package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mcp-conductor/mcp/protocol"
)

// RegistryCapabilities declares which list-changed notifications a
// Registry advertises to clients during initialize.
type RegistryCapabilities struct {
	ResourcesListChanged bool
	ResourcesSubscribe   bool
	PromptsListChanged   bool
	ToolsListChanged     bool
}

// Registry is a declarative Service: tools, resources, and prompts are
// registered ahead of time with a fluent builder API, and Registry
// answers every Service method by looking them up. Embed it directly
// in a New(...) server, or embed UnimplementedService and delegate to
// a Registry only for the operations you want built declaratively.
type Registry struct {
	UnimplementedService

	mu   sync.RWMutex
	info protocol.Implementation
	caps RegistryCapabilities

	tools       map[string]*Tool
	resources   map[string]*Resource
	prompts     map[string]*Prompt
	completions *completionRegistry
}

// NewRegistry creates an empty Registry advertising the given server
// identity to clients.
func NewRegistry(name, version string, caps RegistryCapabilities) *Registry {
	return &Registry{
		info:      protocol.Implementation{Name: name, Version: version},
		caps:      caps,
		tools:     make(map[string]*Tool),
		resources: make(map[string]*Resource),
		prompts:   make(map[string]*Prompt),
	}
}

func (r *Registry) Initialize(ctx context.Context, clientInfo protocol.Implementation, clientCaps protocol.ClientCapabilities) (protocol.ServerCapabilities, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var caps protocol.ServerCapabilities
	if len(r.tools) > 0 {
		caps.Tools = &protocol.ListChangedCapability{ListChanged: r.caps.ToolsListChanged}
	}
	if len(r.prompts) > 0 {
		caps.Prompts = &protocol.ListChangedCapability{ListChanged: r.caps.PromptsListChanged}
	}
	if len(r.resources) > 0 {
		caps.Resources = &protocol.ResourcesCapability{
			Subscribe:   r.caps.ResourcesSubscribe,
			ListChanged: r.caps.ResourcesListChanged,
		}
	}
	if r.completions != nil {
		caps.Completion = &struct{}{}
	}
	return caps, nil
}

// Tool starts building a new tool with the given name.
func (r *Registry) Tool(name string) *ToolBuilder {
	return &ToolBuilder{tool: &Tool{name: name}, registry: r}
}

// Tools returns info about all registered tools.
func (r *Registry) Tools() []ToolInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, ToolInfo{Name: t.name, Description: t.description, InputSchema: t.inputSchema, Annotations: t.annotations})
	}
	return result
}

func (r *Registry) registerTool(t *Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.name] = t
}

// GetTool retrieves a tool by name.
func (r *Registry) GetTool(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) ListTools(ctx context.Context, cursor string) ([]protocol.Tool, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]protocol.Tool, 0, len(r.tools))
	for _, t := range r.tools {
		result = append(result, protocol.Tool{Name: t.name, Description: t.description, InputSchema: t.inputSchema, Annotations: t.annotations.toProtocol()})
	}
	return result, "", nil
}

func (r *Registry) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*protocol.ToolResult, error) {
	tool, ok := r.GetTool(name)
	if !ok {
		return nil, protocol.NewInvalidParams(fmt.Sprintf("unknown tool: %s", name))
	}
	result, err := tool.Execute(ctx, arguments)
	if err != nil {
		if mcpErr, ok := err.(*protocol.Error); ok {
			return nil, mcpErr
		}
		return &protocol.ToolResult{
			Content: []any{protocol.TextContent{Type: "text", Text: err.Error()}},
			IsError: true,
		}, nil
	}
	if tr, ok := result.(*protocol.ToolResult); ok {
		return tr, nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &protocol.ToolResult{Content: []any{protocol.TextContent{Type: "text", Text: string(encoded)}}}, nil
}

// Resource starts building a new resource with the given URI template.
func (r *Registry) Resource(uriTemplate string) *ResourceBuilder {
	return &ResourceBuilder{resource: &Resource{uriTemplate: uriTemplate}, registry: r}
}

// Resources returns info about all registered resources.
func (r *Registry) Resources() []ResourceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ResourceInfo, 0, len(r.resources))
	for _, res := range r.resources {
		result = append(result, ResourceInfo{URITemplate: res.uriTemplate, Name: res.name, Description: res.description, MimeType: res.mimeType, Annotations: res.annotations})
	}
	return result
}

// ResourceTemplates returns info about registered resources whose URI
// template has at least one {parameter}.
func (r *Registry) ResourceTemplates() []ResourceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]ResourceInfo, 0)
	for _, res := range r.resources {
		if len(res.paramNames) > 0 {
			result = append(result, ResourceInfo{URITemplate: res.uriTemplate, Name: res.name, Description: res.description, MimeType: res.mimeType, Annotations: res.annotations})
		}
	}
	return result
}

func (r *Registry) registerResource(res *Resource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[res.uriTemplate] = res
}

// GetResource retrieves a resource by its exact URI template.
func (r *Registry) GetResource(uriTemplate string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[uriTemplate]
	return res, ok
}

// FindResourceForURI finds the resource whose template matches uri.
func (r *Registry) FindResourceForURI(uri string) (*Resource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, res := range r.resources {
		if _, ok := matchURI(res.uriTemplate, uri); ok {
			return res, true
		}
	}
	return nil, false
}

func (r *Registry) ListResources(ctx context.Context, cursor string) ([]protocol.Resource, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]protocol.Resource, 0, len(r.resources))
	for _, res := range r.resources {
		result = append(result, protocol.Resource{URI: res.uriTemplate, Name: res.name, Description: res.description, MimeType: res.mimeType, Annotations: res.annotations.toProtocol()})
	}
	return result, "", nil
}

func (r *Registry) ListResourceTemplates(ctx context.Context) ([]protocol.ResourceTemplate, error) {
	infos := r.ResourceTemplates()
	result := make([]protocol.ResourceTemplate, 0, len(infos))
	for _, info := range infos {
		result = append(result, protocol.ResourceTemplate{URITemplate: info.URITemplate, Name: info.Name, Description: info.Description, MimeType: info.MimeType, Annotations: info.Annotations.toProtocol()})
	}
	return result, nil
}

func (r *Registry) ReadResource(ctx context.Context, uri string) ([]protocol.ResourceContents, error) {
	res, ok := r.FindResourceForURI(uri)
	if !ok {
		return nil, protocol.NewInvalidParams(fmt.Sprintf("unknown resource: %s", uri))
	}
	content, err := res.Read(ctx, uri)
	if err != nil {
		return nil, err
	}
	return []protocol.ResourceContents{{URI: content.URI, MimeType: content.MimeType, Text: content.Text, Blob: content.Blob}}, nil
}

// Prompt starts building a new prompt with the given name.
func (r *Registry) Prompt(name string) *PromptBuilder {
	return &PromptBuilder{prompt: &Prompt{name: name}, registry: r}
}

// Prompts returns info about all registered prompts.
func (r *Registry) Prompts() []PromptInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]PromptInfo, 0, len(r.prompts))
	for _, p := range r.prompts {
		result = append(result, PromptInfo{Name: p.name, Description: p.description, Arguments: p.arguments, Annotations: p.annotations})
	}
	return result
}

func (r *Registry) registerPrompt(p *Prompt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts[p.name] = p
}

// GetPromptDef retrieves a registered prompt definition by name.
func (r *Registry) GetPromptDef(name string) (*Prompt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prompts[name]
	return p, ok
}

func (r *Registry) ListPrompts(ctx context.Context, cursor string) ([]protocol.Prompt, string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]protocol.Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		result = append(result, protocol.Prompt{Name: p.name, Description: p.description, Arguments: p.arguments, Annotations: p.annotations.toProtocol()})
	}
	return result, "", nil
}

func (r *Registry) GetPrompt(ctx context.Context, name string, args map[string]string) (string, []protocol.PromptMessage, error) {
	p, ok := r.GetPromptDef(name)
	if !ok {
		return "", nil, protocol.NewInvalidParams(fmt.Sprintf("unknown prompt: %s", name))
	}
	result, err := p.Get(ctx, args)
	if err != nil {
		return "", nil, err
	}
	return result.Description, result.Messages, nil
}

// PromptCompletion starts building a completion handler for a prompt's arguments.
func (r *Registry) PromptCompletion(name string) *PromptCompletionBuilder {
	return &PromptCompletionBuilder{name: name, registry: r}
}

// ResourceCompletion starts building a completion handler for a resource template's parameters.
func (r *Registry) ResourceCompletion(uriTemplate string) *ResourceCompletionBuilder {
	return &ResourceCompletionBuilder{uriTemplate: uriTemplate, registry: r}
}

// RegisterPromptCompletion registers a completion handler for a prompt argument.
func (r *Registry) RegisterPromptCompletion(name string, handler CompletionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completions == nil {
		r.completions = newCompletionRegistry()
	}
	r.completions.RegisterPromptCompletion(name, handler)
}

// RegisterResourceCompletion registers a completion handler for a resource URI template.
func (r *Registry) RegisterResourceCompletion(uriTemplate string, handler CompletionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completions == nil {
		r.completions = newCompletionRegistry()
	}
	r.completions.RegisterResourceCompletion(uriTemplate, handler)
}

func (r *Registry) Complete(ctx context.Context, ref protocol.CompletionRef, argument protocol.CompletionArgument) (*protocol.CompletionResult, error) {
	r.mu.RLock()
	completions := r.completions
	r.mu.RUnlock()
	if completions == nil {
		return &protocol.CompletionResult{Values: []string{}}, nil
	}
	return completions.Handle(ctx, ref, argument)
}
