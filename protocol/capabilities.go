package protocol

// Implementation identifies a client or server peer during the
// initialize handshake.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ClientCapabilities describes what an MCP client supports.
type ClientCapabilities struct {
	Roots        *RootsCapability `json:"roots,omitempty"`
	Sampling     *struct{}        `json:"sampling,omitempty"`
	Experimental map[string]any   `json:"experimental,omitempty"`
}

// RootsCapability describes the client's support for the roots feature.
type RootsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// HasSampling reports whether the client advertised sampling support.
func (c *ClientCapabilities) HasSampling() bool {
	return c != nil && c.Sampling != nil
}

// HasRoots reports whether the client advertised the roots capability.
func (c *ClientCapabilities) HasRoots() bool {
	return c != nil && c.Roots != nil
}

// ServerCapabilities describes what an MCP server supports.
type ServerCapabilities struct {
	Resources    *ResourcesCapability `json:"resources,omitempty"`
	Prompts      *ListChangedCapability `json:"prompts,omitempty"`
	Tools        *ListChangedCapability `json:"tools,omitempty"`
	Logging      *struct{}            `json:"logging,omitempty"`
	Completion   *struct{}            `json:"completions,omitempty"`
	Experimental map[string]any       `json:"experimental,omitempty"`
}

// ResourcesCapability describes the server's support for resources.
type ResourcesCapability struct {
	Subscribe   bool `json:"subscribe,omitempty"`
	ListChanged bool `json:"listChanged,omitempty"`
}

// ListChangedCapability is shared by prompts and tools, which only ever
// advertise the listChanged flag.
type ListChangedCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// HasResources reports whether the server advertised the resources capability.
func (c *ServerCapabilities) HasResources() bool { return c != nil && c.Resources != nil }

// HasResourceSubscribe reports whether the server supports resources/subscribe.
func (c *ServerCapabilities) HasResourceSubscribe() bool {
	return c.HasResources() && c.Resources.Subscribe
}

// HasPrompts reports whether the server advertised the prompts capability.
func (c *ServerCapabilities) HasPrompts() bool { return c != nil && c.Prompts != nil }

// HasTools reports whether the server advertised the tools capability.
func (c *ServerCapabilities) HasTools() bool { return c != nil && c.Tools != nil }

// HasLogging reports whether the server advertised the logging capability.
func (c *ServerCapabilities) HasLogging() bool { return c != nil && c.Logging != nil }

// HasCompletion reports whether the server advertised the completion capability.
func (c *ServerCapabilities) HasCompletion() bool { return c != nil && c.Completion != nil }

// InitializeParams is sent by the client to open a session.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// InitializeResult is the server's response to initialize.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}
