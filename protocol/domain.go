package protocol

// Resource describes a piece of context a server can serve by URI.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// ResourceTemplate describes a parameterized family of resource URIs.
type ResourceTemplate struct {
	URITemplate string       `json:"uriTemplate"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	MimeType    string       `json:"mimeType,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// ResourceContents is one item returned by resources/read: either Text
// or Blob is populated, never both.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"` // base64
}

// Annotations carries hints a server attaches to a resource, prompt or
// tool describing its intended audience and priority.
type Annotations struct {
	Audience []Role   `json:"audience,omitempty"`
	Priority *float64 `json:"priority,omitempty"`
}

// Role identifies the party a piece of content is addressed to.
type Role string

// Roles used in Annotations.Audience and PromptMessage.Role.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Prompt describes a reusable prompt template.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
	Annotations *Annotations     `json:"annotations,omitempty"`
}

// PromptArgument describes a named input a prompt accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptMessage is one turn returned by prompts/get.
type PromptMessage struct {
	Role    Role `json:"role"`
	Content any  `json:"content"`
}

// TextContent is inline text content within a prompt or tool result.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ImageContent is inline base64 image content.
type ImageContent struct {
	Type     string `json:"type"`
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// Tool describes a callable function a server exposes.
type Tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	InputSchema any              `json:"inputSchema"`
	Annotations *ToolAnnotations `json:"annotations,omitempty"`
}

// ToolAnnotations carries behavioral hints about a tool that let a
// client decide how to present or gate it without calling it first.
type ToolAnnotations struct {
	Title           string `json:"title,omitempty"`
	ReadOnlyHint    *bool  `json:"readOnlyHint,omitempty"`
	DestructiveHint *bool  `json:"destructiveHint,omitempty"`
	IdempotentHint  *bool  `json:"idempotentHint,omitempty"`
	OpenWorldHint   *bool  `json:"openWorldHint,omitempty"`
}

// ToolResult is the result of tools/call.
type ToolResult struct {
	Content []any `json:"content"`
	IsError bool  `json:"isError,omitempty"`
}

// Root describes a filesystem or URI boundary the client exposes to the server.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name,omitempty"`
}

// LogLevel is an RFC 5424 syslog severity, ordered least to most severe.
type LogLevel string

// Log levels accepted by logging/setLevel, ordered least to most severe.
const (
	LogLevelDebug     LogLevel = "debug"
	LogLevelInfo      LogLevel = "info"
	LogLevelNotice    LogLevel = "notice"
	LogLevelWarning   LogLevel = "warning"
	LogLevelError     LogLevel = "error"
	LogLevelCritical  LogLevel = "critical"
	LogLevelAlert     LogLevel = "alert"
	LogLevelEmergency LogLevel = "emergency"
)

var logLevelRank = map[LogLevel]int{
	LogLevelDebug: 0, LogLevelInfo: 1, LogLevelNotice: 2, LogLevelWarning: 3,
	LogLevelError: 4, LogLevelCritical: 5, LogLevelAlert: 6, LogLevelEmergency: 7,
}

// AtLeast reports whether l is at least as severe as min.
func (l LogLevel) AtLeast(min LogLevel) bool {
	return logLevelRank[l] >= logLevelRank[min]
}

// SamplingMessage is one turn in a sampling/createMessage conversation.
type SamplingMessage struct {
	Role    Role `json:"role"`
	Content any  `json:"content"`
}

// ModelPreferences hints the client's model selection for sampling/createMessage.
type ModelPreferences struct {
	Hints                []ModelHint `json:"hints,omitempty"`
	CostPriority         *float64    `json:"costPriority,omitempty"`
	SpeedPriority        *float64    `json:"speedPriority,omitempty"`
	IntelligencePriority *float64    `json:"intelligencePriority,omitempty"`
}

// ModelHint suggests a preferred model name substring.
type ModelHint struct {
	Name string `json:"name,omitempty"`
}

// CreateMessageParams requests a completion from the client's connected LLM.
type CreateMessageParams struct {
	Messages         []SamplingMessage `json:"messages"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	MaxTokens        int               `json:"maxTokens"`
}

// CreateMessageResult is the client's sampling response.
type CreateMessageResult struct {
	Role       Role   `json:"role"`
	Content    any    `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stopReason,omitempty"`
}

// CompletionRef names the resource or prompt an autocomplete request targets.
type CompletionRef struct {
	Type string `json:"type"` // "ref/resource" or "ref/prompt"
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// CompletionArgument is the partially-typed argument being completed.
type CompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompletionResult carries candidate completions.
type CompletionResult struct {
	Values  []string `json:"values"`
	Total   int      `json:"total,omitempty"`
	HasMore bool     `json:"hasMore,omitempty"`
}

// ProgressToken correlates progress notifications with the request that
// requested them; it is a number or a string.
type ProgressToken = any
