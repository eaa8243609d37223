package protocol

// MCPVersion is the protocol version this SDK implements and advertises
// during the initialize handshake.
const MCPVersion = "2024-11-05"

// Request methods.
const (
	MethodInitialize             = "initialize"
	MethodPing                   = "ping"
	MethodResourcesList          = "resources/list"
	MethodResourcesRead          = "resources/read"
	MethodResourcesSubscribe     = "resources/subscribe"
	MethodResourcesUnsubscribe   = "resources/unsubscribe"
	MethodResourceTemplatesList  = "resources/templates/list"
	MethodPromptsList            = "prompts/list"
	MethodPromptsGet             = "prompts/get"
	MethodToolsList              = "tools/list"
	MethodToolsCall              = "tools/call"
	MethodLoggingSetLevel        = "logging/setLevel"
	MethodCompletionComplete     = "completion/complete"
	MethodSamplingCreateMessage  = "sampling/createMessage"
	MethodRootsList              = "roots/list"
)

// Notification methods.
const (
	MethodInitialized             = "notifications/initialized"
	MethodCancelled                = "notifications/cancelled"
	MethodProgress                 = "notifications/progress"
	MethodLoggingMessage            = "notifications/message"
	MethodResourcesListChanged      = "notifications/resources/list_changed"
	MethodResourcesUpdated          = "notifications/resources/updated"
	MethodPromptsListChanged        = "notifications/prompts/list_changed"
	MethodToolsListChanged          = "notifications/tools/list_changed"
	MethodRootsListChanged          = "notifications/roots/list_changed"
)
