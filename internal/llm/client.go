package llm

import "context"

// Role tags understood by the model service.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged turn sent to the model.
// Role must be one of: "user" or "assistant"; the system instruction travels
// separately in Request.System.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the structured payload for one generation call.
type Request struct {
	Persona     map[string]string `json:"persona"`
	System      string            `json:"system"`
	Messages    []Message         `json:"messages"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"max_tokens"`
}

// Client is the contract the model gateway depends on.  Implementations
// return the raw reply text; any error is treated by the caller as a
// transport failure.
type Client interface {
	Chat(ctx context.Context, req Request) (string, error)
}
