package llm

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

type ChatRequest struct {
	// Deployment overrides the client's configured deployment for one call.
	Deployment string
	Messages   []Message
}

type ChatResponse struct {
	Message      Message
	Model        string
	FinishReason string
}

// StreamHandler receives each non-empty delta in arrival order.
type StreamHandler func(delta string) error

type Client interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	ChatStream(ctx context.Context, req ChatRequest, handle StreamHandler) (ChatResponse, error)
}
