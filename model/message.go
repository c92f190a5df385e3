package model

// Role is the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a role tagged piece of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a question with the caller supplied conversation history.
type ChatRequest struct {
	Query   string    `json:"query"`
	History []Message `json:"history"`
	UseRAG  bool      `json:"use_rag"`
	TopK    int       `json:"top_k"`
}

// ChatAnswer is the buffered answer to a ChatRequest.
type ChatAnswer struct {
	Answer     string             `json:"answer"`
	Contexts   []RetrievedContext `json:"contexts"`
	HasContext bool               `json:"has_context"`
}
