// internal/models/chat.go
package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of conversation history, oldest first.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Contents returns just the message texts, in order.
func Contents(history []ChatMessage) []string {
	out := make([]string, len(history))
	for i, m := range history {
		out[i] = m.Content
	}
	return out
}
