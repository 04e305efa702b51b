package domain

import "time"

// DefaultSessionTitle is the label given to sessions created without one.
const DefaultSessionTitle = "New Conversation"

// Session represents a conversation's durable identity.
type Session struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
}

// Message represents a single persisted turn in a session.
// ID is assigned by the store and only breaks ordering ties.
type Message struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"` // user, assistant
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is a role/content pair as exchanged with clients and the inference backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Window converts persisted messages into context-window entries, preserving order.
func Window(messages []Message) []ChatMessage {
	window := make([]ChatMessage, 0, len(messages))
	for _, m := range messages {
		window = append(window, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return window
}
