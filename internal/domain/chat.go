package domain

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single conversation turn. Immutable once created;
// owned by the per-user history that contains it.
type ChatMessage struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"` // user, assistant
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	DocumentIDs []string  `json:"document_ids,omitempty"` // user messages only
}

// SessionDescriptor summarizes a conversation for the session list.
type SessionDescriptor struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	LastMessageTime time.Time `json:"lastMessageTime"`
	MessageCount    int       `json:"messageCount"`
	LastMessage     string    `json:"lastMessage"`
}

// ChatRequest is the body of /chat/message, /chat/send and /chat/stream.
type ChatRequest struct {
	Message        string   `json:"message" binding:"required"`
	DocumentIDs    []string `json:"documentIds,omitempty"`
	ConversationID string   `json:"conversationId,omitempty"`
}

// ChatResponse is the buffered chat reply.
type ChatResponse struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
}

// CreateSessionRequest is the body of POST /chat/sessions.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty"`
}

// HistoryEntry is a single turn as returned by the history endpoints.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
