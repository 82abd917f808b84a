package session

import "github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"

// truncateHistory caps the conversation history to the most recent limit
// messages, preserving order. The full history is retained elsewhere; the
// cap only bounds the model context window.
func truncateHistory(history []domain.ChatMessage, limit int) []domain.ChatMessage {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
