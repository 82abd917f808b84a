package session

import (
	"context"
	"time"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
)

// UserHistory is the per-user cache snapshot: the ordered message list plus
// the client session token it was loaded for.
type UserHistory struct {
	Messages    []domain.ChatMessage `json:"messages"`
	LoadedToken string               `json:"loaded_token"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// HistoryStore defines the injectable per-user history cache. The
// coordinator serializes access per user; drivers only need snapshot
// get/put semantics.
type HistoryStore interface {
	// Get retrieves the snapshot for a user.
	// Returns nil if none exists (not an error).
	Get(ctx context.Context, userID string) (*UserHistory, error)

	// Put stores the snapshot for a user, replacing any previous one.
	Put(ctx context.Context, userID string, history *UserHistory) error

	// Delete removes the snapshot for a user.
	Delete(ctx context.Context, userID string) error

	// Close closes the store and releases any resources.
	Close() error
}
