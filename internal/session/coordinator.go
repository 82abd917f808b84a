package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
)

// HistoryLoader loads durable conversation history by canonical identifier
// or client session token. Implemented by the audit client.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, userID, idOrToken string) ([]domain.ChatMessage, error)
}

// Coordinator resolves client session tokens to the correct message history,
// keeps that history current across requests, and hides the canonical
// persistence identifier from the rest of the system.
//
// All cache mutations for one user are serialized by a per-user lock;
// unrelated users never block each other. The token-to-canonical-ID map is
// append-only with first-writer-wins semantics.
type Coordinator struct {
	store        HistoryStore
	loader       HistoryLoader // may be nil when the audit service is unconfigured
	logger       *zap.Logger
	historyLimit int

	locks     sync.Map // userID -> *sync.Mutex
	canonical sync.Map // client token -> canonical conversation ID
	inflight  sync.Map // userID -> *streamState
}

// NewCoordinator creates a coordinator around the given history store.
func NewCoordinator(store HistoryStore, loader HistoryLoader, historyLimit int, logger *zap.Logger) *Coordinator {
	if historyLimit <= 0 {
		historyLimit = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:        store,
		loader:       loader,
		logger:       logger,
		historyLimit: historyLimit,
	}
}

// NewToken synthesizes a client session token for a brand-new conversation.
func NewToken(userID string) string {
	return fmt.Sprintf("conv_%s_%d", userID, time.Now().UnixMilli())
}

func (c *Coordinator) userLock(userID string) *sync.Mutex {
	v, _ := c.locks.LoadOrStore(userID, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// ResolveAndRestore resolves a client session token to the correct cached
// history, restoring from the durable record when the token differs from the
// one currently loaded. Returns the token in effect (synthesized when the
// input is empty). Persistence failures degrade to the current cache state
// and are never surfaced.
func (c *Coordinator) ResolveAndRestore(ctx context.Context, userID, token string) string {
	if token == "" {
		// Brand-new conversation; the user's cache is used as-is. Marking
		// the synthesized token as loaded lets the next message in this
		// conversation take the fast path instead of triggering a restore
		// that could race the first save.
		token = NewToken(userID)
		mu := c.userLock(userID)
		mu.Lock()
		defer mu.Unlock()

		hist := c.get(ctx, userID)
		hist.LoadedToken = token
		c.put(ctx, userID, hist)
		return token
	}

	mu := c.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	hist, err := c.store.Get(ctx, userID)
	if err != nil {
		c.logger.Warn("history cache read failed", zap.String("user", userID), zap.Error(err))
		hist = nil
	}

	// Fast path: consecutive messages in one conversation.
	if hist != nil && hist.LoadedToken == token && len(hist.Messages) > 0 {
		return token
	}

	lookup := token
	if id, ok := c.canonical.Load(token); ok {
		lookup = id.(string)
	}

	var restored []domain.ChatMessage
	if c.loader != nil {
		restored, err = c.loader.LoadHistory(ctx, userID, lookup)
		if err != nil {
			// Restore is an optimization, not a correctness requirement for
			// the next message. Degrade to the cache, but never mix two
			// conversations' turns.
			c.logger.Warn("history restore failed",
				zap.String("user", userID), zap.String("conversation", lookup), zap.Error(err))
			if hist == nil {
				hist = &UserHistory{}
			}
			if hist.LoadedToken != token {
				hist.Messages = nil
				hist.LoadedToken = token
			}
			c.put(ctx, userID, hist)
			return token
		}
	}

	// Wholesale replacement: an empty or missing conversation clears the
	// cache rather than erroring.
	c.put(ctx, userID, &UserHistory{Messages: restored, LoadedToken: token})
	return token
}

// AppendAndGetContext appends a message to the user's cache and returns the
// context window for the response generator: the most recent messages capped
// at the configured limit, with any in-flight partial assistant reply from a
// concurrent stream placed before the new turn.
func (c *Coordinator) AppendAndGetContext(ctx context.Context, userID string, msg domain.ChatMessage) []domain.ChatMessage {
	mu := c.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	hist := c.get(ctx, userID)
	hist.Messages = append(hist.Messages, msg)
	c.put(ctx, userID, hist)

	window := truncateHistory(hist.Messages, c.historyLimit)
	out := make([]domain.ChatMessage, len(window))
	copy(out, window)

	partial := c.inFlightText(userID)
	if partial != "" && len(out) >= 2 &&
		out[len(out)-2].Role == domain.RoleAssistant && out[len(out)-2].Content == partial {
		// The streaming reply was already appended to the history; do not
		// repeat it from the buffer.
		partial = ""
	}
	if partial != "" && len(out) > 0 {
		assistant := domain.ChatMessage{
			ID:        uuid.New().String(),
			Role:      domain.RoleAssistant,
			Content:   partial,
			Timestamp: time.Now(),
		}
		out = append(out[:len(out)-1], assistant, out[len(out)-1])
	}

	return out
}

// Append appends a message to the user's cache.
func (c *Coordinator) Append(ctx context.Context, userID string, msg domain.ChatMessage) {
	mu := c.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	hist := c.get(ctx, userID)
	hist.Messages = append(hist.Messages, msg)
	c.put(ctx, userID, hist)
}

// History returns a copy of the user's full cached history.
func (c *Coordinator) History(ctx context.Context, userID string) []domain.ChatMessage {
	mu := c.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	hist := c.get(ctx, userID)
	out := make([]domain.ChatMessage, len(hist.Messages))
	copy(out, hist.Messages)
	return out
}

// Clear drops the user's cached history.
func (c *Coordinator) Clear(ctx context.Context, userID string) {
	mu := c.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	if err := c.store.Delete(ctx, userID); err != nil {
		c.logger.Warn("history cache clear failed", zap.String("user", userID), zap.Error(err))
	}
}

// Forget drops the user's cache only when it is loaded for the given token.
// Used when a session is deleted so stale history cannot resurface. Reports
// whether cached state existed for the token.
func (c *Coordinator) Forget(ctx context.Context, userID, token string) bool {
	mu := c.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	hist, err := c.store.Get(ctx, userID)
	if err != nil || hist == nil {
		return false
	}
	if hist.LoadedToken != token {
		return false
	}
	if err := c.store.Delete(ctx, userID); err != nil {
		c.logger.Warn("history cache clear failed", zap.String("user", userID), zap.Error(err))
	}
	return true
}

// RecordCanonicalID records the canonical conversation identifier assigned
// by the persistence service for a client session token. Idempotent:
// an existing mapping is never overwritten, so a slow stale save cannot
// clobber a mapping established by a faster concurrent save.
func (c *Coordinator) RecordCanonicalID(token, canonicalID string) {
	if token == "" || canonicalID == "" {
		return
	}
	c.canonical.LoadOrStore(token, canonicalID)
}

// CanonicalID returns the canonical identifier mapped to a client session
// token, if one has been recorded.
func (c *Coordinator) CanonicalID(token string) (string, bool) {
	v, ok := c.canonical.Load(token)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// get returns the user's snapshot under an already-held user lock, creating
// an empty one when absent. Store read errors degrade to empty.
func (c *Coordinator) get(ctx context.Context, userID string) *UserHistory {
	hist, err := c.store.Get(ctx, userID)
	if err != nil {
		c.logger.Warn("history cache read failed", zap.String("user", userID), zap.Error(err))
		hist = nil
	}
	if hist == nil {
		hist = &UserHistory{}
	}
	return hist
}

func (c *Coordinator) put(ctx context.Context, userID string, hist *UserHistory) {
	if err := c.store.Put(ctx, userID, hist); err != nil {
		c.logger.Warn("history cache write failed", zap.String("user", userID), zap.Error(err))
	}
}

// streamState is the single in-flight buffer slot for one user.
type streamState struct {
	mu  sync.Mutex
	id  string
	buf strings.Builder
}

// StreamHandle identifies one streaming response's claim on a user's
// in-flight buffer slot.
type StreamHandle struct {
	userID string
	id     string
}

// BeginStream claims the user's in-flight buffer. A second stream for the
// same user takes the slot over; the first stream's subsequent writes are
// dropped rather than interleaved.
func (c *Coordinator) BeginStream(userID string) StreamHandle {
	st := c.streamState(userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.id = uuid.New().String()
	st.buf.Reset()
	return StreamHandle{userID: userID, id: st.id}
}

// StreamWrite appends partially-generated assistant text to the in-flight
// buffer, if the handle still owns the slot.
func (c *Coordinator) StreamWrite(h StreamHandle, delta string) {
	st := c.streamState(h.userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.id == h.id {
		st.buf.WriteString(delta)
	}
}

// EndStream releases the in-flight buffer once the reply has been appended
// to the history, if the handle still owns the slot.
func (c *Coordinator) EndStream(h StreamHandle) {
	st := c.streamState(h.userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.id == h.id {
		st.id = ""
		st.buf.Reset()
	}
}

// inFlightText returns the current partial assistant reply, if a stream is
// active for the user.
func (c *Coordinator) inFlightText(userID string) string {
	v, ok := c.inflight.Load(userID)
	if !ok {
		return ""
	}
	st := v.(*streamState)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.id == "" {
		return ""
	}
	return st.buf.String()
}

func (c *Coordinator) streamState(userID string) *streamState {
	v, _ := c.inflight.LoadOrStore(userID, &streamState{})
	return v.(*streamState)
}
