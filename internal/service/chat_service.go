package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/document"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/llm"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/session"
)

// Generator produces assistant replies. Implemented by llm.Provider.
type Generator interface {
	Chat(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error)
	Stream(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (<-chan llm.Delta, error)
}

// Auditor is the best-effort durable conversation record. Implemented by
// audit.Client.
type Auditor interface {
	Configured() bool
	Save(ctx context.Context, userID string, messages []domain.ChatMessage, canonicalID string) (string, error)
	ListSessions(ctx context.Context, userID string) ([]domain.SessionDescriptor, error)
	DeleteSession(ctx context.Context, userID, id string) error
}

// User-facing fallback replies. Generation and configuration failures render
// as assistant messages so the chat UI shows them as a bubble, not an error
// page.
const (
	replyNotConfigured = "The assistant is not configured yet. Please contact your administrator."
	replyGenerateError = "I'm sorry, I ran into a problem while generating a response. Please try again."
)

// defaultSessionTitle is used when a session is created without a title.
const defaultSessionTitle = "New Conversation"

// ChatService orchestrates a chat turn: resolve the session, attach document
// context, generate the reply, relay it, and trigger a best-effort audit
// save.
type ChatService struct {
	coordinator  *session.Coordinator
	docs         *DocumentService
	generator    Generator // nil when the generator is unconfigured
	auditor      Auditor
	systemPrompt string
	saveTimeout  time.Duration
	logger       *zap.Logger
}

// NewChatService creates a chat service. generator may be nil; chat requests
// then degrade to a configuration notice.
func NewChatService(
	coordinator *session.Coordinator,
	docs *DocumentService,
	generator Generator,
	auditor Auditor,
	systemPrompt string,
	logger *zap.Logger,
) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		coordinator:  coordinator,
		docs:         docs,
		generator:    generator,
		auditor:      auditor,
		systemPrompt: systemPrompt,
		saveTimeout:  45 * time.Second,
		logger:       logger,
	}
}

// Send handles a buffered chat message.
func (s *ChatService) Send(ctx context.Context, userID string, req *domain.ChatRequest) (*domain.ChatResponse, error) {
	token := s.coordinator.ResolveAndRestore(ctx, userID, req.ConversationID)

	window := s.appendUserTurn(ctx, userID, req)

	reply := s.generate(ctx, userID, token, window)

	s.coordinator.Append(ctx, userID, domain.ChatMessage{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	})

	s.dispatchSave(userID, token)

	return &domain.ChatResponse{Content: reply, ConversationID: token}, nil
}

// Stream handles a streaming chat message. onStart is called once with the
// conversation token before any content is written; write is called per raw
// text chunk. A write failure (client gone) stops relaying but generation
// and the audit save still run to completion.
func (s *ChatService) Stream(ctx context.Context, userID string, req *domain.ChatRequest, onStart func(token string), write func(delta string) error) {
	token := s.coordinator.ResolveAndRestore(ctx, userID, req.ConversationID)
	if onStart != nil {
		onStart(token)
	}

	// The user turn is appended before the first token is requested, so an
	// immediate second request still sees its predecessor in context.
	window := s.appendUserTurn(ctx, userID, req)

	s.streamReply(ctx, userID, token, window, write)

	// Strictly after the last chunk has been flushed to the client.
	s.dispatchSave(userID, token)
}

// streamReply produces the assistant reply over the live token stream,
// keeping the per-user in-flight buffer current, and appends the final
// message to the cache before releasing the buffer.
func (s *ChatService) streamReply(ctx context.Context, userID, token string, window []domain.ChatMessage, write func(string) error) {
	if s.generator == nil {
		s.logger.Warn("chat request with unconfigured generator", zap.String("user", userID))
		s.finishStream(ctx, userID, replyNotConfigured, write)
		return
	}

	// Generation deliberately outlives the client connection so the audit
	// record stays complete.
	genCtx := context.WithoutCancel(ctx)
	deltas, err := s.generator.Stream(genCtx, s.systemPrompt, window)
	if err != nil {
		s.logger.Error("failed to start generation stream",
			zap.String("user", userID), zap.String("conversation", token), zap.Error(err))
		s.finishStream(ctx, userID, replyGenerateError, write)
		return
	}

	handle := s.coordinator.BeginStream(userID)
	var full strings.Builder
	clientGone := false

	for d := range deltas {
		if d.Err != nil {
			s.logger.Error("generation stream failed",
				zap.String("user", userID), zap.String("conversation", token), zap.Error(d.Err))
			if full.Len() == 0 {
				full.WriteString(replyGenerateError)
				if !clientGone {
					_ = write(replyGenerateError)
				}
			}
			break
		}

		full.WriteString(d.Content)
		s.coordinator.StreamWrite(handle, d.Content)

		if !clientGone {
			if err := write(d.Content); err != nil {
				clientGone = true
				s.logger.Warn("client disconnected mid-stream; generation continues",
					zap.String("user", userID), zap.String("conversation", token))
			}
		}
	}

	s.coordinator.Append(ctx, userID, domain.ChatMessage{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   full.String(),
		Timestamp: time.Now(),
	})
	s.coordinator.EndStream(handle)
}

func (s *ChatService) finishStream(ctx context.Context, userID, reply string, write func(string) error) {
	_ = write(reply)
	s.coordinator.Append(ctx, userID, domain.ChatMessage{
		ID:        uuid.New().String(),
		Role:      domain.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now(),
	})
}

// appendUserTurn composes the user message (with document context when IDs
// are present), appends it to the cache, and returns the generator context
// window with stale document references filtered out.
func (s *ChatService) appendUserTurn(ctx context.Context, userID string, req *domain.ChatRequest) []domain.ChatMessage {
	content := req.Message
	if len(req.DocumentIDs) > 0 {
		docContext, err := s.docs.GetContext(ctx, req.DocumentIDs, userID)
		if err != nil {
			s.logger.Warn("failed to fetch document context",
				zap.String("user", userID), zap.Error(err))
			docContext = ""
		}
		content = document.Compose(docContext, req.Message)
	}

	msg := domain.ChatMessage{
		ID:          uuid.New().String(),
		Role:        domain.RoleUser,
		Content:     content,
		Timestamp:   time.Now(),
		DocumentIDs: req.DocumentIDs,
	}

	window := s.coordinator.AppendAndGetContext(ctx, userID, msg)
	return s.filterWindow(ctx, userID, window)
}

// filterWindow re-checks document references in replayed history so a
// deleted document's text stops re-injecting into every future model call.
func (s *ChatService) filterWindow(ctx context.Context, userID string, window []domain.ChatMessage) []domain.ChatMessage {
	for i, msg := range window {
		if msg.Role != domain.RoleUser || len(msg.DocumentIDs) == 0 {
			continue
		}
		filtered := s.docs.FilterDeletedReferences(ctx, msg.Content, msg.DocumentIDs, userID)
		if filtered != msg.Content {
			window[i].Content = filtered
		}
	}
	return window
}

// generate produces a buffered reply, degrading failures to assistant-style
// content.
func (s *ChatService) generate(ctx context.Context, userID, token string, window []domain.ChatMessage) string {
	if s.generator == nil {
		s.logger.Warn("chat request with unconfigured generator", zap.String("user", userID))
		return replyNotConfigured
	}

	reply, err := s.generator.Chat(ctx, s.systemPrompt, window)
	if err != nil {
		s.logger.Error("generation failed",
			zap.String("user", userID), zap.String("conversation", token), zap.Error(err))
		return replyGenerateError
	}
	return reply
}

// dispatchSave triggers a detached best-effort audit save. Errors are logged,
// never propagated; save latency cannot delay perceived responsiveness.
func (s *ChatService) dispatchSave(userID, token string) {
	if s.auditor == nil || !s.auditor.Configured() {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
		defer cancel()

		messages := s.coordinator.History(ctx, userID)
		if len(messages) == 0 {
			return
		}

		canonical, _ := s.coordinator.CanonicalID(token)
		assigned, err := s.auditor.Save(ctx, userID, messages, canonical)
		if err != nil {
			s.logger.Warn("audit save failed",
				zap.String("user", userID), zap.String("conversation", token), zap.Error(err))
			return
		}
		s.coordinator.RecordCanonicalID(token, assigned)
	}()
}

// Sessions lists the user's conversations from the audit record, degrading
// to an empty list on failure.
func (s *ChatService) Sessions(ctx context.Context, userID string) []domain.SessionDescriptor {
	if s.auditor == nil || !s.auditor.Configured() {
		return []domain.SessionDescriptor{}
	}

	sessions, err := s.auditor.ListSessions(ctx, userID)
	if err != nil {
		s.logger.Warn("failed to list sessions", zap.String("user", userID), zap.Error(err))
		return []domain.SessionDescriptor{}
	}
	if sessions == nil {
		sessions = []domain.SessionDescriptor{}
	}

	for i := range sessions {
		if sessions[i].Title == "" {
			sessions[i].Title = deriveTitle(sessions[i].LastMessage)
		}
	}
	return sessions
}

// deriveTitle builds a session title from message text when none was set.
func deriveTitle(text string) string {
	text = strings.TrimSpace(document.Question(text))
	if text == "" {
		return defaultSessionTitle
	}
	if len(text) > 50 {
		text = text[:50]
	}
	return text
}

// CreateSession creates a new, empty session descriptor. The canonical
// record is created lazily by the first save.
func (s *ChatService) CreateSession(ctx context.Context, userID, title string) domain.SessionDescriptor {
	if title == "" {
		title = defaultSessionTitle
	}
	return domain.SessionDescriptor{
		ID:              session.NewToken(userID),
		Title:           title,
		LastMessageTime: time.Now(),
	}
}

// SessionMessages returns the ordered turns of one conversation, restoring
// it into the cache as a side effect.
func (s *ChatService) SessionMessages(ctx context.Context, userID, id string) []domain.HistoryEntry {
	s.coordinator.ResolveAndRestore(ctx, userID, id)
	return toEntries(s.coordinator.History(ctx, userID))
}

// DeleteSession cascade-deletes the session's documents, then the durable
// record, then any cached state. Returns domain.ErrNotFound when nothing
// existed under the identifier.
func (s *ChatService) DeleteSession(ctx context.Context, userID, id string) error {
	removedDocs, err := s.docs.DeleteByConversation(ctx, userID, id)
	if err != nil {
		s.logger.Warn("document cascade delete failed",
			zap.String("user", userID), zap.String("conversation", id), zap.Error(err))
	}

	known := removedDocs > 0

	if s.auditor != nil && s.auditor.Configured() {
		deleteID := id
		if canonical, ok := s.coordinator.CanonicalID(id); ok {
			deleteID = canonical
		}
		switch err := s.auditor.DeleteSession(ctx, userID, deleteID); {
		case err == nil:
			known = true
		case err == domain.ErrNotFound:
			// fall through to the cache check
		default:
			// Transient audit failure must not surface as a missing session.
			s.logger.Warn("audit delete failed",
				zap.String("user", userID), zap.String("conversation", id), zap.Error(err))
			known = true
		}
	}

	if s.coordinator.Forget(ctx, userID, id) {
		known = true
	}

	if !known {
		return domain.ErrNotFound
	}
	return nil
}

// History returns the user's whole cached history. Legacy endpoint; never
// fails.
func (s *ChatService) History(ctx context.Context, userID string) []domain.HistoryEntry {
	return toEntries(s.coordinator.History(ctx, userID))
}

// ClearHistory drops the user's cached history. Legacy endpoint; never
// fails.
func (s *ChatService) ClearHistory(ctx context.Context, userID string) {
	s.coordinator.Clear(ctx, userID)
}

func toEntries(messages []domain.ChatMessage) []domain.HistoryEntry {
	entries := make([]domain.HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, domain.HistoryEntry{Role: msg.Role, Content: msg.Content})
	}
	return entries
}
