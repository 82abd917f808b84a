package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/document"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/llm"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/repository"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/service"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/session"
)

// stubGenerator returns a fixed reply, buffered or chunked.
type stubGenerator struct {
	reply  string
	chunks []string
	err    error
}

func (g *stubGenerator) Chat(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *stubGenerator) Stream(ctx context.Context, systemPrompt string, messages []domain.ChatMessage) (<-chan llm.Delta, error) {
	if g.err != nil {
		return nil, g.err
	}
	ch := make(chan llm.Delta, len(g.chunks))
	for _, c := range g.chunks {
		ch <- llm.Delta{Content: c}
	}
	close(ch)
	return ch, nil
}

// stubAuditor records saves and can be forced to fail.
type stubAuditor struct {
	saveErr  error
	sessions []domain.SessionDescriptor
	listErr  error
}

func (a *stubAuditor) Configured() bool { return true }

func (a *stubAuditor) Save(ctx context.Context, userID string, messages []domain.ChatMessage, canonicalID string) (string, error) {
	if a.saveErr != nil {
		return "", a.saveErr
	}
	return "db-uuid-1", nil
}

func (a *stubAuditor) ListSessions(ctx context.Context, userID string) ([]domain.SessionDescriptor, error) {
	return a.sessions, a.listErr
}

func (a *stubAuditor) DeleteSession(ctx context.Context, userID, id string) error {
	return domain.ErrNotFound
}

func newTestRouter(t *testing.T, gen service.Generator, aud service.Auditor) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewDocumentRepository(db)

	store, err := session.NewStore(session.StoreTypeMemory)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	coordinator := session.NewCoordinator(store, nil, 10, nil)

	docs := service.NewDocumentService(repo,
		document.NewValidator(nil, 0),
		document.NewExtractorSet(),
		document.NewChunker(1000, 200),
		"", 3, nil)
	chat := service.NewChatService(coordinator, docs, gen, aud, "You are a helpful assistant.", nil)

	return SetupRouter(chat, docs, RouterConfig{
		AuthRequired:        false,
		GeneratorConfigured: gen != nil,
		AuditConfigured:     aud != nil,
	})
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{reply: "ok"}, nil)

	w := get(t, r, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["generator"])
	assert.Equal(t, false, body["audit"])
}

func TestChatNewConversationRoundTrip(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{reply: "canned reply"}, nil)

	w := postJSON(t, r, "/chat/message", domain.ChatRequest{Message: "hello"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "canned reply", resp.Content)
	require.True(t, strings.HasPrefix(resp.ConversationID, "conv_anonymous_"))

	// The new conversation is addressable by the returned token.
	w = get(t, r, "/chat/sessions/"+resp.ConversationID+"/messages")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []domain.HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, domain.RoleUser, entries[0].Role)
	assert.Equal(t, "hello", entries[0].Content)
	assert.Equal(t, domain.RoleAssistant, entries[1].Role)
	assert.Equal(t, "canned reply", entries[1].Content)
}

func TestChatContinuesConversation(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{reply: "reply"}, nil)

	w := postJSON(t, r, "/chat/message", domain.ChatRequest{Message: "first"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	w = postJSON(t, r, "/chat/message", domain.ChatRequest{
		Message:        "second",
		ConversationID: resp.ConversationID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = get(t, r, "/chat/sessions/"+resp.ConversationID+"/messages")
	var entries []domain.HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 4)
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{reply: "reply"}, nil)

	w := postJSON(t, r, "/chat/message", map[string]string{"message": ""})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatSucceedsWhenAuditSaveFails(t *testing.T) {
	aud := &stubAuditor{saveErr: errors.New("audit service down")}
	r := newTestRouter(t, &stubGenerator{reply: "still works"}, aud)

	w := postJSON(t, r, "/chat/message", domain.ChatRequest{Message: "hello"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "still works", resp.Content)
	assert.NotEmpty(t, resp.ConversationID)
}

func TestChatDegradesWhenGeneratorFails(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{err: errors.New("upstream 500")}, nil)

	w := postJSON(t, r, "/chat/message", domain.ChatRequest{Message: "hello"})

	// Generation failure renders as assistant content, not an error status.
	require.Equal(t, http.StatusOK, w.Code)
	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Content)
}

func TestChatDegradesWhenGeneratorUnconfigured(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	w := postJSON(t, r, "/chat/message", domain.ChatRequest{Message: "hello"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Content)
}

func TestChatStream(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{chunks: []string{"Hello ", "world"}}, nil)

	w := postJSON(t, r, "/chat/stream", domain.ChatRequest{Message: "hi"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello world", w.Body.String())
	token := w.Header().Get("X-Conversation-Id")
	require.True(t, strings.HasPrefix(token, "conv_anonymous_"))

	// The streamed reply lands in the conversation history.
	w = get(t, r, "/chat/sessions/"+token+"/messages")
	var entries []domain.HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Hello world", entries[1].Content)
}

func TestListSessionsDegradesToEmpty(t *testing.T) {
	aud := &stubAuditor{listErr: errors.New("audit service down")}
	r := newTestRouter(t, &stubGenerator{reply: "r"}, aud)

	w := get(t, r, "/chat/sessions")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestListSessionsDerivesTitles(t *testing.T) {
	aud := &stubAuditor{sessions: []domain.SessionDescriptor{
		{ID: "db-uuid-1", LastMessage: "what is the security deposit?"},
		{ID: "db-uuid-2"},
	}}
	r := newTestRouter(t, &stubGenerator{reply: "r"}, aud)

	w := get(t, r, "/chat/sessions")

	require.Equal(t, http.StatusOK, w.Code)
	var sessions []domain.SessionDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessions))
	require.Len(t, sessions, 2)
	assert.Equal(t, "what is the security deposit?", sessions[0].Title)
	assert.Equal(t, "New Conversation", sessions[1].Title)
}

func TestCreateSession(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{reply: "r"}, nil)

	w := postJSON(t, r, "/chat/sessions", domain.CreateSessionRequest{})

	require.Equal(t, http.StatusOK, w.Code)
	var descriptor domain.SessionDescriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &descriptor))
	assert.True(t, strings.HasPrefix(descriptor.ID, "conv_anonymous_"))
	assert.Equal(t, "New Conversation", descriptor.Title)
}

func TestDeleteUnknownSession(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{reply: "r"}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/chat/sessions/conv_anonymous_999", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSessionCascadesDocuments(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{reply: "r"}, nil)

	w := postJSON(t, r, "/chat/message", domain.ChatRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp domain.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	token := resp.ConversationID

	upload := uploadFile(t, r, "lease.pdf", []byte("%PDF-1.4 not really a pdf"), token)
	require.Equal(t, http.StatusOK, upload.Code)
	var uploaded domain.UploadResponse
	require.NoError(t, json.Unmarshal(upload.Body.Bytes(), &uploaded))
	require.True(t, uploaded.Success)

	w = get(t, r, "/document?conversationId="+token)
	require.Equal(t, http.StatusOK, w.Code)
	var docs []domain.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	require.Len(t, docs, 1)

	req := httptest.NewRequest(http.MethodDelete, "/chat/sessions/"+token, nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = get(t, r, "/document?conversationId="+token)
	require.Equal(t, http.StatusOK, w.Code)
	docs = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &docs))
	assert.Empty(t, docs)

	// The conversation's cached history is gone too.
	w = get(t, r, "/chat/sessions/"+token+"/messages")
	var entries []domain.HistoryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Empty(t, entries)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{reply: "r"}, nil)

	w := uploadFile(t, r, "malware.exe", []byte("MZ"), "conv_anonymous_1")

	require.Equal(t, http.StatusBadRequest, w.Code)
	var resp domain.UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.ErrorMessage)
}

func TestDeleteUnknownDocument(t *testing.T) {
	r := newTestRouter(t, &stubGenerator{reply: "r"}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/document/no-such-id", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func uploadFile(t *testing.T, r *gin.Engine, name string, content []byte, conversationID string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("conversationId", conversationID))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/document/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
