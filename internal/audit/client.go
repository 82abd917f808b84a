// Package audit talks to the external conversation-persistence function.
// It is a best-effort audit trail: callers never fail a user-visible chat
// request over an error from this package.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
)

// Config holds the audit function settings.
type Config struct {
	BaseURL    string
	AccessCode string
	Timeout    time.Duration
}

// Client is an HTTP client for the conversation-audit function.
type Client struct {
	baseURL    string
	accessCode string
	httpClient *http.Client
}

// NewClient creates an audit client. An empty base URL yields a client whose
// calls all return domain.ErrNotConfigured; the rest of the system degrades
// to cache-only operation.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accessCode: cfg.AccessCode,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the audit function is reachable by
// configuration.
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

type storedMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type saveRequest struct {
	UserID         string          `json:"userId"`
	ConversationID string          `json:"conversationId,omitempty"`
	Messages       []storedMessage `json:"messages"`
}

type saveResponse struct {
	ConversationID string `json:"conversationId"`
}

type loadResponse struct {
	ConversationID string          `json:"conversationId"`
	Messages       []storedMessage `json:"messages"`
}

// Save sends the full message list to the audit function. A nil or empty
// canonicalID requests create semantics; otherwise the existing record is
// updated. Returns the canonical conversation identifier assigned by the
// service.
func (c *Client) Save(ctx context.Context, userID string, messages []domain.ChatMessage, canonicalID string) (string, error) {
	if !c.Configured() {
		return "", domain.ErrNotConfigured
	}

	req := saveRequest{
		UserID:         userID,
		ConversationID: canonicalID,
		Messages:       make([]storedMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, storedMessage{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.Timestamp,
		})
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode save request: %w", err)
	}

	var resp saveResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("/api/conversations", nil), bytes.NewReader(body), &resp); err != nil {
		return "", err
	}

	return resp.ConversationID, nil
}

// LoadHistory retrieves the ordered message list for a conversation,
// addressed by canonical identifier or client session token. An unknown
// conversation returns an empty list, not an error.
func (c *Client) LoadHistory(ctx context.Context, userID, idOrToken string) ([]domain.ChatMessage, error) {
	if !c.Configured() {
		return nil, domain.ErrNotConfigured
	}

	query := url.Values{"userId": {userID}}
	var resp loadResponse
	err := c.do(ctx, http.MethodGet, c.endpoint("/api/conversations/"+url.PathEscape(idOrToken), query), nil, &resp)
	if err == errNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	messages := make([]domain.ChatMessage, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		messages = append(messages, domain.ChatMessage{
			ID:        uuid.New().String(),
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return messages, nil
}

// ListSessions lists conversation summaries for a user. Callers degrade to
// an empty list on error.
func (c *Client) ListSessions(ctx context.Context, userID string) ([]domain.SessionDescriptor, error) {
	if !c.Configured() {
		return nil, domain.ErrNotConfigured
	}

	query := url.Values{"userId": {userID}}
	var sessions []domain.SessionDescriptor
	if err := c.do(ctx, http.MethodGet, c.endpoint("/api/conversations", query), nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes a conversation record. Returns domain.ErrNotFound
// when the service does not know the conversation.
func (c *Client) DeleteSession(ctx context.Context, userID, id string) error {
	if !c.Configured() {
		return domain.ErrNotConfigured
	}

	query := url.Values{"userId": {userID}}
	err := c.do(ctx, http.MethodDelete, c.endpoint("/api/conversations/"+url.PathEscape(id), query), nil, nil)
	if err == errNotFound {
		return domain.ErrNotFound
	}
	return err
}

var errNotFound = fmt.Errorf("audit: not found")

func (c *Client) endpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	if c.accessCode != "" {
		query.Set("code", c.accessCode)
	}
	u := c.baseURL + path
	if encoded := query.Encode(); encoded != "" {
		u += "?" + encoded
	}
	return u
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to build audit request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("audit request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("audit service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode audit response: %w", err)
	}
	return nil
}
