package chat

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/api/middleware"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/service"
)

// Handler handles chat API requests.
type Handler struct {
	chatService *service.ChatService
}

// NewHandler creates a new chat handler.
func NewHandler(chatService *service.ChatService) *Handler {
	return &Handler{chatService: chatService}
}

// RegisterRoutes registers chat routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/message", h.Send)
	r.POST("/send", h.Send) // alias kept for older clients
	r.POST("/stream", h.Stream)

	r.GET("/sessions", h.ListSessions)
	r.POST("/sessions", h.CreateSession)
	r.GET("/sessions/:id/messages", h.SessionMessages)
	r.GET("/history/:id", h.SessionMessages) // alias kept for older clients
	r.DELETE("/sessions/:id", h.DeleteSession)

	// Legacy whole-user history endpoints.
	r.GET("/history", h.History)
	r.DELETE("/history", h.ClearHistory)
}

// Send handles a buffered chat message.
func (h *Handler) Send(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.chatService.Send(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Stream handles a streaming chat message. The response is raw text chunks,
// written as produced, with no framing.
func (h *Handler) Stream(c *gin.Context) {
	var req domain.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")

	flusher, _ := c.Writer.(http.Flusher)

	h.chatService.Stream(c.Request.Context(), middleware.UserID(c), &req,
		func(token string) {
			c.Header("X-Conversation-Id", token)
			c.Writer.WriteHeader(http.StatusOK)
		},
		func(delta string) error {
			if _, err := c.Writer.WriteString(delta); err != nil {
				return err
			}
			if flusher != nil {
				flusher.Flush()
			}
			return nil
		})
}

// ListSessions lists the user's conversations.
func (h *Handler) ListSessions(c *gin.Context) {
	sessions := h.chatService.Sessions(c.Request.Context(), middleware.UserID(c))
	c.JSON(http.StatusOK, sessions)
}

// CreateSession creates a new, empty session descriptor.
func (h *Handler) CreateSession(c *gin.Context) {
	var req domain.CreateSessionRequest
	if c.Request.Body != nil {
		// Body is optional.
		_ = c.ShouldBindJSON(&req)
	}

	descriptor := h.chatService.CreateSession(c.Request.Context(), middleware.UserID(c), req.Title)
	c.JSON(http.StatusOK, descriptor)
}

// SessionMessages returns the ordered turns of one conversation.
func (h *Handler) SessionMessages(c *gin.Context) {
	entries := h.chatService.SessionMessages(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	c.JSON(http.StatusOK, entries)
}

// DeleteSession deletes a conversation, cascading to its documents.
func (h *Handler) DeleteSession(c *gin.Context) {
	err := h.chatService.DeleteSession(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err == domain.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "session deleted"})
}

// History returns the user's whole cached history. Legacy endpoint: must
// degrade to an empty list rather than erroring.
func (h *Handler) History(c *gin.Context) {
	c.JSON(http.StatusOK, h.chatService.History(c.Request.Context(), middleware.UserID(c)))
}

// ClearHistory clears the user's cached history. Legacy endpoint: always
// succeeds.
func (h *Handler) ClearHistory(c *gin.Context) {
	h.chatService.ClearHistory(c.Request.Context(), middleware.UserID(c))
	c.JSON(http.StatusOK, gin.H{"message": "history cleared"})
}
