package document

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/api/middleware"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/service"
)

// Handler handles document API requests.
type Handler struct {
	documentService *service.DocumentService
}

// NewHandler creates a new document handler.
func NewHandler(documentService *service.DocumentService) *Handler {
	return &Handler{documentService: documentService}
}

// RegisterRoutes registers document routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/upload", h.Upload)
	r.GET("", h.List)
	r.DELETE("/:id", h.Delete)
}

// Upload handles a multipart document upload.
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, domain.UploadResponse{
			Success:      false,
			ErrorMessage: "file is required",
		})
		return
	}

	conversationID := c.PostForm("conversationId")

	doc, err := h.documentService.Upload(c.Request.Context(), file, middleware.UserID(c), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		c.JSON(status, domain.UploadResponse{
			Success:      false,
			ErrorMessage: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, domain.UploadResponse{
		DocumentID: doc.ID,
		FileName:   doc.FileName,
		FileSize:   doc.SizeBytes,
		Success:    true,
	})
}

// List lists the user's documents, scoped to a conversation when the
// conversationId query parameter is present.
func (h *Handler) List(c *gin.Context) {
	docs, err := h.documentService.List(c.Request.Context(), middleware.UserID(c), c.Query("conversationId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}

	c.JSON(http.StatusOK, docs)
}

// Delete removes one document.
func (h *Handler) Delete(c *gin.Context) {
	err := h.documentService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
}
