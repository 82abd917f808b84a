package service

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/document"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/repository"
)

// DocumentService is the document store: upload validation, text extraction,
// chunking, context retrieval, and deletion.
type DocumentService struct {
	repo          *repository.DocumentRepository
	validator     *document.Validator
	extractors    *document.ExtractorSet
	chunker       *document.Chunker
	storageDir    string
	contextChunks int
	logger        *zap.Logger
}

// NewDocumentService creates a document service.
func NewDocumentService(
	repo *repository.DocumentRepository,
	validator *document.Validator,
	extractors *document.ExtractorSet,
	chunker *document.Chunker,
	storageDir string,
	contextChunks int,
	logger *zap.Logger,
) *DocumentService {
	if contextChunks <= 0 {
		contextChunks = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		repo:          repo,
		validator:     validator,
		extractors:    extractors,
		chunker:       chunker,
		storageDir:    storageDir,
		contextChunks: contextChunks,
		logger:        logger,
	}
}

// Upload validates, stores, extracts and chunks an uploaded file. Extraction
// failure is not fatal: the record is stored with empty text.
func (s *DocumentService) Upload(ctx context.Context, file *multipart.FileHeader, userID, conversationID string) (*domain.Document, error) {
	contentType := file.Header.Get("Content-Type")
	if err := s.validator.Validate(file.Filename, contentType, file.Size); err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	extracted, err := s.extractors.Extract(file.Filename, data)
	if err != nil {
		// A document can exist with no usable content.
		s.logger.Warn("text extraction failed, storing document without text",
			zap.String("file", file.Filename), zap.Error(err))
		extracted = ""
	}

	doc := &domain.Document{
		UserID:         userID,
		ConversationID: conversationID,
		FileName:       file.Filename,
		ContentType:    contentType,
		SizeBytes:      file.Size,
		ExtractedText:  extracted,
	}

	chunks := s.chunker.Split(extracted)
	if err := s.repo.Create(doc, chunks); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	if err := s.writeFile(doc, data); err != nil {
		s.logger.Warn("failed to store original file bytes",
			zap.String("document", doc.ID), zap.Error(err))
	}

	return doc, nil
}

func (s *DocumentService) writeFile(doc *domain.Document, data []byte) error {
	if s.storageDir == "" {
		return nil
	}
	if err := os.MkdirAll(s.storageDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.filePath(doc.ID, doc.FileName), data, 0644)
}

func (s *DocumentService) filePath(docID, fileName string) string {
	return filepath.Join(s.storageDir, docID+strings.ToLower(filepath.Ext(fileName)))
}

// List lists a user's documents, scoped to one conversation when
// conversationID is non-empty.
func (s *DocumentService) List(ctx context.Context, userID, conversationID string) ([]*domain.Document, error) {
	if conversationID == "" {
		return s.repo.ListByUser(userID)
	}
	return s.repo.ListByConversation(userID, conversationID)
}

// Delete removes one document and its stored file. Returns
// domain.ErrNotFound when the document does not exist for this user.
func (s *DocumentService) Delete(ctx context.Context, userID, id string) error {
	doc, err := s.repo.Get(id, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return domain.ErrNotFound
	}

	if err := s.repo.Delete(id, userID); err != nil {
		return err
	}

	if s.storageDir != "" {
		if err := os.Remove(s.filePath(doc.ID, doc.FileName)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove stored file", zap.String("document", id), zap.Error(err))
		}
	}

	return nil
}

// DeleteByConversation cascade-deletes every document of one conversation.
// Returns the number of documents removed.
func (s *DocumentService) DeleteByConversation(ctx context.Context, userID, conversationID string) (int, error) {
	docs, err := s.repo.ListByConversation(userID, conversationID)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, doc := range docs {
		if err := s.Delete(ctx, userID, doc.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// GetContext builds the document-context block for the given IDs, capped to
// the first chunks of each document. IDs owned by another user or unknown
// are skipped.
func (s *DocumentService) GetContext(ctx context.Context, documentIDs []string, userID string) (string, error) {
	var blocks []string
	for _, id := range documentIDs {
		doc, err := s.repo.Get(id, userID)
		if err != nil {
			return "", err
		}
		if doc == nil {
			continue
		}

		chunks, err := s.repo.Chunks(doc.ID, s.contextChunks)
		if err != nil {
			return "", err
		}
		if len(chunks) == 0 {
			continue
		}

		var sb strings.Builder
		sb.WriteString("[" + doc.FileName + "]\n")
		for i, c := range chunks {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(c.Content)
		}
		blocks = append(blocks, sb.String())
	}

	return strings.Join(blocks, "\n\n"), nil
}

// FilterDeletedReferences re-checks the document IDs referenced by a replayed
// message. When all are gone the context preamble is stripped entirely; when
// some survive the context block is rebuilt from the survivors only.
func (s *DocumentService) FilterDeletedReferences(ctx context.Context, content string, documentIDs []string, userID string) string {
	if len(documentIDs) == 0 {
		return content
	}

	existing, err := s.repo.Existing(documentIDs, userID)
	if err != nil {
		s.logger.Warn("failed to check document references", zap.Error(err))
		return content
	}
	if len(existing) == len(documentIDs) {
		return content
	}

	question := document.Question(content)
	if len(existing) == 0 {
		return question
	}

	rebuilt, err := s.GetContext(ctx, existing, userID)
	if err != nil {
		s.logger.Warn("failed to rebuild document context", zap.Error(err))
		return question
	}
	return document.Compose(rebuilt, question)
}
