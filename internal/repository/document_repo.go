package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"
)

// DocumentRepository handles document and chunk persistence. Every lookup
// carries the owning user identifier: rows belonging to another user behave
// as if they do not exist.
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new document repository.
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a document together with its chunks in one transaction.
func (r *DocumentRepository) Create(doc *domain.Document, chunks []domain.Chunk) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.CreatedAt = time.Now()
	doc.ChunkCount = len(chunks)

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO documents (id, user_id, conversation_id, file_name, content_type, size_bytes, extracted_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.UserID, doc.ConversationID, doc.FileName, doc.ContentType,
		doc.SizeBytes, doc.ExtractedText, doc.CreatedAt)
	if err != nil {
		return err
	}

	for _, c := range chunks {
		_, err = tx.Exec(`
			INSERT INTO chunks (document_id, idx, content, start_offset, end_offset)
			VALUES (?, ?, ?, ?, ?)
		`, doc.ID, c.Index, c.Content, c.StartOffset, c.EndOffset)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Get retrieves a document owned by the given user, or nil if absent.
func (r *DocumentRepository) Get(id, userID string) (*domain.Document, error) {
	doc := &domain.Document{}
	var extracted sql.NullString

	err := r.db.QueryRow(`
		SELECT d.id, d.user_id, d.conversation_id, d.file_name, d.content_type,
		       d.size_bytes, d.extracted_text, d.created_at,
		       (SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)
		FROM documents d WHERE d.id = ? AND d.user_id = ?
	`, id, userID).Scan(&doc.ID, &doc.UserID, &doc.ConversationID, &doc.FileName,
		&doc.ContentType, &doc.SizeBytes, &extracted, &doc.CreatedAt, &doc.ChunkCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if extracted.Valid {
		doc.ExtractedText = extracted.String
	}

	return doc, nil
}

// ListByConversation lists documents for one conversation of one user.
func (r *DocumentRepository) ListByConversation(userID, conversationID string) ([]*domain.Document, error) {
	return r.list(`
		SELECT d.id, d.user_id, d.conversation_id, d.file_name, d.content_type,
		       d.size_bytes, d.created_at,
		       (SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)
		FROM documents d WHERE d.user_id = ? AND d.conversation_id = ?
		ORDER BY d.created_at ASC
	`, userID, conversationID)
}

// ListByUser lists every document owned by the user. Legacy mode, kept for
// the unscoped document listing endpoint.
func (r *DocumentRepository) ListByUser(userID string) ([]*domain.Document, error) {
	return r.list(`
		SELECT d.id, d.user_id, d.conversation_id, d.file_name, d.content_type,
		       d.size_bytes, d.created_at,
		       (SELECT COUNT(*) FROM chunks c WHERE c.document_id = d.id)
		FROM documents d WHERE d.user_id = ?
		ORDER BY d.created_at ASC
	`, userID)
}

func (r *DocumentRepository) list(query string, args ...any) ([]*domain.Document, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []*domain.Document{}
	for rows.Next() {
		doc := &domain.Document{}
		if err := rows.Scan(&doc.ID, &doc.UserID, &doc.ConversationID, &doc.FileName,
			&doc.ContentType, &doc.SizeBytes, &doc.CreatedAt, &doc.ChunkCount); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

// Existing filters the given IDs down to those that exist and belong to the
// user, preserving input order.
func (r *DocumentRepository) Existing(ids []string, userID string) ([]string, error) {
	existing := []string{}
	for _, id := range ids {
		var found string
		err := r.db.QueryRow(`SELECT id FROM documents WHERE id = ? AND user_id = ?`, id, userID).Scan(&found)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		existing = append(existing, found)
	}
	return existing, nil
}

// Chunks returns up to limit chunks of a document in index order. A limit of
// zero or less returns all chunks.
func (r *DocumentRepository) Chunks(documentID string, limit int) ([]domain.Chunk, error) {
	query := `
		SELECT idx, content, start_offset, end_offset
		FROM chunks WHERE document_id = ?
		ORDER BY idx ASC
	`
	args := []any{documentID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.Index, &c.Content, &c.StartOffset, &c.EndOffset); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

// Delete removes a document owned by the user. Returns domain.ErrNotFound
// when no such row exists.
func (r *DocumentRepository) Delete(id, userID string) error {
	res, err := r.db.Exec(`DELETE FROM documents WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteByConversation removes every document of one conversation. Returns
// the IDs that were removed so the caller can clean up stored files.
func (r *DocumentRepository) DeleteByConversation(userID, conversationID string) ([]string, error) {
	docs, err := r.ListByConversation(userID, conversationID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if err := r.Delete(doc.ID, userID); err != nil {
			return ids, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}
