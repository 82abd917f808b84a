package domain

import "time"

// Document represents an uploaded document after text extraction and
// chunking. Never mutated after creation; a re-upload creates a new record.
type Document struct {
	ID             string    `json:"id"`
	UserID         string    `json:"-"`
	ConversationID string    `json:"conversationId"`
	FileName       string    `json:"fileName"`
	ContentType    string    `json:"contentType"`
	SizeBytes      int64     `json:"fileSize"`
	ExtractedText  string    `json:"-"`
	ChunkCount     int       `json:"chunkCount"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Chunk is a fixed-size, overlapping substring of extracted document text.
// Order is preserved via Index; offsets are byte positions into the
// extracted text.
type Chunk struct {
	Index       int    `json:"index"`
	Content     string `json:"content"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
}

// UploadResponse is the body returned by POST /document/upload.
type UploadResponse struct {
	DocumentID   string `json:"documentId,omitempty"`
	FileName     string `json:"fileName,omitempty"`
	FileSize     int64  `json:"fileSize,omitempty"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}
