package document

import "github.com/VaisnaviiMohanraj/RAI-V2-sub000/internal/domain"

// Default chunking parameters. A fact spanning a chunk boundary is retained
// by the overlap between consecutive chunks.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits extracted text into fixed-size overlapping chunks.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. Non-positive or inconsistent parameters fall
// back to the defaults.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 5
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split chunks text into overlapping segments with explicit order and
// offsets. The final chunk's EndOffset always equals len(text).
func (c *Chunker) Split(text string) []domain.Chunk {
	if text == "" {
		return nil
	}

	var chunks []domain.Chunk
	step := c.size - c.overlap
	for start, idx := 0, 0; start < len(text); start, idx = start+step, idx+1 {
		end := start + c.size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, domain.Chunk{
			Index:       idx,
			Content:     text[start:end],
			StartOffset: start,
			EndOffset:   end,
		})
		if end == len(text) {
			break
		}
	}

	return chunks
}
