package document

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyText(t *testing.T) {
	c := NewChunker(1000, 200)
	assert.Nil(t, c.Split(""))
}

func TestSplitShortText(t *testing.T) {
	c := NewChunker(1000, 200)

	chunks := c.Split("short document")

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "short document", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, len("short document"), chunks[0].EndOffset)
}

func TestSplitOverlapAndOffsets(t *testing.T) {
	c := NewChunker(1000, 200)
	text := strings.Repeat("abcdefghij", 250) // 2500 chars

	chunks := c.Split(text)

	require.GreaterOrEqual(t, len(chunks), 2)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, text[ch.StartOffset:ch.EndOffset], ch.Content)
		if i > 0 {
			prev := chunks[i-1]
			assert.Equal(t, prev.StartOffset+800, ch.StartOffset)
			assert.Equal(t, 200, prev.EndOffset-ch.StartOffset, "consecutive chunks overlap by exactly 200 characters")
		}
	}
	assert.Equal(t, len(text), chunks[len(chunks)-1].EndOffset)
}

func TestSplitRoundTrip(t *testing.T) {
	c := NewChunker(1000, 200)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 80) // 3600 chars

	chunks := c.Split(text)

	// Concatenating each chunk minus its overlap with the next reconstructs
	// the original text exactly.
	var sb strings.Builder
	for i, ch := range chunks {
		if i == len(chunks)-1 {
			sb.WriteString(ch.Content)
			break
		}
		sb.WriteString(ch.Content[:chunks[i+1].StartOffset-ch.StartOffset])
	}
	assert.Equal(t, text, sb.String())
}

func TestNewChunkerFallbacks(t *testing.T) {
	c := NewChunker(0, -1)
	assert.Equal(t, DefaultChunkSize, c.size)
	assert.Equal(t, DefaultChunkOverlap, c.overlap)

	c = NewChunker(100, 100)
	assert.Equal(t, 100, c.size)
	assert.Equal(t, 20, c.overlap)
}
