package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkTextShortInputIsSingleChunk(t *testing.T) {
	text := strings.Repeat("a", 300)
	chunks := ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)

	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestChunkTextEmptyInput(t *testing.T) {
	assert.Nil(t, ChunkText("", DefaultChunkSize, DefaultChunkOverlap))
}

func TestChunkTextOverlappingWindows(t *testing.T) {
	text := strings.Repeat("x", 2000)
	chunks := ChunkText(text, 800, 150)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 800)
	assert.Len(t, chunks[1], 800)
	// last chunk carries the remainder
	assert.Len(t, chunks[2], 2000-2*650)
}

func TestChunkTextCoversWholeInput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 3000; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	text := b.String()

	chunks := ChunkText(text, 700, 100)
	require.NotEmpty(t, chunks)

	// Reassembling with the overlap stripped must reproduce the input.
	var joined strings.Builder
	joined.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		joined.WriteString(c[100:])
	}
	assert.Equal(t, text, joined.String())
}

func TestChunkTextClampsSizeBand(t *testing.T) {
	text := strings.Repeat("y", 1200)

	// Requested size below the band is raised to the minimum.
	chunks := ChunkText(text, 100, 10)
	require.NotEmpty(t, chunks)
	assert.Len(t, chunks[0], 500)

	// Requested size above the band is lowered to the maximum.
	chunks = ChunkText(text, 5000, 10)
	require.NotEmpty(t, chunks)
	assert.Len(t, chunks[0], 1000)
}
