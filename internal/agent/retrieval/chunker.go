package retrieval

const (
	// Chunk sizing: overlapping slices in the 500-1000 character band
	// improve recall over whole-document embedding.
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 150
	minChunkSize        = 500
	maxChunkSize        = 1000
)

// ChunkText splits source text into overlapping chunks for indexing. Size is
// clamped into the supported band; overlap must stay below size.
func ChunkText(text string, size, overlap int) []string {
	if size < minChunkSize {
		size = minChunkSize
	}
	if size > maxChunkSize {
		size = maxChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	step := size - overlap
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
