package extract

import (
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// Chunk is one slice of a source document.
type Chunk struct {
	Text        string
	Index       int
	TotalChunks int
	Source      string
}

// Chunker splits text into overlapping rune windows. Text is NFC-normalized
// first so chunk boundaries are stable across differently-encoded sources,
// and oversized sources are truncated at a byte cap.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	maxSizeBytes int
}

// NewChunker builds a chunker. Size and overlap are in runes.
func NewChunker(chunkSize, chunkOverlap int, maxSizeMB float64) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	maxBytes := int(maxSizeMB * 1024 * 1024)
	if maxBytes <= 0 {
		maxBytes = 20 * 1024 * 1024
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		maxSizeBytes: maxBytes,
	}
}

// Split chunks one source document. Empty or whitespace-only text yields no
// chunks.
func (c *Chunker) Split(text, source string) []Chunk {
	text = norm.NFC.String(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	if len(text) > c.maxSizeBytes {
		zap.L().Warn("source truncated at size cap",
			zap.String("source", source),
			zap.Int("bytes", len(text)),
			zap.Int("cap", c.maxSizeBytes),
		)
		text = truncateValidUTF8(text, c.maxSizeBytes)
	}

	runes := []rune(text)
	step := c.chunkSize - c.chunkOverlap

	var chunks []Chunk
	for start := 0; start < len(runes); start += step {
		end := min(start+c.chunkSize, len(runes))

		piece := snapToBoundary(runes, start, end)
		if trimmed := strings.TrimSpace(piece); trimmed != "" {
			chunks = append(chunks, Chunk{Text: trimmed, Source: source})
		}
		if end == len(runes) {
			break
		}
	}

	for i := range chunks {
		chunks[i].Index = i
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks
}

// SplitAll chunks several documents, keyed by source.
func (c *Chunker) SplitAll(docs map[string]string) []Chunk {
	var all []Chunk
	for source, text := range docs {
		all = append(all, c.Split(text, source)...)
	}
	return all
}

// snapToBoundary backs the window end up to the last whitespace so words are
// not split mid-rune-sequence, unless that would shrink the chunk by more
// than a fifth.
func snapToBoundary(runes []rune, start, end int) string {
	if end >= len(runes) {
		return string(runes[start:end])
	}

	minEnd := start + (end-start)*4/5
	for i := end - 1; i > minEnd; i-- {
		if unicode.IsSpace(runes[i]) {
			return string(runes[start:i])
		}
	}
	return string(runes[start:end])
}

// truncateValidUTF8 cuts s at the largest rune boundary not exceeding n bytes.
func truncateValidUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
