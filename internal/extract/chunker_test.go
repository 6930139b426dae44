package extract

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(1000, 200, 20)
	chunks := c.Split("a short document", "doc.txt")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "a short document" {
		t.Errorf("text = %q", chunks[0].Text)
	}
	if chunks[0].Index != 0 || chunks[0].TotalChunks != 1 {
		t.Errorf("index/total = %d/%d", chunks[0].Index, chunks[0].TotalChunks)
	}
	if chunks[0].Source != "doc.txt" {
		t.Errorf("source = %q", chunks[0].Source)
	}
}

func TestChunker_EmptyText(t *testing.T) {
	c := NewChunker(1000, 200, 20)
	if got := c.Split("", "doc.txt"); got != nil {
		t.Fatalf("empty text yielded %d chunks", len(got))
	}
	if got := c.Split("   \n\t  ", "doc.txt"); got != nil {
		t.Fatalf("whitespace text yielded %d chunks", len(got))
	}
}

func TestChunker_Overlap(t *testing.T) {
	// 25 words of 10 runes each, so boundaries land on whitespace.
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString("wordword" + string(rune('a'+i%26)) + " ")
	}
	text := strings.TrimSpace(b.String())

	c := NewChunker(100, 20, 20)
	chunks := c.Split(text, "doc.txt")
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}

	// Each chunk after the first starts inside the previous one.
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i].Text)[0]
		if !strings.Contains(chunks[i-1].Text, firstWord) {
			t.Errorf("chunk %d does not overlap previous: starts with %q", i, firstWord)
		}
	}

	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if ch.TotalChunks != len(chunks) {
			t.Errorf("chunk %d has total %d, want %d", i, ch.TotalChunks, len(chunks))
		}
	}
}

func TestChunker_SnapsToWhitespace(t *testing.T) {
	words := strings.Repeat("alpha bravo charlie delta ", 20)

	c := NewChunker(50, 10, 20)
	chunks := c.Split(strings.TrimSpace(words), "doc.txt")
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}

	// The window end snaps back to whitespace, so every non-final chunk ends
	// on a complete word.
	for i, ch := range chunks[:len(chunks)-1] {
		fields := strings.Fields(ch.Text)
		last := fields[len(fields)-1]
		switch last {
		case "alpha", "bravo", "charlie", "delta":
		default:
			t.Errorf("chunk %d ends mid-word: %q", i, last)
		}
	}
}

func TestChunker_NoBoundaryInUnbrokenText(t *testing.T) {
	// No whitespace at all: the chunker must still make progress.
	text := strings.Repeat("x", 250)
	c := NewChunker(100, 20, 20)
	chunks := c.Split(text, "doc.txt")
	if len(chunks) < 3 {
		t.Fatalf("got %d chunks, want at least 3", len(chunks))
	}
	total := 0
	for _, ch := range chunks {
		total += len(ch.Text)
	}
	if total < 250 {
		t.Errorf("chunks cover %d runes, want at least 250", total)
	}
}

func TestChunker_SizeCapTruncatesOnRuneBoundary(t *testing.T) {
	// Multi-byte runes around the cap must not be split.
	text := strings.Repeat("é", 100)
	c := NewChunker(1000, 200, 0.0001) // ~104 bytes
	chunks := c.Split(text, "doc.txt")
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	for i, ch := range chunks {
		if !utf8.ValidString(ch.Text) {
			t.Errorf("chunk %d contains invalid UTF-8", i)
		}
	}
}

func TestChunker_DefaultsOnBadArgs(t *testing.T) {
	c := NewChunker(0, -1, 0)
	if c.chunkSize != 1000 {
		t.Errorf("chunkSize = %d", c.chunkSize)
	}
	if c.chunkOverlap != 200 {
		t.Errorf("chunkOverlap = %d", c.chunkOverlap)
	}
	if c.maxSizeBytes != 20*1024*1024 {
		t.Errorf("maxSizeBytes = %d", c.maxSizeBytes)
	}

	// Overlap >= size would loop forever; it must be reset.
	c = NewChunker(100, 100, 20)
	if c.chunkOverlap != 20 {
		t.Errorf("chunkOverlap = %d, want 20", c.chunkOverlap)
	}
}

func TestChunker_SplitAll(t *testing.T) {
	c := NewChunker(1000, 200, 20)
	chunks := c.SplitAll(map[string]string{
		"a.txt": "first document",
		"b.txt": "second document",
		"c.txt": "",
	})
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	sources := map[string]bool{}
	for _, ch := range chunks {
		sources[ch.Source] = true
	}
	if !sources["a.txt"] || !sources["b.txt"] {
		t.Errorf("sources = %v", sources)
	}
}

func TestTruncateValidUTF8(t *testing.T) {
	cases := []struct {
		s    string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello", 3, "hel"},
		{"héllo", 2, "h"}, // é is 2 bytes starting at index 1
		{"héllo", 3, "hé"},
	}
	for _, tc := range cases {
		if got := truncateValidUTF8(tc.s, tc.n); got != tc.want {
			t.Errorf("truncateValidUTF8(%q, %d) = %q, want %q", tc.s, tc.n, got, tc.want)
		}
	}
}
