package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkTextEmpty(t *testing.T) {
	t.Parallel()

	c := NewChunker(25, 5, 4.0)
	if got := c.ChunkText(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := c.ChunkText("   \n\t  "); got != nil {
		t.Fatalf("expected nil for whitespace input, got %v", got)
	}
}

func TestChunkTextShortSingleChunk(t *testing.T) {
	t.Parallel()

	c := NewChunker(25, 5, 4.0) // 100-char target
	got := c.ChunkText("a short\n document\twith   odd spacing")
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != "a short document with odd spacing" {
		t.Fatalf("whitespace not normalized: %q", got[0])
	}
}

func TestChunkTextSplitsOnWordBoundaries(t *testing.T) {
	t.Parallel()

	c := NewChunker(25, 5, 4.0)
	text := strings.Repeat("alpha ", 50)
	chunks := c.ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 100 {
			t.Fatalf("chunk %d exceeds target size: %d chars", i, len(chunk))
		}
		if !strings.HasSuffix(chunk, "alpha") {
			t.Fatalf("chunk %d cut mid-word: %q", i, chunk)
		}
	}
}

func TestChunkTextPrefersSentenceBoundary(t *testing.T) {
	t.Parallel()

	c := NewChunker(25, 5, 4.0)
	// A sentence end lands inside the last 20% of the first 100-char window.
	text := strings.Repeat("word ", 17) + "stop. " + strings.Repeat("tail ", 10)
	chunks := c.ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "stop.") {
		t.Fatalf("first chunk should end at the sentence boundary: %q", chunks[0])
	}
}

func TestChunkTextOverlap(t *testing.T) {
	t.Parallel()

	c := NewChunker(25, 5, 4.0) // 20 chars of overlap
	text := strings.Repeat("word ", 17) + "stop. " + strings.Repeat("tail ", 10)
	chunks := c.ChunkText(text)
	for i := 1; i < len(chunks); i++ {
		prefix := chunks[i]
		if len(prefix) > 10 {
			prefix = prefix[:10]
		}
		if !strings.Contains(chunks[i-1], prefix) {
			t.Fatalf("chunk %d does not overlap its predecessor: %q vs %q", i, prefix, chunks[i-1])
		}
	}
}

func TestChunkTextZeroOverlapStillAdvances(t *testing.T) {
	t.Parallel()

	c := NewChunker(25, 0, 4.0)
	text := strings.Repeat("beta ", 60)
	chunks := c.ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	joined := strings.Join(chunks, " ")
	want := strings.TrimSpace(text)
	if joined != want {
		t.Fatalf("non-overlapping chunks should cover the text exactly:\ngot  %q\nwant %q", joined, want)
	}
}

func TestNewChunkerDefaults(t *testing.T) {
	t.Parallel()

	c := NewChunker(0, -1, 0)
	if c.chunkChars != 2000 {
		t.Fatalf("default chunk size: got=%d want=2000", c.chunkChars)
	}
	if c.overlapChars != 400 {
		t.Fatalf("default overlap: got=%d want=400", c.overlapChars)
	}
}

func TestChunkTextKeepsMultibyteRunesIntact(t *testing.T) {
	t.Parallel()

	// Spaceless CJK text never offers a sentence or word separator, so every
	// cut falls back to the raw size limit.
	c := NewChunker(500, 100, 4.0)
	text := strings.Repeat("你好", 750)
	chunks := c.ChunkText(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d is not valid UTF-8 (len=%d)", i, len(chunk))
		}
		if len(chunk) > 2000 {
			t.Fatalf("chunk %d over size limit: got=%d", i, len(chunk))
		}
	}
}

func TestChunkTextOverlapStaysOnRuneBoundary(t *testing.T) {
	t.Parallel()

	c := NewChunker(100, 25, 4.0)
	text := strings.Repeat("あ", 400)
	for i, chunk := range c.ChunkText(text) {
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d is not valid UTF-8 (len=%d)", i, len(chunk))
		}
	}
}
