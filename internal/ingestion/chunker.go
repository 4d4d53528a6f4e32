// Package ingestion turns uploaded documents into stored, embedded knowledge
// chunks.
package ingestion

import (
	"strings"
	"unicode/utf8"
)

// Chunker splits text into overlapping chunks sized by an approximate
// character-per-token estimate. Token-accurate chunking is intentionally out
// of scope; four characters per token is close enough for retrieval.
type Chunker struct {
	chunkChars   int
	overlapChars int
}

// NewChunker takes a target size and overlap in approximate tokens.
func NewChunker(chunkTokens, overlapTokens int, charsPerToken float64) *Chunker {
	if chunkTokens <= 0 {
		chunkTokens = 500
	}
	if overlapTokens < 0 {
		overlapTokens = 100
	}
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return &Chunker{
		chunkChars:   int(float64(chunkTokens) * charsPerToken),
		overlapChars: int(float64(overlapTokens) * charsPerToken),
	}
}

// ChunkText normalizes whitespace and splits text into overlapping chunks,
// preferring sentence boundaries near the end of each chunk.
func (c *Chunker) ChunkText(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	if len(text) <= c.chunkChars {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + c.chunkChars
		if end >= len(text) {
			if tail := strings.TrimSpace(text[start:]); tail != "" {
				chunks = append(chunks, tail)
			}
			break
		}

		if bp := findBreakPoint(text[start:end]); bp > 0 {
			end = start + bp
		} else {
			// No separator in range, common for spaceless scripts. The
			// cut must still land on a rune boundary.
			end = alignRune(text, end)
			if end <= start {
				_, n := utf8.DecodeRuneInString(text[start:])
				end = start + n
			}
		}
		if chunk := strings.TrimSpace(text[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := alignRune(text, end-c.overlapChars)
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// alignRune backs a byte offset off to the start of the rune containing it.
func alignRune(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

var sentenceSeps = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
var wordSeps = []string{" ", "\n", "\t"}

// findBreakPoint searches the last 20% of a chunk for a sentence boundary,
// falling back to a word boundary. Returns 0 when nothing suitable exists.
func findBreakPoint(text string) int {
	searchStart := len(text) * 8 / 10
	searchText := text[searchStart:]

	for _, sep := range sentenceSeps {
		if idx := strings.LastIndex(searchText, sep); idx != -1 {
			return searchStart + idx + len(sep)
		}
	}
	for _, sep := range wordSeps {
		if idx := strings.LastIndex(searchText, sep); idx != -1 {
			return searchStart + idx + 1
		}
	}
	return 0
}
