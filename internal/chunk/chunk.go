// Package chunk splits extracted document text into overlapping, ordered
// segments for embedding. The splitter is a pure transform: it knows nothing
// about embeddings or storage, and the same input with the same parameters
// always produces the same chunk sequence.
package chunk

import (
	"fmt"
	"strings"
)

// DefaultSize is the default target chunk size in characters.
const DefaultSize = 1000

// DefaultOverlap is the default number of characters shared between
// consecutive chunks.
const DefaultOverlap = 200

// Chunk is one bounded segment of a document's text. Index values are
// contiguous and start at 0.
type Chunk struct {
	Index int
	Text  string
}

// Splitter cuts text into chunks of roughly Size characters with Overlap
// characters repeated at every boundary. Cuts prefer paragraph, then
// sentence, then whitespace boundaries within a tolerance window below the
// target size, falling back to a hard cut when no boundary exists.
type Splitter struct {
	size      int
	overlap   int
	tolerance int
}

// New creates a Splitter. size must be positive and overlap small enough
// that every chunk advances past the previous one even after a
// boundary-preferring cut shortens it by up to size/5 characters.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", overlap)
	}
	tolerance := size / 5
	if overlap >= size-tolerance {
		return nil, fmt.Errorf("chunk overlap %d too large for size %d (must be below %d)",
			overlap, size, size-tolerance)
	}
	return &Splitter{size: size, overlap: overlap, tolerance: tolerance}, nil
}

// Split cuts text into chunks. Every character of text appears in at least
// one chunk; removing the first Overlap characters of each chunk after the
// first reconstructs the input exactly. Empty or whitespace-only input
// yields no chunks.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)

	chunks := make([]Chunk, 0, n/(s.size-s.overlap)+1)
	start := 0
	for {
		end := start + s.size
		if end >= n {
			end = n
		} else {
			end = s.cut(runes, start, end)
		}

		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  string(runes[start:end]),
		})

		if end == n {
			return chunks
		}
		start = end - s.overlap
	}
}

// Size returns the configured target chunk size.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured chunk overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// cut returns the cut position in (limit-tolerance, limit], preferring a
// paragraph break, then a sentence end, then any whitespace. The window is
// clamped so a chunk always contains at least one character.
func (s *Splitter) cut(runes []rune, start, limit int) int {
	low := limit - s.tolerance
	if low <= start {
		low = start + 1
	}

	// Paragraph boundary: position just after a blank line.
	for j := limit; j > low; j-- {
		if runes[j-1] == '\n' && j >= 2 && runes[j-2] == '\n' {
			return j
		}
	}

	// Sentence boundary: terminator followed by whitespace.
	for j := limit; j > low; j-- {
		if isSpace(runes[j-1]) && j >= 2 && isSentenceEnd(runes[j-2]) {
			return j
		}
	}

	// Any whitespace.
	for j := limit; j > low; j-- {
		if isSpace(runes[j-1]) {
			return j
		}
	}

	return limit
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
