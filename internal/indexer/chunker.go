// Package indexer splits documents into chunks and ingests them into the vector store.
package indexer

import (
	"unicode"

	"github.com/ayush1014/CiteTalk-voice-Backend/internal/apperr"
	"github.com/ayush1014/CiteTalk-voice-Backend/internal/models"
)

// boundaryLevels lists separators from coarsest to finest. Text that has none of a level's
// separators falls through to the next level; after the last level it is cut per rune.
var boundaryLevels = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{" ", "\t"},
}

// Span is a half-open range of rune offsets into the chunked text.
type Span struct {
	Start int
	End   int
}

// Chunker splits text into overlapping chunks of at most chunkSize runes, preferring
// paragraph, line, sentence and word boundaries in that order.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap, both in characters.
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, apperr.ConfigurationError("indexer.NewChunker", "chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, apperr.ConfigurationError("indexer.NewChunker",
			"chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split returns the chunk texts in document order.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	spans := c.spans(runes)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = string(runes[s.Start:s.End])
	}
	return out
}

// Spans returns the rune ranges of each chunk. Ranges never start or end in whitespace.
func (c *Chunker) Spans(text string) []Span {
	return c.spans([]rune(text))
}

// Chunk splits text into Chunks for docID. IDs are left empty; the store assigns them.
func (c *Chunker) Chunk(docID, text string) []*models.Chunk {
	parts := c.Split(text)
	chunks := make([]*models.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = &models.Chunk{
			DocumentID: docID,
			Content:    p,
			ChunkIndex: i,
		}
	}
	return chunks
}

func (c *Chunker) spans(runes []rune) []Span {
	if len(runes) == 0 {
		return nil
	}
	pieces := c.split(runes, Span{0, len(runes)}, 0)
	return c.merge(runes, pieces)
}

// split cuts s into contiguous pieces no longer than chunkSize. A separator stays at the
// end of the piece it terminates, so the pieces tile s exactly.
func (c *Chunker) split(runes []rune, s Span, level int) []Span {
	if s.End-s.Start <= c.chunkSize {
		return []Span{s}
	}
	if level >= len(boundaryLevels) {
		out := make([]Span, 0, s.End-s.Start)
		for i := s.Start; i < s.End; i++ {
			out = append(out, Span{i, i + 1})
		}
		return out
	}

	var pieces []Span
	start := s.Start
	for i := s.Start; i < s.End; {
		if n := matchSeparator(runes, i, s.End, boundaryLevels[level]); n > 0 {
			pieces = append(pieces, Span{start, i + n})
			i += n
			start = i
			continue
		}
		i++
	}
	if start < s.End {
		pieces = append(pieces, Span{start, s.End})
	}
	if len(pieces) == 1 {
		return c.split(runes, s, level+1)
	}

	var out []Span
	for _, p := range pieces {
		if p.End-p.Start > c.chunkSize {
			out = append(out, c.split(runes, p, level+1)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// merge packs pieces into windows of at most chunkSize runes. When a window is emitted, its
// trailing pieces totalling at most chunkOverlap runes start the next one. A window that
// adds nothing past the previous chunk once trimmed is dropped.
func (c *Chunker) merge(runes []rune, pieces []Span) []Span {
	var (
		out    []Span
		window []Span
		total  int
	)
	emit := func() {
		if len(window) == 0 {
			return
		}
		s, ok := trimSpan(runes, Span{window[0].Start, window[len(window)-1].End})
		if !ok {
			return
		}
		if len(out) > 0 && s.End <= out[len(out)-1].End {
			return
		}
		out = append(out, s)
	}
	for _, p := range pieces {
		n := p.End - p.Start
		if total+n > c.chunkSize && len(window) > 0 {
			emit()
			for len(window) > 0 && (total > c.chunkOverlap || total+n > c.chunkSize) {
				total -= window[0].End - window[0].Start
				window = window[1:]
			}
		}
		window = append(window, p)
		total += n
	}
	emit()
	return out
}

func matchSeparator(runes []rune, i, end int, seps []string) int {
	for _, sep := range seps {
		n := 0
		for _, r := range sep {
			if i+n >= end || runes[i+n] != r {
				n = -1
				break
			}
			n++
		}
		if n > 0 {
			return n
		}
	}
	return 0
}

func trimSpan(runes []rune, s Span) (Span, bool) {
	for s.Start < s.End && unicode.IsSpace(runes[s.Start]) {
		s.Start++
	}
	for s.End > s.Start && unicode.IsSpace(runes[s.End-1]) {
		s.End--
	}
	return s, s.Start < s.End
}
