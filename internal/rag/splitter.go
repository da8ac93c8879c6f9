// Package rag implements the retrieval pipeline: overlapping text chunking,
// a flat L2 vector index, a per-conversation document cache, and the
// retrieval step that assembles an augmented prompt from the nearest chunks.
package rag

import "strings"

// defaultSeparators is the split preference order, from the largest semantic
// unit to the smallest: paragraph, line, sentence, word, raw characters.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter cuts text into overlapping chunks of a bounded size, preferring
// splits at semantic boundaries so chunks stay coherent where possible.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter with the given target chunk size and
// overlap, both in characters. Overlap must be smaller than the chunk size.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split cuts text into chunks. Chunk order follows text order; adjacent
// chunks share up to the configured overlap.
func (s *Splitter) Split(text string) []string {
	pieces := s.decompose(text, s.separators)
	return s.merge(pieces)
}

// decompose recursively splits text into pieces no longer than chunkSize,
// trying each separator in preference order and hard-cutting as last resort.
func (s *Splitter) decompose(text string, separators []string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	if len(separators) == 0 || separators[0] == "" {
		var pieces []string
		for len(text) > s.chunkSize {
			pieces = append(pieces, text[:s.chunkSize])
			text = text[s.chunkSize:]
		}
		if text != "" {
			pieces = append(pieces, text)
		}
		return pieces
	}

	sep := separators[0]
	if !strings.Contains(text, sep) {
		return s.decompose(text, separators[1:])
	}

	var pieces []string
	// SplitAfter keeps each separator attached to its piece, so joining
	// pieces back reproduces the original text.
	for _, part := range strings.SplitAfter(text, sep) {
		pieces = append(pieces, s.decompose(part, separators[1:])...)
	}
	return pieces
}

// merge greedily packs pieces into chunks up to chunkSize, carrying trailing
// pieces into the next chunk until they fall under the overlap budget.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		chunk := strings.TrimSpace(strings.Join(window, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		if total > 0 && total+len(piece) > s.chunkSize {
			flush()
			for total > s.overlap && len(window) > 0 {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += len(piece)
	}
	flush()
	return chunks
}
