package chunker

import (
	"strings"
)

// defaultSeparators is ordered coarsest-first: paragraphs, lines, sentence
// ends, words, then single characters as the last resort.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Options controls how text is chunked.
type Options struct {
	Size      int // max characters per chunk
	Overlap   int // approximate characters shared by consecutive chunks
	MaxChunks int // hard cap on chunk count; the tail is dropped silently
}

// Chunk represents a slice of the document text.
type Chunk struct {
	Index int
	Text  string
	Size  int
}

// ChunkText splits text into bounded, overlapping segments. It recursively
// tries each separator in order and keeps the coarsest one that still fits
// the size bound, so paragraph and sentence structure survives where it can.
// Empty or whitespace-only input yields no chunks.
func ChunkText(text string, opts Options) []Chunk {
	if opts.Size <= 0 {
		opts.Size = 1000
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}
	if opts.Overlap >= opts.Size {
		opts.Overlap = opts.Size / 2
	}

	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := split(text, defaultSeparators, opts.Size, opts.Overlap)
	if opts.MaxChunks > 0 && len(pieces) > opts.MaxChunks {
		pieces = pieces[:opts.MaxChunks]
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, Chunk{Index: len(chunks), Text: p, Size: len(p)})
	}
	return chunks
}

func split(text string, separators []string, size, overlap int) []string {
	separator := separators[len(separators)-1]
	var remaining []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			remaining = separators[i+1:]
			break
		}
	}

	var out []string
	var good []string
	for _, piece := range splitOn(text, separator) {
		if len(piece) < size {
			good = append(good, piece)
			continue
		}
		// Piece is too large for this separator level: flush what fits,
		// then descend to a finer separator.
		if len(good) > 0 {
			out = append(out, merge(good, separator, size, overlap)...)
			good = nil
		}
		if len(remaining) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, split(piece, remaining, size, overlap)...)
		}
	}
	if len(good) > 0 {
		out = append(out, merge(good, separator, size, overlap)...)
	}
	return out
}

// splitOn splits on separator, dropping empty pieces. An empty separator
// splits into individual characters.
func splitOn(text, separator string) []string {
	var raw []string
	if separator == "" {
		for _, r := range text {
			raw = append(raw, string(r))
		}
	} else {
		raw = strings.Split(text, separator)
	}
	out := raw[:0]
	for _, p := range raw {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// merge greedily packs pieces into chunks of at most size characters,
// carrying roughly overlap trailing characters into the next chunk.
func merge(pieces []string, separator string, size, overlap int) []string {
	sepLen := len(separator)
	var out []string
	var window []string
	total := 0

	for _, piece := range pieces {
		l := len(piece)
		if total+l+gap(window, sepLen) > size && len(window) > 0 {
			if doc := joinTrim(window, separator); doc != "" {
				out = append(out, doc)
			}
			// Slide the window forward until the retained tail is within
			// the overlap budget and the next piece fits.
			for total > overlap || (total+l+gap(window, sepLen) > size && total > 0) {
				total -= len(window[0])
				if len(window) > 1 {
					total -= sepLen
				}
				window = window[1:]
			}
		}
		if len(window) > 0 {
			total += sepLen
		}
		window = append(window, piece)
		total += l
	}
	if doc := joinTrim(window, separator); doc != "" {
		out = append(out, doc)
	}
	return out
}

func gap(window []string, sepLen int) int {
	if len(window) > 0 {
		return sepLen
	}
	return 0
}

func joinTrim(pieces []string, separator string) string {
	return strings.TrimSpace(strings.Join(pieces, separator))
}
