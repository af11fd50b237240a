package rag

import (
	"strings"

	"docqa/internal/store"
)

const contextSeparator = "\n\n"

// AssembleContext joins chunk texts in rank order until the next chunk would
// push the total past maxLength. Assembly stops at the first chunk that does
// not fit; a smaller chunk ranked later is not pulled forward, and no chunk
// is ever truncated mid-text.
func AssembleContext(results []store.SearchResult, maxLength int) string {
	var b strings.Builder
	total := 0
	for _, r := range results {
		add := len(r.Chunk.Text)
		if total > 0 {
			add += len(contextSeparator)
		}
		if total+add > maxLength {
			break
		}
		if total > 0 {
			b.WriteString(contextSeparator)
		}
		b.WriteString(r.Chunk.Text)
		total += add
	}
	return b.String()
}
