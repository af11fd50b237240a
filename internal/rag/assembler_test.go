package rag

import (
	"strings"
	"testing"

	"docqa/internal/store"
)

func searchResults(texts ...string) []store.SearchResult {
	results := make([]store.SearchResult, len(texts))
	for i, text := range texts {
		results[i].Chunk = store.Chunk{Index: i, Text: text}
	}
	return results
}

func TestAssembleContextJoinsInRankOrder(t *testing.T) {
	got := AssembleContext(searchResults("alpha", "beta", "gamma"), 100)
	want := "alpha\n\nbeta\n\ngamma"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAssembleContextStopsAtFirstOverflow(t *testing.T) {
	// "aaaaaaaaaa" (10) fits; "bbbbbbbbbb" needs 10+2 more and overflows the
	// budget of 15. The later 1-char chunk would fit but must not be pulled
	// forward past the chunk that stopped assembly.
	got := AssembleContext(searchResults(strings.Repeat("a", 10), strings.Repeat("b", 10), "c"), 15)
	if got != strings.Repeat("a", 10) {
		t.Errorf("got %q", got)
	}
}

func TestAssembleContextCountsSeparators(t *testing.T) {
	// 5 + 2 + 5 = 12 > 11, so only the first chunk fits.
	got := AssembleContext(searchResults("aaaaa", "bbbbb"), 11)
	if got != "aaaaa" {
		t.Errorf("got %q", got)
	}
	// Exactly 12 fits both.
	got = AssembleContext(searchResults("aaaaa", "bbbbb"), 12)
	if got != "aaaaa\n\nbbbbb" {
		t.Errorf("got %q", got)
	}
}

func TestAssembleContextOversizedFirstChunk(t *testing.T) {
	if got := AssembleContext(searchResults(strings.Repeat("x", 50)), 10); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestAssembleContextEmptyInput(t *testing.T) {
	if got := AssembleContext(nil, 100); got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}
