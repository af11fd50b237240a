// Package rag answers questions over a user's documents: it embeds the
// question, ranks the user's chunks by similarity, assembles a bounded
// context, and synthesizes an answer with a chat model.
package rag

import (
	"github.com/google/uuid"
)

// FallbackAnswer is returned when retrieval finds nothing relevant. No chat
// call is made in that case.
const FallbackAnswer = "I couldn't find any relevant information in your documents to answer this question."

const systemPrompt = "You are a helpful assistant that answers questions based on provided document context.\n" +
	"Only use information from the context provided. If the context doesn't contain enough information to answer the question, say so.\n" +
	"Be concise and accurate."

// previewLength caps the chunk text echoed back in responses.
const previewLength = 500

// Query is one question scoped to a user's documents.
type Query struct {
	Question    string
	UserID      string
	DocumentIDs []uuid.UUID
	// TopK overrides the configured result count when positive.
	TopK int
}

// RetrievedChunk is the response-facing summary of one ranked chunk.
type RetrievedChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Text       string  `json:"chunk_text"`
	Score      float64 `json:"similarity_score"`
	Index      int     `json:"chunk_index"`
}

// Answer is the synthesized answer plus the retrieval summary behind it.
type Answer struct {
	Question         string           `json:"question"`
	Answer           string           `json:"answer"`
	Chunks           []RetrievedChunk `json:"retrieved_chunks"`
	TotalChunksFound int              `json:"total_chunks_found"`
	Cached           bool             `json:"cached"`
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}
