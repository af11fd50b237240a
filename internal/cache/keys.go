package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Cache-kind key prefixes.
const (
	embeddingPrefix = "embedding"
	chatPrefix      = "chat"
	answerPrefix    = "rag_query"
)

// deriveKey canonicalizes params by serializing map keys in sorted order
// (encoding/json sorts map keys), hashes the result, and prefixes the kind
// tag. Identical parameters always produce identical keys regardless of the
// order they were supplied in.
func deriveKey(prefix string, params map[string]any) string {
	canonical, err := json.Marshal(params)
	if err != nil {
		// Params are plain strings, numbers, and slices thereof; Marshal
		// cannot fail on them. Keep a stable fallback anyway.
		canonical = []byte(prefix)
	}
	sum := sha256.Sum256(canonical)
	return prefix + ":" + hex.EncodeToString(sum[:])[:16]
}

// EmbeddingKey addresses a vector by canonicalized text and model.
func EmbeddingKey(text, model string) string {
	return deriveKey(embeddingPrefix, map[string]any{
		"text":  text,
		"model": model,
	})
}

// ChatKey addresses a deterministic chat completion. The message sequence is
// order-sensitive; temperature is excluded because only zero-temperature
// requests are ever cached.
func ChatKey(messages []ChatMessage, model string, maxTokens int) string {
	return deriveKey(chatPrefix, map[string]any{
		"messages":   messages,
		"model":      model,
		"max_tokens": maxTokens,
	})
}

// AnswerKey addresses a synthesized answer by normalized question, sorted
// document-filter set, and owner.
func AnswerKey(question string, documentIDs []string, userID string) string {
	ids := append([]string(nil), documentIDs...)
	sort.Strings(ids)
	return deriveKey(answerPrefix, map[string]any{
		"question":     NormalizeQuestion(question),
		"document_ids": ids,
		"user_id":      userID,
	})
}

// NormalizeQuestion lowercases and trims a question so trivially different
// phrasings of the same request share a cache entry.
func NormalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// answerIndexKeys are the index sets a stored answer is registered under, so
// chunk changes can invalidate it. A filtered answer is indexed per document;
// an unfiltered one depends on the owner's whole corpus and is indexed under
// the owner.
func answerIndexKeys(documentIDs []string, userID string) []string {
	if len(documentIDs) == 0 {
		return []string{answerPrefix + ":index:user:" + userID}
	}
	keys := make([]string, 0, len(documentIDs))
	for _, id := range documentIDs {
		keys = append(keys, answerPrefix+":index:doc:"+id)
	}
	return keys
}
