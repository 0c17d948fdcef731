package domain

// DocumentChunk is an immutable passage produced by ingestion. Identity for
// deduplication is the exact Content value.
type DocumentChunk struct {
	Content string `json:"content"`
	Section string `json:"section,omitempty"`
	Source  string `json:"source"`
}

// RetrievalResult pairs a chunk with its similarity score. Scores have
// distance semantics: lower means more similar.
type RetrievalResult struct {
	Chunk DocumentChunk `json:"chunk"`
	Score float64       `json:"score"`
}

// DedupeByContent removes results with duplicate chunk content, preserving
// first occurrence. The index may return near-identical passages from
// overlapping ingestion windows.
func DedupeByContent(results []RetrievalResult) []RetrievalResult {
	if len(results) == 0 {
		return results
	}
	seen := make(map[string]struct{}, len(results))
	out := make([]RetrievalResult, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Chunk.Content]; ok {
			continue
		}
		seen[r.Chunk.Content] = struct{}{}
		out = append(out, r)
	}
	return out
}
