package rerank

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

const defaultConcurrency = 3

// RelevanceScorer rates a (query, passage) pair on a 0..1 scale.
type RelevanceScorer interface {
	ScoreRelevance(ctx context.Context, query, passage string) (float64, error)
}

// Reranker re-scores candidate chunks against the query with a cross-encoder
// style scorer and keeps the topK best. Scoring runs concurrently, bounded to
// defaultConcurrency in-flight calls. A chunk whose scoring call fails falls
// back to a deterministic token-overlap score so one slow or broken call never
// sinks the whole pass.
type Reranker struct {
	scorer RelevanceScorer
}

func New(scorer RelevanceScorer) *Reranker {
	return &Reranker{scorer: scorer}
}

type scoredChunk struct {
	chunk domain.DocumentChunk
	score float64
	index int
}

func (r *Reranker) Rerank(ctx context.Context, query string, chunks []domain.DocumentChunk, topK int) ([]domain.DocumentChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if topK <= 0 || topK > len(chunks) {
		topK = len(chunks)
	}

	queryTokens := toTokenSet(query)
	scored := make([]scoredChunk, len(chunks))
	sem := make(chan struct{}, defaultConcurrency)

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk domain.DocumentChunk) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				scored[i] = scoredChunk{chunk: chunk, score: tokenOverlap(queryTokens, toTokenSet(chunk.Content)), index: i}
				return
			}
			defer func() { <-sem }()

			score, err := r.scorer.ScoreRelevance(ctx, query, chunk.Content)
			if err != nil {
				slog.Debug("relevance_score_failed", "error", err)
				score = tokenOverlap(queryTokens, toTokenSet(chunk.Content))
			}
			scored[i] = scoredChunk{chunk: chunk, score: score, index: i}
		}(i, chunk)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stable on retrieval order: equal scores keep the index's ranking.
	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].score != scored[b].score {
			return scored[a].score > scored[b].score
		}
		return scored[a].index < scored[b].index
	})

	out := make([]domain.DocumentChunk, 0, topK)
	for _, s := range scored[:topK] {
		out = append(out, s.chunk)
	}
	return out, nil
}

func tokenOverlap(query, chunk map[string]struct{}) float64 {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := chunk[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func toTokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{}, 16)
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out[b.String()] = struct{}{}
			b.Reset()
		}
	}
	for _, r := range s {
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return out
}
