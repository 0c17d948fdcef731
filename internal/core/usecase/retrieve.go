package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
	"github.com/dkomnin/handbook-assistant/internal/core/ports"
)

// Retriever composes query embedding, similarity search, content dedupe and
// reranking into one candidate-selection stage.
type Retriever struct {
	embedder ports.Embedder
	vectorDB ports.VectorStore
	reranker ports.Reranker

	searchK int
	topK    int
}

func NewRetriever(embedder ports.Embedder, vectorDB ports.VectorStore, reranker ports.Reranker, searchK, topK int) *Retriever {
	if searchK <= 0 {
		searchK = 8
	}
	// Precision over recall at the final stage: topK stays strictly below
	// the retrieval k.
	if topK <= 0 || topK >= searchK {
		topK = searchK / 2
		if topK == 0 {
			topK = 1
		}
	}
	return &Retriever{
		embedder: embedder,
		vectorDB: vectorDB,
		reranker: reranker,
		searchK:  searchK,
		topK:     topK,
	}
}

// Retrieve returns the reranked top chunks for a normalized query. An empty
// candidate set at any stage surfaces as domain.ErrNoContext so the caller
// never invokes the answerer with empty context.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.DocumentChunk, error) {
	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.vectorDB.Search(ctx, vector, r.searchK)
	if err != nil {
		return nil, fmt.Errorf("search vector db: %w", err)
	}
	results = domain.DedupeByContent(results)
	if len(results) == 0 {
		return nil, domain.WrapError(domain.ErrNoContext, "retrieve", fmt.Errorf("no retrieval hits for query"))
	}

	candidates := make([]domain.DocumentChunk, 0, len(results))
	for _, res := range results {
		candidates = append(candidates, res.Chunk)
	}

	reranked, err := r.reranker.Rerank(ctx, query, candidates, r.topK)
	if err != nil {
		// Reranking is an optimization; degrade to retrieval order.
		slog.Warn("rerank_failed", "error", err)
		if len(candidates) > r.topK {
			candidates = candidates[:r.topK]
		}
		return candidates, nil
	}
	if len(reranked) == 0 {
		return nil, domain.WrapError(domain.ErrNoContext, "rerank", fmt.Errorf("reranking yielded no candidates"))
	}
	return reranked, nil
}
