package ports

import (
	"context"
	"io"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

// LanguageModel is the reasoning capability behind intent classification,
// query rewriting and grounded answer generation. All three calls are
// potentially high-latency; callers bound them with per-call timeouts.
type LanguageModel interface {
	// ClassifyIntent labels a message against the current dialogue state.
	// The returned string must be one of the four intent tags; callers treat
	// anything else as a parse failure.
	ClassifyIntent(ctx context.Context, message string, history []domain.Turn, awaitingFollowup bool, lastFollowupQuestion string) (string, error)

	// Rewrite turns a raw message into a standalone, retrieval-ready
	// question anchored to the corpus subject entity.
	Rewrite(ctx context.Context, message string, history []domain.Turn, awaitingFollowup bool, lastFollowupQuestion string) (string, error)

	// GenerateGrounded produces the raw marker-delimited answer text from
	// the supplied context and recent history window.
	GenerateGrounded(ctx context.Context, question, contextText string, history []domain.Turn) (string, error)

	// Summarize compacts a span of turns into one short factual summary.
	Summarize(ctx context.Context, turns []domain.Turn) (string, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the similarity index over document chunks. Search returns up
// to k results with distance scores (lower = closer).
type VectorStore interface {
	IndexChunks(ctx context.Context, doc *domain.Document, chunks []domain.DocumentChunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, k int) ([]domain.RetrievalResult, error)
}

// Reranker reorders a candidate set against a query, keeping topK.
type Reranker interface {
	Rerank(ctx context.Context, query string, chunks []domain.DocumentChunk, topK int) ([]domain.DocumentChunk, error)
}

// CorpusMetadata exposes read-only corpus structure assembled by ingestion.
type CorpusMetadata interface {
	ListKnownSections(ctx context.Context) ([]string, error)
}

// ConversationStore persists turns and summaries per conversation. The core
// never calls it; the transport layer owns durable history.
type ConversationStore interface {
	AppendTurn(ctx context.Context, conversationID string, turn domain.Turn) error
	ListRecentTurns(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error)
	SaveSummary(ctx context.Context, conversationID, summary string, upToTurn int) error
	LastSummary(ctx context.Context, conversationID string) (string, int, error)
}

// DocumentRepository persists document state and corpus section labels.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveSections(ctx context.Context, id string, sections []string, chunkCount int) error
	ListSections(ctx context.Context) ([]string, error)
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Chunker splits extracted text into labelled chunks.
type Chunker interface {
	Split(source, text string) []domain.DocumentChunk
}
