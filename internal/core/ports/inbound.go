package ports

import (
	"context"
	"io"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

// ChatService is the single inbound contract of the conversational core.
// AdvanceTurn is pure with respect to its state argument: the caller owns
// persistence and per-conversation serialization. The returned error is
// non-nil only when the caller's context was cancelled mid-turn; every other
// failure is recovered into a fixed-wording reply.
type ChatService interface {
	AdvanceTurn(ctx context.Context, message string, state domain.ConversationState) (*domain.TurnResult, error)
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous corpus indexing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}
