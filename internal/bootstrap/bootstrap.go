package bootstrap

import (
	"context"
	"fmt"

	"github.com/dkomnin/handbook-assistant/internal/config"
	"github.com/dkomnin/handbook-assistant/internal/core/ports"
	"github.com/dkomnin/handbook-assistant/internal/core/usecase"
	"github.com/dkomnin/handbook-assistant/internal/infrastructure/chunking"
	"github.com/dkomnin/handbook-assistant/internal/infrastructure/extractor"
	"github.com/dkomnin/handbook-assistant/internal/infrastructure/llm/ollama"
	"github.com/dkomnin/handbook-assistant/internal/infrastructure/queue/nats"
	"github.com/dkomnin/handbook-assistant/internal/infrastructure/rerank"
	"github.com/dkomnin/handbook-assistant/internal/infrastructure/repository/postgres"
	"github.com/dkomnin/handbook-assistant/internal/infrastructure/resilience"
	"github.com/dkomnin/handbook-assistant/internal/infrastructure/storage/localfs"
	"github.com/dkomnin/handbook-assistant/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.DocumentRepository
	Store     ports.ConversationStore
	IngestUC  *usecase.IngestDocumentUseCase
	ProcessUC ports.DocumentProcessor
	ChatUC    ports.ChatService
	Retriever *usecase.Retriever

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	store := postgres.NewConversationStore(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, cfg.CorpusSubject, executor)
	model := ollama.NewLanguageModel(ollamaClient)
	embedder := ollama.NewEmbedder(ollamaClient)
	reranker := rerank.New(ollamaClient)

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.New(storage)

	retriever := usecase.NewRetriever(embedder, vectorDB, reranker, cfg.RetrievalK, cfg.RerankTopK)

	chatUC := usecase.NewChatUseCase(
		usecase.NewIntentClassifier(model),
		usecase.NewQueryNormalizer(model),
		retriever,
		usecase.NewGroundedAnswerer(model),
		usecase.NewFollowUpValidator(corpusMetadata{repo: repo}),
		usecase.NewHistorySummarizer(model, cfg.SummarizeAfter, cfg.HistoryWindow),
		usecase.ChatLimits{
			ClassifyTimeout: cfg.ClassifyTimeout(),
			RewriteTimeout:  cfg.RewriteTimeout(),
			RetrieveTimeout: cfg.RetrieveTimeout(),
			GenerateTimeout: cfg.GenerateTimeout(),
			HistoryWindow:   cfg.HistoryWindow,
			SummarizeAfter:  cfg.SummarizeAfter,
		},
	)

	ingestUC := usecase.NewIngestDocumentUseCase(repo, storage, queue)
	processUC := usecase.NewProcessDocumentUseCase(repo, textExtractor, chunker, embedder, vectorDB)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,
		Store:  store,

		IngestUC:  ingestUC,
		ProcessUC: processUC,
		ChatUC:    chatUC,
		Retriever: retriever,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// corpusMetadata narrows the document repository to the read-only view the
// follow-up validator needs.
type corpusMetadata struct {
	repo ports.DocumentRepository
}

func (c corpusMetadata) ListKnownSections(ctx context.Context) ([]string, error) {
	return c.repo.ListSections(ctx)
}
