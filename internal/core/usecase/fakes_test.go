package usecase

import (
	"context"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

type fakeLanguageModel struct {
	intent       string
	intentErr    error
	rewritten    string
	rewriteErr   error
	grounded     string
	groundedErr  error
	summary      string
	summaryErr   error
	rewriteCalls int
	intentCalls  int
	lastQuestion string
	lastContext  string
}

func (f *fakeLanguageModel) ClassifyIntent(_ context.Context, _ string, _ []domain.Turn, _ bool, _ string) (string, error) {
	f.intentCalls++
	return f.intent, f.intentErr
}

func (f *fakeLanguageModel) Rewrite(_ context.Context, _ string, _ []domain.Turn, _ bool, _ string) (string, error) {
	f.rewriteCalls++
	return f.rewritten, f.rewriteErr
}

func (f *fakeLanguageModel) GenerateGrounded(_ context.Context, question, contextText string, _ []domain.Turn) (string, error) {
	f.lastQuestion = question
	f.lastContext = contextText
	return f.grounded, f.groundedErr
}

func (f *fakeLanguageModel) Summarize(_ context.Context, _ []domain.Turn) (string, error) {
	return f.summary, f.summaryErr
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return f.vector, f.err
}

type fakeVectorStore struct {
	results []domain.RetrievalResult
	err     error
}

func (f *fakeVectorStore) IndexChunks(_ context.Context, _ *domain.Document, _ []domain.DocumentChunk, _ [][]float32) error {
	return f.err
}

func (f *fakeVectorStore) Search(_ context.Context, _ []float32, _ int) ([]domain.RetrievalResult, error) {
	return f.results, f.err
}

// passthroughReranker keeps retrieval order and truncates to topK.
type passthroughReranker struct {
	err error
}

func (f *passthroughReranker) Rerank(_ context.Context, _ string, chunks []domain.DocumentChunk, topK int) ([]domain.DocumentChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	if topK > 0 && topK < len(chunks) {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

type fakeMetadata struct {
	sections []string
	err      error
}

func (f *fakeMetadata) ListKnownSections(_ context.Context) ([]string, error) {
	return f.sections, f.err
}
