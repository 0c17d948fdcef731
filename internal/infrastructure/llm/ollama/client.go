package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
	"github.com/dkomnin/handbook-assistant/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	subject    string
	httpClient *http.Client
	executor   *resilience.Executor
}

// New builds an Ollama-backed client. subject is the corpus subject entity
// that ambiguous references are anchored to during query rewriting.
func New(baseURL, genModel, embedModel, subject string, executor *resilience.Executor) *Client {
	if subject == "" {
		subject = "the company"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		subject:    subject,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

// LanguageModel implements ports.LanguageModel over the shared client.
type LanguageModel struct {
	client *Client
}

func NewLanguageModel(client *Client) *LanguageModel {
	return &LanguageModel{client: client}
}

func (m *LanguageModel) ClassifyIntent(
	ctx context.Context,
	message string,
	history []domain.Turn,
	awaitingFollowup bool,
	lastFollowupQuestion string,
) (string, error) {
	raw, err := m.client.generateJSON(ctx, "classify_intent", buildIntentPrompt(message, history, awaitingFollowup, lastFollowupQuestion))
	if err != nil {
		return "", err
	}

	var result struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return "", fmt.Errorf("parse intent json: %w", err)
	}
	return result.Intent, nil
}

func (m *LanguageModel) Rewrite(
	ctx context.Context,
	message string,
	history []domain.Turn,
	awaitingFollowup bool,
	lastFollowupQuestion string,
) (string, error) {
	return m.client.generateText(ctx, "rewrite", buildRewritePrompt(m.client.subject, message, history, awaitingFollowup, lastFollowupQuestion))
}

func (m *LanguageModel) GenerateGrounded(
	ctx context.Context,
	question, contextText string,
	history []domain.Turn,
) (string, error) {
	return m.client.generateText(ctx, "generate_grounded", buildGroundedPrompt(question, contextText, history))
}

func (m *LanguageModel) Summarize(ctx context.Context, turns []domain.Turn) (string, error) {
	return m.client.generateText(ctx, "summarize", buildSummaryPrompt(turns))
}

// ScoreRelevance rates a (query, passage) pair on a 0..1 scale, cross-encoder
// style: both texts are judged together in a single call.
func (c *Client) ScoreRelevance(ctx context.Context, query, passage string) (float64, error) {
	raw, err := c.generateJSON(ctx, "score_relevance", buildRelevancePrompt(query, passage))
	if err != nil {
		return 0, err
	}

	var result struct {
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return 0, fmt.Errorf("parse relevance json: %w", err)
	}
	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 1 {
		result.Score = 1
	}
	return result.Score, nil
}

// Embedder implements ports.Embedder over the shared client.
type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.post(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *Client) generateJSON(ctx context.Context, operation, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, operation, reqBody)
}

func (c *Client) generateText(ctx context.Context, operation, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, operation, reqBody)
}

func (c *Client) generate(ctx context.Context, operation string, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.post(ctx, "/api/generate", reqBody, &response, operation); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any, operation string) error {
	call := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
