package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

func newGenerateServer(t *testing.T, response string, capture *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if capture != nil {
			*capture, _ = payload["prompt"].(string)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"response": response})
	}))
}

func TestClassifyIntentParsesTag(t *testing.T) {
	server := newGenerateServer(t, `{"intent":"new_question"}`, nil)
	defer server.Close()

	model := NewLanguageModel(New(server.URL, "gen", "embed", "", nil))
	tag, err := model.ClassifyIntent(context.Background(), "what is the leave policy?", nil, false, "")
	if err != nil {
		t.Fatalf("ClassifyIntent() error = %v", err)
	}
	if tag != "new_question" {
		t.Fatalf("expected new_question, got %q", tag)
	}
}

func TestClassifyIntentUnparsableJSON(t *testing.T) {
	server := newGenerateServer(t, `not json at all`, nil)
	defer server.Close()

	model := NewLanguageModel(New(server.URL, "gen", "embed", "", nil))
	if _, err := model.ClassifyIntent(context.Background(), "hi", nil, false, ""); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRewritePromptAnchorsSubject(t *testing.T) {
	var capturedPrompt string
	server := newGenerateServer(t, "What is the Acme Corp leave policy?", &capturedPrompt)
	defer server.Close()

	model := NewLanguageModel(New(server.URL, "gen", "embed", "Acme Corp", nil))
	history := []domain.Turn{{Role: domain.RoleUser, Text: "tell me about them"}}
	out, err := model.Rewrite(context.Background(), "what about their leave?", history, false, "")
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if out != "What is the Acme Corp leave policy?" {
		t.Fatalf("unexpected rewrite: %q", out)
	}
	if !strings.Contains(capturedPrompt, "Acme Corp") {
		t.Fatalf("expected subject entity in prompt, got: %s", capturedPrompt)
	}
	if !strings.Contains(capturedPrompt, "tell me about them") {
		t.Fatalf("expected history in prompt, got: %s", capturedPrompt)
	}
}

func TestGenerateGroundedPromptCarriesMarkers(t *testing.T) {
	var capturedPrompt string
	server := newGenerateServer(t, "ANSWER: x\nFOLLOWUP: none", &capturedPrompt)
	defer server.Close()

	model := NewLanguageModel(New(server.URL, "gen", "embed", "", nil))
	if _, err := model.GenerateGrounded(context.Background(), "q?", "ctx text", nil); err != nil {
		t.Fatalf("GenerateGrounded() error = %v", err)
	}
	for _, want := range []string{"ANSWER:", "FOLLOWUP:", "ctx text", "q?"} {
		if !strings.Contains(capturedPrompt, want) {
			t.Fatalf("prompt missing %q: %s", want, capturedPrompt)
		}
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "gen", "embed", "", nil))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected 502 to be wrapped as temporary, got %v", err)
	}
}
