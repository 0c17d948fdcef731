package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

func TestSearchConvertsSimilarityToDistance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/handbook/points/search" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{
				{"score": 0.9, "payload": map[string]any{"content": "leave policy text", "section": "Leave Policy", "source": "handbook.pdf"}},
				{"score": 0.4, "payload": map[string]any{"content": "probation text", "section": "Probation", "source": "handbook.pdf"}},
			},
		})
	}))
	defer server.Close()

	client := New(server.URL, "handbook")
	results, err := client.Search(context.Background(), []float32{0.1, 0.2}, 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Closer match (similarity 0.9) must have the lower distance score.
	if results[0].Score >= results[1].Score {
		t.Fatalf("expected distance semantics, got %v then %v", results[0].Score, results[1].Score)
	}
	if results[0].Chunk.Section != "Leave Policy" {
		t.Fatalf("unexpected section: %q", results[0].Chunk.Section)
	}
}

func TestIndexChunksMismatch(t *testing.T) {
	client := New("http://localhost:6333", "handbook")
	err := client.IndexChunks(context.Background(), &domain.Document{ID: "d1"},
		[]domain.DocumentChunk{{Content: "a"}, {Content: "b"}},
		[][]float32{{0.1}},
	)
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
}

func TestIndexChunksSendsSectionPayload(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut && r.URL.Path == "/collections/handbook" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode upsert: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := New(server.URL, "handbook")
	err := client.IndexChunks(context.Background(), &domain.Document{ID: "d1"},
		[]domain.DocumentChunk{{Content: "text", Section: "Benefits", Source: "handbook.pdf"}},
		[][]float32{{0.5, 0.5}},
	)
	if err != nil {
		t.Fatalf("IndexChunks() error = %v", err)
	}

	points, _ := captured["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("expected 1 point, got %d", len(points))
	}
	point, _ := points[0].(map[string]any)
	payload, _ := point["payload"].(map[string]any)
	if payload["section"] != "Benefits" {
		t.Fatalf("expected section payload, got %v", payload)
	}
}
