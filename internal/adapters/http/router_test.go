package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/websocket"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
	"github.com/dkomnin/handbook-assistant/internal/core/usecase"
)

type echoChatService struct{}

func (s *echoChatService) AdvanceTurn(_ context.Context, message string, state domain.ConversationState) (*domain.TurnResult, error) {
	next := state.WithTurn(domain.RoleUser, message).WithTurn(domain.RoleAssistant, "echo: "+message)
	return &domain.TurnResult{Reply: "echo: " + message, State: next}, nil
}

type stubDocumentRepo struct {
	doc *domain.Document
	err error
}

func (s *stubDocumentRepo) Create(context.Context, *domain.Document) error { return nil }
func (s *stubDocumentRepo) GetByID(context.Context, string) (*domain.Document, error) {
	return s.doc, s.err
}
func (s *stubDocumentRepo) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}
func (s *stubDocumentRepo) SaveSections(context.Context, string, []string, int) error { return nil }
func (s *stubDocumentRepo) ListSections(context.Context) ([]string, error)            { return nil, nil }

func newTestRouter(repo *stubDocumentRepo, cfg RouterConfig) http.Handler {
	sessions := NewSessionManager(&echoChatService{}, nil, 50)
	return NewRouter(sessions, nil, repo, nil, cfg).Handler()
}

func TestChatEndpoint(t *testing.T) {
	handler := newTestRouter(&stubDocumentRepo{}, RouterConfig{})

	body := bytes.NewBufferString(`{"conversation_id":"c1","message":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", body)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", res.Code, res.Body.String())
	}
	var resp chatResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Reply != "echo: hello" {
		t.Fatalf("Reply = %q", resp.Reply)
	}
	if resp.ConversationID != "c1" {
		t.Fatalf("ConversationID = %q", resp.ConversationID)
	}
}

func TestChatEndpointGeneratesConversationID(t *testing.T) {
	handler := newTestRouter(&stubDocumentRepo{}, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	var resp chatResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ConversationID == "" {
		t.Fatalf("expected generated conversation id")
	}
}

func TestChatEndpointInvalidJSON(t *testing.T) {
	handler := newTestRouter(&stubDocumentRepo{}, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString("{nope"))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	handler := newTestRouter(&stubDocumentRepo{}, RouterConfig{RateLimitRPS: 1, RateLimitBurst: 1})

	req1 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res1 := httptest.NewRecorder()
	handler.ServeHTTP(res1, req1)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	repo := &stubDocumentRepo{err: domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("id missing"))}
	handler := newTestRouter(repo, RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestUploadRequiresFileField(t *testing.T) {
	handler := newTestRouter(&stubDocumentRepo{}, RouterConfig{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("other", "value")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestContractRejectsWrongContentType(t *testing.T) {
	handler := newTestRouter(&stubDocumentRepo{}, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", bytes.NewBufferString(`{"message":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestLoadAPISpec(t *testing.T) {
	doc, err := LoadAPISpec()
	if err != nil {
		t.Fatalf("LoadAPISpec() error = %v", err)
	}
	if doc.Paths.Find("/v1/chat") == nil {
		t.Fatalf("spec missing /v1/chat")
	}
}

func TestTurnKindBuckets(t *testing.T) {
	if got := turnKind(usecase.RefusalReply); got != "refusal" {
		t.Fatalf("turnKind refusal = %q", got)
	}
	if got := turnKind("The probation period is three months."); got != "answer" {
		t.Fatalf("turnKind answer = %q", got)
	}
}

func TestChatWebSocketStreamsReply(t *testing.T) {
	handler := newTestRouter(&stubDocumentRepo{}, RouterConfig{})
	server := httptest.NewServer(handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/chat/ws"
	conn, err := websocket.Dial(wsURL, "", server.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	long := strings.Repeat("handbook ", 20)
	if err := websocket.JSON.Send(conn, chatRequest{ConversationID: "c-ws", Message: long}); err != nil {
		t.Fatalf("send: %v", err)
	}

	var reply strings.Builder
	deltas := 0
	for {
		var chunk chatStreamChunk
		if err := websocket.JSON.Receive(conn, &chunk); err != nil {
			t.Fatalf("receive: %v", err)
		}
		if chunk.ConversationID != "c-ws" {
			t.Fatalf("conversation id = %q", chunk.ConversationID)
		}
		if chunk.Done {
			break
		}
		deltas++
		reply.WriteString(chunk.Delta)
	}
	if got, want := reply.String(), "echo: "+long; got != want {
		t.Fatalf("reassembled reply = %q, want %q", got, want)
	}
	if deltas < 2 {
		t.Fatalf("expected multiple delta frames, got %d", deltas)
	}
}
