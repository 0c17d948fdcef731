package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/routers"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/dkomnin/handbook-assistant/internal/core/ports"
	"github.com/dkomnin/handbook-assistant/internal/core/usecase"
	"github.com/dkomnin/handbook-assistant/internal/observability/metrics"
)

const serviceName = "handbook-api"

type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxConcurrent  int
}

type Router struct {
	sessions *SessionManager
	ingestUC *usecase.IngestDocumentUseCase
	repo     ports.DocumentRepository
	metrics  *metrics.HTTPServerMetrics
	contract routers.Router
	cfg      RouterConfig
}

func NewRouter(
	sessions *SessionManager,
	ingestUC *usecase.IngestDocumentUseCase,
	repo ports.DocumentRepository,
	serverMetrics *metrics.HTTPServerMetrics,
	cfg RouterConfig,
) *Router {
	contract, err := newContractRouter()
	if err != nil {
		slog.Warn("api_contract_unavailable", "error", err)
	}
	return &Router{
		sessions: sessions,
		ingestUC: ingestUC,
		repo:     repo,
		metrics:  serverMetrics,
		contract: contract,
		cfg:      cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/chat", rt.chat)
	mux.Handle("/v1/chat/ws", websocket.Handler(rt.chatSocket))
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = contractMiddleware(mux, rt.contract)
	handler = backpressureMiddleware(handler, rt.cfg.MaxConcurrent, 100*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type chatResponse struct {
	ConversationID   string `json:"conversation_id"`
	Reply            string `json:"reply"`
	AwaitingFollowup bool   `json:"awaiting_followup"`
}

func (rt *Router) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	resp, err := rt.advance(r, req)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": "turn aborted"})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// chatSocket speaks the same request/response JSON as /v1/chat, one turn per
// frame, keeping the conversation open on a single connection.
func (rt *Router) chatSocket(ws *websocket.Conn) {
	defer ws.Close()

	// A connection without an explicit conversation ID gets one for all of
	// its turns.
	fallbackID := uuid.NewString()

	for {
		var req chatRequest
		if err := websocket.JSON.Receive(ws, &req); err != nil {
			return
		}
		if req.ConversationID == "" {
			req.ConversationID = fallbackID
		}

		resp, err := rt.advance(ws.Request(), req)
		if err != nil {
			return
		}
		if err := streamReply(ws, resp); err != nil {
			return
		}
	}
}

type chatStreamChunk struct {
	ConversationID   string `json:"conversation_id"`
	Delta            string `json:"delta,omitempty"`
	Done             bool   `json:"done,omitempty"`
	AwaitingFollowup bool   `json:"awaiting_followup,omitempty"`
}

const streamChunkRunes = 80

// streamReply sends the reply as rune-safe delta frames followed by a
// terminal frame carrying the conversation outcome.
func streamReply(ws *websocket.Conn, resp chatResponse) error {
	runes := []rune(resp.Reply)
	for start := 0; start < len(runes); start += streamChunkRunes {
		end := start + streamChunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		chunk := chatStreamChunk{ConversationID: resp.ConversationID, Delta: string(runes[start:end])}
		if err := websocket.JSON.Send(ws, chunk); err != nil {
			return err
		}
	}
	return websocket.JSON.Send(ws, chatStreamChunk{
		ConversationID:   resp.ConversationID,
		Done:             true,
		AwaitingFollowup: resp.AwaitingFollowup,
	})
}

func (rt *Router) advance(r *http.Request, req chatRequest) (chatResponse, error) {
	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	start := time.Now()
	result, err := rt.sessions.Advance(r.Context(), conversationID, req.Message)
	if err != nil {
		return chatResponse{}, err
	}

	if rt.metrics != nil {
		rt.metrics.RecordTurn(serviceName, turnKind(result.Reply), time.Since(start))
		rt.metrics.RecordFollowup(serviceName, result.State.AwaitingFollowup)
		rt.metrics.SetActiveSessions(rt.sessions.Count())
	}

	return chatResponse{
		ConversationID:   conversationID,
		Reply:            result.Reply,
		AwaitingFollowup: result.State.AwaitingFollowup,
	}, nil
}

// turnKind buckets replies for metrics without re-running classification.
func turnKind(reply string) string {
	switch reply {
	case usecase.GreetingReply:
		return "greeting"
	case usecase.SmallTalkReply:
		return "small_talk"
	case usecase.RefusalReply:
		return "refusal"
	case usecase.DeclineReply:
		return "decline"
	default:
		return "answer"
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingestUC.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	doc, err := rt.repo.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
