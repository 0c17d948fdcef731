package httpadapter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
	"github.com/dkomnin/handbook-assistant/internal/core/ports"
)

// SessionManager holds the live conversation state per conversation ID and
// serializes turns within one conversation: two concurrent messages for the
// same ID run one after the other, so the state machine never races. Turns are
// mirrored to the durable store best-effort; the in-memory state stays
// authoritative for the lifetime of the process.
type SessionManager struct {
	chat  ports.ChatService
	store ports.ConversationStore

	historyLimit int

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu     sync.Mutex
	state  domain.ConversationState
	loaded bool
}

func NewSessionManager(chat ports.ChatService, store ports.ConversationStore, historyLimit int) *SessionManager {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &SessionManager{
		chat:         chat,
		store:        store,
		historyLimit: historyLimit,
		sessions:     make(map[string]*session),
	}
}

func (m *SessionManager) Advance(ctx context.Context, conversationID, message string) (*domain.TurnResult, error) {
	sess := m.session(conversationID)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if !sess.loaded {
		sess.state = m.restore(ctx, conversationID)
		sess.loaded = true
	}

	result, err := m.chat.AdvanceTurn(ctx, message, sess.state)
	if err != nil {
		return nil, err
	}

	m.persistNewTurns(ctx, conversationID, sess.state, result.State)
	sess.state = result.State
	return result, nil
}

func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) session(conversationID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[conversationID]
	if !ok {
		sess = &session{}
		m.sessions[conversationID] = sess
	}
	return sess
}

// restore rebuilds history from the durable turn log. Follow-up context is
// deliberately not restored: after a restart the conversation resumes idle.
func (m *SessionManager) restore(ctx context.Context, conversationID string) domain.ConversationState {
	if m.store == nil {
		return domain.ConversationState{}
	}
	turns, err := m.store.ListRecentTurns(ctx, conversationID, m.historyLimit)
	if err != nil {
		slog.Warn("session_restore_failed", "conversation_id", conversationID, "error", err)
		return domain.ConversationState{}
	}
	return domain.ConversationState{History: turns}
}

func (m *SessionManager) persistNewTurns(ctx context.Context, conversationID string, before, after domain.ConversationState) {
	if m.store == nil {
		return
	}
	for _, turn := range after.History[len(before.History):] {
		if err := m.store.AppendTurn(ctx, conversationID, turn); err != nil {
			slog.Warn("append_turn_failed", "conversation_id", conversationID, "error", err)
			return
		}
	}
}
