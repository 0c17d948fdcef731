package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

// ConversationStore persists the durable turn log and rolling summaries. The
// in-memory session state stays authoritative during a conversation; this
// store exists so history survives restarts and can be replayed.
type ConversationStore struct {
	db *sql.DB
}

func NewConversationStore(db *sql.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func (s *ConversationStore) AppendTurn(ctx context.Context, conversationID string, turn domain.Turn) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO conversation_turns (conversation_id, role, content, created_at)
VALUES ($1,$2,$3,$4)
`, conversationID, string(turn.Role), turn.Text, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *ConversationStore) ListRecentTurns(ctx context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT role, content
FROM conversation_turns
WHERE conversation_id = $1
ORDER BY id DESC
LIMIT $2
`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent turns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Turn, 0, limit)
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, domain.Turn{Role: domain.TurnRole(role), Text: content})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	// Returned in descending order from SQL; reverse to keep chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *ConversationStore) SaveSummary(ctx context.Context, conversationID, summary string, upToTurn int) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO conversation_summaries (conversation_id, summary, up_to_turn, updated_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (conversation_id) DO UPDATE
SET summary = EXCLUDED.summary,
    up_to_turn = GREATEST(conversation_summaries.up_to_turn, EXCLUDED.up_to_turn),
    updated_at = EXCLUDED.updated_at
`, conversationID, summary, upToTurn, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	return nil
}

func (s *ConversationStore) LastSummary(ctx context.Context, conversationID string) (string, int, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT summary, up_to_turn
FROM conversation_summaries
WHERE conversation_id = $1
`, conversationID)

	var summary string
	var upToTurn int
	if err := row.Scan(&summary, &upToTurn); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, nil
		}
		return "", 0, fmt.Errorf("last summary: %w", err)
	}
	return summary, upToTurn, nil
}
