package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

func newStoreWithMock(t *testing.T) (*ConversationStore, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ConversationStore{db: db}, mock, func() { _ = db.Close() }
}

func TestAppendTurn(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO conversation_turns").
		WithArgs("c1", "user", "hello", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.AppendTurn(context.Background(), "c1", domain.Turn{Role: domain.RoleUser, Text: "hello"})
	if err != nil {
		t.Fatalf("AppendTurn() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecentTurnsChronologicalOrder(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	// SQL returns newest first; the store must reverse to chronological order.
	mock.ExpectQuery("SELECT role, content").
		WithArgs("c1", 3).
		WillReturnRows(sqlmock.NewRows([]string{"role", "content"}).
			AddRow("assistant", "third").
			AddRow("user", "second").
			AddRow("assistant", "first"))

	turns, err := store.ListRecentTurns(context.Background(), "c1", 3)
	if err != nil {
		t.Fatalf("ListRecentTurns() error = %v", err)
	}
	if len(turns) != 3 || turns[0].Text != "first" || turns[2].Text != "third" {
		t.Fatalf("unexpected order: %v", turns)
	}
}

func TestListRecentTurnsZeroLimit(t *testing.T) {
	store, _, done := newStoreWithMock(t)
	defer done()

	turns, err := store.ListRecentTurns(context.Background(), "c1", 0)
	if err != nil || turns != nil {
		t.Fatalf("expected nil, nil for zero limit, got %v, %v", turns, err)
	}
}

func TestLastSummaryMissingIsEmpty(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT summary, up_to_turn").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"summary", "up_to_turn"}))

	summary, upTo, err := store.LastSummary(context.Background(), "c1")
	if err != nil {
		t.Fatalf("LastSummary() error = %v", err)
	}
	if summary != "" || upTo != 0 {
		t.Fatalf("expected empty summary, got %q/%d", summary, upTo)
	}
}
