package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

func turnsOf(n int) []domain.Turn {
	out := make([]domain.Turn, 0, n)
	for i := 0; i < n; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		out = append(out, domain.Turn{Role: role, Text: "turn"})
	}
	return out
}

func TestCompactBelowThresholdReturnsHistoryUnchanged(t *testing.T) {
	summarizer := NewHistorySummarizer(&fakeLanguageModel{summary: "ignored"}, 12, 6)

	history := turnsOf(5)
	got := summarizer.Compact(context.Background(), history)
	if len(got) != 5 {
		t.Fatalf("expected history untouched, got %d turns", len(got))
	}
}

func TestCompactSummarizesOlderTurns(t *testing.T) {
	summarizer := NewHistorySummarizer(&fakeLanguageModel{summary: "user asked about leave and probation"}, 12, 6)

	got := summarizer.Compact(context.Background(), turnsOf(14))
	if len(got) != 7 {
		t.Fatalf("expected summary turn plus recent window, got %d turns", len(got))
	}
	if !strings.HasPrefix(got[0].Text, "Conversation so far: ") {
		t.Fatalf("expected leading summary turn, got %q", got[0].Text)
	}
	if got[0].Role != domain.RoleAssistant {
		t.Fatalf("summary turn role = %v", got[0].Role)
	}
}

func TestCompactSummaryFailureKeepsRecentWindow(t *testing.T) {
	summarizer := NewHistorySummarizer(&fakeLanguageModel{summaryErr: errors.New("backend down")}, 12, 6)

	got := summarizer.Compact(context.Background(), turnsOf(14))
	if len(got) != 6 {
		t.Fatalf("expected bare recent window on failure, got %d turns", len(got))
	}
}
