package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
	"github.com/dkomnin/handbook-assistant/internal/core/ports"
)

// HistorySummarizer keeps prompt history bounded. Once a conversation grows
// past the threshold, older turns are compacted into a single summary turn;
// on any failure the raw recent window is used instead.
type HistorySummarizer struct {
	model ports.LanguageModel

	threshold int
	window    int
}

func NewHistorySummarizer(model ports.LanguageModel, threshold, window int) *HistorySummarizer {
	if threshold <= 0 {
		threshold = 12
	}
	if window <= 0 || window >= threshold {
		window = threshold / 2
	}
	return &HistorySummarizer{model: model, threshold: threshold, window: window}
}

// Compact returns the history to use in prompts for this turn.
func (s *HistorySummarizer) Compact(ctx context.Context, history []domain.Turn) []domain.Turn {
	if len(history) < s.threshold {
		return history
	}

	older := history[:len(history)-s.window]
	recent := history[len(history)-s.window:]

	summary, err := s.model.Summarize(ctx, older)
	if err != nil || strings.TrimSpace(summary) == "" {
		if err != nil {
			slog.Warn("history_summarization_failed", "error", err)
		}
		return recent
	}

	out := make([]domain.Turn, 0, len(recent)+1)
	out = append(out, domain.Turn{Role: domain.RoleAssistant, Text: "Conversation so far: " + strings.TrimSpace(summary)})
	out = append(out, recent...)
	return out
}
