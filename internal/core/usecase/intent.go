package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
	"github.com/dkomnin/handbook-assistant/internal/core/ports"
)

// IntentClassifier labels a message against the current dialogue state.
//
// The classifier is conservative: followup_reply is only possible while the
// conversation is awaiting a follow-up, and any failure of the underlying
// reasoning call falls open to new_question so the user is never stuck in a
// follow-up loop.
type IntentClassifier struct {
	model ports.LanguageModel
}

func NewIntentClassifier(model ports.LanguageModel) *IntentClassifier {
	return &IntentClassifier{model: model}
}

func (c *IntentClassifier) Classify(
	ctx context.Context,
	message string,
	history []domain.Turn,
	awaitingFollowup bool,
	lastFollowupQuestion string,
) domain.Intent {
	// Deterministic fast path: an exact affirmation while awaiting a
	// follow-up is always a continuation, no reasoning call needed.
	if awaitingFollowup && lastFollowupQuestion != "" && IsConfirmation(message) {
		return domain.IntentFollowupReply
	}

	raw, err := c.model.ClassifyIntent(ctx, message, history, awaitingFollowup, lastFollowupQuestion)
	if err != nil {
		slog.Warn("intent_classification_failed", "error", err)
		return domain.IntentNewQuestion
	}

	intent, ok := domain.ParseIntent(strings.ToLower(strings.TrimSpace(raw)))
	if !ok {
		slog.Warn("intent_classification_unparsable", "raw", raw)
		return domain.IntentNewQuestion
	}

	// followup_reply is only valid while a follow-up is pending.
	if intent == domain.IntentFollowupReply && !awaitingFollowup {
		return domain.IntentNewQuestion
	}
	return intent
}
