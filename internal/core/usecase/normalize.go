package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
	"github.com/dkomnin/handbook-assistant/internal/core/ports"
)

// minRewriteLen guards against a degenerate rewrite erasing the question.
const minRewriteLen = 8

// confirmationVocabulary is matched case- and punctuation-insensitively. A
// member hit while awaiting a follow-up short-circuits normalization to the
// stored follow-up question, skipping the rewrite call entirely.
var confirmationVocabulary = map[string]struct{}{
	"yes":         {},
	"yeah":        {},
	"yep":         {},
	"y":           {},
	"ok":          {},
	"okay":        {},
	"sure":        {},
	"proceed":     {},
	"continue":    {},
	"go ahead":    {},
	"please":      {},
	"please do":   {},
	"sounds good": {},
	"yes please":  {},
}

// QueryNormalizer rewrites raw messages into standalone retrieval queries.
type QueryNormalizer struct {
	model ports.LanguageModel
}

func NewQueryNormalizer(model ports.LanguageModel) *QueryNormalizer {
	return &QueryNormalizer{model: model}
}

// Normalize resolves the effective retrieval question for a message.
// Priority order: confirmation shortcut, LLM rewrite, original message.
func (n *QueryNormalizer) Normalize(
	ctx context.Context,
	message string,
	history []domain.Turn,
	awaitingFollowup bool,
	lastFollowupQuestion string,
) string {
	if awaitingFollowup && lastFollowupQuestion != "" && IsConfirmation(message) {
		return lastFollowupQuestion
	}

	rewritten, err := n.model.Rewrite(ctx, message, history, awaitingFollowup, lastFollowupQuestion)
	if err != nil {
		slog.Warn("query_rewrite_failed", "error", err)
		return message
	}

	rewritten = strings.TrimSpace(strings.Trim(strings.TrimSpace(rewritten), `"`))
	if len(rewritten) < minRewriteLen {
		return message
	}
	return rewritten
}

// IsConfirmation reports whether the message is a short affirmation token.
func IsConfirmation(message string) bool {
	normalized := normalizeToken(message)
	if normalized == "" {
		return false
	}
	_, ok := confirmationVocabulary[normalized]
	return ok
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
