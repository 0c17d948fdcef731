package usecase

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
	"github.com/dkomnin/handbook-assistant/internal/core/ports"
)

// FollowUpValidator accepts a follow-up candidate only if its topic exists in
// the corpus and it was not already asked in this conversation.
type FollowUpValidator struct {
	metadata ports.CorpusMetadata
}

func NewFollowUpValidator(metadata ports.CorpusMetadata) *FollowUpValidator {
	return &FollowUpValidator{metadata: metadata}
}

func (v *FollowUpValidator) Validate(
	ctx context.Context,
	candidate domain.FollowUpCandidate,
	history []domain.Turn,
) bool {
	if !candidate.Present() {
		return false
	}
	if isRepetition(candidate.Question, history) {
		return false
	}

	sections, err := v.metadata.ListKnownSections(ctx)
	if err != nil {
		// Without corpus metadata the existence check cannot hold; reject
		// rather than offer a follow-up that may point at nothing.
		slog.Warn("list_known_sections_failed", "error", err)
		return false
	}
	return sectionExists(candidate.Question, sections)
}

// sectionExists checks case-insensitive token membership between the candidate
// words and the set of known section labels. It rejects hallucinated
// follow-ups pointing at material the corpus does not have.
func sectionExists(question string, sections []string) bool {
	questionTokens := tokenSet(question)
	if len(questionTokens) == 0 {
		return false
	}
	for _, section := range sections {
		for token := range tokenSet(section) {
			if _, ok := questionTokens[token]; ok {
				return true
			}
		}
	}
	return false
}

// isRepetition reports whether the candidate's normalized text already appears
// as a substring of any prior turn.
func isRepetition(question string, history []domain.Turn) bool {
	needle := normalizeText(question)
	if needle == "" {
		return true
	}
	for _, turn := range history {
		if strings.Contains(normalizeText(turn.Text), needle) {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, field := range strings.Fields(normalizeText(s)) {
		if isStopToken(field) {
			continue
		}
		out[field] = struct{}{}
	}
	return out
}

// isStopToken drops connective words so the overlap check keys on topic words.
func isStopToken(token string) bool {
	switch token {
	case "a", "an", "and", "are", "about", "can", "do", "does", "for", "how",
		"i", "in", "is", "it", "me", "more", "of", "on", "or", "tell", "the",
		"to", "what", "when", "where", "which", "who", "would", "you", "your",
		"like", "know":
		return true
	}
	return len(token) <= 1
}
