package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
	"github.com/dkomnin/handbook-assistant/internal/core/ports"
)

// GroundedAnswer is the parsed output of one generation call.
type GroundedAnswer struct {
	Answer   string
	FollowUp domain.FollowUpCandidate
	Refusal  bool
}

// GroundedAnswerer produces answers strictly from supplied context. On any
// generation failure it degrades to the fixed refusal sentence with an absent
// follow-up: fail closed, never silent success.
type GroundedAnswerer struct {
	model ports.LanguageModel
}

func NewGroundedAnswerer(model ports.LanguageModel) *GroundedAnswerer {
	return &GroundedAnswerer{model: model}
}

func (a *GroundedAnswerer) Answer(
	ctx context.Context,
	question, contextText string,
	history []domain.Turn,
) GroundedAnswer {
	raw, err := a.model.GenerateGrounded(ctx, question, contextText, history)
	if err != nil {
		slog.Warn("grounded_generation_failed", "error", err)
		return GroundedAnswer{Answer: RefusalReply, Refusal: true}
	}
	return parseGroundedOutput(raw)
}

// parseGroundedOutput splits the raw model output on the two fixed section
// markers. A missing answer marker degrades to treating the whole output as
// the answer; a missing follow-up marker means no follow-up was offered.
func parseGroundedOutput(raw string) GroundedAnswer {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return GroundedAnswer{Answer: RefusalReply, Refusal: true}
	}

	answer := raw
	followup := ""
	if idx := strings.Index(raw, followupMarker); idx >= 0 {
		answer = raw[:idx]
		followup = raw[idx+len(followupMarker):]
	}
	if idx := strings.Index(answer, answerMarker); idx >= 0 {
		answer = answer[idx+len(answerMarker):]
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return GroundedAnswer{Answer: RefusalReply, Refusal: true}
	}

	out := GroundedAnswer{
		Answer:  answer,
		Refusal: isRefusal(answer),
	}
	// A refusal is never paired with a follow-up.
	if out.Refusal {
		out.Answer = RefusalReply
		return out
	}
	out.FollowUp = normalizeFollowUp(followup)
	return out
}

func isRefusal(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), RefusalReply) ||
		strings.Contains(strings.ToLower(answer), "not available in the company documents")
}

// normalizeFollowUp treats textual none/null and empty values as absent.
func normalizeFollowUp(raw string) domain.FollowUpCandidate {
	value := strings.TrimSpace(raw)
	if newline := strings.IndexByte(value, '\n'); newline >= 0 {
		value = strings.TrimSpace(value[:newline])
	}
	switch strings.ToLower(strings.Trim(value, `."'`)) {
	case "", "none", "null", "n/a", "nil":
		return domain.FollowUpCandidate{}
	}
	return domain.FollowUpCandidate{Question: value}
}
