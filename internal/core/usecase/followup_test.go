package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

func TestValidateAcceptsKnownSectionTopic(t *testing.T) {
	validator := NewFollowUpValidator(&fakeMetadata{sections: []string{"Leave Policy", "Probation"}})

	candidate := domain.FollowUpCandidate{Question: "Would you like to know about the leave policy?"}
	if !validator.Validate(context.Background(), candidate, nil) {
		t.Fatalf("expected candidate touching a known section to be accepted")
	}
}

func TestValidateRejectsUnknownTopic(t *testing.T) {
	validator := NewFollowUpValidator(&fakeMetadata{sections: []string{"Leave Policy"}})

	candidate := domain.FollowUpCandidate{Question: "Would you like to know about stock options?"}
	if validator.Validate(context.Background(), candidate, nil) {
		t.Fatalf("expected candidate outside the corpus to be rejected")
	}
}

func TestValidateRejectsAbsentCandidate(t *testing.T) {
	validator := NewFollowUpValidator(&fakeMetadata{sections: []string{"Leave Policy"}})

	if validator.Validate(context.Background(), domain.FollowUpCandidate{}, nil) {
		t.Fatalf("absent candidate must be rejected")
	}
}

func TestValidateRejectsRepetition(t *testing.T) {
	validator := NewFollowUpValidator(&fakeMetadata{sections: []string{"Leave Policy"}})

	history := []domain.Turn{
		{Role: domain.RoleAssistant, Text: "Three months.\n\nWould you like to know about the leave policy?"},
	}
	candidate := domain.FollowUpCandidate{Question: "Would you like to know about the Leave Policy?"}
	if validator.Validate(context.Background(), candidate, history) {
		t.Fatalf("a follow-up already asked this conversation must be rejected")
	}
}

func TestValidateRejectsOnMetadataFailure(t *testing.T) {
	validator := NewFollowUpValidator(&fakeMetadata{err: errors.New("db down")})

	candidate := domain.FollowUpCandidate{Question: "Would you like to know about the leave policy?"}
	if validator.Validate(context.Background(), candidate, nil) {
		t.Fatalf("metadata failure must reject, not accept")
	}
}

func TestSectionExistsIgnoresStopWords(t *testing.T) {
	// "about", "the", "know" appear in most follow-ups; overlap must key on
	// topic words only.
	if sectionExists("Would you like to know about the office?", []string{"About the Company"}) {
		t.Fatalf("stop-word-only overlap must not count as existence")
	}
}
