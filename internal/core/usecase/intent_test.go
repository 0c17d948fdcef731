package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

func TestClassifyAffirmationFastPath(t *testing.T) {
	model := &fakeLanguageModel{intent: "new_question"}
	classifier := NewIntentClassifier(model)

	got := classifier.Classify(context.Background(), "Yes!", nil, true, "Would you like to know about leave policy?")
	if got != domain.IntentFollowupReply {
		t.Fatalf("Classify() = %v, want followup_reply", got)
	}
	if model.intentCalls != 0 {
		t.Fatalf("expected no model call for exact affirmation, got %d", model.intentCalls)
	}
}

func TestClassifyAffirmationWithoutPendingFollowup(t *testing.T) {
	model := &fakeLanguageModel{intent: "new_question"}
	classifier := NewIntentClassifier(model)

	got := classifier.Classify(context.Background(), "yes", nil, false, "")
	if got != domain.IntentNewQuestion {
		t.Fatalf("Classify() = %v, want new_question", got)
	}
	if model.intentCalls != 1 {
		t.Fatalf("expected model call when no follow-up is pending, got %d", model.intentCalls)
	}
}

func TestClassifyModelFailureFallsOpen(t *testing.T) {
	classifier := NewIntentClassifier(&fakeLanguageModel{intentErr: errors.New("backend down")})

	got := classifier.Classify(context.Background(), "what is the probation period", nil, false, "")
	if got != domain.IntentNewQuestion {
		t.Fatalf("Classify() = %v, want new_question on model failure", got)
	}
}

func TestClassifyUnknownTagFallsOpen(t *testing.T) {
	classifier := NewIntentClassifier(&fakeLanguageModel{intent: "banter"})

	got := classifier.Classify(context.Background(), "hmm", nil, false, "")
	if got != domain.IntentNewQuestion {
		t.Fatalf("Classify() = %v, want new_question on unknown tag", got)
	}
}

func TestClassifyFollowupReplyRequiresPendingFollowup(t *testing.T) {
	classifier := NewIntentClassifier(&fakeLanguageModel{intent: "followup_reply"})

	got := classifier.Classify(context.Background(), "sure go on", nil, false, "")
	if got != domain.IntentNewQuestion {
		t.Fatalf("Classify() = %v, want followup_reply demoted to new_question", got)
	}
}

func TestClassifyGreeting(t *testing.T) {
	classifier := NewIntentClassifier(&fakeLanguageModel{intent: "greeting"})

	got := classifier.Classify(context.Background(), "good morning", nil, false, "")
	if got != domain.IntentGreeting {
		t.Fatalf("Classify() = %v, want greeting", got)
	}
}
