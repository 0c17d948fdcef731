package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

// ChatLimits bounds every suspension point of one turn. The pipeline is a
// strict sequence of at most four backend calls, so end-to-end latency is
// additive; a stalled call fails its stage instead of blocking the turn.
type ChatLimits struct {
	ClassifyTimeout  time.Duration
	RewriteTimeout   time.Duration
	RetrieveTimeout  time.Duration
	GenerateTimeout  time.Duration
	HistoryWindow    int
	SummarizeAfter   int
	ContextSeparator string
}

func (l ChatLimits) normalize() ChatLimits {
	out := l
	if out.ClassifyTimeout <= 0 {
		out.ClassifyTimeout = 10 * time.Second
	}
	if out.RewriteTimeout <= 0 {
		out.RewriteTimeout = 15 * time.Second
	}
	if out.RetrieveTimeout <= 0 {
		out.RetrieveTimeout = 20 * time.Second
	}
	if out.GenerateTimeout <= 0 {
		out.GenerateTimeout = 45 * time.Second
	}
	if out.HistoryWindow <= 0 {
		out.HistoryWindow = 6
	}
	if out.SummarizeAfter <= 0 {
		out.SummarizeAfter = 12
	}
	if out.ContextSeparator == "" {
		out.ContextSeparator = "\n\n"
	}
	return out
}

// declineVocabulary exits follow-up mode without re-running retrieval: the
// reply is a neutral prompt and the next message is handled independently.
var declineVocabulary = map[string]struct{}{
	"no":            {},
	"nope":          {},
	"no thanks":     {},
	"no thank you":  {},
	"not now":       {},
	"stop":          {},
	"nothing":       {},
	"nothing else":  {},
	"im good":       {},
	"thats all":     {},
	"no im good":    {},
	"later":         {},
	"maybe later":   {},
	"not right now": {},
}

func isDecline(message string) bool {
	_, ok := declineVocabulary[normalizeToken(message)]
	return ok
}

// ChatUseCase is the conversation orchestrator: it sequences intent
// classification, query normalization, retrieval, grounded answering and
// follow-up validation, and produces the next conversation state.
//
// AdvanceTurn is pure with respect to its state argument. No branch leaves the
// state partially updated: the new state is assembled once at the end of the
// turn, and a cancelled context aborts without committing anything.
type ChatUseCase struct {
	intents    *IntentClassifier
	normalizer *QueryNormalizer
	retriever  *Retriever
	answerer   *GroundedAnswerer
	validator  *FollowUpValidator
	summarizer *HistorySummarizer
	limits     ChatLimits
}

func NewChatUseCase(
	intents *IntentClassifier,
	normalizer *QueryNormalizer,
	retriever *Retriever,
	answerer *GroundedAnswerer,
	validator *FollowUpValidator,
	summarizer *HistorySummarizer,
	limits ChatLimits,
) *ChatUseCase {
	return &ChatUseCase{
		intents:    intents,
		normalizer: normalizer,
		retriever:  retriever,
		answerer:   answerer,
		validator:  validator,
		summarizer: summarizer,
		limits:     limits.normalize(),
	}
}

func (uc *ChatUseCase) AdvanceTurn(
	ctx context.Context,
	message string,
	state domain.ConversationState,
) (*domain.TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return uc.finishIdle(state, message, GreetingReply), nil
	}

	promptHistory := uc.summarizer.Compact(ctx, state.History)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	classifyCtx, cancel := context.WithTimeout(ctx, uc.limits.ClassifyTimeout)
	intent := uc.intents.Classify(classifyCtx, message, promptHistory, state.AwaitingFollowup, state.LastFollowupQuestion)
	cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch intent {
	case domain.IntentGreeting:
		return uc.finishIdle(state, message, GreetingReply), nil
	case domain.IntentSmallTalk:
		return uc.finishIdle(state, message, SmallTalkReply), nil
	}

	// A decline while a follow-up is pending clears the stored context and
	// answers with a neutral prompt; the next message starts fresh.
	if state.AwaitingFollowup && intent == domain.IntentNewQuestion && isDecline(message) {
		return uc.finishIdle(state, message, DeclineReply), nil
	}

	rewriteCtx, cancel := context.WithTimeout(ctx, uc.limits.RewriteTimeout)
	question := uc.normalizer.Normalize(rewriteCtx, message, promptHistory, state.AwaitingFollowup, state.LastFollowupQuestion)
	cancel()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return uc.answerQuestion(ctx, message, question, promptHistory, state)
}

// answerQuestion runs retrieval, grounded generation and follow-up validation
// for an effective question, for both the new-question and followup-reply
// paths. The follow-up path re-retrieves against the stored follow-up
// question, keeping context fresh instead of replaying last_context.
func (uc *ChatUseCase) answerQuestion(
	ctx context.Context,
	message, question string,
	promptHistory []domain.Turn,
	state domain.ConversationState,
) (*domain.TurnResult, error) {
	retrieveCtx, cancel := context.WithTimeout(ctx, uc.limits.RetrieveTimeout)
	chunks, err := uc.retriever.Retrieve(retrieveCtx, question)
	cancel()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		// RetrievalEmpty and backend failures terminate the turn with the
		// fixed not-available reply; this is a normal outcome, not a fault.
		return uc.finishIdle(state, message, RefusalReply), nil
	}

	contents := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		contents = append(contents, chunk.Content)
	}
	contextText := strings.Join(contents, uc.limits.ContextSeparator)

	generateCtx, cancel := context.WithTimeout(ctx, uc.limits.GenerateTimeout)
	answer := uc.answerer.Answer(generateCtx, question, contextText, promptHistory)
	cancel()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	if answer.Refusal {
		return uc.finishIdle(state, message, answer.Answer), nil
	}

	validationHistory := state.WithTurn(domain.RoleUser, message).History
	if uc.validator.Validate(ctx, answer.FollowUp, validationHistory) {
		reply := answer.Answer + "\n\n" + answer.FollowUp.Question
		next := state.WithTurn(domain.RoleUser, message).WithTurn(domain.RoleAssistant, reply)
		next.AwaitingFollowup = true
		next.LastContext = contextText
		next.LastFollowupQuestion = answer.FollowUp.Question
		return &domain.TurnResult{Reply: reply, State: next}, nil
	}

	return uc.finishIdle(state, message, answer.Answer), nil
}

// finishIdle assembles a terminal turn that returns the conversation to the
// idle state with the pending follow-up context cleared.
func (uc *ChatUseCase) finishIdle(state domain.ConversationState, message, reply string) *domain.TurnResult {
	next := state
	if message != "" {
		next = next.WithTurn(domain.RoleUser, message)
	}
	next = next.WithTurn(domain.RoleAssistant, reply)
	next.AwaitingFollowup = false
	next.LastContext = ""
	next.LastFollowupQuestion = ""
	return &domain.TurnResult{Reply: reply, State: next}
}
