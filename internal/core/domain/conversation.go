package domain

// Intent is the four-way label assigned to each incoming message.
type Intent string

const (
	IntentGreeting      Intent = "greeting"
	IntentSmallTalk     Intent = "small_talk"
	IntentNewQuestion   Intent = "new_question"
	IntentFollowupReply Intent = "followup_reply"
)

func ParseIntent(raw string) (Intent, bool) {
	switch Intent(raw) {
	case IntentGreeting, IntentSmallTalk, IntentNewQuestion, IntentFollowupReply:
		return Intent(raw), true
	}
	return "", false
}

type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Turn is one utterance in a conversation. Turns are append-only and their
// insertion order is significant: recency windows and repetition checks both
// read the sequence back to front.
type Turn struct {
	Role TurnRole `json:"role"`
	Text string   `json:"text"`
}

// ConversationState is the full per-conversation dialogue state. It is owned
// exclusively by the conversation it belongs to and mutated exactly once per
// turn by the orchestrator.
//
// Invariant: AwaitingFollowup == true iff both LastContext and
// LastFollowupQuestion are non-empty.
type ConversationState struct {
	AwaitingFollowup     bool   `json:"awaiting_followup"`
	LastContext          string `json:"last_context,omitempty"`
	LastFollowupQuestion string `json:"last_followup_question,omitempty"`
	History              []Turn `json:"history"`
}

func NewConversationState() ConversationState {
	return ConversationState{History: []Turn{}}
}

// Valid reports whether the awaiting-followup invariant holds.
func (s ConversationState) Valid() bool {
	if s.AwaitingFollowup {
		return s.LastContext != "" && s.LastFollowupQuestion != ""
	}
	return s.LastContext == "" && s.LastFollowupQuestion == ""
}

// WithTurn returns a copy of the state with one turn appended. The original
// history slice is never shared with the copy.
func (s ConversationState) WithTurn(role TurnRole, text string) ConversationState {
	out := s
	out.History = make([]Turn, 0, len(s.History)+1)
	out.History = append(out.History, s.History...)
	out.History = append(out.History, Turn{Role: role, Text: text})
	return out
}

// RecentTurns returns up to n most recent turns in chronological order.
func (s ConversationState) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if n > len(s.History) {
		n = len(s.History)
	}
	return s.History[len(s.History)-n:]
}

// FollowUpCandidate is a suggested next question extracted from a generated
// answer. Absence is first-class: an empty Question means no candidate was
// offered, which is distinct from any textual "none" the model may emit.
type FollowUpCandidate struct {
	Question string `json:"question,omitempty"`
}

func (c FollowUpCandidate) Present() bool {
	return c.Question != ""
}

// TurnResult is what one orchestrated turn produces: the user-facing reply and
// the fully-formed next conversation state.
type TurnResult struct {
	Reply string            `json:"reply"`
	State ConversationState `json:"state"`
}
