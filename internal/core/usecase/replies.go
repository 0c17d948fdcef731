package usecase

// Fixed user-visible wording. Internal diagnostic detail never reaches the
// reply text; these sentences are the only failure surface the user sees.
const (
	GreetingReply  = "Hello! Ask me anything about the company handbook."
	SmallTalkReply = "I'm doing well, thank you! Ask me anything about the company handbook."
	RefusalReply   = "I'm sorry, that information is not available in the company documents."
	DeclineReply   = "No problem. Ask me anything else about the company handbook."
)

const (
	answerMarker   = "ANSWER:"
	followupMarker = "FOLLOWUP:"
)
