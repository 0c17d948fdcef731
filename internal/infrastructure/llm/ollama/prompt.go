package ollama

import (
	"fmt"
	"strings"

	"github.com/dkomnin/handbook-assistant/internal/core/domain"
)

func historyLines(history []domain.Turn) string {
	if len(history) == 0 {
		return "(no prior context)"
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", turn.Role, text))
	}
	if len(lines) == 0 {
		return "(no prior context)"
	}
	return strings.Join(lines, "\n")
}

func buildIntentPrompt(message string, history []domain.Turn, awaitingFollowup bool, lastFollowupQuestion string) string {
	pending := "(none)"
	if awaitingFollowup && lastFollowupQuestion != "" {
		pending = lastFollowupQuestion
	}

	return fmt.Sprintf(`You are an intent classifier for a document question-answering assistant.
Return strict JSON: {"intent":"<tag>"} with exactly one of these tags:
greeting       - a salutation with no question ("hi", "good morning").
small_talk     - chit-chat not about documents ("how are you", "thanks").
new_question   - any message that asks about a new topic, or declines a pending follow-up ("no", "stop", "not now").
followup_reply - ONLY when a follow-up is pending AND the message clearly continues or confirms that exact follow-up.

Be conservative: if the message introduces any new topic, use new_question even while a follow-up is pending.
No markdown, no extra keys.

Pending follow-up question:
%s

Conversation:
%s

Message:
%s
`, pending, historyLines(history), message)
}

func buildRewritePrompt(subject, message string, history []domain.Turn, awaitingFollowup bool, lastFollowupQuestion string) string {
	pending := "(none)"
	if awaitingFollowup && lastFollowupQuestion != "" {
		pending = lastFollowupQuestion
	}

	return fmt.Sprintf(`You are a query rewriting module for a document search system about %s.
Tasks:
1. Correct spelling and grammar mistakes.
2. Resolve every ambiguous reference ("their", "it", "that", "your company") by replacing it with %s.
3. Expand vague or short messages into one complete, self-contained factual question.
4. If a follow-up question is pending and the message answers it, merge both into one standalone question.
5. Do NOT answer the question. Return ONLY the rewritten question, no quotes.

Pending follow-up question:
%s

Conversation:
%s

Message:
%s
`, subject, subject, pending, historyLines(history), message)
}

func buildGroundedPrompt(question, contextText string, history []domain.Turn) string {
	return fmt.Sprintf(`Answer the question using ONLY the context below. Never use outside knowledge.
If the context does not contain the answer, reply with exactly this sentence and nothing else:
I'm sorry, that information is not available in the company documents.

Format your reply exactly as:
ANSWER: <answer derived only from the context>
FOLLOWUP: <one question about a different topic that IS covered by the context, or the word none>

The follow-up must be answerable from the context, must not repeat the current question's topic, and must be none when you refused.

Context:
%s

Recent conversation:
%s

Question:
%s
`, contextText, historyLines(history), question)
}

func buildRelevancePrompt(query, passage string) string {
	return fmt.Sprintf(`Rate how relevant the passage is to the query on a scale from 0.0 to 1.0.
Return strict JSON: {"score": <number>}. No markdown, no extra keys.

Query:
%s

Passage:
%s
`, query, passage)
}

func buildSummaryPrompt(turns []domain.Turn) string {
	return fmt.Sprintf(`Summarize the following conversation turns in concise factual form.
Preserve the topics discussed, key facts, and open user intents. Return plain text.

%s`, historyLines(turns))
}
