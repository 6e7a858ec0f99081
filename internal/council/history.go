package council

import (
	"strings"
	"time"
)

const (
	finalAnswerMarker = "PART 2: FINAL ANSWER"
	slidingWindowTurns = 10 // last N turns = 2N messages
)

// TimeInstructions returns the system-prompt and user-facing time anchors.
// This is the only authoritative time signal sent to any model (spec.md §4.3).
func TimeInstructions(now time.Time) (system, user string) {
	ts := now.Format("2006-01-02 15:04:05")
	system = "Current System Time: " + ts + ". You are operating in the present. Use this as your temporal anchor."
	user = "[SYSTEM NOTE: The current date and time is " + ts + ". Answer the following query using this as the present moment.]\n\n"
	return system, user
}

// BuildLLMHistory converts stored messages into the LLM-facing history:
// keep only user/assistant turns, extract stage3's final-answer section
// from assistant turns, and apply a 2*slidingWindowTurns sliding window.
func BuildLLMHistory(messages []HistoryMessage) []HistoryMessage {
	relevant := make([]HistoryMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == "user" || m.Role == "assistant" {
			relevant = append(relevant, m)
		}
	}
	if max := slidingWindowTurns * 2; len(relevant) > max {
		relevant = relevant[len(relevant)-max:]
	}

	out := make([]HistoryMessage, 0, len(relevant))
	for _, m := range relevant {
		if m.Role == "user" {
			out = append(out, HistoryMessage{Role: "user", Content: m.Content})
			continue
		}
		content := ""
		if m.Stage3 != nil {
			content = m.Stage3.Response
		}
		if idx := strings.Index(content, finalAnswerMarker); idx >= 0 {
			tail := strings.TrimSpace(content[idx+len(finalAnswerMarker):])
			tail = strings.TrimPrefix(tail, ":")
			content = strings.TrimSpace(tail)
		}
		out = append(out, HistoryMessage{Role: "assistant", Content: content})
	}
	return out
}

// PrepareHistoryContext drops a trailing user message so the caller's own
// "current query" append is never duplicated.
func PrepareHistoryContext(history []HistoryMessage) []HistoryMessage {
	if len(history) > 0 && history[len(history)-1].Role == "user" {
		return history[:len(history)-1]
	}
	return history
}

// BuildMessageChain assembles [system, ...history (deduplicated), user].
func BuildMessageChain(systemPrompt string, history []HistoryMessage, userQuery string) []Turn {
	msgs := make([]Turn, 0, len(history)+2)
	msgs = append(msgs, Turn{Role: "system", Content: systemPrompt})
	for _, h := range PrepareHistoryContext(history) {
		msgs = append(msgs, Turn{Role: h.Role, Content: h.Content})
	}
	msgs = append(msgs, Turn{Role: "user", Content: userQuery})
	return msgs
}

// Turn is a provider-agnostic chat message; converted to upstream.Message
// at the call boundary.
type Turn struct {
	Role    string
	Content string
}
