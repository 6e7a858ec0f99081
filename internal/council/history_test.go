package council

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeInstructions(t *testing.T) {
	now := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	system, user := TimeInstructions(now)
	assert.Contains(t, system, "2026-03-05 14:30:00")
	assert.Contains(t, user, "2026-03-05 14:30:00")
	assert.Contains(t, user, "[SYSTEM NOTE:")
}

func TestBuildLLMHistory_ExtractsFinalAnswer(t *testing.T) {
	history := []HistoryMessage{
		{Role: "user", Content: "what is go"},
		{Role: "assistant", Stage3: &Stage3Result{Response: "## PART 1: COUNCIL REPORT\nsome table\n\nPART 2: FINAL ANSWER\n: Go is a language."}},
		{Role: "system", Content: "ignored"},
	}
	out := BuildLLMHistory(history)
	assert.Len(t, out, 2)
	assert.Equal(t, "what is go", out[0].Content)
	assert.Equal(t, "Go is a language.", out[1].Content)
}

func TestBuildLLMHistory_SlidingWindow(t *testing.T) {
	var history []HistoryMessage
	for i := 0; i < 30; i++ {
		history = append(history, HistoryMessage{Role: "user", Content: "q"})
	}
	out := BuildLLMHistory(history)
	assert.Len(t, out, 2*slidingWindowTurns)
}

func TestPrepareHistoryContext_DropsTrailingUser(t *testing.T) {
	history := []HistoryMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "current query duplicate"},
	}
	out := PrepareHistoryContext(history)
	assert.Len(t, out, 2)
	assert.Equal(t, "reply", out[1].Content)
}

func TestBuildMessageChain(t *testing.T) {
	history := []HistoryMessage{{Role: "user", Content: "old"}}
	chain := BuildMessageChain("sys", history, "new query")
	assert.Equal(t, []Turn{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "new query"},
	}, chain)
}
