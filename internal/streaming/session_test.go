package streaming

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"council/internal/config"
	"council/internal/council"
	"council/internal/councilerr"
	"council/internal/conversation"
	"council/internal/upstream"
	"council/internal/voting"
)

type stubUpstream struct {
	byModel map[string]string

	mu       sync.Mutex
	requests []upstream.Request
}

func (s *stubUpstream) Query(ctx context.Context, req upstream.Request) *upstream.Result {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	content, ok := s.byModel[req.Model]
	if !ok {
		return nil
	}
	return &upstream.Result{Content: content}
}

func newTestResolver(t *testing.T) *config.Resolver {
	t.Helper()
	dataDir := t.TempDir()
	defaultsDir := filepath.Join(dataDir, "defaults", "personalities")
	require.NoError(t, os.MkdirAll(defaultsDir, 0o755))

	writePersonality(t, defaultsDir, "analyst.yaml", `id: analyst
name: Analyst
model: openai/gpt-4o
enabled: true
personality_prompt:
  identity_and_role: You are the analyst.
`)
	writePersonality(t, defaultsDir, "skeptic.yaml", `id: skeptic
name: Skeptic
model: anthropic/claude-3-7-sonnet
enabled: true
personality_prompt:
  identity_and_role: You are the skeptic.
`)

	r, err := config.NewResolver(dataDir)
	require.NoError(t, err)
	return r
}

func writePersonality(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestSession_Run_EmitsEventsInOrderAndPersists(t *testing.T) {
	resolver := newTestResolver(t)
	upstreamStub := &stubUpstream{byModel: map[string]string{
		"openai/gpt-4o":                "I think we should ship it.\nFINAL RANKING:\n1. Response A\n2. Response B",
		"anthropic/claude-3-7-sonnet":  "I disagree, too risky.\nFINAL RANKING:\n1. Response B\n2. Response A",
		"gemini/gemini-2.5-pro":        "Synthesis: ship with guardrails.",
	}}
	engine := &council.Engine{Resolver: resolver, Upstream: upstreamStub}
	store := conversation.NewMemoryStore()
	votes := voting.NewMemoryStore()

	conv, err := store.Create(context.Background(), "acme", "user-1")
	require.NoError(t, err)

	session := &Session{Engine: engine, Store: store, Votes: votes}

	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	err = session.Run(context.Background(), w, "acme", "user-1", conv.ID, "should we ship?")
	require.NoError(t, err)

	body := rec.Body.String()
	orderedTypes := []string{"stage_start", "stage1_complete", "stage_start", "stage2_complete", "stage_start", "stage3_complete", "title_complete", "complete"}
	lastIdx := -1
	for _, want := range orderedTypes {
		idx := strings.Index(body[lastIdx+1:], "event: "+want)
		require.GreaterOrEqualf(t, idx, 0, "expected event %q in stream:\n%s", want, body)
		lastIdx += idx + 1
	}

	stored, err := store.Get(context.Background(), "acme", "user-1", conv.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	require.Equal(t, "Synthesis: ship with guardrails.", stored.Messages[1].Stage3.Response)
	require.NotEqual(t, "New Conversation", stored.Title)

	league, err := votes.League(context.Background(), "acme")
	require.NoError(t, err)
	require.NotEmpty(t, league)
}

func TestSession_Run_UnknownConversationEmitsError(t *testing.T) {
	resolver := newTestResolver(t)
	engine := &council.Engine{Resolver: resolver, Upstream: &stubUpstream{}}
	store := conversation.NewMemoryStore()
	session := &Session{Engine: engine, Store: store, Votes: voting.NewMemoryStore()}

	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	err = session.Run(context.Background(), w, "acme", "user-1", "missing", "hello")
	require.Error(t, err)
	require.Contains(t, rec.Body.String(), "event: error")
}

// TestSession_Run_SecondTurnSeesFreshHistory checks that a second turn's
// Stage 1 calls carry the first exchange plus the new question. The engine
// drops a trailing user message from history and appends the query itself,
// so a pre-append snapshot would yield the same 4 messages; this test does
// not tell the two apart.
func TestSession_Run_SecondTurnSeesFreshHistory(t *testing.T) {
	resolver := newTestResolver(t)
	upstreamStub := &stubUpstream{byModel: map[string]string{
		"openai/gpt-4o":               "Ship it.\nFINAL RANKING:\n1. Response A\n2. Response B",
		"anthropic/claude-3-7-sonnet": "Too risky.\nFINAL RANKING:\n1. Response B\n2. Response A",
		"gemini/gemini-2.5-pro":       "Synthesis.",
	}}
	engine := &council.Engine{Resolver: resolver, Upstream: upstreamStub}
	store := conversation.NewMemoryStore()
	votes := voting.NewMemoryStore()

	conv, err := store.Create(context.Background(), "acme", "user-1")
	require.NoError(t, err)

	session := &Session{Engine: engine, Store: store, Votes: votes}

	rec1 := httptest.NewRecorder()
	w1, err := NewWriter(rec1)
	require.NoError(t, err)
	require.NoError(t, session.Run(context.Background(), w1, "acme", "user-1", conv.ID, "first question"))

	upstreamStub.mu.Lock()
	upstreamStub.requests = nil
	upstreamStub.mu.Unlock()

	rec2 := httptest.NewRecorder()
	w2, err := NewWriter(rec2)
	require.NoError(t, err)
	require.NoError(t, session.Run(context.Background(), w2, "acme", "user-1", conv.ID, "second question"))

	upstreamStub.mu.Lock()
	defer upstreamStub.mu.Unlock()
	require.NotEmpty(t, upstreamStub.requests)
	for _, req := range upstreamStub.requests {
		if req.Model != "openai/gpt-4o" && req.Model != "anthropic/claude-3-7-sonnet" {
			continue
		}
		// Stage 1 for the second turn: [system, first-user, first-assistant,
		// second-user] = 4 messages.
		if len(req.Messages) <= 2 {
			continue // stage 2 calls carry no prior-turn history
		}
		require.Len(t, req.Messages, 4, "stage1 call on turn 2 should see the freshly appended user message")
		require.Contains(t, req.Messages[len(req.Messages)-1].Content, "second question")
	}
}

// TestSession_Run_RejectsConcurrentTurn guards the processing_state
// single-writer rule (spec.md §5/§7): a second send while a conversation is
// already "running" fails with Conflict instead of racing the first.
func TestSession_Run_RejectsConcurrentTurn(t *testing.T) {
	resolver := newTestResolver(t)
	engine := &council.Engine{Resolver: resolver, Upstream: &stubUpstream{}}
	store := conversation.NewMemoryStore()
	conv, err := store.Create(context.Background(), "acme", "user-1")
	require.NoError(t, err)

	// The first turn's user message is stored, leaving the conversation running.
	_, err = store.AppendUserMessage(context.Background(), "acme", "user-1", conv.ID, "first")
	require.NoError(t, err)

	session := &Session{Engine: engine, Store: store, Votes: voting.NewMemoryStore()}
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec)
	require.NoError(t, err)

	err = session.Run(context.Background(), w, "acme", "user-1", conv.ID, "second")
	require.ErrorIs(t, err, councilerr.ErrConflict)
}
