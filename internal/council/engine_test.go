package council

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"council/internal/config"
	"council/internal/upstream"
)

type stubUpstream struct {
	// byModel maps a model id to the canned response content; a model with
	// no entry simulates a best-effort failure (nil result).
	byModel map[string]string
	calls   []upstream.Request
}

func (s *stubUpstream) Query(_ context.Context, req upstream.Request) *upstream.Result {
	s.calls = append(s.calls, req)
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

func TestEngineRun_FullCycle(t *testing.T) {
	resolver := newTestResolver(t)
	stub := &stubUpstream{byModel: map[string]string{
		"openai/gpt-4o":               "As the analyst, the answer is 42.\n\nFINAL RANKING:\n1. Response A",
		"anthropic/claude-3-7-sonnet": "As the skeptic, I disagree. The answer is 7.\n\nFINAL RANKING:\n1. Response B",
		"gemini/gemini-2.5-pro":       "## PART 1: COUNCIL REPORT\n...\n\nPART 2: FINAL ANSWER\nThe council settles on 42.",
	}}
	engine := &Engine{
		Resolver: resolver,
		Upstream: stub,
		Clock:    func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	result, err := engine.Run(context.Background(), "acme", "what is the answer", nil)
	require.NoError(t, err)
	require.Len(t, result.Stage1, 2)
	require.Len(t, result.Stage2, 2)
	require.Contains(t, result.Stage3.Response, "42")
	require.Len(t, result.Aggregate, 2)
}

func TestEngineRun_AllFail_ShortCircuits(t *testing.T) {
	resolver := newTestResolver(t)
	stub := &stubUpstream{byModel: map[string]string{}}
	engine := &Engine{Resolver: resolver, Upstream: stub}

	result, err := engine.Run(context.Background(), "acme", "anything", nil)
	require.Error(t, err)
	require.Empty(t, result.Stage1)
	require.Equal(t, stageEmptyResponse, result.Stage3.Response)
}

func TestEngineGenerateTitle_CleansAndTruncates(t *testing.T) {
	resolver := newTestResolver(t)
	stub := &stubUpstream{byModel: map[string]string{
		"gemini/gemini-2.5-pro": "'" + stringsRepeat("a", 60) + "'",
	}}
	engine := &Engine{Resolver: resolver, Upstream: stub}

	title := engine.GenerateTitle(context.Background(), "acme", "long question")
	require.Len(t, title, 50)
	require.True(t, title[47:] == "...")
}

func TestEngineGenerateTitle_FallsBackOnFailure(t *testing.T) {
	resolver := newTestResolver(t)
	stub := &stubUpstream{byModel: map[string]string{}}
	engine := &Engine{Resolver: resolver, Upstream: stub}

	title := engine.GenerateTitle(context.Background(), "acme", "anything")
	require.Equal(t, newConversationTitle, title)
}

func TestEngineRun_ConsensusStrategy_WiresVetoAndContributors(t *testing.T) {
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
	orgConfigDir := filepath.Join(dataDir, "organizations", "acme", "config")
	require.NoError(t, os.MkdirAll(orgConfigDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(orgConfigDir, "system-prompts.yaml"),
		[]byte("consensus_strategy: balanced\n"), 0o644))

	resolver, err := config.NewResolver(dataDir)
	require.NoError(t, err)

	stub := &stubUpstream{byModel: map[string]string{
		"openai/gpt-4o":               "As the analyst, the answer is 42.\n\nFINAL RANKING:\n1. Response A",
		"anthropic/claude-3-7-sonnet": "As the skeptic, I disagree. The answer is 7, this is a fatal flaw.\n\nFINAL RANKING:\n1. Response B",
		"gemini/gemini-2.5-pro":       "The council settles on 42.\n\n```json\n{\"contributors\": [{\"personality_name\": \"Analyst\", \"contribution\": \"core answer\"}]}\n```",
	}}
	engine := &Engine{
		Resolver: resolver,
		Upstream: stub,
		Catalog:  NewConsensusPromptCatalog(dataDir),
		Clock:    func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	}

	result, err := engine.Run(context.Background(), "acme", "what is the answer", nil)
	require.NoError(t, err)
	require.Equal(t, "balanced", result.Stage3.Strategy)
	require.NotContains(t, result.Stage3.Response, "```json")
	require.Len(t, result.Stage3.Contributors, 1)
	require.Equal(t, "Analyst", result.Stage3.Contributors[0].PersonalityName)

	var chairmanPrompt string
	for _, call := range stub.calls {
		if call.Model == "gemini/gemini-2.5-pro" {
			chairmanPrompt = call.Messages[len(call.Messages)-1].Content
		}
	}
	require.Contains(t, chairmanPrompt, "SECTION A: PROPOSALS")
	require.Contains(t, chairmanPrompt, "SECTION B: PEER REVIEWS")
	require.Contains(t, chairmanPrompt, "VETO FLAGGED")
}

func stringsRepeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
