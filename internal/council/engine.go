package council

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"council/internal/config"
	"council/internal/councilerr"
	"council/internal/observability"
	"council/internal/upstream"
)

const (
	stageEmptyResponse   = "Error: All models failed to respond. Please try again."
	chairmanFailResponse = "Error: Unable to generate final synthesis."
	newConversationTitle = "New Conversation"
	titleTimeout         = 30 * time.Second
)

// Upstream abstracts the upstream.Client surface the engine needs, so tests
// can substitute a stub.
type Upstream interface {
	Query(ctx context.Context, req upstream.Request) *upstream.Result
}

// Engine runs the three-stage Propose/Rank/Synthesize protocol (C3) for one
// tenant at a time, resolving personalities and prompts through a
// *config.Resolver and placing every model call through an Upstream client.
type Engine struct {
	Resolver *config.Resolver
	Upstream Upstream
	Clock    Clock
	Catalog  *ConsensusPromptCatalog

	APIKey  string
	BaseURL string
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// Run executes one full council cycle for userQuery against the tenant's
// active personalities, returning every stage's output plus the aggregate
// ranking table. History must already include any already-persisted prior
// turns; the caller is responsible for appending the user's current message
// to storage before calling Run, so that a crash mid-cycle never loses the
// user's turn (the stale-snapshot rule).
//
// When every personality fails Stage 1, Run returns a TurnResult whose
// Stage3.Response is the fixed stageEmptyResponse text and a non-nil error
// wrapping councilerr.ErrStageEmpty, so the streaming transport can still
// emit the terminal error event spec.md's error table requires while the
// display text matches what a caller would show inline.
func (e *Engine) Run(ctx context.Context, orgID, userQuery string, history []HistoryMessage) (TurnResult, error) {
	return e.RunWithHooks(ctx, orgID, userQuery, history, Hooks{})
}

// Hooks lets a caller observe each stage as it completes, without the
// engine itself knowing anything about HTTP or SSE. Any field may be nil.
// Hooks are passed per call rather than stored on Engine, since one Engine
// serves many concurrent tenants.
type Hooks struct {
	OnStage1 func([]Stage1Result)
	OnStage2 func([]Stage2Result)
	OnStage3 func(Stage3Result)
}

func (h Hooks) fireStage1(r []Stage1Result) {
	if h.OnStage1 != nil {
		h.OnStage1(r)
	}
}

func (h Hooks) fireStage2(r []Stage2Result) {
	if h.OnStage2 != nil {
		h.OnStage2(r)
	}
}

func (h Hooks) fireStage3(r Stage3Result) {
	if h.OnStage3 != nil {
		h.OnStage3(r)
	}
}

// RunWithHooks is Run plus progress callbacks, letting the streaming
// transport emit one SSE frame per completed stage without duplicating the
// protocol logic.
func (e *Engine) RunWithHooks(ctx context.Context, orgID, userQuery string, history []HistoryMessage, hooks Hooks) (TurnResult, error) {
	cfg := e.Resolver.Resolve(orgID)
	systemTime, userTime := TimeInstructions(e.now())
	llmHistory := BuildLLMHistory(history)

	stage1 := e.runStage1(ctx, cfg, systemTime, userTime, userQuery, llmHistory)
	if len(stage1) == 0 {
		return TurnResult{
			Stage3: Stage3Result{Model: "error", Response: stageEmptyResponse},
		}, fmt.Errorf("stage 1 produced no responses: %w", councilerr.ErrStageEmpty)
	}
	hooks.fireStage1(stage1)

	labelToModel, stage1ByLabel := assignLabels(stage1)
	stage2 := e.runStage2(ctx, cfg, userQuery, stage1, stage1ByLabel)
	hooks.fireStage2(stage2)

	aggregate := CalculateAggregateRankings(stage2, labelToModel)
	stage3 := e.runSynthesis(ctx, cfg, userQuery, stage1, stage2, labelToModel)
	hooks.fireStage3(stage3)

	return TurnResult{
		Stage1:       stage1,
		Stage2:       stage2,
		Stage3:       stage3,
		LabelToModel: labelToModel,
		Aggregate:    aggregate,
	}, nil
}

func assignLabels(stage1 []Stage1Result) (map[string]LabelTarget, map[string]Stage1Result) {
	labelToModel := make(map[string]LabelTarget, len(stage1))
	byLabel := make(map[string]Stage1Result, len(stage1))
	for i, r := range stage1 {
		label := responseLabelPrefix + string(rune('A'+i))
		labelToModel[label] = LabelTarget{PersonalityID: r.PersonalityID, PersonalityName: r.PersonalityName, Model: r.Model}
		byLabel[label] = r
	}
	return labelToModel, byLabel
}

func (e *Engine) runStage1(ctx context.Context, cfg config.ActiveConfig, systemTime, userTime, userQuery string, history []HistoryMessage) []Stage1Result {
	type slot struct {
		result Stage1Result
		ok     bool
	}
	slots := make([]slot, len(cfg.Personalities))
	var wg sync.WaitGroup
	for i, p := range cfg.Personalities {
		wg.Add(1)
		go func(i int, p config.Personality) {
			defer wg.Done()
			systemPrompt := cfg.Prompts.Base.Value + "\n\n" + systemTime + "\n\n" + config.FormatPersonalityPrompt(p, cfg.Prompts, true)
			chain := BuildMessageChain(systemPrompt, history, userTime+"\n\n"+userQuery)
			res := e.Upstream.Query(ctx, upstream.Request{
				Model:       p.Model,
				Messages:    toUpstreamMessages(chain),
				Temperature: p.ResolvedTemperature(),
				APIKey:      e.APIKey,
				BaseURL:     e.BaseURL,
			})
			if res == nil {
				observability.LoggerWithTrace(ctx).Warn().Str("personality", p.ID).Msg("stage1: personality produced no response")
				return
			}
			slots[i] = slot{ok: true, result: Stage1Result{
				Model:           p.Model,
				Response:        res.Content,
				PersonalityID:   p.ID,
				PersonalityName: p.Name,
			}}
		}(i, p)
	}
	wg.Wait()

	out := make([]Stage1Result, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.result)
		}
	}
	return out
}

func (e *Engine) runStage2(ctx context.Context, cfg config.ActiveConfig, userQuery string, stage1 []Stage1Result, stage1ByLabel map[string]Stage1Result) []Stage2Result {
	labels := sortedLabels(stage1ByLabel)

	type slot struct {
		result Stage2Result
		ok     bool
	}
	slots := make([]slot, len(cfg.Personalities))
	var wg sync.WaitGroup
	for i, p := range cfg.Personalities {
		wg.Add(1)
		go func(i int, p config.Personality) {
			defer wg.Done()
			var blocks []string
			for _, label := range labels {
				r := stage1ByLabel[label]
				if r.PersonalityID == p.ID {
					continue // self-exclusion
				}
				blocks = append(blocks, fmt.Sprintf("Response %s:\n%s", label[len(responseLabelPrefix):], r.Response))
			}
			if len(blocks) == 0 {
				return
			}
			responsesText := strings.Join(blocks, "\n\n")
			peerText := "your peers (anonymized)"
			rankingPrompt := buildRankingPrompt(cfg.Prompts.Ranking.Value, userQuery, responsesText, peerText)
			systemPrompt := cfg.Prompts.Base.Value + "\n\n" + config.FormatPersonalityPrompt(p, cfg.Prompts, false)

			res := e.Upstream.Query(ctx, upstream.Request{
				Model: p.Model,
				Messages: []upstream.Message{
					{Role: "system", Content: systemPrompt},
					{Role: "user", Content: rankingPrompt},
				},
				Temperature: p.ResolvedTemperature(),
				APIKey:      e.APIKey,
				BaseURL:     e.BaseURL,
			})
			if res == nil {
				observability.LoggerWithTrace(ctx).Warn().Str("personality", p.ID).Msg("stage2: personality produced no ranking")
				return
			}
			slots[i] = slot{ok: true, result: Stage2Result{
				Model:           p.Model,
				PersonalityID:   p.ID,
				PersonalityName: p.Name,
				RankingText:     res.Content,
				ParsedRanking:   ParseRankingFromText(res.Content),
			}}
		}(i, p)
	}
	wg.Wait()

	out := make([]Stage2Result, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.result)
		}
	}
	return out
}

func sortedLabels(byLabel map[string]Stage1Result) []string {
	labels := make([]string, 0, len(byLabel))
	for l := range byLabel {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

func buildRankingPrompt(template, userQuery, responsesText, peerText string) string {
	r := strings.NewReplacer(
		"{user_query}", userQuery,
		"{responses_text}", responsesText,
		"{peer_text}", peerText,
		"{FINAL_RANKING_MARKER}", finalRankingMarker,
		"{RESPONSE_LABEL_PREFIX}", responseLabelPrefix,
	)
	return r.Replace(template)
}

func (e *Engine) runStage3(ctx context.Context, cfg config.ActiveConfig, userQuery string, stage1 []Stage1Result, stage2 []Stage2Result, labelToModel map[string]LabelTarget) Stage3Result {
	stage1Text := buildStage1Text(stage1)
	votingDetailsText := buildVotingDetailsText(stage2, labelToModel)

	prompt := strings.NewReplacer(
		"{user_query}", userQuery,
		"{stage1_text}", stage1Text,
		"{voting_details_text}", votingDetailsText,
	).Replace(cfg.Prompts.Chairman.Value)

	res := e.Upstream.Query(ctx, upstream.Request{
		Model: cfg.Models.ChairmanModel,
		Messages: []upstream.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: cfg.Models.ChairmanTemperature,
		APIKey:      e.APIKey,
		BaseURL:     e.BaseURL,
	})
	if res == nil {
		return Stage3Result{Model: cfg.Models.ChairmanModel, Response: chairmanFailResponse}
	}
	return Stage3Result{Model: cfg.Models.ChairmanModel, Response: res.Content}
}

// runSynthesis picks Stage 3's strategy: the default chairman synthesis, or
// (when the tenant has an active_config.strategy_id) the alternate consensus
// strategy that runs C7's attribution parser over the response.
func (e *Engine) runSynthesis(ctx context.Context, cfg config.ActiveConfig, userQuery string, stage1 []Stage1Result, stage2 []Stage2Result, labelToModel map[string]LabelTarget) Stage3Result {
	if cfg.StrategyID == "" {
		return e.runStage3(ctx, cfg, userQuery, stage1, stage2, labelToModel)
	}
	catalog := e.Catalog
	if catalog == nil {
		catalog = NewConsensusPromptCatalog("")
	}
	return e.RunConsensus(ctx, cfg, catalog, cfg.StrategyID, userQuery, stage1, stage2, labelToModel)
}

// RunConsensus runs the alternate Stage 3 strategy (C7) in place of the
// chairman call: it passes the raw per-proposal text (SECTION A) and
// per-reviewer text, veto-annotated (SECTION B), to a strategy-specific
// template and parses an attribution block out of the response.
func (e *Engine) RunConsensus(ctx context.Context, cfg config.ActiveConfig, catalog *ConsensusPromptCatalog, strategy, userQuery string, stage1 []Stage1Result, stage2 []Stage2Result, labelToModel map[string]LabelTarget) Stage3Result {
	sectionA := buildProposalsSection(stage1)
	sectionB := buildPeerReviewsSection(stage2)
	prompt := RenderConsensusPrompt(catalog.Prompt(strategy), userQuery, sectionA, sectionB)

	res := e.Upstream.Query(ctx, upstream.Request{
		Model: cfg.Models.ChairmanModel,
		Messages: []upstream.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: cfg.Models.ChairmanTemperature,
		APIKey:      e.APIKey,
		BaseURL:     e.BaseURL,
	})
	if res == nil {
		return Stage3Result{Model: cfg.Models.ChairmanModel, Response: chairmanFailResponse, Strategy: strategy}
	}
	cleaned, contributors := ParseAttribution(res.Content)
	return Stage3Result{Model: cfg.Models.ChairmanModel, Response: cleaned, Strategy: strategy, Contributors: contributors}
}

// buildProposalsSection renders SECTION A of the consensus-strategy prompt:
// each personality's raw Stage 1 proposal, grounded on
// original_source/backend/consensus_service.py:synthesize_consensus.
func buildProposalsSection(stage1 []Stage1Result) string {
	blocks := make([]string, 0, len(stage1))
	for _, r := range stage1 {
		blocks = append(blocks, fmt.Sprintf("Personality: %s\nModel: %s\n%s", r.PersonalityName, r.Model, r.Response))
	}
	return "SECTION A: PROPOSALS\n\n" + strings.Join(blocks, "\n\n")
}

// buildPeerReviewsSection renders SECTION B: each reviewer's raw Stage 2
// ranking text, annotated when it trips the veto heuristic (HasVetoFlag) so
// the synthesis model can weigh a flagged review differently.
func buildPeerReviewsSection(stage2 []Stage2Result) string {
	blocks := make([]string, 0, len(stage2))
	for _, voter := range stage2 {
		block := fmt.Sprintf("Reviewer: %s\n%s", voter.PersonalityName, voter.RankingText)
		if HasVetoFlag(voter.RankingText) {
			block += "\n[VETO FLAGGED: this review raised a fatal flaw or critical risk]"
		}
		blocks = append(blocks, block)
	}
	return "SECTION B: PEER REVIEWS\n\n" + strings.Join(blocks, "\n\n")
}

func buildStage1Text(stage1 []Stage1Result) string {
	blocks := make([]string, 0, len(stage1))
	for _, r := range stage1 {
		blocks = append(blocks, fmt.Sprintf("Model: %s\nResponse: %s", r.PersonalityName, r.Response))
	}
	return strings.Join(blocks, "\n\n")
}

func buildVotingDetailsText(stage2 []Stage2Result, labelToModel map[string]LabelTarget) string {
	blocks := make([]string, 0, len(stage2))
	for _, voter := range stage2 {
		var lines []string
		lines = append(lines, "Voter: "+voter.PersonalityName)
		for i, label := range voter.ParsedRanking {
			target, ok := labelToModel[label]
			name := "Unknown"
			if ok {
				name = target.PersonalityName
			}
			lines = append(lines, fmt.Sprintf("   %d. %s (%s)", i+1, name, label))
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// GenerateTitle produces a short conversation title via the tenant's title
// model, matching the original cleanup rules: quote-stripping, truncation
// past 50 characters to 47+"...", and a fixed fallback on any failure.
func (e *Engine) GenerateTitle(ctx context.Context, orgID, userQuery string) string {
	cfg := e.Resolver.Resolve(orgID)
	prompt := strings.ReplaceAll(cfg.Prompts.Title.Value, "{user_query}", userQuery)

	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	res := e.Upstream.Query(ctx, upstream.Request{
		Model: cfg.Models.TitleModel,
		Messages: []upstream.Message{
			{Role: "user", Content: prompt},
		},
		Temperature: cfg.Models.TitleTemperature,
		APIKey:      e.APIKey,
		BaseURL:     e.BaseURL,
	})
	if res == nil {
		return newConversationTitle
	}
	return cleanTitle(res.Content)
}

func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, "'\"")
	title = strings.TrimSpace(title)
	if title == "" {
		return newConversationTitle
	}
	if len(title) > 50 {
		title = title[:47] + "..."
	}
	return title
}

func toUpstreamMessages(turns []Turn) []upstream.Message {
	out := make([]upstream.Message, len(turns))
	for i, t := range turns {
		out[i] = upstream.Message{Role: t.Role, Content: t.Content}
	}
	return out
}
