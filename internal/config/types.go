// Package config resolves per-tenant personality, system-prompt, and model
// configuration, layering organization overrides on top of system defaults
// with the same shadowing rules the original service used.
package config

// Personality is one voice in the council.
type Personality struct {
	ID                string            `yaml:"id" json:"id"`
	Name              string            `yaml:"name" json:"name"`
	Model             string            `yaml:"model" json:"model"`
	PersonalityPrompt map[string]string `yaml:"personality_prompt" json:"personalityPrompt"`
	Enabled           bool              `yaml:"enabled" json:"enabled"`

	// Temperature is nil when the personality file omits it, so the
	// resolver can fall back to defaultTemperature instead of silently
	// treating an absent field as 0.0.
	Temperature *float64 `yaml:"temperature" json:"temperature,omitempty"`

	// Source and IsEditable are populated by the resolver, not read from
	// disk: "system" personalities come from the defaults directory and
	// are not directly editable; "custom" personalities are org-owned and
	// shadow a system personality with the same ID.
	Source     string `yaml:"-" json:"source"`
	IsEditable bool   `yaml:"-" json:"isEditable"`
}

// defaultTemperature is used for any personality, and for the
// chairman/title/ranking roles, that doesn't configure its own value.
const defaultTemperature = 0.7

// ResolvedTemperature returns p.Temperature if set, else defaultTemperature.
func (p Personality) ResolvedTemperature() float64 {
	if p.Temperature != nil {
		return *p.Temperature
	}
	return defaultTemperature
}

// personalitySections lists the editable personality sections in the order
// they're rendered into the composed system prompt.
var personalitySections = []string{
	"identity_and_role",
	"interpretation_of_questions",
	"problem_decomposition",
	"analysis_and_reasoning",
	"differentiation_and_bias",
	"tone",
}

var sectionHeaders = map[string]string{
	"identity_and_role":           "IDENTITY & ROLE",
	"interpretation_of_questions": "INTERPRETATION OF QUESTIONS",
	"problem_decomposition":       "PROBLEM DECOMPOSITION",
	"analysis_and_reasoning":      "ANALYSIS & REASONING",
	"differentiation_and_bias":    "DIFFERENTIATION & BIAS",
	"tone":                        "TONE",
}

// PromptValue carries a resolved string plus the metadata the admin surface
// needs to show whether it is inherited or overridden.
type PromptValue struct {
	Value     string `json:"value"`
	IsDefault bool   `json:"isDefault"`
	Source    string `json:"source"` // "default" | "custom"
}

// SystemPrompts holds every resolved prompt template for a tenant.
type SystemPrompts struct {
	Base                 PromptValue `json:"basePrompt"`
	Chairman             PromptValue `json:"chairmanPrompt"`
	Title                PromptValue `json:"titlePrompt"`
	Evolution            PromptValue `json:"evolutionPrompt"`
	Ranking              PromptValue `json:"rankingPrompt"`
	Stage1ResponseStruct PromptValue `json:"stage1ResponseStructure"`
	Stage1MetaStruct     PromptValue `json:"stage1MetaStructure"`
}

// ModelConfig holds the resolved model ids for the chairman, title, and
// ranking-adjacent roles (ranking itself uses each personality's own model).
type ModelConfig struct {
	ChairmanModel       string  `json:"chairmanModel"`
	TitleModel          string  `json:"titleModel"`
	RankingModel        string  `json:"rankingModel"`
	ChairmanTemperature float64 `json:"chairmanTemperature"`
	TitleTemperature    float64 `json:"titleTemperature"`
}

// ActiveConfig is the fully resolved, ready-to-use configuration for one
// tenant: its active personalities, prompts, models, and chosen consensus
// strategy.
type ActiveConfig struct {
	OrgID         string        `json:"orgId"`
	Personalities []Personality `json:"personalities"`
	Prompts       SystemPrompts `json:"prompts"`
	Models        ModelConfig   `json:"models"`
	StrategyID    string        `json:"strategyId,omitempty"`
}

const (
	defaultRankingModel = "openai/gpt-4o"

	defaultBaseSystemPrompt = `You are a member of the LLM Council, a diverse group of AI intelligences assembled to provide comprehensive, multi-faceted answers to user queries.

Your goal is not just to answer the question, but to contribute a unique perspective to the collective discussion. You will later review each other's answers, so be thorough and distinct.`

	defaultChairmanPrompt = `You are the Chairman of an LLM Council. Multiple AI models have provided responses to a user's question, and then ranked each other's responses.

Original Question: {user_query}

STAGE 1 - Individual Responses:
{stage1_text}

STAGE 2 - Peer Rankings (Detailed Votes):
{voting_details_text}

Your task is to provide a final response in two parts:

## PART 1: COUNCIL REPORT
- Voting Results: a markdown table of Voter, 1st Choice, 2nd Choice using personality names only.
- Brief Rationale for the winner.

## PART 2: FINAL ANSWER
Provide the single, comprehensive, best possible answer to the user's question.`

	defaultTitlePrompt = `Generate a very short title (3-5 words maximum) that summarizes the following question.
The title should be concise and descriptive. Do not use quotes or punctuation in the title.

Question: {user_query}`

	defaultEvolutionPrompt = `You are an expert AI Personality Architect.
Your task is to COMBINE the traits of {parent_count} existing parent personalities into a new, superior offspring personality.

NAME OF NEW PERSONALITY: {offspring_name}

SOURCE MATERIAL:
{parent_data}

Output a YAML object for the personality_prompt section with exactly these keys:
identity_and_role, interpretation_of_questions, problem_decomposition, analysis_and_reasoning, differentiation_and_bias, tone.`

	defaultRankingPrompt = "First, evaluate each response individually. For each response, explain what it does well and what it does poorly."
)
