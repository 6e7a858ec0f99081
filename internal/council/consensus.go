package council

import (
	"os"
	"path/filepath"
	"strings"

	"council/internal/config"
)

const defaultConsensusStrategy = "balanced"

var builtinConsensusPrompts = map[string]string{
	"balanced": `You are synthesizing a final answer from a council of AI models.

Original Question: {user_query}

{section_a}

{section_b}

Write the single best answer, and end with a fenced json block:
` + "```json" + `
{"contributors": [{"personality_name": "...", "contribution": "..."}]}
` + "```",
	"conservative": `You are synthesizing a final answer from a council of AI models, favoring the highest-ranked response and using others only to patch gaps. Treat any review marked VETO FLAGGED as disqualifying for that proposal.

Original Question: {user_query}

{section_a}

{section_b}

Write the single best answer, and end with a fenced json block:
` + "```json" + `
{"contributors": [{"personality_name": "...", "contribution": "..."}]}
` + "```",
}

// ConsensusPromptCatalog resolves a named consensus strategy's prompt
// template from disk; when the file is missing it falls back to the
// built-in template of the same name, and then to the built-in "balanced"
// template when no built-in has that name.
type ConsensusPromptCatalog struct {
	dir string // <dataDir>/consensus-strategies
}

// NewConsensusPromptCatalog builds a catalog rooted at dataDir.
func NewConsensusPromptCatalog(dataDir string) *ConsensusPromptCatalog {
	return &ConsensusPromptCatalog{dir: filepath.Join(dataDir, "consensus-strategies")}
}

// Prompt returns the template text for strategy, falling back to the
// "balanced" built-in when neither a matching file nor built-in exists.
func (c *ConsensusPromptCatalog) Prompt(strategy string) string {
	if strategy == "" {
		strategy = defaultConsensusStrategy
	}
	path, err := config.ValidatePath(c.dir, strategy+".txt")
	if err == nil {
		if data, err := os.ReadFile(path); err == nil {
			return string(data)
		}
	}
	if tmpl, ok := builtinConsensusPrompts[strategy]; ok {
		return tmpl
	}
	return builtinConsensusPrompts[defaultConsensusStrategy]
}

// RenderConsensusPrompt fills a strategy template's placeholders with the
// raw SECTION A (proposals) and SECTION B (peer reviews) text.
func RenderConsensusPrompt(tmpl, userQuery, sectionA, sectionB string) string {
	r := strings.NewReplacer(
		"{user_query}", userQuery,
		"{section_a}", sectionA,
		"{section_b}", sectionB,
	)
	return r.Replace(tmpl)
}
