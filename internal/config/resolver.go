package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// orgConfigFile mirrors the on-disk shape of config/system-prompts.yaml: a
// set of top-level string overrides plus nested role blocks.
type orgConfigFile struct {
	BaseSystemPrompt            string     `yaml:"base_system_prompt"`
	RankingPrompt               string     `yaml:"ranking_prompt"` // legacy top-level key
	EvolutionPrompt             string     `yaml:"evolution_prompt"`
	Stage1ResponseStructure     string     `yaml:"stage1_response_structure"`
	Stage1MetaStructure         string     `yaml:"stage1_meta_structure"`
	Chairman                    *roleBlock `yaml:"chairman"`
	TitleGeneration             *roleBlock `yaml:"title_generation"`
	Ranking                     *roleBlock `yaml:"ranking"`
	DisabledSystemPersonalities []string   `yaml:"disabled_system_personalities"`
	ConsensusStrategy           string     `yaml:"consensus_strategy"`
}

type roleBlock struct {
	Prompt      string   `yaml:"prompt"`
	Model       string   `yaml:"model"`
	Temperature *float64 `yaml:"temperature"`
}

// Defaults holds the system-wide prompt/model defaults loaded once at
// startup from data/defaults/system-prompts.yaml.
type Defaults struct {
	orgConfigFile
	ChairmanModel       string
	TitleModel          string
	RankingModel        string
	ChairmanTemperature float64
	TitleTemperature    float64
}

// Resolver resolves per-tenant ActiveConfig values by layering an
// organization's override file and personality directory on top of the
// system defaults, following the defaults-then-shadow rule.
type Resolver struct {
	dataDir  string // root containing "defaults" and "organizations"
	defaults Defaults
}

// NewResolver loads system defaults from <dataDir>/defaults/system-prompts.yaml.
// A missing file is tolerated (defaults fall back to the hardcoded prompt
// strings), matching the original service's "no defaults file yet" startup
// path, but is reported via pterm the way LoadConfig reports a bad config.
func NewResolver(dataDir string) (*Resolver, error) {
	r := &Resolver{dataDir: dataDir}
	defaultsPath := filepath.Join(dataDir, "defaults", "system-prompts.yaml")
	data, err := os.ReadFile(defaultsPath)
	if err != nil {
		pterm.Warning.Printf("no defaults file at %s, using built-in prompts: %v\n", defaultsPath, err)
		r.defaults = Defaults{
			ChairmanModel:       "gemini/gemini-2.5-pro",
			TitleModel:          "gemini/gemini-2.5-pro",
			RankingModel:        defaultRankingModel,
			ChairmanTemperature: defaultTemperature,
			TitleTemperature:    defaultTemperature,
		}
		return r, nil
	}
	var raw orgConfigFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse defaults %s: %w", defaultsPath, err)
	}
	d := Defaults{orgConfigFile: raw, RankingModel: defaultRankingModel, ChairmanTemperature: defaultTemperature, TitleTemperature: defaultTemperature}
	if raw.Chairman != nil && raw.Chairman.Model != "" {
		d.ChairmanModel = raw.Chairman.Model
	} else {
		d.ChairmanModel = "gemini/gemini-2.5-pro"
	}
	if raw.Chairman != nil && raw.Chairman.Temperature != nil {
		d.ChairmanTemperature = *raw.Chairman.Temperature
	}
	if raw.TitleGeneration != nil && raw.TitleGeneration.Model != "" {
		d.TitleModel = raw.TitleGeneration.Model
	} else {
		d.TitleModel = "gemini/gemini-2.5-pro"
	}
	if raw.TitleGeneration != nil && raw.TitleGeneration.Temperature != nil {
		d.TitleTemperature = *raw.TitleGeneration.Temperature
	}
	if raw.Ranking != nil && raw.Ranking.Model != "" {
		d.RankingModel = raw.Ranking.Model
	}
	r.defaults = d
	pterm.Success.Println("council: system prompt defaults loaded")
	return r, nil
}

func (r *Resolver) orgDir(orgID string) string {
	return filepath.Join(r.dataDir, "organizations", orgID)
}

func (r *Resolver) loadOrgConfig(orgID string) orgConfigFile {
	path, err := ValidatePath(r.dataDir, filepath.Join("organizations", orgID, "config", "system-prompts.yaml"))
	if err != nil {
		log.Warn().Err(err).Str("org_id", orgID).Msg("rejected org config path")
		return orgConfigFile{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return orgConfigFile{}
	}
	var cfg orgConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Error().Err(err).Str("org_id", orgID).Msg("failed to parse org system-prompts.yaml")
		return orgConfigFile{}
	}
	return cfg
}

func entry(value, fallback string, custom bool) PromptValue {
	if !custom {
		value = fallback
	}
	return PromptValue{Value: value, IsDefault: !custom, Source: map[bool]string{true: "custom", false: "default"}[custom]}
}

// SystemPrompts resolves the full set of prompt templates for a tenant,
// applying the nested-vs-legacy-top-level ranking_prompt rule.
func (r *Resolver) SystemPrompts(orgID string) SystemPrompts {
	org := r.loadOrgConfig(orgID)
	d := r.defaults

	defaultBase := d.BaseSystemPrompt
	if defaultBase == "" {
		defaultBase = defaultBaseSystemPrompt
	}
	defaultChairman := ""
	if d.Chairman != nil {
		defaultChairman = d.Chairman.Prompt
	}
	if defaultChairman == "" {
		defaultChairman = defaultChairmanPrompt
	}
	defaultTitle := ""
	if d.TitleGeneration != nil {
		defaultTitle = d.TitleGeneration.Prompt
	}
	if defaultTitle == "" {
		defaultTitle = defaultTitlePrompt
	}
	defaultEvolution := d.EvolutionPrompt
	if defaultEvolution == "" {
		defaultEvolution = defaultEvolutionPrompt
	}
	defaultRanking := d.RankingPrompt
	if defaultRanking == "" {
		defaultRanking = defaultRankingPrompt
	}

	sp := SystemPrompts{
		Base:                 entry(org.BaseSystemPrompt, defaultBase, org.BaseSystemPrompt != ""),
		Evolution:            entry(org.EvolutionPrompt, defaultEvolution, org.EvolutionPrompt != ""),
		Stage1ResponseStruct: entry(org.Stage1ResponseStructure, d.Stage1ResponseStructure, org.Stage1ResponseStructure != ""),
		Stage1MetaStruct:     entry(org.Stage1MetaStructure, d.Stage1MetaStructure, org.Stage1MetaStructure != ""),
	}
	if org.Chairman != nil && org.Chairman.Prompt != "" {
		sp.Chairman = entry(org.Chairman.Prompt, defaultChairman, true)
	} else {
		sp.Chairman = entry("", defaultChairman, false)
	}
	if org.TitleGeneration != nil && org.TitleGeneration.Prompt != "" {
		sp.Title = entry(org.TitleGeneration.Prompt, defaultTitle, true)
	} else {
		sp.Title = entry("", defaultTitle, false)
	}

	// Ranking: legacy top-level key takes priority over nested ranking.prompt.
	switch {
	case org.RankingPrompt != "":
		sp.Ranking = entry(org.RankingPrompt, defaultRanking, true)
	case org.Ranking != nil && org.Ranking.Prompt != "":
		sp.Ranking = entry(org.Ranking.Prompt, defaultRanking, true)
	default:
		sp.Ranking = entry("", defaultRanking, false)
	}
	return sp
}

// Models resolves the chairman/title/ranking model ids for a tenant.
func (r *Resolver) Models(orgID string) ModelConfig {
	org := r.loadOrgConfig(orgID)
	mc := ModelConfig{
		ChairmanModel:       r.defaults.ChairmanModel,
		TitleModel:          r.defaults.TitleModel,
		RankingModel:        r.defaults.RankingModel,
		ChairmanTemperature: r.defaults.ChairmanTemperature,
		TitleTemperature:    r.defaults.TitleTemperature,
	}
	if org.Chairman != nil && org.Chairman.Model != "" {
		mc.ChairmanModel = org.Chairman.Model
	}
	if org.Chairman != nil && org.Chairman.Temperature != nil {
		mc.ChairmanTemperature = *org.Chairman.Temperature
	}
	if org.TitleGeneration != nil && org.TitleGeneration.Model != "" {
		mc.TitleModel = org.TitleGeneration.Model
	}
	if org.TitleGeneration != nil && org.TitleGeneration.Temperature != nil {
		mc.TitleTemperature = *org.TitleGeneration.Temperature
	}
	if org.Ranking != nil && org.Ranking.Model != "" {
		mc.RankingModel = org.Ranking.Model
	}
	return mc
}

func loadPersonalityDir(dir, source string) map[string]Personality {
	out := map[string]Personality{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") || e.Name() == "system-prompts.yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		var p Personality
		if err := yaml.Unmarshal(data, &p); err != nil {
			log.Error().Err(err).Str("file", e.Name()).Msg("failed to parse personality file")
			continue
		}
		if p.ID == "" {
			continue
		}
		p.Source = source
		p.IsEditable = source == "custom"
		out[p.ID] = p
	}
	return out
}

// AllPersonalities returns the merged defaults+org personality set for a
// tenant: every system personality, shadowed by any org personality that
// shares its id, regardless of enabled/disabled state.
func (r *Resolver) AllPersonalities(orgID string) []Personality {
	registry := loadPersonalityDir(filepath.Join(r.dataDir, "defaults", "personalities"), "system")
	custom := loadPersonalityDir(filepath.Join(r.orgDir(orgID), "personalities"), "custom")
	for id, p := range custom {
		registry[id] = p
	}
	out := make([]Personality, 0, len(registry))
	for _, p := range registry {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActivePersonalities filters AllPersonalities for entries that are neither
// tenant-disabled nor individually disabled. Resolution order (the order
// callers zip stage results against) is the sorted-by-id order returned
// here.
func (r *Resolver) ActivePersonalities(orgID string) []Personality {
	all := r.AllPersonalities(orgID)
	org := r.loadOrgConfig(orgID)
	disabled := map[string]bool{}
	for _, id := range org.DisabledSystemPersonalities {
		disabled[id] = true
	}
	active := make([]Personality, 0, len(all))
	for _, p := range all {
		if disabled[p.ID] {
			continue
		}
		if !p.Enabled {
			continue
		}
		active = append(active, p)
	}
	return active
}

// Resolve builds the full ActiveConfig for a tenant.
func (r *Resolver) Resolve(orgID string) ActiveConfig {
	org := r.loadOrgConfig(orgID)
	return ActiveConfig{
		OrgID:         orgID,
		Personalities: r.ActivePersonalities(orgID),
		Prompts:       r.SystemPrompts(orgID),
		Models:        r.Models(orgID),
		StrategyID:    org.ConsensusStrategy,
	}
}

// FormatPersonalityPrompt renders a personality's editable sections into a
// numbered system prompt, optionally appending the tenant's enforced
// stage1 structure blocks (used for Stage 1, omitted for Stage 2).
func FormatPersonalityPrompt(p Personality, prompts SystemPrompts, includeEnforced bool) string {
	var parts []string
	for i, key := range personalitySections {
		content := strings.TrimSpace(p.PersonalityPrompt[key])
		if content == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("**%d. %s**\n%s", i+1, sectionHeaders[key], content))
	}
	if !includeEnforced {
		return strings.Join(parts, "\n\n")
	}
	if structResp := strings.TrimSpace(prompts.Stage1ResponseStruct.Value); structResp != "" {
		parts = append(parts, structResp)
	}
	if structMeta := strings.TrimSpace(prompts.Stage1MetaStruct.Value); structMeta != "" {
		parts = append(parts, structMeta)
	}
	return strings.Join(parts, "\n\n")
}

// ValidatePromptTemplates enforces the required-tag rule (§7 Validation):
// the chairman prompt must carry {user_query}, {stage1_text}, and
// {voting_details_text}; the title prompt must carry {user_query}.
func ValidatePromptTemplates(prompts SystemPrompts) error {
	var missing []string
	required := map[string][]string{
		"chairman_prompt": {"{user_query}", "{stage1_text}", "{voting_details_text}"},
		"title_prompt":    {"{user_query}"},
	}
	check := func(name, tmpl string) {
		for _, tag := range required[name] {
			if !strings.Contains(tmpl, tag) {
				missing = append(missing, fmt.Sprintf("%s missing %s", name, tag))
			}
		}
	}
	check("chairman_prompt", prompts.Chairman.Value)
	check("title_prompt", prompts.Title.Value)
	if len(missing) > 0 {
		return fmt.Errorf("prompt validation failed: %s", strings.Join(missing, "; "))
	}
	return nil
}
