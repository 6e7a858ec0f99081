// Package council implements the three-stage Propose/Rank/Synthesize
// protocol (C3) plus the attribution parser for the alternate consensus
// strategy (C7).
package council

import "time"

// HistoryMessage is one stored conversation turn as the engine consumes it.
type HistoryMessage struct {
	Role    string // "user" | "assistant"
	Content string
	Stage3  *Stage3Result
}

// Stage1Result is one personality's Propose-stage answer.
type Stage1Result struct {
	Model           string `json:"model"`
	Response        string `json:"response"`
	PersonalityID   string `json:"personalityId"`
	PersonalityName string `json:"personalityName"`
}

// Stage2Result is one personality's Rank-stage vote.
type Stage2Result struct {
	Model           string   `json:"model"`
	PersonalityID   string   `json:"personalityId"`
	PersonalityName string   `json:"personalityName"`
	RankingText     string   `json:"rankingText"`
	ParsedRanking   []string `json:"parsedRanking"` // anonymized labels, ranked order
}

// LabelTarget is what an anonymized label resolves to.
type LabelTarget struct {
	PersonalityID   string `json:"personalityId"`
	PersonalityName string `json:"personalityName"`
	Model           string `json:"model"`
}

// Stage3Result is the chairman's synthesis, or the alternate consensus
// strategy's output.
type Stage3Result struct {
	Model        string        `json:"model"`
	Response     string        `json:"response"`
	Strategy     string        `json:"strategy,omitempty"` // empty for the default chairman path
	Contributors []Contributor `json:"contributors,omitempty"`
}

// AggregateRanking is one row of the Borda-style mean-rank table.
type AggregateRanking struct {
	PersonalityName string  `json:"personalityName"`
	AverageRank     float64 `json:"averageRank"`
	RankingsCount   int     `json:"rankingsCount"`
}

// TurnResult bundles everything one council cycle produces.
type TurnResult struct {
	Stage1       []Stage1Result          `json:"stage1"`
	Stage2       []Stage2Result          `json:"stage2"`
	Stage3       Stage3Result            `json:"stage3"`
	LabelToModel map[string]LabelTarget  `json:"labelToModel"`
	Aggregate    []AggregateRanking      `json:"aggregate"`
}

// Clock is injected so tests can pin the time-anchor instant; when it is
// nil, callers fall back to time.Now.
type Clock func() time.Time
