package conversation

import "council/internal/council"

// ToHistory converts stored messages into the shape the council engine
// consumes, so every caller (streaming, httpapi) builds history the same
// way.
func ToHistory(messages []Message) []council.HistoryMessage {
	out := make([]council.HistoryMessage, 0, len(messages))
	for _, m := range messages {
		hm := council.HistoryMessage{Role: m.Role, Content: m.Content}
		if m.Stage3 != nil {
			hm.Stage3 = &council.Stage3Result{Model: m.Stage3.Model, Response: m.Stage3.Response, Strategy: m.Stage3.Strategy}
		}
		out = append(out, hm)
	}
	return out
}

// FromStage1 converts each Stage1Result into its stored form (model,
// personality id and name, response).
func FromStage1(results []council.Stage1Result) []StageResult {
	out := make([]StageResult, len(results))
	for i, r := range results {
		out[i] = StageResult{Model: r.Model, PersonalityID: r.PersonalityID, PersonalityName: r.PersonalityName, Response: r.Response}
	}
	return out
}

// FromStage2 keeps each voter's ranking text but drops the parsed label
// slice; it can be re-derived from RankingText with
// council.ParseRankingFromText.
func FromStage2(results []council.Stage2Result) []StageResult {
	out := make([]StageResult, len(results))
	for i, r := range results {
		out[i] = StageResult{Model: r.Model, PersonalityID: r.PersonalityID, PersonalityName: r.PersonalityName, RankingText: r.RankingText}
	}
	return out
}

// FromStage3 converts the engine's synthesis result into its stored form.
func FromStage3(r council.Stage3Result) *Stage3Envelope {
	return &Stage3Envelope{Model: r.Model, Response: r.Response, Strategy: r.Strategy}
}
