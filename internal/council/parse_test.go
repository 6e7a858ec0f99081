package council

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRankingFromText_NumberedMarker(t *testing.T) {
	text := `Here is my evaluation of each response...

FINAL RANKING:
1. Response B
2. Response A
3. Response C`
	assert.Equal(t, []string{"Response B", "Response A", "Response C"}, ParseRankingFromText(text))
}

func TestParseRankingFromText_BareMarkerNoNumbers(t *testing.T) {
	text := "FINAL RANKING:\nResponse C, then Response A, then Response B"
	assert.Equal(t, []string{"Response C", "Response A", "Response B"}, ParseRankingFromText(text))
}

func TestParseRankingFromText_NoMarkerFallsBackToWholeText(t *testing.T) {
	text := "I think Response A is best, followed by Response B."
	assert.Equal(t, []string{"Response A", "Response B"}, ParseRankingFromText(text))
}

func TestParseRankingFromText_NoMatches(t *testing.T) {
	assert.Empty(t, ParseRankingFromText("no structured ranking here"))
}

func TestCalculateAggregateRankings(t *testing.T) {
	labelToModel := map[string]LabelTarget{
		"Response A": {PersonalityID: "a", PersonalityName: "Analyst"},
		"Response B": {PersonalityID: "b", PersonalityName: "Skeptic"},
		"Response C": {PersonalityID: "c", PersonalityName: "Synthesizer"},
	}
	stage2 := []Stage2Result{
		{PersonalityID: "a", ParsedRanking: []string{"Response A", "Response B", "Response C"}},
		{PersonalityID: "b", ParsedRanking: []string{"Response C", "Response A", "Response B"}},
		{PersonalityID: "c", ParsedRanking: []string{"Response B", "Response A", "Response C"}},
	}

	got := CalculateAggregateRankings(stage2, labelToModel)

	want := map[string]AggregateRanking{
		"Analyst":     {PersonalityName: "Analyst", AverageRank: 1.67, RankingsCount: 3},
		"Skeptic":     {PersonalityName: "Skeptic", AverageRank: 2.0, RankingsCount: 3},
		"Synthesizer": {PersonalityName: "Synthesizer", AverageRank: 2.33, RankingsCount: 3},
	}
	assert.Len(t, got, 3)
	for _, row := range got {
		assert.Equal(t, want[row.PersonalityName], row)
	}
	// Best average rank sorts first.
	assert.Equal(t, "Analyst", got[0].PersonalityName)
}

func TestCalculateAggregateRankings_UnresolvedLabelsIgnored(t *testing.T) {
	labelToModel := map[string]LabelTarget{
		"Response A": {PersonalityID: "a", PersonalityName: "Analyst"},
	}
	stage2 := []Stage2Result{
		{PersonalityID: "a", ParsedRanking: []string{"Response A", "Response Z"}},
	}
	got := CalculateAggregateRankings(stage2, labelToModel)
	assert.Equal(t, []AggregateRanking{{PersonalityName: "Analyst", AverageRank: 1, RankingsCount: 1}}, got)
}
