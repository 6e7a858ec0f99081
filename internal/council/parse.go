package council

import (
	"regexp"
	"sort"
)

const (
	finalRankingMarker  = "FINAL RANKING:"
	responseLabelPrefix = "Response "
)

var (
	numberedResponsePattern = regexp.MustCompile(`\d+\.\s*Response [A-Z]`)
	responseLabelPattern    = regexp.MustCompile(`Response [A-Z]`)
)

// ParseRankingFromText extracts anonymized labels in ranked order per
// spec.md §4.3: locate "FINAL RANKING:", prefer numbered "N. Response X"
// matches, fall back to any "Response X" occurrence after the marker, and
// fall back further to scanning the whole text when the marker is absent.
func ParseRankingFromText(text string) []string {
	if idx := indexOf(text, finalRankingMarker); idx >= 0 {
		section := text[idx+len(finalRankingMarker):]
		if numbered := numberedResponsePattern.FindAllString(section, -1); len(numbered) > 0 {
			labels := make([]string, 0, len(numbered))
			for _, m := range numbered {
				labels = append(labels, responseLabelPattern.FindString(m))
			}
			return labels
		}
		return responseLabelPattern.FindAllString(section, -1)
	}
	return responseLabelPattern.FindAllString(text, -1)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}

// CalculateAggregateRankings computes the Borda-style mean rank per
// personality across all parsed Stage 2 rankings, sorted best-first.
func CalculateAggregateRankings(stage2 []Stage2Result, labelToModel map[string]LabelTarget) []AggregateRanking {
	positions := map[string][]int{}
	order := make([]string, 0, len(labelToModel))
	seen := map[string]bool{}

	for _, res := range stage2 {
		for i, label := range res.ParsedRanking {
			target, ok := labelToModel[label]
			if !ok {
				continue
			}
			positions[target.PersonalityName] = append(positions[target.PersonalityName], i+1)
			if !seen[target.PersonalityName] {
				seen[target.PersonalityName] = true
				order = append(order, target.PersonalityName)
			}
		}
	}

	out := make([]AggregateRanking, 0, len(order))
	for _, name := range order {
		ps := positions[name]
		sum := 0
		for _, p := range ps {
			sum += p
		}
		avg := round2(float64(sum) / float64(len(ps)))
		out = append(out, AggregateRanking{PersonalityName: name, AverageRank: avg, RankingsCount: len(ps)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AverageRank < out[j].AverageRank })
	return out
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
