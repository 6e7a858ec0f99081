package voting

import (
	"context"
	"fmt"
	"strings"
)

// FeedbackSummaryLimit bounds how many of a candidate's most recent
// reasoned votes feed a feedback-summary prompt.
const FeedbackSummaryLimit = 50

// BuildFeedbackSummaryPrompt assembles a prompt asking a model to summarize
// the voting rationale peers gave candidatePersonalityID, so an operator can
// see recurring praise or complaints about one personality without reading
// every ranking.
func BuildFeedbackSummaryPrompt(ctx context.Context, store Store, orgID, candidatePersonalityID string) (string, error) {
	votes, err := store.VotesForCandidate(ctx, orgID, candidatePersonalityID, FeedbackSummaryLimit)
	if err != nil {
		return "", err
	}
	if len(votes) == 0 {
		return "", nil
	}
	var blocks []string
	for _, v := range votes {
		text := strings.TrimSpace(v.ReasoningText)
		if text == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("%s ranked it #%d: %s", v.VoterModel, v.Rank, text))
	}
	if len(blocks) == 0 {
		return "", nil
	}
	return "Summarize the recurring themes in these peer-ranking rationales:\n\n" + strings.Join(blocks, "\n\n"), nil
}
