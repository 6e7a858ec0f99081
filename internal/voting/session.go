package voting

import (
	"time"

	"github.com/google/uuid"

	"council/internal/council"
)

// SessionFromTurn derives the voting-session write-path record from one
// completed turn's Stage 2 results (spec.md §4.4): one Vote per (voter,
// parsed-rank-position, label), dropping positions whose label has no
// mapping in labelToModel.
func SessionFromTurn(orgID, conversationID, conversationTitle, userID string, turnNumber int, at time.Time, stage2 []council.Stage2Result, labelToModel map[string]council.LabelTarget) Session {
	session := Session{
		ID:                uuid.NewString(),
		OrgID:             orgID,
		ConversationID:    conversationID,
		ConversationTitle: conversationTitle,
		TurnNumber:        turnNumber,
		UserID:            userID,
		Timestamp:         at,
	}
	for _, voter := range stage2 {
		for i, label := range voter.ParsedRanking {
			target, ok := labelToModel[label]
			if !ok {
				continue
			}
			session.Votes = append(session.Votes, Vote{
				ID:                       uuid.NewString(),
				OrgID:                    orgID,
				ConversationID:           conversationID,
				TurnNumber:               turnNumber,
				VoterModel:               voter.Model,
				CandidatePersonalityID:   target.PersonalityID,
				CandidatePersonalityName: target.PersonalityName,
				CandidateModel:           target.Model,
				Rank:                     i + 1,
				Label:                    label,
				ReasoningText:            voter.RankingText,
				Timestamp:                at,
			})
		}
	}
	return session
}
