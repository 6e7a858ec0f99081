package voting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func vote(orgID, conversationID, candidateID, candidateName string, rank int, reasoning string) Vote {
	return Vote{
		ID:                       "vote-" + conversationID + "-" + candidateID,
		OrgID:                    orgID,
		ConversationID:           conversationID,
		TurnNumber:               1,
		VoterModel:               "openai/gpt-4o",
		CandidatePersonalityID:   candidateID,
		CandidatePersonalityName: candidateName,
		CandidateModel:           "anthropic/claude-3-7-sonnet",
		Rank:                     rank,
		Label:                    "Response A",
		ReasoningText:            reasoning,
		Timestamp:                time.Now().UTC(),
	}
}

func TestMemoryStore_LeagueScopedByOrg(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.RecordSession(ctx, Session{
		ID: "s1", OrgID: "acme", ConversationID: "conv-1", TurnNumber: 1,
		Votes: []Vote{
			vote("acme", "conv-1", "analyst", "Analyst", 1, "clear"),
			vote("acme", "conv-1", "analyst", "Analyst", 2, "clear"),
			vote("acme", "conv-1", "skeptic", "Skeptic", 2, "meh"),
			vote("acme", "conv-1", "skeptic", "Skeptic", 3, "meh"),
		},
	}))
	require.NoError(t, store.RecordSession(ctx, Session{
		ID: "s2", OrgID: "acme", ConversationID: "conv-2", TurnNumber: 1,
		Votes: []Vote{
			vote("acme", "conv-2", "analyst", "Analyst", 1, "great"),
		},
	}))
	require.NoError(t, store.RecordSession(ctx, Session{
		ID: "s3", OrgID: "other-org", ConversationID: "conv-3", TurnNumber: 1,
		Votes: []Vote{
			vote("other-org", "conv-3", "analyst", "Analyst", 3, "meh"),
		},
	}))

	league, err := store.League(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, league, 2)

	// analyst: 3 votes across 2 sessions, 2 wins (rank=1 in both sessions).
	require.Equal(t, "analyst", league[0].PersonalityID)
	require.Equal(t, 2, league[0].Sessions)
	require.Equal(t, 3, league[0].VotesReceived)
	require.Equal(t, 2, league[0].Wins)
	require.Equal(t, 100.0, league[0].WinRate)
	// (1+2+1)/3 rounded to two decimals.
	require.InDelta(t, 1.33, league[0].AverageRank, 0.001)

	instanceWide, err := store.LeagueInstanceWide(ctx)
	require.NoError(t, err)
	var analystRow LeagueRow
	for _, r := range instanceWide {
		if r.PersonalityID == "analyst" {
			analystRow = r
		}
	}
	require.Equal(t, 3, analystRow.Sessions)
	require.Equal(t, 4, analystRow.VotesReceived)
}

func TestMemoryStore_HistoryOrderedAndLimited(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordSession(ctx, Session{
			ID: "s", OrgID: "acme", ConversationID: "conv", TurnNumber: i + 1,
			Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
			Votes:     []Vote{vote("acme", "conv", "analyst", "Analyst", 1, "")},
		}))
	}
	hist, err := store.History(ctx, "acme", 3)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	require.Equal(t, 5, hist[0].TurnNumber)
}

func TestMemoryStore_VotesForCandidateFiltersEmptyReasoning(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.RecordSession(ctx, Session{
		ID: "s1", OrgID: "acme", ConversationID: "conv-1", TurnNumber: 1,
		Votes: []Vote{
			vote("acme", "conv-1", "analyst", "Analyst", 1, "insightful"),
			vote("acme", "conv-1", "skeptic", "Skeptic", 2, ""),
		},
	}))

	votes, err := store.VotesForCandidate(ctx, "acme", "analyst", 10)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	require.Equal(t, "insightful", votes[0].ReasoningText)

	votes, err = store.VotesForCandidate(ctx, "acme", "skeptic", 10)
	require.NoError(t, err)
	require.Empty(t, votes)
}
