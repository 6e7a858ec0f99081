// Package voting persists per-vote ballots, computes the league table and
// voting history the read API exposes, and builds feedback-summary prompts
// (C4).
package voting

import (
	"context"
	"time"
)

// Vote is one voter's ranked opinion of one candidate, the atomic row
// spec.md §3 defines: one per (voter, parsed-rank-position, label) a Stage 2
// completion produces. CandidatePersonalityName and OrgID are carried for
// tenant scoping and display; they are not part of the logical tuple but
// every implementation needs them to answer the read paths.
type Vote struct {
	ID                       string
	OrgID                    string
	ConversationID           string
	TurnNumber               int
	VoterModel               string
	CandidatePersonalityID   string
	CandidatePersonalityName string
	CandidateModel           string
	Rank                     int
	Label                    string
	ReasoningText            string
	Timestamp                time.Time
}

// Session is the append-only voting-session header one completed turn
// produces: the full ballot for that turn, keyed by session id so voting
// history can be replayed one turn at a time.
type Session struct {
	ID                string
	OrgID             string
	ConversationID    string
	ConversationTitle string
	TurnNumber        int
	UserID            string
	Timestamp         time.Time
	Votes             []Vote
}

// LeagueRow is one candidate personality's standing across every vote
// matching the query's scope.
type LeagueRow struct {
	PersonalityID   string  `json:"personalityId"`
	PersonalityName string  `json:"personalityName"`
	Sessions        int     `json:"sessions"`
	VotesReceived   int     `json:"votesReceived"`
	Wins            int     `json:"wins"`
	AverageRank     float64 `json:"averageRank"`
	WinRate         float64 `json:"winRate"`
}

// Store persists voting sessions and answers the league/history/feedback
// queries. Every method is scoped by orgID so tenants never see each
// other's standings, except LeagueInstanceWide which intentionally
// aggregates across all tenants for the cross-tenant leaderboard.
type Store interface {
	// RecordSession persists one turn's full ballot: the normalized Vote
	// rows plus the session header they belong to. Writes are
	// best-effort — callers log and discard any error rather than fail
	// the turn.
	RecordSession(ctx context.Context, session Session) error

	// League groups every vote for orgID by candidate_personality_id:
	// sessions = distinct(conversation_id), votes_received = count,
	// wins = count where rank=1, average_rank = sum(rank)/votes_received,
	// win_rate = wins/sessions*100. Sorted by (-win_rate, average_rank).
	League(ctx context.Context, orgID string) ([]LeagueRow, error)

	// LeagueInstanceWide is League summed across every tenant.
	LeagueInstanceWide(ctx context.Context) ([]LeagueRow, error)

	// History returns voting-session headers for orgID, newest first.
	History(ctx context.Context, orgID string, limit int) ([]Session, error)

	// VotesForCandidate returns the most recent votes cast for
	// candidatePersonalityID within orgID whose reasoning_text is
	// non-empty, newest first, bounded by limit.
	VotesForCandidate(ctx context.Context, orgID, candidatePersonalityID string, limit int) ([]Vote, error)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
