package voting

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresStore returns a Postgres-backed Store for deployments that
// persist the league table across restarts.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool *pgxpool.Pool
}

// Init creates the voting_sessions and council_votes tables. Called once
// at startup.
func (s *pgStore) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS voting_sessions (
    id UUID PRIMARY KEY,
    org_id TEXT NOT NULL,
    conversation_id TEXT NOT NULL,
    conversation_title TEXT NOT NULL DEFAULT '',
    turn_number INTEGER NOT NULL,
    user_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS council_votes (
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL REFERENCES voting_sessions(id) ON DELETE CASCADE,
    org_id TEXT NOT NULL,
    conversation_id TEXT NOT NULL,
    turn_number INTEGER NOT NULL,
    voter_model TEXT NOT NULL,
    candidate_personality_id TEXT NOT NULL,
    candidate_personality_name TEXT NOT NULL,
    candidate_model TEXT NOT NULL,
    rank INTEGER NOT NULL,
    label TEXT NOT NULL,
    reasoning_text TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS voting_sessions_org_created_idx ON voting_sessions(org_id, created_at DESC);
CREATE INDEX IF NOT EXISTS council_votes_candidate_idx ON council_votes(candidate_personality_id);
CREATE INDEX IF NOT EXISTS council_votes_conversation_idx ON council_votes(conversation_id);
CREATE INDEX IF NOT EXISTS council_votes_org_idx ON council_votes(org_id);
`)
	return err
}

func (s *pgStore) RecordSession(ctx context.Context, session Session) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
INSERT INTO voting_sessions (id, org_id, conversation_id, conversation_title, turn_number, user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.OrgID, session.ConversationID, session.ConversationTitle, session.TurnNumber, session.UserID, session.Timestamp); err != nil {
		return err
	}

	if len(session.Votes) > 0 {
		batch := &pgx.Batch{}
		for _, v := range session.Votes {
			batch.Queue(`
INSERT INTO council_votes (id, session_id, org_id, conversation_id, turn_number, voter_model, candidate_personality_id, candidate_personality_name, candidate_model, rank, label, reasoning_text, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
				v.ID, session.ID, v.OrgID, v.ConversationID, v.TurnNumber, v.VoterModel, v.CandidatePersonalityID, v.CandidatePersonalityName, v.CandidateModel, v.Rank, v.Label, v.ReasoningText, v.Timestamp)
		}
		br := tx.SendBatch(ctx, batch)
		for range session.Votes {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return err
			}
		}
		if err := br.Close(); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *pgStore) League(ctx context.Context, orgID string) ([]LeagueRow, error) {
	return s.league(ctx, `
SELECT candidate_personality_id, MAX(candidate_personality_name),
       COUNT(DISTINCT conversation_id), COUNT(*), COUNT(*) FILTER (WHERE rank = 1), AVG(rank)
FROM council_votes
WHERE org_id = $1
GROUP BY candidate_personality_id`, orgID)
}

func (s *pgStore) LeagueInstanceWide(ctx context.Context) ([]LeagueRow, error) {
	return s.league(ctx, `
SELECT candidate_personality_id, MAX(candidate_personality_name),
       COUNT(DISTINCT conversation_id), COUNT(*), COUNT(*) FILTER (WHERE rank = 1), AVG(rank)
FROM council_votes
GROUP BY candidate_personality_id`)
}

func (s *pgStore) league(ctx context.Context, query string, args ...any) ([]LeagueRow, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeagueRow
	for rows.Next() {
		var row LeagueRow
		if err := rows.Scan(&row.PersonalityID, &row.PersonalityName, &row.Sessions, &row.VotesReceived, &row.Wins, &row.AverageRank); err != nil {
			return nil, err
		}
		row.AverageRank = round2(row.AverageRank)
		if row.Sessions > 0 {
			row.WinRate = round2(float64(row.Wins) / float64(row.Sessions) * 100)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].WinRate != out[j].WinRate {
			return out[i].WinRate > out[j].WinRate
		}
		return out[i].AverageRank < out[j].AverageRank
	})
	return out, nil
}

func (s *pgStore) History(ctx context.Context, orgID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, org_id, conversation_id, conversation_title, turn_number, user_id, created_at
FROM voting_sessions
WHERE org_id = $1
ORDER BY created_at DESC
LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, err
	}

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.OrgID, &sess.ConversationID, &sess.ConversationTitle, &sess.TurnNumber, &sess.UserID, &sess.Timestamp); err != nil {
			rows.Close()
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range sessions {
		votes, err := s.votesForSession(ctx, sessions[i].ID)
		if err != nil {
			return nil, err
		}
		sessions[i].Votes = votes
	}
	return sessions, nil
}

func (s *pgStore) votesForSession(ctx context.Context, sessionID string) ([]Vote, error) {
	rows, err := s.pool.Query(ctx, `
SELECT id, org_id, conversation_id, turn_number, voter_model, candidate_personality_id, candidate_personality_name, candidate_model, rank, label, reasoning_text, created_at
FROM council_votes
WHERE session_id = $1
ORDER BY rank ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ID, &v.OrgID, &v.ConversationID, &v.TurnNumber, &v.VoterModel, &v.CandidatePersonalityID, &v.CandidatePersonalityName, &v.CandidateModel, &v.Rank, &v.Label, &v.ReasoningText, &v.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *pgStore) VotesForCandidate(ctx context.Context, orgID, candidatePersonalityID string, limit int) ([]Vote, error) {
	if limit <= 0 {
		limit = FeedbackSummaryLimit
	}
	rows, err := s.pool.Query(ctx, `
SELECT id, org_id, conversation_id, turn_number, voter_model, candidate_personality_id, candidate_personality_name, candidate_model, rank, label, reasoning_text, created_at
FROM council_votes
WHERE org_id = $1 AND candidate_personality_id = $2 AND reasoning_text <> ''
ORDER BY created_at DESC
LIMIT $3`, orgID, candidatePersonalityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ID, &v.OrgID, &v.ConversationID, &v.TurnNumber, &v.VoterModel, &v.CandidatePersonalityID, &v.CandidatePersonalityName, &v.CandidateModel, &v.Rank, &v.Label, &v.ReasoningText, &v.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
