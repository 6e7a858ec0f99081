package voting

import (
	"context"
	"sort"
	"sync"
)

// NewMemoryStore returns an in-process Store, used unless
// COUNCIL_VOTING_BACKEND selects postgres, and in tests.
func NewMemoryStore() Store {
	return &memoryStore{}
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions []Session
}

func (s *memoryStore) RecordSession(ctx context.Context, session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return nil
}

func (s *memoryStore) votes(keep func(Session) bool) []Vote {
	var out []Vote
	for _, sess := range s.sessions {
		if !keep(sess) {
			continue
		}
		out = append(out, sess.Votes...)
	}
	return out
}

func (s *memoryStore) League(ctx context.Context, orgID string) ([]LeagueRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return aggregateLeague(s.votes(func(sess Session) bool { return sess.OrgID == orgID })), nil
}

func (s *memoryStore) LeagueInstanceWide(ctx context.Context) ([]LeagueRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return aggregateLeague(s.votes(func(Session) bool { return true })), nil
}

func (s *memoryStore) History(ctx context.Context, orgID string, limit int) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.OrgID == orgID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) VotesForCandidate(ctx context.Context, orgID, candidatePersonalityID string, limit int) ([]Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Vote
	for i := len(s.sessions) - 1; i >= 0; i-- {
		sess := s.sessions[i]
		if sess.OrgID != orgID {
			continue
		}
		for _, v := range sess.Votes {
			if v.CandidatePersonalityID != candidatePersonalityID || v.ReasoningText == "" {
				continue
			}
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// aggregateLeague folds raw votes into per-candidate league rows per
// spec.md §4.4: sessions = distinct conversations, votes_received = count,
// wins = count where rank=1, average_rank = sum(rank)/votes_received,
// win_rate = wins/sessions*100, sorted by (-win_rate, average_rank).
func aggregateLeague(votes []Vote) []LeagueRow {
	type acc struct {
		name     string
		convs    map[string]bool
		received int
		wins     int
		rankSum  int
	}
	byID := map[string]*acc{}
	order := make([]string, 0)
	for _, v := range votes {
		a, ok := byID[v.CandidatePersonalityID]
		if !ok {
			a = &acc{name: v.CandidatePersonalityName, convs: map[string]bool{}}
			byID[v.CandidatePersonalityID] = a
			order = append(order, v.CandidatePersonalityID)
		}
		a.convs[v.ConversationID] = true
		a.received++
		a.rankSum += v.Rank
		if v.Rank == 1 {
			a.wins++
		}
	}
	rows := make([]LeagueRow, 0, len(order))
	for _, id := range order {
		a := byID[id]
		sessions := len(a.convs)
		winRate := 0.0
		if sessions > 0 {
			winRate = round2(float64(a.wins) / float64(sessions) * 100)
		}
		avgRank := 0.0
		if a.received > 0 {
			avgRank = round2(float64(a.rankSum) / float64(a.received))
		}
		rows = append(rows, LeagueRow{
			PersonalityID:   id,
			PersonalityName: a.name,
			Sessions:        sessions,
			VotesReceived:   a.received,
			Wins:            a.wins,
			AverageRank:     avgRank,
			WinRate:         winRate,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].WinRate != rows[j].WinRate {
			return rows[i].WinRate > rows[j].WinRate
		}
		return rows[i].AverageRank < rows[j].AverageRank
	})
	return rows
}
