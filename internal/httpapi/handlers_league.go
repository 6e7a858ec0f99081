package httpapi

import (
	"net/http"
	"strconv"
)

func (s *Server) handleLeague(w http.ResponseWriter, r *http.Request) {
	if s.votes == nil {
		respondError(w, http.StatusNotImplemented, errVotingDisabled)
		return
	}
	identity, ok := identityFromHeaders(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, errMissingIdentity)
		return
	}

	if r.URL.Query().Get("scope") == "instance" {
		if !identity.IsInstanceAdmin {
			respondError(w, http.StatusForbidden, errInstanceScopeForbidden)
			return
		}
		rows, err := s.votes.LeagueInstanceWide(r.Context())
		if err != nil {
			respondError(w, statusFromError(err), err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"league": rows})
		return
	}

	rows, err := s.votes.League(r.Context(), identity.OrgID)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"league": rows})
}

func (s *Server) handleVotingHistory(w http.ResponseWriter, r *http.Request) {
	if s.votes == nil {
		respondError(w, http.StatusNotImplemented, errVotingDisabled)
		return
	}
	identity, ok := identityFromHeaders(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, errMissingIdentity)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	sessions, err := s.votes.History(r.Context(), identity.OrgID, limit)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}
