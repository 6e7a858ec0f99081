package httpapi

import (
	"errors"
	"net/http"
)

var (
	errMissingIdentity        = errors.New("missing caller identity")
	errVotingDisabled         = errors.New("voting store not configured")
	errInstanceScopeForbidden = errors.New("instance-wide league requires instance admin")
)

func (s *Server) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromHeaders(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, errMissingIdentity)
		return
	}
	conv, err := s.store.Create(r.Context(), identity.OrgID, identity.UserID)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusCreated, conv)
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromHeaders(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, errMissingIdentity)
		return
	}
	list, err := s.store.List(r.Context(), identity.OrgID, identity.UserID)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conversations": list})
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromHeaders(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, errMissingIdentity)
		return
	}
	conv, err := s.store.Get(r.Context(), identity.OrgID, identity.UserID, r.PathValue("conversationID"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromHeaders(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, errMissingIdentity)
		return
	}
	if err := s.store.Delete(r.Context(), identity.OrgID, identity.UserID, r.PathValue("conversationID")); err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
