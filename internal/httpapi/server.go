// Package httpapi exposes the council engine over HTTP: a JSON endpoint and
// an SSE endpoint for running a turn, read endpoints for conversations and
// the voting league table, and a health check.
package httpapi

import (
	"net/http"

	"council/internal/council"
	"council/internal/conversation"
	"council/internal/voting"
)

// Server wires the council engine, conversation store, and voting store to
// their HTTP surface.
type Server struct {
	engine *council.Engine
	store  conversation.Store
	votes  voting.Store
	mux    *http.ServeMux
}

// NewServer builds the HTTP API. votes may be nil if league/voting-history
// endpoints should be disabled for this deployment.
func NewServer(engine *council.Engine, store conversation.Store, votes voting.Store) *Server {
	s := &Server{engine: engine, store: store, votes: votes, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	s.mux.HandleFunc("POST /api/v1/conversations", s.handleCreateConversation)
	s.mux.HandleFunc("GET /api/v1/conversations", s.handleListConversations)
	s.mux.HandleFunc("GET /api/v1/conversations/{conversationID}", s.handleGetConversation)
	s.mux.HandleFunc("DELETE /api/v1/conversations/{conversationID}", s.handleDeleteConversation)

	s.mux.HandleFunc("POST /api/v1/conversations/{conversationID}/message", s.handleMessage)
	s.mux.HandleFunc("POST /api/v1/conversations/{conversationID}/message/stream", s.handleMessageStream)

	s.mux.HandleFunc("GET /api/v1/league", s.handleLeague)
	s.mux.HandleFunc("GET /api/v1/voting-history", s.handleVotingHistory)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
