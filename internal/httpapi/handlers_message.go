package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"council/internal/conversation"
	"council/internal/council"
	"council/internal/councilerr"
	"council/internal/observability"
	"council/internal/streaming"
	"council/internal/voting"
)

func isStageEmpty(err error) bool {
	return errors.Is(err, councilerr.ErrStageEmpty)
}

// countUserMessages turns a conversation's full message log into the
// 1-based turn number the just-appended user message represents.
func countUserMessages(messages []conversation.Message) int {
	n := 0
	for _, m := range messages {
		if m.Role == "user" {
			n++
		}
	}
	return n
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Stage1   []council.Stage1Result `json:"stage1"`
	Stage2   []council.Stage2Result `json:"stage2"`
	Stage3   council.Stage3Result   `json:"stage3"`
	Metadata messageMetadata        `json:"metadata"`
}

type messageMetadata struct {
	LabelToModel     map[string]council.LabelTarget `json:"label_to_model"`
	AggregateRanking []council.AggregateRanking     `json:"aggregate_rankings"`
}

// handleMessage runs one council turn and returns the full result as JSON,
// per spec: {stage1, stage2, stage3, metadata: {label_to_model, aggregate_rankings}}.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromHeaders(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, errMissingIdentity)
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	conversationID := r.PathValue("conversationID")

	updated, err := s.store.AppendUserMessage(r.Context(), identity.OrgID, identity.UserID, conversationID, req.Message)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	history := conversation.ToHistory(updated.Messages)

	result, runErr := s.engine.Run(r.Context(), identity.OrgID, req.Message, history)
	if runErr != nil && !isStageEmpty(runErr) {
		_ = s.store.ReleaseProcessing(r.Context(), identity.OrgID, identity.UserID, conversationID)
		respondError(w, statusFromError(runErr), runErr)
		return
	}

	assistantMsg := conversation.Message{
		Stage1: conversation.FromStage1(result.Stage1),
		Stage2: conversation.FromStage2(result.Stage2),
		Stage3: conversation.FromStage3(result.Stage3),
	}
	if _, err := s.store.AppendAssistantMessage(r.Context(), identity.OrgID, identity.UserID, conversationID, assistantMsg); err != nil {
		respondError(w, statusFromError(err), err)
		return
	}

	if s.votes != nil && len(result.Stage2) > 0 {
		turnNumber := countUserMessages(updated.Messages)
		session := voting.SessionFromTurn(identity.OrgID, conversationID, updated.Title, identity.UserID, turnNumber, time.Now(), result.Stage2, result.LabelToModel)
		if err := s.votes.RecordSession(r.Context(), session); err != nil {
			observability.LoggerWithTrace(r.Context()).Warn().Err(err).Msg("failed to record voting session")
		}
	}

	if runErr != nil {
		respondJSON(w, http.StatusOK, messageResponse{
			Stage3: result.Stage3,
		})
		return
	}

	respondJSON(w, http.StatusOK, messageResponse{
		Stage1: result.Stage1,
		Stage2: result.Stage2,
		Stage3: result.Stage3,
		Metadata: messageMetadata{
			LabelToModel:     result.LabelToModel,
			AggregateRanking: result.Aggregate,
		},
	})
}

// handleMessageStream runs one council turn and streams SSE progress
// events as each stage completes.
func (s *Server) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromHeaders(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, errMissingIdentity)
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	writer, err := streaming.NewWriter(w)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err)
		return
	}

	session := &streaming.Session{Engine: s.engine, Store: s.store, Votes: s.votes}
	_ = session.Run(r.Context(), writer, identity.OrgID, identity.UserID, r.PathValue("conversationID"), req.Message)
}
