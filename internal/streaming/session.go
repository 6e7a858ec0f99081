package streaming

import (
	"context"
	"errors"
	"sync"
	"time"

	"council/internal/conversation"
	"council/internal/council"
	"council/internal/councilerr"
	"council/internal/observability"
	"council/internal/voting"
)

// Session drives one council turn end to end and reports progress through
// a Writer: persist the user's message first (so a mid-cycle crash never
// loses it), run the three stages while emitting one event per transition,
// race title generation for brand-new conversations against Stage 1-3, vote
// recording, then persist the assistant's turn.
type Session struct {
	Engine *council.Engine
	Store  conversation.Store
	Votes  voting.Store
	Clock  council.Clock
}

func (s *Session) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Run executes the turn and streams events to w. The returned error is the
// same one conversation callers would see from a non-streaming endpoint;
// the caller is responsible for logging it, since an error event has
// already been written to w by this point.
func (s *Session) Run(ctx context.Context, w *Writer, orgID, userID, conversationID, userQuery string) error {
	conv, err := s.Store.Get(ctx, orgID, userID, conversationID)
	if err != nil {
		_ = w.Send(errorEvent(err))
		return err
	}

	needsTitle := conv.Title == "" || conv.Title == "New Conversation"

	updated, err := s.Store.AppendUserMessage(ctx, orgID, userID, conversationID, userQuery)
	if err != nil {
		_ = w.Send(errorEvent(err))
		return err
	}

	var titleWg sync.WaitGroup
	var title string
	if needsTitle {
		titleWg.Add(1)
		go func() {
			defer titleWg.Done()
			title = s.Engine.GenerateTitle(ctx, orgID, userQuery)
		}()
	}

	history := conversation.ToHistory(updated.Messages)

	_ = w.Send(stageStart(1))
	hooks := council.Hooks{
		OnStage1: func(r []council.Stage1Result) { _ = w.Send(stage1Complete(r)); _ = w.Send(stageStart(2)) },
		OnStage2: func(r []council.Stage2Result) { _ = w.Send(stage2Complete(r)); _ = w.Send(stageStart(3)) },
		OnStage3: func(r council.Stage3Result) { _ = w.Send(stage3Complete(r)) },
	}

	result, runErr := s.Engine.RunWithHooks(ctx, orgID, userQuery, history, hooks)
	if runErr != nil && !isStageEmpty(runErr) {
		_ = w.Send(errorEvent(runErr))
		_ = s.Store.ReleaseProcessing(ctx, orgID, userID, conversationID)
		return runErr
	}

	if s.Votes != nil && len(result.Stage2) > 0 {
		turnNumber := countUserMessages(updated.Messages)
		session := voting.SessionFromTurn(orgID, conversationID, updated.Title, userID, turnNumber, s.now(), result.Stage2, result.LabelToModel)
		if err := s.Votes.RecordSession(ctx, session); err != nil {
			observability.LoggerWithTrace(ctx).Warn().Err(err).Msg("failed to record voting session")
		}
	}

	assistantMsg := conversation.Message{
		Stage1: conversation.FromStage1(result.Stage1),
		Stage2: conversation.FromStage2(result.Stage2),
		Stage3: conversation.FromStage3(result.Stage3),
	}
	if _, storeErr := s.Store.AppendAssistantMessage(ctx, orgID, userID, conversationID, assistantMsg); storeErr != nil {
		_ = w.Send(errorEvent(storeErr))
		return storeErr
	}

	if needsTitle {
		titleWg.Wait()
		if title != "" {
			_ = s.Store.SetTitle(ctx, orgID, userID, conversationID, title)
			_ = w.Send(titleComplete(title))
		}
	}

	if runErr != nil {
		_ = w.Send(errorEvent(runErr))
		return runErr
	}

	_ = w.Send(complete(conversationID))
	return nil
}

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
