package conversation

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"council/internal/councilerr"
)

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a Store useful for tests and single-process demos.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]*Conversation)}
}

// MemoryStore keeps conversations in a map keyed by id, mirroring the shape
// of FileStore without touching disk.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]*Conversation
}

func (s *MemoryStore) Create(ctx context.Context, orgID, userID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowUTC()
	conv := &Conversation{
		ID:              uuid.NewString(),
		OrgID:           orgID,
		UserID:          userID,
		Title:           "New Conversation",
		CreatedAt:       now,
		UpdatedAt:       now,
		Messages:        []Message{},
		ProcessingState: StateIdle,
	}
	s.convs[conv.ID] = conv
	return cloneConversation(conv), nil
}

func (s *MemoryStore) lookup(orgID, userID, conversationID string) (*Conversation, error) {
	conv, ok := s.convs[conversationID]
	if !ok || conv.OrgID != orgID {
		return nil, councilerr.ErrNotFound
	}
	if conv.UserID != userID {
		return nil, councilerr.ErrForbidden
	}
	return conv, nil
}

func (s *MemoryStore) Get(ctx context.Context, orgID, userID, conversationID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, err := s.lookup(orgID, userID, conversationID)
	if err != nil {
		return nil, err
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) List(ctx context.Context, orgID, userID string) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Summary
	for _, conv := range s.convs {
		if conv.OrgID != orgID || conv.UserID != userID {
			continue
		}
		out = append(out, Summary{ID: conv.ID, Title: conv.Title, CreatedAt: conv.CreatedAt, MessageCount: len(conv.Messages)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) AppendUserMessage(ctx context.Context, orgID, userID, conversationID, content string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.lookup(orgID, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.ProcessingState == StateRunning {
		return nil, councilerr.ErrConflict
	}
	conv.Messages = append(conv.Messages, Message{Role: "user", Content: content})
	conv.ProcessingState = StateRunning
	conv.UpdatedAt = nowUTC()
	return cloneConversation(conv), nil
}

func (s *MemoryStore) AppendAssistantMessage(ctx context.Context, orgID, userID, conversationID string, msg Message) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.lookup(orgID, userID, conversationID)
	if err != nil {
		return nil, err
	}
	msg.Role = "assistant"
	conv.Messages = append(conv.Messages, msg)
	conv.ProcessingState = StateIdle
	conv.UpdatedAt = nowUTC()
	return cloneConversation(conv), nil
}

func (s *MemoryStore) ReleaseProcessing(ctx context.Context, orgID, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.lookup(orgID, userID, conversationID)
	if err != nil {
		return err
	}
	conv.ProcessingState = StateIdle
	return nil
}

func (s *MemoryStore) SetTitle(ctx context.Context, orgID, userID, conversationID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, err := s.lookup(orgID, userID, conversationID)
	if err != nil {
		return err
	}
	conv.Title = title
	conv.UpdatedAt = nowUTC()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, orgID, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.lookup(orgID, userID, conversationID); err != nil {
		return err
	}
	delete(s.convs, conversationID)
	return nil
}

func (s *MemoryStore) DeleteAllForUser(ctx context.Context, orgID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, conv := range s.convs {
		if conv.OrgID == orgID && conv.UserID == userID {
			delete(s.convs, id)
			deleted++
		}
	}
	return deleted, nil
}

func cloneConversation(conv *Conversation) *Conversation {
	cp := *conv
	cp.Messages = append([]Message(nil), conv.Messages...)
	return &cp
}
