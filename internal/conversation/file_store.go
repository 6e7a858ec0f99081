package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"council/internal/councilerr"
)

var _ Store = (*FileStore)(nil)

// FileStore persists each conversation as its own JSON file under
// <dataDir>/<orgID>/conversations/<conversationID>.json, one tenant
// directory per org. Writes are atomic (write-tmp, rename) and a per-store
// mutex serializes access, matching the original single-process deployment
// this protocol was designed for.
type FileStore struct {
	dataDir string
	mu      sync.Mutex
}

// NewFileStore returns a Store rooted at dataDir. The directory is created
// lazily on first write.
func NewFileStore(dataDir string) *FileStore {
	return &FileStore{dataDir: dataDir}
}

func (s *FileStore) orgDir(orgID string) string {
	return filepath.Join(s.dataDir, orgID, "conversations")
}

func (s *FileStore) path(orgID, conversationID string) string {
	return filepath.Join(s.orgDir(orgID), conversationID+".json")
}

func (s *FileStore) readLocked(orgID, conversationID string) (*Conversation, error) {
	b, err := os.ReadFile(s.path(orgID, conversationID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, councilerr.ErrNotFound
		}
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(b, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", conversationID, err)
	}
	return &conv, nil
}

func (s *FileStore) writeLocked(conv *Conversation) error {
	dir := s.orgDir(conv.OrgID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}
	path := s.path(conv.OrgID, conv.ID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) Create(ctx context.Context, orgID, userID string) (*Conversation, error) {
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
	if err := s.writeLocked(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *FileStore) Get(ctx context.Context, orgID, userID, conversationID string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.readLocked(orgID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, councilerr.ErrForbidden
	}
	return conv, nil
}

func (s *FileStore) List(ctx context.Context, orgID, userID string) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.orgDir(orgID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Summary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		conv, err := s.readLocked(orgID, id)
		if err != nil {
			// Skip malformed or concurrently-deleted files rather than
			// failing the whole listing.
			continue
		}
		if conv.UserID != userID {
			continue
		}
		out = append(out, Summary{
			ID:           conv.ID,
			Title:        conv.Title,
			CreatedAt:    conv.CreatedAt,
			MessageCount: len(conv.Messages),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *FileStore) AppendUserMessage(ctx context.Context, orgID, userID, conversationID, content string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.readLocked(orgID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, councilerr.ErrForbidden
	}
	if conv.ProcessingState == StateRunning {
		return nil, councilerr.ErrConflict
	}
	conv.Messages = append(conv.Messages, Message{Role: "user", Content: content})
	conv.ProcessingState = StateRunning
	conv.UpdatedAt = nowUTC()
	if err := s.writeLocked(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *FileStore) AppendAssistantMessage(ctx context.Context, orgID, userID, conversationID string, msg Message) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.readLocked(orgID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, councilerr.ErrForbidden
	}
	msg.Role = "assistant"
	conv.Messages = append(conv.Messages, msg)
	conv.ProcessingState = StateIdle
	conv.UpdatedAt = nowUTC()
	if err := s.writeLocked(conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *FileStore) ReleaseProcessing(ctx context.Context, orgID, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.readLocked(orgID, conversationID)
	if err != nil {
		return err
	}
	if conv.UserID != userID {
		return councilerr.ErrForbidden
	}
	conv.ProcessingState = StateIdle
	return s.writeLocked(conv)
}

func (s *FileStore) SetTitle(ctx context.Context, orgID, userID, conversationID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.readLocked(orgID, conversationID)
	if err != nil {
		return err
	}
	if conv.UserID != userID {
		return councilerr.ErrForbidden
	}
	conv.Title = title
	conv.UpdatedAt = nowUTC()
	return s.writeLocked(conv)
}

func (s *FileStore) Delete(ctx context.Context, orgID, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.readLocked(orgID, conversationID)
	if err != nil {
		return err
	}
	if conv.UserID != userID {
		return councilerr.ErrForbidden
	}
	if err := os.Remove(s.path(orgID, conversationID)); err != nil {
		if os.IsNotExist(err) {
			return councilerr.ErrNotFound
		}
		return err
	}
	return nil
}

func (s *FileStore) DeleteAllForUser(ctx context.Context, orgID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.orgDir(orgID))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	deleted := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		conv, err := s.readLocked(orgID, id)
		if err != nil {
			continue
		}
		if conv.UserID != userID {
			continue
		}
		if err := os.Remove(s.path(orgID, id)); err == nil {
			deleted++
		}
	}
	return deleted, nil
}
