package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"council/internal/councilerr"
	"council/internal/objectstore"
)

var _ Store = (*ObjectStore)(nil)

// ObjectStore persists conversations as individual JSON objects in a
// bucket, for deployments that run the council as stateless replicas behind
// shared S3-compatible storage instead of a local filesystem.
type ObjectStore struct {
	bucket objectstore.ObjectStore
}

// NewObjectStore returns a Store backed by an already-constructed bucket
// client, such as one produced by objectstore.NewS3Store.
func NewObjectStore(bucket objectstore.ObjectStore) *ObjectStore {
	return &ObjectStore{bucket: bucket}
}

func (s *ObjectStore) key(orgID, conversationID string) string {
	return fmt.Sprintf("%s/conversations/%s.json", orgID, conversationID)
}

func (s *ObjectStore) prefix(orgID string) string {
	return fmt.Sprintf("%s/conversations/", orgID)
}

func (s *ObjectStore) get(ctx context.Context, orgID, conversationID string) (*Conversation, error) {
	r, _, err := s.bucket.Get(ctx, s.key(orgID, conversationID))
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return nil, councilerr.ErrNotFound
		}
		return nil, err
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var conv Conversation
	if err := json.Unmarshal(b, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", conversationID, err)
	}
	return &conv, nil
}

func (s *ObjectStore) put(ctx context.Context, conv *Conversation) error {
	b, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	_, err = s.bucket.Put(ctx, s.key(conv.OrgID, conv.ID), bytes.NewReader(b), objectstore.PutOptions{
		ContentType: "application/json",
	})
	return err
}

func (s *ObjectStore) Create(ctx context.Context, orgID, userID string) (*Conversation, error) {
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
	if err := s.put(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ObjectStore) Get(ctx context.Context, orgID, userID, conversationID string) (*Conversation, error) {
	conv, err := s.get(ctx, orgID, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, councilerr.ErrForbidden
	}
	return conv, nil
}

func (s *ObjectStore) List(ctx context.Context, orgID, userID string) ([]Summary, error) {
	res, err := s.bucket.List(ctx, objectstore.ListOptions{Prefix: s.prefix(orgID)})
	if err != nil {
		return nil, err
	}

	var out []Summary
	for _, obj := range res.Objects {
		id := strings.TrimSuffix(strings.TrimPrefix(obj.Key, s.prefix(orgID)), ".json")
		if id == "" {
			continue
		}
		conv, err := s.get(ctx, orgID, id)
		if err != nil {
			continue
		}
		if conv.UserID != userID {
			continue
		}
		out = append(out, Summary{ID: conv.ID, Title: conv.Title, CreatedAt: conv.CreatedAt, MessageCount: len(conv.Messages)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *ObjectStore) AppendUserMessage(ctx context.Context, orgID, userID, conversationID, content string) (*Conversation, error) {
	conv, err := s.get(ctx, orgID, conversationID)
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
	if err := s.put(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ObjectStore) AppendAssistantMessage(ctx context.Context, orgID, userID, conversationID string, msg Message) (*Conversation, error) {
	conv, err := s.get(ctx, orgID, conversationID)
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
	if err := s.put(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ObjectStore) ReleaseProcessing(ctx context.Context, orgID, userID, conversationID string) error {
	conv, err := s.get(ctx, orgID, conversationID)
	if err != nil {
		return err
	}
	if conv.UserID != userID {
		return councilerr.ErrForbidden
	}
	conv.ProcessingState = StateIdle
	return s.put(ctx, conv)
}

func (s *ObjectStore) SetTitle(ctx context.Context, orgID, userID, conversationID, title string) error {
	conv, err := s.get(ctx, orgID, conversationID)
	if err != nil {
		return err
	}
	if conv.UserID != userID {
		return councilerr.ErrForbidden
	}
	conv.Title = title
	conv.UpdatedAt = nowUTC()
	return s.put(ctx, conv)
}

func (s *ObjectStore) Delete(ctx context.Context, orgID, userID, conversationID string) error {
	conv, err := s.get(ctx, orgID, conversationID)
	if err != nil {
		return err
	}
	if conv.UserID != userID {
		return councilerr.ErrForbidden
	}
	return s.bucket.Delete(ctx, s.key(orgID, conversationID))
}

func (s *ObjectStore) DeleteAllForUser(ctx context.Context, orgID, userID string) (int, error) {
	res, err := s.bucket.List(ctx, objectstore.ListOptions{Prefix: s.prefix(orgID)})
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, obj := range res.Objects {
		id := strings.TrimSuffix(strings.TrimPrefix(obj.Key, s.prefix(orgID)), ".json")
		if id == "" {
			continue
		}
		conv, err := s.get(ctx, orgID, id)
		if err != nil || conv.UserID != userID {
			continue
		}
		if err := s.bucket.Delete(ctx, obj.Key); err == nil {
			deleted++
		}
	}
	return deleted, nil
}
