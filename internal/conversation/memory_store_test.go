package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"council/internal/councilerr"
)

func TestMemoryStore_CreateAppendAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	conv, err := store.Create(ctx, "acme", "user-1")
	require.NoError(t, err)
	require.Equal(t, "New Conversation", conv.Title)
	require.Empty(t, conv.Messages)

	_, err = store.AppendUserMessage(ctx, "acme", "user-1", conv.ID, "what should we ship next quarter?")
	require.NoError(t, err)

	updated, err := store.AppendAssistantMessage(ctx, "acme", "user-1", conv.ID, Message{
		Stage3: &Stage3Envelope{Model: "openai/gpt-4o", Response: "Ship the council feature."},
	})
	require.NoError(t, err)
	require.Len(t, updated.Messages, 2)
	require.Equal(t, "assistant", updated.Messages[1].Role)

	fetched, err := store.Get(ctx, "acme", "user-1", conv.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Messages, 2)
}

func TestMemoryStore_ForeignUserIsForbidden(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	conv, err := store.Create(ctx, "acme", "owner")
	require.NoError(t, err)

	_, err = store.Get(ctx, "acme", "intruder", conv.ID)
	require.ErrorIs(t, err, councilerr.ErrForbidden)
}

func TestMemoryStore_UnknownConversationNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "acme", "user-1", "does-not-exist")
	require.ErrorIs(t, err, councilerr.ErrNotFound)
}

func TestMemoryStore_ListScopedByUserAndOrg(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a, err := store.Create(ctx, "acme", "user-1")
	require.NoError(t, err)
	_, err = store.Create(ctx, "acme", "user-2")
	require.NoError(t, err)
	_, err = store.Create(ctx, "other-org", "user-1")
	require.NoError(t, err)

	list, err := store.List(ctx, "acme", "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, a.ID, list[0].ID)
}

func TestMemoryStore_DeleteAllForUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Create(ctx, "acme", "user-1")
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, "acme", "user-2")
	require.NoError(t, err)

	n, err := store.DeleteAllForUser(ctx, "acme", "user-1")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	list, err := store.List(ctx, "acme", "user-1")
	require.NoError(t, err)
	require.Empty(t, list)

	remaining, err := store.List(ctx, "acme", "user-2")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
}
