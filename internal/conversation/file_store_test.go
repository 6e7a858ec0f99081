package conversation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"council/internal/councilerr"
)

func TestFileStore_RoundTripsThroughDisk(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	conv, err := store.Create(ctx, "acme", "user-1")
	require.NoError(t, err)

	_, err = store.AppendUserMessage(ctx, "acme", "user-1", conv.ID, "hello")
	require.NoError(t, err)
	require.NoError(t, store.SetTitle(ctx, "acme", "user-1", conv.ID, "Greeting"))

	fetched, err := store.Get(ctx, "acme", "user-1", conv.ID)
	require.NoError(t, err)
	require.Equal(t, "Greeting", fetched.Title)
	require.Len(t, fetched.Messages, 1)

	list, err := store.List(ctx, "acme", "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Greeting", list[0].Title)

	require.NoError(t, store.Delete(ctx, "acme", "user-1", conv.ID))
	_, err = store.Get(ctx, "acme", "user-1", conv.ID)
	require.ErrorIs(t, err, councilerr.ErrNotFound)
}

func TestFileStore_ForeignUserForbidden(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	conv, err := store.Create(ctx, "acme", "owner")
	require.NoError(t, err)

	_, err = store.Get(ctx, "acme", "intruder", conv.ID)
	require.ErrorIs(t, err, councilerr.ErrForbidden)

	err = store.Delete(ctx, "acme", "intruder", conv.ID)
	require.ErrorIs(t, err, councilerr.ErrForbidden)
}

func TestFileStore_DeleteAllForUser(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := store.Create(ctx, "acme", "user-1")
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, "acme", "user-2")
	require.NoError(t, err)

	n, err := store.DeleteAllForUser(ctx, "acme", "user-1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	list, err := store.List(ctx, "acme", "user-2")
	require.NoError(t, err)
	require.Len(t, list, 1)
}
