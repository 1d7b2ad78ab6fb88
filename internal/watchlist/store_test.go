package watchlist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showrunner/showrunner/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, *testutil.TestDB) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)
	return NewStore(tdb.Conn, tdb.Logger), tdb
}

func TestStore_CreateUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "peter", "hash")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "peter", user.Username)
	assert.False(t, user.CreatedAt.IsZero())

	// Duplicate usernames are rejected.
	_, err = store.CreateUser(ctx, "peter", "otherhash")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestStore_GetUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateUser(ctx, "peter", "hash")
	require.NoError(t, err)

	byID, err := store.GetUserByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "peter", byID.Username)
	assert.Nil(t, byID.Email)

	byName, err := store.GetUserByUsername(ctx, "peter")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	_, err = store.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStore_UpdateProfile(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "peter", "hash")
	require.NoError(t, err)

	first := "Peter"
	email := "peter@example.com"
	updated, err := store.UpdateProfile(ctx, user.ID, ProfileUpdate{
		FirstName: &first,
		Email:     &email,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Peter", *updated.FirstName)
	require.NotNil(t, updated.Email)
	assert.Equal(t, "peter@example.com", *updated.Email)
	assert.Nil(t, updated.LastName, "untouched field stays unset")

	// Clearing one field leaves the others alone.
	empty := ""
	updated, err = store.UpdateProfile(ctx, user.ID, ProfileUpdate{Email: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.Email, "cleared field should be removed")
	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Peter", *updated.FirstName)

	_, err = store.UpdateProfile(ctx, "missing", ProfileUpdate{FirstName: &first})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStore_AddEntry_DuplicateIsNoOp(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "peter", "hash")
	require.NoError(t, err)

	require.NoError(t, store.AddEntry(ctx, user.ID, 1396))
	require.NoError(t, store.AddEntry(ctx, user.ID, 1396), "duplicate add must succeed as a no-op")

	entries, err := store.Entries(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1, "exactly one entry per show id per user")
	assert.Equal(t, 1396, entries[0].ShowID)
	assert.False(t, entries[0].HasWatched)
	assert.False(t, entries[0].Favorite)
}

func TestStore_RemoveEntry(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "peter", "hash")
	require.NoError(t, err)

	require.NoError(t, store.AddEntry(ctx, user.ID, 1396))
	require.NoError(t, store.RemoveEntry(ctx, user.ID, 1396))

	entries, err := store.Entries(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Removing an absent entry is a no-op.
	assert.NoError(t, store.RemoveEntry(ctx, user.ID, 1396))
}

func TestStore_SetFlags(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	user, err := store.CreateUser(ctx, "peter", "hash")
	require.NoError(t, err)
	require.NoError(t, store.AddEntry(ctx, user.ID, 1396))

	require.NoError(t, store.SetWatched(ctx, user.ID, 1396, true))
	require.NoError(t, store.SetFavorite(ctx, user.ID, 1396, true))
	require.NoError(t, store.SetRating(ctx, user.ID, 1396, "9/10"))

	entries, err := store.Entries(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].HasWatched)
	assert.True(t, entries[0].Favorite)
	assert.Equal(t, "9/10", entries[0].Rating)

	// Zero matched rows surfaces as ErrEntryNotFound.
	err = store.SetWatched(ctx, user.ID, 999, true)
	assert.True(t, errors.Is(err, ErrEntryNotFound))
	err = store.SetFavorite(ctx, "missing-user", 1396, true)
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}

func TestStore_ListOtherOwners(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	alice, err := store.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, "bob", "hash")
	require.NoError(t, err)

	require.NoError(t, store.AddEntry(ctx, alice.ID, 1396))
	require.NoError(t, store.AddEntry(ctx, bob.ID, 1396))
	require.NoError(t, store.AddEntry(ctx, alice.ID, 60059))

	owners, err := store.ListOtherOwners(ctx, 1396, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, owners)

	owners, err = store.ListOtherOwners(ctx, 60059, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, owners, "sole owner excluded leaves nobody")
}
