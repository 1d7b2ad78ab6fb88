package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showrunner/showrunner/internal/catalog"
	"github.com/showrunner/showrunner/internal/mirror"
	"github.com/showrunner/showrunner/internal/testutil"
	"github.com/showrunner/showrunner/internal/watchlist"
)

// fakeCatalog is an in-memory catalog remote. Every fetch is recorded
// so tests can assert exactly which network calls happened.
type fakeCatalog struct {
	mu      gosync.Mutex
	fetched []int
	names   map[int]string
	failIDs map[int]bool
	pages   []*catalog.ChangedShowPage
	pageErr error
	conf    *catalog.RemoteConfiguration
	confErr error
	done    chan int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		names:   make(map[int]string),
		failIDs: make(map[int]bool),
	}
}

func (f *fakeCatalog) GetShowDetailsWithWatchProviders(_ context.Context, id int, _ string) (*catalog.ShowDetailsWithProviders, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	fail := f.failIDs[id]
	name := f.names[id]
	f.mu.Unlock()

	if f.done != nil {
		defer func() { f.done <- id }()
	}
	if fail {
		return nil, fmt.Errorf("remote rejected show %d", id)
	}
	if name == "" {
		name = fmt.Sprintf("Show %d", id)
	}
	return &catalog.ShowDetailsWithProviders{
		ShowDetails: catalog.ShowDetails{ID: id, Name: name, Status: "Returning Series"},
	}, nil
}

func (f *fakeCatalog) ListAllChangedShowIDs(_ context.Context, _ catalog.ChangesOptions, onPage catalog.PageFunc) error {
	if f.pageErr != nil {
		return f.pageErr
	}
	for _, page := range f.pages {
		onPage(page, nil)
	}
	return nil
}

func (f *fakeCatalog) GetConfiguration(context.Context) (*catalog.RemoteConfiguration, error) {
	if f.confErr != nil {
		return nil, f.confErr
	}
	return f.conf, nil
}

func (f *fakeCatalog) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func (f *fakeCatalog) fetchedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.fetched...)
}

type engineFixture struct {
	engine     *Engine
	remote     *fakeCatalog
	mirror     *mirror.Store
	configs    *mirror.ConfigStore
	watchlists *watchlist.Store
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	remote := newFakeCatalog()
	mirrorStore := mirror.NewStore(tdb.Conn, tdb.Logger)
	configStore := mirror.NewConfigStore(tdb.Conn, tdb.Logger)
	watchlistStore := watchlist.NewStore(tdb.Conn, tdb.Logger)

	return &engineFixture{
		engine:     New(remote, mirrorStore, configStore, watchlistStore, nil, "en-US", tdb.Logger),
		remote:     remote,
		mirror:     mirrorStore,
		configs:    configStore,
		watchlists: watchlistStore,
	}
}

func (f *engineFixture) newUser(t *testing.T, username string) *watchlist.User {
	t.Helper()
	user, err := f.watchlists.CreateUser(context.Background(), username, "hash")
	require.NoError(t, err)
	return user
}

func (f *engineFixture) addEntry(t *testing.T, userID string, showID int) {
	t.Helper()
	require.NoError(t, f.watchlists.AddEntry(context.Background(), userID, showID))
}

func (f *engineFixture) mirrorShow(t *testing.T, id int, name string) {
	t.Helper()
	_, err := f.mirror.Upsert(context.Background(), &mirror.CatalogRecord{ShowID: id, Name: name})
	require.NoError(t, err)
}

func TestEngine_ResolveUserShows_EmptyWatchlistNoNetwork(t *testing.T) {
	f := newEngineFixture(t)
	user := f.newUser(t, "peter")

	result, err := f.engine.ResolveUserShows(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Empty(t, result.Shows)
	assert.Empty(t, result.FailedIDs)
	assert.Zero(t, f.remote.fetchCount(), "empty watchlist must not touch the network")
}

func TestEngine_ResolveUserShows_FetchesOnlyMissing(t *testing.T) {
	f := newEngineFixture(t)
	user := f.newUser(t, "peter")

	f.mirrorShow(t, 10, "Andor")
	f.remote.names[20] = "Breaking Bad"
	f.addEntry(t, user.ID, 10)
	f.addEntry(t, user.ID, 20)

	result, err := f.engine.ResolveUserShows(context.Background(), user.ID)
	require.NoError(t, err)

	assert.Equal(t, []int{20}, f.remote.fetchedIDs(), "only the unmirrored show is fetched")
	require.Len(t, result.Shows, 2)
	assert.Empty(t, result.FailedIDs)

	// Title ascending.
	assert.Equal(t, "Andor", result.Shows[0].Name)
	assert.Equal(t, "Breaking Bad", result.Shows[1].Name)

	// Every returned show carries its watchlist entry.
	for _, show := range result.Shows {
		require.NotNil(t, show.UserShow)
		assert.Equal(t, show.ShowID, show.UserShow.ShowID)
	}

	// The fetched show is now mirrored; resolving again stays local.
	stored, err := f.mirror.FindByID(context.Background(), 20)
	require.NoError(t, err)
	require.NotNil(t, stored)

	_, err = f.engine.ResolveUserShows(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.remote.fetchCount(), "second resolve must not re-fetch")
}

func TestEngine_ResolveUserShows_PartialFailure(t *testing.T) {
	f := newEngineFixture(t)
	user := f.newUser(t, "peter")

	f.remote.names[1] = "Dark"
	f.remote.failIDs[2] = true
	f.remote.names[3] = "Severance"
	f.addEntry(t, user.ID, 1)
	f.addEntry(t, user.ID, 2)
	f.addEntry(t, user.ID, 3)

	result, err := f.engine.ResolveUserShows(context.Background(), user.ID)
	require.NoError(t, err, "one failed fetch does not fail the resolve")

	require.Len(t, result.Shows, 2)
	assert.Equal(t, []int{2}, result.FailedIDs)
	assert.Equal(t, "Dark", result.Shows[0].Name)
	assert.Equal(t, "Severance", result.Shows[1].Name)
}

func TestEngine_ResolveUserShows_EqualTitlesKeepIDOrder(t *testing.T) {
	f := newEngineFixture(t)
	user := f.newUser(t, "peter")

	f.mirrorShow(t, 7, "Twin")
	f.mirrorShow(t, 3, "Twin")
	f.addEntry(t, user.ID, 7)
	f.addEntry(t, user.ID, 3)

	result, err := f.engine.ResolveUserShows(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, result.Shows, 2)

	// Batch reads come back id-ascending and the sort is stable.
	assert.Equal(t, 3, result.Shows[0].ShowID)
	assert.Equal(t, 7, result.Shows[1].ShowID)
}

func TestEngine_AddShowToUserList(t *testing.T) {
	f := newEngineFixture(t)
	user := f.newUser(t, "peter")
	f.remote.done = make(chan int, 1)
	f.remote.names[1396] = "Breaking Bad"

	require.NoError(t, f.engine.AddShowToUserList(context.Background(), user.ID, 1396))

	entries, err := f.watchlists.Entries(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1396, entries[0].ShowID)

	// The metadata fetch runs in the background; wait for it to land.
	select {
	case <-f.remote.done:
	case <-time.After(5 * time.Second):
		t.Fatal("background mirror fetch never ran")
	}

	require.Eventually(t, func() bool {
		record, err := f.mirror.FindByID(context.Background(), 1396)
		return err == nil && record != nil
	}, 5*time.Second, 10*time.Millisecond, "show should be mirrored after the background fetch")
}

func TestEngine_AddShowToUserList_MirrorFailureDoesNotFailAdd(t *testing.T) {
	f := newEngineFixture(t)
	user := f.newUser(t, "peter")
	f.remote.done = make(chan int, 1)
	f.remote.failIDs[42] = true

	require.NoError(t, f.engine.AddShowToUserList(context.Background(), user.ID, 42))

	select {
	case <-f.remote.done:
	case <-time.After(5 * time.Second):
		t.Fatal("background mirror fetch never ran")
	}

	entries, err := f.watchlists.Entries(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "entry stays even though the fetch failed")
}

func TestEngine_DeleteUserShow_GarbageCollectsWhenUnreferenced(t *testing.T) {
	f := newEngineFixture(t)
	user := f.newUser(t, "peter")

	f.mirrorShow(t, 100, "The Wire")
	f.addEntry(t, user.ID, 100)

	require.NoError(t, f.engine.DeleteUserShow(context.Background(), user.ID, 100))

	record, err := f.mirror.FindByID(context.Background(), 100)
	require.NoError(t, err)
	assert.Nil(t, record, "sole-owner delete removes the mirrored record")
}

func TestEngine_DeleteUserShow_KeepsRecordWithOtherOwners(t *testing.T) {
	f := newEngineFixture(t)
	alice := f.newUser(t, "alice")
	bob := f.newUser(t, "bob")

	f.mirrorShow(t, 100, "The Wire")
	f.addEntry(t, alice.ID, 100)
	f.addEntry(t, bob.ID, 100)

	require.NoError(t, f.engine.DeleteUserShow(context.Background(), alice.ID, 100))

	record, err := f.mirror.FindByID(context.Background(), 100)
	require.NoError(t, err)
	assert.NotNil(t, record, "record stays while another watchlist references it")

	entries, err := f.watchlists.Entries(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "other user's entry is untouched")
}

func TestEngine_RetrieveShow(t *testing.T) {
	f := newEngineFixture(t)

	f.mirrorShow(t, 5, "Chernobyl")

	record, err := f.engine.RetrieveShow(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Chernobyl", record.Name)
	assert.Zero(t, f.remote.fetchCount(), "mirrored hit stays local")

	f.remote.names[6] = "Fargo"
	record, err = f.engine.RetrieveShow(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, "Fargo", record.Name)
	assert.Equal(t, []int{6}, f.remote.fetchedIDs())

	stored, err := f.mirror.FindByID(context.Background(), 6)
	require.NoError(t, err)
	assert.NotNil(t, stored, "miss is mirrored on retrieval")
}

func TestEngine_RefreshChangedShows_OnlyMirroredIDs(t *testing.T) {
	f := newEngineFixture(t)

	f.mirrorShow(t, 5, "Stale Five")
	f.mirrorShow(t, 6, "Stale Six")
	f.remote.names[6] = "Fresh Six"
	f.remote.pages = []*catalog.ChangedShowPage{
		{Page: 1, TotalPages: 1, Results: []catalog.ChangedShow{{ID: 6}, {ID: 7}}},
	}

	require.NoError(t, f.engine.RefreshChangedShows(context.Background()))

	assert.Equal(t, []int{6}, f.remote.fetchedIDs(), "only the changed AND mirrored id is refreshed")

	record, err := f.mirror.FindByID(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, "Fresh Six", record.Name)

	record, err = f.mirror.FindByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Stale Five", record.Name, "unchanged show is left alone")

	record, err = f.mirror.FindByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, record, "changed id nobody mirrors is ignored")
}

func TestEngine_RefreshChangedShows_EmptyMirrorSkipsFeed(t *testing.T) {
	f := newEngineFixture(t)
	f.remote.pageErr = errors.New("feed should not be read")

	require.NoError(t, f.engine.RefreshChangedShows(context.Background()))
	assert.Zero(t, f.remote.fetchCount())
}

func TestEngine_RefreshChangedShows_FailedRefreshDoesNotAbortSweep(t *testing.T) {
	f := newEngineFixture(t)

	f.mirrorShow(t, 1, "One")
	f.mirrorShow(t, 2, "Two")
	f.remote.failIDs[1] = true
	f.remote.names[2] = "Two Refreshed"
	f.remote.pages = []*catalog.ChangedShowPage{
		{Page: 1, TotalPages: 1, Results: []catalog.ChangedShow{{ID: 1}, {ID: 2}}},
	}

	require.NoError(t, f.engine.RefreshChangedShows(context.Background()))

	record, err := f.mirror.FindByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Two Refreshed", record.Name)
}

func TestEngine_RefreshConfiguration(t *testing.T) {
	f := newEngineFixture(t)

	f.remote.conf = &catalog.RemoteConfiguration{
		Images: catalog.ImageConfiguration{SecureBaseURL: "https://img.example/"},
	}
	require.NoError(t, f.engine.RefreshConfiguration(context.Background()))

	conf, err := f.configs.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/", conf.Images.SecureBaseURL)

	// A failed refresh keeps the previous record in place.
	f.remote.confErr = errors.New("remote down")
	require.Error(t, f.engine.RefreshConfiguration(context.Background()))

	conf, err = f.configs.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/", conf.Images.SecureBaseURL)
}
