package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/showrunner/showrunner/internal/auth"
	"github.com/showrunner/showrunner/internal/catalog"
	"github.com/showrunner/showrunner/internal/config"
	"github.com/showrunner/showrunner/internal/mirror"
	syncengine "github.com/showrunner/showrunner/internal/sync"
	"github.com/showrunner/showrunner/internal/testutil"
	"github.com/showrunner/showrunner/internal/watchlist"
	"github.com/showrunner/showrunner/internal/websocket"
)

// newTestServer wires a server against a real database and an
// unconfigured catalog client, so every remote fetch fails fast and
// tests exercise the local paths.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	cfg := config.Default()
	catalogClient := catalog.New(cfg.Catalog, tdb.Logger)
	mirrorStore := mirror.NewStore(tdb.Conn, tdb.Logger)
	configStore := mirror.NewConfigStore(tdb.Conn, tdb.Logger)
	watchlistStore := watchlist.NewStore(tdb.Conn, tdb.Logger)

	authService, err := auth.NewService(watchlistStore, "test-secret", tdb.Logger)
	require.NoError(t, err)

	hub := websocket.NewHub(tdb.Logger)
	go hub.Run()

	engine := syncengine.New(catalogClient, mirrorStore, configStore, watchlistStore, hub, cfg.Catalog.Language, tdb.Logger)

	server := NewServer(engine, authService, watchlistStore, configStore, catalogClient, nil, hub, cfg, tdb.Logger)

	ts := httptest.NewServer(server.Echo())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func signupUser(t *testing.T, ts *httptest.Server, username string) string {
	t.Helper()

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/signup", "", map[string]string{
		"username": username,
		"password": "hunter2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body AuthResponse
	decodeBody(t, resp, &body)
	require.NotEmpty(t, body.Token)
	return body.Token
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ShowsRequireAuth(t *testing.T) {
	ts := newTestServer(t)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/shows", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/shows", "garbage-token", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_SignupLoginAndProfile(t *testing.T) {
	ts := newTestServer(t)
	token := signupUser(t, ts, "peter")

	// Duplicate username conflicts.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/signup", "", map[string]string{
		"username": "peter", "password": "other",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Login with the right password works.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"username": "peter", "password": "hunter2",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Wrong password is unauthorized.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/auth/login", "", map[string]string{
		"username": "peter", "password": "wrong",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Profile roundtrip.
	resp = doJSON(t, http.MethodPut, ts.URL+"/api/v1/auth/profile", token, map[string]string{
		"firstName": "Peter",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated watchlist.User
	decodeBody(t, resp, &updated)
	require.NotNil(t, updated.FirstName)
	assert.Equal(t, "Peter", *updated.FirstName)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me watchlist.User
	decodeBody(t, resp, &me)
	assert.Equal(t, "peter", me.Username)
}

func TestServer_WatchlistFlow(t *testing.T) {
	ts := newTestServer(t)
	token := signupUser(t, ts, "peter")

	// Empty watchlist resolves to an empty result.
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/shows", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var resolved syncengine.ResolvedList
	decodeBody(t, resp, &resolved)
	assert.Empty(t, resolved.Shows)

	// Adding succeeds even though the catalog is unreachable.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/shows/1396", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// The entry exists, so its flags can be set.
	resp = doJSON(t, http.MethodPut, ts.URL+"/api/v1/shows/1396/watched", token, FlagRequest{Value: true})
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The unmirrored, unfetchable show surfaces as a failed id.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/shows", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &resolved)
	assert.Empty(t, resolved.Shows)
	assert.Equal(t, []int{1396}, resolved.FailedIDs)

	// Flags on a show that was never added are a 404.
	resp = doJSON(t, http.MethodPut, ts.URL+"/api/v1/shows/999/favorite", token, FlagRequest{Value: true})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Remove the entry.
	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/shows/1396", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Invalid ids are rejected before hitting the engine.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/shows/abc", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_ConfigurationNotFetched(t *testing.T) {
	ts := newTestServer(t)
	token := signupUser(t, ts, "peter")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/configuration", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_SearchRequiresQuery(t *testing.T) {
	ts := newTestServer(t)
	token := signupUser(t, ts, "peter")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/search", token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/v1/search?query=breaking&page=0", ts.URL), token, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
