package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/gridlock-dev/gridlock/internal/store"
)

const testGrid = "#####\n#P !#\n#####"

type testClient struct {
	t      *testing.T
	server *httptest.Server
	http   *http.Client
	csrf   string
}

func newTestServer(t *testing.T) *testClient {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	server := httptest.NewServer(NewServer(db, log, time.Hour).Routes())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:      t,
		server: server,
		http:   &http.Client{Jar: jar},
	}
}

func (c *testClient) do(method, path string, body interface{}) *http.Response {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrf != "" {
		req.Header.Set("X-CSRF-Token", c.csrf)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (c *testClient) register(username string) SessionResponse {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/v1/register", CredentialsRequest{
		Username: username,
		Password: "hunter2hunter2",
	})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	session := decodeBody[SessionResponse](c.t, resp)
	c.csrf = session.CSRFToken
	return session
}

func (c *testClient) createLevel(title, grid string) store.Level {
	c.t.Helper()
	resp := c.do(http.MethodPost, "/api/v1/levels", LevelRequest{Title: title, Grid: grid})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)
	return decodeBody[store.Level](c.t, resp)
}

func TestHealth(t *testing.T) {
	c := newTestServer(t)
	resp := c.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, EngineVersion, resp.Header.Get("X-Engine-Version"))
	health := decodeBody[HealthResponse](t, resp)
	require.Equal(t, "healthy", health.Status)
}

func TestRegisterValidation(t *testing.T) {
	c := newTestServer(t)

	resp := c.do(http.MethodPost, "/api/v1/register", CredentialsRequest{Username: "x", Password: "longenough"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/api/v1/register", CredentialsRequest{Username: "alice", Password: "short"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	c.register("alice")
	resp = c.do(http.MethodPost, "/api/v1/register", CredentialsRequest{Username: "alice", Password: "hunter2hunter2"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginFlow(t *testing.T) {
	c := newTestServer(t)
	c.register("alice")

	resp := c.do(http.MethodPost, "/api/v1/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// Wrong password and unknown user fail identically.
	resp = c.do(http.MethodPost, "/api/v1/login", CredentialsRequest{Username: "alice", Password: "wrongwrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
	resp = c.do(http.MethodPost, "/api/v1/login", CredentialsRequest{Username: "nobody", Password: "wrongwrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/api/v1/login", CredentialsRequest{Username: "alice", Password: "hunter2hunter2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := decodeBody[SessionResponse](t, resp)
	c.csrf = session.CSRFToken

	resp = c.do(http.MethodGet, "/api/v1/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decodeBody[SessionResponse](t, resp)
	require.Equal(t, "alice", me.Username)
}

func TestCSRFRequired(t *testing.T) {
	c := newTestServer(t)
	c.register("alice")

	c.csrf = ""
	resp := c.do(http.MethodPost, "/api/v1/levels", LevelRequest{Title: "L", Grid: testGrid})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	apiErr := decodeBody[APIError](t, resp)
	require.Equal(t, ErrTypeCSRF, apiErr.Type)
}

func TestLevelLifecycle(t *testing.T) {
	c := newTestServer(t)
	c.register("alice")

	resp := c.do(http.MethodPost, "/api/v1/levels", LevelRequest{Title: "Bad", Grid: "##\n##"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	level := c.createLevel("First Steps", testGrid)
	require.False(t, level.Published)

	// Drafts are hidden from the public list and from score submission.
	resp = c.do(http.MethodGet, "/api/v1/levels", nil)
	list := decodeBody[store.LevelsList](t, resp)
	require.Equal(t, 0, list.TotalCount)

	resp = c.do(http.MethodPost, "/api/v1/levels/"+level.ID+"/scores", ScoreRequest{Replay: "rr"})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// A proof replay that does not clear the level blocks publishing.
	resp = c.do(http.MethodPost, "/api/v1/levels/"+level.ID+"/publish", PublishRequest{Replay: "ll"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = c.do(http.MethodPost, "/api/v1/levels/"+level.ID+"/publish", PublishRequest{Replay: "rr"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	published := decodeBody[store.Level](t, resp)
	require.True(t, published.Published)
	require.Equal(t, 2, published.ParMoves)

	resp = c.do(http.MethodGet, "/api/v1/levels", nil)
	list = decodeBody[store.LevelsList](t, resp)
	require.Equal(t, 1, list.TotalCount)

	// Published levels are frozen.
	resp = c.do(http.MethodPut, "/api/v1/levels/"+level.ID, LevelRequest{Title: "Edit", Grid: testGrid})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestLevelOwnership(t *testing.T) {
	c := newTestServer(t)
	c.register("alice")
	level := c.createLevel("Private", testGrid)

	other := newTestClientSharing(t, c)
	other.register("bob")

	resp := other.do(http.MethodGet, "/api/v1/levels/"+level.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = other.do(http.MethodDelete, "/api/v1/levels/"+level.ID, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

// newTestClientSharing returns a second client (own cookie jar, own CSRF)
// against the same server.
func newTestClientSharing(t *testing.T, c *testClient) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{t: t, server: c.server, http: &http.Client{Jar: jar}}
}

func TestScoreSubmission(t *testing.T) {
	c := newTestServer(t)
	c.register("alice")
	level := c.createLevel("First Steps", testGrid)
	resp := c.do(http.MethodPost, "/api/v1/levels/"+level.ID+"/publish", PublishRequest{Replay: "rr"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	bob := newTestClientSharing(t, c)
	bob.register("bob")

	// Malformed replay is rejected before simulation.
	resp = bob.do(http.MethodPost, "/api/v1/levels/"+level.ID+"/scores", ScoreRequest{Replay: "left-right"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// A replay that does not clear is rejected, not stored.
	resp = bob.do(http.MethodPost, "/api/v1/levels/"+level.ID+"/scores", ScoreRequest{Replay: "l"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	apiErr := decodeBody[APIError](t, resp)
	require.Equal(t, ErrTypeVerification, apiErr.Type)

	// A wasteful but valid clear is stored with the recomputed move count.
	resp = bob.do(http.MethodPost, "/api/v1/levels/"+level.ID+"/scores", ScoreRequest{Replay: "uurr"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	score := decodeBody[ScoreResponse](t, resp)
	require.True(t, score.OK)
	require.Equal(t, 4, score.Moves)
	require.True(t, score.Improved)

	// The optimal clear improves it.
	resp = bob.do(http.MethodPost, "/api/v1/levels/"+level.ID+"/scores", ScoreRequest{Replay: "rr"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	score = decodeBody[ScoreResponse](t, resp)
	require.Equal(t, 2, score.Moves)
	require.True(t, score.Improved)

	// Resubmitting the same result changes nothing.
	resp = bob.do(http.MethodPost, "/api/v1/levels/"+level.ID+"/scores", ScoreRequest{Replay: "rr"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	score = decodeBody[ScoreResponse](t, resp)
	require.False(t, score.Improved)

	resp = c.do(http.MethodGet, "/api/v1/levels/"+level.ID+"/scores", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := decodeBody[LeaderboardResponse](t, resp)
	require.Len(t, board.Entries, 1)
	require.Equal(t, "bob", board.Entries[0].Username)
	require.Equal(t, 2, board.Entries[0].Moves)
}

func TestShareImage(t *testing.T) {
	c := newTestServer(t)
	c.register("alice")
	level := c.createLevel("First Steps", testGrid)

	// Drafts have no share card.
	resp := c.do(http.MethodGet, "/share/"+level.ID+".png", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	pub := c.do(http.MethodPost, "/api/v1/levels/"+level.ID+"/publish", PublishRequest{Replay: "rr"})
	require.Equal(t, http.StatusOK, pub.StatusCode)
	pub.Body.Close()

	resp = c.do(http.MethodGet, "/share/"+level.ID+".png", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.NotEmpty(t, data)
}
