package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-shelf/internal/config"
	"github.com/sakif/snippet-shelf/internal/model"
)

func testConfig(jwtSecret string) *config.Config {
	cfg := config.Default()
	cfg.Storage.LocalInMemory = true
	cfg.Storage.RemoteDB = ":memory:"
	cfg.Auth.JWTSecret = jwtSecret
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *http.Client) {
	t.Helper()
	require.NoError(t, cfg.Validate())

	srv, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return ts, &http.Client{Jar: jar}
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type listBody struct {
	Items []model.Snippet `json:"items"`
	Total int             `json:"total"`
}

func TestServer_Health(t *testing.T) {
	ts, c := newTestServer(t, testConfig(""))

	var body map[string]any
	status := doJSON(t, c, http.MethodGet, ts.URL+"/healthz", nil, &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["schema"])
}

func TestServer_AuthDisabledHasNoAuthRoutes(t *testing.T) {
	ts, c := newTestServer(t, testConfig(""))

	status := doJSON(t, c, http.MethodPost, ts.URL+"/auth/login",
		map[string]string{"email": "a@b.co", "password": "password1"}, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// snippets still work, locally
	status = doJSON(t, c, http.MethodPost, ts.URL+"/api/snippets",
		model.Draft{Kind: model.KindText, Title: "hi", Body: "there"}, nil)
	assert.Equal(t, http.StatusCreated, status)
}

// First sign-in moves the anonymous collection to the new account; signing
// out shows the (now empty) local collection again.
func TestServer_SignInMigratesLocalSnippets(t *testing.T) {
	ts, c := newTestServer(t, testConfig("0123456789abcdef0123456789abcdef"))

	for _, title := range []string{"first", "second"} {
		var created model.Snippet
		status := doJSON(t, c, http.MethodPost, ts.URL+"/api/snippets",
			model.Draft{Kind: model.KindSQL, Title: title, Body: "SELECT ${COL} FROM t", Tags: []string{"db"}}, &created)
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, model.LocalOwner, created.OwnerID)
		assert.True(t, created.IsLocal())
	}

	status := doJSON(t, c, http.MethodGet, ts.URL+"/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	var signIn struct {
		User      model.User `json:"user"`
		Migration *struct {
			Total    int      `json:"total"`
			Migrated int      `json:"migrated"`
			Failed   []string `json:"failed"`
		} `json:"migration"`
	}
	status = doJSON(t, c, http.MethodPost, ts.URL+"/auth/register",
		map[string]string{"email": "dev@example.com", "password": "correct-horse"}, &signIn)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, signIn.Migration)
	assert.Equal(t, 2, signIn.Migration.Total)
	assert.Equal(t, 2, signIn.Migration.Migrated)
	assert.Empty(t, signIn.Migration.Failed)

	var me model.User
	require.Equal(t, http.StatusOK, doJSON(t, c, http.MethodGet, ts.URL+"/api/me", nil, &me))
	assert.Equal(t, signIn.User.ID, me.ID)

	var remote listBody
	require.Equal(t, http.StatusOK, doJSON(t, c, http.MethodGet, ts.URL+"/api/snippets", nil, &remote))
	require.Len(t, remote.Items, 2)
	for _, s := range remote.Items {
		assert.Equal(t, me.ID, s.OwnerID)
		assert.False(t, s.IsLocal())
		assert.Equal(t, []string{"COL"}, s.VariablePlaceholders)
	}

	require.Equal(t, http.StatusOK, doJSON(t, c, http.MethodPost, ts.URL+"/auth/logout", nil, nil))

	var anon listBody
	require.Equal(t, http.StatusOK, doJSON(t, c, http.MethodGet, ts.URL+"/api/snippets", nil, &anon))
	assert.Empty(t, anon.Items)

	// Signing in again does not migrate a second time.
	status = doJSON(t, c, http.MethodPost, ts.URL+"/api/snippets",
		model.Draft{Kind: model.KindText, Title: "after", Body: "logout"}, nil)
	require.Equal(t, http.StatusCreated, status)

	signIn.Migration = nil
	status = doJSON(t, c, http.MethodPost, ts.URL+"/auth/login",
		map[string]string{"email": "dev@example.com", "password": "correct-horse"}, &signIn)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, signIn.Migration)

	require.Equal(t, http.StatusOK, doJSON(t, c, http.MethodGet, ts.URL+"/api/snippets", nil, &remote))
	assert.Equal(t, 2, remote.Total)
}

func TestServer_LocalOnlyKeepsSignedInUsersLocal(t *testing.T) {
	cfg := testConfig("0123456789abcdef0123456789abcdef")
	cfg.Storage.LocalOnly = true
	ts, c := newTestServer(t, cfg)

	require.Equal(t, http.StatusCreated, doJSON(t, c, http.MethodPost, ts.URL+"/api/snippets",
		model.Draft{Kind: model.KindText, Title: "note", Body: "keep me here"}, nil))

	var signIn map[string]any
	require.Equal(t, http.StatusCreated, doJSON(t, c, http.MethodPost, ts.URL+"/auth/register",
		map[string]string{"email": "dev@example.com", "password": "correct-horse"}, &signIn))
	assert.NotContains(t, signIn, "migration")

	var list listBody
	require.Equal(t, http.StatusOK, doJSON(t, c, http.MethodGet, ts.URL+"/api/snippets", nil, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, model.LocalOwner, list.Items[0].OwnerID)
}
