package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/snippet-shelf/internal/auth"
	"github.com/sakif/snippet-shelf/internal/model"
	"github.com/sakif/snippet-shelf/internal/service"
)

type fakeGitHub struct {
	user *auth.GitHubUser
	err  error
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.test/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type authEnv struct {
	*testEnv
	handler *AuthHandler
	tokens  *auth.TokenService
	github  *fakeGitHub
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	e := newTestEnv(t)

	tokens, err := auth.NewTokenService("0123456789abcdef0123456789abcdef")
	require.NoError(t, err)

	authService := service.NewAuthService(e.remote, tokens, auth.NewPasswordServiceForTest(4), discardLogger())
	migrator := e.snippets.NewMigrator(2)
	trigger := service.NewMigrationTrigger(migrator, false, discardLogger())
	gh := &fakeGitHub{user: &auth.GitHubUser{ID: 42, Login: "octocat"}}

	return &authEnv{
		testEnv: e,
		handler: NewAuthHandler(gh, authService, tokens, trigger, false, discardLogger()),
		tokens:  tokens,
		github:  gh,
	}
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie {
			return c
		}
	}
	return nil
}

func TestRegister_SetsCookieAndMigrates(t *testing.T) {
	e := newAuthEnv(t)
	e.create(t, "", model.Draft{Kind: model.KindText, Title: "local note", Body: "hi"})

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"Dev@Example.com","password":"long-enough"}`))
	rec := httptest.NewRecorder()
	e.handler.HandleRegister(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[SignInResponse](t, rec)
	assert.Equal(t, "dev@example.com", resp.User.Email)
	require.NotNil(t, resp.Migration)
	assert.Equal(t, 1, resp.Migration.Migrated)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	userID, err := e.tokens.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, userID)

	remote, err := e.remote.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, remote, 1)
	assert.Equal(t, "local note", remote[0].Title)

	local, err := e.local.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestLogin_WrongPasswordIs401(t *testing.T) {
	e := newAuthEnv(t)

	rec := httptest.NewRecorder()
	e.handler.HandleRegister(rec, httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"dev@example.com","password":"long-enough"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	e.handler.HandleLogin(rec, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"dev@example.com","password":"wrong-one"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, sessionCookie(rec))

	rec = httptest.NewRecorder()
	e.handler.HandleRegister(rec, httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"dev@example.com","password":"long-enough"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGitHubLogin_SetsStateAndRedirects(t *testing.T) {
	e := newAuthEnv(t)

	rec := httptest.NewRecorder()
	e.handler.HandleGitHubLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	require.NotEmpty(t, state)
	assert.Contains(t, rec.Header().Get("Location"), "state="+state)
}

func callbackRequest(state, cookieState, code string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?code="+code+"&state="+state, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: stateCookie, Value: cookieState})
	}
	return req
}

func TestGitHubCallback(t *testing.T) {
	t.Run("state mismatch", func(t *testing.T) {
		e := newAuthEnv(t)
		rec := httptest.NewRecorder()
		e.handler.HandleGitHubCallback(rec, callbackRequest("abc", "xyz", "code"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Nil(t, sessionCookie(rec))
	})

	t.Run("missing state cookie", func(t *testing.T) {
		e := newAuthEnv(t)
		rec := httptest.NewRecorder()
		e.handler.HandleGitHubCallback(rec, callbackRequest("abc", "", "code"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("exchange fails", func(t *testing.T) {
		e := newAuthEnv(t)
		e.github.err = errors.New("bad code")
		rec := httptest.NewRecorder()
		e.handler.HandleGitHubCallback(rec, callbackRequest("abc", "abc", "code"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("success migrates and redirects", func(t *testing.T) {
		e := newAuthEnv(t)
		e.create(t, "", model.Draft{Kind: model.KindText, Title: "a", Body: "b"})

		rec := httptest.NewRecorder()
		e.handler.HandleGitHubCallback(rec, callbackRequest("abc", "abc", "code"))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/?migrated=1", rec.Header().Get("Location"))
		require.NotNil(t, sessionCookie(rec))
	})
}

func TestLogoutAndMe(t *testing.T) {
	e := newAuthEnv(t)

	rec := httptest.NewRecorder()
	e.handler.HandleRegister(rec, httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"dev@example.com","password":"long-enough"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	user := decode[SignInResponse](t, rec).User

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rec = httptest.NewRecorder()
	e.handler.HandleMe(rec, req.WithContext(auth.WithUserID(req.Context(), user.ID)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, decode[model.User](t, rec).ID)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = httptest.NewRecorder()
	e.handler.HandleMe(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	e.handler.HandleLogout(rec, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, -1, cookie.MaxAge)
}
