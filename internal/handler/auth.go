package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/auth"
	"github.com/sakif/snippet-shelf/internal/model"
	"github.com/sakif/snippet-shelf/internal/service"
)

// stateCookie carries the OAuth state between login and callback.
const stateCookie = "oauth_state"

// GitHubAuth is the part of auth.GitHubProvider the handler uses.
type GitHubAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages sign-in, sign-out and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → exchange the code, sign in, migrate, redirect home
//   - HandleRegister       → create an email/password account and sign in
//   - HandleLogin          → email/password sign-in
//   - HandleLogout         → clear the cookie
//   - HandleMe             → the signed-in user's profile
//
// Every successful sign-in reports the new owner to the MigrationTrigger,
// which copies the anonymous local collection on the first one.
type AuthHandler struct {
	github  GitHubAuth // nil when GitHub sign-in is not configured
	auth    *service.AuthService
	tokens  *auth.TokenService
	trigger *service.MigrationTrigger
	secure  bool
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secure marks cookies HTTPS-only.
func NewAuthHandler(
	github GitHubAuth,
	authService *service.AuthService,
	tokens *auth.TokenService,
	trigger *service.MigrationTrigger,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		github:  github,
		auth:    authService,
		tokens:  tokens,
		trigger: trigger,
		secure:  secure,
		logger:  logger,
	}
}

// MigrationSummary is the client-facing view of a MigrationReport.
type MigrationSummary struct {
	Total    int      `json:"total"`
	Migrated int      `json:"migrated"`
	Failed   []string `json:"failed"` // titles of records left behind
	Error    string   `json:"error,omitempty"`
}

// SignInResponse is returned by register and login.
type SignInResponse struct {
	User      *model.User       `json:"user"`
	Migration *MigrationSummary `json:"migration,omitempty"` // only on the sign-in that migrated
}

// Credentials is the body of register and login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signedIn sets the cookie and fires the migration trigger.
//
// The migration outlives the request: a client that hangs up half-way must
// not leave half the collection copied and the local store uncleared.
func (h *AuthHandler) signedIn(w http.ResponseWriter, r *http.Request, result *service.AuthResult) *MigrationSummary {
	auth.SetSessionCookie(w, result.Token, h.tokens, h.secure)

	report, err := h.trigger.OnAuthChange(context.WithoutCancel(r.Context()), result.User.ID)
	if report == nil && err == nil {
		return nil
	}

	summary := &MigrationSummary{Failed: []string{}}
	if report != nil {
		summary.Total = report.Total()
		summary.Migrated = report.Migrated()
		for _, o := range report.Failed() {
			summary.Failed = append(summary.Failed, o.Record.Title)
		}
	}
	if err != nil {
		// Sign-in still succeeded; the local collection is untouched.
		summary.Error = err.Error()
	}
	return summary
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds if the two match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := auth.NewState()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Upsert the user and issue the session cookie
//  4. Fire the migration trigger
//  5. Redirect to the app home page
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || query.Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// single-use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Unauthorized("authentication failed"))
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	target := "/"
	if summary := h.signedIn(w, r, result); summary != nil {
		target = "/?migrated=" + strconv.Itoa(summary.Migrated)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// HandleRegister creates an email/password account and signs it in.
//
// HTTP: POST /auth/register
// BODY: {"email":"a@b.c","password":"at-least-8"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Register(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.logRejected("register", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, SignInResponse{User: result.User, Migration: h.signedIn(w, r, result)})
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.auth.Login(r.Context(), creds.Email, creds.Password)
	if err != nil {
		h.logRejected("login", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SignInResponse{User: result.User, Migration: h.signedIn(w, r, result)})
}

// HandleLogout clears the session cookie. The caller is anonymous again
// and sees the local collection.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	// Signing out never migrates; this only records the transition.
	_, _ = h.trigger.OnAuthChange(r.Context(), "")
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me (behind RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("HandleMe: user lookup failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// logRejected logs unexpected sign-in failures. Bad input and wrong
// passwords are the client's problem and stay at debug.
func (h *AuthHandler) logRejected(op string, err error) {
	level := slog.LevelError
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		level = slog.LevelDebug
	}
	h.logger.Log(context.Background(), level, op+" rejected", slog.String("error", err.Error()))
}
