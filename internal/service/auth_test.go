package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/auth"
	"github.com/sakif/snippet-shelf/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
type fakeUserRepo struct {
	users   map[string]*model.User // keyed by internal ID
	byGHID  map[int64]*model.User
	byEmail map[string]*model.User
	nextID  int
	// set to a non-nil error to simulate a database failure
	upsertErr  error
	getByIDErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[string]*model.User),
		byGHID:  make(map[int64]*model.User),
		byEmail: make(map[string]*model.User),
		nextID:  1,
	}
}

func (f *fakeUserRepo) newID() string {
	id := fmt.Sprintf("user-fake-id-%d", f.nextID)
	f.nextID++
	return id
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.byGHID[user.GitHubID]; ok {
		existing.Login = user.Login
		existing.Email = user.Email
		existing.AvatarURL = user.AvatarURL
		*user = *existing
		return nil
	}
	user.ID = f.newID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	copied := *user
	f.users[user.ID] = &copied
	f.byGHID[user.GitHubID] = &copied
	return nil
}

func (f *fakeUserRepo) CreateWithPassword(ctx context.Context, user *model.User) error {
	if _, ok := f.byEmail[user.Email]; ok {
		return apperror.Conflict("user", user.Email)
	}
	user.ID = f.newID()
	copied := *user
	f.users[user.ID] = &copied
	f.byEmail[user.Email] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	return u, nil
}

// newTestAuthService returns an AuthService wired with fake dependencies.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum, which makes tests fast
	ps := auth.NewPasswordServiceForTest(4)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAuthService(repo, ts, ps, logger)
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	ghUser := &auth.GitHubUser{
		ID:        42,
		Login:     "octocat",
		Email:     "octocat@github.com",
		AvatarURL: "https://avatars.githubusercontent.com/u/42",
	}

	result, err := svc.LoginOrRegisterGitHub(context.Background(), ghUser)
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("LoginOrRegisterGitHub() returned empty Token")
	}
	if result.User.Login != "octocat" {
		t.Errorf("User.Login = %q, want %q", result.User.Login, "octocat")
	}
	if result.User.ID == "" {
		t.Error("User.ID should be set after upsert")
	}
}

func TestLoginOrRegisterGitHub_ExistingUserKeepsID(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	first, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 99, Login: "old-login"})
	if err != nil {
		t.Fatalf("first login error: %v", err)
	}

	second, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 99, Login: "new-login"})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("User.ID changed from %q to %q; snippets would be orphaned", first.User.ID, second.User.ID)
	}
	if second.User.Login != "new-login" {
		t.Errorf("User.Login after update = %q, want %q", second.User.Login, "new-login")
	}
}

func TestLoginOrRegisterGitHub_NilGitHubUser(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Fatal("LoginOrRegisterGitHub() should return error for nil GitHubUser")
	}
}

func TestLoginOrRegisterGitHub_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.upsertErr = errors.New("database is on fire")
	svc := newTestAuthService(t, repo)

	_, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "user"})
	if err == nil {
		t.Fatal("LoginOrRegisterGitHub() should propagate repository errors")
	}
}

// =========================================================================
// Register / Login TESTS
// =========================================================================

func TestRegister_ThenLogin(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	registered, err := svc.Register(ctx, "  Ada@Example.com ", "correct horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if registered.User.Email != "ada@example.com" {
		t.Errorf("Email = %q, want lower-cased and trimmed", registered.User.Email)
	}
	if registered.User.PasswordHash == "correct horse" {
		t.Error("password stored in plain text")
	}

	loggedIn, err := svc.Login(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if loggedIn.User.ID != registered.User.ID {
		t.Errorf("Login user = %q, want %q", loggedIn.User.ID, registered.User.ID)
	}

	subject, err := svc.ValidateToken(loggedIn.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if subject != registered.User.ID {
		t.Errorf("token subject = %q, want %q", subject, registered.User.ID)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	tests := []struct {
		name     string
		email    string
		password string
		field    string
	}{
		{"empty email", "", "long enough", "email"},
		{"not an email", "nope", "long enough", "email"},
		{"short password", "a@b.co", "short", "password"},
		{"password over bcrypt limit", "a@b.co", string(make([]byte, 73)), "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.email, tt.password)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
			if appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dup@example.com", "password1"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err := svc.Register(ctx, "dup@example.com", "password2")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("error = %v, want ErrConflict", err)
	}
}

func TestLogin_WrongPasswordAndUnknownEmailLookTheSame(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "who@example.com", "the-password"); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, wrongPassword := svc.Login(ctx, "who@example.com", "not-the-password")
	_, unknownEmail := svc.Login(ctx, "nobody@example.com", "the-password")

	for _, err := range []error{wrongPassword, unknownEmail} {
		if !errors.Is(err, apperror.ErrUnauthorized) {
			t.Errorf("error = %v, want ErrUnauthorized", err)
		}
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPassword, unknownEmail)
	}
}

// =========================================================================
// GetUserByID / ValidateToken TESTS
// =========================================================================

func TestGetUserByID_Found(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "findme"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	user, err := svc.GetUserByID(context.Background(), result.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.Login != "findme" {
		t.Errorf("user.Login = %q, want %q", user.Login, "findme")
	}
}

func TestGetUserByID_EmptyID(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	if _, err := svc.GetUserByID(context.Background(), ""); err == nil {
		t.Fatal("GetUserByID() should return error for empty ID")
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.GetUserByID(context.Background(), "non-existent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

func TestValidateToken_InvalidToken(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	if _, err := svc.ValidateToken("this.is.garbage"); err == nil {
		t.Fatal("ValidateToken() should return error for garbage token")
	}
}
