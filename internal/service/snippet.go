// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler / CLI  (transport)  → parses input, writes output
//	Service        (business)   → validates, picks a backend, orchestrates
//	Repository     (data)       → badger (local) or sqlite (remote)
//
// DEPENDENCY INJECTION:
// SnippetService takes repository.LocalStore and repository.RemoteStore
// (interfaces), NOT *local.Store or *sqlite.DB. Tests pass in-memory fakes;
// main.go passes the real stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/model"
	"github.com/sakif/snippet-shelf/internal/placeholder"
	"github.com/sakif/snippet-shelf/internal/repository"
	"github.com/sakif/snippet-shelf/internal/sanitize"
)

// Options configures a SnippetService.
type Options struct {
	Local  repository.LocalStore
	Remote repository.RemoteStore
	// LocalOnly forces every call onto the local store, signed in or not.
	LocalOnly bool
	Logger    *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// SnippetService is the snippet repository the rest of the app talks to.
// It holds no snippet state between calls; every call reads its backend.
type SnippetService struct {
	local     repository.LocalStore
	remote    repository.RemoteStore
	localOnly bool
	localMu   *sync.Mutex
	logger    *slog.Logger
	clock     func() time.Time
}

// NewSnippetService creates a SnippetService.
func NewSnippetService(opts Options) *SnippetService {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SnippetService{
		local:     opts.Local,
		remote:    opts.Remote,
		localOnly: opts.LocalOnly,
		localMu:   &sync.Mutex{},
		logger:    logger,
		clock:     clock,
	}
}

// backendFor chooses the store for one call.
//
// Local when nobody is signed in, or when local mode is forced; otherwise
// the remote table scoped to that owner. A missing remote store (the CLI
// with no database configured) also means local.
func (s *SnippetService) backendFor(owner Owner) Backend {
	if s.localOnly || !owner.Present() || s.remote == nil {
		return &localBackend{store: s.local, mu: s.localMu}
	}
	return &remoteBackend{store: s.remote, ownerID: owner.ID()}
}

// BackendName reports which store a call for owner would use.
func (s *SnippetService) BackendName(owner Owner) string {
	return s.backendFor(owner).Name()
}

// storeError turns a raw store failure into BackendUnavailable.
// Errors that already carry a kind (NotFound, Validation, ...) pass through.
func (s *SnippetService) storeError(b Backend, op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	s.logger.Error("snippet store failed",
		slog.String("backend", b.Name()),
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	return apperror.BackendUnavailable(b.Name(), err)
}

// List returns every snippet of the owner.
// Remote results are ordered newest first; local results come back in
// storage order. The view layer sorts for display either way.
func (s *SnippetService) List(ctx context.Context, owner Owner) ([]model.Snippet, error) {
	b := s.backendFor(owner)
	snippets, err := b.List(ctx)
	if err != nil {
		return nil, s.storeError(b, "list", err)
	}
	return snippets, nil
}

// Get returns one snippet. Returns apperror.ErrNotFound if it doesn't exist.
func (s *SnippetService) Get(ctx context.Context, owner Owner, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	b := s.backendFor(owner)
	snippet, err := b.Get(ctx, id)
	if err != nil {
		return nil, s.storeError(b, "get", err)
	}
	return snippet, nil
}

// Create validates and saves a new snippet.
//
// Validation runs before any I/O, so a rejected draft never touches a store.
// Draft timestamps are ignored here; only Import and migration keep them.
func (s *SnippetService) Create(ctx context.Context, owner Owner, draft model.Draft) (*model.Snippet, error) {
	draft.CreatedAt, draft.UpdatedAt = 0, 0
	return s.create(ctx, s.backendFor(owner), draft)
}

func (s *SnippetService) create(ctx context.Context, b Backend, draft model.Draft) (*model.Snippet, error) {
	snippet, err := prepare(draft, s.clock())
	if err != nil {
		return nil, err
	}

	if err := b.Create(ctx, &snippet); err != nil {
		return nil, s.storeError(b, "create", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("backend", b.Name()),
		slog.String("kind", string(snippet.Kind)),
	)
	return &snippet, nil
}

// prepare turns a draft into a validated, sanitized, timestamped snippet
// ready to hand to a backend. Non-zero draft timestamps are kept.
func prepare(draft model.Draft, now time.Time) (model.Snippet, error) {
	snippet := draft.Snippet()
	if err := snippet.Normalize(); err != nil {
		return model.Snippet{}, err
	}
	snippet.RichPreviewHTML = sanitize.HTML(snippet.RichPreviewHTML)

	ms := model.Millis(now)
	if snippet.CreatedAt == 0 {
		snippet.CreatedAt = ms
	}
	if snippet.UpdatedAt == 0 {
		snippet.UpdatedAt = snippet.CreatedAt
	}
	return snippet, nil
}

// Update applies a partial change.
//
// STRATEGY: "Fetch, merge, validate, write"
// The merged record is validated as a whole, so a patch that pushes tags past
// the cap fails even though the patch on its own looks fine.
func (s *SnippetService) Update(ctx context.Context, owner Owner, id string, patch model.Patch) (*model.Snippet, error) {
	b := s.backendFor(owner)
	snippet, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return snippet, nil
	}

	patch.Apply(snippet)
	if err := snippet.Normalize(); err != nil {
		return nil, err
	}
	snippet.RichPreviewHTML = sanitize.HTML(snippet.RichPreviewHTML)
	snippet.UpdatedAt = model.Millis(s.clock())

	if err := b.Update(ctx, snippet); err != nil {
		return nil, s.storeError(b, "update", err)
	}

	s.logger.Info("snippet updated",
		slog.String("id", snippet.ID),
		slog.String("backend", b.Name()),
	)
	return snippet, nil
}

// Delete removes a snippet. Deleting something that is already gone is not
// an error.
func (s *SnippetService) Delete(ctx context.Context, owner Owner, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "snippet ID is required")
	}
	b := s.backendFor(owner)
	if err := b.Delete(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		return s.storeError(b, "delete", err)
	}

	s.logger.Info("snippet deleted",
		slog.String("id", id),
		slog.String("backend", b.Name()),
	)
	return nil
}

// TogglePin flips IsPinned and returns the new value.
//
// This is read-then-write with no version check: two concurrent toggles can
// both read false and both write true. Last write wins.
func (s *SnippetService) TogglePin(ctx context.Context, owner Owner, id string) (bool, error) {
	b := s.backendFor(owner)
	snippet, err := s.Get(ctx, owner, id)
	if err != nil {
		return false, err
	}

	snippet.IsPinned = !snippet.IsPinned
	snippet.UpdatedAt = model.Millis(s.clock())
	if err := b.Update(ctx, snippet); err != nil {
		return false, s.storeError(b, "toggle pin", err)
	}
	return snippet.IsPinned, nil
}

// RecordUse is the "insert into page" action: it bumps the usage counters
// and returns the body with the given placeholder values filled in.
// Placeholders without a value stay as ${NAME}.
func (s *SnippetService) RecordUse(ctx context.Context, owner Owner, id string, values map[string]string) (string, error) {
	b := s.backendFor(owner)
	snippet, err := s.Get(ctx, owner, id)
	if err != nil {
		return "", err
	}

	now := model.Millis(s.clock())
	snippet.UseCount++
	snippet.LastUsedAt = now
	snippet.UpdatedAt = now
	if err := b.Update(ctx, snippet); err != nil {
		return "", s.storeError(b, "record use", err)
	}

	return placeholder.Replace(snippet.Body, values), nil
}

// ImportFailure describes one draft that could not be imported.
type ImportFailure struct {
	Index  int    `json:"index"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// ImportReport is the outcome of an Import call.
type ImportReport struct {
	Imported int             `json:"imported"`
	Failures []ImportFailure `json:"failures"`
}

// Import creates every draft for owner, one at a time, keeping the drafts'
// timestamps. A bad draft is recorded and skipped; it never aborts the rest.
func (s *SnippetService) Import(ctx context.Context, owner Owner, drafts []model.Draft) ImportReport {
	b := s.backendFor(owner)
	report := ImportReport{Failures: []ImportFailure{}}

	for i, draft := range drafts {
		if _, err := s.create(ctx, b, draft); err != nil {
			report.Failures = append(report.Failures, ImportFailure{
				Index:  i,
				Title:  draft.Title,
				Reason: err.Error(),
				Err:    err,
			})
			continue
		}
		report.Imported++
	}

	s.logger.Info("import finished",
		slog.String("backend", b.Name()),
		slog.Int("imported", report.Imported),
		slog.Int("failed", len(report.Failures)),
	)
	return report
}

// Err summarises failures, or nil if every draft was imported.
func (r ImportReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d snippets failed to import",
		len(r.Failures), r.Imported+len(r.Failures))
}
