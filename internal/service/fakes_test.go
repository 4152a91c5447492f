package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/model"
)

// =========================================================================
// FAKE STORES
// =========================================================================
//
// Hand-written in-memory implementations of repository.LocalStore and
// repository.RemoteStore. The error fields let a test simulate a store that
// is down; failInsert lets a test fail selected records during migration.

var errStoreDown = errors.New("store is down")

type fakeLocalStore struct {
	mu       sync.Mutex
	data     []model.Snippet
	getErr   error
	setErr   error
	clearErr error
	sets     int
	cleared  bool
}

func (f *fakeLocalStore) Get(_ context.Context) ([]model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]model.Snippet, len(f.data))
	for i, s := range f.data {
		out[i] = s.Clone()
	}
	return out, nil
}

func (f *fakeLocalStore) Set(_ context.Context, snippets []model.Snippet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.sets++
	f.data = make([]model.Snippet, len(snippets))
	for i, s := range snippets {
		f.data[i] = s.Clone()
	}
	return nil
}

func (f *fakeLocalStore) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.data = nil
	f.cleared = true
	return nil
}

type fakeRemoteStore struct {
	mu     sync.Mutex
	rows   map[string]model.Snippet
	nextID int
	err    error
	// failInsert fails Insert for snippets with these titles.
	failInsert map[string]bool
	// When gate is set, Insert reports on inserting and then waits for gate
	// to close.
	inserting chan struct{}
	gate      chan struct{}
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{rows: make(map[string]model.Snippet)}
}

func (f *fakeRemoteStore) List(_ context.Context, ownerID string) ([]model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := []model.Snippet{}
	for _, s := range f.rows {
		if s.OwnerID == ownerID {
			out = append(out, s.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (f *fakeRemoteStore) Get(_ context.Context, ownerID, id string) (*model.Snippet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.rows[id]
	if !ok || s.OwnerID != ownerID {
		return nil, apperror.NotFound("snippet", id)
	}
	c := s.Clone()
	return &c, nil
}

func (f *fakeRemoteStore) Insert(_ context.Context, snippet *model.Snippet) (string, error) {
	if f.gate != nil {
		select {
		case f.inserting <- struct{}{}:
		default:
		}
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.failInsert[snippet.Title] {
		return "", fmt.Errorf("insert %q: %w", snippet.Title, errStoreDown)
	}
	f.nextID++
	snippet.ID = fmt.Sprintf("remote-%d", f.nextID)
	f.rows[snippet.ID] = snippet.Clone()
	return snippet.ID, nil
}

func (f *fakeRemoteStore) Update(_ context.Context, ownerID string, snippet *model.Snippet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	existing, ok := f.rows[snippet.ID]
	if !ok || existing.OwnerID != ownerID {
		return apperror.NotFound("snippet", snippet.ID)
	}
	f.rows[snippet.ID] = snippet.Clone()
	return nil
}

func (f *fakeRemoteStore) Delete(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	existing, ok := f.rows[id]
	if !ok || existing.OwnerID != ownerID {
		return apperror.NotFound("snippet", id)
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeRemoteStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// =========================================================================
// HELPERS
// =========================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixedClock starts at a known instant and advances one second per call, so
// timestamps are distinct and predictable.
func fixedClock() func() time.Time {
	var mu sync.Mutex
	now := time.UnixMilli(1_700_000_000_000)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

func newTestService(t *testing.T) (*SnippetService, *fakeLocalStore, *fakeRemoteStore) {
	t.Helper()
	local := &fakeLocalStore{}
	remote := newFakeRemoteStore()
	svc := NewSnippetService(Options{
		Local:  local,
		Remote: remote,
		Logger: discardLogger(),
		Clock:  fixedClock(),
	})
	return svc, local, remote
}

func draft(title string, tags ...string) model.Draft {
	return model.Draft{Kind: model.KindCode, Title: title, Body: "body of " + title, Tags: tags}
}
