package service

import (
	"context"
	"sync"

	"github.com/sakif/snippet-shelf/internal/apperror"
	"github.com/sakif/snippet-shelf/internal/model"
	"github.com/sakif/snippet-shelf/internal/repository"
)

// Owner identifies whose collection a call operates on.
// The zero value is the anonymous owner.
type Owner struct {
	id string
}

// OwnerFrom wraps an account id. An empty id is the anonymous owner.
func OwnerFrom(id string) Owner {
	return Owner{id: id}
}

// Anonymous is the owner of the device-local collection.
func Anonymous() Owner {
	return Owner{}
}

// ID returns the account id, or "" when anonymous.
func (o Owner) ID() string { return o.id }

// Present reports whether an account is signed in.
func (o Owner) Present() bool { return o.id != "" }

// Backend is the uniform shape both stores are driven through.
//
// THE DUAL BACKEND:
// The local store only knows "whole collection in, whole collection out";
// the remote store is row-oriented and owner-scoped. Both are wrapped so the
// service can say "create this" or "update that" without caring which one it
// got. The choice is made once per call in SnippetService.backendFor.
type Backend interface {
	Name() string
	List(ctx context.Context) ([]model.Snippet, error)
	Get(ctx context.Context, id string) (*model.Snippet, error)
	// Create assigns ID and OwnerID on snippet and persists it.
	Create(ctx context.Context, snippet *model.Snippet) error
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}

const (
	backendLocal  = "local"
	backendRemote = "remote"
)

// localBackend does read-modify-write over the single-key collection.
// mu serialises those cycles within the process; without it two concurrent
// creates would both read N records and one would write back N+1 over the
// other's N+1.
type localBackend struct {
	store repository.LocalStore
	mu    *sync.Mutex
}

func (b *localBackend) Name() string { return backendLocal }

func (b *localBackend) List(ctx context.Context) ([]model.Snippet, error) {
	return b.store.Get(ctx)
}

func (b *localBackend) Get(ctx context.Context, id string) (*model.Snippet, error) {
	all, err := b.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			found := all[i]
			return &found, nil
		}
	}
	return nil, apperror.NotFound("snippet", id)
}

func (b *localBackend) Create(ctx context.Context, snippet *model.Snippet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.store.Get(ctx)
	if err != nil {
		return err
	}
	snippet.ID = model.NewLocalID()
	snippet.OwnerID = model.LocalOwner
	return b.store.Set(ctx, append(all, snippet.Clone()))
}

func (b *localBackend) Update(ctx context.Context, snippet *model.Snippet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.store.Get(ctx)
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].ID == snippet.ID {
			all[i] = snippet.Clone()
			return b.store.Set(ctx, all)
		}
	}
	return apperror.NotFound("snippet", snippet.ID)
}

func (b *localBackend) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.store.Get(ctx)
	if err != nil {
		return err
	}
	kept := make([]model.Snippet, 0, len(all))
	for _, s := range all {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(all) {
		return apperror.NotFound("snippet", id)
	}
	return b.store.Set(ctx, kept)
}

// remoteBackend binds the remote table to one owner.
type remoteBackend struct {
	store   repository.RemoteStore
	ownerID string
}

func (b *remoteBackend) Name() string { return backendRemote }

func (b *remoteBackend) List(ctx context.Context) ([]model.Snippet, error) {
	return b.store.List(ctx, b.ownerID)
}

func (b *remoteBackend) Get(ctx context.Context, id string) (*model.Snippet, error) {
	return b.store.Get(ctx, b.ownerID, id)
}

func (b *remoteBackend) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.OwnerID = b.ownerID
	id, err := b.store.Insert(ctx, snippet)
	if err != nil {
		return err
	}
	snippet.ID = id
	return nil
}

func (b *remoteBackend) Update(ctx context.Context, snippet *model.Snippet) error {
	return b.store.Update(ctx, b.ownerID, snippet)
}

func (b *remoteBackend) Delete(ctx context.Context, id string) error {
	return b.store.Delete(ctx, b.ownerID, id)
}
