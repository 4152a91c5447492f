// Package repository declares the storage contracts the service layer depends on.
//
// There are two snippet stores with deliberately different shapes:
//
//   - LocalStore: the device-local key-value store. It holds the WHOLE
//     collection under one fixed key, so the only primitives are get-all,
//     replace-all and clear.
//   - RemoteStore: the hosted relational table. Every call is scoped by an
//     owner id and the store enforces that filter itself.
//
// The service layer hides the difference behind a single Backend abstraction;
// nothing outside internal/service picks a store directly.
package repository

import (
	"context"

	"github.com/sakif/snippet-shelf/internal/model"
)

// LocalStore is the anonymous, device-scoped snippet collection.
type LocalStore interface {
	Get(ctx context.Context) ([]model.Snippet, error)
	Set(ctx context.Context, snippets []model.Snippet) error
	Clear(ctx context.Context) error
}

// RemoteStore is the owner-scoped snippet table.
//
// Get/Update return apperror.ErrNotFound when the id does not exist for that
// owner; Delete does the same, and the service decides whether to care.
type RemoteStore interface {
	List(ctx context.Context, ownerID string) ([]model.Snippet, error)
	Get(ctx context.Context, ownerID, id string) (*model.Snippet, error)
	// Insert assigns snippet.ID and returns it.
	Insert(ctx context.Context, snippet *model.Snippet) (string, error)
	Update(ctx context.Context, ownerID string, snippet *model.Snippet) error
	Delete(ctx context.Context, ownerID, id string) error
}

// UserRepository stores accounts. Both GitHub and email/password sign-in
// resolve to a *model.User whose ID becomes the snippet owner id.
type UserRepository interface {
	// Upsert inserts or refreshes a GitHub account keyed by GitHubID.
	Upsert(ctx context.Context, user *model.User) error
	// CreateWithPassword inserts an email/password account.
	// Returns apperror.ErrConflict if the email is taken.
	CreateWithPassword(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}
