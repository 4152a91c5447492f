// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account: the owner of remote snippets.
//
// Two sign-in methods produce a User:
//   - GitHub OAuth: GitHubID is set, PasswordHash is empty
//   - Email/password: GitHubID is 0, PasswordHash holds the bcrypt hash
//
// The internal string ID (xid) is what snippets reference as their owner, so
// switching sign-in method never re-keys anyone's snippets.
//
// WHY Email string (not *string)?
// GitHub OAuth returns the primary public email, which can be empty if the
// user has hidden it. We use an empty string as the zero value rather than a
// nullable pointer; simpler to work with and safe to display.
type User struct {
	ID           string    `json:"id"        db:"id"`
	GitHubID     int64     `json:"githubId,omitempty" db:"github_id"` // 0 for password accounts
	Login        string    `json:"login"     db:"login"`
	Email        string    `json:"email"     db:"email"`
	AvatarURL    string    `json:"avatarUrl" db:"avatar_url"`
	PasswordHash string    `json:"-"         db:"password_hash"` // never serialised
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
