// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"slices"
	"strings"
	"time"

	"github.com/sakif/snippet-shelf/internal/placeholder"
)

// LocalOwner is the owner id stamped on records that live only in the
// device-local store (anonymous use).
const LocalOwner = "local"

// MaxTags is the hard cap on distinct tags per snippet.
const MaxTags = 3

// Kind decides which language affordances apply to a snippet.
type Kind string

const (
	KindCode Kind = "code"
	KindSQL  Kind = "sql"
	KindText Kind = "text"
)

// Kinds lists every valid Kind in display order.
var Kinds = []Kind{KindCode, KindSQL, KindText}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCode, KindSQL, KindText:
		return true
	}
	return false
}

// Snippet is a titled, typed unit of reusable content.
//
// Timestamps are Unix milliseconds, not time.Time: the same values travel
// through the local store, the remote table and the JSON export unchanged,
// and the view layer compares them as plain integers.
//
// For example, when we marshal a Snippet to JSON:
//
//	snippet := Snippet{ID: "cv37rs3pp9olc6atsptg", Title: "users by id"}
//	json.Marshal(snippet) → {"id":"cv37rs3pp9olc6atsptg","title":"users by id",...}
type Snippet struct {
	ID                   string   `json:"id"`
	OwnerID              string   `json:"ownerId"`
	Kind                 Kind     `json:"kind"`
	Title                string   `json:"title"`
	Body                 string   `json:"body"`
	Language             string   `json:"language,omitempty"`
	RichPreviewHTML      string   `json:"richPreviewHtml,omitempty"`
	Tags                 []string `json:"tags"`
	VariablePlaceholders []string `json:"variablePlaceholders"`
	IsPinned             bool     `json:"isPinned"`
	UseCount             int      `json:"useCount"`
	LastUsedAt           int64    `json:"lastUsedAt,omitempty"`
	CreatedAt            int64    `json:"createdAt"`
	UpdatedAt            int64    `json:"updatedAt"`
}

// SetBody replaces the body and recomputes the derived placeholder set.
// It is the only way the service layer writes Body, so the two never drift.
func (s *Snippet) SetBody(body string) {
	s.Body = body
	s.VariablePlaceholders = placeholder.Extract(body)
}

// Clone returns a deep copy; slices are not shared with the original.
func (s Snippet) Clone() Snippet {
	s.Tags = slices.Clone(s.Tags)
	s.VariablePlaceholders = slices.Clone(s.VariablePlaceholders)
	return s
}

// IsLocal reports whether the id belongs to the device-local namespace.
func (s Snippet) IsLocal() bool {
	return strings.HasPrefix(s.ID, LocalIDPrefix)
}

// Draft is what callers hand in to create a snippet: user-editable fields only.
// ID, owner and derived fields are always assigned by the service.
//
// CreatedAt/UpdatedAt are honoured only when non-zero, which lets migration and
// import preserve the original timestamps.
type Draft struct {
	Kind            Kind     `json:"kind"`
	Title           string   `json:"title"`
	Body            string   `json:"body"`
	Language        string   `json:"language,omitempty"`
	RichPreviewHTML string   `json:"richPreviewHtml,omitempty"`
	Tags            []string `json:"tags"`
	IsPinned        bool     `json:"isPinned"`
	CreatedAt       int64    `json:"createdAt,omitempty"`
	UpdatedAt       int64    `json:"updatedAt,omitempty"`
}

// Patch is a partial update. A nil field means "leave unchanged".
//
// WHY POINTERS?
// With plain strings we couldn't tell "set the language to empty" apart from
// "don't touch the language". A nil pointer is "absent"; a pointer to ""
// is an explicit clear.
type Patch struct {
	Kind            *Kind     `json:"kind,omitempty"`
	Title           *string   `json:"title,omitempty"`
	Body            *string   `json:"body,omitempty"`
	Language        *string   `json:"language,omitempty"`
	RichPreviewHTML *string   `json:"richPreviewHtml,omitempty"`
	Tags            *[]string `json:"tags,omitempty"`
	IsPinned        *bool     `json:"isPinned,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Kind == nil && p.Title == nil && p.Body == nil && p.Language == nil &&
		p.RichPreviewHTML == nil && p.Tags == nil && p.IsPinned == nil
}

// Millis converts t to Unix milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
