package model

import (
	"fmt"
	"strings"

	"github.com/sakif/snippet-shelf/internal/apperror"
)

// Validation limits. Title and body lengths mirror what the editor accepts.
const (
	MaxTitleLength = 200
	MaxBodyLength  = 100000 // ~100KB
	MaxTagLength   = 32
)

// NormalizeTags trims every tag, drops empties and collapses duplicates
// (first occurrence wins). Tags are a set, so the cap applies to distinct
// values: ["db", "db", "sql"] is two tags.
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		if len(tag) > MaxTagLength {
			return nil, apperror.ValidationFailed("tags",
				fmt.Sprintf("tag %q must be %d characters or less", tag, MaxTagLength))
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > MaxTags {
		return nil, apperror.ValidationFailed("tags",
			fmt.Sprintf("a snippet can have at most %d tags", MaxTags))
	}
	return out, nil
}

// Normalize trims the title, normalises tags and checks every field rule.
// It runs on create, on every update (after the patch is merged) and on every
// imported or migrated record. External parsers are never trusted.
func (s *Snippet) Normalize() error {
	s.Title = strings.TrimSpace(s.Title)
	if s.Title == "" {
		return apperror.ValidationFailed("title", "snippet title is required")
	}
	if len(s.Title) > MaxTitleLength {
		return apperror.ValidationFailed("title",
			fmt.Sprintf("snippet title must be %d characters or less", MaxTitleLength))
	}
	if strings.TrimSpace(s.Body) == "" {
		return apperror.ValidationFailed("body", "snippet body is required")
	}
	if len(s.Body) > MaxBodyLength {
		return apperror.ValidationFailed("body",
			fmt.Sprintf("snippet body must be %d characters or less", MaxBodyLength))
	}
	if s.Kind == "" {
		s.Kind = KindCode
	}
	if !s.Kind.Valid() {
		return apperror.ValidationFailed("kind",
			fmt.Sprintf("unknown snippet kind %q", s.Kind))
	}
	s.Language = strings.TrimSpace(s.Language)
	if s.Language != "" && !KnownLanguage(s.Language) {
		return apperror.ValidationFailed("language",
			fmt.Sprintf("unknown language %q", s.Language))
	}
	if s.Kind != KindText {
		s.RichPreviewHTML = ""
	}

	tags, err := NormalizeTags(s.Tags)
	if err != nil {
		return err
	}
	s.Tags = tags
	return nil
}

// Snippet builds an unsaved snippet from the draft. The result still has to
// be normalised and stamped with an id, owner and timestamps.
func (d Draft) Snippet() Snippet {
	s := Snippet{
		Kind:            d.Kind,
		Title:           d.Title,
		Language:        d.Language,
		RichPreviewHTML: d.RichPreviewHTML,
		Tags:            append([]string(nil), d.Tags...),
		IsPinned:        d.IsPinned,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	s.SetBody(d.Body)
	return s
}

// Apply merges the patch into s. Body changes go through SetBody so the
// placeholder set is recomputed; an unchanged body leaves it untouched.
func (p Patch) Apply(s *Snippet) {
	if p.Kind != nil {
		s.Kind = *p.Kind
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Body != nil && *p.Body != s.Body {
		s.SetBody(*p.Body)
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.RichPreviewHTML != nil {
		s.RichPreviewHTML = *p.RichPreviewHTML
	}
	if p.Tags != nil {
		s.Tags = append([]string(nil), (*p.Tags)...)
	}
	if p.IsPinned != nil {
		s.IsPinned = *p.IsPinned
	}
}
