// Package view derives what the user sees from the raw snippet list:
// filtering by kind, tags and free text, display order, the tag vocabulary
// and usage statistics.
//
// Everything here is pure. The same list and query always give the same
// ordered result, and nothing reaches back into a store.
package view

import (
	"slices"
	"sort"
	"strings"

	"github.com/sakif/snippet-shelf/internal/model"
)

// All is the pass-through value for Query.Type.
const All model.Kind = "all"

// Query is the current filter state. The zero value (and Type == All with
// no tags and no text) passes everything.
type Query struct {
	Type model.Kind
	Tags []string
	// Text is matched case-insensitively exactly as typed, spaces included.
	Text string
}

// ParseType maps a filter value to a Kind. Empty and "all" mean All;
// anything else must be a valid kind.
func ParseType(s string) (model.Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == string(All) {
		return All, true
	}
	k := model.Kind(s)
	return k, k.Valid()
}

// entry is the search index row for one snippet.
type entry struct {
	id         string
	titleLower string
	bodyLower  string
}

// Index holds a snippet list plus its lowercase search index.
//
// Build it once per loaded list with NewIndex and call Apply for every
// keystroke; titles and bodies are lowercased only here, not per query.
// An Index is owned by one view and is not safe for concurrent mutation,
// but it is never mutated after NewIndex.
type Index struct {
	snippets []model.Snippet
	entries  []entry
	tags     []string
}

// NewIndex builds the search index and tag vocabulary for snippets.
// The slice is copied; later changes by the caller do not leak in.
func NewIndex(snippets []model.Snippet) *Index {
	idx := &Index{
		snippets: slices.Clone(snippets),
		entries:  make([]entry, len(snippets)),
	}
	for i, s := range idx.snippets {
		idx.entries[i] = entry{
			id:         s.ID,
			titleLower: strings.ToLower(s.Title),
			bodyLower:  strings.ToLower(s.Body),
		}
	}
	idx.tags = TagVocabulary(idx.snippets)
	return idx
}

// Len is the size of the full list.
func (idx *Index) Len() int { return len(idx.snippets) }

// Snippets returns the full list in display order.
func (idx *Index) Snippets() []model.Snippet {
	return Sort(idx.snippets)
}

// Tags is the vocabulary of the full, unfiltered list.
func (idx *Index) Tags() []string {
	return slices.Clone(idx.tags)
}

// Apply filters the list by q and returns the survivors in display order.
//
// The three filters intersect, so their order does not change the result.
// They run cheapest first: kind is one comparison, tags a small set lookup,
// text a substring scan.
func (idx *Index) Apply(q Query) []model.Snippet {
	kind := q.Type
	if kind == "" {
		kind = All
	}
	selected := tagSet(q.Tags)
	needle := strings.ToLower(q.Text)

	out := make([]model.Snippet, 0, len(idx.snippets))
	for i, s := range idx.snippets {
		if kind != All && s.Kind != kind {
			continue
		}
		if len(selected) > 0 && !hasAnyTag(s.Tags, selected) {
			continue
		}
		if needle != "" {
			e := idx.entries[i]
			if !strings.Contains(e.titleLower, needle) && !strings.Contains(e.bodyLower, needle) {
				continue
			}
		}
		out = append(out, s)
	}
	return Sort(out)
}

func tagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// hasAnyTag is the OR rule: one shared tag is enough. An untagged snippet
// never matches a non-empty selection.
func hasAnyTag(tags []string, selected map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := selected[t]; ok {
			return true
		}
	}
	return false
}

// Sort returns a copy ordered pinned first, then newest createdAt first.
// It is stable: snippets that compare equal keep their input order.
func Sort(snippets []model.Snippet) []model.Snippet {
	out := slices.Clone(snippets)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		return out[i].CreatedAt > out[j].CreatedAt
	})
	return out
}

// TagVocabulary returns every distinct tag in snippets, sorted.
func TagVocabulary(snippets []model.Snippet) []string {
	seen := make(map[string]struct{})
	for _, s := range snippets {
		for _, t := range s.Tags {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
