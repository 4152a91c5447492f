package view

import (
	"testing"

	"github.com/sakif/snippet-shelf/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(snippets []model.Snippet) []string {
	out := make([]string, len(snippets))
	for i, s := range snippets {
		out[i] = s.ID
	}
	return out
}

func TestSort_PinnedFirstThenNewest(t *testing.T) {
	in := []model.Snippet{
		{ID: "A", IsPinned: true, CreatedAt: 3},
		{ID: "B", IsPinned: false, CreatedAt: 5},
		{ID: "C", IsPinned: true, CreatedAt: 1},
	}

	assert.Equal(t, []string{"A", "C", "B"}, ids(Sort(in)))
	// Input untouched.
	assert.Equal(t, []string{"A", "B", "C"}, ids(in))
}

func TestSort_StableForEqualKeys(t *testing.T) {
	in := []model.Snippet{
		{ID: "x", CreatedAt: 10},
		{ID: "y", CreatedAt: 10},
		{ID: "z", CreatedAt: 10, IsPinned: true},
		{ID: "w", CreatedAt: 10},
	}
	assert.Equal(t, []string{"z", "x", "y", "w"}, ids(Sort(in)))
}

func TestSort_Deterministic(t *testing.T) {
	in := fixture()
	assert.Equal(t, ids(Sort(in)), ids(Sort(in)))
}

func fixture() []model.Snippet {
	return []model.Snippet{
		{ID: "1", Kind: model.KindCode, Title: "Select users", Body: "SELECT * FROM users", Tags: []string{"db"}, CreatedAt: 1},
		{ID: "2", Kind: model.KindSQL, Title: "Count", Body: "select count(*) from t", Tags: []string{"db", "report"}, CreatedAt: 2},
		{ID: "3", Kind: model.KindCode, Title: "Loop", Body: "for i := range xs {}", Tags: []string{"go"}, CreatedAt: 3},
		{ID: "4", Kind: model.KindCode, Title: "Untagged select", Body: "select 1", CreatedAt: 4},
		{ID: "5", Kind: model.KindText, Title: "Reply", Body: "Thanks, I will SELECT a time", Tags: []string{"email"}, CreatedAt: 5, IsPinned: true},
		{ID: "6", Kind: model.KindCode, Title: "db helper", Body: "func open() {}", Tags: []string{"db"}, CreatedAt: 6},
	}
}

func TestApply_TextKeepsSurroundingSpaces(t *testing.T) {
	idx := NewIndex([]model.Snippet{
		{ID: "a", Kind: model.KindSQL, Title: "select", Body: "selectall", CreatedAt: 1},
		{ID: "b", Kind: model.KindSQL, Title: "x", Body: "select id", CreatedAt: 2},
	})

	assert.Equal(t, []string{"b"}, ids(idx.Apply(Query{Text: "select "})))
	assert.Equal(t, []string{"b"}, ids(idx.Apply(Query{Text: " "})))
	assert.Equal(t, []string{"b", "a"}, ids(idx.Apply(Query{Text: ""})))
}

func TestApply_Filters(t *testing.T) {
	idx := NewIndex(fixture())

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"zero query passes all", Query{}, []string{"5", "6", "4", "3", "2", "1"}},
		{"all type passes all", Query{Type: All}, []string{"5", "6", "4", "3", "2", "1"}},
		{"type exact", Query{Type: model.KindSQL}, []string{"2"}},
		{"tags OR", Query{Tags: []string{"go", "email"}}, []string{"5", "3"}},
		{"untagged never matches tag filter", Query{Tags: []string{"db"}}, []string{"6", "2", "1"}},
		{"text matches title or body, any case", Query{Text: "SeLeCt"}, []string{"5", "4", "2", "1"}},
		{"text whitespace is significant", Query{Text: "loop "}, []string{}},
		{"composition", Query{Type: model.KindCode, Tags: []string{"db"}, Text: "select"}, []string{"1"}},
		{"no match", Query{Text: "nothing like this"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(idx.Apply(tt.q)))
		})
	}
}

func TestApply_RemovingAPredicateNeverNarrows(t *testing.T) {
	idx := NewIndex(fixture())
	full := Query{Type: model.KindCode, Tags: []string{"db"}, Text: "select"}
	base := ids(idx.Apply(full))

	widened := []Query{
		{Type: All, Tags: full.Tags, Text: full.Text},
		{Type: full.Type, Text: full.Text},
		{Type: full.Type, Tags: full.Tags},
	}
	for _, q := range widened {
		got := ids(idx.Apply(q))
		for _, id := range base {
			assert.Contains(t, got, id, "query %+v dropped %s", q, id)
		}
		assert.GreaterOrEqual(t, len(got), len(base))
	}
}

func TestIndex_IsolatedFromCaller(t *testing.T) {
	list := fixture()
	idx := NewIndex(list)

	list[0].Title = "changed after indexing"
	got := idx.Apply(Query{Text: "changed"})
	assert.Empty(t, got)
	assert.Equal(t, len(list), idx.Len())
}

func TestTags_ReflectFullList(t *testing.T) {
	idx := NewIndex(fixture())

	want := []string{"db", "email", "go", "report"}
	assert.Equal(t, want, idx.Tags())

	// Filtering does not shrink the vocabulary.
	_ = idx.Apply(Query{Tags: []string{"go"}})
	assert.Equal(t, want, idx.Tags())
	assert.Equal(t, want, TagVocabulary(fixture()))
}

func TestTagVocabulary_Empty(t *testing.T) {
	assert.Equal(t, []string{}, TagVocabulary(nil))
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want model.Kind
		ok   bool
	}{
		{"", All, true},
		{"all", All, true},
		{" SQL ", model.KindSQL, true},
		{"text", model.KindText, true},
		{"image", "image", false},
	}
	for _, tt := range tests {
		got, ok := ParseType(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestSnippets_DisplayOrder(t *testing.T) {
	idx := NewIndex(fixture())
	require.Equal(t, 6, idx.Len())
	assert.Equal(t, "5", idx.Snippets()[0].ID)
}
