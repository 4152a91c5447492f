package view

import (
	"sort"

	"github.com/sakif/snippet-shelf/internal/model"
)

// statsTopN bounds the most-used and recently-used lists.
const statsTopN = 5

// Summary is the usage overview shown next to the list.
type Summary struct {
	Total         int                `json:"total"`
	Filtered      int                `json:"filtered"`
	ByKind        map[model.Kind]int `json:"byKind"`
	TotalUses     int                `json:"totalUses"`
	MostUsed      []model.Snippet    `json:"mostUsed"`
	RecentlyUsed  []model.Snippet    `json:"recentlyUsed"`
	PinnedCount   int                `json:"pinnedCount"`
	WithVariables int                `json:"withVariables"`
}

// Summarize computes statistics over the full list; filtered only
// contributes its length.
//
// MostUsed skips snippets that were never used; RecentlyUsed skips
// snippets with no LastUsedAt. Ties keep the list's display order.
func Summarize(all, filtered []model.Snippet) Summary {
	sum := Summary{
		Total:        len(all),
		Filtered:     len(filtered),
		ByKind:       make(map[model.Kind]int, len(model.Kinds)),
		MostUsed:     []model.Snippet{},
		RecentlyUsed: []model.Snippet{},
	}
	for _, k := range model.Kinds {
		sum.ByKind[k] = 0
	}

	ordered := Sort(all)
	var used, recent []model.Snippet
	for _, s := range ordered {
		sum.ByKind[s.Kind]++
		sum.TotalUses += s.UseCount
		if s.IsPinned {
			sum.PinnedCount++
		}
		if len(s.VariablePlaceholders) > 0 {
			sum.WithVariables++
		}
		if s.UseCount > 0 {
			used = append(used, s)
		}
		if s.LastUsedAt > 0 {
			recent = append(recent, s)
		}
	}

	sort.SliceStable(used, func(i, j int) bool { return used[i].UseCount > used[j].UseCount })
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].LastUsedAt > recent[j].LastUsedAt })

	sum.MostUsed = append(sum.MostUsed, head(used, statsTopN)...)
	sum.RecentlyUsed = append(sum.RecentlyUsed, head(recent, statsTopN)...)
	return sum
}

func head(s []model.Snippet, n int) []model.Snippet {
	if len(s) > n {
		return s[:n]
	}
	return s
}
