// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/pdiddy/torrify/pkg/types"
)

func titles(rs []types.Result) string {
	var out []string
	for _, r := range rs {
		out = append(out, r.Title)
	}
	return strings.Join(out, ",")
}

// --- Dedupe ---

func TestDedupeKeepsFirstByHash(t *testing.T) {
	lower := "magnet:?xt=urn:btih:" + hashA
	upper := "magnet:?xt=urn:btih:" + strings.ToUpper(hashA) + "&dn=dup"
	results := []types.Result{
		{Title: "first", MagnetLink: lower, Source: "A"},
		{Title: "second", MagnetLink: upper, Source: "B"},
		{Title: "other", MagnetLink: "magnet:?xt=urn:btih:" + strings.Repeat("b", 40)},
	}

	deduped, removed := Dedupe(results)
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if got := titles(deduped); got != "first,other" {
		t.Errorf("deduped = %s, want first,other", got)
	}
}

func TestDedupeNeverMergesHashless(t *testing.T) {
	results := []types.Result{
		{Title: "same"},
		{Title: "same"},
		{Title: "same", MagnetLink: "not-a-magnet"},
	}
	deduped, removed := Dedupe(results)
	if removed != 0 || len(deduped) != 3 {
		t.Errorf("Dedupe = %d results, %d removed; want 3, 0", len(deduped), removed)
	}
}

func TestDedupeUsesInfoHashField(t *testing.T) {
	results := []types.Result{
		{Title: "a", InfoHash: strings.ToUpper(hashA)},
		{Title: "b", InfoHash: hashA},
	}
	deduped, _ := Dedupe(results)
	if got := titles(deduped); got != "a" {
		t.Errorf("deduped = %s, want a", got)
	}
}

// --- Rank ---

func TestRankStableOnTies(t *testing.T) {
	in := []types.Result{
		{Title: "A", Seeds: 5},
		{Title: "B", Seeds: 5},
		{Title: "C", Seeds: 9},
	}
	if got := titles(Rank(in, types.SortSeeds, "desc", 0)); got != "C,A,B" {
		t.Errorf("Rank desc = %s, want C,A,B", got)
	}
	if got := titles(Rank(in, types.SortSeeds, "asc", 0)); got != "A,B,C" {
		t.Errorf("Rank asc = %s, want A,B,C", got)
	}
	if got := titles(in); got != "A,B,C" {
		t.Errorf("input mutated: %s", got)
	}
}

func TestRankKeys(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	in := []types.Result{
		{Title: "A", Seeds: 10, Leechers: 10, SizeBytes: 300, UploadedAt: base},
		{Title: "B", Seeds: 8, Leechers: 1, SizeBytes: 100, UploadedAt: base.Add(48 * time.Hour)},
		{Title: "C", Seeds: 3, Leechers: 0, SizeBytes: 200, UploadedAt: base.Add(24 * time.Hour)},
	}
	tests := []struct {
		key  types.SortKey
		want string
	}{
		{types.SortSeeds, "A,B,C"},
		{types.SortLeechers, "A,B,C"},
		{types.SortSize, "A,C,B"},
		{types.SortDate, "B,C,A"},
		// health: A=1, B=8, C=3 (no leechers → seeds)
		{types.SortHealth, "B,C,A"},
		{"", "A,B,C"},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			if got := titles(Rank(in, tt.key, "", 0)); got != tt.want {
				t.Errorf("Rank(%q) = %s, want %s", tt.key, got, tt.want)
			}
		})
	}
}

func TestRankTruncates(t *testing.T) {
	in := []types.Result{{Title: "A", Seeds: 1}, {Title: "B", Seeds: 2}, {Title: "C", Seeds: 3}}
	if got := titles(Rank(in, types.SortSeeds, "desc", 2)); got != "C,B" {
		t.Errorf("Rank limit 2 = %s, want C,B", got)
	}
	if got := Rank(nil, types.SortSeeds, "desc", 5); got == nil || len(got) != 0 {
		t.Errorf("Rank(nil) = %#v, want empty non-nil slice", got)
	}
}
