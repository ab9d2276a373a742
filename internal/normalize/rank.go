// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"sort"
	"strings"

	"github.com/pdiddy/torrify/pkg/types"
)

// Dedupe drops results whose info hash was already seen. Results without a
// hash are always kept. The first occurrence wins; the second return value
// is the number of rows removed.
func Dedupe(results []types.Result) ([]types.Result, int) {
	seen := make(map[string]bool, len(results))
	deduped := make([]types.Result, 0, len(results))
	removed := 0

	for _, r := range results {
		key := r.InfoHash
		if key == "" {
			key = InfoHash(r.MagnetLink)
		}
		key = strings.ToLower(key)
		if key == "" {
			deduped = append(deduped, r)
			continue
		}
		if seen[key] {
			removed++
			continue
		}
		seen[key] = true
		deduped = append(deduped, r)
	}
	return deduped, removed
}

// Rank returns a sorted copy of results truncated to limit (when positive).
// The sort is stable so ties keep their input order. Order "asc" sorts
// ascending; anything else sorts descending.
func Rank(results []types.Result, key types.SortKey, order string, limit int) []types.Result {
	out := append([]types.Result(nil), results...)
	if out == nil {
		out = []types.Result{}
	}

	asc := strings.EqualFold(strings.TrimSpace(order), "asc")
	cmp := comparator(key)
	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if asc {
			return c < 0
		}
		return c > 0
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// comparator returns a three-way comparison for key.
func comparator(key types.SortKey) func(a, b types.Result) int {
	switch key {
	case types.SortLeechers:
		return func(a, b types.Result) int { return compareInt(int64(a.Leechers), int64(b.Leechers)) }
	case types.SortSize:
		return func(a, b types.Result) int { return compareInt(a.SizeBytes, b.SizeBytes) }
	case types.SortDate:
		return func(a, b types.Result) int { return a.UploadedAt.Compare(b.UploadedAt) }
	case types.SortHealth:
		return func(a, b types.Result) int {
			ha, hb := a.Health(), b.Health()
			switch {
			case ha < hb:
				return -1
			case ha > hb:
				return 1
			}
			return 0
		}
	default:
		return func(a, b types.Result) int { return compareInt(int64(a.Seeds), int64(b.Seeds)) }
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
