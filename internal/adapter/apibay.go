// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"net/url"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"

	"github.com/pdiddy/torrify/internal/normalize"
	"github.com/pdiddy/torrify/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIBay queries the JSON search API behind The Pirate Bay.
type APIBay struct {
	*Behavior
}

// NewAPIBay wraps b as an apibay adapter.
func NewAPIBay(b *Behavior) *APIBay { return &APIBay{Behavior: b} }

// noResultsID is the id apibay returns in its single placeholder row when
// nothing matched.
const noResultsID = "0"

// Search calls /q.php?q=<query>.
func (a *APIBay) Search(ctx context.Context, query string, limit int) types.AdapterResult {
	return a.Run(ctx, query, limit, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		policy := MirrorPolicy{Accept: acceptJSON, MinBodyLength: 2}
		build := func(base string) string {
			return base + "/q.php?" + url.Values{"q": {q}}.Encode()
		}
		return a.TryMirrors(ctx, q, limit, policy, build, parseAPIBay)
	})
}

// parseAPIBay streams the top-level array so that a truncated body still
// yields the rows decoded before the damage.
func parseAPIBay(page *Page, base string, limit int) ([]normalize.Raw, error) {
	iter := jsoniter.ParseBytes(json, page.Body)
	var out []normalize.Raw

	for iter.ReadArray() {
		var item map[string]any
		iter.ReadVal(&item)
		if iter.Error != nil {
			return out, Errorf(types.KindParse, "decoding apibay row %d: %w", len(out), iter.Error)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		id := cast.ToString(item["id"])
		if id == noResultsID || id == "" {
			continue
		}
		name := cast.ToString(item["name"])
		out = append(out, normalize.Raw{
			normalize.FieldTitle:    name,
			normalize.FieldHash:     cast.ToString(item["info_hash"]),
			normalize.FieldSeeds:    item["seeders"],
			normalize.FieldLeechers: item["leechers"],
			normalize.FieldSize:     cast.ToString(item["size"]),
			normalize.FieldDate:     cast.ToInt64(cast.ToString(item["added"])),
			normalize.FieldCategory: apibayCategory(cast.ToString(item["category"])),
			normalize.FieldVerified: isTrustedStatus(cast.ToString(item["status"])),
			normalize.FieldLink:     base + "/description.php?id=" + url.QueryEscape(id),
		})
	}
	if iter.Error != nil {
		return out, Errorf(types.KindParse, "decoding apibay response: %w", iter.Error)
	}
	return out, nil
}

func isTrustedStatus(s string) bool {
	return s == "vip" || s == "trusted" || s == "helper" || s == "moderator" || s == "supermod"
}

// apibayCategory maps the numeric category code.
func apibayCategory(code string) types.Category {
	n, err := strconv.Atoi(code)
	if err != nil {
		return ""
	}
	switch {
	case n >= 100 && n < 200:
		return types.CategoryMusic
	case n == 205 || n == 208 || n == 209:
		return types.CategoryTV
	case n >= 200 && n < 300:
		return types.CategoryMovies
	case n >= 300 && n < 400:
		return types.CategorySoftware
	case n >= 400 && n < 500:
		return types.CategoryGames
	case n == 501 || n == 502:
		return types.CategoryBooks
	case n >= 601 && n < 700:
		return types.CategoryAnime
	}
	return types.CategoryOther
}
