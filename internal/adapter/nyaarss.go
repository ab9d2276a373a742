// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/torrify/internal/normalize"
	"github.com/pdiddy/torrify/pkg/types"
)

// NyaaRSS reads the RSS flavour of the Nyaa search, which carries seeders,
// leechers and the info hash in nyaa: extension elements.
type NyaaRSS struct {
	*Behavior
}

// NewNyaaRSS wraps b as a Nyaa RSS adapter.
func NewNyaaRSS(b *Behavior) *NyaaRSS { return &NyaaRSS{Behavior: b} }

// Search queries /?page=rss&q=<query>.
func (a *NyaaRSS) Search(ctx context.Context, query string, limit int) types.AdapterResult {
	return a.Run(ctx, query, limit, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		policy := MirrorPolicy{Accept: acceptRSS, MinBodyLength: 100}
		build := func(base string) string {
			return base + "/?" + url.Values{"page": {"rss"}, "q": {q}, "s": {"seeders"}, "o": {"desc"}}.Encode()
		}
		return a.TryMirrors(ctx, q, limit, policy, build, parseNyaaRSS)
	})
}

func parseNyaaRSS(page *Page, base string, limit int) ([]normalize.Raw, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, Errorf(types.KindParse, "parsing feed: %w", err)
	}

	var out []normalize.Raw
	for _, item := range feed.Items {
		if limit > 0 && len(out) >= limit {
			break
		}
		ext := func(name string) string {
			vals := item.Extensions["nyaa"][name]
			if len(vals) == 0 {
				return ""
			}
			return strings.TrimSpace(vals[0].Value)
		}

		raw := normalize.Raw{
			normalize.FieldTitle:    item.Title,
			normalize.FieldHash:     ext("infoHash"),
			normalize.FieldSeeds:    ext("seeders"),
			normalize.FieldLeechers: ext("leechers"),
			normalize.FieldSize:     ext("size"),
			normalize.FieldCategory: nyaaCategory(ext("category")),
			normalize.FieldVerified: strings.EqualFold(ext("trusted"), "yes"),
			normalize.FieldLink:     item.GUID,
		}
		if item.PublishedParsed != nil {
			raw[normalize.FieldDate] = *item.PublishedParsed
		} else {
			raw[normalize.FieldDate] = item.Published
		}
		out = append(out, raw)
	}
	return out, nil
}
