// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/torrify/internal/normalize"
	"github.com/pdiddy/torrify/pkg/types"
)

// Nyaa scrapes the HTML listing of nyaa.si.
type Nyaa struct {
	*Behavior
}

// NewNyaa wraps b as a Nyaa adapter.
func NewNyaa(b *Behavior) *Nyaa { return &Nyaa{Behavior: b} }

// Search queries /?q=<query>&s=seeders&o=desc.
func (a *Nyaa) Search(ctx context.Context, query string, limit int) types.AdapterResult {
	return a.Run(ctx, query, limit, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		policy := MirrorPolicy{MinBodyLength: 1000}
		build := func(base string) string {
			return base + "/?" + url.Values{"q": {q}, "s": {"seeders"}, "o": {"desc"}}.Encode()
		}
		return a.TryMirrors(ctx, q, limit, policy, build, parseNyaa)
	})
}

func parseNyaa(page *Page, base string, limit int) ([]normalize.Raw, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, Errorf(types.KindParse, "parsing html: %w", err)
	}

	var out []normalize.Raw
	doc.Find("table.torrent-list tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		cells := row.Find("td")
		if cells.Length() < 6 {
			return true
		}

		raw := normalize.Raw{}
		// The name cell may hold a comments link before the title link.
		title := cells.Eq(1).Find(`a[href^="/view/"]:not(.comments)`).Last()
		raw[normalize.FieldTitle] = NyaaTitle(title.AttrOr("title", title.Text()))
		if href, ok := title.Attr("href"); ok {
			raw[normalize.FieldLink] = absURL(base, href)
		}
		if href, ok := row.Find(`a[href^="magnet:"]`).Attr("href"); ok {
			raw[normalize.FieldMagnet] = href
		}

		raw[normalize.FieldSize] = cells.Eq(3).Text()
		date := cells.Eq(4)
		if ts, ok := date.Attr("data-timestamp"); ok {
			raw[normalize.FieldDate] = ts
		} else {
			raw[normalize.FieldDate] = date.Text()
		}
		raw[normalize.FieldSeeds] = cells.Eq(5).Text()
		if cells.Length() > 6 {
			raw[normalize.FieldLeechers] = cells.Eq(6).Text()
		}

		raw[normalize.FieldCategory] = nyaaCategory(cells.Eq(0).Find("a").AttrOr("title", ""))
		raw[normalize.FieldVerified] = row.HasClass("success")

		out = append(out, raw)
		return true
	})
	return out, nil
}

// nyaaCategory maps titles such as "Anime - English-translated".
func nyaaCategory(title string) types.Category {
	lower := strings.ToLower(title)
	switch {
	case lower == "":
		return types.CategoryAnime
	case strings.HasPrefix(lower, "anime"), strings.HasPrefix(lower, "live action"):
		return types.CategoryAnime
	case strings.HasPrefix(lower, "audio"):
		return types.CategoryMusic
	case strings.HasPrefix(lower, "literature"), strings.Contains(lower, "manga"):
		return types.CategoryBooks
	case strings.Contains(lower, "games"):
		return types.CategoryGames
	case strings.HasPrefix(lower, "software"):
		return types.CategorySoftware
	}
	return types.CategoryOther
}

var (
	leadingGroup = regexp.MustCompile(`^\s*\[[^\]]*\]\s*`)
	bracketTags  = regexp.MustCompile(`(?i)\s*\[(?:\d{3,4}p|[0-9a-fA-F]{8}|(?:web|bd|dvd)[^\]]*|hevc[^\]]*|x26[45][^\]]*)\]`)
)

// NyaaTitle strips the release group prefix and quality or checksum tags
// from an anime release name, falling back to the original text when
// nothing would be left.
func NyaaTitle(s string) string {
	s = normalize.CleanText(s)
	clean := leadingGroup.ReplaceAllString(s, "")
	clean = normalize.CleanText(bracketTags.ReplaceAllString(clean, ""))
	if clean == "" {
		return s
	}
	return clean
}
