// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/torrify/internal/normalize"
	"github.com/pdiddy/torrify/pkg/types"
)

// LeetX scrapes 1337x. Its listing has no magnet links, so rows are marked
// for enrichment and Enrich fetches the magnet from the detail page.
type LeetX struct {
	*Behavior
}

// NewLeetX wraps b as a 1337x adapter.
func NewLeetX(b *Behavior) *LeetX { return &LeetX{Behavior: b} }

var errNoMagnet = errors.New("no magnet link on detail page")

// Search queries /search/<q>/1/.
func (a *LeetX) Search(ctx context.Context, query string, limit int) types.AdapterResult {
	return a.Run(ctx, query, limit, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		policy := MirrorPolicy{MinBodyLength: 1000}
		build := func(base string) string {
			return base + "/search/" + url.PathEscape(q) + "/1/"
		}
		return a.TryMirrors(ctx, q, limit, policy, build, parseLeetX)
	})
}

func parseLeetX(page *Page, base string, limit int) ([]normalize.Raw, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, Errorf(types.KindParse, "parsing html: %w", err)
	}

	var out []normalize.Raw
	doc.Find("table.table-list tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		name := row.Find("td.name")
		title := name.Find(`a[href^="/torrent/"]`).First()
		if title.Length() == 0 {
			return true
		}

		raw := normalize.Raw{
			normalize.FieldTitle:    title.Text(),
			normalize.FieldSeeds:    row.Find("td.seeds").Text(),
			normalize.FieldLeechers: row.Find("td.leeches").Text(),
			normalize.FieldDate:     row.Find("td.coll-date").Text(),
			// The size cell repeats the seed count in a nested span.
			normalize.FieldSize:     row.Find("td.size").Contents().First().Text(),
			normalize.FieldCategory: leetxCategory(name.Find("a.icon i").AttrOr("class", "")),
			normalize.FieldVerified: row.Find("td.vip, td.trusted-uploader").Length() > 0,
		}
		if href, ok := title.Attr("href"); ok {
			raw[normalize.FieldLink] = absURL(base, href)
			raw[normalize.FieldEnrich] = true
		}
		out = append(out, raw)
		return true
	})
	return out, nil
}

// leetxCategory maps the icon class of the category link.
func leetxCategory(class string) types.Category {
	switch {
	case class == "":
		return ""
	case strings.Contains(class, "flaticon-tv"):
		return types.CategoryTV
	case strings.Contains(class, "flaticon-anime"):
		return types.CategoryAnime
	case strings.Contains(class, "flaticon-hd"), strings.Contains(class, "flaticon-movie"),
		strings.Contains(class, "flaticon-dvd"), strings.Contains(class, "flaticon-divx"):
		return types.CategoryMovies
	case strings.Contains(class, "flaticon-music"), strings.Contains(class, "flaticon-mp3"):
		return types.CategoryMusic
	case strings.Contains(class, "flaticon-games"):
		return types.CategoryGames
	case strings.Contains(class, "flaticon-apps"), strings.Contains(class, "flaticon-windows"),
		strings.Contains(class, "flaticon-linux"), strings.Contains(class, "flaticon-mac"):
		return types.CategorySoftware
	case strings.Contains(class, "flaticon-ebook"):
		return types.CategoryBooks
	}
	return types.CategoryOther
}

// Enrich fetches r's detail page and fills in its magnet link.
func (a *LeetX) Enrich(ctx context.Context, r types.Result) (types.Result, error) {
	if r.ExternalLink == "" {
		return r, Errorf(types.KindParse, "no detail link for %q", r.Title)
	}
	page, err := a.Fetch(ctx, r.ExternalLink, acceptHTML)
	if err != nil {
		return r, err
	}

	magnet := ""
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body)); err == nil {
		doc.Find(`a[href^="magnet:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href := s.AttrOr("href", "")
			if normalize.ValidMagnet(href) {
				magnet = href
				return false
			}
			return true
		})
	}
	if magnet == "" {
		magnet = normalize.ExtractMagnet(string(page.Body))
	}
	if magnet == "" {
		return r, &Error{Kind: types.KindParse, Source: a.Name(), Err: errNoMagnet}
	}

	r.MagnetLink = magnet
	r.InfoHash = normalize.InfoHash(magnet)
	r.NeedsEnrichment = false
	return r, nil
}
