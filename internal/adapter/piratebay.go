// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/torrify/internal/normalize"
	"github.com/pdiddy/torrify/pkg/types"
)

// PirateBay scrapes the HTML search listing of The Pirate Bay and its
// mirrors.
type PirateBay struct {
	*Behavior
}

// NewPirateBay wraps b as a Pirate Bay adapter.
func NewPirateBay(b *Behavior) *PirateBay { return &PirateBay{Behavior: b} }

var (
	tpbSizePattern     = regexp.MustCompile(`(?i)size[:\s]+([\d.,]+\s*[kmgt]?i?b)`)
	tpbUploadedPattern = regexp.MustCompile(`(?i)uploaded[:\s]+([^,]+)`)
	errNotPirateBay    = errors.New("page does not look like a Pirate Bay listing")
)

// Search queries /search/<q>/1/99/0, ordered by seeders.
func (a *PirateBay) Search(ctx context.Context, query string, limit int) types.AdapterResult {
	return a.Run(ctx, query, limit, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		policy := MirrorPolicy{
			MinBodyLength: 1000,
			Validate: func(body []byte) error {
				lower := bytes.ToLower(body)
				if bytes.Contains(lower, []byte("iframe")) && bytes.Contains(lower, []byte("blocked")) {
					return errNotPirateBay
				}
				if !bytes.Contains(lower, []byte("search")) && !bytes.Contains(lower, []byte("torrent")) {
					return errNotPirateBay
				}
				return nil
			},
		}
		build := func(base string) string {
			return base + "/search/" + url.PathEscape(q) + "/1/99/0"
		}
		return a.TryMirrors(ctx, q, limit, policy, build, parsePirateBay)
	})
}

func parsePirateBay(page *Page, base string, limit int) ([]normalize.Raw, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, Errorf(types.KindParse, "parsing html: %w", err)
	}

	rows := doc.Find("table#searchResult tr")
	if rows.Length() == 0 {
		rows = doc.Find("table tbody tr")
	}

	var out []normalize.Raw
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		cells := row.Find("td")
		if cells.Length() < 3 {
			return true
		}

		raw := normalize.Raw{}
		title, link := "", ""
		row.Find("a").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			text := normalize.CleanText(a.Text())
			switch {
			case strings.HasPrefix(href, "magnet:"):
				raw[normalize.FieldMagnet] = href
			case strings.Contains(href, "/torrent/") && text != "" && title == "":
				title, link = text, href
			}
		})
		if title == "" {
			title = normalize.CleanText(row.Find(".detName").Text())
		}
		raw[normalize.FieldTitle] = title
		if link != "" {
			raw[normalize.FieldLink] = absURL(base, link)
		}

		n := cells.Length()
		raw[normalize.FieldSeeds] = cells.Eq(n - 2).Text()
		raw[normalize.FieldLeechers] = cells.Eq(n - 1).Text()

		text := normalize.CleanText(row.Find(".detDesc").Text())
		if text == "" {
			text = normalize.CleanText(row.Text())
		}
		if m := tpbSizePattern.FindStringSubmatch(text); m != nil {
			raw[normalize.FieldSize] = m[1]
		}
		if m := tpbUploadedPattern.FindStringSubmatch(text); m != nil {
			raw[normalize.FieldDate] = m[1]
		}

		raw[normalize.FieldCategory] = pirateBayCategory(cells.Eq(0).Text())
		raw[normalize.FieldVerified] = row.Find(`img[title*="VIP"], img[title*="Trusted"], img[alt*="VIP"], img[alt*="Trusted"]`).Length() > 0

		out = append(out, raw)
		return true
	})
	return out, nil
}

// pirateBayCategory maps the "Video > Movies" style first cell.
func pirateBayCategory(text string) types.Category {
	lower := strings.ToLower(normalize.CleanText(text))
	switch {
	case strings.Contains(lower, "tv"):
		return types.CategoryTV
	case strings.Contains(lower, "video"):
		return types.CategoryMovies
	case strings.Contains(lower, "audio"):
		return types.CategoryMusic
	case strings.Contains(lower, "application"), strings.Contains(lower, "app"):
		return types.CategorySoftware
	case strings.Contains(lower, "game"):
		return types.CategoryGames
	case strings.Contains(lower, "e-book"), strings.Contains(lower, "comic"):
		return types.CategoryBooks
	case lower == "":
		return ""
	}
	return types.CategoryOther
}

// absURL resolves href against base.
func absURL(base, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return base + href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return base + href
	}
	return b.ResolveReference(ref).String()
}
