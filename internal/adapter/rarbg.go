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

// RARBG scrapes the rargb.to family of RARBG clones. The clones are often
// parked or replaced by unrelated content, so rows must mention the query.
type RARBG struct {
	*Behavior
}

// NewRARBG wraps b as a RARBG adapter.
func NewRARBG(b *Behavior) *RARBG { return &RARBG{Behavior: b} }

// Search queries /search/?search=<query>.
func (a *RARBG) Search(ctx context.Context, query string, limit int) types.AdapterResult {
	return a.Run(ctx, query, limit, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		policy := MirrorPolicy{MinBodyLength: 500, RequireMatch: true}
		build := func(base string) string {
			return base + "/search/?" + url.Values{"search": {q}}.Encode()
		}
		return a.TryMirrors(ctx, q, limit, policy, build, parseRARBG)
	})
}

func parseRARBG(page *Page, base string, limit int) ([]normalize.Raw, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, Errorf(types.KindParse, "parsing html: %w", err)
	}

	rows := doc.Find("table.lista2t tr.lista2")
	if rows.Length() == 0 {
		rows = doc.Find("table.lista2t tr")
	}

	var out []normalize.Raw
	rows.EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if limit > 0 && len(out) >= limit {
			return false
		}
		cells := row.Find("td")
		if cells.Length() < 6 {
			return true
		}
		title := cells.Eq(1).Find(`a[href^="/torrent/"]`).First()
		if title.Length() == 0 {
			title = cells.Eq(1).Find("a").First()
		}
		name := title.AttrOr("title", title.Text())

		raw := normalize.Raw{
			normalize.FieldTitle:    name,
			normalize.FieldDate:     cells.Eq(2).Text(),
			normalize.FieldSize:     cells.Eq(3).Text(),
			normalize.FieldSeeds:    cells.Eq(4).Text(),
			normalize.FieldLeechers: cells.Eq(5).Text(),
			normalize.FieldCategory: rarbgCategory(cells.Eq(0).Find("a").AttrOr("href", ""), name),
		}
		if href, ok := title.Attr("href"); ok {
			raw[normalize.FieldLink] = absURL(base, href)
		}
		if href, ok := row.Find(`a[href^="magnet:"]`).Attr("href"); ok {
			raw[normalize.FieldMagnet] = href
		}
		out = append(out, raw)
		return true
	})
	return out, nil
}

// rarbgCategory prefers the category link ("/movies/", "/tv/") and falls
// back to guessing from the release name.
func rarbgCategory(href, title string) types.Category {
	h := strings.ToLower(href)
	switch {
	case strings.Contains(h, "movies"):
		return types.CategoryMovies
	case strings.Contains(h, "tv"):
		return types.CategoryTV
	case strings.Contains(h, "games"):
		return types.CategoryGames
	case strings.Contains(h, "music"):
		return types.CategoryMusic
	case strings.Contains(h, "software"), strings.Contains(h, "apps"):
		return types.CategorySoftware
	}
	return CategoryFromText(title)
}

var (
	episodePattern  = regexp.MustCompile(`(?i)\bs\d{1,2}(?:e\d{1,3})?\b|\bseason\b|\bepisode\b`)
	moviePattern    = regexp.MustCompile(`(?i)\b(?:movie|720p|1080p|2160p|bluray|blu-ray|brrip|webrip|dvdrip)\b`)
	gamePattern     = regexp.MustCompile(`(?i)\b(?:game|pc|xbox|ps[345]|switch|repack)\b`)
	softwarePattern = regexp.MustCompile(`(?i)\b(?:software|app|crack|keygen|x64|portable)\b`)
)

// CategoryFromText guesses a category from a release name. Episode markers
// win over quality tags since TV releases carry both.
func CategoryFromText(title string) types.Category {
	switch {
	case episodePattern.MatchString(title):
		return types.CategoryTV
	case moviePattern.MatchString(title):
		return types.CategoryMovies
	case gamePattern.MatchString(title):
		return types.CategoryGames
	case softwarePattern.MatchString(title):
		return types.CategorySoftware
	}
	return types.CategoryOther
}
