// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/pdiddy/torrify/internal/normalize"
	"github.com/pdiddy/torrify/pkg/types"
)

// YTS queries the YTS movie API. Each movie expands into one row per
// available quality.
type YTS struct {
	*Behavior
}

// NewYTS wraps b as a YTS adapter.
func NewYTS(b *Behavior) *YTS { return &YTS{Behavior: b} }

type ytsResponse struct {
	Status        string `json:"status"`
	StatusMessage string `json:"status_message"`
	Data          struct {
		MovieCount int        `json:"movie_count"`
		Movies     []ytsMovie `json:"movies"`
	} `json:"data"`
}

type ytsMovie struct {
	TitleLong string       `json:"title_long"`
	URL       string       `json:"url"`
	Torrents  []ytsTorrent `json:"torrents"`
}

type ytsTorrent struct {
	Hash             string `json:"hash"`
	Quality          string `json:"quality"`
	Type             string `json:"type"`
	Seeds            int    `json:"seeds"`
	Peers            int    `json:"peers"`
	SizeBytes        int64  `json:"size_bytes"`
	DateUploadedUnix int64  `json:"date_uploaded_unix"`
}

// Search calls /api/v2/list_movies.json?query_term=<query>.
func (a *YTS) Search(ctx context.Context, query string, limit int) types.AdapterResult {
	return a.Run(ctx, query, limit, func(ctx context.Context, q string, limit int) ([]types.Result, error) {
		policy := MirrorPolicy{Accept: acceptJSON, MinBodyLength: 2}
		build := func(base string) string {
			v := url.Values{"query_term": {q}, "sort_by": {"seeds"}}
			if limit > 0 {
				v.Set("limit", strconv.Itoa(min(limit, 50)))
			}
			return base + "/api/v2/list_movies.json?" + v.Encode()
		}
		return a.TryMirrors(ctx, q, limit, policy, build, parseYTS)
	})
}

func parseYTS(page *Page, _ string, limit int) ([]normalize.Raw, error) {
	var resp ytsResponse
	if err := json.Unmarshal(page.Body, &resp); err != nil {
		return nil, Errorf(types.KindParse, "decoding yts response: %w", err)
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, Errorf(types.KindParse, "yts status %q: %w", resp.Status, errors.New(resp.StatusMessage))
	}

	var out []normalize.Raw
	for _, m := range resp.Data.Movies {
		for _, t := range m.Torrents {
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
			title := m.TitleLong
			if t.Quality != "" {
				title = fmt.Sprintf("%s [%s]", title, t.Quality)
			}
			out = append(out, normalize.Raw{
				normalize.FieldTitle:    title + " [YTS]",
				normalize.FieldHash:     t.Hash,
				normalize.FieldSeeds:    t.Seeds,
				normalize.FieldLeechers: t.Peers,
				normalize.FieldSize:     t.SizeBytes,
				normalize.FieldDate:     t.DateUploadedUnix,
				normalize.FieldCategory: types.CategoryMovies,
				normalize.FieldVerified: true,
				normalize.FieldLink:     m.URL,
			})
		}
	}
	return out, nil
}
