// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/torrify/internal/normalize"
	"github.com/pdiddy/torrify/pkg/types"
)

// MirrorPolicy controls when a mirror's answer is accepted.
type MirrorPolicy struct {
	// Accept is sent as the Accept header.
	Accept string

	// MinBodyLength rejects bodies shorter than this as block pages.
	MinBodyLength int

	// RequireMatch keeps only rows whose title contains the query and
	// rejects a mirror that returned rows but none matching.
	RequireMatch bool

	// Validate may reject a page before parsing, for instance when it does
	// not look like the expected site.
	Validate func(body []byte) error
}

// ParseFunc turns a fetched page into raw rows. base is the mirror that
// served the page so relative links can be resolved. Rows returned with an
// error are treated as a partial parse.
type ParseFunc func(page *Page, base string, limit int) ([]normalize.Raw, error)

// TryMirrors fetches buildURL(base) for the base URL and each mirror in
// order and returns the rows of the first acceptable answer. A mirror is
// skipped when the fetch fails, the body looks blocked, parsing fails
// without rows, or the rows do not match the query under RequireMatch.
// A mirror answering with zero rows is remembered and returned only if no
// later mirror does better.
func (b *Behavior) TryMirrors(ctx context.Context, query string, limit int, policy MirrorPolicy, buildURL func(base string) string, parse ParseFunc) ([]types.Result, error) {
	endpoints := b.cfg.Endpoints()
	if len(endpoints) == 0 {
		return nil, Errorf(types.KindTransport, "no endpoints configured")
	}
	if policy.Accept == "" {
		policy.Accept = acceptHTML
	}

	var (
		failures []string
		lastKind types.ErrorKind = types.KindTransport
		empty    bool
	)
	reject := func(base string, kind types.ErrorKind, err error) {
		failures = append(failures, fmt.Sprintf("%s: %v", base, err))
		lastKind = kind
		b.log.Info("mirror rejected",
			zap.String("mirror", base),
			zap.String("kind", string(kind)),
			zap.Error(err))
	}

	for _, base := range endpoints {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Kind: types.KindTimeout, Source: b.Name(), Err: err}
		}

		page, err := b.Fetch(ctx, buildURL(base), policy.Accept)
		if err != nil {
			reject(base, KindOf(err), err)
			continue
		}
		if LooksBlocked(page.Body, policy.MinBodyLength) {
			reject(base, types.KindBlocked, fmt.Errorf("block page (%d bytes)", len(page.Body)))
			continue
		}
		if policy.Validate != nil {
			if err := policy.Validate(page.Body); err != nil {
				reject(base, types.KindBlocked, err)
				continue
			}
		}

		raws, perr := parse(page, base, limit)
		rows := b.normalizeRows(raws)
		if perr != nil {
			if len(rows) > 0 {
				return rows, &Error{Kind: types.KindParse, Source: b.Name(), Err: perr}
			}
			reject(base, types.KindParse, perr)
			continue
		}

		if policy.RequireMatch && len(rows) > 0 {
			matching := MatchingRows(rows, query)
			if len(matching) == 0 {
				reject(base, types.KindBlocked, fmt.Errorf("%d rows, none matching %q", len(rows), query))
				continue
			}
			rows = matching
		}

		if len(rows) == 0 {
			empty = true
			continue
		}
		return rows, nil
	}

	if empty {
		return []types.Result{}, nil
	}
	return nil, &Error{
		Kind:   lastKind,
		Source: b.Name(),
		Err:    fmt.Errorf("all mirrors failed: %s", strings.Join(failures, "; ")),
	}
}

// normalizeRows converts raw rows into results, dropping untitled ones.
func (b *Behavior) normalizeRows(raws []normalize.Raw) []types.Result {
	now := b.now()
	out := make([]types.Result, 0, len(raws))
	for _, raw := range raws {
		if r, ok := normalize.Normalize(raw, b.Name(), now); ok {
			out = append(out, r)
		}
	}
	return out
}

var nonAlnum = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// matchKey lowercases s and turns punctuation runs into single spaces so
// "Big.Buck.Bunny" matches "big buck bunny".
func matchKey(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

// MatchingRows keeps the rows whose title contains the query.
func MatchingRows(rows []types.Result, query string) []types.Result {
	q := matchKey(query)
	if q == "" {
		return rows
	}
	var out []types.Result
	for _, r := range rows {
		if strings.Contains(matchKey(r.Title), q) {
			out = append(out, r)
		}
	}
	return out
}
