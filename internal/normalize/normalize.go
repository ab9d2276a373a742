// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts loosely typed per-source rows into the canonical
// result shape, and deduplicates and ranks canonical results.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/pdiddy/torrify/pkg/types"
)

// Raw is the untyped field bag an adapter fills while parsing one row.
// It never leaves the adapter: Normalize is the only consumer.
type Raw map[string]any

// Field names understood by Normalize.
const (
	FieldTitle    = "title"
	FieldMagnet   = "magnet"
	FieldHash     = "hash" // bare info hash, used to build a magnet when none is given
	FieldSeeds    = "seeds"
	FieldLeechers = "leechers"
	FieldSize     = "size" // free-form string ("1.5 GB") or a byte count
	FieldDate     = "date" // string, unix seconds, or time.Time
	FieldLink     = "link"
	FieldCategory = "category"
	FieldVerified = "verified"
	FieldEnrich   = "needs_enrichment"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	nonDigit   = regexp.MustCompile(`[^0-9]`)
)

// Normalize coerces raw into a Result stamped with source. It reports false
// when the row has no usable title and must be dropped.
func Normalize(raw Raw, source string, now time.Time) (types.Result, bool) {
	title := CleanText(cast.ToString(raw[FieldTitle]))
	if title == "" {
		return types.Result{}, false
	}

	r := types.Result{
		Title:           title,
		Seeds:           ToCount(raw[FieldSeeds]),
		Leechers:        ToCount(raw[FieldLeechers]),
		SizeBytes:       toSize(raw[FieldSize]),
		UploadedAt:      toTime(raw[FieldDate], now),
		Source:          source,
		ExternalLink:    strings.TrimSpace(cast.ToString(raw[FieldLink])),
		Category:        toCategory(raw[FieldCategory]),
		Verified:        cast.ToBool(raw[FieldVerified]),
		NeedsEnrichment: cast.ToBool(raw[FieldEnrich]),
	}

	magnet := strings.TrimSpace(cast.ToString(raw[FieldMagnet]))
	if magnet == "" {
		if hash := cast.ToString(raw[FieldHash]); hash != "" {
			magnet = BuildMagnet(hash, title)
		}
	}
	if ValidMagnet(magnet) {
		r.MagnetLink = magnet
		r.InfoHash = InfoHash(magnet)
	}
	return r, true
}

// CleanText collapses runs of whitespace, including non-breaking spaces, and
// trims the result.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// ToCount coerces a seed or leech count. Strings keep only their digits so
// "1,234" reads as 1234; negative or unreadable values become 0.
func ToCount(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		s := strings.TrimSpace(x)
		if strings.HasPrefix(s, "-") {
			return 0
		}
		s = strings.TrimLeft(nonDigit.ReplaceAllString(s, ""), "0")
		if s == "" {
			return 0
		}
		n, err := cast.ToIntE(s)
		if err != nil || n < 0 {
			return 0
		}
		return n
	default:
		n, err := cast.ToIntE(x)
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
}

func toSize(v any) int64 {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return ParseSize(x)
	default:
		n, err := cast.ToInt64E(x)
		if err != nil || n < 0 {
			return 0
		}
		return n
	}
}

func toTime(v any, now time.Time) time.Time {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return now
		}
		return x
	case *time.Time:
		if x == nil || x.IsZero() {
			return now
		}
		return *x
	case string:
		return ParseDate(x, now)
	case nil:
		return now
	default:
		secs, err := cast.ToInt64E(x)
		if err != nil || secs <= 0 {
			return now
		}
		return time.Unix(secs, 0).UTC()
	}
}

func toCategory(v any) types.Category {
	s := strings.TrimSpace(cast.ToString(v))
	if s == "" {
		return ""
	}
	if c, ok := types.ParseCategory(s); ok {
		return c
	}
	return types.CategoryOther
}
