// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by every stage of the
// torrify search pipeline: the canonical result shape, per-source envelopes,
// the aggregate response, and process configuration.
package types

import (
	"strings"
	"time"
)

// Category classifies a listing. The zero value means the source did not
// report one.
type Category string

const (
	CategoryMovies   Category = "movies"
	CategoryTV       Category = "tv"
	CategoryAnime    Category = "anime"
	CategoryMusic    Category = "music"
	CategoryGames    Category = "games"
	CategorySoftware Category = "software"
	CategoryBooks    Category = "books"
	CategoryOther    Category = "other"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryMovies, CategoryTV, CategoryAnime, CategoryMusic,
	CategoryGames, CategorySoftware, CategoryBooks, CategoryOther,
}

// ParseCategory maps a loosely spelled category name onto a Category.
// Unknown names return false.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "movie", "movies", "film", "films":
		return CategoryMovies, true
	case "tv", "television", "series", "shows":
		return CategoryTV, true
	case "anime":
		return CategoryAnime, true
	case "music", "audio":
		return CategoryMusic, true
	case "game", "games":
		return CategoryGames, true
	case "software", "apps", "app", "applications":
		return CategorySoftware, true
	case "book", "books", "ebooks", "literature":
		return CategoryBooks, true
	case "other", "others", "misc":
		return CategoryOther, true
	}
	return "", false
}

// Result is the canonical listing passed between every stage after
// normalization.
type Result struct {
	// Title is the display name. Never empty once normalized.
	Title string `json:"title" yaml:"title"`

	// MagnetLink is a magnet URI with a 40-hex btih component, or empty.
	MagnetLink string `json:"magnetLink" yaml:"magnet_link,omitempty"`

	// InfoHash is the lowercase hash extracted from MagnetLink, or empty.
	InfoHash string `json:"infoHash,omitempty" yaml:"info_hash,omitempty"`

	Seeds    int `json:"seeds" yaml:"seeds"`
	Leechers int `json:"leechers" yaml:"leechers"`

	// SizeBytes is the payload size using binary multiples.
	SizeBytes int64 `json:"sizeBytes" yaml:"size_bytes"`

	// UploadedAt is when the listing was published at the origin site.
	UploadedAt time.Time `json:"uploadedAt" yaml:"uploaded_at"`

	// Source is the display name of the adapter that produced the row.
	Source string `json:"source" yaml:"source"`

	// ExternalLink is the detail page at the origin site.
	ExternalLink string `json:"externalLink,omitempty" yaml:"external_link,omitempty"`

	Category Category `json:"category,omitempty" yaml:"category,omitempty"`

	// Verified is set when the origin site marks the uploader as trusted.
	Verified bool `json:"verified" yaml:"verified"`

	// NeedsEnrichment marks rows whose magnet must be fetched from the
	// detail page in a second hop.
	NeedsEnrichment bool `json:"-" yaml:"-"`
}

// Health is the seed-to-leech ratio, or the seed count when nobody leeches.
func (r Result) Health() float64 {
	if r.Leechers > 0 {
		return float64(r.Seeds) / float64(r.Leechers)
	}
	return float64(r.Seeds)
}

// ErrorKind classifies why an adapter call failed.
type ErrorKind string

const (
	KindTimeout      ErrorKind = "timeout"
	KindTransport    ErrorKind = "transport"
	KindParse        ErrorKind = "parse"
	KindBlocked      ErrorKind = "blocked"
	KindDisabled     ErrorKind = "disabled"
	KindCircuitOpen  ErrorKind = "circuit_open"
	KindNotAttempted ErrorKind = "not_attempted"
	KindUnknown      ErrorKind = "unknown"
)

// AdapterResult is the per-source envelope produced for every adapter call.
type AdapterResult struct {
	Source    string    `json:"source" yaml:"source"`
	Results   []Result  `json:"-" yaml:"-"`
	Count     int       `json:"count" yaml:"count"`
	Success   bool      `json:"success" yaml:"success"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind ErrorKind `json:"errorKind,omitempty" yaml:"error_kind,omitempty"`
	ElapsedMS int64     `json:"elapsedMs" yaml:"elapsed_ms"`
}

// Failed builds an unsuccessful envelope for source.
func Failed(source string, kind ErrorKind, msg string) AdapterResult {
	return AdapterResult{
		Source:    source,
		Results:   []Result{},
		Error:     msg,
		ErrorKind: kind,
	}
}

// SortKey selects the ranking field.
type SortKey string

const (
	SortSeeds    SortKey = "seeds"
	SortLeechers SortKey = "leechers"
	SortSize     SortKey = "size"
	SortDate     SortKey = "date"
	SortHealth   SortKey = "health"
)

// ParseSortKey accepts both the short query names and the field names.
// Anything unrecognised sorts by seeds.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leechers", "peers":
		return SortLeechers
	case "size", "sizebytes":
		return SortSize
	case "date", "uploadedat", "uploaded":
		return SortDate
	case "health":
		return SortHealth
	}
	return SortSeeds
}

// SearchParams is the single input accepted by the search service.
type SearchParams struct {
	Query     string   `json:"query" yaml:"query"`
	Sources   []string `json:"sources,omitempty" yaml:"sources,omitempty"`
	Category  string   `json:"category,omitempty" yaml:"category,omitempty"`
	SortBy    SortKey  `json:"sortBy,omitempty" yaml:"sort_by,omitempty"`
	SortOrder string   `json:"sortOrder,omitempty" yaml:"sort_order,omitempty"`
	Limit     int      `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// SearchResponse is the aggregate returned to callers.
type SearchResponse struct {
	Results    []Result        `json:"results" yaml:"results"`
	TotalCount int             `json:"totalCount" yaml:"total_count"`
	Sources    []AdapterResult `json:"sources" yaml:"sources"`
	Query      string          `json:"query" yaml:"query"`
	Cached     bool            `json:"cached" yaml:"cached"`

	// DuplicatesRemoved counts rows dropped by info-hash deduplication.
	DuplicatesRemoved int   `json:"duplicatesRemoved" yaml:"duplicates_removed"`
	ExecutionTimeMS   int64 `json:"executionTimeMs" yaml:"execution_time_ms"`
}

// Clone returns a copy whose slices can be modified without affecting r.
func (r SearchResponse) Clone() SearchResponse {
	out := r
	out.Results = append([]Result(nil), r.Results...)
	out.Sources = append([]AdapterResult(nil), r.Sources...)
	if out.Results == nil {
		out.Results = []Result{}
	}
	if out.Sources == nil {
		out.Sources = []AdapterResult{}
	}
	return out
}
