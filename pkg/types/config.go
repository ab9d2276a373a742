// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultUserAgent is sent when no adapter or global override is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// HTTPConfig holds shared HTTP settings used by every adapter that makes
// network requests.
type HTTPConfig struct {
	// Timeout bounds a single outbound request, mirrors included.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AdapterConfig holds the per-source settings read once at start.
type AdapterConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// DisplayName is the human-facing source name stamped on results.
	DisplayName string `json:"display_name" yaml:"display_name" mapstructure:"display_name"`

	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// BaseURL is the primary endpoint; Mirrors are tried in order after it.
	BaseURL string   `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Mirrors []string `json:"mirrors,omitempty" yaml:"mirrors,omitempty" mapstructure:"mirrors"`

	// RateLimit is the minimum delay between two requests from this adapter.
	RateLimit time.Duration `json:"rate_limit" yaml:"rate_limit" mapstructure:"rate_limit"`

	// Categories lists the categories this source is selected for.
	Categories []Category `json:"categories" yaml:"categories" mapstructure:"categories"`

	// UseBrowser asks for headless-browser rendering when the process
	// allows it.
	UseBrowser bool `json:"use_browser" yaml:"use_browser" mapstructure:"use_browser"`
}

// Endpoints returns BaseURL followed by every distinct mirror.
func (c AdapterConfig) Endpoints() []string {
	seen := make(map[string]bool, len(c.Mirrors)+1)
	var out []string
	for _, u := range append([]string{c.BaseURL}, c.Mirrors...) {
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// SearchConfig holds settings for the fan-out stage.
type SearchConfig struct {
	// SearchTimeout bounds each adapter call (default 15s).
	SearchTimeout time.Duration `json:"search_timeout" yaml:"search_timeout" mapstructure:"search_timeout"`

	// RequestTimeout bounds the whole request; unlaunched batches are
	// reported as not attempted once it fires (default 45s).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	// MaxConcurrent is the batch size of the fan-out (default 4).
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent" mapstructure:"max_concurrent"`

	// BatchCooldown is the pause between batches (default 1s).
	BatchCooldown time.Duration `json:"batch_cooldown" yaml:"batch_cooldown" mapstructure:"batch_cooldown"`

	// PerSourceLimit bounds the rows each adapter parses (default 50).
	PerSourceLimit int `json:"per_source_limit" yaml:"per_source_limit" mapstructure:"per_source_limit"`

	// DefaultLimit and MaxLimit bound the ranked result list.
	DefaultLimit int `json:"default_limit" yaml:"default_limit" mapstructure:"default_limit"`
	MaxLimit     int `json:"max_limit" yaml:"max_limit" mapstructure:"max_limit"`

	// EnrichTimeout and EnrichConcurrency bound the magnet backfill stage.
	EnrichTimeout     time.Duration `json:"enrich_timeout" yaml:"enrich_timeout" mapstructure:"enrich_timeout"`
	EnrichConcurrency int           `json:"enrich_concurrency" yaml:"enrich_concurrency" mapstructure:"enrich_concurrency"`
}

// CacheConfig holds settings for the response cache.
type CacheConfig struct {
	Capacity int           `json:"capacity" yaml:"capacity" mapstructure:"capacity"`
	TTL      time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// SweepInterval is how often expired entries are evicted (default 1m).
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval" mapstructure:"sweep_interval"`

	// WarmQueries are searched on start and then on WarmSchedule.
	WarmQueries  []string `json:"warm_queries,omitempty" yaml:"warm_queries,omitempty" mapstructure:"warm_queries"`
	WarmSchedule string   `json:"warm_schedule,omitempty" yaml:"warm_schedule,omitempty" mapstructure:"warm_schedule"`
}

// BrowserConfig is the capability flag for headless-browser adapters.
type BrowserConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// ExecPath overrides the Chrome binary lookup.
	ExecPath string `json:"exec_path,omitempty" yaml:"exec_path,omitempty" mapstructure:"exec_path"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`

	// CacheMaxAge is advertised in the Cache-Control header of successful
	// responses.
	CacheMaxAge time.Duration `json:"cache_max_age" yaml:"cache_max_age" mapstructure:"cache_max_age"`
}

// Config groups all settings for the process.
type Config struct {
	HTTP     HTTPConfig               `json:"http" yaml:"http" mapstructure:"http"`
	Search   SearchConfig             `json:"search" yaml:"search" mapstructure:"search"`
	Cache    CacheConfig              `json:"cache" yaml:"cache" mapstructure:"cache"`
	Browser  BrowserConfig            `json:"browser" yaml:"browser" mapstructure:"browser"`
	Server   ServerConfig             `json:"server" yaml:"server" mapstructure:"server"`
	Adapters map[string]AdapterConfig `json:"adapters" yaml:"adapters" mapstructure:"adapters"`

	// AdapterOrder fixes the fan-out order; keys missing here follow in
	// alphabetical order.
	AdapterOrder []string `json:"adapter_order,omitempty" yaml:"adapter_order,omitempty" mapstructure:"adapter_order"`
}

// DefaultConfig returns the settings used when no configuration file is
// present.
func DefaultConfig() Config {
	const (
		timeout = 15 * time.Second
		rate    = time.Second
	)
	return Config{
		HTTP: HTTPConfig{Timeout: timeout, UserAgent: DefaultUserAgent},
		Search: SearchConfig{
			SearchTimeout:     15 * time.Second,
			RequestTimeout:    45 * time.Second,
			MaxConcurrent:     4,
			BatchCooldown:     time.Second,
			PerSourceLimit:    50,
			DefaultLimit:      50,
			MaxLimit:          200,
			EnrichTimeout:     8 * time.Second,
			EnrichConcurrency: 4,
		},
		Cache: CacheConfig{
			Capacity:      1000,
			TTL:           15 * time.Minute,
			SweepInterval: time.Minute,
			WarmSchedule:  "@every 10m",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			CacheMaxAge:     60 * time.Second,
		},
		AdapterOrder: []string{"piratebay", "apibay", "nyaa", "nyaarss", "yts", "leetx", "rarbg"},
		Adapters: map[string]AdapterConfig{
			"piratebay": {
				DisplayName: "The Pirate Bay",
				Enabled:     true,
				BaseURL:     "https://piratebay.live",
				Mirrors:     []string{"https://thepiratebay7.com", "https://thepiratebay0.org", "https://thepiratebay.zone", "https://tpb.party"},
				HTTPConfig:  HTTPConfig{Timeout: timeout},
				RateLimit:   rate,
				Categories:  Categories,
			},
			"apibay": {
				DisplayName: "TPB API",
				Enabled:     true,
				BaseURL:     "https://apibay.org",
				HTTPConfig:  HTTPConfig{Timeout: timeout},
				RateLimit:   rate,
				Categories:  Categories,
			},
			"nyaa": {
				DisplayName: "Nyaa",
				Enabled:     true,
				BaseURL:     "https://nyaa.si",
				Mirrors:     []string{"https://nyaa.net"},
				HTTPConfig:  HTTPConfig{Timeout: timeout},
				RateLimit:   rate,
				Categories:  []Category{CategoryAnime, CategoryMusic, CategoryBooks},
				UseBrowser:  true,
			},
			"nyaarss": {
				DisplayName: "Nyaa RSS",
				Enabled:     false,
				BaseURL:     "https://nyaa.si",
				HTTPConfig:  HTTPConfig{Timeout: timeout},
				RateLimit:   rate,
				Categories:  []Category{CategoryAnime},
			},
			"yts": {
				DisplayName: "YTS",
				Enabled:     false,
				BaseURL:     "https://yts.mx",
				HTTPConfig:  HTTPConfig{Timeout: timeout},
				RateLimit:   rate / 2,
				Categories:  []Category{CategoryMovies},
			},
			"leetx": {
				DisplayName: "1337x",
				Enabled:     false,
				BaseURL:     "https://1337x.to",
				HTTPConfig:  HTTPConfig{Timeout: timeout * 6 / 5},
				RateLimit:   rate * 3 / 2,
				Categories:  []Category{CategoryMovies, CategoryTV, CategoryAnime, CategoryMusic, CategoryGames, CategorySoftware},
				UseBrowser:  true,
			},
			"rarbg": {
				DisplayName: "RARBG",
				Enabled:     true,
				BaseURL:     "https://rargb.to",
				Mirrors:     []string{"https://rarbg.to", "https://rarbggo.to", "https://www.rarbgproxy.to", "https://proxyrarbg.to"},
				HTTPConfig:  HTTPConfig{Timeout: timeout},
				RateLimit:   rate,
				Categories:  []Category{CategoryMovies, CategoryTV, CategoryGames, CategorySoftware},
			},
		},
	}
}
