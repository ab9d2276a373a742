// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/torrify/pkg/types"
)

// Deps carries what every adapter needs besides its own configuration.
type Deps struct {
	Log     *zap.Logger
	Now     func() time.Time
	HTTP    types.HTTPConfig
	Browser types.BrowserConfig

	// Fetcher, when set, replaces the per-adapter fetcher. Tests use it to
	// route every adapter through one stub.
	Fetcher Fetcher
}

// constructor builds a concrete adapter around shared plumbing.
type constructor func(b *Behavior) Adapter

var constructors = map[string]constructor{
	"piratebay": func(b *Behavior) Adapter { return NewPirateBay(b) },
	"apibay":    func(b *Behavior) Adapter { return NewAPIBay(b) },
	"nyaa":      func(b *Behavior) Adapter { return NewNyaa(b) },
	"nyaarss":   func(b *Behavior) Adapter { return NewNyaaRSS(b) },
	"yts":       func(b *Behavior) Adapter { return NewYTS(b) },
	"leetx":     func(b *Behavior) Adapter { return NewLeetX(b) },
	"rarbg":     func(b *Behavior) Adapter { return NewRARBG(b) },
}

// browserWait is the element awaited before a rendered page is captured.
var browserWait = map[string]string{
	"nyaa":  "table.torrent-list",
	"leetx": "table.table-list",
}

// Known returns the keys of every adapter this build can construct.
func Known() []string {
	keys := make([]string, 0, len(constructors))
	for k := range constructors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// New builds the adapter registered under key.
func New(key string, cfg types.AdapterConfig, deps Deps) (Adapter, error) {
	build, ok := constructors[key]
	if !ok {
		return nil, fmt.Errorf("unknown adapter %q (known: %s)", key, strings.Join(Known(), ", "))
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("adapter %q: base_url is required", key)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = deps.HTTP.Timeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = deps.HTTP.UserAgent
	}
	return build(NewBehavior(key, cfg, NewFetcher(key, cfg, deps), deps.Log, deps.Now)), nil
}

// NewFetcher picks the browser fetcher for adapters that ask for it when the
// process allows headless rendering, and a plain HTTP fetcher otherwise.
func NewFetcher(key string, cfg types.AdapterConfig, deps Deps) Fetcher {
	switch {
	case deps.Fetcher != nil:
		return deps.Fetcher
	case cfg.UseBrowser && deps.Browser.Enabled:
		return &BrowserFetcher{ExecPath: deps.Browser.ExecPath, WaitSelector: browserWait[key]}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return NewHTTPFetcher(timeout)
}

// Order returns the adapter keys of cfg in fan-out order: AdapterOrder
// first, then the remaining keys alphabetically.
func Order(cfg types.Config) []string {
	seen := make(map[string]bool, len(cfg.Adapters))
	var out []string
	for _, k := range cfg.AdapterOrder {
		if _, ok := cfg.Adapters[k]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	var rest []string
	for k := range cfg.Adapters {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// BuildAll constructs every configured adapter, disabled ones included, in
// fan-out order.
func BuildAll(cfg types.Config, deps Deps) ([]Adapter, error) {
	if deps.HTTP.Timeout <= 0 {
		deps.HTTP.Timeout = cfg.HTTP.Timeout
	}
	if deps.HTTP.UserAgent == "" {
		deps.HTTP.UserAgent = cfg.HTTP.UserAgent
	}
	if !deps.Browser.Enabled && deps.Browser.ExecPath == "" {
		deps.Browser = cfg.Browser
	}

	var out []Adapter
	for _, key := range Order(cfg) {
		a, err := New(key, cfg.Adapters[key], deps)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}
