// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package registry holds the adapters built at start and selects the subset
// a request should fan out to.
package registry

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/torrify/internal/adapter"
	"github.com/pdiddy/torrify/pkg/types"
)

// Entry describes one registered adapter.
type Entry struct {
	Key         string           `json:"key" yaml:"key"`
	DisplayName string           `json:"name" yaml:"name"`
	Enabled     bool             `json:"enabled" yaml:"enabled"`
	Categories  []types.Category `json:"categories" yaml:"categories"`
	Timeout     time.Duration    `json:"timeout" yaml:"timeout"`
	RateLimit   time.Duration    `json:"rateLimit" yaml:"rate_limit"`
	Mirrors     []string         `json:"mirrors,omitempty" yaml:"mirrors,omitempty"`
	BaseURL     string           `json:"baseUrl" yaml:"base_url"`

	Adapter adapter.Adapter `json:"-" yaml:"-"`
}

// Registry is the static adapter table. Selection methods keep the order
// adapters were registered in.
type Registry struct {
	mu       sync.RWMutex
	adapters []adapter.Adapter
	byKey    map[string]adapter.Adapter
}

// New registers adapters in the given order. Later duplicates of a key are
// ignored.
func New(adapters []adapter.Adapter) *Registry {
	r := &Registry{byKey: make(map[string]adapter.Adapter, len(adapters))}
	for _, a := range adapters {
		if _, dup := r.byKey[a.Key()]; dup {
			continue
		}
		r.byKey[a.Key()] = a
		r.adapters = append(r.adapters, a)
	}
	return r
}

// Get returns the adapter registered under key.
func (r *Registry) Get(key string) (adapter.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byKey[key]
	return a, ok
}

// BySource returns the adapter whose display name is name. Results carry
// the display name, so this is how a row finds its way back to an adapter.
func (r *Registry) BySource(name string) (adapter.Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.adapters {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// AllEnabled returns every enabled adapter.
func (r *Registry) AllEnabled() []adapter.Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []adapter.Adapter
	for _, a := range r.adapters {
		if a.Enabled() {
			out = append(out, a)
		}
	}
	return out
}

// ByCategory returns the enabled adapters whose configured categories
// contain category. An empty category or "all" selects every enabled
// adapter.
func (r *Registry) ByCategory(category string) []adapter.Adapter {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" || c == "all" {
		return r.AllEnabled()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []adapter.Adapter
	for _, a := range r.adapters {
		if a.Enabled() && slices.Contains(a.Config().Categories, types.Category(c)) {
			out = append(out, a)
		}
	}
	return out
}

// ByNames returns the enabled adapters whose display name or key contains
// any of names, ignoring case. Each adapter appears once.
func (r *Registry) ByNames(names []string) []adapter.Adapter {
	var wanted []string
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			wanted = append(wanted, n)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []adapter.Adapter
	for _, a := range r.adapters {
		if !a.Enabled() {
			continue
		}
		name, key := strings.ToLower(a.Name()), strings.ToLower(a.Key())
		for _, w := range wanted {
			if strings.Contains(name, w) || strings.Contains(key, w) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// SetEnabled switches the adapter under key on or off and reports whether
// the key exists.
func (r *Registry) SetEnabled(key string, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byKey[key]
	if !ok {
		return false
	}
	a.SetEnabled(enabled)
	return true
}

// Entries lists every registered adapter, disabled ones included.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.adapters))
	for _, a := range r.adapters {
		cfg := a.Config()
		out = append(out, Entry{
			Key:         a.Key(),
			DisplayName: a.Name(),
			Enabled:     a.Enabled(),
			Categories:  slices.Clone(cfg.Categories),
			Timeout:     cfg.Timeout,
			RateLimit:   cfg.RateLimit,
			Mirrors:     slices.Clone(cfg.Mirrors),
			BaseURL:     cfg.BaseURL,
			Adapter:     a,
		})
	}
	return out
}

// Len returns the number of registered adapters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.adapters)
}
