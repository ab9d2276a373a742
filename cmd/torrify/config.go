// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/torrify/internal/adapter"
	"github.com/pdiddy/torrify/internal/cache"
	"github.com/pdiddy/torrify/internal/metrics"
	"github.com/pdiddy/torrify/internal/orchestrator"
	"github.com/pdiddy/torrify/internal/registry"
	"github.com/pdiddy/torrify/internal/search"
	"github.com/pdiddy/torrify/pkg/types"
)

// envAliases binds the short environment names documented for deployments
// in addition to the TORRIFY_SECTION_KEY form.
var envAliases = map[string]string{
	"search.search_timeout":  "TORRIFY_SEARCH_TIMEOUT",
	"search.request_timeout": "TORRIFY_REQUEST_TIMEOUT",
	"server.addr":            "TORRIFY_ADDR",
	"browser.enabled":        "TORRIFY_BROWSER",
}

// loadConfig layers the file and environment held by v over
// types.DefaultConfig.
func loadConfig(v *viper.Viper) (types.Config, error) {
	data, err := yaml.Marshal(types.DefaultConfig())
	if err != nil {
		return types.Config{}, fmt.Errorf("encoding defaults: %w", err)
	}
	var defaults map[string]any
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return types.Config{}, fmt.Errorf("decoding defaults: %w", err)
	}
	setDefaults(v, "", defaults)

	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return types.Config{}, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every leaf of m under its dotted path so that a
// config file overriding one nested key keeps the defaults of its siblings.
func setDefaults(v *viper.Viper, prefix string, m map[string]any) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok && len(sub) > 0 {
			setDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// app is the wired search stack shared by serve and search.
type app struct {
	cfg      types.Config
	log      *zap.Logger
	registry *registry.Registry
	cache    *cache.Cache
	metrics  *metrics.Metrics
	service  *search.Service
}

func newApp(cfg types.Config, log *zap.Logger, m *metrics.Metrics) (*app, error) {
	adapters, err := adapter.BuildAll(cfg, adapter.Deps{Log: log})
	if err != nil {
		return nil, fmt.Errorf("building adapters: %w", err)
	}
	reg := registry.New(adapters)

	c, err := cache.New(cfg.Cache.Capacity, cfg.Cache.TTL)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	svc := search.NewService(reg, orchestrator.New(cfg.Search, log), cfg.Search,
		search.WithCache(c, cfg.Cache.TTL),
		search.WithMetrics(m),
		search.WithLogger(log))

	return &app{cfg: cfg, log: log, registry: reg, cache: c, metrics: m, service: svc}, nil
}

// reloadAdapters returns the config-change handler that re-reads v and
// applies the adapter enable flags to reg. Other settings take effect on
// the next start.
func reloadAdapters(v *viper.Viper, reg *registry.Registry, log *zap.Logger) func(fsnotify.Event) {
	return func(e fsnotify.Event) {
		cfg, err := loadConfig(v)
		if err != nil {
			log.Warn("config reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		for _, key := range adapter.Order(cfg) {
			enabled := cfg.Adapters[key].Enabled
			if reg.SetEnabled(key, enabled) {
				log.Info("adapter toggled", zap.String("source", key), zap.Bool("enabled", enabled))
			}
		}
	}
}
