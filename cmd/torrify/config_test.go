// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pdiddy/torrify/internal/registry"
	"github.com/pdiddy/torrify/pkg/types"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func viperFor(t *testing.T, path string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())
	return v
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadConfigFileOverridesOneKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torrify.yaml")
	writeConfig(t, path, `
search:
  search_timeout: 25s
cache:
  ttl: 5m
adapters:
  yts:
    enabled: true
  rarbg:
    mirrors: ["https://rarbg.example"]
`)
	cfg, err := loadConfig(viperFor(t, path))
	require.NoError(t, err)

	def := types.DefaultConfig()
	assert.Equal(t, 25*time.Second, cfg.Search.SearchTimeout)
	assert.Equal(t, def.Search.RequestTimeout, cfg.Search.RequestTimeout, "siblings keep defaults")
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Adapters["yts"].Enabled)
	assert.Equal(t, "https://yts.mx", cfg.Adapters["yts"].BaseURL)
	assert.Equal(t, []types.Category{types.CategoryMovies}, cfg.Adapters["yts"].Categories)
	assert.Equal(t, []string{"https://rarbg.example"}, cfg.Adapters["rarbg"].Mirrors)
	assert.Equal(t, 15*time.Second, cfg.Adapters["rarbg"].Timeout)
}

func TestLoadConfigEnvAlias(t *testing.T) {
	t.Setenv("TORRIFY_SEARCH_TIMEOUT", "40s")
	t.Setenv("TORRIFY_BROWSER", "true")

	cfg, err := loadConfig(viper.New())
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, cfg.Search.SearchTimeout)
	assert.True(t, cfg.Browser.Enabled)
}

func TestNewAppBuildsRegistryInOrder(t *testing.T) {
	a, err := newApp(types.DefaultConfig(), zap.NewNop(), nil)
	require.NoError(t, err)

	var keys []string
	for _, e := range a.registry.Entries() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, types.DefaultConfig().AdapterOrder, keys)
	assert.Len(t, a.registry.AllEnabled(), 4)
}

func TestReloadAdaptersTogglesEnabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "torrify.yaml")
	writeConfig(t, path, "adapters:\n  yts:\n    enabled: false\n")
	v := viperFor(t, path)
	cfg, err := loadConfig(v)
	require.NoError(t, err)
	a, err := newApp(cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	yts, ok := a.registry.Get("yts")
	require.True(t, ok)
	require.False(t, yts.Enabled())

	writeConfig(t, path, "adapters:\n  yts:\n    enabled: true\n  rarbg:\n    enabled: false\n")
	require.NoError(t, v.ReadInConfig())
	reloadAdapters(v, a.registry, zap.NewNop())(fsnotify.Event{Name: path, Op: fsnotify.Write})

	assert.True(t, yts.Enabled())
	rarbg, _ := a.registry.Get("rarbg")
	assert.False(t, rarbg.Enabled())
}

func TestScheduleRegistersJobs(t *testing.T) {
	tests := []struct {
		name    string
		cache   types.CacheConfig
		entries int
	}{
		{"sweep only", types.CacheConfig{SweepInterval: time.Minute, WarmSchedule: "@every 10m"}, 1},
		{"sweep and warm", types.CacheConfig{SweepInterval: time.Minute, WarmSchedule: "@every 10m", WarmQueries: []string{"ubuntu"}}, 2},
		{"nothing", types.CacheConfig{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DefaultConfig()
			cfg.Cache = tt.cache
			for k, ac := range cfg.Adapters {
				ac.Enabled = false
				cfg.Adapters[k] = ac
			}
			a, err := newApp(cfg, zap.NewNop(), nil)
			require.NoError(t, err)

			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			c, err := schedule(ctx, a)
			require.NoError(t, err)
			assert.Len(t, c.Entries(), tt.entries)
		})
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.Cache.WarmQueries = []string{"ubuntu"}
	cfg.Cache.WarmSchedule = "every tuesday"
	a, err := newApp(cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	_, err = schedule(context.Background(), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduling cache warm")
}

func TestPrintSources(t *testing.T) {
	var buf bytes.Buffer
	printSources([]registry.Entry{
		{Key: "apibay", DisplayName: "TPB API", Enabled: true, Timeout: 15 * time.Second, BaseURL: "https://apibay.org", Categories: []types.Category{types.CategoryMovies, types.CategoryTV}},
		{Key: "rarbg", DisplayName: "RARBG", BaseURL: "https://rargb.to", Mirrors: []string{"a", "b"}},
	}, &buf)

	out := buf.String()
	assert.Contains(t, out, "TPB API")
	assert.Contains(t, out, "movies,tv")
	assert.Contains(t, out, "https://rargb.to (+2)")
	assert.Contains(t, out, "no ")
}
