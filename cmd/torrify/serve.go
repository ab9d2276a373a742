// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/torrify/internal/metrics"
	"github.com/pdiddy/torrify/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP search API",
	Long: `Serve exposes GET /search, /sources, /health and /metrics. Expired cache
entries are swept on cache.sweep_interval and cache.warm_queries are searched
on start and on cache.warm_schedule. Adapter enable flags follow edits to the
config file without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := newLogger(cmd, false)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	v := viper.GetViper()
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	a, err := newApp(cfg, log, metrics.New())
	if err != nil {
		return err
	}
	log.Info("adapters loaded", zap.Int("count", a.registry.Len()), zap.Int("enabled", len(a.registry.AllEnabled())))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := schedule(ctx, a)
	if err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(reloadAdapters(v, a.registry, log))
		v.WatchConfig()
	}

	return server.New(a.service, a.registry, a.metrics, log, cfg.Server).Run(ctx)
}

// schedule registers the cache maintenance jobs. Warm queries also run once
// in the background right away.
func schedule(ctx context.Context, a *app) (*cron.Cron, error) {
	c := cron.New()

	if every := a.cfg.Cache.SweepInterval; every > 0 {
		_, err := c.AddFunc(fmt.Sprintf("@every %s", every), func() {
			if n := a.cache.EvictExpired(); n > 0 {
				a.log.Debug("evicted expired cache entries", zap.Int("count", n))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("scheduling cache sweep: %w", err)
		}
	}

	queries := a.cfg.Cache.WarmQueries
	if len(queries) == 0 {
		return c, nil
	}
	warm := func() {
		n := a.service.Warm(ctx, queries)
		a.log.Info("cache warmed", zap.Int("queries", len(queries)), zap.Int("warmed", n))
	}
	if expr := a.cfg.Cache.WarmSchedule; expr != "" {
		if _, err := c.AddFunc(expr, warm); err != nil {
			return nil, fmt.Errorf("scheduling cache warm %q: %w", expr, err)
		}
	}
	go warm()
	return c, nil
}
