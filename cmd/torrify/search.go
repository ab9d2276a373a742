// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/torrify/internal/search"
	"github.com/pdiddy/torrify/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search every enabled site once and print the ranked results",
	Long: `Search fans the query out to the enabled sites, merges and deduplicates the
listings and prints them ranked, as a table or as JSON. Failed sites are
reported below the results and never fail the command.

Use --save to keep the answer as a YAML query file and --load to print a saved
file again without touching the network.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSlice("sources", nil, "restrict to these sites (name or key, comma-separated)")
	searchCmd.Flags().String("category", "", "movies, tv, anime, music, games, software, books or other")
	searchCmd.Flags().String("sort-by", "seeds", "seeds, leechers, size, date or health")
	searchCmd.Flags().String("sort-order", "desc", "asc or desc")
	searchCmd.Flags().Int("limit", 0, "maximum number of results (default from search.default_limit)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	searchCmd.Flags().String("save", "", "write the query and results to a YAML file")
	searchCmd.Flags().String("load", "", "print a saved query file instead of searching")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	if load, _ := cmd.Flags().GetString("load"); load != "" {
		qf, err := search.ReadQueryFile(load)
		if err != nil {
			return err
		}
		return render(qf.Response(), qf.Summary.Timestamp, asJSON)
	}

	if len(args) == 0 {
		return fmt.Errorf("search needs a query (or --load FILE)")
	}
	p := types.SearchParams{Query: strings.Join(args, " ")}
	p.Sources, _ = cmd.Flags().GetStringSlice("sources")
	p.Category, _ = cmd.Flags().GetString("category")
	sortBy, _ := cmd.Flags().GetString("sort-by")
	p.SortBy = types.ParseSortKey(sortBy)
	p.SortOrder, _ = cmd.Flags().GetString("sort-order")
	p.Limit, _ = cmd.Flags().GetInt("limit")

	log, err := newLogger(cmd, true)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	a, err := newApp(cfg, log, nil)
	if err != nil {
		return err
	}

	resp, err := a.service.Search(cmd.Context(), p)
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetString("save"); save != "" {
		if err := search.WriteQueryFile(save, p, resp, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d results to %s\n", len(resp.Results), save)
	}
	return render(resp, time.Now(), asJSON)
}

func render(resp types.SearchResponse, now time.Time, asJSON bool) error {
	if asJSON {
		return search.FormatJSON(resp, os.Stdout)
	}
	search.FormatTable(resp, now, os.Stdout)
	return nil
}
