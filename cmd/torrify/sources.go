// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/torrify/internal/adapter"
	"github.com/pdiddy/torrify/internal/registry"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured sites",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		adapters, err := adapter.BuildAll(cfg, adapter.Deps{Log: zap.NewNop()})
		if err != nil {
			return err
		}
		entries := registry.New(adapters).Entries()

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		printSources(entries, os.Stdout)
		return nil
	},
}

func init() {
	sourcesCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(sourcesCmd)
}

func printSources(entries []registry.Entry, w io.Writer) {
	fmt.Fprintf(w, "%-10s  %-16s  %-7s  %-8s  %-28s  %s\n", "Key", "Name", "Enabled", "Timeout", "URL", "Categories")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, e := range entries {
		enabled := "no"
		if e.Enabled {
			enabled = "yes"
		}
		cats := make([]string, len(e.Categories))
		for i, c := range e.Categories {
			cats[i] = string(c)
		}
		url := e.BaseURL
		if n := len(e.Mirrors); n > 0 {
			url = fmt.Sprintf("%s (+%d)", url, n)
		}
		fmt.Fprintf(w, "%-10s  %-16s  %-7s  %-8s  %-28s  %s\n",
			e.Key, e.DisplayName, enabled, e.Timeout, url, strings.Join(cats, ","))
	}
}
