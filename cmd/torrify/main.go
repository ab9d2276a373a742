// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the torrify CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the torrify CLI.
var rootCmd = &cobra.Command{
	Use:   "torrify",
	Short: "Federated search across public torrent index sites",
	Long: `torrify queries several public torrent index sites in parallel, normalizes
their listings into one shape, removes duplicates by info hash and ranks the
merged list.

Run "torrify serve" for the HTTP API or "torrify search <query>" for a one-shot
search from the terminal. Sites are configured in torrify.yaml.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./torrify.yaml or ~/.config/torrify/config.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "development logging at debug level")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("torrify")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "torrify"))
		}
	}

	viper.SetEnvPrefix("TORRIFY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the process logger. quiet raises the production level to
// warn so one-shot commands keep stderr clean.
func newLogger(cmd *cobra.Command, quiet bool) (*zap.Logger, error) {
	debug, _ := cmd.Flags().GetBool("debug")
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
