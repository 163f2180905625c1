// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-analyzer CLI.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SoftHeinrich/paper-analyzer/internal/network"
	"github.com/SoftHeinrich/paper-analyzer/internal/resolve"
	"github.com/SoftHeinrich/paper-analyzer/internal/secrets"
	"github.com/SoftHeinrich/paper-analyzer/internal/source"
	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the paper-analyzer CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-analyzer",
	Short: "Multi-source citation network analysis for academic papers",
	Long: `paper-analyzer builds citation networks for academic papers by querying
multiple bibliographic sources (Semantic Scholar, Crossref, OpenAlex, and
optionally Google Scholar), reconciling the records that describe the same
paper, and analyzing the result.

Each operation is a subcommand: network builds and optionally persists a
citation network, impact computes metrics over one, and recommend derives
paper and collaborator suggestions from one.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-analyzer.yaml or ~/.config/paper-analyzer/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "networks", "base directory for persisted networks and snapshots")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-analyzer")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-analyzer"))
		}
	}

	viper.SetEnvPrefix("PAPER_ANALYZER")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

const defaultUserAgent = "paper-analyzer/0.1"

// analyzerConfig assembles the full configuration from flags, config file,
// and loaded secrets. Flags win over config values; secrets fill credential
// fields not set elsewhere.
func analyzerConfig(cmd *cobra.Command) types.AnalyzerConfig {
	var cfg types.AnalyzerConfig

	cfg.Source.Timeout = flagDuration(cmd, "timeout", viper.GetDuration("source.timeout"), 30*time.Second)
	cfg.Source.UserAgent = defaultUserAgent
	cfg.Source.MaxResults = flagInt(cmd, "max-results", viper.GetInt("source.max_results"), 100)
	cfg.Source.MinInterval = flagDuration(cmd, "min-interval", viper.GetDuration("source.min_interval"), time.Second)
	cfg.Source.SemanticScholarAPIKey = secretDefault(secrets.KeySemanticScholarAPIKey, viper.GetString("source.semantic_scholar_api_key"))
	cfg.Source.CrossrefMailto = secretDefault(secrets.KeyCrossrefMailto, viper.GetString("source.crossref_mailto"))
	cfg.Source.OpenAlexEmail = secretDefault(secrets.KeyOpenAlexEmail, viper.GetString("source.openalex_email"))
	cfg.Source.EnableGoogleScholar = flagBool(cmd, "google-scholar", viper.GetBool("source.enable_google_scholar"))

	cfg.Resolver.MergeThreshold = viper.GetFloat64("resolver.merge_threshold")
	cfg.Resolver.AmbiguousThreshold = viper.GetFloat64("resolver.ambiguous_threshold")
	cfg.Resolver.SourcePriority = viper.GetStringSlice("resolver.source_priority")

	cfg.Network.OverallTimeout = flagDuration(cmd, "overall-timeout", viper.GetDuration("network.overall_timeout"), 5*time.Minute)
	cfg.Network.MaxConcurrent = flagInt(cmd, "max-concurrent", viper.GetInt("network.max_concurrent"), 4)

	cfg.Store.DataDir = flagString(cmd, "data-dir", viper.GetString("store.data_dir"), "networks")
	return cfg
}

// newAggregator wires the configured source adapters and the resolver into
// an aggregator writing progress to stderr.
func newAggregator(cfg types.AnalyzerConfig) *network.Aggregator {
	client := &http.Client{Timeout: cfg.Source.Timeout}

	adapters := []source.Adapter{
		source.NewSemanticScholar(client, cfg.Source),
		source.NewCrossref(client, cfg.Source),
		source.NewOpenAlex(client, cfg.Source),
	}
	if cfg.Source.EnableGoogleScholar {
		adapters = append(adapters, source.NewGoogleScholar(client, cfg.Source))
	}

	return network.New(adapters, resolve.New(cfg.Resolver), cfg.Network, os.Stderr)
}

// queryFromFlags builds the paper query shared by the network, impact, and
// recommend commands.
func queryFromFlags(cmd *cobra.Command) (source.Query, error) {
	title, _ := cmd.Flags().GetString("title")
	doi, _ := cmd.Flags().GetString("doi")
	q := source.Query{Title: title, DOI: doi}
	if q.IsEmpty() {
		return q, fmt.Errorf("provide --title or --doi to identify the paper")
	}
	return q, nil
}

// Flag lookup helpers: an explicitly set flag wins, then the config value,
// then the built-in default.

func flagString(cmd *cobra.Command, name, cfgValue, def string) string {
	if cmd.Flags().Changed(name) || cmd.InheritedFlags().Changed(name) {
		if v, err := cmd.Flags().GetString(name); err == nil {
			return v
		}
	}
	if cfgValue != "" {
		return cfgValue
	}
	return def
}

func flagInt(cmd *cobra.Command, name string, cfgValue, def int) int {
	if cmd.Flags().Changed(name) {
		if v, err := cmd.Flags().GetInt(name); err == nil {
			return v
		}
	}
	if cfgValue != 0 {
		return cfgValue
	}
	return def
}

func flagDuration(cmd *cobra.Command, name string, cfgValue, def time.Duration) time.Duration {
	if cmd.Flags().Changed(name) {
		if v, err := cmd.Flags().GetDuration(name); err == nil {
			return v
		}
	}
	if cfgValue != 0 {
		return cfgValue
	}
	return def
}

func flagBool(cmd *cobra.Command, name string, cfgValue bool) bool {
	if cmd.Flags().Changed(name) {
		if v, err := cmd.Flags().GetBool(name); err == nil {
			return v
		}
	}
	return cfgValue
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
