// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SoftHeinrich/paper-analyzer/internal/store"
	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

var networkCmd = &cobra.Command{
	Use:   "network",
	Short: "Build the citation network for a paper",
	Long: `Network resolves a paper across the configured sources, fetches its
citations and references from each, merges duplicate records, and prints the
resulting network. Sources that fail are reported in the output; the build
only fails when no source can find the paper at all.

With --save the network is persisted to the local database and a YAML
snapshot is written alongside it.`,
	RunE: runNetwork,
}

func init() {
	networkCmd.Flags().String("title", "", "paper title to resolve")
	networkCmd.Flags().String("doi", "", "paper DOI (preferred when known)")
	networkCmd.Flags().Duration("timeout", 0, "per-request HTTP timeout (default 30s)")
	networkCmd.Flags().Duration("overall-timeout", 0, "overall build timeout (default 5m)")
	networkCmd.Flags().Duration("min-interval", 0, "minimum delay between requests to one source (default 1s)")
	networkCmd.Flags().Int("max-results", 0, "maximum records fetched per source and relation (default 100)")
	networkCmd.Flags().Int("max-concurrent", 0, "maximum concurrent source fetches (default 4)")
	networkCmd.Flags().Bool("google-scholar", false, "also scrape Google Scholar (slow, may be blocked)")
	networkCmd.Flags().Bool("save", false, "persist the network to the local database and write a snapshot")
	networkCmd.Flags().Bool("json", false, "output the full network as JSON")

	rootCmd.AddCommand(networkCmd)
}

func runNetwork(cmd *cobra.Command, args []string) error {
	q, err := queryFromFlags(cmd)
	if err != nil {
		return err
	}
	cfg := analyzerConfig(cmd)

	agg := newAggregator(cfg)
	n, err := agg.BuildNetwork(context.Background(), q)
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		st, err := store.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Save(n); err != nil {
			return fmt.Errorf("saving network: %w", err)
		}
		path, err := st.WriteSnapshot(n)
		if err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Saved network; snapshot at %s\n", path)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(n)
	}

	printNetworkSummary(n)
	return nil
}

func printNetworkSummary(n *types.CitationNetwork) {
	fmt.Printf("Root: %s", n.Root.Title)
	if n.Root.Year != 0 {
		fmt.Printf(" (%d)", n.Root.Year)
	}
	fmt.Println()
	if n.Root.DOI != "" {
		fmt.Printf("DOI: %s\n", n.Root.DOI)
	}
	if len(n.Root.Authors) > 0 {
		fmt.Printf("Authors: %s\n", strings.Join(n.Root.Authors, ", "))
	}
	fmt.Printf("Sources: %s\n", strings.Join(n.Root.Provenance, ", "))

	fmt.Printf("\n%d citing papers, %d references, %d edges\n",
		len(n.Citations), len(n.References), len(n.Edges))

	if len(n.SourceErrors) > 0 {
		fmt.Println("\nSource problems:")
		names := make([]string, 0, len(n.SourceErrors))
		for name := range n.SourceErrors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %s\n", name, n.SourceErrors[name])
		}
	}

	if len(n.Citations) > 0 {
		fmt.Println("\nCiting papers:")
		printRecords(n.Citations)
	}
	if len(n.References) > 0 {
		fmt.Println("\nReferences:")
		printRecords(n.References)
	}
}

const maxListed = 25

func printRecords(records []types.PaperRecord) {
	limit := len(records)
	if limit > maxListed {
		limit = maxListed
	}
	for i := 0; i < limit; i++ {
		r := &records[i]
		line := r.Title
		if r.Year != 0 {
			line = fmt.Sprintf("%s (%d)", line, r.Year)
		}
		if r.CitationCount >= 0 {
			line = fmt.Sprintf("%s [%d citations]", line, r.CitationCount)
		}
		fmt.Printf("  %3d. %s\n", i+1, line)
	}
	if len(records) > limit {
		fmt.Printf("  ... and %d more\n", len(records)-limit)
	}
}
