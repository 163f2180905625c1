// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/SoftHeinrich/paper-analyzer/internal/impact"
	"github.com/SoftHeinrich/paper-analyzer/internal/resolve"
	"github.com/SoftHeinrich/paper-analyzer/internal/store"
	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Compute impact metrics for a paper's citation network",
	Long: `Impact computes citation counts, an age-normalized influence score,
the yearly citation trend, and the top citing venues for a paper.

By default the network is built fresh from the configured sources; with
--cached a previously saved network is loaded from the local database
instead.`,
	RunE: runImpact,
}

func init() {
	impactCmd.Flags().String("title", "", "paper title to resolve")
	impactCmd.Flags().String("doi", "", "paper DOI (preferred when known)")
	impactCmd.Flags().Bool("cached", false, "use the previously saved network instead of rebuilding")
	impactCmd.Flags().Duration("timeout", 0, "per-request HTTP timeout (default 30s)")
	impactCmd.Flags().Duration("overall-timeout", 0, "overall build timeout (default 5m)")
	impactCmd.Flags().Duration("min-interval", 0, "minimum delay between requests to one source (default 1s)")
	impactCmd.Flags().Int("max-results", 0, "maximum records fetched per source and relation (default 100)")
	impactCmd.Flags().Int("max-concurrent", 0, "maximum concurrent source fetches (default 4)")
	impactCmd.Flags().Bool("google-scholar", false, "also scrape Google Scholar (slow, may be blocked)")
	impactCmd.Flags().Bool("json", false, "output metrics as JSON")

	rootCmd.AddCommand(impactCmd)
}

func runImpact(cmd *cobra.Command, args []string) error {
	cfg := analyzerConfig(cmd)
	n, err := obtainNetwork(cmd, cfg)
	if err != nil {
		return err
	}

	m := impact.Analyze(n)

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}

	printMetrics(&n.Root, m)
	return nil
}

func printMetrics(root *types.PaperRecord, m types.ImpactMetrics) {
	fmt.Printf("Impact metrics for %q\n\n", root.Title)
	fmt.Printf("Citations:   %d\n", m.CitationCount)
	fmt.Printf("References:  %d\n", m.ReferenceCount)
	fmt.Printf("Influence:   %.2f\n", m.InfluenceScore)
	if m.FirstCitationYear != 0 {
		fmt.Printf("First cited: %d\n", m.FirstCitationYear)
		fmt.Printf("Last cited:  %d\n", m.LastCitationYear)
	}

	if len(m.YearlyCitationTrend) > 0 {
		fmt.Println("\nCitations per year:")
		years := make([]int, 0, len(m.YearlyCitationTrend))
		for y := range m.YearlyCitationTrend {
			years = append(years, y)
		}
		sort.Ints(years)
		for _, y := range years {
			fmt.Printf("  %d: %d\n", y, m.YearlyCitationTrend[y])
		}
	}

	if len(m.TopVenues) > 0 {
		fmt.Println("\nTop citing venues:")
		for _, v := range m.TopVenues {
			fmt.Printf("  %3d  %s\n", v.Count, v.Venue)
		}
	}
}

// obtainNetwork either loads a saved network from the local database
// (--cached) or builds one fresh from the configured sources.
func obtainNetwork(cmd *cobra.Command, cfg types.AnalyzerConfig) (*types.CitationNetwork, error) {
	q, err := queryFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	if cached, _ := cmd.Flags().GetBool("cached"); cached {
		st, err := store.NewStore(cfg.Store)
		if err != nil {
			return nil, err
		}
		defer st.Close()

		key := resolve.CanonicalDOI(q.DOI)
		if key == "" {
			key = resolve.NormalizeTitle(q.Title)
		}
		n, err := st.Load(key)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no saved network for %q: build one first with 'paper-analyzer network --save'", key)
		}
		if err != nil {
			return nil, fmt.Errorf("loading saved network: %w", err)
		}
		return n, nil
	}

	return newAggregator(cfg).BuildNetwork(context.Background(), q)
}
