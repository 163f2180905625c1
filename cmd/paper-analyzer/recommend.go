// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SoftHeinrich/paper-analyzer/internal/recommend"
	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Suggest related papers and potential collaborators",
	Long: `Recommend analyzes a paper's citation network for papers frequently
cited alongside it (candidates for the paper's own reference list) and for
authors who repeatedly cite it (potential collaborators).

The co-citation analysis fetches the reference lists of citing papers, so
it issues additional source requests even with --cached.`,
	RunE: runRecommend,
}

func init() {
	recommendCmd.Flags().String("title", "", "paper title to resolve")
	recommendCmd.Flags().String("doi", "", "paper DOI (preferred when known)")
	recommendCmd.Flags().Bool("cached", false, "use the previously saved network instead of rebuilding")
	recommendCmd.Flags().Duration("timeout", 0, "per-request HTTP timeout (default 30s)")
	recommendCmd.Flags().Duration("overall-timeout", 0, "overall build timeout (default 5m)")
	recommendCmd.Flags().Duration("min-interval", 0, "minimum delay between requests to one source (default 1s)")
	recommendCmd.Flags().Int("max-results", 0, "maximum records fetched per source and relation (default 100)")
	recommendCmd.Flags().Int("max-concurrent", 0, "maximum concurrent source fetches (default 4)")
	recommendCmd.Flags().Bool("google-scholar", false, "also scrape Google Scholar (slow, may be blocked)")
	recommendCmd.Flags().Int("top", 10, "maximum suggestions per list")
	recommendCmd.Flags().Bool("json", false, "output recommendations as JSON")

	rootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	cfg := analyzerConfig(cmd)
	n, err := obtainNetwork(cmd, cfg)
	if err != nil {
		return err
	}

	agg := newAggregator(cfg)
	papers, collaborators := recommend.Recommend(context.Background(), n, agg)

	top, _ := cmd.Flags().GetInt("top")
	if top > 0 {
		if len(papers) > top {
			papers = papers[:top]
		}
		if len(collaborators) > top {
			collaborators = collaborators[:top]
		}
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Papers        []types.Recommendation `json:"papers_to_cite"`
			Collaborators []types.Recommendation `json:"collaborators"`
		}{papers, collaborators})
	}

	printRecommendations(&n.Root, papers, collaborators)
	return nil
}

func printRecommendations(root *types.PaperRecord, papers, collaborators []types.Recommendation) {
	fmt.Printf("Recommendations for %q\n", root.Title)

	fmt.Println("\nPapers to cite:")
	if len(papers) == 0 {
		fmt.Println("  none found")
	}
	for i, r := range papers {
		title := r.Paper.Title
		if title == "" {
			title = r.Paper.DOI
		}
		fmt.Printf("  %2d. %s\n      %s\n", i+1, title, r.Rationale)
	}

	fmt.Println("\nPotential collaborators:")
	if len(collaborators) == 0 {
		fmt.Println("  none found")
	}
	for i, r := range collaborators {
		fmt.Printf("  %2d. %s\n      %s\n", i+1, r.Author, r.Rationale)
	}
}
