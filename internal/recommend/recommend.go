// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recommend derives paper and collaborator suggestions from a
// built citation network. Pure over the network itself; the co-citation
// analysis optionally enriches through a ReferenceLoader and degrades to
// empty suggestions when none is available.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

// ReferenceLoader fetches the reference list of a paper in the network.
// The aggregator implements it; the recommender requests the capability
// instead of re-entering the aggregation pipeline itself.
type ReferenceLoader interface {
	ReferencesOf(ctx context.Context, rec *types.PaperRecord) ([]types.PaperRecord, error)
}

// Recommend produces both suggestion lists. Empty networks yield empty
// lists; it never fails. A nil loader skips the co-citation enrichment.
func Recommend(ctx context.Context, n *types.CitationNetwork, loader ReferenceLoader) (papers, collaborators []types.Recommendation) {
	return PapersToCite(ctx, n, loader), Collaborators(n)
}

// PapersToCite finds papers frequently referenced by the root's citers
// but absent from the root's own reference list, ranked by co-citation
// frequency with a citation-count tie-break. The root itself and papers
// already referenced are never suggested.
func PapersToCite(ctx context.Context, n *types.CitationNetwork, loader ReferenceLoader) []types.Recommendation {
	if loader == nil || len(n.Citations) == 0 {
		return nil
	}

	known := make(map[string]struct{}, len(n.References)+1)
	known[n.Root.Key()] = struct{}{}
	for i := range n.References {
		known[n.References[i].Key()] = struct{}{}
	}

	type candidate struct {
		rec   types.PaperRecord
		count int
	}
	candidates := make(map[string]*candidate)
	surveyed := 0

	for i := range n.Citations {
		refs, err := loader.ReferencesOf(ctx, &n.Citations[i])
		if err != nil {
			// Optional enrichment: a citer whose references cannot be
			// fetched is skipped, not fatal.
			continue
		}
		surveyed++
		seen := make(map[string]struct{}, len(refs))
		for j := range refs {
			key := refs[j].Key()
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if _, skip := known[key]; skip {
				continue
			}
			if c, ok := candidates[key]; ok {
				c.count++
				if refs[j].CitationCount > c.rec.CitationCount {
					c.rec = refs[j]
				}
				continue
			}
			candidates[key] = &candidate{rec: refs[j], count: 1}
		}
	}

	out := make([]types.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		rec := c.rec
		out = append(out, types.Recommendation{
			Paper: &rec,
			Score: float64(c.count),
			Rationale: fmt.Sprintf("referenced by %d of %d citing papers surveyed; not in the paper's own reference list",
				c.count, surveyed),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Paper.CitationCount != out[j].Paper.CitationCount {
			return out[i].Paper.CitationCount > out[j].Paper.CitationCount
		}
		return out[i].Paper.Key() < out[j].Paper.Key()
	})
	return out
}

// Collaborators finds authors appearing on multiple citing papers who are
// not already co-authors of the root, ranked by the number of distinct
// citing papers they appear on with an alphabetical tie-break.
func Collaborators(n *types.CitationNetwork) []types.Recommendation {
	rootAuthors := make(map[string]struct{}, len(n.Root.Authors))
	for _, a := range n.Root.Authors {
		rootAuthors[foldName(a)] = struct{}{}
	}

	papersBy := make(map[string]int)
	display := make(map[string]string)
	for i := range n.Citations {
		seen := make(map[string]struct{})
		for _, a := range n.Citations[i].Authors {
			key := foldName(a)
			if key == "" {
				continue
			}
			if _, own := rootAuthors[key]; own {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			papersBy[key]++
			if _, ok := display[key]; !ok {
				display[key] = strings.TrimSpace(a)
			}
		}
	}

	var out []types.Recommendation
	for key, count := range papersBy {
		if count < 2 {
			continue
		}
		out = append(out, types.Recommendation{
			Author:    display[key],
			Score:     float64(count),
			Rationale: fmt.Sprintf("author on %d distinct papers citing this work", count),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Author < out[j].Author
	})
	return out
}

func foldName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
