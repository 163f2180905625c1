// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package impact computes quantitative metrics over a built citation
// network. Pure functions: no I/O, and the network is never mutated.
package impact

import (
	"math"
	"sort"
	"time"

	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

// maxTopVenues caps the venue breakdown in the metrics.
const maxTopVenues = 10

// Analyze computes metrics for the network as of the current year.
func Analyze(n *types.CitationNetwork) types.ImpactMetrics {
	return AnalyzeAt(n, time.Now().Year())
}

// AnalyzeAt computes metrics as of the given year. A degenerate network
// (no citations, no references) yields zero-valued metrics, never an error.
//
// The influence score normalizes raw citation volume for the root's age
// and for the quality of its citers: a citing paper that is itself highly
// cited contributes more than an uncited one. Citing papers with missing
// citation counts contribute the base weight of 1.
func AnalyzeAt(n *types.CitationNetwork, currentYear int) types.ImpactMetrics {
	m := types.ImpactMetrics{
		CitationCount:       len(n.Citations),
		ReferenceCount:      len(n.References),
		YearlyCitationTrend: make(map[int]int),
	}

	var weighted float64
	for i := range n.Citations {
		c := &n.Citations[i]

		count := c.CitationCount
		if count < 0 {
			count = 0
		}
		weighted += 1 + math.Log1p(float64(count))

		// Papers without a year stay out of the trend but still count
		// toward CitationCount.
		if c.Year == 0 {
			continue
		}
		m.YearlyCitationTrend[c.Year]++
		if m.FirstCitationYear == 0 || c.Year < m.FirstCitationYear {
			m.FirstCitationYear = c.Year
		}
		if c.Year > m.LastCitationYear {
			m.LastCitationYear = c.Year
		}
	}

	age := 1
	if n.Root.Year != 0 && currentYear > n.Root.Year {
		age = currentYear - n.Root.Year
	}
	m.InfluenceScore = weighted / float64(age)

	m.TopVenues = topVenues(n.Citations)
	return m
}

// topVenues counts citing papers per venue, descending by count with an
// alphabetical tie-break for determinism.
func topVenues(citations []types.PaperRecord) []types.VenueCount {
	counts := make(map[string]int)
	for i := range citations {
		if v := citations[i].Venue; v != "" {
			counts[v]++
		}
	}
	if len(counts) == 0 {
		return nil
	}

	venues := make([]types.VenueCount, 0, len(counts))
	for v, c := range counts {
		venues = append(venues, types.VenueCount{Venue: v, Count: c})
	}
	sort.Slice(venues, func(i, j int) bool {
		if venues[i].Count != venues[j].Count {
			return venues[i].Count > venues[j].Count
		}
		return venues[i].Venue < venues[j].Venue
	})

	if len(venues) > maxTopVenues {
		venues = venues[:maxTopVenues]
	}
	return venues
}
