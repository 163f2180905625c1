// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the citation network core:
// paper records, citation edges, built networks, and the structures derived
// from them. Everything here carries JSON and YAML tags so the export and
// storage layers can serialize networks field-for-field.
package types

import "sort"

// PaperRecord is a candidate or canonical representation of one paper.
// Candidates come from a single source; canonical records are produced by
// the resolver and may combine data from several sources.
type PaperRecord struct {
	// Title is the paper title as reported by the richest contributing source.
	Title string `json:"title" yaml:"title"`

	// NormalizedTitle is the lowercase, punctuation-stripped,
	// whitespace-collapsed form of Title, used for matching.
	NormalizedTitle string `json:"normalized_title" yaml:"normalized_title"`

	// Authors lists author names in the order reported by the
	// highest-priority contributing source.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the publication year; 0 means unknown.
	Year int `json:"year,omitempty" yaml:"year,omitempty"`

	// Venue is the conference or journal name, if reported.
	Venue string `json:"venue,omitempty" yaml:"venue,omitempty"`

	// DOI is the canonical lowercase DOI, if known.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// SourceIDs maps a source name to that source's native identifier for
	// this paper (e.g. a Semantic Scholar paperId or an OpenAlex work ID).
	SourceIDs map[string]string `json:"source_ids,omitempty" yaml:"source_ids,omitempty"`

	// CitationCount is the largest citation count any source reported for
	// this paper; -1 means no source reported one.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// Provenance is the set of source names that contributed to this record.
	// For a canonical record it is non-empty and equals the key set of SourceIDs.
	Provenance []string `json:"provenance" yaml:"provenance"`

	// Notes carries informational annotations attached during resolution,
	// such as ambiguous-match warnings. Never fatal.
	Notes []string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Key returns the identity key used for edges and self-citation checks:
// the DOI when present, otherwise the normalized title.
func (p *PaperRecord) Key() string {
	if p.DOI != "" {
		return p.DOI
	}
	return p.NormalizedTitle
}

// HasSource reports whether the named source contributed to this record.
func (p *PaperRecord) HasSource(name string) bool {
	for _, s := range p.Provenance {
		if s == name {
			return true
		}
	}
	return false
}

// AddProvenance records that the named source contributed, keeping the
// provenance set sorted and duplicate-free.
func (p *PaperRecord) AddProvenance(name string) {
	if p.HasSource(name) {
		return
	}
	p.Provenance = append(p.Provenance, name)
	sort.Strings(p.Provenance)
}

// CitationEdge is a directed citation relation between two papers,
// identified by their record keys. Edges are always stored in the cites
// direction: From cites To.
type CitationEdge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`

	// Relation is always "cites"; kept as a field for serialization.
	Relation string `json:"relation" yaml:"relation"`

	// Provenance is the set of sources that reported this edge.
	Provenance []string `json:"provenance" yaml:"provenance"`
}

// RelationCites is the single edge relation used in built networks.
const RelationCites = "cites"

// CitationNetwork is the canonical citation neighborhood of one paper.
// It is constructed by the aggregator and immutable once returned:
// the analyzer and recommender read it but never modify it.
type CitationNetwork struct {
	// Root is the queried paper.
	Root PaperRecord `json:"root" yaml:"root"`

	// Citations are the canonical papers citing Root.
	Citations []PaperRecord `json:"citations" yaml:"citations"`

	// References are the canonical papers Root cites.
	References []PaperRecord `json:"references" yaml:"references"`

	// Edges holds one edge per (from, to) pair, in the cites direction.
	Edges []CitationEdge `json:"edges" yaml:"edges"`

	// SourceErrors maps a source name to the reason it could not contribute.
	// An entry here means coverage from that source is incomplete; it is
	// never an operation-level failure.
	SourceErrors map[string]string `json:"source_errors,omitempty" yaml:"source_errors,omitempty"`
}

// TotalPapers returns the number of papers in the network including the root.
func (n *CitationNetwork) TotalPapers() int {
	return 1 + len(n.Citations) + len(n.References)
}

// ImpactMetrics holds quantitative metrics derived from a built network.
type ImpactMetrics struct {
	// CitationCount is the number of distinct citing papers in the network.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// ReferenceCount is the number of distinct referenced papers.
	ReferenceCount int `json:"reference_count" yaml:"reference_count"`

	// InfluenceScore is the age- and citer-quality-normalized impact score:
	// sum(1 + log1p(citer citation count)) / max(1, root age in years).
	InfluenceScore float64 `json:"influence_score" yaml:"influence_score"`

	// YearlyCitationTrend maps year to the number of citing papers
	// published that year. Citing papers with no year are counted in
	// CitationCount but excluded from the trend.
	YearlyCitationTrend map[int]int `json:"yearly_citation_trend" yaml:"yearly_citation_trend"`

	// FirstCitationYear and LastCitationYear bound the trend; both are 0
	// when no citing paper reports a year.
	FirstCitationYear int `json:"first_citation_year,omitempty" yaml:"first_citation_year,omitempty"`
	LastCitationYear  int `json:"last_citation_year,omitempty" yaml:"last_citation_year,omitempty"`

	// TopVenues lists the most frequent citing venues, descending by count.
	TopVenues []VenueCount `json:"top_venues,omitempty" yaml:"top_venues,omitempty"`
}

// VenueCount pairs a venue name with the number of citing papers from it.
type VenueCount struct {
	Venue string `json:"venue" yaml:"venue"`
	Count int    `json:"count" yaml:"count"`
}

// Recommendation is one ranked suggestion derived from a network. Exactly
// one of Paper and Author is set: paper suggestions carry the candidate
// record, collaborator suggestions carry an author name.
type Recommendation struct {
	Paper  *PaperRecord `json:"paper,omitempty" yaml:"paper,omitempty"`
	Author string       `json:"author,omitempty" yaml:"author,omitempty"`

	// Score orders recommendations; sequences are sorted descending.
	Score float64 `json:"score" yaml:"score"`

	// Rationale documents the ranking basis in human-readable form.
	Rationale string `json:"rationale" yaml:"rationale"`
}
