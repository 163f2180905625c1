// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve decides whether two paper records denote the same real
// paper and merges matches into one canonical record per paper. It is pure
// and deterministic: no I/O, and output is invariant under permutation of
// the input.
package resolve

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

// Default thresholds for the matching policy. Both are tunable via
// ResolverConfig; the defaults are inferred, not calibrated.
const (
	DefaultMergeThreshold     = 0.90
	DefaultAmbiguousThreshold = 0.75
)

// DefaultSourcePriority orders sources for merge tie-breaking, most
// trusted metadata first.
var DefaultSourcePriority = []string{"semantic_scholar", "crossref", "openalex", "google_scholar"}

// Resolver applies the identity resolution policy.
type Resolver struct {
	mergeThreshold     float64
	ambiguousThreshold float64
	priority           map[string]int
}

// New returns a Resolver for the given config, applying defaults for
// unset fields.
func New(cfg types.ResolverConfig) *Resolver {
	if cfg.MergeThreshold <= 0 {
		cfg.MergeThreshold = DefaultMergeThreshold
	}
	if cfg.AmbiguousThreshold <= 0 {
		cfg.AmbiguousThreshold = DefaultAmbiguousThreshold
	}
	if len(cfg.SourcePriority) == 0 {
		cfg.SourcePriority = DefaultSourcePriority
	}

	priority := make(map[string]int, len(cfg.SourcePriority))
	for i, s := range cfg.SourcePriority {
		priority[s] = i
	}
	return &Resolver{
		mergeThreshold:     cfg.MergeThreshold,
		ambiguousThreshold: cfg.AmbiguousThreshold,
		priority:           priority,
	}
}

// Resolve merges a pool of candidate records into canonical records, one
// per real-world paper. Candidates with the same DOI always merge; others
// merge under the fuzzy policy. Records that are similar but fail a
// required sub-condition stay distinct and are annotated on both sides.
//
// The pool is folded in a canonical order, so the result does not depend
// on the order candidates arrived in.
func (r *Resolver) Resolve(candidates []types.PaperRecord) []types.PaperRecord {
	pool := make([]types.PaperRecord, len(candidates))
	for i, c := range candidates {
		pool[i] = Canonicalize(c)
	}
	sortRecords(pool)

	var canonical []types.PaperRecord
	for _, cand := range pool {
		idx := r.findMatch(canonical, cand)
		if idx >= 0 {
			canonical[idx] = r.merge(canonical[idx], cand)
			continue
		}
		r.flagAmbiguous(canonical, &cand)
		canonical = append(canonical, cand)
	}

	sortRecords(canonical)
	return canonical
}

// SamePaper reports whether two records denote the same paper under the
// decisive matching rules (exact DOI or high-confidence fuzzy match).
func (r *Resolver) SamePaper(a, b *types.PaperRecord) bool {
	if a.DOI != "" && b.DOI != "" {
		return a.DOI == b.DOI
	}
	return r.fuzzyMatch(a, b)
}

// findMatch returns the index of the first canonical record the candidate
// decisively matches, or -1.
func (r *Resolver) findMatch(canonical []types.PaperRecord, cand types.PaperRecord) int {
	// Rule 1: exact DOI match, unconditional.
	if cand.DOI != "" {
		for i := range canonical {
			if canonical[i].DOI == cand.DOI {
				return i
			}
		}
	}

	// Rule 2: high-confidence fuzzy match.
	for i := range canonical {
		// Conflicting DOIs are distinct papers no matter how similar
		// the titles are (e.g. versioned reprints).
		if cand.DOI != "" && canonical[i].DOI != "" {
			continue
		}
		if r.fuzzyMatch(&canonical[i], &cand) {
			return i
		}
	}
	return -1
}

// fuzzyMatch applies rule 2: title similarity above the merge threshold,
// compatible years, and matching first-author surname.
func (r *Resolver) fuzzyMatch(a, b *types.PaperRecord) bool {
	sim := TokenSetSimilarity(a.NormalizedTitle, b.NormalizedTitle)
	if sim < r.mergeThreshold {
		return false
	}
	if a.Year != 0 && b.Year != 0 && a.Year != b.Year {
		return false
	}
	sa, sb := FirstAuthorSurname(a.Authors), FirstAuthorSurname(b.Authors)
	if sa == "" || sb == "" {
		// No author data to contradict the title match; the year check
		// already passed, so accept.
		return true
	}
	return sa == sb
}

// flagAmbiguous annotates the candidate and any canonical record it
// resembles above the ambiguous threshold without decisively matching.
func (r *Resolver) flagAmbiguous(canonical []types.PaperRecord, cand *types.PaperRecord) {
	for i := range canonical {
		sim := TokenSetSimilarity(canonical[i].NormalizedTitle, cand.NormalizedTitle)
		if sim < r.ambiguousThreshold {
			continue
		}
		addNote(&canonical[i], fmt.Sprintf("ambiguous match: similar to %q (similarity %.2f), not merged", cand.Title, sim))
		addNote(cand, fmt.Sprintf("ambiguous match: similar to %q (similarity %.2f), not merged", canonical[i].Title, sim))
	}
}

// merge combines a canonical record with a matching candidate. Scalar
// fields come from the side with the richest non-empty field set, ties
// broken by source priority; authors keep the order of the higher-priority
// side; provenance, source IDs, and notes are unions; the citation count
// takes the maximum (sources undercount rather than overcount).
func (r *Resolver) merge(a, b types.PaperRecord) types.PaperRecord {
	winner, loser := a, b
	ra, rb := richness(a), richness(b)
	if rb > ra || (rb == ra && r.rank(b) < r.rank(a)) {
		winner, loser = b, a
	}

	out := types.PaperRecord{
		Title:           winner.Title,
		NormalizedTitle: winner.NormalizedTitle,
		Year:            winner.Year,
		Venue:           winner.Venue,
		DOI:             winner.DOI,
	}
	if out.Title == "" {
		out.Title = loser.Title
		out.NormalizedTitle = loser.NormalizedTitle
	}
	if out.Year == 0 {
		out.Year = loser.Year
	}
	if out.Venue == "" {
		out.Venue = loser.Venue
	}
	if out.DOI == "" {
		out.DOI = loser.DOI
	}

	// Authors: union preserving the priority side's order.
	first, second := winner, loser
	if r.rank(loser) < r.rank(winner) {
		first, second = loser, winner
	}
	out.Authors = unionAuthors(first.Authors, second.Authors)

	out.SourceIDs = make(map[string]string, len(a.SourceIDs)+len(b.SourceIDs))
	for _, rec := range []types.PaperRecord{loser, winner} {
		for src, id := range rec.SourceIDs {
			out.SourceIDs[src] = id
		}
	}
	for _, src := range a.Provenance {
		out.AddProvenance(src)
	}
	for _, src := range b.Provenance {
		out.AddProvenance(src)
	}

	out.CitationCount = a.CitationCount
	if b.CitationCount > out.CitationCount {
		out.CitationCount = b.CitationCount
	}

	out.Notes = unionStrings(a.Notes, b.Notes)
	return out
}

// rank returns the best (lowest) priority index among a record's
// provenance sources. Unknown sources rank after configured ones.
func (r *Resolver) rank(rec types.PaperRecord) int {
	best := len(r.priority) + 1
	for _, src := range rec.Provenance {
		if i, ok := r.priority[src]; ok && i < best {
			best = i
		}
	}
	return best
}

// richness counts the non-empty scalar fields considered in merges.
func richness(rec types.PaperRecord) int {
	n := 0
	if rec.Title != "" {
		n++
	}
	if rec.Year != 0 {
		n++
	}
	if rec.Venue != "" {
		n++
	}
	return n
}

// Canonicalize derives the normalized fields of a record: normalized
// title, canonical DOI form, and a provenance-consistent source ID map.
func Canonicalize(rec types.PaperRecord) types.PaperRecord {
	rec.NormalizedTitle = NormalizeTitle(rec.Title)
	rec.DOI = CanonicalDOI(rec.DOI)
	sort.Strings(rec.Provenance)
	return rec
}

// NormalizeTitle returns a lowercased, punctuation-stripped,
// whitespace-collapsed form of the title.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CanonicalDOI lowercases a DOI and strips resolver URL prefixes, so DOIs
// compare case-insensitively across sources.
func CanonicalDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}

// TokenSetSimilarity returns the Jaccard similarity of the token sets of
// two normalized titles. Order-insensitive; 1.0 for identical sets.
func TokenSetSimilarity(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

// FirstAuthorSurname returns the case-folded surname of the first listed
// author: the family part of a "Family, Given" form, otherwise the last
// whitespace-separated token.
func FirstAuthorSurname(authors []string) string {
	if len(authors) == 0 {
		return ""
	}
	name := strings.TrimSpace(authors[0])
	if name == "" {
		return ""
	}
	if i := strings.Index(name, ","); i >= 0 {
		name = name[:i]
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[len(fields)-1])
}

// sortRecords orders records canonically: DOI-bearing records first by
// DOI, then by normalized title, year, and provenance.
func sortRecords(recs []types.PaperRecord) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if (a.DOI != "") != (b.DOI != "") {
			return a.DOI != ""
		}
		if a.DOI != b.DOI {
			return a.DOI < b.DOI
		}
		if a.NormalizedTitle != b.NormalizedTitle {
			return a.NormalizedTitle < b.NormalizedTitle
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return strings.Join(a.Provenance, ",") < strings.Join(b.Provenance, ",")
	})
}

func addNote(rec *types.PaperRecord, note string) {
	for _, n := range rec.Notes {
		if n == note {
			return
		}
	}
	rec.Notes = append(rec.Notes, note)
}

func unionAuthors(first, second []string) []string {
	seen := make(map[string]struct{}, len(first))
	out := make([]string, 0, len(first))
	for _, a := range first {
		key := strings.ToLower(strings.TrimSpace(a))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	for _, a := range second {
		key := strings.ToLower(strings.TrimSpace(a))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

func unionStrings(a, b []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, s := range append(append([]string{}, a...), b...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
