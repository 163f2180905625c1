// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package network assembles canonical citation networks. The aggregator
// fans a query out to every configured source adapter, funnels the raw
// candidates through the identity resolver, and degrades gracefully when
// individual sources fail: a failed source becomes a source_errors entry,
// never an aborted build.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/SoftHeinrich/paper-analyzer/internal/resolve"
	"github.com/SoftHeinrich/paper-analyzer/internal/source"
	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

// ErrRootNotFound reports that no configured source could establish a
// canonical identity for the queried paper. It is the only failure
// BuildNetwork surfaces as an error.
var ErrRootNotFound = errors.New("root paper not found in any configured source")

const (
	defaultMaxConcurrent = 4

	relationCitations  = "citations"
	relationReferences = "references"
)

// Aggregator orchestrates source adapters and the identity resolver into
// citation networks. It owns the lifecycle of each CitationNetwork it
// builds; adapters hold no state across calls beyond their configuration.
type Aggregator struct {
	adapters []source.Adapter
	resolver *resolve.Resolver
	cfg      types.NetworkConfig
	w        io.Writer
}

// New returns an Aggregator over the given adapters. Progress and
// per-source warnings are written to w.
func New(adapters []source.Adapter, resolver *resolve.Resolver, cfg types.NetworkConfig, w io.Writer) *Aggregator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if w == nil {
		w = io.Discard
	}
	return &Aggregator{adapters: adapters, resolver: resolver, cfg: cfg, w: w}
}

// BuildNetwork builds the citation network for the queried paper. The
// returned error is non-nil only when no source could resolve the root;
// every per-source failure is recorded in the network's SourceErrors
// instead. When the overall timeout expires, results already fetched are
// kept and the network is built from them.
func (a *Aggregator) BuildNetwork(ctx context.Context, q source.Query) (*types.CitationNetwork, error) {
	if q.IsEmpty() {
		return nil, fmt.Errorf("%w: query carries neither title nor DOI", ErrRootNotFound)
	}
	if a.cfg.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.OverallTimeout)
		defer cancel()
	}

	sourceErrors := make(map[string]string)

	root, err := a.resolveRoot(ctx, q, sourceErrors)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.w, "resolved root: %q (%s)\n", root.Title, strings.Join(root.Provenance, ","))

	citationsPool, referencesPool := a.fetchAll(ctx, root, sourceErrors)

	citations := a.dropRoot(root, a.resolver.Resolve(citationsPool))
	references := a.dropRoot(root, a.resolver.Resolve(referencesPool))

	n := &types.CitationNetwork{
		Root:         *root,
		Citations:    citations,
		References:   references,
		SourceErrors: sourceErrors,
	}
	n.Edges = buildEdges(root, citations, references)
	return n, nil
}

// ReferencesOf fetches and resolves the reference list of an arbitrary
// paper in the network. The recommender uses this for its optional
// co-citation enrichment; failures here are soft, surfacing only when no
// source produced anything.
func (a *Aggregator) ReferencesOf(ctx context.Context, rec *types.PaperRecord) ([]types.PaperRecord, error) {
	var (
		pool    []types.PaperRecord
		lastErr error
	)
	for _, ad := range a.adapters {
		recs, err := ad.FetchReferences(ctx, rec)
		if err != nil {
			lastErr = err
			continue
		}
		pool = append(pool, recs...)
	}
	if len(pool) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return a.resolver.Resolve(pool), nil
}

// resolveRoot queries every adapter for the exact paper concurrently and
// merges their views into one canonical root record.
func (a *Aggregator) resolveRoot(ctx context.Context, q source.Query, sourceErrors map[string]string) (*types.PaperRecord, error) {
	type rootResult struct {
		name string
		rec  *types.PaperRecord
		err  error
	}

	ch := make(chan rootResult, len(a.adapters))
	var wg sync.WaitGroup
	for _, ad := range a.adapters {
		wg.Add(1)
		go func(ad source.Adapter) {
			defer wg.Done()
			rec, err := ad.ResolvePaper(ctx, q)
			ch <- rootResult{name: ad.Name(), rec: rec, err: err}
		}(ad)
	}
	go func() {
		wg.Wait()
		close(ch)
	}()

	var views []types.PaperRecord
	for rr := range ch {
		if rr.err != nil {
			// A source that simply does not index the paper is not a
			// failure; everything else means coverage is incomplete.
			if !source.IsNotFound(rr.err) {
				recordSourceError(sourceErrors, rr.name, "resolve", rr.err)
				fmt.Fprintf(a.w, "warning: %s root lookup failed: %v\n", rr.name, rr.err)
			}
			continue
		}
		views = append(views, *rr.rec)
	}

	if len(views) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrRootNotFound, firstNonEmpty(q.DOI, q.Title))
	}

	merged := a.resolver.Resolve(views)
	root := pickRoot(merged)
	return &root, nil
}

// pickRoot chooses the canonical root when sources disagree about the
// queried paper: the record the most sources agree on wins.
func pickRoot(records []types.PaperRecord) types.PaperRecord {
	best := 0
	for i := range records {
		if len(records[i].Provenance) > len(records[best].Provenance) {
			best = i
		}
	}
	return records[best]
}

// fetchAll runs one task per (source, relation) pair across a bounded
// worker pool. Each task returns its own result; this single goroutine
// merges them, so there are no concurrent writers to a shared container.
func (a *Aggregator) fetchAll(ctx context.Context, root *types.PaperRecord, sourceErrors map[string]string) (citations, references []types.PaperRecord) {
	type task struct {
		adapter  source.Adapter
		relation string
	}
	type result struct {
		name     string
		relation string
		records  []types.PaperRecord
		err      error
	}

	var tasks []task
	for _, ad := range a.adapters {
		tasks = append(tasks, task{ad, relationCitations}, task{ad, relationReferences})
	}

	sem := make(chan struct{}, a.cfg.MaxConcurrent)
	ch := make(chan result, len(tasks))
	var wg sync.WaitGroup

	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				ch <- result{name: t.adapter.Name(), relation: t.relation,
					err: source.Errf(t.adapter.Name(), source.KindUnavailable, "cancelled: %w", ctx.Err())}
				return
			}

			var (
				recs []types.PaperRecord
				err  error
			)
			switch t.relation {
			case relationCitations:
				recs, err = t.adapter.FetchCitations(ctx, root)
			case relationReferences:
				recs, err = t.adapter.FetchReferences(ctx, root)
			}
			ch <- result{name: t.adapter.Name(), relation: t.relation, records: recs, err: err}
		}(t)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	for r := range ch {
		if r.err != nil {
			recordSourceError(sourceErrors, r.name, r.relation, r.err)
			fmt.Fprintf(a.w, "warning: %s %s fetch failed: %v\n", r.name, r.relation, r.err)
			continue
		}
		switch r.relation {
		case relationCitations:
			citations = append(citations, r.records...)
		case relationReferences:
			references = append(references, r.records...)
		}
	}
	return citations, references
}

// dropRoot removes any candidate whose resolved identity equals the root,
// so malformed source data can never produce a self-loop.
func (a *Aggregator) dropRoot(root *types.PaperRecord, records []types.PaperRecord) []types.PaperRecord {
	out := records[:0]
	for i := range records {
		if records[i].Key() == root.Key() || a.resolver.SamePaper(root, &records[i]) {
			continue
		}
		out = append(out, records[i])
	}
	return out
}

// buildEdges records every relation in the cites direction: citer -> cited.
func buildEdges(root *types.PaperRecord, citations, references []types.PaperRecord) []types.CitationEdge {
	type edgeKey struct{ from, to string }
	seen := make(map[edgeKey]int)
	var edges []types.CitationEdge

	add := func(from, to string, provenance []string) {
		k := edgeKey{from, to}
		if i, ok := seen[k]; ok {
			for _, src := range provenance {
				edges[i].Provenance = mergeProvenance(edges[i].Provenance, src)
			}
			return
		}
		seen[k] = len(edges)
		edges = append(edges, types.CitationEdge{
			From:       from,
			To:         to,
			Relation:   types.RelationCites,
			Provenance: append([]string(nil), provenance...),
		})
	}

	for i := range citations {
		add(citations[i].Key(), root.Key(), citations[i].Provenance)
	}
	for i := range references {
		add(root.Key(), references[i].Key(), references[i].Provenance)
	}
	return edges
}

func mergeProvenance(list []string, src string) []string {
	for _, s := range list {
		if s == src {
			return list
		}
	}
	list = append(list, src)
	sort.Strings(list)
	return list
}

// recordSourceError accumulates failure reasons per source; a source
// failing both relations gets one entry with the reasons joined.
func recordSourceError(sourceErrors map[string]string, name, phase string, err error) {
	msg := fmt.Sprintf("%s: %v", phase, err)
	if prev, ok := sourceErrors[name]; ok {
		sourceErrors[name] = prev + "; " + msg
		return
	}
	sourceErrors[name] = msg
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
