// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

// fakeLoader serves canned reference lists keyed by the citing paper's key.
type fakeLoader struct {
	refs map[string][]types.PaperRecord
	errs map[string]error
}

func (f *fakeLoader) ReferencesOf(_ context.Context, rec *types.PaperRecord) ([]types.PaperRecord, error) {
	if err, ok := f.errs[rec.Key()]; ok {
		return nil, err
	}
	return f.refs[rec.Key()], nil
}

func citer(title string, authors ...string) types.PaperRecord {
	return types.PaperRecord{
		Title:           title,
		NormalizedTitle: strings.ToLower(title),
		Authors:         authors,
		CitationCount:   -1,
	}
}

func ref(title, doi string) types.PaperRecord {
	return types.PaperRecord{
		Title:           title,
		NormalizedTitle: strings.ToLower(title),
		DOI:             doi,
		CitationCount:   -1,
	}
}

func TestPapersToCiteRanksByCoCitation(t *testing.T) {
	n := &types.CitationNetwork{
		Root: types.PaperRecord{
			Title:           "Root Paper",
			NormalizedTitle: "root paper",
			DOI:             "10.1/root",
		},
		Citations: []types.PaperRecord{
			citer("Citer One"), citer("Citer Two"), citer("Citer Three"),
		},
		References: []types.PaperRecord{
			ref("Already Referenced", "10.1/known"),
		},
	}

	popular := ref("Popular Missing Reference", "10.1/popular")
	rare := ref("Rare Reference", "10.1/rare")
	known := ref("Already Referenced", "10.1/known")

	loader := &fakeLoader{refs: map[string][]types.PaperRecord{
		"citer one":   {popular, known},
		"citer two":   {popular, rare},
		"citer three": {popular},
	}}

	out := PapersToCite(context.Background(), n, loader)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2 (the known reference is excluded)", len(out))
	}

	if out[0].Paper.DOI != "10.1/popular" || out[0].Score != 3 {
		t.Errorf("out[0] = %+v, want the 3x co-cited paper first", out[0])
	}
	if !strings.Contains(out[0].Rationale, "referenced by 3 of 3 citing papers") {
		t.Errorf("Rationale = %q", out[0].Rationale)
	}
	if out[1].Paper.DOI != "10.1/rare" || out[1].Score != 1 {
		t.Errorf("out[1] = %+v", out[1])
	}
}

func TestPapersToCiteNeverSuggestsRoot(t *testing.T) {
	n := &types.CitationNetwork{
		Root:      types.PaperRecord{Title: "Root Paper", NormalizedTitle: "root paper", DOI: "10.1/root"},
		Citations: []types.PaperRecord{citer("Citer One")},
	}
	loader := &fakeLoader{refs: map[string][]types.PaperRecord{
		"citer one": {ref("Root Paper", "10.1/root")},
	}}

	out := PapersToCite(context.Background(), n, loader)
	if len(out) != 0 {
		t.Errorf("out = %+v, want empty: the root must never be suggested", out)
	}
}

func TestPapersToCiteSkipsFailingCiters(t *testing.T) {
	n := &types.CitationNetwork{
		Root:      types.PaperRecord{Title: "Root Paper", NormalizedTitle: "root paper", DOI: "10.1/root"},
		Citations: []types.PaperRecord{citer("Citer One"), citer("Citer Two")},
	}
	loader := &fakeLoader{
		refs: map[string][]types.PaperRecord{
			"citer one": {ref("Candidate", "10.1/cand")},
		},
		errs: map[string]error{
			"citer two": errors.New("source down"),
		},
	}

	out := PapersToCite(context.Background(), n, loader)
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	// Only the surveyed citer counts toward the rationale denominator.
	if !strings.Contains(out[0].Rationale, "1 of 1 citing papers") {
		t.Errorf("Rationale = %q", out[0].Rationale)
	}
}

func TestPapersToCiteNilLoader(t *testing.T) {
	n := &types.CitationNetwork{
		Root:      types.PaperRecord{Title: "Root Paper"},
		Citations: []types.PaperRecord{citer("Citer One")},
	}
	if out := PapersToCite(context.Background(), n, nil); out != nil {
		t.Errorf("out = %+v, want nil without a loader", out)
	}
}

func TestPapersToCiteCountsEachCiterOnce(t *testing.T) {
	n := &types.CitationNetwork{
		Root:      types.PaperRecord{Title: "Root Paper", NormalizedTitle: "root paper", DOI: "10.1/root"},
		Citations: []types.PaperRecord{citer("Citer One")},
	}
	// One citer listing the same reference twice still counts once.
	loader := &fakeLoader{refs: map[string][]types.PaperRecord{
		"citer one": {ref("Candidate", "10.1/cand"), ref("Candidate", "10.1/cand")},
	}}

	out := PapersToCite(context.Background(), n, loader)
	if len(out) != 1 || out[0].Score != 1 {
		t.Fatalf("out = %+v, want one candidate with score 1", out)
	}
}

func TestCollaboratorsRanking(t *testing.T) {
	n := &types.CitationNetwork{
		Root: types.PaperRecord{
			Title:   "Root Paper",
			Authors: []string{"Root Author"},
		},
		Citations: []types.PaperRecord{
			citer("C1", "Alice Chen", "Bob Kumar"),
			citer("C2", "Alice Chen", "Root Author"),
			citer("C3", "Alice Chen", "Bob Kumar"),
			citer("C4", "Carol Diaz"),
		},
	}

	out := Collaborators(n)

	// Alice on 3 papers, Bob on 2; Carol (1) misses the threshold; the
	// root's own author is excluded entirely.
	if len(out) != 2 {
		t.Fatalf("out = %+v, want 2 collaborators", out)
	}
	if out[0].Author != "Alice Chen" || out[0].Score != 3 {
		t.Errorf("out[0] = %+v", out[0])
	}
	if out[1].Author != "Bob Kumar" || out[1].Score != 2 {
		t.Errorf("out[1] = %+v", out[1])
	}
	if !strings.Contains(out[0].Rationale, "author on 3 distinct papers citing this work") {
		t.Errorf("Rationale = %q", out[0].Rationale)
	}
}

func TestCollaboratorsExcludesRootCoauthors(t *testing.T) {
	n := &types.CitationNetwork{
		Root: types.PaperRecord{Authors: []string{"Root Author", "Shared Coauthor"}},
		Citations: []types.PaperRecord{
			citer("C1", "Shared Coauthor"),
			citer("C2", "shared coauthor"),
			citer("C3", "Shared   Coauthor"),
		},
	}
	if out := Collaborators(n); len(out) != 0 {
		t.Errorf("out = %+v, want empty: co-authors are not collaborator candidates", out)
	}
}

func TestCollaboratorsCountsDistinctPapers(t *testing.T) {
	n := &types.CitationNetwork{
		Root: types.PaperRecord{Authors: []string{"Root Author"}},
		Citations: []types.PaperRecord{
			// The same author listed twice on one paper counts once.
			citer("C1", "Alice Chen", "Alice Chen"),
			citer("C2", "Alice Chen"),
		},
	}
	out := Collaborators(n)
	if len(out) != 1 || out[0].Score != 2 {
		t.Fatalf("out = %+v, want Alice with score 2", out)
	}
}

func TestCollaboratorsAlphabeticalTieBreak(t *testing.T) {
	n := &types.CitationNetwork{
		Root: types.PaperRecord{Authors: []string{"Root Author"}},
		Citations: []types.PaperRecord{
			citer("C1", "Zoe Park", "Ann Lee"),
			citer("C2", "Zoe Park", "Ann Lee"),
		},
	}
	out := Collaborators(n)
	if len(out) != 2 {
		t.Fatalf("out = %+v, want 2", out)
	}
	if out[0].Author != "Ann Lee" || out[1].Author != "Zoe Park" {
		t.Errorf("order = %q, %q, want alphabetical on equal scores", out[0].Author, out[1].Author)
	}
}

func TestRecommendEmptyNetwork(t *testing.T) {
	n := &types.CitationNetwork{Root: types.PaperRecord{Title: "Lonely Paper"}}
	papers, collaborators := Recommend(context.Background(), n, &fakeLoader{})
	if papers != nil || collaborators != nil {
		t.Errorf("papers = %v, collaborators = %v, want both empty", papers, collaborators)
	}
}
