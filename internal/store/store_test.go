// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.StoreConfig{DataDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testNetwork() *types.CitationNetwork {
	return &types.CitationNetwork{
		Root: types.PaperRecord{
			Title:           "Attention Is All You Need",
			NormalizedTitle: "attention is all you need",
			Authors:         []string{"Ashish Vaswani", "Noam Shazeer"},
			Year:            2017,
			Venue:           "NeurIPS",
			DOI:             "10.48550/arxiv.1706.03762",
			SourceIDs:       map[string]string{"semantic_scholar": "649def"},
			CitationCount:   95000,
			Provenance:      []string{"crossref", "semantic_scholar"},
		},
		Citations: []types.PaperRecord{
			{
				Title:           "BERT",
				NormalizedTitle: "bert",
				Authors:         []string{"Jacob Devlin"},
				Year:            2019,
				DOI:             "10.18653/v1/n19-1423",
				SourceIDs:       map[string]string{"semantic_scholar": "df2b"},
				CitationCount:   80000,
				Provenance:      []string{"semantic_scholar"},
			},
		},
		References: []types.PaperRecord{
			{
				Title:           "Long Short-Term Memory",
				NormalizedTitle: "long shortterm memory",
				Year:            1997,
				DOI:             "10.1162/neco.1997.9.8.1735",
				SourceIDs:       map[string]string{"crossref": "10.1162/neco.1997.9.8.1735"},
				CitationCount:   -1,
				Provenance:      []string{"crossref"},
			},
		},
		Edges: []types.CitationEdge{
			{From: "10.18653/v1/n19-1423", To: "10.48550/arxiv.1706.03762", Relation: types.RelationCites, Provenance: []string{"semantic_scholar"}},
			{From: "10.48550/arxiv.1706.03762", To: "10.1162/neco.1997.9.8.1735", Relation: types.RelationCites, Provenance: []string{"crossref"}},
		},
		SourceErrors: map[string]string{
			"google_scholar": "citations: google_scholar: unavailable: blocked by provider (captcha page)",
		},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	n := testNetwork()

	require.NoError(t, s.Save(n))

	got, err := s.Load(n.Root.Key())
	require.NoError(t, err)

	assert.Equal(t, n.Root.Title, got.Root.Title)
	assert.Equal(t, n.Root.NormalizedTitle, got.Root.NormalizedTitle)
	assert.Equal(t, n.Root.Authors, got.Root.Authors)
	assert.Equal(t, n.Root.Year, got.Root.Year)
	assert.Equal(t, n.Root.DOI, got.Root.DOI)
	assert.Equal(t, n.Root.SourceIDs, got.Root.SourceIDs)
	assert.Equal(t, n.Root.CitationCount, got.Root.CitationCount)
	assert.Equal(t, n.Root.Provenance, got.Root.Provenance)

	require.Len(t, got.Citations, 1)
	assert.Equal(t, "BERT", got.Citations[0].Title)
	require.Len(t, got.References, 1)
	assert.Equal(t, -1, got.References[0].CitationCount, "absent citation counts survive the round trip")

	require.Len(t, got.Edges, 2)
	assert.Equal(t, n.SourceErrors, got.SourceErrors)
}

func TestSaveReplacesPreviousBuild(t *testing.T) {
	s := newTestStore(t)
	n := testNetwork()
	require.NoError(t, s.Save(n))

	// A rebuild of the same root with fewer citations replaces the old rows.
	n2 := testNetwork()
	n2.Citations = nil
	n2.Edges = n2.Edges[1:]
	require.NoError(t, s.Save(n2))

	got, err := s.Load(n.Root.Key())
	require.NoError(t, err)
	assert.Empty(t, got.Citations)
	assert.Len(t, got.Edges, 1)
}

func TestLoadUnknownRoot(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Load("10.1/never-built")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSaveTwoNetworksIndependently(t *testing.T) {
	s := newTestStore(t)

	n1 := testNetwork()
	require.NoError(t, s.Save(n1))

	n2 := testNetwork()
	n2.Root.DOI = "10.1/other"
	n2.Citations = nil
	n2.References = nil
	n2.Edges = nil
	require.NoError(t, s.Save(n2))

	got1, err := s.Load(n1.Root.Key())
	require.NoError(t, err)
	assert.Len(t, got1.Citations, 1)

	got2, err := s.Load("10.1/other")
	require.NoError(t, err)
	assert.Empty(t, got2.Citations)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	n := testNetwork()

	path, err := s.WriteSnapshot(n)
	require.NoError(t, err)
	assert.Equal(t, ".yaml", filepath.Ext(path))

	got, err := ReadSnapshot(path)
	require.NoError(t, err)

	assert.Equal(t, n.Root.Title, got.Root.Title)
	assert.Equal(t, n.Root.DOI, got.Root.DOI)
	require.Len(t, got.Citations, 1)
	assert.Equal(t, n.Citations[0].Title, got.Citations[0].Title)
	assert.Equal(t, n.Edges, got.Edges)
	assert.Equal(t, n.SourceErrors, got.SourceErrors)
}

func TestReadSnapshotMissingFile(t *testing.T) {
	_, err := ReadSnapshot(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSnapshotSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.48550/arxiv.1706.03762", "10.48550-arxiv.1706.03762"},
		{"attention is all you need", "attention-is-all-you-need"},
		{"", "network"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, snapshotSlug(tt.in))
	}
}
