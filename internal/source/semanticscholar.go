// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/SoftHeinrich/paper-analyzer/internal/httputil"
	"github.com/SoftHeinrich/paper-analyzer/internal/resolve"
	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

// semanticAPIBase is the Semantic Scholar Graph API base URL. Declared as
// a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1"

const semanticFields = "paperId,externalIds,title,authors,year,venue,citationCount"

// resolveMinSimilarity is the least title similarity a search hit needs to
// be accepted as the queried paper during root resolution.
const resolveMinSimilarity = 0.75

// SemanticScholar queries the Semantic Scholar Graph API for citations
// and references.
type SemanticScholar struct {
	client *http.Client
	cfg    types.SourceConfig
}

// NewSemanticScholar builds the adapter from explicit configuration.
func NewSemanticScholar(client *http.Client, cfg types.SourceConfig) *SemanticScholar {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	return &SemanticScholar{client: client, cfg: cfg}
}

// Name returns the source identifier.
func (s *SemanticScholar) Name() string { return "semantic_scholar" }

// ResolvePaper looks up the queried paper, by DOI when available,
// otherwise by title search with a best-match check.
func (s *SemanticScholar) ResolvePaper(ctx context.Context, q Query) (*types.PaperRecord, error) {
	if q.IsEmpty() {
		return nil, Errf(s.Name(), KindNotFound, "empty query")
	}
	if err := httputil.Throttle(ctx, s.Name(), s.cfg.MinInterval); err != nil {
		return nil, transportError(s.Name(), err)
	}

	if q.DOI != "" {
		var paper semanticPaper
		reqURL := fmt.Sprintf("%s/paper/DOI:%s?fields=%s", semanticAPIBase, url.PathEscape(resolve.CanonicalDOI(q.DOI)), semanticFields)
		if err := getJSON(ctx, s.client, s.Name(), reqURL, s.cfg.UserAgent, s.header(), &paper); err != nil {
			return nil, err
		}
		rec := s.toRecord(paper)
		if rec == nil {
			return nil, Errf(s.Name(), KindMalformed, "paper record without title for DOI %s", q.DOI)
		}
		return rec, nil
	}

	params := url.Values{
		"query":  {q.Title},
		"limit":  {"10"},
		"fields": {semanticFields},
	}
	var sr semanticSearchResponse
	reqURL := semanticAPIBase + "/paper/search?" + params.Encode()
	if err := getJSON(ctx, s.client, s.Name(), reqURL, s.cfg.UserAgent, s.header(), &sr); err != nil {
		return nil, err
	}

	best := bestTitleMatch(q.Title, sr.Data, func(p semanticPaper) string { return p.Title })
	if best < 0 {
		return nil, Errf(s.Name(), KindNotFound, "no match for %q", q.Title)
	}
	rec := s.toRecord(sr.Data[best])
	if rec == nil {
		return nil, Errf(s.Name(), KindNotFound, "no usable match for %q", q.Title)
	}
	return rec, nil
}

// FetchCitations returns papers citing root.
func (s *SemanticScholar) FetchCitations(ctx context.Context, root *types.PaperRecord) ([]types.PaperRecord, error) {
	return s.fetchRelated(ctx, root, "citations")
}

// FetchReferences returns papers root cites.
func (s *SemanticScholar) FetchReferences(ctx context.Context, root *types.PaperRecord) ([]types.PaperRecord, error) {
	return s.fetchRelated(ctx, root, "references")
}

func (s *SemanticScholar) fetchRelated(ctx context.Context, root *types.PaperRecord, relation string) ([]types.PaperRecord, error) {
	paperID := s.paperID(root)
	if paperID == "" {
		// This source never indexed the paper; empty result, not a failure.
		return nil, nil
	}
	if err := httputil.Throttle(ctx, s.Name(), s.cfg.MinInterval); err != nil {
		return nil, transportError(s.Name(), err)
	}

	params := url.Values{
		"limit":  {fmt.Sprintf("%d", s.cfg.MaxResults)},
		"fields": {semanticFields},
	}
	reqURL := fmt.Sprintf("%s/paper/%s/%s?%s", semanticAPIBase, url.PathEscape(paperID), relation, params.Encode())

	var rr semanticRelatedResponse
	if err := getJSON(ctx, s.client, s.Name(), reqURL, s.cfg.UserAgent, s.header(), &rr); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []types.PaperRecord
	for _, entry := range rr.Data {
		paper := entry.CitingPaper
		if relation == "references" {
			paper = entry.CitedPaper
		}
		if rec := s.toRecord(paper); rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

// paperID returns the handle this source can fetch relations with: the
// native paperId when the root resolution found one, else the DOI.
func (s *SemanticScholar) paperID(root *types.PaperRecord) string {
	if id, ok := root.SourceIDs[s.Name()]; ok && id != "" {
		return id
	}
	if root.DOI != "" {
		return "DOI:" + root.DOI
	}
	return ""
}

func (s *SemanticScholar) header() http.Header {
	h := http.Header{}
	if s.cfg.SemanticScholarAPIKey != "" {
		h.Set("x-api-key", s.cfg.SemanticScholarAPIKey)
	}
	return h
}

// toRecord converts an API paper to a candidate record. Papers without a
// title are dropped: nothing downstream can match them.
func (s *SemanticScholar) toRecord(p semanticPaper) *types.PaperRecord {
	if p.Title == "" {
		return nil
	}
	rec := types.PaperRecord{
		Title:         p.Title,
		Year:          p.Year,
		Venue:         p.Venue,
		DOI:           resolve.CanonicalDOI(p.ExternalIDs.DOI),
		CitationCount: -1,
		SourceIDs:     map[string]string{s.Name(): p.PaperID},
		Provenance:    []string{s.Name()},
	}
	if p.CitationCount != nil {
		rec.CitationCount = *p.CitationCount
	}
	for _, a := range p.Authors {
		if a.Name != "" {
			rec.Authors = append(rec.Authors, a.Name)
		}
	}
	rec = resolve.Canonicalize(rec)
	return &rec
}

// bestTitleMatch returns the index of the search hit most similar to the
// queried title, or -1 when nothing clears the resolution floor.
func bestTitleMatch[T any](title string, hits []T, titleOf func(T) string) int {
	want := resolve.NormalizeTitle(title)
	best, bestSim := -1, 0.0
	for i, h := range hits {
		sim := resolve.TokenSetSimilarity(want, resolve.NormalizeTitle(titleOf(h)))
		if sim > bestSim {
			best, bestSim = i, sim
		}
	}
	if bestSim < resolveMinSimilarity {
		return -1
	}
	return best
}

// Semantic Scholar API JSON structures.
type semanticSearchResponse struct {
	Total int             `json:"total"`
	Data  []semanticPaper `json:"data"`
}

type semanticRelatedResponse struct {
	Data []semanticRelatedEntry `json:"data"`
}

type semanticRelatedEntry struct {
	CitingPaper semanticPaper `json:"citingPaper"`
	CitedPaper  semanticPaper `json:"citedPaper"`
}

type semanticPaper struct {
	PaperID       string              `json:"paperId"`
	Title         string              `json:"title"`
	Year          int                 `json:"year"`
	Venue         string              `json:"venue"`
	CitationCount *int                `json:"citationCount"`
	Authors       []semanticAuthor    `json:"authors"`
	ExternalIDs   semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
