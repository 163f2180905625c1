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

// crossrefAPIBase is the Crossref works endpoint. Declared as a var so
// tests can substitute an httptest server.
var crossrefAPIBase = "https://api.crossref.org/works"

const crossrefSelect = "DOI,title,author,issued,container-title,is-referenced-by-count,reference"

// Crossref queries the Crossref REST API. Crossref carries reference lists
// on each work but does not expose forward citations, so FetchCitations
// always returns an empty result.
type Crossref struct {
	client *http.Client
	cfg    types.SourceConfig
}

// NewCrossref builds the adapter from explicit configuration.
func NewCrossref(client *http.Client, cfg types.SourceConfig) *Crossref {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	return &Crossref{client: client, cfg: cfg}
}

// Name returns the source identifier.
func (c *Crossref) Name() string { return "crossref" }

// ResolvePaper looks up the queried paper by DOI, or by bibliographic
// title search with a best-match check.
func (c *Crossref) ResolvePaper(ctx context.Context, q Query) (*types.PaperRecord, error) {
	if q.IsEmpty() {
		return nil, Errf(c.Name(), KindNotFound, "empty query")
	}
	if err := httputil.Throttle(ctx, c.Name(), c.cfg.MinInterval); err != nil {
		return nil, transportError(c.Name(), err)
	}

	if q.DOI != "" {
		work, err := c.workByDOI(ctx, resolve.CanonicalDOI(q.DOI))
		if err != nil {
			return nil, err
		}
		rec := c.toRecord(*work)
		if rec == nil {
			return nil, Errf(c.Name(), KindMalformed, "work without title for DOI %s", q.DOI)
		}
		return rec, nil
	}

	params := url.Values{
		"query.title": {q.Title},
		"rows":        {"10"},
		"select":      {crossrefSelect},
	}
	if c.cfg.CrossrefMailto != "" {
		params.Set("mailto", c.cfg.CrossrefMailto)
	}

	var sr crossrefSearchResponse
	if err := getJSON(ctx, c.client, c.Name(), crossrefAPIBase+"?"+params.Encode(), c.cfg.UserAgent, nil, &sr); err != nil {
		return nil, err
	}

	best := bestTitleMatch(q.Title, sr.Message.Items, func(w crossrefWork) string { return w.title() })
	if best < 0 {
		return nil, Errf(c.Name(), KindNotFound, "no match for %q", q.Title)
	}
	rec := c.toRecord(sr.Message.Items[best])
	if rec == nil {
		return nil, Errf(c.Name(), KindNotFound, "no usable match for %q", q.Title)
	}
	return rec, nil
}

// FetchCitations returns an empty result: Crossref does not index forward
// citations.
func (c *Crossref) FetchCitations(_ context.Context, _ *types.PaperRecord) ([]types.PaperRecord, error) {
	return nil, nil
}

// FetchReferences returns the reference list Crossref carries on the work.
func (c *Crossref) FetchReferences(ctx context.Context, root *types.PaperRecord) ([]types.PaperRecord, error) {
	doi := root.DOI
	if id, ok := root.SourceIDs[c.Name()]; ok && id != "" {
		doi = id
	}
	if doi == "" {
		return nil, nil
	}
	if err := httputil.Throttle(ctx, c.Name(), c.cfg.MinInterval); err != nil {
		return nil, transportError(c.Name(), err)
	}

	work, err := c.workByDOI(ctx, doi)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var records []types.PaperRecord
	for _, ref := range work.Reference {
		if len(records) >= c.cfg.MaxResults {
			break
		}
		if rec := c.referenceToRecord(ref); rec != nil {
			records = append(records, *rec)
		}
	}
	return records, nil
}

func (c *Crossref) workByDOI(ctx context.Context, doi string) (*crossrefWork, error) {
	reqURL := crossrefAPIBase + "/" + url.PathEscape(doi)
	if c.cfg.CrossrefMailto != "" {
		reqURL += "?mailto=" + url.QueryEscape(c.cfg.CrossrefMailto)
	}
	var wr crossrefWorkResponse
	if err := getJSON(ctx, c.client, c.Name(), reqURL, c.cfg.UserAgent, nil, &wr); err != nil {
		return nil, err
	}
	return &wr.Message, nil
}

// toRecord converts a Crossref work to a candidate record.
func (c *Crossref) toRecord(w crossrefWork) *types.PaperRecord {
	title := w.title()
	if title == "" {
		return nil
	}
	rec := types.PaperRecord{
		Title:         title,
		Year:          w.year(),
		DOI:           resolve.CanonicalDOI(w.DOI),
		CitationCount: -1,
		SourceIDs:     map[string]string{c.Name(): resolve.CanonicalDOI(w.DOI)},
		Provenance:    []string{c.Name()},
	}
	if len(w.ContainerTitle) > 0 {
		rec.Venue = w.ContainerTitle[0]
	}
	if w.IsReferencedByCount != nil {
		rec.CitationCount = *w.IsReferencedByCount
	}
	for _, a := range w.Author {
		name := a.name()
		if name != "" {
			rec.Authors = append(rec.Authors, name)
		}
	}
	rec = resolve.Canonicalize(rec)
	return &rec
}

// referenceToRecord converts one reference entry. Entries carry sparse
// metadata; anything with neither a DOI nor a title is unusable.
func (c *Crossref) referenceToRecord(ref crossrefReference) *types.PaperRecord {
	title := ref.ArticleTitle
	if title == "" {
		title = ref.VolumeTitle
	}
	doi := resolve.CanonicalDOI(ref.DOI)
	if title == "" && doi == "" {
		return nil
	}
	rec := types.PaperRecord{
		Title:         title,
		DOI:           doi,
		CitationCount: -1,
		SourceIDs:     map[string]string{c.Name(): firstNonEmpty(doi, ref.Key)},
		Provenance:    []string{c.Name()},
	}
	if ref.Author != "" {
		rec.Authors = []string{ref.Author}
	}
	if y, err := parseYear(ref.Year); err == nil {
		rec.Year = y
	}
	rec = resolve.Canonicalize(rec)
	return &rec
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func parseYear(s string) (int, error) {
	var y int
	if _, err := fmt.Sscanf(s, "%d", &y); err != nil {
		return 0, err
	}
	if y < 1000 || y > 3000 {
		return 0, fmt.Errorf("implausible year %d", y)
	}
	return y, nil
}

// Crossref API JSON structures.
type crossrefSearchResponse struct {
	Message struct {
		Items []crossrefWork `json:"items"`
	} `json:"message"`
}

type crossrefWorkResponse struct {
	Message crossrefWork `json:"message"`
}

type crossrefWork struct {
	DOI                 string               `json:"DOI"`
	Title               []string             `json:"title"`
	Author              []crossrefAuthor     `json:"author"`
	Issued              crossrefDate         `json:"issued"`
	ContainerTitle      []string             `json:"container-title"`
	IsReferencedByCount *int                 `json:"is-referenced-by-count"`
	Reference           []crossrefReference  `json:"reference"`
}

func (w crossrefWork) title() string {
	if len(w.Title) == 0 {
		return ""
	}
	return w.Title[0]
}

func (w crossrefWork) year() int {
	if len(w.Issued.DateParts) == 0 || len(w.Issued.DateParts[0]) == 0 {
		return 0
	}
	return w.Issued.DateParts[0][0]
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

func (a crossrefAuthor) name() string {
	switch {
	case a.Given != "" && a.Family != "":
		return a.Given + " " + a.Family
	case a.Family != "":
		return a.Family
	default:
		return a.Given
	}
}

type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

type crossrefReference struct {
	Key          string `json:"key"`
	DOI          string `json:"DOI"`
	ArticleTitle string `json:"article-title"`
	VolumeTitle  string `json:"volume-title"`
	Author       string `json:"author"`
	Year         string `json:"year"`
}
