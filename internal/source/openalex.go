// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/SoftHeinrich/paper-analyzer/internal/httputil"
	"github.com/SoftHeinrich/paper-analyzer/internal/resolve"
	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

// openAlexAPIBase is the OpenAlex works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// openAlexBatchSize is the most work IDs one filter request may carry.
const openAlexBatchSize = 50

// OpenAlex queries the OpenAlex works API. Citations come from the
// cites: filter; references come from hydrating the work's
// referenced_works ID list in batches.
type OpenAlex struct {
	client *http.Client
	cfg    types.SourceConfig
}

// NewOpenAlex builds the adapter from explicit configuration.
func NewOpenAlex(client *http.Client, cfg types.SourceConfig) *OpenAlex {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	return &OpenAlex{client: client, cfg: cfg}
}

// Name returns the source identifier.
func (o *OpenAlex) Name() string { return "openalex" }

// ResolvePaper looks up the queried paper by DOI, or by relevance search
// with a best-match check.
func (o *OpenAlex) ResolvePaper(ctx context.Context, q Query) (*types.PaperRecord, error) {
	if q.IsEmpty() {
		return nil, Errf(o.Name(), KindNotFound, "empty query")
	}
	if err := httputil.Throttle(ctx, o.Name(), o.cfg.MinInterval); err != nil {
		return nil, transportError(o.Name(), err)
	}

	if q.DOI != "" {
		reqURL := openAlexAPIBase + "/doi:" + url.PathEscape(resolve.CanonicalDOI(q.DOI)) + o.mailtoQuery("?")
		var work openAlexWork
		if err := getJSON(ctx, o.client, o.Name(), reqURL, o.cfg.UserAgent, nil, &work); err != nil {
			return nil, err
		}
		rec := o.toRecord(work)
		if rec == nil {
			return nil, Errf(o.Name(), KindMalformed, "work without title for DOI %s", q.DOI)
		}
		return rec, nil
	}

	params := url.Values{
		"search":   {q.Title},
		"per_page": {"10"},
	}
	o.addMailto(params)
	var sr openAlexListResponse
	if err := getJSON(ctx, o.client, o.Name(), openAlexAPIBase+"?"+params.Encode(), o.cfg.UserAgent, nil, &sr); err != nil {
		return nil, err
	}

	best := bestTitleMatch(q.Title, sr.Results, func(w openAlexWork) string { return w.Title })
	if best < 0 {
		return nil, Errf(o.Name(), KindNotFound, "no match for %q", q.Title)
	}
	rec := o.toRecord(sr.Results[best])
	if rec == nil {
		return nil, Errf(o.Name(), KindNotFound, "no usable match for %q", q.Title)
	}
	return rec, nil
}

// FetchCitations lists works that cite root via the cites: filter.
func (o *OpenAlex) FetchCitations(ctx context.Context, root *types.PaperRecord) ([]types.PaperRecord, error) {
	workID, err := o.workID(ctx, root)
	if err != nil || workID == "" {
		return nil, err
	}
	if err := httputil.Throttle(ctx, o.Name(), o.cfg.MinInterval); err != nil {
		return nil, transportError(o.Name(), err)
	}

	perPage := min(o.cfg.MaxResults, 200)
	params := url.Values{
		"filter":   {"cites:" + workID},
		"per_page": {fmt.Sprintf("%d", perPage)},
	}
	o.addMailto(params)

	var lr openAlexListResponse
	if err := getJSON(ctx, o.client, o.Name(), openAlexAPIBase+"?"+params.Encode(), o.cfg.UserAgent, nil, &lr); err != nil {
		return nil, err
	}
	return o.toRecords(lr.Results), nil
}

// FetchReferences hydrates the root work's referenced_works ID list.
func (o *OpenAlex) FetchReferences(ctx context.Context, root *types.PaperRecord) ([]types.PaperRecord, error) {
	workID, err := o.workID(ctx, root)
	if err != nil || workID == "" {
		return nil, err
	}
	if err := httputil.Throttle(ctx, o.Name(), o.cfg.MinInterval); err != nil {
		return nil, transportError(o.Name(), err)
	}

	var work openAlexWork
	reqURL := openAlexAPIBase + "/" + url.PathEscape(workID) + o.mailtoQuery("?")
	if err := getJSON(ctx, o.client, o.Name(), reqURL, o.cfg.UserAgent, nil, &work); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	ids := make([]string, 0, len(work.ReferencedWorks))
	for _, ref := range work.ReferencedWorks {
		ids = append(ids, shortOpenAlexID(ref))
	}
	if len(ids) > o.cfg.MaxResults {
		ids = ids[:o.cfg.MaxResults]
	}

	var records []types.PaperRecord
	for start := 0; start < len(ids); start += openAlexBatchSize {
		end := min(start+openAlexBatchSize, len(ids))
		batch, err := o.hydrate(ctx, ids[start:end])
		if err != nil {
			// Keep what already hydrated; a later batch failing should not
			// discard earlier candidates.
			if len(records) > 0 {
				return records, nil
			}
			return nil, err
		}
		records = append(records, batch...)
	}
	return records, nil
}

// hydrate fetches full works for a batch of IDs with one filter request.
func (o *OpenAlex) hydrate(ctx context.Context, ids []string) ([]types.PaperRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if err := httputil.Throttle(ctx, o.Name(), o.cfg.MinInterval); err != nil {
		return nil, transportError(o.Name(), err)
	}

	params := url.Values{
		"filter":   {"openalex:" + strings.Join(ids, "|")},
		"per_page": {fmt.Sprintf("%d", len(ids))},
	}
	o.addMailto(params)

	var lr openAlexListResponse
	if err := getJSON(ctx, o.client, o.Name(), openAlexAPIBase+"?"+params.Encode(), o.cfg.UserAgent, nil, &lr); err != nil {
		return nil, err
	}
	return o.toRecords(lr.Results), nil
}

// workID returns the short OpenAlex work ID for root, resolving through
// the DOI when the root resolution did not capture one.
func (o *OpenAlex) workID(ctx context.Context, root *types.PaperRecord) (string, error) {
	if id, ok := root.SourceIDs[o.Name()]; ok && id != "" {
		return id, nil
	}
	if root.DOI == "" {
		return "", nil
	}
	rec, err := o.ResolvePaper(ctx, Query{DOI: root.DOI})
	if err != nil {
		if IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return rec.SourceIDs[o.Name()], nil
}

func (o *OpenAlex) toRecords(works []openAlexWork) []types.PaperRecord {
	var records []types.PaperRecord
	for _, w := range works {
		if rec := o.toRecord(w); rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// toRecord converts an OpenAlex work to a candidate record.
func (o *OpenAlex) toRecord(w openAlexWork) *types.PaperRecord {
	title := w.Title
	if title == "" {
		title = w.DisplayName
	}
	if title == "" {
		return nil
	}
	rec := types.PaperRecord{
		Title:         title,
		Year:          w.PublicationYear,
		DOI:           resolve.CanonicalDOI(w.DOI),
		CitationCount: -1,
		SourceIDs:     map[string]string{o.Name(): shortOpenAlexID(w.ID)},
		Provenance:    []string{o.Name()},
	}
	if w.CitedByCount != nil {
		rec.CitationCount = *w.CitedByCount
	}
	if w.PrimaryLocation.Source.DisplayName != "" {
		rec.Venue = w.PrimaryLocation.Source.DisplayName
	}
	for _, authorship := range w.Authorships {
		if authorship.Author.DisplayName != "" {
			rec.Authors = append(rec.Authors, authorship.Author.DisplayName)
		}
	}
	rec = resolve.Canonicalize(rec)
	return &rec
}

func (o *OpenAlex) addMailto(params url.Values) {
	if o.cfg.OpenAlexEmail != "" {
		params.Set("mailto", o.cfg.OpenAlexEmail)
	}
}

func (o *OpenAlex) mailtoQuery(sep string) string {
	if o.cfg.OpenAlexEmail == "" {
		return ""
	}
	return sep + "mailto=" + url.QueryEscape(o.cfg.OpenAlexEmail)
}

// shortOpenAlexID strips the https://openalex.org/ prefix from a work URL.
func shortOpenAlexID(id string) string {
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// OpenAlex API JSON structures.
type openAlexListResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string               `json:"id"`
	Title           string               `json:"title"`
	DisplayName     string               `json:"display_name"`
	DOI             string               `json:"doi"`
	PublicationYear int                  `json:"publication_year"`
	CitedByCount    *int                 `json:"cited_by_count"`
	Authorships     []openAlexAuthorship `json:"authorships"`
	ReferencedWorks []string             `json:"referenced_works"`
	PrimaryLocation openAlexLocation     `json:"primary_location"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	Source openAlexSource `json:"source"`
}

type openAlexSource struct {
	DisplayName string `json:"display_name"`
}
