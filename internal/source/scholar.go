// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/SoftHeinrich/paper-analyzer/internal/httputil"
	"github.com/SoftHeinrich/paper-analyzer/internal/resolve"
	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

// scholarBase is the Google Scholar host. Declared as a var so tests can
// substitute an httptest server.
var scholarBase = "https://scholar.google.com"

var (
	citedByPattern = regexp.MustCompile(`Cited by (\d+)`)
	yearPattern    = regexp.MustCompile(`\b(19|20)\d{2}\b`)
)

// blockIndicators mark the interstitial pages Scholar serves instead of
// results when it suspects automation.
var blockIndicators = []string{
	"captcha", "unusual traffic", "automated queries", "verify you are human",
}

// GoogleScholar scrapes Google Scholar result pages. It has no API: the
// adapter parses search results and "Cited by" listings from HTML. There
// is no reference listing on Scholar, so FetchReferences returns empty.
type GoogleScholar struct {
	client *http.Client
	cfg    types.SourceConfig
}

// NewGoogleScholar builds the adapter from explicit configuration.
func NewGoogleScholar(client *http.Client, cfg types.SourceConfig) *GoogleScholar {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 100
	}
	return &GoogleScholar{client: client, cfg: cfg}
}

// Name returns the source identifier.
func (g *GoogleScholar) Name() string { return "google_scholar" }

// ResolvePaper searches Scholar for the exact title and parses the top
// result. The native source ID is the result's "Cited by" listing URL,
// which FetchCitations later walks.
func (g *GoogleScholar) ResolvePaper(ctx context.Context, q Query) (*types.PaperRecord, error) {
	if q.Title == "" {
		// Scholar has no DOI lookup; a bare DOI query is unresolvable here.
		return nil, Errf(g.Name(), KindNotFound, "title required for lookup")
	}

	params := url.Values{
		"q":  {`"` + q.Title + `"`},
		"hl": {"en"},
	}
	doc, err := g.getPage(ctx, scholarBase+"/scholar?"+params.Encode())
	if err != nil {
		return nil, err
	}

	results := doc.Find("div.gs_r")
	if results.Length() == 0 {
		return nil, Errf(g.Name(), KindNotFound, "no results for %q", q.Title)
	}

	rec := g.parseResult(results.First())
	if rec == nil {
		return nil, Errf(g.Name(), KindMalformed, "could not parse top result for %q", q.Title)
	}
	sim := resolve.TokenSetSimilarity(resolve.NormalizeTitle(q.Title), rec.NormalizedTitle)
	if sim < resolveMinSimilarity {
		return nil, Errf(g.Name(), KindNotFound, "top result %q does not match %q", rec.Title, q.Title)
	}
	return rec, nil
}

// FetchCitations walks the root's "Cited by" listing.
func (g *GoogleScholar) FetchCitations(ctx context.Context, root *types.PaperRecord) ([]types.PaperRecord, error) {
	citeURL, ok := root.SourceIDs[g.Name()]
	if !ok || citeURL == "" {
		return nil, nil
	}
	// A synthetic title handle means the result page showed no "Cited by"
	// link at all: the paper is simply uncited there, not a failure.
	if !strings.HasPrefix(citeURL, "http://") && !strings.HasPrefix(citeURL, "https://") {
		return nil, nil
	}

	doc, err := g.getPage(ctx, citeURL)
	if err != nil {
		return nil, err
	}

	var records []types.PaperRecord
	doc.Find("div.gs_r").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if rec := g.parseResult(sel); rec != nil {
			records = append(records, *rec)
		}
		return len(records) < g.cfg.MaxResults
	})
	return records, nil
}

// FetchReferences returns an empty result: Scholar exposes no reference
// listings.
func (g *GoogleScholar) FetchReferences(_ context.Context, _ *types.PaperRecord) ([]types.PaperRecord, error) {
	return nil, nil
}

// getPage fetches and parses one Scholar page, classifying blocking
// interstitials as transient unavailability.
func (g *GoogleScholar) getPage(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := httputil.Throttle(ctx, g.Name(), g.cfg.MinInterval); err != nil {
		return nil, transportError(g.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, Errf(g.Name(), KindMalformed, "creating request: %w", err)
	}
	req.Header.Set("User-Agent", g.cfg.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(g.Name(), resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, Errf(g.Name(), KindMalformed, "parsing page: %w", err)
	}

	pageText := strings.ToLower(doc.Text())
	for _, indicator := range blockIndicators {
		if strings.Contains(pageText, indicator) {
			return nil, Errf(g.Name(), KindUnavailable, "blocked by provider (%s page)", indicator)
		}
	}
	return doc, nil
}

// parseResult extracts one record from a gs_r result block.
func (g *GoogleScholar) parseResult(sel *goquery.Selection) *types.PaperRecord {
	title := strings.TrimSpace(sel.Find("h3.gs_rt").Text())
	title = strings.TrimPrefix(title, "[PDF]")
	title = strings.TrimPrefix(title, "[HTML]")
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	rec := types.PaperRecord{
		Title:         title,
		CitationCount: -1,
		SourceIDs:     map[string]string{g.Name(): ""},
		Provenance:    []string{g.Name()},
	}

	// The gs_a line holds "authors - venue, year - publisher".
	if byline := strings.TrimSpace(sel.Find("div.gs_a").Text()); byline != "" {
		parts := strings.Split(byline, " - ")
		rec.Authors = parseScholarAuthors(parts[0])
		if len(parts) >= 2 {
			rec.Venue = strings.TrimSpace(strings.TrimRight(stripYear(parts[1]), ", "))
		}
		if m := yearPattern.FindString(byline); m != "" {
			if y, err := strconv.Atoi(m); err == nil {
				rec.Year = y
			}
		}
	}

	sel.Find("div.gs_fl a").Each(func(_ int, a *goquery.Selection) {
		m := citedByPattern.FindStringSubmatch(a.Text())
		if m == nil {
			return
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			rec.CitationCount = n
		}
		if href, ok := a.Attr("href"); ok && strings.HasPrefix(href, "/scholar") {
			rec.SourceIDs[g.Name()] = scholarBase + href
		}
	})

	if rec.SourceIDs[g.Name()] == "" {
		// Fall back to a synthetic handle so provenance and source_ids
		// stay consistent even when no citation link was found.
		rec.SourceIDs[g.Name()] = "title:" + resolve.NormalizeTitle(title)
	}

	out := resolve.Canonicalize(rec)
	return &out
}

// parseScholarAuthors splits the author part of a gs_a byline. Scholar
// abbreviates aggressively ("A Vaswani, N Shazeer, ..."), so names come
// back as displayed.
func parseScholarAuthors(s string) []string {
	var authors []string
	for _, part := range strings.Split(s, ",") {
		name := strings.TrimSpace(strings.TrimSuffix(part, "…"))
		if name != "" && name != "..." {
			authors = append(authors, name)
		}
	}
	return authors
}

func stripYear(s string) string {
	return strings.TrimSpace(yearPattern.ReplaceAllString(s, ""))
}
