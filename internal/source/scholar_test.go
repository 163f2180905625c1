// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SoftHeinrich/paper-analyzer/pkg/types"
)

const scholarResultPage = `<html><body>
<div class="gs_r">
  <h3 class="gs_rt"><a href="#">Attention is all you need</a></h3>
  <div class="gs_a">A Vaswani, N Shazeer, N Parmar… - Advances in neural information processing systems, 2017 - proceedings.neurips.cc</div>
  <div class="gs_fl"><a href="/scholar?cites=2960712678066186980">Cited by 95432</a> <a href="#">Related articles</a></div>
</div>
</body></html>`

const scholarCitedByPage = `<html><body>
<div class="gs_r">
  <h3 class="gs_rt">[PDF] BERT: Pre-training of deep bidirectional transformers for language understanding</h3>
  <div class="gs_a">J Devlin, MW Chang, K Lee - arXiv preprint arXiv:1810.04805, 2018 - arxiv.org</div>
  <div class="gs_fl"><a href="/scholar?cites=3166990653379142174">Cited by 80123</a></div>
</div>
<div class="gs_r">
  <h3 class="gs_rt">Language models are few-shot learners</h3>
  <div class="gs_a">T Brown, B Mann, N Ryder - Advances in neural information processing systems, 2020 - proceedings.neurips.cc</div>
  <div class="gs_fl"><a href="#">Related articles</a></div>
</div>
</body></html>`

const scholarBlockPage = `<html><body>
<p>Our systems have detected unusual traffic from your computer network.
Please solve this captcha to continue.</p>
</body></html>`

func newScholarTest(t *testing.T, handler http.HandlerFunc) (*GoogleScholar, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := scholarBase
	scholarBase = ts.URL
	t.Cleanup(func() { scholarBase = old })

	return NewGoogleScholar(ts.Client(), testCfg()), ts
}

func TestScholarResolveParsesTopResult(t *testing.T) {
	g, ts := newScholarTest(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != `"Attention is all you need"` {
			t.Errorf("q = %q, want exact-quoted title", got)
		}
		fmt.Fprint(w, scholarResultPage)
	})

	rec, err := g.ResolvePaper(context.Background(), Query{Title: "Attention is all you need"})
	if err != nil {
		t.Fatalf("ResolvePaper: %v", err)
	}

	if rec.Title != "Attention is all you need" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.Year != 2017 {
		t.Errorf("Year = %d, want 2017", rec.Year)
	}
	if rec.CitationCount != 95432 {
		t.Errorf("CitationCount = %d", rec.CitationCount)
	}
	if len(rec.Authors) == 0 || rec.Authors[0] != "A Vaswani" {
		t.Errorf("Authors = %v", rec.Authors)
	}
	wantURL := ts.URL + "/scholar?cites=2960712678066186980"
	if got := rec.SourceIDs["google_scholar"]; got != wantURL {
		t.Errorf("SourceIDs = %q, want cited-by URL %q", got, wantURL)
	}
}

func TestScholarResolveRejectsUnrelatedTopResult(t *testing.T) {
	g, _ := newScholarTest(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, scholarResultPage)
	})

	_, err := g.ResolvePaper(context.Background(), Query{Title: "Deep Residual Learning for Image Recognition"})
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not_found for a mismatched top result", err)
	}
}

func TestScholarResolveRequiresTitle(t *testing.T) {
	g := NewGoogleScholar(http.DefaultClient, testCfg())
	_, err := g.ResolvePaper(context.Background(), Query{DOI: "10.1000/xyz"})
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not_found for DOI-only query", err)
	}
}

func TestScholarFetchCitations(t *testing.T) {
	g, ts := newScholarTest(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cites") != "123" {
			t.Errorf("cites = %q", r.URL.Query().Get("cites"))
		}
		fmt.Fprint(w, scholarCitedByPage)
	})

	root := &types.PaperRecord{
		Title:     "Attention is all you need",
		SourceIDs: map[string]string{"google_scholar": ts.URL + "/scholar?cites=123"},
	}
	recs, err := g.FetchCitations(context.Background(), root)
	if err != nil {
		t.Fatalf("FetchCitations: %v", err)
	}

	if len(recs) != 2 {
		t.Fatalf("len(recs) = %d, want 2", len(recs))
	}
	// The [PDF] marker is stripped from the title.
	if strings.Contains(recs[0].Title, "[PDF]") {
		t.Errorf("Title = %q, marker not stripped", recs[0].Title)
	}
	if recs[0].Year != 2018 {
		t.Errorf("Year = %d, want 2018", recs[0].Year)
	}
	if recs[0].CitationCount != 80123 {
		t.Errorf("CitationCount = %d", recs[0].CitationCount)
	}
	// The second result has no cited-by link: count stays absent, handle is synthetic.
	if recs[1].CitationCount != -1 {
		t.Errorf("CitationCount = %d, want -1", recs[1].CitationCount)
	}
	if !strings.HasPrefix(recs[1].SourceIDs["google_scholar"], "title:") {
		t.Errorf("SourceIDs = %q, want synthetic title handle", recs[1].SourceIDs["google_scholar"])
	}
}

func TestScholarFetchCitationsWithoutHandleIsEmpty(t *testing.T) {
	g, _ := newScholarTest(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected without a cited-by URL")
	})

	recs, err := g.FetchCitations(context.Background(), &types.PaperRecord{Title: "Untracked"})
	if err != nil {
		t.Fatalf("FetchCitations: %v", err)
	}
	if recs != nil {
		t.Errorf("recs = %v, want nil", recs)
	}
}

func TestScholarFetchCitationsTitleHandleIsEmpty(t *testing.T) {
	g, _ := newScholarTest(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for a synthetic title handle")
	})

	// An uncited paper carries the synthetic handle from parseResult
	// instead of a cited-by URL. That is an empty listing, not a failure.
	root := &types.PaperRecord{
		Title:     "Untracked",
		SourceIDs: map[string]string{"google_scholar": "title:untracked"},
	}
	recs, err := g.FetchCitations(context.Background(), root)
	if err != nil {
		t.Fatalf("FetchCitations: %v, want nil for an uncited paper", err)
	}
	if recs != nil {
		t.Errorf("recs = %v, want nil", recs)
	}
}

func TestScholarFetchReferencesIsAlwaysEmpty(t *testing.T) {
	g := NewGoogleScholar(http.DefaultClient, testCfg())
	recs, err := g.FetchReferences(context.Background(), &types.PaperRecord{Title: "Anything"})
	if err != nil {
		t.Fatalf("FetchReferences: %v", err)
	}
	if recs != nil {
		t.Errorf("recs = %v, want nil", recs)
	}
}

func TestScholarBlockingPageIsUnavailable(t *testing.T) {
	g, _ := newScholarTest(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, scholarBlockPage)
	})

	_, err := g.ResolvePaper(context.Background(), Query{Title: "Attention is all you need"})
	if KindOf(err) != KindUnavailable {
		t.Fatalf("err = %v, want unavailable for a blocking interstitial", err)
	}
}

func TestScholarMaxResultsCapsCitations(t *testing.T) {
	var blocks []string
	for i := 0; i < 5; i++ {
		blocks = append(blocks, fmt.Sprintf(`<div class="gs_r"><h3 class="gs_rt">Paper %d</h3></div>`, i))
	}
	page := "<html><body>" + strings.Join(blocks, "") + "</body></html>"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer ts.Close()

	cfg := testCfg()
	cfg.MaxResults = 2
	g := NewGoogleScholar(ts.Client(), cfg)

	root := &types.PaperRecord{SourceIDs: map[string]string{"google_scholar": ts.URL + "/scholar?cites=1"}}
	recs, err := g.FetchCitations(context.Background(), root)
	if err != nil {
		t.Fatalf("FetchCitations: %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("len(recs) = %d, want 2", len(recs))
	}
}

func TestParseScholarAuthors(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"A Vaswani, N Shazeer, N Parmar…", []string{"A Vaswani", "N Shazeer", "N Parmar"}},
		{"J Devlin", []string{"J Devlin"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := parseScholarAuthors(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("parseScholarAuthors(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseScholarAuthors(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}
