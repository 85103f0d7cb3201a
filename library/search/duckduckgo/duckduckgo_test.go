package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Laisky/search-mcp/library/search"
)

const resultPage = `<html><body><div id="links" class="results">
<div class="result results_links results_links_deep result--ad">
  <div class="links_main links_deep result__body">
    <h2 class="result__title"><a rel="nofollow" class="result__a" href="https://ads.example.com/">Sponsored</a></h2>
    <a class="result__snippet" href="https://ads.example.com/">Buy now</a>
  </div>
<div class="clear"></div>
</div>
<div class="result results_links results_links_deep web-result ">
  <div class="links_main links_deep result__body">
    <h2 class="result__title"><a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fdoc.rust-lang.org%2Fbook%2F&amp;rut=abc">The Rust <b>Book</b></a></h2>
    <div class="result__extras"><a class="result__url" href="https://doc.rust-lang.org/book/">doc.rust-lang.org/book</a></div>
    <a class="result__snippet" href="https://doc.rust-lang.org/book/">Understanding <b>ownership</b> &amp; borrowing.</a>
  </div>
<div class="clear"></div>
</div>
<div class="result results_links results_links_deep web-result ">
  <div class="links_main links_deep result__body">
    <h2 class="result__title"><a rel="nofollow" class="result__a" href="https://blog.rust-lang.org/">Rust Blog</a></h2>
  </div>
<div class="clear"></div>
</div>
</div></body></html>`

func newTestPipeline(t *testing.T, page string, documentParser bool) (*search.Pipeline, *string) {
	t.Helper()
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	fetcher, err := search.NewHTTPFetcher(time.Second)
	require.NoError(t, err)

	pipeline, err := NewPipeline(Options{
		Fetcher:        fetcher,
		Endpoint:       srv.URL + "/html/",
		DocumentParser: documentParser,
	})
	require.NoError(t, err)
	return pipeline, &gotQuery
}

func TestSearchExtractsOrganicResults(t *testing.T) {
	for _, documentParser := range []bool{true, false} {
		pipeline, gotQuery := newTestPipeline(t, resultPage, documentParser)
		require.Equal(t, []string{"page"}, pipeline.Strategies())

		outcome := pipeline.Search(context.Background(), "rust ownership", 10)
		require.False(t, outcome.IsError(), outcome.Message())
		require.Equal(t, "rust ownership", *gotQuery)

		items := outcome.Items()
		require.Len(t, items, 2)
		require.Equal(t, "The Rust Book", items[0].Title)
		require.Equal(t, "https://doc.rust-lang.org/book/", items[0].Link)
		require.Equal(t, "Understanding ownership & borrowing.", items[0].Snippet)
		require.Equal(t, "doc.rust-lang.org/book", items[0].Source)
		require.Equal(t, "Rust Blog", items[1].Title)
		require.Equal(t, 2, items[1].Index)
		require.Empty(t, items[1].Snippet)
	}
}

func TestSearchDetectsAnomalyPage(t *testing.T) {
	page := `<html><body><div class="anomaly-modal__title">Unfortunately, bots use DuckDuckGo too.</div></body></html>`
	pipeline, _ := newTestPipeline(t, page, true)

	outcome := pipeline.Search(context.Background(), "rust", 10)
	require.True(t, outcome.IsError())
	require.Equal(t, BlockMessage, outcome.Message())
}

func TestResolveLink(t *testing.T) {
	cases := map[string]string{
		"//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2Fdoc%2F&rut=1": "https://go.dev/doc/",
		"https://example.com/a?b=c":                                    "https://example.com/a?b=c",
		"//example.org/x":                                              "https://example.org/x",
		"javascript:void(0)":                                           "",
		"/relative/path":                                               "",
		"":                                                             "",
	}
	for in, want := range cases {
		require.Equal(t, want, ResolveLink(in), in)
	}
}
