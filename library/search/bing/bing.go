// Package bing implements Bing web search without an API key: the RSS
// rendition is preferred and the HTML result page is the fallback.
package bing

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"

	appLog "github.com/Laisky/search-mcp/library/log"
	"github.com/Laisky/search-mcp/library/search"
)

const (
	// DefaultEndpoint is the public Bing search page.
	DefaultEndpoint = "https://www.bing.com/search"
	// BlockMessage is reported when Bing serves a verification page.
	BlockMessage = "Bing returned a verification page; no parsable results"
)

// BlockMarkers identify Bing verification pages.
var BlockMarkers = []string{"captcha"}

var locators = search.Locators{
	Containers: []string{"#b_results > li.b_algo"},
	TitleLinks: []string{"h2 a"},
	Snippets:   []string{"p", ".b_caption p", ".b_algoSlug"},
	Sources:    []string{"cite"},
}

var patterns = search.Patterns{
	Container: regexp.MustCompile(`(?s)<li\s+class="b_algo"[^>]*>(.*?)</li>`),
	TitleLinks: []*regexp.Regexp{
		regexp.MustCompile(`(?s)<h2[^>]*>\s*<a[^>]*href="([^"]+)"[^>]*>(.*?)</a>`),
	},
	Snippets: []*regexp.Regexp{regexp.MustCompile(`(?s)<p[^>]*>(.*?)</p>`)},
	Sources:  []*regexp.Regexp{regexp.MustCompile(`(?s)<cite[^>]*>(.*?)</cite>`)},
}

// Options configures the Bing pipeline.
type Options struct {
	Fetcher  search.Fetcher
	Endpoint string
	// DocumentParser selects the DOM extractor for the result page.
	// When false the page is scanned with text patterns only.
	DocumentParser bool
	Logger         logSDK.Logger
}

// NewPipeline builds the feed -> page pipeline for Bing.
func NewPipeline(opt Options) (*search.Pipeline, error) {
	if opt.Fetcher == nil {
		return nil, errors.New("bing pipeline requires a fetcher")
	}
	if strings.TrimSpace(opt.Endpoint) == "" {
		opt.Endpoint = DefaultEndpoint
	}
	if opt.Logger == nil {
		opt.Logger = appLog.Logger.Named("bing")
	}

	feed, err := NewFeedStrategy(opt.Fetcher, opt.Endpoint, opt.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "new feed strategy")
	}

	pageCfg := search.PageConfig{
		Name:    "page",
		Fetcher: opt.Fetcher,
		BuildURL: func(q search.Query) string {
			return buildURL(opt.Endpoint, q, false)
		},
		BlockMarkers: BlockMarkers,
		BlockMessage: BlockMessage,
		Pattern:      search.NewPatternExtractor(patterns, nil),
	}
	if opt.DocumentParser {
		pageCfg.Document = search.NewDocumentExtractor(locators, nil)
	}
	page, err := search.NewPageStrategy(pageCfg)
	if err != nil {
		return nil, errors.Wrap(err, "new page strategy")
	}

	return search.NewPipeline(
		[]search.Strategy{feed, page},
		search.WithName("bing"),
		search.WithLogger(opt.Logger),
	)
}

func buildURL(endpoint string, q search.Query, rss bool) string {
	params := url.Values{}
	params.Set("q", q.Text)
	if rss {
		params.Set("format", "rss")
	}
	params.Set("count", strconv.Itoa(q.Count))

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + params.Encode()
}
