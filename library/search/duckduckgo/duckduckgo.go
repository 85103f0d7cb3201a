// Package duckduckgo implements search over the DuckDuckGo HTML endpoint.
package duckduckgo

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"

	appLog "github.com/Laisky/search-mcp/library/log"
	"github.com/Laisky/search-mcp/library/search"
)

const (
	// DefaultEndpoint is the JavaScript-free DuckDuckGo result page.
	DefaultEndpoint = "https://html.duckduckgo.com/html/"
	// BlockMessage is reported when DuckDuckGo serves its anomaly page.
	BlockMessage = "DuckDuckGo returned a verification page; no parsable results"
)

// BlockMarkers identify DuckDuckGo anti-bot pages.
var BlockMarkers = []string{
	"captcha",
	"anomaly-modal",
	"unfortunately, bots use duckduckgo too",
}

var locators = search.Locators{
	Containers: []string{".result"},
	Exclude:    ".result--ad",
	TitleLinks: []string{"a.result__a"},
	Snippets:   []string{".result__snippet"},
	Sources:    []string{".result__url"},
}

var patterns = search.Patterns{
	Container: regexp.MustCompile(`(?s)<div[^>]*class="result\b[^"]*"[^>]*>(.*?)<div class="clear"></div>`),
	Exclude:   regexp.MustCompile(`class="[^"]*result--ad`),
	TitleLinks: []*regexp.Regexp{
		regexp.MustCompile(`(?s)<a[^>]*class="result__a"[^>]*href="([^"]+)"[^>]*>(.*?)</a>`),
		regexp.MustCompile(`(?s)<a[^>]*href="([^"]+)"[^>]*class="result__a"[^>]*>(.*?)</a>`),
	},
	Snippets: []*regexp.Regexp{
		regexp.MustCompile(`(?s)class="result__snippet"[^>]*>(.*?)</a>`),
		regexp.MustCompile(`(?s)class="result__snippet"[^>]*>(.*?)</div>`),
	},
	Sources: []*regexp.Regexp{
		regexp.MustCompile(`(?s)class="result__url"[^>]*>(.*?)</a>`),
	},
}

// Options configures the DuckDuckGo pipeline.
type Options struct {
	Fetcher  search.Fetcher
	Endpoint string
	// DocumentParser selects the DOM extractor; false scans with patterns.
	DocumentParser bool
	Logger         logSDK.Logger
}

// NewPipeline builds the single page strategy pipeline for DuckDuckGo.
func NewPipeline(opt Options) (*search.Pipeline, error) {
	if opt.Fetcher == nil {
		return nil, errors.New("duckduckgo pipeline requires a fetcher")
	}
	if strings.TrimSpace(opt.Endpoint) == "" {
		opt.Endpoint = DefaultEndpoint
	}
	if opt.Logger == nil {
		opt.Logger = appLog.Logger.Named("duckduckgo")
	}

	cfg := search.PageConfig{
		Name:    "page",
		Fetcher: opt.Fetcher,
		BuildURL: func(q search.Query) string {
			return buildURL(opt.Endpoint, q)
		},
		BlockMarkers: BlockMarkers,
		BlockMessage: BlockMessage,
		Pattern:      search.NewPatternExtractor(patterns, ResolveLink),
	}
	if opt.DocumentParser {
		cfg.Document = search.NewDocumentExtractor(locators, ResolveLink)
	}
	page, err := search.NewPageStrategy(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "new page strategy")
	}

	return search.NewPipeline(
		[]search.Strategy{page},
		search.WithName("duckduckgo"),
		search.WithLogger(opt.Logger),
	)
}

// ResolveLink unwraps DuckDuckGo redirect links such as
// //duckduckgo.com/l/?uddg=<target> and makes protocol-relative links absolute.
// It returns an empty string for links it cannot turn into http(s) URLs.
func ResolveLink(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" && strings.HasPrefix(u.Path, "/l/") {
		return ResolveLink(target)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}

	return u.String()
}

func buildURL(endpoint string, q search.Query) string {
	params := url.Values{}
	params.Set("q", q.Text)

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + params.Encode()
}
