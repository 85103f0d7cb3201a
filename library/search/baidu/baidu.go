// Package baidu implements Baidu web search through a rendered browser page.
package baidu

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	appLog "github.com/Laisky/search-mcp/library/log"
	"github.com/Laisky/search-mcp/library/search"
)

const (
	// DefaultEndpoint is the Baidu result page.
	DefaultEndpoint = "https://www.baidu.com/s"
	// BlockMessage is reported when Baidu redirects to its verification page.
	BlockMessage = "Baidu returned a verification page; no parsable results"
)

// BlockMarkers identify Baidu verification pages.
var BlockMarkers = []string{"wappass.baidu.com", "安全验证"}

// extractScript runs in the result page and returns the page identity plus
// the raw result candidates. Field locators are tried in order.
const extractScript = `() => {
	const pick = (root, selectors) => {
		for (const sel of selectors) {
			const el = root.querySelector(sel);
			if (el) return el;
		}
		return null;
	};
	const text = (el) => (el ? (el.textContent || '').trim() : '');

	let containers = document.querySelectorAll('#content_left > div.result');
	if (containers.length === 0) {
		containers = document.querySelectorAll('#content_left > div[class*="result"]');
	}

	const items = [];
	for (const el of containers) {
		const anchor = pick(el, ['h3 a', 'h3.t a', 'a[class*="title"]']);
		items.push({
			title: text(anchor),
			link: anchor ? anchor.href : '',
			snippet: text(pick(el, ['.c-abstract', '.content-right_8Zs40', 'div[class*="abstract"]'])),
			source: text(pick(el, ['.c-showurl', '.source_1Vdff', 'span[class*="showurl"]'])),
		});
	}

	return {
		location: location.href,
		title: document.title,
		items: items,
	};
}`

// Querier evaluates a script against a rendered page.
type Querier interface {
	Query(ctx context.Context, url, script string, out any) error
}

type scriptResult struct {
	Location string           `json:"location"`
	Title    string           `json:"title"`
	Items    []search.RawItem `json:"items"`
}

// BrowserStrategy renders the Baidu result page and extracts results from
// the live document.
type BrowserStrategy struct {
	querier  Querier
	endpoint string
	logger   logSDK.Logger
}

// NewBrowserStrategy returns a BrowserStrategy rendering through querier.
func NewBrowserStrategy(querier Querier, endpoint string, logger logSDK.Logger) (*BrowserStrategy, error) {
	if querier == nil {
		return nil, errors.New("baidu browser strategy requires a renderer")
	}
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = appLog.Logger.Named("baidu")
	}

	return &BrowserStrategy{querier: querier, endpoint: endpoint, logger: logger}, nil
}

// Name returns "browser".
func (s *BrowserStrategy) Name() string {
	return "browser"
}

// Extract renders the result page and returns the candidates found in it.
func (s *BrowserStrategy) Extract(ctx context.Context, q search.Query) ([]search.RawItem, error) {
	target := buildURL(s.endpoint, q)

	var res scriptResult
	if err := s.querier.Query(ctx, target, extractScript, &res); err != nil {
		return nil, errors.Wrap(err, "render baidu result page")
	}

	// only the page identity is checked; result text may quote the markers
	if search.ContainsBlockMarker(res.Location+"\n"+res.Title, BlockMarkers) {
		return nil, search.NewBlockedError(BlockMessage)
	}

	s.logger.Debug("baidu page extracted",
		zap.String("location", res.Location),
		zap.Int("candidates", len(res.Items)),
	)
	return res.Items, nil
}

// NewPipeline builds the single strategy pipeline for Baidu.
func NewPipeline(querier Querier, endpoint string, logger logSDK.Logger) (*search.Pipeline, error) {
	strategy, err := NewBrowserStrategy(querier, endpoint, logger)
	if err != nil {
		return nil, err
	}

	return search.NewPipeline(
		[]search.Strategy{strategy},
		search.WithName("baidu"),
		search.WithLogger(strategy.logger),
	)
}

func buildURL(endpoint string, q search.Query) string {
	params := url.Values{}
	params.Set("wd", q.Text)
	params.Set("rn", strconv.Itoa(q.Count))

	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + params.Encode()
}
