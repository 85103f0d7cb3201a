package search

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gutils "github.com/Laisky/go-utils/v6"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	appLog "github.com/Laisky/search-mcp/library/log"
)

const (
	// DefaultUserAgent is a desktop Chrome user agent shared with the browser renderer.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	// DefaultAcceptLanguage matches the default browser locale.
	DefaultAcceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"

	defaultFetchTimeout = 15 * time.Second
	maxBodyBytes        = 4 << 20
	// logBodyLimit caps the number of response bytes logged for debugging.
	logBodyLimit = 512
)

// Fetcher downloads the raw payload behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// HTTPFetcher is a Fetcher issuing browser-like GET requests.
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
	logger         logSDK.Logger
}

// FetcherOption customises an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *HTTPFetcher) {
		if ua = strings.TrimSpace(ua); ua != "" {
			f.userAgent = ua
		}
	}
}

// WithAcceptLanguage overrides the Accept-Language header.
func WithAcceptLanguage(lang string) FetcherOption {
	return func(f *HTTPFetcher) {
		if lang = strings.TrimSpace(lang); lang != "" {
			f.acceptLanguage = lang
		}
	}
}

// WithFetcherLogger overrides the logger used for request diagnostics.
func WithFetcherLogger(logger logSDK.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewHTTPFetcher builds an HTTPFetcher whose requests are bounded by timeout.
// A non-positive timeout selects the default of 15 seconds.
func NewHTTPFetcher(timeout time.Duration, opts ...FetcherOption) (*HTTPFetcher, error) {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}

	client, err := gutils.NewHTTPClient(
		gutils.WithHTTPClientTimeout(timeout),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new http client")
	}

	f := &HTTPFetcher{
		client:         client,
		userAgent:      DefaultUserAgent,
		acceptLanguage: DefaultAcceptLanguage,
		logger:         appLog.Logger.Named("http_fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Fetch issues a GET request for url and returns the response body.
// Redirects are followed; a non-2xx status is reported as an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrapf(err, "new request to `%s`", url)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", f.acceptLanguage)

	startAt := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "request `%s`", url)
	}
	defer gutils.CloseWithLog(resp.Body, f.logger)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.Wrap(err, "read response body")
	}

	f.logger.Debug("incoming http response",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("size", len(body)),
		zap.Duration("cost", time.Since(startAt)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("unexpected status %d from `%s`: %s",
			resp.StatusCode, url, truncateForLog(body, logBodyLimit))
	}

	return string(body), nil
}

func truncateForLog(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit])
}
