package extract

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	readability "github.com/go-shiori/go-readability"

	"github.com/Laisky/search-mcp/library/browser"
	appLog "github.com/Laisky/search-mcp/library/log"
)

const (
	// DefaultMinUsefulChars is the readability output length below which the
	// full page is converted instead.
	DefaultMinUsefulChars = 200
	// DefaultMaxChars caps the returned markdown.
	DefaultMaxChars = 15000
)

// PageRenderer renders a URL into its final markup.
type PageRenderer interface {
	Render(ctx context.Context, url string) (*browser.Page, error)
}

// VisitorOption customises a Visitor.
type VisitorOption func(*Visitor)

// WithMinUsefulChars sets the readability fallback threshold, in runes.
func WithMinUsefulChars(n int) VisitorOption {
	return func(v *Visitor) {
		if n >= 0 {
			v.minUseful = n
		}
	}
}

// WithMaxChars sets the output cap, in runes.
func WithMaxChars(n int) VisitorOption {
	return func(v *Visitor) {
		if n > 0 {
			v.maxChars = n
		}
	}
}

// WithConverter replaces the default markdown converter.
func WithConverter(c *Converter) VisitorOption {
	return func(v *Visitor) {
		if c != nil {
			v.converter = c
		}
	}
}

// WithVisitorLogger overrides the logger.
func WithVisitorLogger(logger logSDK.Logger) VisitorOption {
	return func(v *Visitor) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// Visitor renders a page and extracts its main content as markdown.
type Visitor struct {
	renderer  PageRenderer
	converter *Converter
	minUseful int
	maxChars  int
	logger    logSDK.Logger
}

// NewVisitor returns a Visitor rendering through renderer.
func NewVisitor(renderer PageRenderer, opts ...VisitorOption) (*Visitor, error) {
	if renderer == nil {
		return nil, errors.New("page renderer is required")
	}

	v := &Visitor{
		renderer:  renderer,
		converter: NewConverter(DefaultConverterConfig()),
		minUseful: DefaultMinUsefulChars,
		maxChars:  DefaultMaxChars,
		logger:    appLog.Logger.Named("visit_page"),
	}
	for _, opt := range opts {
		opt(v)
	}

	return v, nil
}

// Visit renders rawURL and returns "# <title>\n\n<markdown>".
//
// The readability extract is used unless it is shorter than the configured
// threshold, in which case the whole rendered page is converted.
func (v *Visitor) Visit(ctx context.Context, rawURL string) (string, error) {
	target, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}

	page, err := v.renderer.Render(ctx, target)
	if err != nil {
		return "", errors.Wrap(err, "render page")
	}

	pageURL, err := url.Parse(page.URL)
	if err != nil || page.URL == "" {
		pageURL, _ = url.Parse(target)
	}

	title := strings.TrimSpace(page.Title)
	content := ""
	article, err := readability.FromReader(strings.NewReader(page.HTML), pageURL)
	if err != nil {
		v.logger.Debug("readability failed, use full page",
			zap.String("url", target), zap.Error(err))
	} else {
		if t := strings.TrimSpace(article.Title); t != "" {
			title = t
		}
		if content, err = v.converter.Convert(article.Content); err != nil {
			return "", err
		}
	}

	if utf8.RuneCountInString(content) < v.minUseful {
		v.logger.Debug("main content too short, convert full page",
			zap.String("url", target),
			zap.Int("chars", utf8.RuneCountInString(content)),
			zap.Int("threshold", v.minUseful),
		)
		if content, err = v.converter.Convert(page.HTML); err != nil {
			return "", err
		}
	}

	if title == "" {
		title = target
	}

	return "# " + title + "\n\n" + TruncateRunes(content, v.maxChars), nil
}

// NormalizeURL adds https:// to scheme-less input and rejects anything that
// is not an absolute http(s) URL.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "invalid url %q", raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", errors.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Errorf("url %q has no host", raw)
	}

	return u.String(), nil
}

// TruncateRunes returns the first n runes of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
