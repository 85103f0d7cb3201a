package browser

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
)

// Page is the rendered state of a URL after the settle interval.
type Page struct {
	// URL is the final location after redirects.
	URL   string
	Title string
	HTML  string
}

// Renderer loads URLs in a real browser.
type Renderer interface {
	// Render loads url and returns the full rendered markup.
	Render(ctx context.Context, url string) (*Page, error)
	// Query loads url, evaluates script (a JavaScript function expression)
	// against the live document and decodes its JSON result into out.
	Query(ctx context.Context, url, script string, out any) error
	// Close releases the browser process, if any.
	Close() error
}

// New returns the Renderer for backend, which is BackendRod or BackendChromeDP.
func New(backend string, opt Options) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendRod:
		return NewRodRenderer(opt), nil
	case BackendChromeDP:
		return NewChromeDPRenderer(opt), nil
	default:
		return nil, errors.Errorf("unknown browser backend %q", backend)
	}
}
