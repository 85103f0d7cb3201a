package browser

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	appLog "github.com/Laisky/search-mcp/library/log"
)

// RodRenderer renders pages through go-rod. The Chrome process is launched
// on first use and shared; each call gets its own incognito context.
type RodRenderer struct {
	opt    Options
	logger logSDK.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

// NewRodRenderer returns a RodRenderer; no browser is started until the first call.
func NewRodRenderer(opt Options) *RodRenderer {
	return &RodRenderer{
		opt:    opt.withDefaults(),
		logger: appLog.Logger.Named("browser"),
	}
}

// Render loads url and returns the rendered markup.
func (r *RodRenderer) Render(ctx context.Context, url string) (*Page, error) {
	var out *Page
	err := r.withPage(ctx, url, func(page *rod.Page) error {
		html, err := page.HTML()
		if err != nil {
			return errors.Wrap(err, "get page html")
		}

		out = &Page{URL: url, HTML: html}
		if info, err := page.Info(); err == nil {
			out.URL = info.URL
			out.Title = info.Title
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// Query loads url and decodes the result of script into out.
func (r *RodRenderer) Query(ctx context.Context, url, script string, out any) error {
	return r.withPage(ctx, url, func(page *rod.Page) error {
		res, err := page.Evaluate(&rod.EvalOptions{
			JS:           script,
			ByValue:      true,
			AwaitPromise: true,
		})
		if err != nil {
			return errors.Wrap(err, "evaluate script")
		}
		if res == nil {
			return errors.New("evaluate script returned nothing")
		}

		raw, err := res.Value.MarshalJSON()
		if err != nil {
			return errors.Wrap(err, "marshal script result")
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.Wrap(err, "decode script result")
		}
		return nil
	})
}

// Close shuts down the shared browser.
func (r *RodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher = nil
	}
	return err
}

func (r *RodRenderer) withPage(ctx context.Context, url string, fn func(page *rod.Page) error) error {
	b, err := r.connect()
	if err != nil {
		return err
	}

	incognito, err := b.Context(ctx).Incognito()
	if err != nil {
		return errors.Wrap(err, "create incognito context")
	}
	defer func() {
		// dispose even when the call was cancelled
		if err := incognito.Context(context.WithoutCancel(ctx)).Close(); err != nil {
			r.logger.Debug("close incognito context", zap.Error(err))
		}
	}()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return errors.Wrap(err, "create page")
	}

	if err := r.preparePage(page, url); err != nil {
		return err
	}

	startAt := time.Now()
	nav := page.Timeout(r.opt.PageLoadTimeout)
	waitDOM := nav.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := nav.Navigate(url); err != nil {
		return errors.Wrapf(err, "navigate to `%s`", url)
	}
	waitDOM()
	// the page-load deadline surfaces here when DOMContentLoaded never fired
	if err := nav.GetContext().Err(); err != nil {
		return errors.Wrapf(err, "load `%s`", url)
	}
	nav.CancelTimeout()

	if err := sleepCtx(ctx, r.opt.Settle); err != nil {
		return errors.Wrap(err, "wait for page to settle")
	}

	r.logger.Debug("page rendered",
		zap.String("url", url),
		zap.Duration("cost", time.Since(startAt)),
	)

	return fn(page)
}

func (r *RodRenderer) preparePage(page *rod.Page, url string) error {
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      r.opt.UserAgent,
		AcceptLanguage: acceptLanguage(r.opt.Locale),
	}); err != nil {
		return errors.Wrap(err, "set user agent")
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             ViewportWidth,
		Height:            ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return errors.Wrap(err, "set viewport")
	}

	if r.opt.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: r.opt.Timezone}).Call(page); err != nil {
			return errors.Wrapf(err, "set timezone %q", r.opt.Timezone)
		}
	}

	if _, err := page.EvalOnNewDocument(webdriverMask); err != nil {
		return errors.Wrap(err, "install webdriver mask")
	}

	cookies := CookiesFor(r.opt.Cookies, url)
	if len(cookies) == 0 {
		return nil
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
		})
	}
	if err := page.SetCookies(params); err != nil {
		return errors.Wrap(err, "set cookies")
	}

	r.logger.Debug("pre-seeded cookies", zap.String("url", url), zap.Int("count", len(params)))
	return nil
}

func (r *RodRenderer) connect() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New().
		Headless(r.opt.Headless).
		NoSandbox(true).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled").
		Set(flags.Flag("disable-dev-shm-usage"))
	if r.opt.Bin != "" {
		l = l.Bin(r.opt.Bin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "launch chrome")
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, errors.Wrap(err, "connect to chrome")
	}

	r.logger.Info("browser started", zap.String("control_url", controlURL))
	r.launcher = l
	r.browser = b
	return b, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
