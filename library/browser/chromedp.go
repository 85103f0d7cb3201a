package browser

import (
	"context"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	appLog "github.com/Laisky/search-mcp/library/log"
)

// ChromeDPRenderer renders pages through chromedp. Every call starts a
// throwaway browser, so no state survives between calls.
type ChromeDPRenderer struct {
	opt    Options
	logger logSDK.Logger
}

// NewChromeDPRenderer returns a ChromeDPRenderer.
func NewChromeDPRenderer(opt Options) *ChromeDPRenderer {
	return &ChromeDPRenderer{
		opt:    opt.withDefaults(),
		logger: appLog.Logger.Named("browser"),
	}
}

// Render loads url and returns the rendered markup.
func (r *ChromeDPRenderer) Render(ctx context.Context, url string) (*Page, error) {
	out := &Page{}
	err := r.run(ctx, url,
		chromedp.OuterHTML("html", &out.HTML),
		chromedp.Title(&out.Title),
		chromedp.Location(&out.URL),
	)
	if err != nil {
		return nil, err
	}
	if out.URL == "" {
		out.URL = url
	}
	return out, nil
}

// Query loads url and decodes the result of script into out.
func (r *ChromeDPRenderer) Query(ctx context.Context, url, script string, out any) error {
	return r.run(ctx, url, chromedp.Evaluate("("+script+")()", out))
}

// Close is a no-op; browsers are released at the end of each call.
func (r *ChromeDPRenderer) Close() error {
	return nil
}

func (r *ChromeDPRenderer) run(ctx context.Context, url string, actions ...chromedp.Action) error {
	opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
	copy(opts, chromedp.DefaultExecAllocatorOptions[:])
	opts = append(opts,
		chromedp.Flag("headless", r.opt.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(ViewportWidth, ViewportHeight),
		chromedp.UserAgent(r.opt.UserAgent),
	)
	if r.opt.Bin != "" {
		opts = append(opts, chromedp.ExecPath(r.opt.Bin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	// start the browser on the tab context so the load deadline below
	// cannot tear it down
	if err := chromedp.Run(tabCtx); err != nil {
		return errors.Wrap(err, "start chrome")
	}

	startAt := time.Now()
	loadCtx, loadCancel := context.WithTimeout(tabCtx, r.opt.PageLoadTimeout)
	defer loadCancel()
	if err := chromedp.Run(loadCtx,
		network.Enable(),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return r.prepare(ctx, url)
		}),
		chromedp.Navigate(url),
	); err != nil {
		return errors.Wrapf(err, "navigate to `%s`", url)
	}

	if err := sleepCtx(tabCtx, r.opt.Settle); err != nil {
		return errors.Wrap(err, "wait for page to settle")
	}

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		return errors.Wrap(err, "capture page")
	}

	r.logger.Debug("page rendered",
		zap.String("url", url),
		zap.Duration("cost", time.Since(startAt)),
	)
	return nil
}

func (r *ChromeDPRenderer) prepare(ctx context.Context, url string) error {
	if lang := acceptLanguage(r.opt.Locale); lang != "" {
		if err := network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": lang}).Do(ctx); err != nil {
			return errors.Wrap(err, "set extra headers")
		}
	}

	if r.opt.Timezone != "" {
		if err := emulation.SetTimezoneOverride(r.opt.Timezone).Do(ctx); err != nil {
			return errors.Wrapf(err, "set timezone %q", r.opt.Timezone)
		}
	}

	if _, err := page.AddScriptToEvaluateOnNewDocument(webdriverMask).Do(ctx); err != nil {
		return errors.Wrap(err, "install webdriver mask")
	}

	for _, c := range CookiesFor(r.opt.Cookies, url) {
		if err := network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(c.Path).
			Do(ctx); err != nil {
			return errors.Wrapf(err, "set cookie %q", c.Name)
		}
	}

	return nil
}
