// Package browser renders pages in a headless Chrome for search and page
// visit tools. Every call runs in a fresh incognito context.
package browser

import (
	"time"
)

const (
	// BackendRod selects the go-rod renderer.
	BackendRod = "rod"
	// BackendChromeDP selects the chromedp renderer.
	BackendChromeDP = "chromedp"

	// DefaultUserAgent is a desktop Chrome user agent.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	// DefaultLocale is sent as Accept-Language.
	DefaultLocale = "zh-CN"
	// DefaultTimezone is emulated in every page.
	DefaultTimezone = "Asia/Shanghai"

	ViewportWidth  = 1920
	ViewportHeight = 1080
)

// webdriverMask hides the automation flag from page scripts.
const webdriverMask = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

// Options configures a Renderer.
type Options struct {
	// Bin is the Chrome executable; empty lets the backend find or download one.
	Bin       string
	Headless  bool
	UserAgent string
	Locale    string
	// Timezone is an IANA zone emulated in the page; empty keeps the host zone.
	Timezone        string
	PageLoadTimeout time.Duration
	// Settle is waited after load so dynamic content can render.
	Settle  time.Duration
	Cookies []CookieRule
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Headless:        true,
		UserAgent:       DefaultUserAgent,
		Locale:          DefaultLocale,
		Timezone:        DefaultTimezone,
		PageLoadTimeout: 30 * time.Second,
		Settle:          2 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.UserAgent == "" {
		o.UserAgent = def.UserAgent
	}
	if o.Locale == "" {
		o.Locale = def.Locale
	}
	if o.PageLoadTimeout <= 0 {
		o.PageLoadTimeout = def.PageLoadTimeout
	}
	if o.Settle < 0 {
		o.Settle = 0
	}
	return o
}

// acceptLanguage expands a locale such as zh-CN into an Accept-Language value.
func acceptLanguage(locale string) string {
	if locale == "" {
		return ""
	}
	for i := 0; i < len(locale); i++ {
		if locale[i] == '-' || locale[i] == '_' {
			return locale + "," + locale[:i] + ";q=0.9,en;q=0.8"
		}
	}
	return locale + ",en;q=0.8"
}
