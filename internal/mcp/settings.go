// Package mcp provides the stdio tool servers: settings, tool registry,
// request dispatcher and the per-profile server composition.
package mcp

import (
	"math"
	"strconv"
	"strings"
	"time"

	gconfig "github.com/Laisky/go-config/v2"

	"github.com/Laisky/search-mcp/library/browser"
	"github.com/Laisky/search-mcp/library/extract"
	"github.com/Laisky/search-mcp/library/search"
	"github.com/Laisky/search-mcp/library/search/baidu"
	"github.com/Laisky/search-mcp/library/search/bing"
	"github.com/Laisky/search-mcp/library/search/duckduckgo"
)

// ZhihuCookieEnv carries the Cookie header pre-seeded for zhihu.com pages.
const ZhihuCookieEnv = "ZHIHU_COOKIE"

// ConfigGetter retrieves raw configuration values by dotted key path.
type ConfigGetter func(key string) any

// SearchSettings configures the search sources.
type SearchSettings struct {
	DefaultCount int
	MaxCount     int
	HTTPTimeout  time.Duration

	BingEndpoint             string
	BingDocumentParser       bool
	DuckDuckGoEndpoint       string
	DuckDuckGoDocumentParser bool
	BaiduEndpoint            string
}

// VisitSettings configures the page visit tool.
type VisitSettings struct {
	MinUsefulChars int
	MaxChars       int
}

// ToolsSettings captures runtime configuration for enabling or disabling individual tools.
type ToolsSettings struct {
	BingSearchEnabled       bool
	BaiduSearchEnabled      bool
	DuckDuckGoSearchEnabled bool
	VisitPageEnabled        bool
}

// Enabled reports whether the named tool may be registered.
// Unknown names are enabled.
func (t ToolsSettings) Enabled(name string) bool {
	switch name {
	case ToolBingSearch:
		return t.BingSearchEnabled
	case ToolBaiduSearch:
		return t.BaiduSearchEnabled
	case ToolDuckDuckGoSearch:
		return t.DuckDuckGoSearchEnabled
	case ToolVisitPage:
		return t.VisitPageEnabled
	default:
		return true
	}
}

// Settings is the full runtime configuration of a server process.
type Settings struct {
	Search         SearchSettings
	BrowserBackend string
	Browser        browser.Options
	Visit          VisitSettings
	Tools          ToolsSettings
}

// LoadSettingsFromConfig reads settings from the shared configuration.
// Every key is optional.
func LoadSettingsFromConfig() Settings {
	return LoadSettings(func(key string) any {
		return gconfig.S.Get(key)
	})
}

// LoadSettings reads settings through get, falling back to defaults for
// missing or malformed values.
func LoadSettings(get ConfigGetter) Settings {
	if get == nil {
		get = func(string) any { return nil }
	}

	browserOpt := browser.DefaultOptions()
	browserOpt.Bin = stringFromConfig(get, "settings.browser.bin", "")
	browserOpt.Headless = boolFromConfig(get, "settings.browser.headless", browserOpt.Headless)
	browserOpt.UserAgent = stringFromConfig(get, "settings.browser.user_agent", browserOpt.UserAgent)
	browserOpt.Locale = stringFromConfig(get, "settings.browser.locale", browserOpt.Locale)
	browserOpt.Timezone = stringFromConfig(get, "settings.browser.timezone", browserOpt.Timezone)
	browserOpt.PageLoadTimeout = time.Duration(
		intFromConfig(get, "settings.browser.page_load_timeout_sec", int(browserOpt.PageLoadTimeout/time.Second), 1),
	) * time.Second
	browserOpt.Settle = time.Duration(
		intFromConfig(get, "settings.browser.settle_ms", int(browserOpt.Settle/time.Millisecond), 0),
	) * time.Millisecond
	browserOpt.Cookies = cookieRulesFromConfig(get)

	s := Settings{
		Search: SearchSettings{
			DefaultCount:             intFromConfig(get, "settings.search.default_count", search.DefaultCount, 1),
			MaxCount:                 intFromConfig(get, "settings.search.max_count", search.MaxCount, 1),
			HTTPTimeout:              time.Duration(intFromConfig(get, "settings.search.http_timeout_sec", 15, 1)) * time.Second,
			BingEndpoint:             stringFromConfig(get, "settings.search.bing.endpoint", bing.DefaultEndpoint),
			BingDocumentParser:       boolFromConfig(get, "settings.search.bing.document_parser", true),
			DuckDuckGoEndpoint:       stringFromConfig(get, "settings.search.duckduckgo.endpoint", duckduckgo.DefaultEndpoint),
			DuckDuckGoDocumentParser: boolFromConfig(get, "settings.search.duckduckgo.document_parser", true),
			BaiduEndpoint:            stringFromConfig(get, "settings.search.baidu.endpoint", baidu.DefaultEndpoint),
		},
		BrowserBackend: strings.ToLower(stringFromConfig(get, "settings.browser.backend", browser.BackendRod)),
		Browser:        browserOpt,
		Visit: VisitSettings{
			MinUsefulChars: intFromConfig(get, "settings.visit.min_useful_chars", extract.DefaultMinUsefulChars, 0),
			MaxChars:       intFromConfig(get, "settings.visit.max_chars", extract.DefaultMaxChars, 1),
		},
		Tools: ToolsSettings{
			BingSearchEnabled:       boolFromConfig(get, "settings.mcp.tools."+ToolBingSearch+".enabled", true),
			BaiduSearchEnabled:      boolFromConfig(get, "settings.mcp.tools."+ToolBaiduSearch+".enabled", true),
			DuckDuckGoSearchEnabled: boolFromConfig(get, "settings.mcp.tools."+ToolDuckDuckGoSearch+".enabled", true),
			VisitPageEnabled:        boolFromConfig(get, "settings.mcp.tools."+ToolVisitPage+".enabled", true),
		},
	}
	if s.Search.DefaultCount > s.Search.MaxCount {
		s.Search.DefaultCount = s.Search.MaxCount
	}

	return s
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return LoadSettings(nil)
}

// cookieRulesFromConfig collects the ZHIHU_COOKIE rule plus any rules under
// settings.browser.cookies. Rules whose variable is unset are skipped.
func cookieRulesFromConfig(get ConfigGetter) []browser.CookieRule {
	var rules []browser.CookieRule
	if rule, ok := browser.CookieRuleFromEnv(ZhihuCookieEnv, ".zhihu.com", "zhihu.com"); ok {
		rules = append(rules, rule)
	}

	raw, ok := get("settings.browser.cookies").([]any)
	if !ok {
		return rules
	}
	for _, item := range raw {
		entry := toStringMap(item)
		if entry == nil {
			continue
		}
		env, _ := entry["env"].(string)
		domain, _ := entry["domain"].(string)
		match, _ := entry["match"].(string)
		if strings.TrimSpace(env) == "" {
			continue
		}
		if rule, ok := browser.CookieRuleFromEnv(strings.TrimSpace(env), strings.TrimSpace(domain), strings.TrimSpace(match)); ok {
			rules = append(rules, rule)
		}
	}

	return rules
}

// toStringMap accepts both decoded YAML map shapes.
func toStringMap(value any) map[string]any {
	switch v := value.(type) {
	case map[string]any:
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, val := range v {
			ks, ok := key.(string)
			if !ok {
				return nil
			}
			out[ks] = val
		}
		return out
	default:
		return nil
	}
}

// boolFromConfig retrieves a boolean configuration value with a default fallback.
func boolFromConfig(get ConfigGetter, key string, def bool) bool {
	value := get(key)
	switch v := value.(type) {
	case nil:
		return def
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		default:
			return def
		}
	default:
		return def
	}
}

// intFromConfig retrieves an integer no smaller than floor, or def.
func intFromConfig(get ConfigGetter, key string, def, floor int) int {
	var n int
	switch v := get(key).(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if math.Trunc(v) != v {
			return def
		}
		n = int(v)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		n = parsed
	default:
		return def
	}

	if n < floor {
		return def
	}
	return n
}

// stringFromConfig retrieves a non-blank string or def.
func stringFromConfig(get ConfigGetter, key string, def string) string {
	v, ok := get(key).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
