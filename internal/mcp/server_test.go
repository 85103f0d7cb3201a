package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/search-mcp/library/browser"
)

type stubRenderer struct {
	page      *browser.Page
	queryJSON string
	closed    int
	lastURL   string
}

func (r *stubRenderer) Render(_ context.Context, url string) (*browser.Page, error) {
	r.lastURL = url
	if r.page == nil {
		return nil, errors.New("net::ERR_CONNECTION_REFUSED")
	}
	return r.page, nil
}

func (r *stubRenderer) Query(_ context.Context, url, _ string, out any) error {
	r.lastURL = url
	return json.Unmarshal([]byte(r.queryJSON), out)
}

func (r *stubRenderer) Close() error {
	r.closed++
	return nil
}

type stubFetcher struct {
	body string
	urls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.body, nil
}

func TestNewServerProfiles(t *testing.T) {
	renderer := &stubRenderer{}
	s, err := NewServer("all", DefaultSettings(), WithRenderer(renderer), WithFetcher(&stubFetcher{}))
	require.NoError(t, err)
	require.Equal(t, "search-mcp-server", s.Profile().ServerName)
	require.Equal(t,
		[]string{ToolBingSearch, ToolBaiduSearch, ToolDuckDuckGoSearch, ToolVisitPage},
		s.Registry().Names(),
	)

	require.NoError(t, s.Close())
	require.Equal(t, 1, renderer.closed)

	s, err = NewServer("bing", DefaultSettings(), WithFetcher(&stubFetcher{}))
	require.NoError(t, err)
	require.Equal(t, []string{ToolBingSearch}, s.Registry().Names())
	require.NoError(t, s.Close())

	_, err = NewServer("google", DefaultSettings())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown profile")
}

func TestNewServerHonoursDisabledTools(t *testing.T) {
	settings := DefaultSettings()
	settings.Tools.BaiduSearchEnabled = false

	s, err := NewServer("all", settings, WithRenderer(&stubRenderer{}), WithFetcher(&stubFetcher{}))
	require.NoError(t, err)
	require.NotContains(t, s.Registry().Names(), ToolBaiduSearch)
	require.Len(t, s.Registry().Names(), 3)

	_, err = NewServer("baidu", settings, WithRenderer(&stubRenderer{}))
	require.Error(t, err)
}

func TestServerCallVisitPage(t *testing.T) {
	renderer := &stubRenderer{page: &browser.Page{
		URL:   "https://example.com/",
		Title: "Example Domain",
		HTML: "<html><head><title>Example Domain</title></head><body><h1>Example Domain</h1>" +
			"<p>This domain is for use in illustrative examples in documents.</p></body></html>",
	}}
	s, err := NewServer("web-browser", DefaultSettings(), WithRenderer(renderer))
	require.NoError(t, err)

	text, err := s.Call(context.Background(), ToolVisitPage, map[string]any{"url": "example.com"})
	require.NoError(t, err)
	require.Equal(t, "https://example.com", renderer.lastURL)
	require.True(t, strings.HasPrefix(text, "# Example Domain\n\n"), text)
	require.Contains(t, text, "illustrative examples")

	renderer.page = nil
	text, err = s.Call(context.Background(), ToolVisitPage, map[string]any{"url": "https://example.com"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(text, "Error visiting page: "), text)

	_, err = s.Call(context.Background(), ToolVisitPage, map[string]any{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Missing required parameter: url")
}

func TestServerCallBaiduSearch(t *testing.T) {
	renderer := &stubRenderer{queryJSON: `{
		"location": "https://www.baidu.com/s?wd=golang",
		"title": "golang_百度搜索",
		"items": [
			{"title": "The Go Programming Language", "link": "https://go.dev/", "snippet": "Go is an open source language", "source": "go.dev"},
			{"title": "", "link": "https://broken.example/"},
			{"title": "Go 语言之旅", "link": "https://tour.go-zh.org/"}
		]
	}`}
	s, err := NewServer("baidu", DefaultSettings(), WithRenderer(renderer))
	require.NoError(t, err)

	text, err := s.Call(context.Background(), ToolBaiduSearch, map[string]any{"query": "golang", "num_results": 5})
	require.NoError(t, err)
	require.Contains(t, renderer.lastURL, "rn=5")
	require.Contains(t, renderer.lastURL, "wd=golang")
	require.Equal(t,
		"[1] The Go Programming Language\nlink: https://go.dev/\nsource: go.dev\nsnippet: Go is an open source language\n\n"+
			"[2] Go 语言之旅\nlink: https://tour.go-zh.org/\n",
		text,
	)

	_, err = s.Call(context.Background(), "bing_browser_search", map[string]any{"query": "golang"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "Unknown tool: bing_browser_search")
}

func TestLookupProfile(t *testing.T) {
	p, err := LookupProfile(" Web-Browser ")
	require.NoError(t, err)
	require.Equal(t, "web-browser-mcp-server", p.ServerName)
	require.Equal(t, []string{"all", "baidu", "bing", "duckduckgo", "web-browser"}, ProfileNames())
}
