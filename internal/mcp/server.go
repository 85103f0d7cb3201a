package mcp

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/search-mcp/internal/mcp/tools"
	"github.com/Laisky/search-mcp/library/browser"
	"github.com/Laisky/search-mcp/library/extract"
	"github.com/Laisky/search-mcp/library/log"
	"github.com/Laisky/search-mcp/library/search"
	"github.com/Laisky/search-mcp/library/search/baidu"
	"github.com/Laisky/search-mcp/library/search/bing"
	"github.com/Laisky/search-mcp/library/search/duckduckgo"
)

// Tool names.
const (
	ToolBingSearch       = "bing_browser_search"
	ToolBaiduSearch      = "baidu_browser_search"
	ToolDuckDuckGoSearch = "duckduckgo_search"
	ToolVisitPage        = tools.VisitPageName
)

const (
	bingDescription = "Search the web with Bing, no API key needed. Returns title, link, snippet " +
		"and source for each result. Good for English news and technical documentation. " +
		"Returns 20 results by default."
	baiduDescription = "Search Baidu through a real browser, no API key needed. Returns title, link, " +
		"snippet and source for each result. Good for Chinese news and general knowledge. " +
		"Returns 20 results by default; use visit_page to read a result."
	duckDuckGoDescription = "Search the web with DuckDuckGo, no API key needed. Returns title, link, " +
		"snippet and source for each result. Returns 20 results by default."
)

// Profile is one server flavour: its announced name and the tools it serves.
type Profile struct {
	Name       string
	ServerName string
	Tools      []string
}

var profiles = map[string]Profile{
	"bing": {
		Name: "bing", ServerName: "bing-search-mcp-server",
		Tools: []string{ToolBingSearch},
	},
	"baidu": {
		Name: "baidu", ServerName: "baidu-browser-search-mcp-server",
		Tools: []string{ToolBaiduSearch},
	},
	"duckduckgo": {
		Name: "duckduckgo", ServerName: "duckduckgo-search-mcp-server",
		Tools: []string{ToolDuckDuckGoSearch},
	},
	"web-browser": {
		Name: "web-browser", ServerName: "web-browser-mcp-server",
		Tools: []string{ToolVisitPage},
	},
	"all": {
		Name: "all", ServerName: "search-mcp-server",
		Tools: []string{ToolBingSearch, ToolBaiduSearch, ToolDuckDuckGoSearch, ToolVisitPage},
	},
}

// LookupProfile returns the profile registered under name.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, errors.Errorf("unknown profile %q, expect one of %s",
			name, strings.Join(ProfileNames(), ", "))
	}
	return p, nil
}

// ProfileNames lists the known profiles in sorted order.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServerOption customises NewServer. Options exist mainly for tests.
type ServerOption func(*serverDeps)

type serverDeps struct {
	fetcher  search.Fetcher
	renderer browser.Renderer
	logger   logSDK.Logger
}

// WithFetcher replaces the HTTP fetcher used by bing and duckduckgo.
func WithFetcher(f search.Fetcher) ServerOption {
	return func(d *serverDeps) {
		d.fetcher = f
	}
}

// WithRenderer replaces the browser renderer used by baidu and visit_page.
func WithRenderer(r browser.Renderer) ServerOption {
	return func(d *serverDeps) {
		d.renderer = r
	}
}

// WithServerLogger overrides the server logger.
func WithServerLogger(logger logSDK.Logger) ServerOption {
	return func(d *serverDeps) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// Server wires one profile's tools behind a Dispatcher.
type Server struct {
	profile    Profile
	dispatcher *Dispatcher
	renderer   browser.Renderer
	logger     logSDK.Logger
}

// NewServer builds the server for profileName. Tools disabled in settings
// are left out; a profile with nothing left to serve is an error.
func NewServer(profileName string, settings Settings, opts ...ServerOption) (*Server, error) {
	profile, err := LookupProfile(profileName)
	if err != nil {
		return nil, err
	}

	deps := &serverDeps{logger: log.Logger.Named("mcp")}
	for _, opt := range opts {
		opt(deps)
	}

	s := &Server{profile: profile, logger: deps.logger}
	toolset := make([]tools.Tool, 0, len(profile.Tools))
	for _, name := range profile.Tools {
		if !settings.Tools.Enabled(name) {
			s.logger.Info("tool disabled by config", zap.String("tool", name))
			continue
		}

		tool, err := s.buildTool(name, settings, deps)
		if err != nil {
			_ = s.Close()
			return nil, errors.Wrapf(err, "build tool %q", name)
		}
		toolset = append(toolset, tool)
	}
	if len(toolset) == 0 {
		_ = s.Close()
		return nil, errors.Errorf("profile %q has no enabled tools", profile.Name)
	}

	registry, err := NewRegistry(toolset...)
	if err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "new tool registry")
	}
	if s.dispatcher, err = NewDispatcher(profile.ServerName, registry, deps.logger.Named("dispatcher")); err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "new dispatcher")
	}

	return s, nil
}

func (s *Server) buildTool(name string, settings Settings, deps *serverDeps) (tools.Tool, error) {
	switch name {
	case ToolBingSearch:
		fetcher, err := deps.httpFetcher(settings)
		if err != nil {
			return nil, err
		}
		pipeline, err := bing.NewPipeline(bing.Options{
			Fetcher:        fetcher,
			Endpoint:       settings.Search.BingEndpoint,
			DocumentParser: settings.Search.BingDocumentParser,
			Logger:         deps.logger.Named("bing"),
		})
		if err != nil {
			return nil, err
		}
		return s.searchTool(name, bingDescription, pipeline, settings)
	case ToolDuckDuckGoSearch:
		fetcher, err := deps.httpFetcher(settings)
		if err != nil {
			return nil, err
		}
		pipeline, err := duckduckgo.NewPipeline(duckduckgo.Options{
			Fetcher:        fetcher,
			Endpoint:       settings.Search.DuckDuckGoEndpoint,
			DocumentParser: settings.Search.DuckDuckGoDocumentParser,
			Logger:         deps.logger.Named("duckduckgo"),
		})
		if err != nil {
			return nil, err
		}
		return s.searchTool(name, duckDuckGoDescription, pipeline, settings)
	case ToolBaiduSearch:
		renderer, err := s.browserRenderer(settings, deps)
		if err != nil {
			return nil, err
		}
		pipeline, err := baidu.NewPipeline(renderer, settings.Search.BaiduEndpoint, deps.logger.Named("baidu"))
		if err != nil {
			return nil, err
		}
		return s.searchTool(name, baiduDescription, pipeline, settings)
	case ToolVisitPage:
		renderer, err := s.browserRenderer(settings, deps)
		if err != nil {
			return nil, err
		}
		visitor, err := extract.NewVisitor(renderer,
			extract.WithMinUsefulChars(settings.Visit.MinUsefulChars),
			extract.WithMaxChars(settings.Visit.MaxChars),
			extract.WithVisitorLogger(deps.logger.Named("visit_page")),
		)
		if err != nil {
			return nil, err
		}
		return tools.NewVisitPageTool(visitor, deps.logger.Named(name))
	default:
		return nil, errors.Errorf("unknown tool %q", name)
	}
}

func (s *Server) searchTool(name, description string, pipeline *search.Pipeline, settings Settings) (tools.Tool, error) {
	s.logger.Debug("search pipeline ready",
		zap.String("tool", name),
		zap.Strings("strategies", pipeline.Strategies()),
	)

	return tools.NewSearchTool(tools.SearchToolConfig{
		Name:         name,
		Description:  description,
		Searcher:     pipeline,
		DefaultCount: settings.Search.DefaultCount,
		MaxCount:     settings.Search.MaxCount,
		Logger:       s.logger.Named(name),
	})
}

func (d *serverDeps) httpFetcher(settings Settings) (search.Fetcher, error) {
	if d.fetcher != nil {
		return d.fetcher, nil
	}

	fetcher, err := search.NewHTTPFetcher(settings.Search.HTTPTimeout,
		search.WithFetcherLogger(d.logger.Named("fetcher")),
	)
	if err != nil {
		return nil, errors.Wrap(err, "new http fetcher")
	}
	d.fetcher = fetcher
	return fetcher, nil
}

// browserRenderer shares one renderer between the browser-backed tools.
// The renderer starts Chrome lazily, so building it here is cheap.
func (s *Server) browserRenderer(settings Settings, deps *serverDeps) (browser.Renderer, error) {
	if s.renderer != nil {
		return s.renderer, nil
	}
	if deps.renderer != nil {
		s.renderer = deps.renderer
		return s.renderer, nil
	}

	renderer, err := browser.New(settings.BrowserBackend, settings.Browser)
	if err != nil {
		return nil, err
	}
	s.renderer = renderer
	return renderer, nil
}

// Profile returns the served profile.
func (s *Server) Profile() Profile {
	return s.profile
}

// Registry returns the registered tools.
func (s *Server) Registry() *Registry {
	return s.dispatcher.Registry()
}

// Serve runs the request loop until in is exhausted.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	return s.dispatcher.Serve(ctx, in, out)
}

// Call invokes one tool through the dispatcher, the same path a client
// request takes, and returns the text of the reply.
func (s *Server) Call(ctx context.Context, toolName string, args map[string]any) (string, error) {
	line, err := json.Marshal(map[string]any{
		"jsonrpc": mcp.JSONRPC_VERSION,
		"id":      1,
		"method":  string(mcp.MethodToolsCall),
		"params":  map[string]any{"name": toolName, "arguments": args},
	})
	if err != nil {
		return "", errors.Wrap(err, "marshal tool call")
	}

	reply, _ := s.dispatcher.HandleLine(ctx, line)
	switch r := reply.(type) {
	case mcp.JSONRPCError:
		return "", errors.Errorf("%s (code %d)", r.Error.Message, r.Error.Code)
	case mcp.JSONRPCResponse:
		result, ok := r.Result.(*mcp.CallToolResult)
		if !ok {
			return "", errors.Errorf("unexpected result type %T", r.Result)
		}
		var sb strings.Builder
		for _, content := range result.Content {
			if text, ok := content.(mcp.TextContent); ok {
				sb.WriteString(text.Text)
			}
		}
		return sb.String(), nil
	default:
		return "", errors.Errorf("unexpected reply type %T", reply)
	}
}

// Close releases the browser, if one was started.
func (s *Server) Close() error {
	if s.renderer == nil {
		return nil
	}
	return s.renderer.Close()
}
