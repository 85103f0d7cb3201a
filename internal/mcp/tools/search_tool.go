package tools

import (
	"context"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	appLog "github.com/Laisky/search-mcp/library/log"
	searchlib "github.com/Laisky/search-mcp/library/search"
)

const (
	// ArgQuery is the required query argument of every search tool.
	ArgQuery = "query"
	// ArgNumResults is the requested result count.
	ArgNumResults = "num_results"
	// argCountAlias is accepted for callers that send "count" instead.
	argCountAlias = "count"
)

// Searcher runs a query against one search source.
type Searcher interface {
	Search(ctx context.Context, query string, count int) searchlib.Outcome
}

// SearchToolConfig describes one search tool.
type SearchToolConfig struct {
	Name         string
	Description  string
	Searcher     Searcher
	DefaultCount int
	MaxCount     int
	Logger       logSDK.Logger
}

// SearchTool exposes a Searcher as a tool returning formatted text.
type SearchTool struct {
	name         string
	description  string
	searcher     Searcher
	defaultCount int
	maxCount     int
	logger       logSDK.Logger
}

// NewSearchTool constructs a SearchTool from cfg.
func NewSearchTool(cfg SearchToolConfig) (*SearchTool, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, errors.New("search tool name is required")
	}
	if cfg.Searcher == nil {
		return nil, errors.Errorf("search tool %q requires a searcher", cfg.Name)
	}
	if cfg.MaxCount < 1 {
		cfg.MaxCount = searchlib.MaxCount
	}
	if cfg.DefaultCount < 1 {
		cfg.DefaultCount = searchlib.DefaultCount
	}
	if cfg.DefaultCount > cfg.MaxCount {
		cfg.DefaultCount = cfg.MaxCount
	}
	if cfg.Logger == nil {
		cfg.Logger = appLog.Logger.Named(cfg.Name)
	}

	return &SearchTool{
		name:         cfg.Name,
		description:  cfg.Description,
		searcher:     cfg.Searcher,
		defaultCount: cfg.DefaultCount,
		maxCount:     cfg.MaxCount,
		logger:       cfg.Logger,
	}, nil
}

// Definition returns the metadata describing the tool.
func (t *SearchTool) Definition() mcp.Tool {
	tool := mcp.NewTool(
		t.name,
		mcp.WithDescription(t.description),
		mcp.WithString(
			ArgQuery,
			mcp.Required(),
			mcp.Description("Search query."),
		),
		mcp.WithNumber(
			ArgNumResults,
			mcp.Description("Number of results to return."),
			mcp.DefaultNumber(float64(t.defaultCount)),
			mcp.Min(1),
			mcp.Max(float64(t.maxCount)),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
	markInteger(&tool, ArgNumResults)
	return tool
}

// Handle runs the search and renders the outcome as text. Upstream failures
// are reported in the text body, not as protocol errors.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString(ArgQuery)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	raw, ok := args[ArgNumResults]
	if !ok || raw == nil {
		raw = args[argCountAlias]
	}
	count := searchlib.ClampCount(raw, t.defaultCount, t.maxCount)

	logger := loggerFrom(ctx, t.logger)
	start := time.Now()
	logger.Debug("search started",
		zap.Int("query_len", len(query)),
		zap.Int("count", count),
	)

	outcome := t.searcher.Search(ctx, query, count)
	if outcome.IsError() {
		logger.Warn("search failed",
			zap.String("reason", outcome.Message()),
			zap.Duration("duration", time.Since(start)),
		)
	} else {
		logger.Debug("search completed",
			zap.Int("results_count", len(outcome.Items())),
			zap.Duration("duration", time.Since(start)),
		)
	}

	return mcp.NewToolResultText(searchlib.Format(outcome)), nil
}
