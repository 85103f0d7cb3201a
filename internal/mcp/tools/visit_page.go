package tools

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	mcp "github.com/mark3labs/mcp-go/mcp"

	appLog "github.com/Laisky/search-mcp/library/log"
)

const (
	// VisitPageName is the name of the page visit tool.
	VisitPageName = "visit_page"
	// ArgURL is the page address argument.
	ArgURL = "url"

	visitPageDescription = "Open a web page in a real browser and return its title and main text " +
		"as markdown. Handles script-rendered pages and sites that need a logged-in session cookie. " +
		"Use it after a search to read the results you picked."
)

// PageVisitor renders a URL and returns its markdown rendition.
type PageVisitor interface {
	Visit(ctx context.Context, url string) (string, error)
}

// VisitPageTool implements the visit_page tool.
type VisitPageTool struct {
	visitor PageVisitor
	logger  logSDK.Logger
}

// NewVisitPageTool constructs a VisitPageTool with the provided dependencies.
func NewVisitPageTool(visitor PageVisitor, logger logSDK.Logger) (*VisitPageTool, error) {
	if visitor == nil {
		return nil, errors.New("page visitor is required")
	}
	if logger == nil {
		logger = appLog.Logger.Named(VisitPageName)
	}

	return &VisitPageTool{visitor: visitor, logger: logger}, nil
}

// Definition returns the metadata describing the tool.
func (t *VisitPageTool) Definition() mcp.Tool {
	return mcp.NewTool(
		VisitPageName,
		mcp.WithDescription(visitPageDescription),
		mcp.WithString(
			ArgURL,
			mcp.Required(),
			mcp.Description("The URL of the page to visit."),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// Handle visits the page. Render failures come back as text so the caller
// can decide what to try next.
func (t *VisitPageTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	urlValue, err := req.RequireString(ArgURL)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	urlValue = strings.TrimSpace(urlValue)

	logger := loggerFrom(ctx, t.logger)
	content, err := t.visitor.Visit(ctx, urlValue)
	if err != nil {
		logger.Warn("visit page failed", zap.String("url", urlValue), zap.Error(err))
		return mcp.NewToolResultText("Error visiting page: " + err.Error()), nil
	}

	logger.Debug("visit page completed",
		zap.String("url", urlValue),
		zap.Int("content_len", len(content)),
	)
	return mcp.NewToolResultText(content), nil
}
