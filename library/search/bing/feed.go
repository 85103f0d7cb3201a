package bing

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/mmcdole/gofeed"

	"github.com/Laisky/search-mcp/library/search"
)

// FeedStrategy asks Bing for an RSS rendition of the result page.
type FeedStrategy struct {
	fetcher  search.Fetcher
	endpoint string
	logger   logSDK.Logger
}

// NewFeedStrategy returns a FeedStrategy querying endpoint through fetcher.
func NewFeedStrategy(fetcher search.Fetcher, endpoint string, logger logSDK.Logger) (*FeedStrategy, error) {
	if fetcher == nil {
		return nil, errors.New("bing feed strategy requires a fetcher")
	}
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("bing feed strategy requires an endpoint")
	}

	return &FeedStrategy{fetcher: fetcher, endpoint: endpoint, logger: logger}, nil
}

// Name returns "feed".
func (s *FeedStrategy) Name() string {
	return "feed"
}

// Extract fetches and parses the RSS payload. A payload that is not a
// recognisable feed yields no items and no error, so the next strategy runs.
func (s *FeedStrategy) Extract(ctx context.Context, q search.Query) ([]search.RawItem, error) {
	payload, err := s.fetcher.Fetch(ctx, buildURL(s.endpoint, q, true))
	if err != nil {
		return nil, errors.Wrap(err, "fetch rss")
	}

	return parseFeed(payload, q.Count, s.logger), nil
}

func parseFeed(payload string, limit int, logger logSDK.Logger) []search.RawItem {
	feed, err := gofeed.NewParser().ParseString(payload)
	if err != nil {
		if logger != nil {
			logger.Debug("bing rss payload is not parsable", zap.Error(err))
		}
		return nil
	}

	items := make([]search.RawItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		if limit > 0 && len(items) >= limit {
			break
		}

		title := strings.TrimSpace(entry.Title)
		link := strings.TrimSpace(entry.Link)
		if title == "" || link == "" {
			continue
		}

		items = append(items, search.RawItem{
			Title:   title,
			Link:    link,
			Snippet: search.StripTags(entry.Description),
			Source:  search.HostOf(link),
		})
	}

	return items
}
