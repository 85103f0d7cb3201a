package search

import (
	"context"

	"github.com/Laisky/errors/v2"
)

// URLBuilder renders the upstream URL for a query.
type URLBuilder func(q Query) string

// PageConfig describes a result-page strategy.
type PageConfig struct {
	Name         string
	Fetcher      Fetcher
	BuildURL     URLBuilder
	BlockMarkers []string
	// BlockMessage is reported when a block marker is found.
	BlockMessage string
	// Document is the preferred extractor; nil selects Pattern directly.
	Document Extractor
	// Pattern runs when Document is nil or reports ErrParserUnavailable.
	Pattern Extractor
}

// PageStrategy fetches the human-facing result page once, checks it for
// block markers, then extracts results from it.
type PageStrategy struct {
	cfg PageConfig
}

// NewPageStrategy validates cfg and returns a PageStrategy.
func NewPageStrategy(cfg PageConfig) (*PageStrategy, error) {
	switch {
	case cfg.Name == "":
		return nil, errors.New("page strategy name is required")
	case cfg.Fetcher == nil:
		return nil, errors.New("page strategy fetcher is required")
	case cfg.BuildURL == nil:
		return nil, errors.New("page strategy url builder is required")
	case cfg.Document == nil && cfg.Pattern == nil:
		return nil, errors.New("page strategy requires at least one extractor")
	}
	if cfg.BlockMessage == "" {
		cfg.BlockMessage = cfg.Name + " returned a verification page; no parsable results"
	}

	return &PageStrategy{cfg: cfg}, nil
}

// Name returns the strategy name.
func (s *PageStrategy) Name() string {
	return s.cfg.Name
}

// Extract fetches the result page and extracts candidates.
// A block marker in the payload yields an error wrapping ErrBlocked before
// any extractor runs.
func (s *PageStrategy) Extract(ctx context.Context, q Query) ([]RawItem, error) {
	payload, err := s.cfg.Fetcher.Fetch(ctx, s.cfg.BuildURL(q))
	if err != nil {
		return nil, errors.Wrap(err, "fetch result page")
	}

	if ContainsBlockMarker(payload, s.cfg.BlockMarkers) {
		return nil, NewBlockedError(s.cfg.BlockMessage)
	}

	if s.cfg.Document != nil {
		items, err := s.cfg.Document.Extract(payload)
		switch {
		case err == nil:
			return items, nil
		case !errors.Is(err, ErrParserUnavailable) || s.cfg.Pattern == nil:
			return nil, errors.Wrap(err, "extract document")
		}
	}

	items, err := s.cfg.Pattern.Extract(payload)
	if err != nil {
		return nil, errors.Wrap(err, "extract patterns")
	}
	return items, nil
}
