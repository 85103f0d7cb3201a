package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"

	"github.com/Laisky/search-mcp/internal/mcp/ctxkeys"
	appLog "github.com/Laisky/search-mcp/library/log"
)

// NoResultsMessage is reported when every strategy ran cleanly but none
// produced a usable item.
const NoResultsMessage = "no results could be extracted"

// PipelineOption customises a Pipeline during construction.
type PipelineOption func(*Pipeline)

// WithLogger overrides the fallback logger used when no contextual logger is available.
func WithLogger(logger logSDK.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithName sets the name used in logs, usually the source name such as "bing".
func WithName(name string) PipelineOption {
	return func(p *Pipeline) {
		if name = strings.TrimSpace(name); name != "" {
			p.name = name
		}
	}
}

// Pipeline runs an ordered list of strategies and keeps the first one that
// yields at least one usable item.
type Pipeline struct {
	name       string
	strategies []Strategy
	logger     logSDK.Logger
}

// NewPipeline constructs a Pipeline trying strategies in the given order.
// Nil strategies are ignored; it returns an error when none remain.
func NewPipeline(strategies []Strategy, opts ...PipelineOption) (*Pipeline, error) {
	cleaned := make([]Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s == nil {
			continue
		}
		cleaned = append(cleaned, s)
	}
	if len(cleaned) == 0 {
		return nil, errors.New("search pipeline requires at least one strategy")
	}

	p := &Pipeline{
		name:       "search",
		strategies: cleaned,
		logger:     appLog.Logger.Named("search_pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Strategies returns the strategy names in execution order.
func (p *Pipeline) Strategies() []string {
	names := make([]string, 0, len(p.strategies))
	for _, s := range p.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Search runs the strategies for query and returns the normalized outcome,
// capped at count items.
//
// A strategy error wrapping ErrBlocked ends the run immediately. Other errors
// and empty results fall through to the next strategy.
func (p *Pipeline) Search(ctx context.Context, query string, count int) Outcome {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return Failure("search query cannot be empty")
	}
	if count < 1 {
		count = 1
	}

	logger := p.loggerFromContext(ctx).With(
		zap.String("pipeline", p.name),
		zap.String("query", trimmed),
	)

	q := Query{Text: trimmed, Count: count}
	var failureDetails []string
	errored := false
	for idx, strategy := range p.strategies {
		attempt := idx + 1
		logger.Debug("search pipeline invoking strategy",
			zap.String("strategy", strategy.Name()),
			zap.Int("attempt", attempt),
		)

		raw, err := strategy.Extract(ctx, q)
		if err != nil {
			if errors.Is(err, ErrBlocked) {
				logger.Warn("search strategy blocked",
					zap.String("strategy", strategy.Name()),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				return Failure(blockedMessage(err))
			}

			errored = true
			failureDetails = append(failureDetails, fmt.Sprintf("%s: %v", strategy.Name(), err))
			logger.Warn("search strategy failed",
				zap.String("strategy", strategy.Name()),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			continue
		}

		items := Normalize(capUsable(raw, count))
		if len(items) == 0 {
			failureDetails = append(failureDetails, fmt.Sprintf("%s: no results", strategy.Name()))
			logger.Debug("search strategy returned no usable items",
				zap.String("strategy", strategy.Name()),
				zap.Int("attempt", attempt),
				zap.Int("raw", len(raw)),
			)
			continue
		}

		logger.Info("search pipeline succeeded",
			zap.String("strategy", strategy.Name()),
			zap.Int("attempt", attempt),
			zap.Int("items", len(items)),
		)
		return Success(items)
	}

	if !errored {
		return Failure(NoResultsMessage)
	}

	return Failure(fmt.Sprintf("search failed after %d strategy attempt(s): %s",
		len(p.strategies), strings.Join(failureDetails, "; ")))
}

func (p *Pipeline) loggerFromContext(ctx context.Context) logSDK.Logger {
	if ctx != nil {
		if ctxLogger, ok := ctx.Value(ctxkeys.Logger).(logSDK.Logger); ok && ctxLogger != nil {
			return ctxLogger.Named("search_pipeline")
		}
	}
	return p.logger
}

// capUsable keeps the first limit usable items in order.
func capUsable(raw []RawItem, limit int) []RawItem {
	kept := make([]RawItem, 0, min(len(raw), limit))
	for _, item := range raw {
		if len(kept) >= limit {
			break
		}
		item = cleanRawItem(item)
		if !item.Usable() {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func blockedMessage(err error) string {
	var blocked *BlockedError
	if errors.As(err, &blocked) && blocked.Message != "" {
		return blocked.Message
	}
	return err.Error()
}
