package search

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
)

var (
	// ErrBlocked marks an upstream verification or anti-bot page.
	// It stops the pipeline instead of falling through to the next strategy.
	ErrBlocked = errors.New("blocked by upstream verification page")
	// ErrParserUnavailable means a structured document could not be built
	// from the payload, so pattern extraction should take over.
	ErrParserUnavailable = errors.New("document parser unavailable")
)

// Query is the input handed to every Strategy.
type Query struct {
	Text  string
	Count int
}

// Strategy is one self-contained extraction method in the fallback chain.
type Strategy interface {
	// Name returns the identifier used in logs and aggregated errors.
	Name() string
	// Extract returns raw candidates for the query.
	// An empty slice with a nil error lets the pipeline try the next strategy.
	Extract(ctx context.Context, q Query) ([]RawItem, error)
}

// BlockedError wraps ErrBlocked with a source specific message.
type BlockedError struct {
	Message string
}

func (e *BlockedError) Error() string {
	return e.Message
}

// Unwrap exposes ErrBlocked to errors.Is.
func (e *BlockedError) Unwrap() error {
	return ErrBlocked
}

// NewBlockedError returns an error carrying msg that matches ErrBlocked.
func NewBlockedError(msg string) error {
	return &BlockedError{Message: msg}
}

// ContainsBlockMarker reports whether payload contains any of markers,
// ignoring case.
func ContainsBlockMarker(payload string, markers []string) bool {
	if payload == "" || len(markers) == 0 {
		return false
	}

	lowered := strings.ToLower(payload)
	for _, marker := range markers {
		marker = strings.ToLower(strings.TrimSpace(marker))
		if marker == "" {
			continue
		}
		if strings.Contains(lowered, marker) {
			return true
		}
	}

	return false
}
