// Package provider defines the upstream market-data boundary: a fuzzy symbol
// search that resolves a ticker to a quote, and a daily history call for a
// resolved quote.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"investohlcv/internal/domain"
)

// ErrInvalidParameter is returned when a request is rejected before it is
// sent, e.g. a malformed or inverted date range.
var ErrInvalidParameter = errors.New("invalid parameter")

// DateLayout is the DD/MM/YYYY layout History expects.
const DateLayout = "02/01/2006"

// SearchRequest narrows a free-text search.
type SearchRequest struct {
	Text      string
	Products  []domain.InstrumentClass
	Countries []string
	Limit     int
}

// Provider is implemented by every upstream market-data client.
type Provider interface {
	// Name returns the provider tag stamped on every published bar.
	Name() string

	// Search returns at most req.Limit quotes matching req.
	Search(ctx context.Context, req SearchRequest) ([]domain.Quote, error)

	// History returns the daily bars of q between from and to inclusive,
	// both formatted as DD/MM/YYYY.
	History(ctx context.Context, q domain.Quote, from, to string) ([]domain.RawBar, error)
}

// ParseRange validates a DD/MM/YYYY range and returns it as times.
func ParseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from date %q is not dd/mm/yyyy", ErrInvalidParameter, from)
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to date %q is not dd/mm/yyyy", ErrInvalidParameter, to)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from %s must be before to %s", ErrInvalidParameter, from, to)
	}
	return start, end, nil
}
