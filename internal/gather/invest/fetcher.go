package invest

import (
	"context"
	"log/slog"
	"time"

	"investohlcv/internal/domain"
	"investohlcv/internal/provider"
)

// Result is the outcome of one symbol retrieval. Exchange and Name come from
// the resolved quote and are empty when the symbol did not resolve.
type Result struct {
	Symbol   string
	Exchange string
	Name     string
	Bars     []domain.RawBar
}

// Fetcher resolves a ticker through the provider search and retrieves its
// daily history. Every failure is logged and yields an empty result.
type Fetcher struct {
	provider provider.Provider
	country  string
	log      *slog.Logger
}

// NewFetcher creates a Fetcher restricted to country.
func NewFetcher(p provider.Provider, country string) *Fetcher {
	return &Fetcher{
		provider: p,
		country:  country,
		log:      slog.Default().With("component", "fetcher", "provider", p.Name()),
	}
}

// Fetch returns the bars of symbol between start and end inclusive.
func (f *Fetcher) Fetch(ctx context.Context, class domain.InstrumentClass, symbol string, start, end time.Time) Result {
	res := Result{Symbol: symbol}

	quotes, err := f.provider.Search(ctx, provider.SearchRequest{
		Text:      symbol,
		Products:  []domain.InstrumentClass{class},
		Countries: []string{f.country},
		Limit:     1,
	})
	if err != nil {
		f.log.Error("search failed", "symbol", symbol, "class", class, "error", err)
		return res
	}
	if len(quotes) == 0 {
		f.log.Warn("symbol not found", "symbol", symbol, "class", class, "country", f.country)
		return res
	}

	q := quotes[0]
	res.Exchange = q.Exchange
	res.Name = q.Name

	from, to := start.Format(provider.DateLayout), end.Format(provider.DateLayout)
	bars, err := f.provider.History(ctx, q, from, to)
	if err != nil {
		f.log.Error("history failed", "symbol", symbol, "from", from, "to", to, "error", err)
		return res
	}
	if len(bars) == 0 {
		f.log.Warn("no bars returned", "symbol", symbol, "from", from, "to", to)
	}
	res.Bars = bars
	return res
}
