// Package alpaca is a provider.Provider backed by the Alpaca trading and
// market-data APIs. Alpaca has no fuzzy search, so Search resolves the ticker
// with an exact asset lookup and only covers US-listed equities and ETFs.
package alpaca

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"investohlcv/internal/domain"
	"investohlcv/internal/provider"
)

// Compile-time interface check.
var _ provider.Provider = (*Client)(nil)

// Tag is stamped on every bar fetched through this client.
const Tag = "ALPACA"

type assetGetter interface {
	GetAsset(symbol string) (*alpacaapi.Asset, error)
}

type barGetter interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// Client resolves tickers through the trading API and reads daily bars from
// the market-data API.
type Client struct {
	assets assetGetter
	bars   barGetter
	feed   marketdata.Feed
}

// NewClient creates a Client with the given credentials. Empty URLs keep the
// SDK defaults.
func NewClient(apiKey, apiSecret, baseURL, dataURL string) *Client {
	tradeOpts := alpacaapi.ClientOpts{APIKey: apiKey, APISecret: apiSecret}
	if baseURL != "" {
		tradeOpts.BaseURL = baseURL
	}
	dataOpts := marketdata.ClientOpts{APIKey: apiKey, APISecret: apiSecret}
	if dataURL != "" {
		dataOpts.BaseURL = dataURL
	}
	return &Client{
		assets: alpacaapi.NewClient(tradeOpts),
		bars:   marketdata.NewClient(dataOpts),
		feed:   marketdata.SIP,
	}
}

// Name returns the provider tag.
func (c *Client) Name() string { return Tag }

// Search looks the ticker up as an exact symbol. Indices and non-US countries
// never match.
func (c *Client) Search(_ context.Context, req provider.SearchRequest) ([]domain.Quote, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: empty search text", provider.ErrInvalidParameter)
	}
	if !coversUS(req.Countries) {
		return nil, nil
	}
	class, ok := equityClass(req.Products)
	if !ok {
		return nil, nil
	}

	asset, err := c.assets.GetAsset(strings.ToUpper(strings.TrimSpace(req.Text)))
	if err != nil {
		var apiErr *alpacaapi.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("GetAsset %s: %w", req.Text, err)
	}
	if asset.Class != alpacaapi.USEquity {
		return nil, nil
	}

	return []domain.Quote{{
		ID:       asset.ID,
		Symbol:   asset.Symbol,
		Name:     asset.Name,
		Exchange: asset.Exchange,
		Country:  "united states",
		Class:    class,
	}}, nil
}

// History fetches one-day bars for q.Symbol over [from, to].
func (c *Client) History(_ context.Context, q domain.Quote, from, to string) ([]domain.RawBar, error) {
	start, end, err := provider.ParseRange(from, to)
	if err != nil {
		return nil, err
	}

	bars, err := c.bars.GetBars(q.Symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		// The API end bound is exclusive.
		End:  end.AddDate(0, 0, 1),
		Feed: c.feed,
	})
	if err != nil {
		return nil, fmt.Errorf("GetBars %s: %w", q.Symbol, err)
	}

	out := make([]domain.RawBar, 0, len(bars))
	var prevClose float64
	for _, b := range bars {
		raw := domain.RawBar{
			Date:   b.Timestamp.UTC(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: int64(b.Volume),
		}
		if prevClose != 0 {
			raw.ChangePct = (b.Close - prevClose) / prevClose * 100
		}
		prevClose = b.Close
		out = append(out, raw)
	}
	return out, nil
}

func coversUS(countries []string) bool {
	if len(countries) == 0 {
		return true
	}
	for _, c := range countries {
		if strings.EqualFold(strings.TrimSpace(c), "united states") {
			return true
		}
	}
	return false
}

// equityClass picks the first requested class Alpaca can serve.
func equityClass(products []domain.InstrumentClass) (domain.InstrumentClass, bool) {
	if len(products) == 0 {
		return domain.ClassStocks, true
	}
	for _, p := range products {
		if p == domain.ClassStocks || p == domain.ClassETFs {
			return p, true
		}
	}
	return "", false
}
