// Package investing is a provider.Provider backed by the Investing.com quote
// search and historical-data endpoints.
package investing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"investohlcv/internal/domain"
	"investohlcv/internal/provider"
)

// Compile-time interface check.
var _ provider.Provider = (*Client)(nil)

// Tag is stamped on every bar fetched through this client.
const Tag = "INVEST"

const (
	searchPath  = "/search/service/SearchInnerPage"
	historyPath = "/instruments/HistoricalDataAjax"
	userAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// productTypes maps instrument classes to the pair_type values the search
// endpoint reports.
var productTypes = map[domain.InstrumentClass]string{
	domain.ClassStocks:  "equities",
	domain.ClassETFs:    "etf",
	domain.ClassIndices: "indice",
}

// countryFlags maps lower-case country names to the flag values the search
// endpoint reports. Countries not listed are matched against the flag as is.
var countryFlags = map[string]string{
	"united states":  "USA",
	"united kingdom": "UK",
	"canada":         "Canada",
	"germany":        "Germany",
	"france":         "France",
	"japan":          "Japan",
	"china":          "China",
	"india":          "India",
}

// HTTPClient is the subset of *http.Client the client needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Investing.com endpoints.
type Client struct {
	http     HTTPClient
	baseURL  string
	interval string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c HTTPClient) Option {
	return func(cl *Client) { cl.http = c }
}

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(cl *Client) { cl.baseURL = strings.TrimRight(u, "/") }
}

// WithInterval sets the history interval ("Daily", "Weekly", "Monthly").
func WithInterval(interval string) Option {
	return func(cl *Client) { cl.interval = interval }
}

// NewClient creates a Client with a 30s HTTP timeout and a daily interval.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: 30 * time.Second},
		baseURL:  "https://www.investing.com",
		interval: "Daily",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider tag.
func (c *Client) Name() string { return Tag }

// --- search ---

type searchResponse struct {
	Quotes []searchQuote `json:"quotes"`
}

type searchQuote struct {
	PairID   int64  `json:"pairId"`
	Name     string `json:"name"`
	Flag     string `json:"flag"`
	Symbol   string `json:"symbol"`
	PairType string `json:"pair_type"`
	Exchange string `json:"exchange"`
}

// Search posts the free-text query and keeps the hits whose product type and
// country match the request, up to req.Limit.
func (c *Client) Search(ctx context.Context, req provider.SearchRequest) ([]domain.Quote, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: empty search text", provider.ErrInvalidParameter)
	}

	form := url.Values{
		"search_text": {req.Text},
		"tab":         {"quotes"},
		"isFilter":    {"false"},
		"limit":       {"270"},
		"offset":      {"0"},
	}

	body, err := c.post(ctx, searchPath, form, "application/json")
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", req.Text, err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	wantTypes := make(map[string]domain.InstrumentClass, len(req.Products))
	for _, p := range req.Products {
		if pt, ok := productTypes[p]; ok {
			wantTypes[pt] = p
		}
	}
	wantFlags := make(map[string]string, len(req.Countries))
	for _, country := range req.Countries {
		wantFlags[strings.ToLower(flagFor(country))] = country
	}

	var quotes []domain.Quote
	for _, q := range resp.Quotes {
		class, ok := wantTypes[q.PairType]
		if len(wantTypes) > 0 && !ok {
			continue
		}
		country, ok := wantFlags[strings.ToLower(q.Flag)]
		if len(wantFlags) > 0 && !ok {
			continue
		}
		quotes = append(quotes, domain.Quote{
			ID:       strconv.FormatInt(q.PairID, 10),
			Symbol:   q.Symbol,
			Name:     q.Name,
			Exchange: q.Exchange,
			Country:  country,
			Class:    class,
		})
		if req.Limit > 0 && len(quotes) == req.Limit {
			break
		}
	}
	return quotes, nil
}

func flagFor(country string) string {
	if f, ok := countryFlags[strings.ToLower(strings.TrimSpace(country))]; ok {
		return f
	}
	return country
}

// --- history ---

// History posts the historical-data form for q and parses the returned HTML
// table. Bars come back in ascending date order.
func (c *Client) History(ctx context.Context, q domain.Quote, from, to string) ([]domain.RawBar, error) {
	start, end, err := provider.ParseRange(from, to)
	if err != nil {
		return nil, err
	}
	if q.ID == "" {
		return nil, fmt.Errorf("%w: quote %q has no id", provider.ErrInvalidParameter, q.Symbol)
	}

	form := url.Values{
		"curr_id":      {q.ID},
		"smlID":        {strconv.Itoa(1_000_000 + rand.Intn(99_000_000))},
		"header":       {q.Name + " Historical Data"},
		"st_date":      {start.Format("01/02/2006")},
		"end_date":     {end.Format("01/02/2006")},
		"interval_sec": {c.interval},
		"sort_col":     {"date"},
		"sort_ord":     {"DESC"},
		"action":       {"historical_data"},
	}

	body, err := c.post(ctx, historyPath, form, "text/plain")
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", q.Symbol, err)
	}

	bars, err := parseHistoryTable(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parsing history %s: %w", q.Symbol, err)
	}
	return bars, nil
}

// --- transport ---

func (c *Client) post(ctx context.Context, path string, form url.Values, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", accept)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return body, nil
}
