package investing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"investohlcv/internal/domain"
	"investohlcv/internal/provider"
)

const searchBody = `{"quotes":[
  {"pairId":13994,"name":"Tesla Inc","flag":"Germany","symbol":"TL0","pair_type":"equities","exchange":"Xetra"},
  {"pairId":13995,"name":"Tesla Inc","flag":"USA","symbol":"TSLA","pair_type":"equities","exchange":"NASDAQ"},
  {"pairId":13996,"name":"Tesla Inc","flag":"USA","symbol":"TSLA","pair_type":"equities","exchange":"BATS"},
  {"pairId":99999,"name":"Tesla ETF","flag":"USA","symbol":"TSLQ","pair_type":"etf","exchange":"NYSE"}
]}`

// historyBody mirrors the descending table the endpoint returns.
const historyBody = `<div><table class="genTbl closedTbl historicalTbl" id="curr_table">
<thead><tr><th>Date</th><th>Price</th><th>Open</th><th>High</th><th>Low</th><th>Vol.</th><th>Change %</th></tr></thead>
<tbody>
<tr><td data-real-value="1646697600">Mar 08, 2022</td><td data-real-value="824.40">824.40</td><td data-real-value="795.53">795.53</td><td data-real-value="849.99">849.99</td><td data-real-value="782.17">782.17</td><td data-real-value="26799702">26.80M</td><td>2.44%</td></tr>
<tr><td data-real-value="1646611200">Mar 07, 2022</td><td data-real-value="804.58">804.58</td><td data-real-value="856.30">856.30</td><td data-real-value="866.14">866.14</td><td data-real-value="804.57">804.57</td><td data-real-value="24164700">24.16M</td><td>-4.02%</td></tr>
<tr><td data-real-value="1646352000">Mar 04, 2022</td><td data-real-value="838.29">838.29</td><td data-real-value="849.10">849.10</td><td data-real-value="855.65">855.65</td><td data-real-value="825.16">825.16</td><td data-real-value="22333200">22.33M</td><td>-1.98%</td></tr>
<tr><td data-real-value="1646265600">Mar 03, 2022</td><td data-real-value="839.29">839.29</td><td data-real-value="878.77">878.77</td><td data-real-value="886.44">886.44</td><td data-real-value="832.60">832.60</td><td data-real-value="20541200">20.54M</td><td>-4.09%</td></tr>
<tr><td data-real-value="1646179200">Mar 02, 2022</td><td data-real-value="879.89">879.89</td><td data-real-value="872.13">872.13</td><td data-real-value="886.48">886.48</td><td data-real-value="844.27">844.27</td><td data-real-value="24881100">24.88M</td><td>1.79%</td></tr>
</tbody></table></div>`

const emptyHistoryBody = `<table id="curr_table"><tbody><tr><td colspan="7" class="first">No results found</td></tr></tbody></table>`

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(WithBaseURL(ts.URL))
}

func TestSearchFiltersProductAndCountry(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, searchPath, r.URL.Path)
		require.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))
		require.NoError(t, r.ParseForm())
		require.Equal(t, "TSLA", r.PostForm.Get("search_text"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	})

	quotes, err := client.Search(context.Background(), provider.SearchRequest{
		Text:      "TSLA",
		Products:  []domain.InstrumentClass{domain.ClassStocks},
		Countries: []string{"united states"},
		Limit:     1,
	})
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	q := quotes[0]
	require.Equal(t, "13995", q.ID)
	require.Equal(t, "NASDAQ", q.Exchange)
	require.Equal(t, "Tesla Inc", q.Name)
	require.Equal(t, "united states", q.Country)
	require.Equal(t, domain.ClassStocks, q.Class)
}

func TestSearchNoMatch(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchBody))
	})

	quotes, err := client.Search(context.Background(), provider.SearchRequest{
		Text:      "TSLA",
		Products:  []domain.InstrumentClass{domain.ClassIndices},
		Countries: []string{"united states"},
		Limit:     1,
	})
	require.NoError(t, err)
	require.Empty(t, quotes)
}

func TestSearchTransportError(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Search(context.Background(), provider.SearchRequest{Text: "TSLA", Limit: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 503")
}

func TestSearchEmptyText(t *testing.T) {
	t.Parallel()

	_, err := NewClient().Search(context.Background(), provider.SearchRequest{Text: "  "})
	require.ErrorIs(t, err, provider.ErrInvalidParameter)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, historyPath, r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "13995", r.PostForm.Get("curr_id"))
		require.Equal(t, "03/01/2022", r.PostForm.Get("st_date"))
		require.Equal(t, "03/08/2022", r.PostForm.Get("end_date"))
		require.Equal(t, "Daily", r.PostForm.Get("interval_sec"))
		require.Equal(t, "Tesla Inc Historical Data", r.PostForm.Get("header"))
		_, _ = w.Write([]byte(historyBody))
	})

	q := domain.Quote{ID: "13995", Symbol: "TSLA", Name: "Tesla Inc", Exchange: "NASDAQ"}
	bars, err := client.History(context.Background(), q, "01/03/2022", "08/03/2022")
	require.NoError(t, err)
	require.Len(t, bars, 5)

	first := bars[0]
	require.Equal(t, time.Date(2022, 3, 2, 0, 0, 0, 0, time.UTC), first.Date)
	require.Equal(t, 872.13, first.Open)
	require.Equal(t, 886.48, first.High)
	require.Equal(t, 844.27, first.Low)
	require.Equal(t, 879.89, first.Close)
	require.Equal(t, int64(24881100), first.Volume)
	require.Equal(t, 1.79, first.ChangePct)

	for i := 1; i < len(bars); i++ {
		require.True(t, bars[i-1].Date.Before(bars[i].Date), "bars not ascending at %d", i)
	}
}

func TestHistoryNoResults(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emptyHistoryBody))
	})

	bars, err := client.History(context.Background(), domain.Quote{ID: "1"}, "01/03/2022", "08/03/2022")
	require.NoError(t, err)
	require.Empty(t, bars)
}

func TestHistoryInvalidRange(t *testing.T) {
	t.Parallel()

	called := false
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.History(context.Background(), domain.Quote{ID: "1"}, "2022-03-01", "2022-03-08")
	require.ErrorIs(t, err, provider.ErrInvalidParameter)

	_, err = client.History(context.Background(), domain.Quote{ID: "1"}, "08/03/2022", "01/03/2022")
	require.ErrorIs(t, err, provider.ErrInvalidParameter)

	require.False(t, called, "no request should be sent for an invalid range")
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestHistoryTransportError(t *testing.T) {
	t.Parallel()

	client := NewClient(WithHTTPClient(failingDoer{}))
	_, err := client.History(context.Background(), domain.Quote{ID: "1", Symbol: "TSLA"}, "01/03/2022", "08/03/2022")
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
}

func TestParseHistoryTableMissingTable(t *testing.T) {
	t.Parallel()

	_, err := parseHistoryTable(strings.NewReader("<html><body>blocked</body></html>"))
	require.Error(t, err)
}

func TestParseHistoryTableIndexWithoutVolume(t *testing.T) {
	t.Parallel()

	body := fmt.Sprintf(`<table id="curr_table"><tr><td data-real-value="%d">x</td>`+
		`<td data-real-value="4,328.87">4,328.87</td><td data-real-value="4,322.56">a</td>`+
		`<td data-real-value="4,401.48">b</td><td data-real-value="4,322.56">c</td><td>-</td><td>0.0%%</td></tr></table>`,
		time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC).Unix())

	bars, err := parseHistoryTable(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	require.Equal(t, 4328.87, bars[0].Close)
	require.Equal(t, int64(0), bars[0].Volume)
}
