// Package domain holds the types shared by the universe loader, the provider
// clients, the gatherer and the publisher.
package domain

import (
	"strings"
	"time"
)

// InstrumentClass names one of the three instrument universes. The value
// doubles as the provider product filter.
type InstrumentClass string

const (
	ClassStocks  InstrumentClass = "stocks"
	ClassETFs    InstrumentClass = "etfs"
	ClassIndices InstrumentClass = "indices"
)

// GatherOrder is the fixed order in which a run walks the classes.
var GatherOrder = []InstrumentClass{ClassStocks, ClassIndices, ClassETFs}

// Universe is the set of symbols a run fetches plus the topics it publishes to.
type Universe struct {
	Stocks  []string
	ETFs    []string
	Indices []string
	Topics  []string
}

// Symbols returns the symbol references for the given class.
func (u Universe) Symbols(class InstrumentClass) []string {
	switch class {
	case ClassStocks:
		return u.Stocks
	case ClassETFs:
		return u.ETFs
	case ClassIndices:
		return u.Indices
	}
	return nil
}

// Size returns the number of symbols across all classes.
func (u Universe) Size() int {
	return len(u.Stocks) + len(u.ETFs) + len(u.Indices)
}

// Empty reports whether all three symbol sets are empty.
func (u Universe) Empty() bool {
	return u.Size() == 0
}

// Ticker strips the exchange prefix from an "EXCHANGE:TICKER" reference. A
// reference without a colon is returned trimmed.
func Ticker(ref string) string {
	if i := strings.LastIndex(ref, ":"); i >= 0 {
		ref = ref[i+1:]
	}
	return strings.TrimSpace(ref)
}

// Quote is a resolved search hit. It is only valid for the retrieval call that
// produced it.
type Quote struct {
	ID       string
	Symbol   string
	Name     string
	Exchange string
	Country  string
	Class    InstrumentClass
}

// RawBar is one provider-native trading day.
type RawBar struct {
	Date      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	ChangePct float64
}

// Bar is the canonical record published to the broker.
type Bar struct {
	ID        string  `json:"id"`
	Provider  string  `json:"provider"`
	Timeframe string  `json:"timeframe"`
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Exchange  string  `json:"exchange"`
	PriceDate string  `json:"price_date"`
	Currency  string  `json:"currency"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    int64   `json:"volume"`

	// Reserved for downstream schema compatibility; never populated here.
	AdjOpen          *float64 `json:"adj_open"`
	AdjHigh          *float64 `json:"adj_high"`
	AdjLow           *float64 `json:"adj_low"`
	AdjClose         *float64 `json:"adj_close"`
	AdjVolume        *int64   `json:"adj_volume"`
	VWAP             *float64 `json:"vwap"`
	TradeCount       *int64   `json:"trade_count"`
	DividendAmount   *float64 `json:"dividend_amount"`
	SplitCoefficient *float64 `json:"split_coefficient"`
	AltSymbol        *string  `json:"alt_symbol"`
}

// DedupKey identifies the logical bar regardless of its generated ID.
func (b Bar) DedupKey() string {
	return b.Provider + "|" + b.Symbol + "|" + b.PriceDate
}
