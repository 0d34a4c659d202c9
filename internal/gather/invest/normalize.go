package invest

import (
	"github.com/google/uuid"

	"investohlcv/internal/domain"
	"investohlcv/internal/util"
)

// Timeframe is stamped on every bar.
const Timeframe = "day"

// Context carries the per-symbol and per-run values attached to each bar.
type Context struct {
	Symbol   string
	Exchange string
	Name     string
	Provider string
	Currency string
}

// Normalize maps a raw bar onto the canonical record. Only the ID differs
// between two calls with the same inputs. The change percentage is dropped.
func Normalize(raw domain.RawBar, c Context) domain.Bar {
	return domain.Bar{
		ID:        uuid.NewString(),
		Provider:  c.Provider,
		Timeframe: Timeframe,
		Symbol:    c.Symbol,
		Name:      c.Name,
		Exchange:  c.Exchange,
		PriceDate: raw.Date.Format(util.ISODate),
		Currency:  c.Currency,
		Open:      raw.Open,
		High:      raw.High,
		Low:       raw.Low,
		Close:     raw.Close,
		Volume:    raw.Volume,
	}
}

// NormalizeAll maps every raw bar with the same context.
func NormalizeAll(raws []domain.RawBar, c Context) []domain.Bar {
	if len(raws) == 0 {
		return nil
	}
	bars := make([]domain.Bar, len(raws))
	for i, raw := range raws {
		bars[i] = Normalize(raw, c)
	}
	return bars
}
