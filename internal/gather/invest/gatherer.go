// Package invest runs the daily OHLCV batch: resolve the universe, then for
// every symbol fetch, normalize, publish and pause.
package invest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"investohlcv/internal/domain"
	"investohlcv/internal/gather"
	"investohlcv/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ gather.Gatherer = (*Gatherer)(nil)

// Phase names logged as a run advances.
const (
	PhaseInit      = "init"
	PhaseResolving = "resolving_universe"
	PhaseFetching  = "fetching"
	PhaseNormalize = "normalizing"
	PhasePublish   = "publishing"
	PhaseCooldown  = "cooldown"
	PhaseDone      = "done"
)

// UniverseSource resolves the symbols and topics of a run.
type UniverseSource interface {
	Resolve(ctx context.Context) (domain.Universe, error)
}

// BarFetcher retrieves the raw bars of one symbol.
type BarFetcher interface {
	Fetch(ctx context.Context, class domain.InstrumentClass, symbol string, start, end time.Time) Result
}

// BarPublisher sends a normalized batch to the broker.
type BarPublisher interface {
	Publish(ctx context.Context, symbol, exchange, name string, bars []domain.Bar) error
}

// PublisherFactory builds the publisher once the topics are known.
type PublisherFactory func(topics []string) BarPublisher

// Options holds the per-run settings of a Gatherer.
type Options struct {
	Window   util.DateWindow
	Provider string
	Currency string
	MaxPause time.Duration
	// Sleep pauses between symbols; util.Sleep when nil.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Gatherer walks the universe class by class and publishes the bars of every
// symbol.
type Gatherer struct {
	source       UniverseSource
	fetcher      BarFetcher
	newPublisher PublisherFactory
	opts         Options
	log          *slog.Logger
}

// NewGatherer creates a Gatherer.
func NewGatherer(source UniverseSource, fetcher BarFetcher, newPublisher PublisherFactory, opts Options) *Gatherer {
	if opts.Sleep == nil {
		opts.Sleep = util.Sleep
	}
	return &Gatherer{
		source:       source,
		fetcher:      fetcher,
		newPublisher: newPublisher,
		opts:         opts,
		log:          slog.Default().With("gatherer", "invest-ohlcv"),
	}
}

// Name returns the gatherer identifier.
func (g *Gatherer) Name() string { return "invest-ohlcv" }

// Run gathers the configured window.
func (g *Gatherer) Run(ctx context.Context) error {
	return g.RunRange(ctx, g.opts.Window)
}

// RunRange performs one pass over the universe for window. Per-symbol
// failures are logged and skipped; only cancellation or a failure to resolve
// the universe ends the pass early.
func (g *Gatherer) RunRange(ctx context.Context, window util.DateWindow) error {
	g.phase(PhaseInit, "start", window.Start.Format(util.ISODate), "end", window.End.Format(util.ISODate))

	g.phase(PhaseResolving)
	u, err := g.source.Resolve(ctx)
	if err != nil {
		return fmt.Errorf("resolving universe: %w", err)
	}
	g.log.Info("universe resolved", "symbols", u.Size(), "topics", u.Topics)

	pub := g.newPublisher(u.Topics)

	var published, empty, failed int
	for _, class := range domain.GatherOrder {
		refs := u.Symbols(class)
		g.log.Info("gathering class", "class", class, "symbols", len(refs))

		for _, ref := range refs {
			symbol := domain.Ticker(ref)
			if symbol == "" {
				g.log.Warn("skipping malformed symbol reference", "ref", ref)
				continue
			}

			g.phase(PhaseFetching, "symbol", symbol, "class", class)
			res := g.fetcher.Fetch(ctx, class, symbol, window.Start, window.End)

			g.phase(PhaseNormalize, "symbol", symbol, "bars", len(res.Bars))
			bars := NormalizeAll(res.Bars, Context{
				Symbol:   symbol,
				Exchange: res.Exchange,
				Name:     res.Name,
				Provider: g.opts.Provider,
				Currency: g.opts.Currency,
			})

			if len(bars) == 0 {
				empty++
			} else {
				g.phase(PhasePublish, "symbol", symbol, "bars", len(bars))
				if err := pub.Publish(ctx, symbol, res.Exchange, res.Name, bars); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					failed++
					g.log.Error("publish failed", "symbol", symbol, "error", err)
				} else {
					published++
				}
			}

			pause := util.Jitter(g.opts.MaxPause)
			g.phase(PhaseCooldown, "symbol", symbol, "pause", pause)
			if err := g.opts.Sleep(ctx, pause); err != nil {
				return err
			}
		}
	}

	g.phase(PhaseDone)
	g.log.Info("run complete", "published", published, "empty", empty, "failed", failed)
	return nil
}

func (g *Gatherer) phase(name string, args ...any) {
	g.log.Debug("phase", append([]any{"phase", name}, args...)...)
}
