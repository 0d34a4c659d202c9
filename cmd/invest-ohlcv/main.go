// Batch job: fetch daily OHLCV bars for the configured stocks, indices and
// ETFs and publish them to every configured Kafka topic.
//
// Usage:
//
//	go run ./cmd/invest-ohlcv [--start 2022-03-01] [--end 2022-03-08]
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"investohlcv/internal/config"
	"investohlcv/internal/gather/invest"
	"investohlcv/internal/provider"
	"investohlcv/internal/provider/alpaca"
	"investohlcv/internal/provider/investing"
	"investohlcv/internal/publish"
	"investohlcv/internal/universe"
	"investohlcv/internal/util"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatalf("error: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:           "invest-ohlcv",
		Short:         "Publish daily OHLCV bars for the configured universe",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), start, end)
		},
	}
	cmd.Flags().StringVarP(&start, "start", "s", "", "first date to fetch (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&end, "end", "e", "", "last date to fetch (YYYY-MM-DD)")
	return cmd
}

func run(parent context.Context, start, end string) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.Load(os.Getenv("INVEST_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := util.NewLogger(cfg.Logging.EffectiveLevel(), cfg.Logging.Format)
	util.SetDefault(logger)

	window, err := util.ResolveWindow(time.Now(), start, end)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := newProvider(cfg)
	if err != nil {
		return err
	}

	cache := universe.NewRedisCache(cfg.Redis)
	defer cache.Close()

	source := universe.NewSource(cache, cfg.Files.Symbols, cfg.Files.Topics, universe.Delays{
		FileNotFound:       cfg.Retry.FileNotFound(),
		ConfigurationError: cfg.Retry.ConfigurationError(),
	})

	var pub *publish.Publisher
	defer func() {
		if pub == nil {
			return
		}
		if err := pub.Close(); err != nil {
			slog.Error("closing producer", "error", err)
		}
	}()

	g := invest.NewGatherer(source, invest.NewFetcher(p, cfg.Invest.Country),
		func(topics []string) invest.BarPublisher {
			pub = publish.NewPublisher(publish.KafkaDialer(cfg.Kafka), topics,
				cfg.Retry.ServiceUnavailable(), 0, publish.Unreachable)
			return pub
		},
		invest.Options{
			Window:   window,
			Provider: p.Name(),
			Currency: cfg.Invest.Currency,
			MaxPause: cfg.Invest.MaxPause(),
		})

	slog.Info("starting", "gatherer", g.Name(), "provider", p.Name(),
		"start", window.Start.Format(util.ISODate), "end", window.End.Format(util.ISODate),
		"container", cfg.Container)

	if err := g.Run(ctx); err != nil {
		if ctx.Err() != nil {
			slog.Info("interrupted", "error", err)
			return nil
		}
		return err
	}
	return nil
}

func newProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Invest.Provider {
	case "invest":
		return investing.NewClient(
			investing.WithBaseURL(cfg.Invest.BaseURL),
			investing.WithInterval(cfg.Invest.Interval),
		), nil
	case "alpaca":
		return alpaca.NewClient(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL, cfg.Alpaca.DataURL), nil
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Invest.Provider)
}
