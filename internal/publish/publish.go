// Package publish fans canonical bars out to every configured broker topic.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"investohlcv/internal/domain"
	"investohlcv/internal/util"
)

// Producer is the broker connection the Publisher writes through.
type Producer interface {
	Send(ctx context.Context, topic string, key, value []byte) error
	// Flush blocks until every message sent so far is acknowledged.
	Flush(ctx context.Context) error
	Close() error
}

// Dialer opens a Producer.
type Dialer func(ctx context.Context) (Producer, error)

// Publisher owns one lazily opened Producer for the life of the process.
type Publisher struct {
	dial     Dialer
	topics   []string
	retry    util.RetryPolicy
	producer Producer
	log      *slog.Logger
}

// NewPublisher creates a Publisher. Connecting retries every interval;
// maxAttempts of zero retries until ctx ends. Only errors for which
// retryable returns true are retried; a nil retryable retries everything.
func NewPublisher(dial Dialer, topics []string, interval time.Duration, maxAttempts int, retryable func(error) bool) *Publisher {
	p := &Publisher{
		dial:   dial,
		topics: topics,
		log:    slog.Default().With("component", "publisher"),
	}
	p.retry = util.RetryPolicy{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		Retryable:   retryable,
		Notify: func(err error, wait time.Duration) {
			p.log.Warn("broker unavailable, retrying", "error", err, "retryIn", wait)
		},
	}
	return p
}

// Topics returns the configured topics.
func (p *Publisher) Topics() []string { return p.topics }

func (p *Publisher) connect(ctx context.Context) error {
	if p.producer != nil {
		return nil
	}
	return util.Retry(ctx, p.retry, func() error {
		prod, err := p.dial(ctx)
		if err != nil {
			return err
		}
		p.producer = prod
		p.log.Info("connected to broker", "topics", p.topics)
		return nil
	})
}

// Publish sends every bar to every topic and blocks until the broker has
// acknowledged them all. An empty batch is logged and never opens a
// connection.
func (p *Publisher) Publish(ctx context.Context, symbol, exchange, name string, bars []domain.Bar) error {
	if len(bars) == 0 {
		p.log.Warn("no bars to publish", "symbol", symbol, "exchange", exchange, "name", name)
		return nil
	}

	if err := p.connect(ctx); err != nil {
		return fmt.Errorf("connecting producer: %w", err)
	}

	for _, bar := range bars {
		payload, err := json.Marshal(bar)
		if err != nil {
			return fmt.Errorf("encoding bar %s: %w", bar.DedupKey(), err)
		}
		key := []byte(bar.DedupKey())
		for _, topic := range p.topics {
			if err := p.producer.Send(ctx, topic, key, payload); err != nil {
				return fmt.Errorf("sending %s to %s: %w", symbol, topic, err)
			}
		}
	}

	if err := p.producer.Flush(ctx); err != nil {
		return fmt.Errorf("flushing %s: %w", symbol, err)
	}

	p.log.Info("published", "symbol", symbol, "exchange", exchange,
		"bars", len(bars), "topics", len(p.topics))
	return nil
}

// Close releases the producer if one was opened.
func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	err := p.producer.Close()
	p.producer = nil
	return err
}
