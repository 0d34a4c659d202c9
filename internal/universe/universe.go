// Package universe resolves the symbols a run fetches and the topics it
// publishes to: Redis first, YAML files when the cache holds nothing.
package universe

import (
	"context"
	"log/slog"

	"investohlcv/internal/domain"
)

// Source resolves the universe once per run.
type Source struct {
	cache       Cache // may be nil
	symbolPaths []string
	topicPaths  []string
	delays      Delays
	log         *slog.Logger
}

// NewSource creates a Source. cache may be nil to always read the files.
func NewSource(cache Cache, symbolPaths, topicPaths []string, delays Delays) *Source {
	return &Source{
		cache:       cache,
		symbolPaths: symbolPaths,
		topicPaths:  topicPaths,
		delays:      delays,
		log:         slog.Default().With("component", "universe"),
	}
}

// Resolve returns the universe. Symbols come entirely from the cache when at
// least one cached set is non-empty, otherwise entirely from the symbol file.
// Topics always come from the topic file. Resolve only returns an error when
// ctx ends (or a bounded wait gives up) while waiting for a file.
func (s *Source) Resolve(ctx context.Context) (domain.Universe, error) {
	u, fromCache := s.fromCache(ctx)

	var legacyTopic string
	if fromCache {
		s.log.Info("universe loaded from cache",
			"stocks", len(u.Stocks), "etfs", len(u.ETFs), "indices", len(u.Indices))
	} else {
		var sf symbolFile
		path, err := loadYAML(ctx, s.log, s.symbolPaths, s.delays, &sf, nil)
		if err != nil {
			return domain.Universe{}, err
		}
		u = domain.Universe{Stocks: sf.Stocks, ETFs: sf.ETFs, Indices: sf.Indices}
		legacyTopic = sf.Queue
		s.log.Info("universe loaded from file", "path", path,
			"stocks", len(u.Stocks), "etfs", len(u.ETFs), "indices", len(u.Indices))
	}

	topics, err := s.topics(ctx, legacyTopic)
	if err != nil {
		return domain.Universe{}, err
	}
	u.Topics = topics
	return u, nil
}

// fromCache reads the three cached sets. Any cache error is logged and
// treated as an empty cache.
func (s *Source) fromCache(ctx context.Context) (domain.Universe, bool) {
	if s.cache == nil {
		return domain.Universe{}, false
	}

	var u domain.Universe
	for _, set := range []struct {
		key string
		dst *[]string
	}{
		{KeyStocks, &u.Stocks},
		{KeyETFs, &u.ETFs},
		{KeyIndices, &u.Indices},
	} {
		members, err := s.cache.Members(ctx, set.key)
		if err != nil {
			s.log.Warn("symbol cache unavailable, falling back to file", "error", err)
			return domain.Universe{}, false
		}
		*set.dst = members
	}

	if u.Empty() {
		s.log.Info("symbol cache is empty, falling back to file")
		return domain.Universe{}, false
	}
	return u, true
}

// topics reads the topic file. When the file names no topics the legacy
// symbol-file topic is used instead.
func (s *Source) topics(ctx context.Context, legacy string) ([]string, error) {
	var tf topicFile
	path, err := loadYAML(ctx, s.log, s.topicPaths, s.delays, &tf, func() error {
		if len(tf.Topics) == 0 && legacy == "" {
			return ErrNoTopics
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	topics := tf.Topics
	if len(topics) == 0 {
		topics = []string{legacy}
	}
	s.log.Info("topics loaded", "path", path, "topics", topics)
	return topics, nil
}
