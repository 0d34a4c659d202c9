package universe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"investohlcv/internal/util"
)

// ErrNoFile is returned when none of the candidate paths exists.
var ErrNoFile = errors.New("no configuration file found")

// ErrNoTopics is returned when the topic file lists no topics.
var ErrNoTopics = errors.New("no topics configured")

// symbolFile is the layout of the symbol file.
type symbolFile struct {
	Stocks  []string `yaml:"invest-stocks"`
	ETFs    []string `yaml:"invest-etfs"`
	Indices []string `yaml:"invest-indices"`
	// Legacy single-topic key kept in older symbol files.
	Queue string `yaml:"invest-ohlcv-events-queue"`
}

// topicFile is the layout of the topic file.
type topicFile struct {
	Topics []string `yaml:"invest-ohlcv-topics"`
}

// Delays are the pauses of the blocking file loops.
type Delays struct {
	FileNotFound       time.Duration
	ConfigurationError time.Duration
	// MaxAttempts bounds each loop; zero waits forever.
	MaxAttempts int
}

// firstExisting returns the first path in candidates that is a regular file.
func firstExisting(candidates []string) (string, error) {
	for _, p := range candidates {
		info, err := os.Stat(p)
		if err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %v", ErrNoFile, candidates)
}

// loadYAML waits until one of candidates exists, then waits until it parses
// and passes check. Both waits honour ctx.
func loadYAML(ctx context.Context, log *slog.Logger, candidates []string, d Delays, out any, check func() error) (string, error) {
	var path string
	err := util.Retry(ctx, util.RetryPolicy{
		Interval:    d.FileNotFound,
		MaxAttempts: d.MaxAttempts,
		Notify: func(err error, wait time.Duration) {
			log.Warn("configuration file not found, waiting", "candidates", candidates, "retryIn", wait)
		},
	}, func() (err error) {
		path, err = firstExisting(candidates)
		return err
	})
	if err != nil {
		return "", err
	}

	log.Info("parsing configuration file", "path", path)
	err = util.Retry(ctx, util.RetryPolicy{
		Interval:    d.ConfigurationError,
		MaxAttempts: d.MaxAttempts,
		Notify: func(err error, wait time.Duration) {
			log.Error("invalid configuration file, waiting", "path", path, "error", err, "retryIn", wait)
		},
	}, func() error {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("%w: %s disappeared", ErrNoFile, path)
			}
			return err
		}
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
		if check != nil {
			return check()
		}
		return nil
	})
	return path, err
}
