package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the invest-ohlcv job. It is built
// once at startup and handed to each component's constructor.
type Config struct {
	Redis     Redis   `yaml:"redis"`
	Kafka     Kafka   `yaml:"kafka"`
	Invest    Invest  `yaml:"invest"`
	Alpaca    Alpaca  `yaml:"alpaca"`
	Files     Files   `yaml:"files"`
	Retry     Retry   `yaml:"retry"`
	Logging   Logging `yaml:"logging"`
	Container bool    `yaml:"running_in_container"`
}

// Redis holds connection parameters for the symbol-list cache.
type Redis struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	DB       int    `yaml:"db"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Addr returns host:port.
func (r Redis) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Local reports whether the cache runs on the loopback default and should be
// contacted without credentials.
func (r Redis) Local() bool {
	return r.Host == "localhost"
}

// Kafka holds the producer configuration.
type Kafka struct {
	Brokers  []string `yaml:"brokers"`
	ClientID string   `yaml:"client_id"`
	// TimeoutSec bounds dial, read and write on broker sockets.
	TimeoutSec int `yaml:"timeout_sec"`
}

// Invest controls how the upstream provider is queried.
type Invest struct {
	Provider string `yaml:"provider"` // "invest" or "alpaca"
	BaseURL  string `yaml:"base_url"`
	Interval string `yaml:"interval"`
	Country  string `yaml:"country"`
	Currency string `yaml:"currency"`
	// MaxPauseSec is the upper bound of the random pause between symbols.
	MaxPauseSec int `yaml:"max_pause_sec"`
}

// MaxPause returns MaxPauseSec as a duration.
func (i Invest) MaxPause() time.Duration {
	return time.Duration(i.MaxPauseSec) * time.Second
}

// Alpaca holds credentials and endpoints for the Alpaca provider.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// Files lists the candidate paths for the symbol and topic files, mounted
// config first.
type Files struct {
	Symbols []string `yaml:"symbols"`
	Topics  []string `yaml:"topics"`
}

// Retry holds the fixed retry delays, in seconds.
type Retry struct {
	ServiceUnavailableSec int `yaml:"service_unavailable_sec"`
	FileNotFoundSec       int `yaml:"file_not_found_sec"`
	ConfigurationErrorSec int `yaml:"configuration_error_sec"`
}

func (r Retry) ServiceUnavailable() time.Duration {
	return time.Duration(r.ServiceUnavailableSec) * time.Second
}

func (r Retry) FileNotFound() time.Duration {
	return time.Duration(r.FileNotFoundSec) * time.Second
}

func (r Retry) ConfigurationError() time.Duration {
	return time.Duration(r.ConfigurationErrorSec) * time.Second
}

// Logging configures the application logger.
type Logging struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
	Verbose bool   `yaml:"verbose"`
}

// EffectiveLevel returns "debug" when verbose logging is on.
func (l Logging) EffectiveLevel() string {
	if l.Verbose {
		return "debug"
	}
	return l.Level
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Redis: Redis{Host: "localhost", Port: 6379},
		Kafka: Kafka{TimeoutSec: 10},
		Invest: Invest{
			Provider:    "invest",
			BaseURL:     "https://www.investing.com",
			Interval:    "Daily",
			Country:     "united states",
			Currency:    "USD",
			MaxPauseSec: 5,
		},
		Alpaca: Alpaca{
			BaseURL: "https://api.alpaca.markets",
			DataURL: "https://data.alpaca.markets",
		},
		Files: Files{
			Symbols: []string{"/etc/config/INVEST", "default_tickers.yaml"},
			Topics:  []string{"/etc/config/INVEST-TOPICS", "default_topics.yaml"},
		},
		Retry: Retry{
			ServiceUnavailableSec: 30,
			FileNotFoundSec:       20,
			ConfigurationErrorSec: 40,
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// Load starts from Default, merges the YAML file at path when path is not
// empty, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every missing or malformed setting at once.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKER is required"))
	}
	switch c.Invest.Provider {
	case "invest":
	case "alpaca":
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			errs = append(errs, errors.New("alpaca provider needs APCA_API_KEY_ID and APCA_API_SECRET_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", c.Invest.Provider))
	}
	if len(c.Files.Symbols) == 0 {
		errs = append(errs, errors.New("no symbol file paths configured"))
	}
	if len(c.Files.Topics) == 0 {
		errs = append(errs, errors.New("no topic file paths configured"))
	}
	if c.Invest.MaxPauseSec < 0 {
		errs = append(errs, errors.New("MAX_PAUSE_BETWEEN_REQUESTS must not be negative"))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	setInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	setBool := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	setString("REDIS_HOST", &cfg.Redis.Host)
	setInt("REDIS_PORT", &cfg.Redis.Port)
	setInt("REDIS_DB", &cfg.Redis.DB)
	setString("REDIS_USERNAME", &cfg.Redis.Username)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)

	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	// HOSTNAMEALIAS2 wins over HOSTNAMEY.
	setString("HOSTNAMEY", &cfg.Kafka.ClientID)
	setString("HOSTNAMEALIAS2", &cfg.Kafka.ClientID)

	setString("INVEST_PROVIDER", &cfg.Invest.Provider)
	setString("INVEST_BASE_URL", &cfg.Invest.BaseURL)
	setString("INVEST_INTERVAL", &cfg.Invest.Interval)
	setString("INVEST_COUNTRY", &cfg.Invest.Country)
	setInt("MAX_PAUSE_BETWEEN_REQUESTS", &cfg.Invest.MaxPauseSec)

	setString("APCA_API_KEY_ID", &cfg.Alpaca.APIKey)
	setString("APCA_API_SECRET_KEY", &cfg.Alpaca.APISecret)

	setString("LOG_LEVEL", &cfg.Logging.Level)
	setBool("ATS_VERBOSE_LOGGING", &cfg.Logging.Verbose)
	setBool("RUNNING_IN_CONTAINER", &cfg.Container)
	if cfg.Container {
		cfg.Logging.Format = "json"
	}

	return errors.Join(errs...)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
