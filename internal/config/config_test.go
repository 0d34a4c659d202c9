package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envNames = []string{
	"REDIS_HOST", "REDIS_PORT", "REDIS_DB", "REDIS_USERNAME", "REDIS_PASSWORD",
	"KAFKA_BROKER", "HOSTNAMEY", "HOSTNAMEALIAS2",
	"INVEST_PROVIDER", "INVEST_BASE_URL", "INVEST_INTERVAL", "INVEST_COUNTRY",
	"MAX_PAUSE_BETWEEN_REQUESTS", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY",
	"LOG_LEVEL", "ATS_VERBOSE_LOGGING", "RUNNING_IN_CONTAINER",
}

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envNames {
		t.Setenv(name, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Redis.Addr() != "localhost:6379" {
		t.Errorf("Redis.Addr() = %q, want %q", cfg.Redis.Addr(), "localhost:6379")
	}
	if !cfg.Redis.Local() {
		t.Error("Redis.Local() = false, want true for localhost")
	}
	if cfg.Invest.Interval != "Daily" {
		t.Errorf("Invest.Interval = %q, want %q", cfg.Invest.Interval, "Daily")
	}
	if cfg.Invest.MaxPause() != 5*time.Second {
		t.Errorf("Invest.MaxPause() = %v, want %v", cfg.Invest.MaxPause(), 5*time.Second)
	}
	if cfg.Retry.ServiceUnavailable() != 30*time.Second {
		t.Errorf("Retry.ServiceUnavailable() = %v, want 30s", cfg.Retry.ServiceUnavailable())
	}
	if cfg.Retry.FileNotFound() != 20*time.Second {
		t.Errorf("Retry.FileNotFound() = %v, want 20s", cfg.Retry.FileNotFound())
	}
	if cfg.Retry.ConfigurationError() != 40*time.Second {
		t.Errorf("Retry.ConfigurationError() = %v, want 40s", cfg.Retry.ConfigurationError())
	}
	if len(cfg.Files.Symbols) != 2 || cfg.Files.Symbols[0] != "/etc/config/INVEST" {
		t.Errorf("Files.Symbols = %v, want mounted path first", cfg.Files.Symbols)
	}
	if len(cfg.Files.Topics) != 2 || cfg.Files.Topics[1] != "default_topics.yaml" {
		t.Errorf("Files.Topics = %v, want local default second", cfg.Files.Topics)
	}

	// No broker configured.
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "KAFKA_BROKER") {
		t.Errorf("Validate() = %v, want KAFKA_BROKER error", err)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "invest.yaml")
	yamlContent := []byte(`
redis:
  host: "cache.internal"
  port: 6380
  db: 2
  username: "reader"
  password: "secret"
kafka:
  brokers: ["k1:9092", "k2:9092"]
invest:
  max_pause_sec: 1
files:
  symbols: ["/tmp/tickers.yaml"]
logging:
  level: "warn"
`)
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Redis.Local() {
		t.Error("Redis.Local() = true, want false for remote host")
	}
	if cfg.Redis.DB != 2 || cfg.Redis.Username != "reader" {
		t.Errorf("Redis = %+v, want db 2 and username reader", cfg.Redis)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("Kafka.Brokers = %v, want 2 entries", cfg.Kafka.Brokers)
	}
	if cfg.Invest.MaxPauseSec != 1 {
		t.Errorf("Invest.MaxPauseSec = %d, want 1", cfg.Invest.MaxPauseSec)
	}
	// Untouched sections keep their defaults.
	if cfg.Invest.Currency != "USD" {
		t.Errorf("Invest.Currency = %q, want %q", cfg.Invest.Currency, "USD")
	}
	if len(cfg.Files.Symbols) != 1 || cfg.Files.Symbols[0] != "/tmp/tickers.yaml" {
		t.Errorf("Files.Symbols = %v, want [/tmp/tickers.yaml]", cfg.Files.Symbols)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "warn")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned error: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_HOST", "redis.prod")
	t.Setenv("REDIS_PORT", "7000")
	t.Setenv("KAFKA_BROKER", "b1:9092, b2:9092")
	t.Setenv("HOSTNAMEY", "pod-1")
	t.Setenv("HOSTNAMEALIAS2", "alias-1")
	t.Setenv("MAX_PAUSE_BETWEEN_REQUESTS", "9")
	t.Setenv("ATS_VERBOSE_LOGGING", "true")
	t.Setenv("RUNNING_IN_CONTAINER", "1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Redis.Addr() != "redis.prod:7000" {
		t.Errorf("Redis.Addr() = %q, want %q", cfg.Redis.Addr(), "redis.prod:7000")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b2:9092" {
		t.Errorf("Kafka.Brokers = %v, want [b1:9092 b2:9092]", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.ClientID != "alias-1" {
		t.Errorf("Kafka.ClientID = %q, want %q", cfg.Kafka.ClientID, "alias-1")
	}
	if cfg.Invest.MaxPause() != 9*time.Second {
		t.Errorf("Invest.MaxPause() = %v, want 9s", cfg.Invest.MaxPause())
	}
	if cfg.Logging.EffectiveLevel() != "debug" {
		t.Errorf("Logging.EffectiveLevel() = %q, want %q", cfg.Logging.EffectiveLevel(), "debug")
	}
	if !cfg.Container || cfg.Logging.Format != "json" {
		t.Errorf("Container = %v, Format = %q, want true, json", cfg.Container, cfg.Logging.Format)
	}
}

func TestLoadEnvMalformed(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_PORT", "not-a-port")

	if _, err := Load(""); err == nil {
		t.Fatal("Load() expected error for malformed REDIS_PORT")
	}
}

func TestValidateAlpacaProvider(t *testing.T) {
	cfg := Default()
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Invest.Provider = "alpaca"

	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() expected error for alpaca without credentials")
	}

	cfg.Alpaca.APIKey, cfg.Alpaca.APISecret = "k", "s"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() returned error: %v", err)
	}

	cfg.Invest.Provider = "yahoo"
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for unknown provider")
	}
}
