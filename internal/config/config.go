package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP    HTTPConfig
	Store   StoreConfig
	Broker  BrokerConfig
	Summary SummaryConfig
	Logging LoggingConfig
}

// HTTPConfig governs HTTP server behaviour.
type HTTPConfig struct {
	Host              string
	Port              int
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MetricsEnabled    bool
	AllowedOriginsCSV string
}

// StoreConfig selects and configures the ledger store backend.
type StoreConfig struct {
	Driver string // sqlite|memory
	Path   string // sqlite database file
}

// BrokerConfig describes connectivity to the broadcast broker.
type BrokerConfig struct {
	Driver   string // redis|memory
	Addr     string
	Password string
	DB       int
	Topic    string
}

// SummaryConfig tunes the summary cache.
type SummaryConfig struct {
	CacheTTL time.Duration
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level         string
	Format        string // text|json
	IncludeCaller bool
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultStoreDriver     = "sqlite"
	defaultStorePath       = "data/ledgerstream.db"
	defaultBrokerDriver    = "memory"
	defaultBrokerAddr      = "localhost:6379"
	defaultBrokerTopic     = "transactions"
	defaultCacheTTL        = time.Hour
)

// Load reads configuration from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		HTTP: HTTPConfig{
			Host:            valueOrDefault("SERVER_HOST", defaultHost),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Store: StoreConfig{
			Driver: valueOrDefault("STORE_DRIVER", defaultStoreDriver),
			Path:   valueOrDefault("STORE_PATH", defaultStorePath),
		},
		Broker: BrokerConfig{
			Driver:   valueOrDefault("BROKER_DRIVER", defaultBrokerDriver),
			Addr:     valueOrDefault("BROKER_ADDR", defaultBrokerAddr),
			Password: os.Getenv("BROKER_PASSWORD"),
			DB:       parseIntWithDefault("BROKER_DB", 0),
			Topic:    valueOrDefault("BROKER_TOPIC", defaultBrokerTopic),
		},
		Summary: SummaryConfig{
			CacheTTL: defaultCacheTTL,
		},
		Logging: LoggingConfig{
			Level:         valueOrDefault("LOG_LEVEL", defaultLoggingLevel),
			Format:        valueOrDefault("LOG_FORMAT", defaultLoggingFormat),
			IncludeCaller: parseBoolWithDefault("LOG_INCLUDE_CALLER", false),
		},
	}

	port, err := parsePort("SERVER_PORT", defaultPort)
	if err != nil {
		return Config{}, err
	}
	cfg.HTTP.Port = port

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"SUMMARY_CACHE_TTL", &cfg.Summary.CacheTTL},
	}
	for _, entry := range durations {
		if v := os.Getenv(entry.key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", entry.key, err)
			}
			*entry.target = d
		}
	}

	switch cfg.Store.Driver {
	case "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}
	switch cfg.Broker.Driver {
	case "redis", "memory":
	default:
		return Config{}, fmt.Errorf("unknown BROKER_DRIVER %q", cfg.Broker.Driver)
	}

	cfg.HTTP.MetricsEnabled = parseBoolWithDefault("SERVER_METRICS_ENABLED", false)
	cfg.HTTP.AllowedOriginsCSV = os.Getenv("SERVER_ALLOWED_ORIGINS")

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolWithDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		val, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return val
	}
	return fallback
}

func parseIntWithDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if val, err := strconv.Atoi(v); err == nil {
			return val
		}
	}
	return fallback
}

func parsePort(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
		}
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("port %d is out of range", port)
		}
		return port, nil
	}
	return fallback, nil
}
