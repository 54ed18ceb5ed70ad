package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service settings read from the environment.
type Config struct {
	DatabaseURL      string
	RedisURL         string
	KafkaBrokers     string
	NatsURL          string
	JaegerEndpoint   string
	Port             string
	SecretCacheTTL   time.Duration
	WebhookDedupeTTL time.Duration
	ConnectorTimeout time.Duration
	ConnectorsFile   string
	Connectors       Connectors
}

// ConnectorConfig is the per-connector override block of the connectors file.
type ConnectorConfig struct {
	BaseURL string `yaml:"base_url"`
}

// Connectors maps a connector name to its overrides. It is filled once by
// Load and only read afterwards.
type Connectors map[string]ConnectorConfig

// BaseURL returns the configured base URL for name, or "" to keep the
// connector's sandbox default.
func (c Connectors) BaseURL(name string) string {
	return c[strings.ToLower(name)].BaseURL
}

type connectorsFile struct {
	Connectors map[string]ConnectorConfig `yaml:"connectors"`
}

// Load reads the environment, applying defaults, and merges the connectors file when one is set.
func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8084"
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	secretTTL, err := duration("SECRET_CACHE_TTL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	dedupeTTL, err := duration("WEBHOOK_DEDUPE_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	timeout, err := duration("CONNECTOR_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		KafkaBrokers:     os.Getenv("KAFKA_BROKERS"),
		NatsURL:          natsURL,
		JaegerEndpoint:   os.Getenv("JAEGER_ENDPOINT"),
		Port:             port,
		SecretCacheTTL:   secretTTL,
		WebhookDedupeTTL: dedupeTTL,
		ConnectorTimeout: timeout,
		ConnectorsFile:   os.Getenv("CONNECTORS_FILE"),
		Connectors:       Connectors{},
	}

	if cfg.ConnectorsFile != "" {
		connectors, err := LoadConnectors(cfg.ConnectorsFile)
		if err != nil {
			return nil, err
		}
		cfg.Connectors = connectors
	}
	return cfg, nil
}

// LoadConnectors reads the YAML override file:
//
//	connectors:
//	  stripe:
//	    base_url: http://localhost:12111/
func LoadConnectors(path string) (Connectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read connectors file: %w", err)
	}
	var file connectorsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse connectors file %s: %w", path, err)
	}
	out := make(Connectors, len(file.Connectors))
	for name, c := range file.Connectors {
		out[strings.ToLower(strings.TrimSpace(name))] = c
	}
	return out, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
