package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "fieldops/pkg/platform/strings"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	LogLevel    string
	DatabaseURL string
	RulesPath   string
	// Timezone splits allocation timestamps into month and year.
	Timezone string
	Redis    RedisConfig
	Kafka    KafkaConfig
	Scope    ScopeConfig
	Retry    RetryConfig
}

// RedisConfig configures the optional authority scope cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the history outbox relay. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	PollInterval time.Duration
}

// ScopeConfig bounds authority scope resolution.
type ScopeConfig struct {
	MaxNodes       int
	MaxDepth       int
	CacheTTL       time.Duration
	ComputeTimeout time.Duration
}

// RetryConfig bounds StorageConflict retries in the records service.
type RetryConfig struct {
	MaxRetries     uint64
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        envString("FIELDOPS_ADDR", ":8080"),
		LogLevel:    envString("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RulesPath:   os.Getenv("FIELDOPS_RULES_PATH"),
		Timezone:    envString("FIELDOPS_TIMEZONE", "UTC"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      envList("KAFKA_BROKERS"),
			Topic:        envString("KAFKA_HISTORY_TOPIC", "fieldops.history"),
			BatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),
			PollInterval: envDuration("OUTBOX_POLL_INTERVAL", time.Second),
		},
		Scope: ScopeConfig{
			MaxNodes:       envInt("SCOPE_MAX_NODES", 10_000),
			MaxDepth:       envInt("SCOPE_MAX_DEPTH", 32),
			CacheTTL:       envDuration("SCOPE_CACHE_TTL", 5*time.Minute),
			ComputeTimeout: envDuration("SCOPE_COMPUTE_TIMEOUT", 10*time.Second),
		},
		Retry: RetryConfig{
			MaxRetries:     uint64(envInt("STORAGE_MAX_RETRIES", 4)),
			InitialBackoff: envDuration("STORAGE_RETRY_INITIAL", 20*time.Millisecond),
			MaxBackoff:     envDuration("STORAGE_RETRY_MAX", 500*time.Millisecond),
		},
	}
}

// Location resolves Timezone, falling back to UTC.
func (s Server) Location() (*time.Location, error) {
	if s.Timezone == "" || strings.EqualFold(s.Timezone, "UTC") {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(raw, ","))
}
