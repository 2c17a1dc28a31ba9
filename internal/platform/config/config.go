package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Optional backends (Redis,
// Kafka, Postgres) are disabled when their connection setting is empty, which
// keeps dev mode and unit tests on the in-memory implementations.
type Server struct {
	Addr          string
	JWTSigningKey string

	PostgresDSN string
	Redis       RedisConfig

	KafkaBrokers []string
	AuditTopic   string

	// DispatchWorkers sizes the async provisioning event worker pool.
	DispatchWorkers int

	// ConnectorPageSize and ConnectorRatePerSec bound remote system paging.
	ConnectorPageSize   int
	ConnectorRatePerSec float64
}

// RedisConfig captures Redis connection tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("IDSYNC_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("IDSYNC_JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("IDSYNC_AUDIT_TOPIC")
	if topic == "" {
		topic = "idsync.audit"
	}

	var brokers []string
	if raw := os.Getenv("IDSYNC_KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		PostgresDSN:   os.Getenv("IDSYNC_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("IDSYNC_REDIS_URL"),
			PoolSize:     envInt("IDSYNC_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("IDSYNC_REDIS_MIN_IDLE", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		KafkaBrokers:        brokers,
		AuditTopic:          topic,
		DispatchWorkers:     envInt("IDSYNC_DISPATCH_WORKERS", 4),
		ConnectorPageSize:   envInt("IDSYNC_CONNECTOR_PAGE_SIZE", 100),
		ConnectorRatePerSec: envFloat("IDSYNC_CONNECTOR_RATE", 50),
	}
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
