package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything main needs to wire the engine. Values come from
// the environment so deployments stay twelve-factor.
type Config struct {
	Addr          string
	JWTSigningKey string

	// PostgresURL selects the durable stores; empty runs fully in memory.
	PostgresURL string

	Redis RedisConfig

	// KafkaBrokers enables the external event sink; empty keeps events local.
	KafkaBrokers []string

	// ReservationGrace bounds how long a reservation may sit before the
	// sweeper releases it.
	ReservationGrace time.Duration
	SweepInterval    time.Duration

	// EventBuffer sizes the in-process event channel.
	EventBuffer int
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:             envOr("HEMOBANK_ADDR", ":8080"),
		JWTSigningKey:    os.Getenv("JWT_SIGNING_KEY"),
		PostgresURL:      os.Getenv("POSTGRES_URL"),
		ReservationGrace: envDuration("RESERVATION_GRACE", 30*time.Minute),
		SweepInterval:    envDuration("SWEEP_INTERVAL", time.Minute),
		EventBuffer:      envInt("EVENT_BUFFER", 256),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	if cfg.JWTSigningKey == "" {
		// Development default - must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
