package config

import (
	"context"
	"crypto/tls"
	"log"
	"net"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server behind the rate limiter and the
// catalog cache.  The seat ledger never touches Redis.
type RedisConfig struct {
	Enabled     bool
	Addr        string
	Password    string
	DB          int
	TLS         bool
	PingTimeout time.Duration
}

// LoadRedisConfig reads REDIS_ENABLED, REDIS_ADDR (or REDIS_HOST plus
// REDIS_PORT, which win when both are set), REDIS_PASSWORD, REDIS_DB and
// REDIS_TLS.
func LoadRedisConfig() RedisConfig {
	cfg := RedisConfig{
		Enabled:     envBool("REDIS_ENABLED", true),
		Addr:        envStr("REDIS_ADDR", "localhost:6379"),
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          envInt("REDIS_DB", 0),
		TLS:         envBool("REDIS_TLS", false),
		PingTimeout: envDur("REDIS_PING_TIMEOUT", 2*time.Second),
	}
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		cfg.Addr = net.JoinHostPort(host, port)
	}
	return cfg
}

func (c RedisConfig) options() *redis.Options {
	opts := &redis.Options{Addr: c.Addr, Password: c.Password, DB: c.DB}
	if c.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects with LoadRedisConfig.  It returns nil when Redis
// is disabled or does not answer a ping; callers then run without rate
// limiting and caching.
func NewRedisClient(ctx context.Context) *redis.Client {
	cfg := LoadRedisConfig()
	if !cfg.Enabled {
		return nil
	}
	client := redis.NewClient(cfg.options())
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("redis: %s unreachable (%v); rate limiting and caching disabled", cfg.Addr, err)
		_ = client.Close()
		return nil
	}
	return client
}
