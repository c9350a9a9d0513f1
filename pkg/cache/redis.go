package cache

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config carries the Redis settings mapped from APP_REDIS_* env vars. Only
// Addr is required; the defaults suit the small payloads this service keeps
// in Redis (cached account views and rate-limiter counters).
type Config struct {
	Addr            string // e.g. "redis:6379"
	Username        string // for ACL-auth setups
	Password        string
	DB              int
	UseTLS          bool // managed Redis providers usually require this
	DialTimeout     time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	PoolSize        int
	MinIdleConns    int
	MaxRetries      int
	MinRetryBackoff time.Duration
	MaxRetryBackoff time.Duration
}

// New connects a redis.Client and verifies connectivity with PING. The
// returned closer releases the client during shutdown. Both consumers of this
// client degrade gracefully when Redis is away, so timeouts and retry
// backoffs are kept short rather than letting request paths stall.
func New(ctx context.Context, cfg Config) (*redis.Client, func(), error) {
	opts := &redis.Options{
		Addr:            cfg.Addr,
		Username:        cfg.Username,
		Password:        cfg.Password,
		DB:              cfg.DB,
		DialTimeout:     orDuration(cfg.DialTimeout, 3*time.Second),
		ReadTimeout:     orDuration(cfg.ReadTimeout, 2*time.Second),
		WriteTimeout:    orDuration(cfg.WriteTimeout, 2*time.Second),
		PoolSize:        orInt(cfg.PoolSize, 10),
		MinIdleConns:    orInt(cfg.MinIdleConns, 2),
		MaxRetries:      orInt(cfg.MaxRetries, 3),
		MinRetryBackoff: orDuration(cfg.MinRetryBackoff, 50*time.Millisecond),
		MaxRetryBackoff: orDuration(cfg.MaxRetryBackoff, 500*time.Millisecond),
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	closer := func() {
		_ = client.Close()
	}
	return client, closer, nil
}

func orDuration(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}

func orInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
