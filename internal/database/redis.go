// Package database connects the console to the Redis instance that holds
// operator sessions.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	clientName  = "qbank-console"
	pingTimeout = 3 * time.Second
)

// Redis dial settings. Zero values fall back to the package defaults.
type RedisOptions struct {
	Attempts int
	Backoff  time.Duration
}

// NewSessionRedis opens the client behind the Redis session store and
// waits until the server answers a PING, retrying attempts times.
func NewSessionRedis(ctx context.Context, url string, o RedisOptions, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opt.ClientName = clientName
	if o.Attempts <= 0 {
		o.Attempts = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}

	log = log.With().Str("component", "session-redis").Str("addr", opt.Addr).Int("db", opt.DB).Logger()
	rdb := redis.NewClient(opt)

	for attempt := 1; ; attempt++ {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = rdb.Ping(pctx).Err()
		cancel()
		if err == nil {
			break
		}
		if attempt >= o.Attempts {
			rdb.Close()
			return nil, fmt.Errorf("ping redis after %d attempts: %w", attempt, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("Redis not ready, retrying")
		select {
		case <-ctx.Done():
			rdb.Close()
			return nil, ctx.Err()
		case <-time.After(o.Backoff):
		}
	}

	log.Info().Msg("Session store connected")
	return rdb, nil
}
