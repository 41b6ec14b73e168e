// Package redis connects registry processes that share one record store:
// they coordinate writes, submission tokens and change notifications through
// the same Redis instance.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/redis/go-redis/v9"
	"github.com/yi-nology/park_registry/pkg/config"
)

// pingTimeout bounds the startup connectivity check.
const pingTimeout = 5 * time.Second

// NewClient returns nil, nil when Redis is disabled; the registry then runs
// as a single process with in-memory tokens and a local write lock.
func NewClient(cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.Channel == "" {
		return nil, errors.New("redis channel is required for the asset change feed")
	}

	addr := cfg.Address
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		// one connection stays parked on the change feed subscription
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	hlog.Infof("redis connected at %s (db %d), change feed on %s", addr, cfg.DB, cfg.Channel)
	return client, nil
}
