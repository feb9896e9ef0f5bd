package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/juliabot/core/logger"
)

// Connect initializes a Redis client from a redis:// / rediss:// URL or a bare host:port.
// The client is lazy: no connection is opened until the first command.
func Connect(_ context.Context, dsn string) (*redis.Client, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("cache: empty redis dsn")
	}

	var opt *redis.Options
	if strings.HasPrefix(dsn, "redis://") || strings.HasPrefix(dsn, "rediss://") {
		parsed, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("cache: parse redis url: %w", err)
		}
		opt = parsed
	} else {
		opt = &redis.Options{Addr: dsn}
	}

	logger.Cache.Info("redis client configured",
		slog.String("event", "redis.connect"),
		slog.String("host", opt.Addr),
		slog.Int("db", opt.DB),
	)
	return redis.NewClient(opt), nil
}
