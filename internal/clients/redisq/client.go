package redisq

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/logger"
	"github.com/luizpires-afk/arsenalfit-store-sub001/internal/utils"
)

type Client struct {
	log *logger.Logger
	rdb *goredis.Client
}

func New(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "localhost:6379", log))

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{log: log.With("service", "RedisClient"), rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
