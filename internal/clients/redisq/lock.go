package redisq

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when it is still held by the caller, so
// an expired-and-reacquired lock is never released by the previous holder.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

// RunLock is the named mutual-exclusion lock guarding batch runs. A holder is
// a run id; acquiring is reentrant for the same holder only (the TTL is
// refreshed instead of failing).
type RunLock struct {
	client *Client
	key    string
}

func NewRunLock(client *Client, key string) *RunLock {
	return &RunLock{client: client, key: key}
}

// Acquire returns false without blocking when another holder owns the lock.
func (l *RunLock) Acquire(ctx context.Context, holder string, ttl time.Duration) (bool, error) {
	ok, err := l.client.rdb.SetNX(ctx, l.key, holder, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock acquire: %w", err)
	}
	if ok {
		return true, nil
	}
	current, err := l.client.rdb.Get(ctx, l.key).Result()
	if err == goredis.Nil {
		// Expired between SetNX and Get; one retry.
		ok, err = l.client.rdb.SetNX(ctx, l.key, holder, ttl).Result()
		if err != nil {
			return false, fmt.Errorf("lock acquire retry: %w", err)
		}
		return ok, nil
	}
	if err != nil {
		return false, fmt.Errorf("lock inspect: %w", err)
	}
	if current == holder {
		if err := l.client.rdb.Expire(ctx, l.key, ttl).Err(); err != nil {
			return false, fmt.Errorf("lock refresh: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// Release is best-effort safe: only the current holder's value is deleted.
func (l *RunLock) Release(ctx context.Context, holder string) error {
	return releaseScript.Run(ctx, l.client.rdb, []string{l.key}, holder).Err()
}
