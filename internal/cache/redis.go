package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"

	"github.com/Domenick1991/travelbooking/config"
)

// RedisLocker hands out distributed mutexes so that only one process at a time opens a
// payment session for a given booking.
type RedisLocker struct {
	client *redis.Client
	rs     *redsync.Redsync
	ttl    time.Duration
}

func NewRedisLocker(cfg config.RedisConfig, ttl time.Duration) *RedisLocker {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &RedisLocker{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		ttl:    ttl,
	}
}

// Lock blocks until the named lock is held or ctx is done. The returned func releases it.
func (l *RedisLocker) Lock(ctx context.Context, name string) (func(context.Context) error, error) {
	mutex := l.rs.NewMutex(lockKey(name),
		redsync.WithExpiry(l.ttl),
		redsync.WithTries(32),
		redsync.WithRetryDelay(100*time.Millisecond),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return func(ctx context.Context) error {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			return fmt.Errorf("release lock %s: %w", name, err)
		}
		return nil
	}, nil
}

func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

func (l *RedisLocker) Close() error {
	return l.client.Close()
}

func lockKey(name string) string {
	return "lock:" + name
}
