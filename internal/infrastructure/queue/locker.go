package queue

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/jhoicas/stock-ledger/internal/application/jobs"
	"github.com/redis/go-redis/v9"
)

// RedisLocker bloqueo distribuido entre workers.
type RedisLocker struct {
	client *redislock.Client
}

var _ jobs.Locker = (*RedisLocker)(nil)

// NewRedisLocker crea el bloqueo sobre el cliente redis.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

// Obtain toma la clave sin reintentos; jobs.ErrLocked si otro proceso la tiene.
func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, jobs.ErrLocked
	}
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) error {
		err := lock.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}
