// Package lock provides a Redis-backed mutual exclusion primitive used to
// keep periodic jobs single-flight across service replicas.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Locker interface {
	// Acquire attempts to take the named lock for ttl. It returns false
	// without error when another holder owns the lock.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

type RedisLocker struct {
	rdb   *redis.Client
	token string
}

// releaseScript deletes the key only when this process still holds it, so a
// lock that expired and was re-acquired elsewhere is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rdb: rdb, token: uuid.NewString()}
}

func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, "lock:"+name, l.token, ttl).Result()
}

func (l *RedisLocker) Release(ctx context.Context, name string) error {
	return releaseScript.Run(ctx, l.rdb, []string{"lock:" + name}, l.token).Err()
}

// ReadyCheck adapts the underlying client to a runtime.ReadyCheck probe.
func ReadyCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
