package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes sweep runs across service instances.
type Locker interface {
	// Acquire attempts to take the named lock for ttl. It returns a release
	// function and true on success, or false when another holder owns it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool)
}

// RedisLocker implements Locker with SET NX + TTL. Release only deletes the
// key when the stored token still matches, so an expired lock taken over by
// another instance is never released by the previous holder.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

// NewRedisLocker builds a locker on the shared Redis client.
func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client, prefix: "scheduler:lock:"}
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *RedisLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool) {
	key := l.prefix + name
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, false
	}
	release := func() {
		_ = releaseScript.Run(context.Background(), l.client, []string{key}, token).Err()
	}
	return release, true
}

// NoopLocker always grants the lock. Used when Redis is unavailable or in
// single-instance deployments.
type NoopLocker struct{}

func (NoopLocker) Acquire(context.Context, string, time.Duration) (func(), bool) {
	return func() {}, true
}
