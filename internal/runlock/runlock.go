// Package runlock provides a Redis-backed mutual exclusion lock for runs.
// The scheduler is expected to guarantee non-overlapping invocations; the
// lock guards deployments where that guarantee is weak.
package runlock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only when it still holds our token,
// so an expired lock re-acquired by another run is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lock is a single-holder run lock with a TTL safety net.
type Lock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// New creates a lock for the given key. The TTL bounds how long a crashed
// run can block its successors.
func New(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    key,
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Connect creates and validates a Redis connection.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	return client, nil
}

// Acquire attempts to take the lock. It returns false when another run
// currently holds it.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("runlock: acquiring %s: %w", l.key, err)
	}
	if !ok {
		slog.Warn("Run lock held by another invocation", "key", l.key)
		return false, nil
	}
	slog.Debug("Acquired run lock", "key", l.key, "ttl", l.ttl)
	return true, nil
}

// Release frees the lock if this invocation still holds it.
func (l *Lock) Release(ctx context.Context) error {
	released, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("runlock: releasing %s: %w", l.key, err)
	}
	if released == 0 {
		slog.Warn("Run lock already expired or taken over", "key", l.key)
		return nil
	}
	slog.Debug("Released run lock", "key", l.key)
	return nil
}
