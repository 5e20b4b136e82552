package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	keyRaceLock  = "race-settlement:lock:race:%s"
	pollInterval = 50 * time.Millisecond
)

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a distributed lock shared by every instance pointing at the same Redis
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	logger *logrus.Logger
}

// NewRedisLocker creates a Redis-backed locker. ttl bounds how long a crashed
// holder can block others; wait bounds how long Lock polls.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration, logger *logrus.Logger) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait, logger: logger}
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Lock polls SET NX until the lock is taken, the wait elapses or ctx is done
func (l *RedisLocker) Lock(ctx context.Context, raceID string) (func(), error) {
	key := fmt.Sprintf(keyRaceLock, raceID)
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("failed to acquire race lock: %w", err)
		}
		if ok {
			break
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: race %s", ErrLockTimeout, raceID)
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be cancelled; release on a fresh one
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.WithError(err).WithField("race_id", raceID).Warn("Failed to release race lock")
			}
		})
	}, nil
}
