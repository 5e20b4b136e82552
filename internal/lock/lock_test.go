package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/yourusername/race-settlement/internal/logger"
)

// exerciseLocker checks mutual exclusion for one key and independence across keys.
func exerciseLocker(t *testing.T, locker RaceLocker) {
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Lock(ctx, "r1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)

	release, err := locker.Lock(ctx, "r1")
	require.NoError(t, err)
	defer release()

	other, err := locker.Lock(ctx, "r2")
	require.NoError(t, err)
	other()
}

func TestLocalLocker(t *testing.T) {
	exerciseLocker(t, NewLocalLocker())
}

func TestLocalLockerHonoursContext(t *testing.T) {
	locker := NewLocalLocker()

	release, err := locker.Lock(context.Background(), "r1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "r1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op

	again, err := locker.Lock(context.Background(), "r1")
	require.NoError(t, err)
	again()

	assert.Empty(t, locker.locks)
}

func TestRedisLocker(t *testing.T) {
	if testing.Short() {
		t.Skip("Integration test - requires docker")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client, 5*time.Second, 2*time.Second, logger.Discard())
	exerciseLocker(t, locker)

	t.Run("times out while held", func(t *testing.T) {
		short := NewRedisLocker(client, 5*time.Second, 100*time.Millisecond, logger.Discard())
		release, err := short.Lock(ctx, "held")
		require.NoError(t, err)
		defer release()

		_, err = short.Lock(ctx, "held")
		assert.ErrorIs(t, err, ErrLockTimeout)
	})
}
