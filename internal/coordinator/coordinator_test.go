package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/fluxpost/internal/config"
)

func newRedis(t *testing.T) (*RedisCoordinator, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCoordinatorWithClient(client, "test"), mr, client
}

func coordinators(t *testing.T) map[string]Coordinator {
	rc, _, _ := newRedis(t)
	return map[string]Coordinator{
		"memory": NewMemoryCoordinator(),
		"file":   NewFileCoordinator(t.TempDir()),
		"redis":  rc,
	}
}

func TestLeaseIsExclusive(t *testing.T) {
	for name, c := range coordinators(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			lease, err := c.Acquire(ctx, "threads:42", time.Minute)
			require.NoError(t, err)

			waitCtx, cancel := context.WithTimeout(ctx, 80*time.Millisecond)
			defer cancel()
			_, err = c.Acquire(waitCtx, "threads:42", time.Minute)
			require.ErrorIs(t, err, context.DeadlineExceeded)

			other, err := c.Acquire(ctx, "threads:43", time.Minute)
			require.NoError(t, err)
			require.NoError(t, other.Release(ctx))

			require.NoError(t, lease.Release(ctx))
			again, err := c.Acquire(ctx, "threads:42", time.Minute)
			require.NoError(t, err)
			require.NoError(t, again.Release(ctx))
		})
	}
}

func TestExpiredLeaseCanBeTaken(t *testing.T) {
	for _, name := range []string{"memory", "file"} {
		c := coordinators(t)[name]
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := c.Acquire(ctx, "fb:page", 10*time.Millisecond)
			require.NoError(t, err)
			time.Sleep(30 * time.Millisecond)

			waitCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			lease, err := c.Acquire(waitCtx, "fb:page", time.Minute)
			require.NoError(t, err)
			require.NoError(t, lease.Release(ctx))
		})
	}
}

func TestRedisLeaseExpiresWithTTL(t *testing.T) {
	c, mr, _ := newRedis(t)
	ctx := context.Background()

	_, err := c.Acquire(ctx, "threads:1", time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:threads:1"))

	mr.FastForward(2 * time.Second)
	lease, err := c.Acquire(ctx, "threads:1", time.Second)
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("test:threads:1"))
}

func TestRedisReleaseKeepsForeignLease(t *testing.T) {
	c, mr, _ := newRedis(t)
	ctx := context.Background()

	stale, err := c.Acquire(ctx, "threads:1", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := c.Acquire(ctx, "threads:1", time.Minute)
	require.NoError(t, err)
	owner, err := c.Holder(ctx, "threads:1")
	require.NoError(t, err)
	assert.NotEmpty(t, owner)

	require.ErrorIs(t, stale.Release(ctx), ErrLeaseLost)
	assert.True(t, mr.Exists("test:threads:1"))
	require.NoError(t, fresh.Release(ctx))

	owner, err = c.Holder(ctx, "threads:1")
	require.NoError(t, err)
	assert.Empty(t, owner)
}

func TestStaleReleaseReportsLostLease(t *testing.T) {
	for _, name := range []string{"memory", "file"} {
		c := coordinators(t)[name]
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			stale, err := c.Acquire(ctx, "threads:9", 10*time.Millisecond)
			require.NoError(t, err)
			time.Sleep(30 * time.Millisecond)

			fresh, err := c.Acquire(ctx, "threads:9", time.Minute)
			require.NoError(t, err)
			require.ErrorIs(t, stale.Release(ctx), ErrLeaseLost)

			// The fresh holder keeps the key.
			waitCtx, cancel := context.WithTimeout(ctx, 60*time.Millisecond)
			defer cancel()
			_, err = c.Acquire(waitCtx, "threads:9", time.Minute)
			require.ErrorIs(t, err, context.DeadlineExceeded)
			require.NoError(t, fresh.Release(ctx))
		})
	}
}

func TestWithLeaseSurfacesLostLease(t *testing.T) {
	c := NewMemoryCoordinator()
	err := WithLease(context.Background(), c, "threads:5", 10*time.Millisecond, func(context.Context) error {
		time.Sleep(30 * time.Millisecond)
		_, err := c.Acquire(context.Background(), "threads:5", time.Minute)
		return err
	})
	require.ErrorIs(t, err, ErrLeaseLost)
}

func TestWithLeaseSerializes(t *testing.T) {
	c := NewMemoryCoordinator()
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := WithLease(context.Background(), c, "threads:7", time.Minute, func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxInside)
}

func TestFromConfig(t *testing.T) {
	c, err := FromConfig(config.CoordinationConfig{Mode: "memory"})
	require.NoError(t, err)
	assert.NotNil(t, c)

	mr := miniredis.RunT(t)
	c, err = FromConfig(config.CoordinationConfig{Mode: "redis", RedisURL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = FromConfig(config.CoordinationConfig{Mode: "redis"})
	assert.Error(t, err)

	_, err = FromConfig(config.CoordinationConfig{Mode: "etcd"})
	assert.Error(t, err)
}
