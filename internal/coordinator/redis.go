package coordinator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "fluxpost:publish"
	redisPollInterval  = 30 * time.Millisecond
)

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1].
// It returns 1 on delete and 0 when another holder owns the key.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCoordinator stores each lease as a key holding a random owner token,
// so leases are shared by every process pointed at the same Redis.
type RedisCoordinator struct {
	client redis.UniversalClient
	prefix string
}

type redisLease struct {
	client redis.UniversalClient
	key    string
	owner  string
}

// NewRedisCoordinator dials redisURL and checks the connection before use.
func NewRedisCoordinator(redisURL string, prefix string) (*RedisCoordinator, error) {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return nil, fmt.Errorf("redis coordination needs COORDINATION_REDIS_URL")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opt.Addr, err)
	}
	return NewRedisCoordinatorWithClient(client, prefix), nil
}

func NewRedisCoordinatorWithClient(client redis.UniversalClient, prefix string) *RedisCoordinator {
	if prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":"); prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisCoordinator{client: client, prefix: prefix}
}

func (c *RedisCoordinator) key(account string) string {
	return c.prefix + ":" + account
}

func (c *RedisCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	lease := &redisLease{client: c.client, key: c.key(key), owner: uuid.NewString()}

	ticker := time.NewTicker(redisPollInterval)
	defer ticker.Stop()
	for {
		ok, err := c.client.SetNX(ctx, lease.key, lease.owner, ttl).Result()
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, fmt.Errorf("acquire redis lease %s: %w", key, ctx.Err())
		case err != nil:
			return nil, fmt.Errorf("acquire redis lease %s: %w", key, err)
		case ok:
			return lease, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire redis lease %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Holder returns the owner token currently stored for key, or "" when free.
func (c *RedisCoordinator) Holder(ctx context.Context, key string) (string, error) {
	owner, err := c.client.Get(ctx, c.key(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read redis lease %s: %w", key, err)
	}
	return owner, nil
}

func (l *redisLease) Release(ctx context.Context) error {
	deleted, err := compareAndDelete.Run(ctx, l.client, []string{l.key}, l.owner).Int()
	if err != nil {
		return fmt.Errorf("release redis lease: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("%w: %s", ErrLeaseLost, l.key)
	}
	return nil
}
