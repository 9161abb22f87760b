// Package coordinator serializes publishes per social account with a
// short-lived lease held in memory, on disk, or in Redis.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/fluxpost/internal/config"
)

const DefaultTTL = 2 * time.Minute

var (
	ErrEmptyKey = errors.New("lease key is empty")
	// ErrLeaseLost is returned by Release when the lease expired and the key
	// was freed or taken by another holder before release.
	ErrLeaseLost = errors.New("publish lease expired before release")
)

type Lease interface {
	Release(context.Context) error
}

// Coordinator hands out one lease per key at a time. Acquire blocks until the
// key is free, its holder's TTL runs out, or ctx is done.
type Coordinator interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// FromConfig builds the coordinator named by cfg.Mode.
func FromConfig(cfg config.CoordinationConfig) (Coordinator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Mode)) {
	case "", "memory":
		return NewMemoryCoordinator(), nil
	case "file":
		return NewFileCoordinator(cfg.Dir), nil
	case "redis":
		rc, err := NewRedisCoordinator(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown coordination mode %q", cfg.Mode)
	}
}

// WithLease runs fn while holding key. The lease is released with a fresh
// context so a cancelled ctx still frees it. A release error, ErrLeaseLost
// included, is returned only when fn succeeded.
func WithLease(ctx context.Context, c Coordinator, key string, ttl time.Duration, fn func(context.Context) error) error {
	lease, err := c.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	fnErr := fn(ctx)

	releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lease.Release(releaseCtx); err != nil && fnErr == nil {
		return err
	}
	return fnErr
}

type memoryCoordinator struct {
	mu     sync.Mutex
	leases map[string]memoryEntry
	seq    uint64
}

type memoryEntry struct {
	id      uint64
	expires time.Time
}

type memoryLease struct {
	key string
	id  uint64
	c   *memoryCoordinator
}

func NewMemoryCoordinator() Coordinator {
	return &memoryCoordinator{leases: make(map[string]memoryEntry)}
}

func (c *memoryCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	for {
		c.mu.Lock()
		held, exists := c.leases[key]
		now := time.Now()
		if !exists || now.After(held.expires) {
			c.seq++
			c.leases[key] = memoryEntry{id: c.seq, expires: now.Add(ttl)}
			l := &memoryLease{key: key, id: c.seq, c: c}
			c.mu.Unlock()
			return l, nil
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire publish lease %s: %w", key, ctx.Err())
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func (l *memoryLease) Release(_ context.Context) error {
	l.c.mu.Lock()
	defer l.c.mu.Unlock()
	cur, ok := l.c.leases[l.key]
	if !ok || cur.id != l.id {
		return fmt.Errorf("%w: %s", ErrLeaseLost, l.key)
	}
	delete(l.c.leases, l.key)
	return nil
}

type fileCoordinator struct {
	dir string
}

type fileLease struct {
	path  string
	owner string
}

func NewFileCoordinator(dir string) Coordinator {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "fluxpost-leases")
	}
	return &fileCoordinator{dir: dir}
}

func (c *fileCoordinator) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir lease dir: %w", err)
	}
	// Account keys look like "threads:1234"; escape them into one file name.
	path := filepath.Join(c.dir, url.PathEscape(key)+".lock")

	for {
		now := time.Now()
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			owner := uuid.NewString()
			_, werr := fmt.Fprintf(f, "%s\n%s\n", owner, now.Add(ttl).Format(time.RFC3339Nano))
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("write file lease: %w", werr)
			}
			return &fileLease{path: path, owner: owner}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire file lease: %w", err)
		}
		if stale(path, now) {
			_ = os.Remove(path)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire file lease %s: %w", key, ctx.Err())
		case <-time.After(25 * time.Millisecond):
		}
	}
}

func (l *fileLease) Release(_ context.Context) error {
	owner, _, err := readLockFile(l.path)
	if err != nil || owner != l.owner {
		return fmt.Errorf("%w: %s", ErrLeaseLost, l.path)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release file lease: %w", err)
	}
	return nil
}

// readLockFile parses the owner and expiry lines written by Acquire.
func readLockFile(path string) (string, time.Time, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", time.Time{}, err
	}
	owner, expiry, ok := strings.Cut(strings.TrimSpace(string(b)), "\n")
	if !ok {
		return "", time.Time{}, fmt.Errorf("malformed lock file %s", path)
	}
	t, err := time.Parse(time.RFC3339Nano, expiry)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed lock file %s: %w", path, err)
	}
	return owner, t, nil
}

// stale reports whether the lock file's expiry has passed. An unreadable
// file counts as stale.
func stale(path string, now time.Time) bool {
	_, expiry, err := readLockFile(path)
	return err != nil || now.After(expiry)
}
