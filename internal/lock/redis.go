package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

// Options configures the Redis lock.
type Options struct {
	// Prefix is prepended to every key, e.g. "splitledger:lock:".
	Prefix string

	// Expiry is how long the lock is held before auto-expiring.
	Expiry time.Duration

	// Tries is the number of attempts to acquire the lock before giving up.
	Tries int

	// RetryDelay is the delay between attempts.
	RetryDelay time.Duration

	// Logger receives acquire and release events. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions suits balance rebuilds, which finish well within a second.
func DefaultOptions() Options {
	return Options{
		Prefix:     "splitledger:lock:",
		Expiry:     10 * time.Second,
		Tries:      32,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Redis is a distributed Locker built on redsync, for running several
// server instances against one database.
type Redis struct {
	rs     *redsync.Redsync
	opts   Options
	logger *slog.Logger
}

var _ Locker = (*Redis)(nil)

// NewRedis creates a Locker backed by the given client.
func NewRedis(client goredislib.UniversalClient, opts Options) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is nil")
	}
	if opts.Expiry <= 0 {
		return nil, errors.New("lock expiry must be greater than 0")
	}
	if opts.Tries < 1 {
		return nil, errors.New("lock tries must be at least 1")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Redis{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
	}, nil
}

// WithLock acquires the distributed lock for key and runs fn.
func (r *Redis) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFn
	}
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}

	name := r.opts.Prefix + key
	mutex := r.rs.NewMutex(
		name,
		redsync.WithExpiry(r.opts.Expiry),
		redsync.WithTries(r.opts.Tries),
		redsync.WithRetryDelay(r.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		r.logger.Error("failed to acquire lock", "lock_key", name, "error", err)
		return fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	r.logger.Debug("lock acquired", "lock_key", name)

	defer func() {
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			r.logger.Error("failed to release lock", "lock_key", name, "unlock_ok", ok, "error", err)
		}
	}()

	return fn(ctx)
}
