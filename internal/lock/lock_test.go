package lock

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	opts := DefaultOptions()
	opts.RetryDelay = 5 * time.Millisecond
	opts.Tries = 500
	locker, err := NewRedis(client, opts)
	require.NoError(t, err)
	return locker, mr
}

// assertMutualExclusion runs workers on one key and fails if two overlap.
func assertMutualExclusion(t *testing.T, locker Locker) {
	t.Helper()
	var active, maxActive, done int32
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithLock(context.Background(), GroupBalancesKey("g1"), func(ctx context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					m := atomic.LoadInt32(&maxActive)
					if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				atomic.AddInt32(&done, 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Equal(t, int32(10), done)
}

func TestLocal_MutualExclusion(t *testing.T) {
	locker := NewLocal()
	assertMutualExclusion(t, locker)
	assert.Zero(t, locker.size())
}

func TestLocal_IndependentKeys(t *testing.T) {
	locker := NewLocal()
	ctx := context.Background()

	err := locker.WithLock(ctx, "a", func(ctx context.Context) error {
		// A different key must not block while "a" is held
		return locker.WithLock(ctx, "b", func(context.Context) error { return nil })
	})
	assert.NoError(t, err)
}

func TestLocal_ContextCancelled(t *testing.T) {
	locker := NewLocal()
	held := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = locker.WithLock(context.Background(), "k", func(context.Context) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	called := false
	err := locker.WithLock(ctx, "k", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, called)

	close(release)
}

func TestLocal_PropagatesError(t *testing.T) {
	locker := NewLocal()
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), "k", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.ErrorIs(t, locker.WithLock(context.Background(), " ", func(context.Context) error { return nil }), ErrEmptyKey)
	assert.ErrorIs(t, locker.WithLock(context.Background(), "k", nil), ErrNilFn)
}

func TestRedis_MutualExclusion(t *testing.T) {
	locker, _ := newTestRedis(t)
	assertMutualExclusion(t, locker)
}

func TestRedis_ReleasesKey(t *testing.T) {
	locker, mr := newTestRedis(t)
	key := GroupBalancesKey("g2")

	err := locker.WithLock(context.Background(), key, func(context.Context) error {
		assert.True(t, mr.Exists(DefaultOptions().Prefix+key))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(DefaultOptions().Prefix+key))
}

func TestRedis_AcquireFailsWhenHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	opts := DefaultOptions()
	opts.Tries = 1
	locker, err := NewRedis(client, opts)
	require.NoError(t, err)

	require.NoError(t, mr.Set(opts.Prefix+"busy", "someone-else"))
	err = locker.WithLock(context.Background(), "busy", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRedis_LogsToConfiguredLogger(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredislib.NewClient(&goredislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Tries = 1
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	locker, err := NewRedis(client, opts)
	require.NoError(t, err)

	require.NoError(t, locker.WithLock(context.Background(), "free", func(context.Context) error { return nil }))
	assert.Contains(t, buf.String(), "lock acquired")
	assert.Contains(t, buf.String(), "lock_key="+opts.Prefix+"free")

	require.NoError(t, mr.Set(opts.Prefix+"busy", "someone-else"))
	require.Error(t, locker.WithLock(context.Background(), "busy", func(context.Context) error { return nil }))
	assert.Contains(t, buf.String(), "failed to acquire lock")
}

func TestNewRedis_Validation(t *testing.T) {
	_, err := NewRedis(nil, DefaultOptions())
	assert.Error(t, err)

	client := goredislib.NewClient(&goredislib.Options{Addr: "localhost:0"})
	defer client.Close()

	opts := DefaultOptions()
	opts.Tries = 0
	_, err = NewRedis(client, opts)
	assert.Error(t, err)
}
