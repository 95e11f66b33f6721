package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(2, time.Minute)

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))
	assert.Equal(t, 2, c.Len())

	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok, "oldest entry should be evicted")

	v, ok, _ := c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, []byte("3"), v)

	require.NoError(t, c.Delete(ctx, "c"))
	_, ok, _ = c.Get(ctx, "c")
	assert.False(t, ok)
}

func TestLRU_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewLRU(10, 10*time.Millisecond)
	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	time.Sleep(50 * time.Millisecond)
	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("down")
}
func (failingCache) Set(context.Context, string, []byte, time.Duration) error { return errors.New("down") }
func (failingCache) Delete(context.Context, string) error                     { return errors.New("down") }
func (failingCache) Close() error                                             { return nil }

func TestTiered_PromotesAndDegrades(t *testing.T) {
	ctx := context.Background()
	l1, l2 := NewLRU(10, 0), NewLRU(10, 0)
	tc := NewTiered(l1, l2, nil)

	require.NoError(t, l2.Set(ctx, "k", []byte("v"), 0))
	v, ok, err := tc.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	_, ok, _ = l1.Get(ctx, "k")
	assert.True(t, ok, "shared hit should be promoted")

	broken := NewTiered(NewLRU(10, 0), failingCache{}, nil)
	require.NoError(t, broken.Set(ctx, "x", []byte("1"), 0))
	v, ok, err = broken.Get(ctx, "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	_, ok, err = broken.Get(ctx, "missing")
	assert.NoError(t, err)
	assert.False(t, ok)
}

type point struct {
	X, Y int
}

func TestMemo_CachesAndCollapses(t *testing.T) {
	ctx := context.Background()
	m := NewMemo[point](NewLRU(10, 0), 0, nil)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(context.Context) (point, error) {
		calls.Add(1)
		<-release
		return point{1, 2}, nil
	}

	var wg sync.WaitGroup
	results := make([]point, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := m.Do(ctx, "k", fn)
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, p := range results {
		assert.Equal(t, point{1, 2}, p)
	}
	assert.LessOrEqual(t, calls.Load(), int32(2))

	before := calls.Load()
	p, err := m.Do(ctx, "k", func(context.Context) (point, error) {
		calls.Add(1)
		return point{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, point{1, 2}, p)
	assert.Equal(t, before, calls.Load(), "cached value should be served")
}

func TestMemo_ErrorsNotCached(t *testing.T) {
	ctx := context.Background()
	m := NewMemo[int](NewLRU(10, 0), 0, nil)

	_, err := m.Do(ctx, "k", func(context.Context) (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)

	v, err := m.Do(ctx, "k", func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	m.Forget(ctx, "k")
	v, _ = m.Do(ctx, "k", func(context.Context) (int, error) { return 8, nil })
	assert.Equal(t, 8, v)
}

func TestMemo_DoIfSkipsRejectedValues(t *testing.T) {
	ctx := context.Background()
	m := NewMemo[int](NewLRU(10, 0), 0, nil)
	positive := func(v int) bool { return v > 0 }

	v, err := m.DoIf(ctx, "k", func(context.Context) (int, error) { return -1, nil }, positive)
	require.NoError(t, err)
	assert.Equal(t, -1, v)

	v, _ = m.DoIf(ctx, "k", func(context.Context) (int, error) { return 3, nil }, positive)
	assert.Equal(t, 3, v)

	v, _ = m.DoIf(ctx, "k", func(context.Context) (int, error) { return 9, nil }, positive)
	assert.Equal(t, 3, v, "kept value should be served")
}

func TestMemo_SharedCallSurvivesFirstCallerCancel(t *testing.T) {
	m := NewMemo[int](NewLRU(10, 0), 0, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	fn := func(ctx context.Context) (int, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		return 42, nil
	}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := m.Do(ctxA, "k", fn)
		errA <- err
	}()
	<-started

	valB := make(chan int, 1)
	go func() {
		v, err := m.Do(context.Background(), "k", func(context.Context) (int, error) { return -1, nil })
		assert.NoError(t, err)
		valB <- v
	}()

	cancelA()
	select {
	case err := <-errA:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting on the shared call")
	}

	close(release)
	select {
	case v := <-valB:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("second caller never got a value")
	}
}

func TestMemo_FailingCacheStillComputes(t *testing.T) {
	m := NewMemo[string](failingCache{}, time.Minute, nil)
	v, err := m.Do(context.Background(), "k", func(context.Context) (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestOpen(t *testing.T) {
	c, err := Open(context.Background(), "", time.Minute, nil)
	require.NoError(t, err)
	_, isLRU := c.(*LRU)
	assert.True(t, isLRU)

	_, err = Open(context.Background(), "memcached://x", time.Minute, nil)
	assert.Error(t, err)

	_, err = ParseURL("")
	assert.Error(t, err)
}

func TestRedis_Live(t *testing.T) {
	url := os.Getenv("TIERLOOP_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TIERLOOP_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	r, err := NewRedis(ctx, url, "tierloop-test:")
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), v)
	require.NoError(t, r.Delete(ctx, "k"))
	_, ok, err = r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
