package cache_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/on-the-ground/cellpool/cache"
	"github.com/on-the-ground/cellpool/log"
)

type tileKey struct{ x, z int }

func TestStore_GetOrSubmitCreatesOneEntryPerKey(t *testing.T) {
	s := cache.NewStore[tileKey, int](time.Minute)
	var submissions atomic.Int64

	const callers = 16
	entries := make([]*cache.Entry[int], callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i] = s.GetOrSubmit(tileKey{1, 2}, func() (int, error) {
				return int(submissions.Add(1)), nil
			}, goExecutor)
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Same(t, entries[0], entries[i])
	}
	v, err := entries[0].Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, int64(1), submissions.Load())
	assert.Equal(t, 1, s.Len())
}

func TestStore_GetOrWrapKeepsFirstValue(t *testing.T) {
	s := cache.NewStore[string, string](0)

	first := s.GetOrWrap("biome", "desert")
	second := s.GetOrWrap("biome", "tundra")

	assert.Same(t, first, second)
	v, _ := second.Get()
	assert.Equal(t, "desert", v)
}

func TestStore_LoadAndDelete(t *testing.T) {
	s := cache.NewStore[int, int](time.Minute)

	_, ok := s.Load(1)
	assert.False(t, ok)

	e := s.GetOrWrap(1, 10)
	got, ok := s.Load(1)
	require.True(t, ok)
	assert.Same(t, e, got)

	s.Delete(1)
	_, ok = s.Load(1)
	assert.False(t, ok)

	v, err := e.Get()
	require.NoError(t, err)
	assert.Equal(t, 10, v, "deleting does not affect holders")
}

func TestStore_SweepByTimestamp(t *testing.T) {
	s := cache.NewStore[int, int](time.Minute, cache.WithStoreLogger(log.NewTest()))

	old := s.GetOrWrap(1, 1)
	s.GetOrWrap(2, 2)

	assert.Equal(t, 0, s.Sweep(old.Timestamp().Add(30*time.Second)))
	assert.Equal(t, 2, s.Sweep(old.Timestamp().Add(2*time.Minute)))
	assert.Equal(t, 0, s.Len())
}

func TestStore_SweepRemovesFailedEntries(t *testing.T) {
	s := cache.NewStore[int, int](time.Second)
	e := s.GetOrSubmit(1, func() (int, error) { panic("boom") }, goExecutor)
	_, err := e.Get()
	require.Error(t, err)

	assert.Equal(t, 1, s.Sweep(e.Timestamp().Add(time.Hour)))
}

func TestStore_NonPositiveTTLNeverSweeps(t *testing.T) {
	s := cache.NewStore[int, int](0)
	e := s.GetOrWrap(1, 1)

	assert.Equal(t, 0, s.Sweep(e.Timestamp().Add(24*time.Hour)))
	assert.Equal(t, 1, s.Len())
}

func TestStore_HitsDoNotAllocate(t *testing.T) {
	s := cache.NewStore[tileKey, int](time.Minute)
	key := tileKey{3, 4}
	s.GetOrWrap(key, 1)

	compute := func() (int, error) { return 2, nil }
	var exec cache.Executor = goExecutor

	allocs := testing.AllocsPerRun(100, func() {
		s.GetOrWrap(key, 1)
		s.GetOrSubmit(key, compute, exec)
	})
	assert.Zero(t, allocs)
}
