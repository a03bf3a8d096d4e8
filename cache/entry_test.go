package cache_test

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/on-the-ground/cellpool/cache"
)

var goExecutor = cache.ExecutorFunc(func(task func()) error {
	go task()
	return nil
})

func TestWrap_IsImmediatelyDone(t *testing.T) {
	before := time.Now()
	e := cache.Wrap("tile-0")
	after := time.Now()

	assert.True(t, e.IsDone())
	assert.Equal(t, cache.Completed, e.State())

	v, err := e.Get()
	require.NoError(t, err)
	assert.Equal(t, "tile-0", v)

	assert.False(t, e.Timestamp().Before(before))
	assert.False(t, e.Timestamp().After(after))

	select {
	case <-e.Done():
	default:
		t.Fatal("done channel of a wrapped entry should be closed")
	}
}

func TestSubmit_ComputesOnceForConcurrentCallers(t *testing.T) {
	const callers = 32
	var calls atomic.Int64
	release := make(chan struct{})

	e := cache.Submit(func() (int64, error) {
		<-release
		return calls.Add(1), nil
	}, goExecutor)

	results := make([]int64, callers)
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		g.Go(func() error {
			v, err := e.Get()
			results[i] = v
			return err
		})
	}

	assert.False(t, e.IsDone())
	close(release)
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(1), calls.Load())
	for i, v := range results {
		assert.Equal(t, int64(1), v, "caller %d", i)
	}
	assert.True(t, e.IsDone())
}

func TestSubmit_FailurePropagatesToEveryCaller(t *testing.T) {
	cause := errors.New("noise octave diverged")
	e := cache.Submit(func() (float64, error) {
		return 0, cause
	}, goExecutor)

	errs := make([]error, 2)
	var g errgroup.Group
	for i := range errs {
		g.Go(func() error {
			_, errs[i] = e.Get()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, err := range errs {
		assert.ErrorIs(t, err, cache.ErrComputationFailed)
		assert.ErrorIs(t, err, cause)
	}
	assert.Equal(t, errs[0], errs[1], "every caller sees the same error")
	assert.True(t, e.IsDone())
	assert.Equal(t, cache.Failed, e.State())

	_, again := e.Get()
	assert.Equal(t, errs[0], again, "repeated calls keep failing the same way")
}

func TestSubmit_PanicFailsTheEntry(t *testing.T) {
	e := cache.Submit(func() (int, error) {
		panic("index out of tile")
	}, goExecutor)

	_, err := e.Get()
	require.ErrorIs(t, err, cache.ErrComputationFailed)

	var pe *cache.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "index out of tile", pe.Value)
}

func TestSubmit_PanicWithErrorKeepsCause(t *testing.T) {
	cause := errors.New("bad seed")
	e := cache.Submit(func() (int, error) {
		panic(cause)
	}, goExecutor)

	_, err := e.Get()
	assert.ErrorIs(t, err, cache.ErrComputationFailed)
	assert.ErrorIs(t, err, cause)
}

func TestSubmit_RefusedSubmissionFails(t *testing.T) {
	refused := errors.New("executor closed")
	ran := false
	e := cache.Submit(func() (int, error) {
		ran = true
		return 1, nil
	}, cache.ExecutorFunc(func(func()) error { return refused }))

	assert.True(t, e.IsDone())
	_, err := e.Get()
	assert.ErrorIs(t, err, cache.ErrComputationFailed)
	assert.ErrorIs(t, err, refused)
	assert.False(t, ran)
}

func TestSubmit_SynchronousExecutor(t *testing.T) {
	inline := cache.ExecutorFunc(func(task func()) error {
		task()
		return nil
	})
	e := cache.Submit(func() (string, error) { return "inline", nil }, inline)

	assert.True(t, e.IsDone())
	v, err := e.Get()
	require.NoError(t, err)
	assert.Equal(t, "inline", v)
}

func TestWait_GivesUpWithoutChangingState(t *testing.T) {
	release := make(chan struct{})
	e := cache.Submit(func() (int, error) {
		<-release
		return 7, nil
	}, goExecutor)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, cache.Pending, e.State())

	close(release)
	v, err := e.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFromChannel(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		ch := make(chan cache.Result[int], 1)
		e := cache.FromChannel(ch)
		ch <- cache.Result[int]{Value: 3}

		v, err := e.Get()
		require.NoError(t, err)
		assert.Equal(t, 3, v)
	})

	t.Run("error", func(t *testing.T) {
		cause := errors.New("worker lost")
		ch := make(chan cache.Result[int], 1)
		ch <- cache.Result[int]{Err: cause}

		_, err := cache.FromChannel(ch).Get()
		assert.ErrorIs(t, err, cache.ErrComputationFailed)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("closed without result", func(t *testing.T) {
		ch := make(chan cache.Result[int])
		close(ch)

		_, err := cache.FromChannel(ch).Get()
		assert.ErrorIs(t, err, cache.ErrNoResult)
	})
}

func TestEntry_Expired(t *testing.T) {
	e := cache.Wrap(1)
	created := e.Timestamp()

	assert.False(t, e.Expired(created.Add(time.Second), 0), "non-positive ttl never expires")
	assert.False(t, e.Expired(created.Add(time.Second), time.Minute))
	assert.True(t, e.Expired(created.Add(2*time.Minute), time.Minute))
	assert.Equal(t, 2*time.Minute, e.Age(created.Add(2*time.Minute)).Duration())
	assert.Equal(t, created, e.Timestamp(), "timestamp is immutable")
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "pending", cache.Pending.String())
	assert.Equal(t, "completed", cache.Completed.String())
	assert.Equal(t, "failed", cache.Failed.String())
}

func TestSubmit_GoexitFailsTheEntry(t *testing.T) {
	e := cache.Submit(func() (int, error) {
		runtime.Goexit()
		return 0, nil
	}, goExecutor)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := e.Wait(ctx)
	assert.ErrorIs(t, err, cache.ErrComputationFailed)
	assert.ErrorIs(t, err, cache.ErrAbandoned)
	assert.Equal(t, cache.Failed, e.State())
}
