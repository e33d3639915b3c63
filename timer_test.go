package ringio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayCompletesAfterDuration(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.Run(context.Background(), func(ctx context.Context) error {
		start := time.Now()
		if err := Delay(ctx, 50*time.Millisecond); err != nil {
			return err
		}
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
		assert.Less(t, elapsed, 2*time.Second)
		return nil
	})
	require.NoError(t, err)
}

func TestWithTimeoutReturnsTimedOut(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.Run(context.Background(), func(ctx context.Context) error {
		err := WithTimeout(ctx, 20*time.Millisecond, func(ctx context.Context) error {
			<-ctx.Done() // simulate an operation that never completes
			return ctx.Err()
		})
		assert.ErrorIs(t, err, ErrTimedOut)
		return nil
	})
	require.NoError(t, err)
}

func TestWithTimeoutFnWinsRace(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.Run(context.Background(), func(ctx context.Context) error {
		err := WithTimeout(ctx, time.Second, func(ctx context.Context) error {
			return nil
		})
		assert.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
}

func TestWithTimeoutPropagatesFnError(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.Run(context.Background(), func(ctx context.Context) error {
		err := WithTimeout(ctx, time.Second, func(ctx context.Context) error {
			return newInvalidInput("test", "inner failure")
		})
		assert.True(t, IsKind(err, KindInvalidInput))
		return nil
	})
	require.NoError(t, err)
}

func TestIntervalTicks(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.Run(context.Background(), func(ctx context.Context) error {
		iv := NewInterval(10 * time.Millisecond)
		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := iv.Tick(ctx); err != nil {
				return err
			}
		}
		assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
		return nil
	})
	require.NoError(t, err)
}

func TestEverySchedulesOnCooperativeQueue(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)
	defer rt.Close()

	// Scheduled callbacks run on the block-on loop's ticks, so the interval
	// must be driven from inside Run.
	ticks := 0
	err = rt.Run(context.Background(), func(ctx context.Context) error {
		rt.Every(ctx, 5*time.Millisecond, func() bool {
			ticks++
			return ticks < 3
		})
		return rt.Wait()
	})
	require.NoError(t, err)
	assert.Equal(t, 3, ticks)
}
