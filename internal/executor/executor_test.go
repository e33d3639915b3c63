package executor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRunsInFIFOOrder(t *testing.T) {
	e := New()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		e.Schedule(func() { got = append(got, i) })
	}

	assert.True(t, e.Tick())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.False(t, e.Tick(), "drained queue must report no progress")
}

func TestTickBoundsBatchSize(t *testing.T) {
	e := New()
	var runs int
	for i := 0; i < tickBatch+10; i++ {
		e.Schedule(func() { runs++ })
	}

	e.Tick()
	assert.Equal(t, tickBatch, runs, "one tick must not exceed its batch")
	e.Tick()
	assert.Equal(t, tickBatch+10, runs)
}

func TestBlockOnServicesScheduledWork(t *testing.T) {
	e := New()
	var ran atomic.Bool

	err := e.BlockOn(func() error {
		e.Schedule(func() { ran.Store(true) })
		// Give the parked loop a chance to wake and tick.
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran.Load())
}

func TestBlockOnReturnsFnError(t *testing.T) {
	e := New()
	want := errors.New("boom")
	err := e.BlockOn(func() error { return want })
	assert.ErrorIs(t, err, want)
}

func TestGoWaitPropagatesFirstError(t *testing.T) {
	e := New()
	want := errors.New("worker failed")

	e.Go(context.Background(), func(ctx context.Context) error { return nil })
	e.Go(context.Background(), func(ctx context.Context) error { return want })
	e.Go(context.Background(), func(ctx context.Context) error {
		<-ctx.Done() // cancelled once the sibling fails
		return nil
	})

	assert.ErrorIs(t, e.Wait(), want)
}

func TestWaitWithoutGoIsNil(t *testing.T) {
	assert.NoError(t, New().Wait())
}
