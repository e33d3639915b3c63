package ringio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsCountSubmissionsAndCompletions(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.Run(context.Background(), func(ctx context.Context) error {
		for i := 0; i < 3; i++ {
			if err := Delay(ctx, time.Millisecond); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	stats := rt.Stats()
	assert.EqualValues(t, 3, stats.Submitted)
	assert.EqualValues(t, 3, stats.Completed)
	assert.Zero(t, stats.Cancelled)
}

func TestStatsCountCancellations(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.Run(context.Background(), func(ctx context.Context) error {
		// A receive nothing ever completes; the deadline cancels it.
		return WithTimeout(ctx, 5*time.Millisecond, func(ctx context.Context) error {
			s := newStream(3, "tcp")
			_, err := s.Read(ctx, make([]byte, 8))
			return err
		})
	})
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.EqualValues(t, 1, rt.Stats().Cancelled)
}
