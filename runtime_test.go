package ringio

import (
	"context"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreglyph/ringio/internal/driver"
	"github.com/coreglyph/ringio/internal/logging"
)

func TestNewRejectsInvalidOptions(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Options)
	}{
		{"zero entries", func(o *Options) { o.Entries = 0 }},
		{"zero buffer len", func(o *Options) { o.BufferLen = 0 }},
		{"zero buffer count", func(o *Options) { o.BufferCount = 0 }},
		{"count above ring", func(o *Options) { o.BufferCount = o.RingEntries + 1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			tc.mut(&opts)
			_, _, err := NewFakeRuntime(opts)
			assert.True(t, IsKind(err, KindInvalidInput), "got %v", err)
		})
	}
}

func TestNewRejectsMissingKernelFeatures(t *testing.T) {
	ring := NewFakeRing()
	ring.feat.FastPoll = false
	_, err := newRuntime(DefaultOptions(), logging.Default(), ring)
	assert.True(t, IsKind(err, KindFeatureUnsupported), "got %v", err)

	ring = NewFakeRing()
	ring.feat.BufferSelect = false
	_, err = newRuntime(DefaultOptions(), logging.Default(), ring)
	assert.True(t, IsKind(err, KindFeatureUnsupported), "got %v", err)
}

func TestMapBufRingError(t *testing.T) {
	assert.ErrorIs(t, mapBufRingError(syscall.EEXIST), ErrBufferRingRegistered)
	assert.ErrorIs(t, mapBufRingError(syscall.EINVAL), ErrBufferRingUnsupported)
	assert.True(t, IsKind(mapBufRingError(syscall.ENOMEM), KindKernel))
}

func TestRunInstallsDriverScope(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)
	defer rt.Close()

	err = rt.Run(context.Background(), func(ctx context.Context) error {
		// Reaching the driver must not panic inside a Run callback.
		assert.NotNil(t, driver.FromContext(ctx))
		return nil
	})
	require.NoError(t, err)
}

func TestDriverScopePanicsOutsideRun(t *testing.T) {
	assert.Panics(t, func() {
		driver.FromContext(context.Background())
	})
}

func TestGoAndWaitPropagateTaskError(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)
	defer rt.Close()

	rt.Go(context.Background(), func(ctx context.Context) error {
		return newInvalidInput("test", "boom")
	})
	assert.True(t, IsKind(rt.Wait(), KindInvalidInput))
}

func TestCloseIsIdempotent(t *testing.T) {
	rt, _, err := NewFakeRuntime(DefaultOptions())
	require.NoError(t, err)

	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())
}
