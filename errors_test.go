package ringio

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	err := newInvalidInput("buffer ring", "ring_entries must be a power of two")
	assert.Equal(t, "ringio: buffer ring: ring_entries must be a power of two", err.Error())
}

func TestKernelErrorPreservesErrno(t *testing.T) {
	err := newKernelError("connect", syscall.ECONNREFUSED)
	require.True(t, IsErrno(err, syscall.ECONNREFUSED))
	assert.True(t, IsKind(err, KindKernel))
}

func TestIsKindMatchesAcrossWrap(t *testing.T) {
	inner := newAddressResolutionError("dial", syscall.ECONNREFUSED)
	outer := fmt.Errorf("connect to backend: %w", inner)
	assert.True(t, IsKind(outer, KindAddressResolution))
	assert.False(t, IsKind(outer, KindTimedOut))
}

func TestErrorIsComparesByKindOnly(t *testing.T) {
	a := newKernelError("read", syscall.EIO)
	b := newKernelError("write", syscall.EAGAIN)
	assert.True(t, a.Is(b))
}

func TestLiftErrorWrapsRawErrno(t *testing.T) {
	err := liftError("recv", syscall.ECONNRESET)
	assert.True(t, IsKind(err, KindKernel))
	assert.True(t, IsErrno(err, syscall.ECONNRESET))
}

func TestLiftErrorPassesStructuredErrorsThrough(t *testing.T) {
	orig := newInvalidInput("options", "bad")
	assert.Same(t, orig, liftError("ignored", orig).(*Error))

	assert.Nil(t, liftError("op", nil))
}
