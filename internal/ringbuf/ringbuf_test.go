package ringbuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCoercesRingEntriesToPowerOfTwo(t *testing.T) {
	r, err := New(Config{BufGroupID: 1, RingEntries: 5, BufCount: 4, BufLen: 64})
	require.NoError(t, err)
	defer r.Close()

	assert.EqualValues(t, 8, r.RingEntries())
}

func TestNewRejectsZeroArguments(t *testing.T) {
	_, err := New(Config{BufGroupID: 1, RingEntries: 0, BufCount: 1, BufLen: 64})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(Config{BufGroupID: 1, RingEntries: 1, BufCount: 0, BufLen: 64})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = New(Config{BufGroupID: 1, RingEntries: 1, BufCount: 1, BufLen: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewRejectsRingEntriesAboveMax(t *testing.T) {
	_, err := New(Config{BufGroupID: 1, RingEntries: maxRingEntries + 1, BufCount: 1, BufLen: 64})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSingleEntrySingleBufferIsLegal(t *testing.T) {
	// Property 7 (boundary): a ring of exactly one entry and one buffer
	// supports read-holder-drop-read without error.
	r, err := New(Config{BufGroupID: 7, RingEntries: 1, BufCount: 1, BufLen: 32})
	require.NoError(t, err)
	defer r.Close()

	buf := r.Buffer(0)
	require.Len(t, buf, 32)

	r.Recycle(0)
	r.Recycle(0)
}

func TestRecyclePublishesMonotonicTail(t *testing.T) {
	// Property 2: after a holder recycles bid b, the tail (and thus the
	// entry for b) is visible before any subsequent read could reselect b.
	r, err := New(Config{BufGroupID: 2, RingEntries: 4, BufCount: 2, BufLen: 16})
	require.NoError(t, err)
	defer r.Close()

	before := *r.tailPtr()
	r.Recycle(0)
	after := *r.tailPtr()

	assert.Equal(t, before+1, after)
}
