package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreglyph/ringio/internal/ringbuf"
)

// testMultiPayload yields the CQE's raw result per completion.
type testMultiPayload struct{}

func (testMultiPayload) Map(res Result) (int32, error) {
	if err := res.Err(); err != nil {
		return 0, err
	}
	return res.Res, nil
}

func TestMultishotYieldsEachCQEInOrder(t *testing.T) {
	// Property 4: k intermediate CQEs plus one terminal CQE surface as at
	// most k+1 items, the last one backed by the terminal CQE.
	d, ring := startDriver(t)

	h, err := SubmitMulti[int32](d, testMultiPayload{}, func(s *SQE) { s.Opcode = OpAcceptMulti })
	require.NoError(t, err)
	key := ring.lastSubmitted(t).UserData

	ring.Complete(Result{UserData: key, Res: 10, Flags: CQEFMore})
	ring.Complete(Result{UserData: key, Res: 11, Flags: CQEFMore})
	ring.Complete(Result{UserData: key, Res: 12}) // terminal

	ctx := context.Background()
	var got []int32
	for {
		item, ok, err := h.Next(ctx)
		if !ok {
			break
		}
		require.NoError(t, err)
		got = append(got, item)
	}
	assert.Equal(t, []int32{10, 11, 12}, got)
	assert.Equal(t, 0, d.slabLen())

	// The stream is over; further Next calls report it without blocking.
	_, ok, err := h.Next(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMultishotStateTracksIntermediateCQEs(t *testing.T) {
	d, ring := startDriver(t)

	h, err := SubmitMulti[int32](d, testMultiPayload{}, func(s *SQE) { s.Opcode = OpAcceptMulti })
	require.NoError(t, err)
	key := ring.lastSubmitted(t).UserData

	ring.Complete(Result{UserData: key, Res: 1, Flags: CQEFMore})
	item, ok, err := h.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, item)

	// Still streaming: the slab slot must survive between yields.
	assert.Equal(t, 1, d.slabLen())

	ring.Complete(Result{UserData: key, Res: 2})
	item, ok, err = h.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 2, item)
	assert.Equal(t, 0, d.slabLen())
}

func TestMultishotCancelMidStreamIgnoresRest(t *testing.T) {
	d, ring := startDriver(t)

	h, err := SubmitMulti[int32](d, testMultiPayload{}, func(s *SQE) { s.Opcode = OpRecvMulti })
	require.NoError(t, err)
	key := ring.lastSubmitted(t).UserData

	ring.Complete(Result{UserData: key, Res: 1, Flags: CQEFMore})
	_, ok, err := h.Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	h.Cancel()
	assert.Equal(t, 1, d.slabLen())

	// Late completions for the cancelled stream are absorbed; the terminal
	// one releases the slot.
	ring.Complete(Result{UserData: key, Res: 2, Flags: CQEFMore})
	ring.Complete(Result{UserData: key, Res: -125})
	waitFor(t, func() bool { return d.slabLen() == 0 })

	_, ok, err = h.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecvMultiRecyclesBufferOnCancelledStream(t *testing.T) {
	d, ring := startDriver(t)

	pool, err := ringbuf.New(ringbuf.Config{BufGroupID: 3, RingEntries: 4, BufCount: 4, BufLen: 64})
	require.NoError(t, err)
	defer pool.Close()

	h, err := RecvMulti(d, 7, pool)
	require.NoError(t, err)
	key := ring.lastSubmitted(t).UserData

	h.Cancel()
	before := poolTail(pool)

	// Data that arrives after cancellation selected buffer 2; the ignore
	// hook must hand it straight back rather than leak pool capacity.
	ring.Complete(Result{UserData: key, Res: 8, Flags: CQEFBuffer | CQEFMore | 2<<CQEBufferShift})
	ring.Complete(Result{UserData: key, Res: -125})
	waitFor(t, func() bool { return d.slabLen() == 0 })
	// The reaper runs the hook for the first CQE before it handles the
	// terminal one, so the recycle is visible once the slot is gone.
	assert.Equal(t, before+1, poolTail(pool))
}

func TestMultishotTerminalErrorPropagates(t *testing.T) {
	d, ring := startDriver(t)

	h, err := SubmitMulti[int32](d, testMultiPayload{}, func(s *SQE) { s.Opcode = OpAcceptMulti })
	require.NoError(t, err)
	key := ring.lastSubmitted(t).UserData

	ring.Complete(Result{UserData: key, Res: -104}) // ECONNRESET, terminal

	_, ok, err := h.Next(context.Background())
	assert.True(t, ok)
	assert.Error(t, err)
}
