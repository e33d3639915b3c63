package driver

import (
	"errors"

	"github.com/coreglyph/ringio/internal/ringbuf"
)

// ErrNoBufferSelected is returned when a buffer-select completion arrives
// without a buffer id in its flags. The kernel only omits one on an error
// or zero-length result, so seeing it with data is a protocol violation.
var ErrNoBufferSelected = errors.New("driver: completion carries no buffer id")

// RecvPayload is a single-shot buffer-select receive. It pins no memory of
// its own: the kernel picks the destination out of the registered buffer
// ring and reports the chosen bid in the CQE.
type RecvPayload struct {
	ring *ringbuf.Ring
}

func NewRecvPayload(ring *ringbuf.Ring) *RecvPayload {
	return &RecvPayload{ring: ring}
}

func (p *RecvPayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpRecv
		s.Fd = fd
		s.Len = 0 // buffer-select: length comes from the selected buffer
		s.SQEFlags = SQEFBufferSelect
		s.BufGroup = p.ring.BufGroupID()
	}
}

// Complete resolves the CQE into a loaned buffer holder. A zero-length
// result (peer closed) resolves to the null holder; an error that still
// selected a buffer recycles it before propagating.
func (p *RecvPayload) Complete(res Result) (*ringbuf.Provided, error) {
	return resolveProvided(p.ring, res)
}

// OnIgnoredCQE returns a selected buffer to the pool when the receive
// completed after its handle was dropped, so abandoned reads don't steal
// pool capacity.
func (p *RecvPayload) OnIgnoredCQE(res Result) {
	if bid, ok := res.BufferID(); ok {
		p.ring.Recycle(bid)
	}
}

// ReadPayload is the file-oriented sibling of RecvPayload: same
// buffer-select contract, read opcode, so it also works on non-socket fds.
type ReadPayload struct {
	ring *ringbuf.Ring
}

func NewReadPayload(ring *ringbuf.Ring) *ReadPayload {
	return &ReadPayload{ring: ring}
}

func (p *ReadPayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpRead
		s.Fd = fd
		s.SQEFlags = SQEFBufferSelect
		s.BufGroup = p.ring.BufGroupID()
	}
}

func (p *ReadPayload) Complete(res Result) (*ringbuf.Provided, error) {
	return resolveProvided(p.ring, res)
}

func (p *ReadPayload) OnIgnoredCQE(res Result) {
	if bid, ok := res.BufferID(); ok {
		p.ring.Recycle(bid)
	}
}

// RecvMultiPayload is the multishot variant: one SQE, a stream of
// buffer-select completions until the terminal CQE.
type RecvMultiPayload struct {
	ring *ringbuf.Ring
}

func NewRecvMultiPayload(ring *ringbuf.Ring) *RecvMultiPayload {
	return &RecvMultiPayload{ring: ring}
}

func (p *RecvMultiPayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpRecvMulti
		s.Fd = fd
		s.SQEFlags = SQEFBufferSelect
		s.BufGroup = p.ring.BufGroupID()
	}
}

func (p *RecvMultiPayload) Map(res Result) (*ringbuf.Provided, error) {
	return resolveProvided(p.ring, res)
}

func (p *RecvMultiPayload) OnIgnoredCQE(res Result) {
	if bid, ok := res.BufferID(); ok {
		p.ring.Recycle(bid)
	}
}

func resolveProvided(ring *ringbuf.Ring, res Result) (*ringbuf.Provided, error) {
	if err := res.Err(); err != nil {
		if bid, ok := res.BufferID(); ok {
			ring.Recycle(bid)
		}
		return nil, err
	}
	bid, ok := res.BufferID()
	if !ok {
		if res.Res == 0 {
			return &ringbuf.Provided{}, nil
		}
		return nil, ErrNoBufferSelected
	}
	return ring.Take(bid, int(res.Res)), nil
}
