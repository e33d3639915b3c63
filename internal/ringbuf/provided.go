package ringbuf

// Provided is one kernel-selected buffer on loan to user code. It is created
// by Ring.Take when a buffer-select CQE is resolved, and returns its bid to
// the pool on Release. The zero value is the null holder: it owns no buffer
// and Release on it is a no-op, which is what a zero-length receive resolves
// to.
type Provided struct {
	ring *Ring
	bid  uint16
	n    int
}

// Take loans out bid with n valid bytes. The caller must Release the holder
// once the bytes have been consumed; until then the kernel will not hand the
// buffer out again.
func (r *Ring) Take(bid uint16, n int) *Provided {
	return &Provided{ring: r, bid: bid, n: n}
}

// Bytes returns the valid prefix of the loaned buffer. Nil for the null
// holder. The slice aliases pool memory and must not be retained past
// Release.
func (p *Provided) Bytes() []byte {
	if p.ring == nil {
		return nil
	}
	return p.ring.Buffer(p.bid)[:p.n]
}

// Len returns the number of valid bytes.
func (p *Provided) Len() int { return p.n }

// BufferID returns the pool id of the loaned buffer.
func (p *Provided) BufferID() uint16 { return p.bid }

// Release returns the buffer to the pool and republishes the ring tail.
// Idempotent: a second Release (or a Release on the null holder) does
// nothing, so a bid is never pushed twice for one loan.
func (p *Provided) Release() {
	if p.ring == nil {
		return
	}
	ring := p.ring
	p.ring = nil
	ring.Recycle(p.bid)
}
