// Package ringbuf implements the userspace side of a kernel buffer-select
// ring: a page-aligned, anonymously mapped region shared with the kernel
// that advertises a pool of fixed-size buffers for buffer-select reads.
//
// The wire layout mirrors io_uring's io_uring_buf_ring: ring_entries 16-byte
// slots of {addr, len, bid, resv}, where entry 0 doubles as the header and
// its last two bytes are the tail counter, exactly as the kernel ABI does,
// so registering this region with the kernel needs no translation step.
package ringbuf

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrInvalidInput is returned for zero-sized or non-power-of-two construction
// arguments. The root package's runtime construction wraps this into the
// public *ringio.Error with Kind KindInvalidInput.
var ErrInvalidInput = errors.New("ringbuf: invalid input")

const (
	maxRingEntries = 1 << 15
	entrySize      = 16 // sizeof(struct io_uring_buf)
)

// entry mirrors struct io_uring_buf. resv is never written: entry 0 doubles
// as the ring header and its resv bytes are the shared tail, exactly as the
// kernel ABI aliases them.
type entry struct {
	addr uint64
	len  uint32
	bid  uint16
	resv uint16
}

// Config parameterizes a Ring.
type Config struct {
	BufGroupID  uint16
	RingEntries int // coerced up to the next power of two; above 2^15 is rejected
	BufCount    int
	BufLen      uint32
}

// Ring is the userspace half of a kernel-selected buffer pool: the shared
// entry ring plus the backing buffers it advertises.
type Ring struct {
	bgid    uint16
	region  []byte // mmap'd, holds the header + entry slots
	entries uint16 // power-of-two slot count
	mask    uint16
	bufs    [][]byte
	bufLen  uint32

	// mu serializes recyclers: holders release from user goroutines and
	// the reaper's ignore hooks concurrently.
	mu   sync.Mutex
	tail uint16 // local monotonic counter; only &mask when indexing a slot
}

// New allocates the shared region and the backing buffers, but does not
// publish anything to the kernel; that happens once the driver registers
// the region's base pointer via the ring-buffer-registration syscall.
func New(cfg Config) (*Ring, error) {
	if cfg.BufCount <= 0 || cfg.BufLen == 0 || cfg.RingEntries <= 0 {
		return nil, fmt.Errorf("%w: buf_cnt, buf_len and ring_entries must be positive", ErrInvalidInput)
	}

	entries := nextPowerOfTwo(cfg.RingEntries)
	if entries > maxRingEntries {
		return nil, fmt.Errorf("%w: ring_entries %d exceeds max %d", ErrInvalidInput, cfg.RingEntries, maxRingEntries)
	}
	if cfg.BufCount > entries {
		return nil, fmt.Errorf("%w: buf_cnt %d exceeds ring_entries %d", ErrInvalidInput, cfg.BufCount, entries)
	}

	size := entries * entrySize
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("ringbuf: mmap region: %w", err)
	}
	// Buffer-ring memory must not be inherited across fork: a forked child
	// holding a second mapping of the same pages would race the kernel's
	// and the parent's view of the tail.
	_ = unix.Madvise(region, unix.MADV_DONTFORK)

	bufs := make([][]byte, cfg.BufCount)
	for i := range bufs {
		bufs[i] = make([]byte, cfg.BufLen)
	}

	r := &Ring{
		bgid:    cfg.BufGroupID,
		region:  region,
		entries: uint16(entries),
		mask:    uint16(entries - 1),
		bufs:    bufs,
		bufLen:  cfg.BufLen,
	}

	for bid := range bufs {
		r.push(uint16(bid))
	}
	r.publish()

	return r, nil
}

// BufGroupID returns the buffer-group id the kernel should register this
// ring under.
func (r *Ring) BufGroupID() uint16 { return r.bgid }

// RingEntries returns the coerced power-of-two slot count.
func (r *Ring) RingEntries() uint16 { return r.entries }

// BasePointer returns the address of the mapped region, for passing to the
// kernel's buffer-ring registration call.
func (r *Ring) BasePointer() unsafe.Pointer { return unsafe.Pointer(&r.region[0]) }

// Buffer returns the backing storage for bid. Valid for the Ring's lifetime.
func (r *Ring) Buffer(bid uint16) []byte { return r.bufs[bid] }

// Recycle returns bid to the pool and republishes the tail. Called from a
// Provided holder's release path once its data has been consumed.
func (r *Ring) Recycle(bid uint16) {
	r.mu.Lock()
	r.push(bid)
	r.publish()
	r.mu.Unlock()
}

// push writes one ring slot and advances the local tail counter without
// publishing. Internal: New calls this buf_cnt times before one publish.
// Callers hold r.mu (or are still inside New).
func (r *Ring) push(bid uint16) {
	slot := r.slot(r.tail & r.mask)
	slot.addr = uint64(uintptr(unsafe.Pointer(&r.bufs[bid][0])))
	slot.len = r.bufLen
	slot.bid = bid
	r.tail++
}

// publish stores the local tail into the shared header slot with release
// ordering, so the kernel never observes entry writes before the tail that
// exposes them. The mask only applies to slot indexing; the tail itself
// must increase monotonically so the kernel can tell empty from full.
//
// The tail is a u16 at offset 14, below Go's smallest atomic width, so the
// store goes through the aligned u32 at offset 12. Its low half is entry
// 0's bid (the header and slot 0 alias in the ABI), which must be carried
// along unchanged; only this ring's single publisher at a time writes
// either half, so the plain read of the low half is safe.
func (r *Ring) publish() {
	low := uint32(*(*uint16)(unsafe.Add(unsafe.Pointer(&r.region[0]), 12)))
	atomic.StoreUint32(r.tailWord(), uint32(r.tail)<<16|low)
}

// slot returns the entry at raw index i (already masked by the caller).
func (r *Ring) slot(i uint16) *entry {
	base := unsafe.Pointer(&r.region[0])
	return (*entry)(unsafe.Add(base, uintptr(i)*entrySize))
}

// tailPtr returns the header's tail field: the last two bytes of entry 0,
// matching the kernel's io_uring_buf_ring union layout.
func (r *Ring) tailPtr() *uint16 {
	base := unsafe.Pointer(&r.region[0])
	return (*uint16)(unsafe.Add(base, 14))
}

// tailWord returns the aligned u32 spanning the reserved field and the
// tail, for the atomic publish.
func (r *Ring) tailWord() *uint32 {
	base := unsafe.Pointer(&r.region[0])
	return (*uint32)(unsafe.Add(base, 12))
}

// Close unmaps the region. Buffers are ordinary Go memory and need no
// explicit release.
func (r *Ring) Close() error {
	if r.region == nil {
		return nil
	}
	err := unix.Munmap(r.region)
	r.region = nil
	return err
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
