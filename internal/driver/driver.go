package driver

import (
	"fmt"
	"sync"

	"github.com/coreglyph/ringio/internal/logging"
	"github.com/coreglyph/ringio/internal/ringbuf"
)

// Driver owns one kernel ring, its slab of in-flight operations, and the
// buffer-select rings registered against it. All submission and slab access
// goes through mu: a ring wants to be confined to the thread that created
// it, which Go has no equivalent of, so a mutex stands in for that
// thread-confinement.
type Driver struct {
	mu   sync.Mutex
	ring Ring

	slab    map[uint64]*opEntry
	nextKey uint64

	bufRings  map[uint16]*ringbuf.Ring
	ringOrder []*ringbuf.Ring

	log     *logging.Logger
	metrics Metrics

	stopOnce sync.Once
	stopped  chan struct{}
}

// New builds a Driver over the given Ring implementation. Callers normally
// get a Ring from NewKernelRing (kring_linux.go) or a fake from the root
// package's testing helpers.
func New(ring Ring, log *logging.Logger) *Driver {
	if log == nil {
		log = logging.Default()
	}
	return &Driver{
		ring:     ring,
		slab:     make(map[uint64]*opEntry),
		bufRings: make(map[uint16]*ringbuf.Ring),
		log:      log,
		stopped:  make(chan struct{}),
	}
}

// Features reports the driver's underlying kernel capabilities.
func (d *Driver) Features() Features { return d.ring.Features() }

// RegisterBufferRing makes buf available to buffer-select reads under its
// group id, and records it for BufferRing/BufferRings lookups. Buffer ids of
// cancelled reads are recycled by the payloads' ignore hooks, which hold
// their ring directly.
func (d *Driver) RegisterBufferRing(buf *ringbuf.Ring) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	base := uintptr(buf.BasePointer())
	if err := d.ring.RegisterBufferRing(buf.BufGroupID(), base, buf.RingEntries()); err != nil {
		return err
	}
	d.bufRings[buf.BufGroupID()] = buf
	d.ringOrder = append(d.ringOrder, buf)
	return nil
}

// BufferRings returns every registered buffer-select ring, registration
// order first. The runtime registers exactly one; the slice form exists so
// a process embedding several pools can still enumerate them.
func (d *Driver) BufferRings() []*ringbuf.Ring {
	d.mu.Lock()
	defer d.mu.Unlock()
	rings := make([]*ringbuf.Ring, 0, len(d.bufRings))
	for _, r := range d.ringOrder {
		rings = append(rings, r)
	}
	return rings
}

// BufferRing returns the buffer-select ring registered under bgid, if any.
func (d *Driver) BufferRing(bgid uint16) (*ringbuf.Ring, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.bufRings[bgid]
	return r, ok
}

// submit prepares one SQE via prep, assigning it a fresh slab key as its
// user_data, and flushes it to the kernel immediately. Serialized by d.mu;
// the public entry points are Submit/SubmitMulti in handle.go.
func (d *Driver) submit(prep func(*SQE), entry *opEntry) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sqe := d.ring.GetSQE()
	if sqe == nil {
		if _, err := d.ring.Flush(); err != nil {
			return 0, fmt.Errorf("driver: flush before retry: %w", err)
		}
		sqe = d.ring.GetSQE()
		if sqe == nil {
			return 0, fmt.Errorf("driver: submission queue full")
		}
	}

	key := d.nextKey
	d.nextKey++
	prep(sqe)
	sqe.UserData = key

	d.slab[key] = entry

	if _, err := d.ring.Flush(); err != nil {
		delete(d.slab, key)
		return 0, err
	}
	d.metrics.Submitted.Add(1)
	return key, nil
}

// release drops a completed operation's slab slot once its sole consumer has
// read the terminal result.
func (d *Driver) release(key uint64) {
	d.mu.Lock()
	delete(d.slab, key)
	d.mu.Unlock()
}

// cancel marks key Ignored and best-effort asks the kernel to cancel it. If
// the operation has already completed (its slab slot was removed, or it
// never existed), this is a no-op: there is nothing left to cancel and
// nobody left to notify.
func (d *Driver) cancel(key uint64, hook func(Result)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.slab[key]
	if !ok {
		return
	}
	// Already completed: the terminal CQE is sitting unread in the entry's
	// channel, so nothing kernel-side is left to cancel; just drop the slot.
	// The handle drains the channel through the ignore hook itself.
	if entry.state == stateCompleted {
		delete(d.slab, key)
		return
	}
	entry.state = stateIgnored
	entry.ignoreHook = hook
	d.metrics.Cancelled.Add(1)

	sqe := d.ring.GetSQE()
	if sqe == nil {
		d.ring.Flush() //nolint:errcheck
		sqe = d.ring.GetSQE()
	}
	if sqe != nil {
		*sqe = SQE{Opcode: OpAsyncCancel, Addr: key, UserData: ReservedCookie}
		d.ring.Flush() //nolint:errcheck
	}
}

// dispatch routes one reaped CQE to its slab entry. Called only from the
// single background reaper goroutine (see Run), so it does not itself need
// to hold d.mu across the channel send, but slab lookups and mutation do.
func (d *Driver) dispatch(res Result) {
	if res.UserData == ReservedCookie {
		return
	}
	if res.Res < 0 {
		d.metrics.KernelErrors.Add(1)
	}
	if res.HasMore() {
		d.metrics.MultishotYields.Add(1)
	} else {
		d.metrics.Completed.Add(1)
	}

	d.mu.Lock()
	entry, ok := d.slab[res.UserData]
	if !ok {
		d.mu.Unlock()
		return
	}

	switch entry.state {
	case stateSubmitted:
		if entry.multi != nil {
			if res.HasMore() {
				entry.state = stateCompletionList
			} else {
				delete(d.slab, res.UserData)
			}
			d.mu.Unlock()
			entry.multi <- res
		} else {
			entry.state = stateCompleted
			d.mu.Unlock()
			entry.ch <- res // buffered(1), never blocks
		}

	case stateCompletionList:
		if !res.HasMore() {
			delete(d.slab, res.UserData)
		}
		d.mu.Unlock()
		entry.multi <- res

	case stateIgnored:
		if !res.HasMore() {
			delete(d.slab, res.UserData)
		}
		hook := entry.ignoreHook
		d.mu.Unlock()
		d.metrics.IgnoredCQEs.Add(1)
		if hook != nil {
			hook(res)
		}

	case stateCompleted:
		// A terminal CQE for an entry already marked Completed would mean
		// the kernel double-delivered a single-shot operation's result.
		d.mu.Unlock()
		d.log.Warn("driver: duplicate terminal CQE", "user_data", res.UserData)
	}
}

// Run is the single background reaper loop: wait for CQEs, dispatch each to
// its slab entry, repeat until Close. It must run on exactly one goroutine
// for the whole lifetime of the Driver; any number of other goroutines may
// submit operations and block on their own Handle concurrently.
func (d *Driver) Run() error {
	for {
		select {
		case <-d.stopped:
			return nil
		default:
		}
		if err := d.ring.WaitCQEs(d.dispatch); err != nil {
			return err
		}
	}
}

// Close stops the reaper loop and releases the kernel ring.
func (d *Driver) Close() error {
	d.stopOnce.Do(func() { close(d.stopped) })
	return d.ring.Close()
}
