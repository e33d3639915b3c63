package ringio

import (
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/coreglyph/ringio/internal/driver"
	"github.com/coreglyph/ringio/internal/logging"
)

// FakeRing is an in-memory stand-in for the kernel ring, for tests that
// exercise runtime behavior on machines (or CI runners) without io_uring.
// SQEs are recorded at flush; completions are injected with Complete or by
// an onSubmit hook. Timeout operations complete by themselves after their
// duration, so the timer facade works unmodified against a fake.
type FakeRing struct {
	mu        sync.Mutex
	pending   []*driver.SQE
	submitted []driver.SQE

	completions chan driver.Result
	closed      chan struct{}
	closeOnce   sync.Once

	feat driver.Features

	// onSubmit, when set, observes every flushed SQE. Tests use it to
	// script completions for specific opcodes.
	onSubmit func(driver.SQE)

	// autoTimeout drives OpTimeout SQEs to an ETIME completion after their
	// timespec elapses.
	autoTimeout bool
}

// NewFakeRing returns a fake with all features present and automatic
// timeout completion enabled.
func NewFakeRing() *FakeRing {
	return &FakeRing{
		completions: make(chan driver.Result, 256),
		closed:      make(chan struct{}),
		feat:        driver.Features{FastPoll: true, BufferSelect: true, MultiShot: true},
		autoTimeout: true,
	}
}

// NewFakeRuntime builds a Runtime over a FakeRing, skipping the kernel
// entirely.
func NewFakeRuntime(opts Options) (*Runtime, *FakeRing, error) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}
	ring := NewFakeRing()
	rt, err := newRuntime(opts, logging.Default(), ring)
	if err != nil {
		return nil, nil, err
	}
	return rt, ring, nil
}

// Complete injects one completion.
func (f *FakeRing) Complete(userData uint64, res int32, flags uint32) {
	select {
	case f.completions <- driver.Result{UserData: userData, Res: res, Flags: flags}:
	case <-f.closed:
	}
}

func (f *FakeRing) GetSQE() *driver.SQE {
	f.mu.Lock()
	defer f.mu.Unlock()
	sqe := &driver.SQE{}
	f.pending = append(f.pending, sqe)
	return sqe
}

func (f *FakeRing) Flush() (uint, error) {
	f.mu.Lock()
	flushed := make([]driver.SQE, 0, len(f.pending))
	for _, sqe := range f.pending {
		flushed = append(flushed, *sqe)
	}
	f.pending = f.pending[:0]
	f.submitted = append(f.submitted, flushed...)
	hook := f.onSubmit
	f.mu.Unlock()

	for _, sqe := range flushed {
		if f.autoTimeout && sqe.Opcode == driver.OpTimeout && sqe.Addr != 0 {
			go f.fireTimeout(sqe)
			continue
		}
		if hook != nil {
			hook(sqe)
		}
	}
	return uint(len(flushed)), nil
}

func (f *FakeRing) fireTimeout(sqe driver.SQE) {
	ts := *(*unix.Timespec)(unsafe.Pointer(uintptr(sqe.Addr))) //nolint:govet
	d := time.Duration(ts.Nano())
	select {
	case <-time.After(d):
		f.Complete(sqe.UserData, -int32(syscall.ETIME), 0)
	case <-f.closed:
	}
}

func (f *FakeRing) WaitCQEs(fn func(driver.Result)) error {
	select {
	case res := <-f.completions:
		fn(res)
	case <-f.closed:
		return nil
	}
	for {
		select {
		case res := <-f.completions:
			fn(res)
		default:
			return nil
		}
	}
}

func (f *FakeRing) RegisterBufferRing(bgid uint16, base uintptr, entries uint16) error {
	return nil
}

func (f *FakeRing) Features() driver.Features { return f.feat }

func (f *FakeRing) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

// submittedOps returns a snapshot of every flushed SQE, for assertions.
func (f *FakeRing) submittedOps() []driver.SQE {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]driver.SQE, len(f.submitted))
	copy(out, f.submitted)
	return out
}

// setOnSubmit installs the per-SQE scripting hook.
func (f *FakeRing) setOnSubmit(hook func(driver.SQE)) {
	f.mu.Lock()
	f.onSubmit = hook
	f.mu.Unlock()
}
