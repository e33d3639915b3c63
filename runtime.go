// Package ringio is an asynchronous I/O runtime over io_uring: a
// completion-driven driver, a provided-buffer pool the kernel selects reads
// into, and socket adapters (Stream, Packet, Listener) plus timers layered
// on top.
//
// Typical use:
//
//	rt, err := ringio.New(ringio.DefaultOptions())
//	if err != nil { ... }
//	defer rt.Close()
//	err = rt.Run(ctx, func(ctx context.Context) error {
//		ln, err := ringio.ListenTCP(ctx, "127.0.0.1:0")
//		...
//	})
//
// Every operation takes the context handed to the Run (or Go) callback; that
// context carries the driver, and calling an operation with a bare context
// panics, since there is no ring to submit to.
package ringio

import (
	"context"
	"sync"
	"syscall"

	"github.com/coreglyph/ringio/internal/driver"
	"github.com/coreglyph/ringio/internal/executor"
	"github.com/coreglyph/ringio/internal/logging"
	"github.com/coreglyph/ringio/internal/ringbuf"
)

// ErrBufferRingRegistered is returned when the kernel already has a buffer
// ring under the requested group id; a second runtime in the same process
// must pick a different Options.BufferGroupID.
var ErrBufferRingRegistered = &Error{Op: "buf_ring", Kind: KindInvalidInput, Msg: "buffer group already registered"}

// ErrBufferRingUnsupported is returned when the kernel predates registered
// buffer rings.
var ErrBufferRingUnsupported = &Error{Op: "buf_ring", Kind: KindFeatureUnsupported, Msg: "kernel lacks registered buffer rings"}

// Runtime owns one driver (ring pair + reaper goroutine), one
// provided-buffer pool, and one executor. All sockets and timers created
// inside Run/Go belong to it.
type Runtime struct {
	opts Options
	log  *logging.Logger

	drv  *driver.Driver
	pool *ringbuf.Ring
	exec *executor.Executor

	reaper    sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// New builds a Runtime: sets up the kernel ring, probes required features,
// registers the buffer pool, and starts the reaper goroutine. Feature
// absence is fatal here rather than surfacing as per-operation errors later.
func New(opts Options) (*Runtime, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}

	ring, err := driver.NewKernelRing(driver.KernelRingConfig{
		Entries: opts.Entries,
		SQPoll:  opts.SQPoll,
	})
	if err != nil {
		return nil, liftError("io_uring_setup", err)
	}
	return newRuntime(opts, log, ring)
}

// newRuntime finishes construction over an already-open Ring. Split from New
// so tests can inject a fake ring.
func newRuntime(opts Options, log *logging.Logger, ring driver.Ring) (*Runtime, error) {
	feat := ring.Features()
	if !feat.FastPoll {
		ring.Close()
		return nil, newFeatureUnsupported("probe", "kernel lacks IORING_FEAT_FAST_POLL")
	}
	if !feat.BufferSelect {
		ring.Close()
		return nil, newFeatureUnsupported("probe", "kernel lacks buffer-select support")
	}

	pool, err := ringbuf.New(ringbuf.Config{
		BufGroupID:  opts.BufferGroupID,
		RingEntries: opts.RingEntries,
		BufCount:    opts.BufferCount,
		BufLen:      opts.BufferLen,
	})
	if err != nil {
		ring.Close()
		return nil, newInvalidInput("buf_ring", err.Error())
	}

	drv := driver.New(ring, log)
	if err := drv.RegisterBufferRing(pool); err != nil {
		pool.Close()
		ring.Close()
		return nil, mapBufRingError(err)
	}

	rt := &Runtime{
		opts: opts,
		log:  log,
		drv:  drv,
		pool: pool,
		exec: executor.New(),
	}
	rt.reaper.Add(1)
	go func() {
		defer rt.reaper.Done()
		if err := drv.Run(); err != nil {
			log.Debug("ringio: reaper exited", "err", err)
		}
	}()
	return rt, nil
}

// mapBufRingError translates the kernel's registration failures into the
// dedicated error values: EEXIST means the group id is taken, EINVAL means
// the kernel is too old to know the registration opcode at all.
func mapBufRingError(err error) error {
	switch errnoOf(err) {
	case syscall.EEXIST:
		return ErrBufferRingRegistered
	case syscall.EINVAL:
		return ErrBufferRingUnsupported
	default:
		return liftError("buf_ring", err)
	}
}

// Run executes fn on a fresh goroutine with the driver installed in its
// context, servicing deferred continuations on the calling goroutine until
// fn returns. This is the runtime's block_on.
func (rt *Runtime) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx = driver.WithDriver(ctx, rt.drv)
	return rt.exec.BlockOn(func() error { return fn(ctx) })
}

// Go spawns fn as a supervised task with the driver installed in its
// context. The first error among spawned tasks is reported by Wait.
func (rt *Runtime) Go(ctx context.Context, fn func(ctx context.Context) error) {
	ctx = driver.WithDriver(ctx, rt.drv)
	rt.exec.Go(ctx, fn)
}

// Wait blocks until every task spawned via Go has returned.
func (rt *Runtime) Wait() error { return rt.exec.Wait() }

// Schedule enqueues fn to run on the runtime's cooperative queue, outside
// whatever goroutine is calling. Used by the timer facade for interval
// callbacks.
func (rt *Runtime) Schedule(fn func()) { rt.exec.Schedule(fn) }

// Context returns a context carrying the runtime's driver, for code that
// needs operation access outside a Run/Go callback (tests, examples).
func (rt *Runtime) Context(ctx context.Context) context.Context {
	return driver.WithDriver(ctx, rt.drv)
}

// Features reports the probed kernel capabilities.
func (rt *Runtime) Features() driver.Features { return rt.drv.Features() }

// Stats returns a point-in-time snapshot of the driver's operation
// counters.
func (rt *Runtime) Stats() driver.Snapshot { return rt.drv.Metrics().Snapshot() }

// Close tears the runtime down: stops the reaper and releases the ring and
// the buffer pool. In-flight operations complete with errors as the kernel
// observes the closed ring.
func (rt *Runtime) Close() error {
	rt.closeOnce.Do(func() {
		rt.closeErr = rt.drv.Close()
		rt.reaper.Wait()
		if err := rt.pool.Close(); err != nil && rt.closeErr == nil {
			rt.closeErr = err
		}
	})
	return rt.closeErr
}
