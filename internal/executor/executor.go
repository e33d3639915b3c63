// Package executor is the cooperative scheduling layer: a FIFO of deferred
// continuations drained in bounded ticks, plus supervised goroutines for
// work that blocks on operation handles.
//
// A "task" that must suspend on I/O is a goroutine (Go gives us the
// lightweight stack and the parking for free), while the ready-queue holds
// continuations that must not run inside the driver's reap pass: interval
// ticks, deferred drains, anything scheduled by Schedule. BlockOn is the
// entry point that services that queue while the caller's root function
// runs.
package executor

import (
	"context"
	"sync"

	"github.com/eapache/queue"
	"golang.org/x/sync/errgroup"
)

// tickBatch bounds how many queued continuations one tick may run, so a
// continuation that keeps rescheduling itself cannot starve the block-on
// loop's exit check.
const tickBatch = 64

// Executor runs continuations and supervises spawned goroutines.
type Executor struct {
	mu    sync.Mutex
	ready *queue.Queue

	// wake is buffered(1): Schedule never blocks, and a parked BlockOn
	// observes at most one pending wake regardless of how many Schedules
	// raced it.
	wake chan struct{}

	grp     *errgroup.Group
	grpCtx  context.Context
	grpOnce sync.Once
}

// New returns an empty executor.
func New() *Executor {
	return &Executor{
		ready: queue.New(),
		wake:  make(chan struct{}, 1),
	}
}

// Schedule enqueues fn to run on the next tick and wakes a parked BlockOn if
// one is waiting. Safe from any goroutine, including the driver's reaper.
func (e *Executor) Schedule(fn func()) {
	e.mu.Lock()
	e.ready.Add(fn)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Tick pops and runs up to tickBatch queued continuations. It reports
// whether the queue held anything at tick start, which is the block-on
// loop's "was progress made" signal.
func (e *Executor) Tick() bool {
	progress := false
	for i := 0; i < tickBatch; i++ {
		e.mu.Lock()
		if e.ready.Length() == 0 {
			e.mu.Unlock()
			break
		}
		fn := e.ready.Remove().(func())
		e.mu.Unlock()

		progress = true
		fn()
	}
	return progress
}

// Go spawns fn as a supervised goroutine. The first error any spawned
// goroutine returns is what Wait reports; ctx passed to fn is cancelled once
// any sibling fails.
func (e *Executor) Go(ctx context.Context, fn func(ctx context.Context) error) {
	e.grpOnce.Do(func() {
		e.grp, e.grpCtx = errgroup.WithContext(ctx)
	})
	grpCtx := e.grpCtx
	e.grp.Go(func() error { return fn(grpCtx) })
}

// Wait blocks until every goroutine spawned via Go has returned, yielding
// the first error among them.
func (e *Executor) Wait() error {
	if e.grp == nil {
		return nil
	}
	return e.grp.Wait()
}

// BlockOn runs fn to completion, servicing the ready queue on the calling
// goroutine whenever a Schedule wakes it. This is the root of every runtime
// entry point: the caller's goroutine is the one that parks, the spawned one
// is the one that blocks on operation handles.
func (e *Executor) BlockOn(fn func() error) error {
	res := make(chan error, 1)
	go func() { res <- fn() }()

	for {
		select {
		case err := <-res:
			// fn finished; drain anything it scheduled on the way out.
			for e.Tick() {
			}
			return err
		case <-e.wake:
			for e.Tick() {
			}
		}
	}
}
