package driver

import (
	"context"
	"errors"
)

// ErrAlreadyConsumed is returned by Wait/Next when called again after the
// handle's single result (or its stream's end) has already been delivered.
var ErrAlreadyConsumed = errors.New("driver: handle already consumed")

// Handle is an awaitable single-shot operation: accept, connect, read, recv,
// recvmsg, send, sendmsg, write, shutdown, close, timeout. A channel receive
// stands in for a parked waker: whichever goroutine calls Wait blocks on
// entry.ch until the reaper goroutine delivers the terminal CQE.
type Handle[T any] struct {
	d       *Driver
	key     uint64
	entry   *opEntry
	payload Payload[T]
	done    bool
}

// Submit prepares and flushes a single-shot SQE via prep, returning a Handle
// that will yield payload.Complete of the terminal CQE.
func Submit[T any](d *Driver, payload Payload[T], prep func(*SQE)) (*Handle[T], error) {
	entry := newSingleShotEntry()
	key, err := d.submit(prep, entry)
	if err != nil {
		return nil, err
	}
	return &Handle[T]{d: d, key: key, entry: entry, payload: payload}, nil
}

// Wait blocks until the operation's terminal CQE arrives, or ctx is done
// first (in which case the operation is cancelled and ctx.Err() is
// returned). Calling Wait a second time returns ErrAlreadyConsumed.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	if h.done {
		return zero, ErrAlreadyConsumed
	}
	select {
	case res := <-h.entry.ch:
		h.done = true
		h.d.release(h.key)
		return h.payload.Complete(res)
	case <-ctx.Done():
		h.Cancel()
		return zero, ctx.Err()
	}
}

// Cancel best-effort cancels the operation if it hasn't completed yet. Safe
// to call more than once, and safe to call after Wait has already returned.
func (h *Handle[T]) Cancel() {
	if h.done {
		return
	}
	h.done = true
	hook := ignoreHookOf(h.payload)
	h.d.cancel(h.key, hook)
	// A result that raced in before the cancel is sitting unread in the
	// channel; run it through the ignore hook so the resources it carries
	// (a selected buffer, an accepted fd) are reclaimed.
	if hook != nil {
		select {
		case res := <-h.entry.ch:
			hook(res)
		default:
		}
	}
}

// MultiHandle is the multishot counterpart: accept_multi, recv_multi. Next
// yields one item per CQE until the kernel reports no more are coming (ok ==
// false) or ctx is done.
type MultiHandle[T any] struct {
	d       *Driver
	key     uint64
	entry   *opEntry
	payload MultiPayload[T]
	closed  bool
}

// SubmitMulti prepares and flushes a multishot SQE via prep, returning a
// MultiHandle that yields payload.Map of each CQE in turn.
func SubmitMulti[T any](d *Driver, payload MultiPayload[T], prep func(*SQE)) (*MultiHandle[T], error) {
	entry := newMultiShotEntry()
	key, err := d.submit(prep, entry)
	if err != nil {
		return nil, err
	}
	return &MultiHandle[T]{d: d, key: key, entry: entry, payload: payload}, nil
}

// Next blocks for the next item in the stream. ok is false once the kernel
// has signaled no more completions are coming (the preceding item, if any,
// already carried the last real result) or the handle has been cancelled.
func (h *MultiHandle[T]) Next(ctx context.Context) (item T, ok bool, err error) {
	if h.closed {
		return item, false, nil
	}
	select {
	case res, chOk := <-h.entry.multi:
		if !chOk {
			h.closed = true
			return item, false, nil
		}
		if !res.HasMore() {
			h.closed = true
		}
		item, err = h.payload.Map(res)
		return item, true, err
	case <-ctx.Done():
		h.Cancel()
		return item, false, ctx.Err()
	}
}

// Cancel best-effort cancels the stream. Safe to call more than once.
// Items already delivered but not yet consumed are reclaimed through the
// payload's ignore hook, same as items that arrive after cancellation.
func (h *MultiHandle[T]) Cancel() {
	if h.closed {
		return
	}
	h.closed = true
	hook := ignoreHookOf(h.payload)
	h.d.cancel(h.key, hook)
	if hook != nil {
		for {
			select {
			case res := <-h.entry.multi:
				hook(res)
			default:
				return
			}
		}
	}
}
