// Package driver owns the completion-ring state machine: submitting SQEs,
// reaping CQEs on a single background goroutine, and handing each operation's
// result to whichever goroutine is waiting on it.
//
// Go has no Future/Poll/Waker of its own, so the mapping from a poll-based
// design is: a parked waker is a goroutine blocked on a buffered channel
// receive. Submitted/Completed/CompletionList/Ignored are still explicit
// states (they describe what the *driver* has done with a CQE), but a
// separate Waiting state has no representation here: it is whatever a
// goroutine is doing while blocked on <-entry.ch, and needs no bookkeeping
// of its own.
package driver

import "syscall"

// CQE flag bits, mirroring IORING_CQE_F_*.
const (
	CQEFBuffer uint32 = 1 << 0
	CQEFMore   uint32 = 1 << 1
)

const CQEBufferShift = 16

// ReservedCookie is the user_data value for SQEs that carry no operation
// handle: buffer re-provide pushes and best-effort cancellation requests. The
// reaper drops any CQE bearing this cookie without a slab lookup.
const ReservedCookie uint64 = ^uint64(0)

// Result is one CQE, translated out of the kernel's ABI by the ring
// implementation.
type Result struct {
	UserData uint64
	Res      int32
	Flags    uint32
}

// Err returns the kernel error this result carries, if Res is negative.
func (r Result) Err() error {
	if r.Res < 0 {
		return syscall.Errno(-r.Res)
	}
	return nil
}

// HasMore reports whether the kernel has more completions queued for this
// operation's multishot request.
func (r Result) HasMore() bool { return r.Flags&CQEFMore != 0 }

// BufferID returns the buffer-select id this result carries, if any.
func (r Result) BufferID() (uint16, bool) {
	if r.Flags&CQEFBuffer == 0 {
		return 0, false
	}
	return uint16(r.Flags >> CQEBufferShift), true
}
