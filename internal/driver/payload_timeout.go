package driver

import (
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// TimeoutPayload pins the timespec the kernel reads its deadline from.
type TimeoutPayload struct {
	ts unix.Timespec
}

func NewTimeoutPayload(d time.Duration) *TimeoutPayload {
	if d < 0 {
		d = 0
	}
	return &TimeoutPayload{ts: unix.NsecToTimespec(d.Nanoseconds())}
}

func (p *TimeoutPayload) Prep() func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpTimeout
		s.Addr = uint64(uintptr(unsafe.Pointer(&p.ts)))
		s.Offset = 0 // count: fire on elapse, not after N completions
	}
}

// Complete maps the timeout opcode's inverted result convention: the normal
// outcome is ETIME (the deadline elapsed), ECANCELED means a linked
// cancellation raced the deadline and is also success, any other error
// propagates, and a non-negative result never legitimately happens for this
// opcode.
func (p *TimeoutPayload) Complete(res Result) (Unit, error) {
	if err := res.Err(); err != nil {
		if err == syscall.ETIME || err == syscall.ECANCELED {
			return Unit{}, nil
		}
		return Unit{}, err
	}
	return Unit{}, fmt.Errorf("driver: timeout completed with result %d", res.Res)
}
