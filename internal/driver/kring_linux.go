//go:build linux

package driver

// This file is the single place that talks to
// github.com/pawelgaczynski/giouring. Every other file in this package works
// against the Ring interface in ring.go, so if giouring's actual call
// signatures drift from what's assumed here, the fix is contained to this
// file, keeping any alternative backend (a raw-syscall fallback, a test
// fake) behind the same interface.
import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"github.com/pawelgaczynski/giouring"
)

// kernelRing adapts a *giouring.Ring to this package's Ring interface. The
// Ring interface hands callers a plain *SQE to fill in and only learns the
// real giouring submission slot at Flush time, so GetSQE pairs each returned
// placeholder with its real slot and prepare() translates the lot of them
// just before Submit.
type kernelRing struct {
	ring    *giouring.Ring
	pending []pendingSQE
}

type pendingSQE struct {
	raw *giouring.SubmissionQueueEntry
	sqe *SQE
}

// KernelRingConfig controls the underlying io_uring instance.
type KernelRingConfig struct {
	// Entries is the submission queue depth, rounded up to a power of two
	// by the kernel.
	Entries uint32
	// SQPoll, when true, asks the kernel to run a dedicated polling thread
	// for submission, trading a CPU core for lower per-call latency.
	SQPoll bool
}

// NewKernelRing sets up a real io_uring instance.
func NewKernelRing(cfg KernelRingConfig) (Ring, error) {
	entries := cfg.Entries
	if entries == 0 {
		entries = 256
	}

	var params giouring.IOUringParams
	if cfg.SQPoll {
		params.Flags |= giouring.SetupSQPOLL
		params.SQThreadIdle = 2000
	}

	ring, err := giouring.CreateRing(entries, &params)
	if err != nil {
		return nil, fmt.Errorf("driver: io_uring_setup: %w", err)
	}
	return &kernelRing{ring: ring}, nil
}

func (k *kernelRing) GetSQE() *SQE {
	raw := k.ring.GetSQE()
	if raw == nil {
		return nil
	}
	sqe := &SQE{}
	k.pending = append(k.pending, pendingSQE{raw: raw, sqe: sqe})
	return sqe
}

// prepare translates sqe into the already-fetched giouring SQE slot raw via
// the matching Prep* call. Flush submits the prepared slots afterwards.
func (k *kernelRing) prepare(raw *giouring.SubmissionQueueEntry, sqe *SQE) {
	switch sqe.Opcode {
	case OpAccept:
		raw.PrepareAccept(int(sqe.Fd), uintptr(sqe.Addr), uintptr(sqe.Addr2), sqe.OpFlags)
	case OpAcceptMulti:
		raw.PrepareMultishotAccept(int(sqe.Fd), uintptr(sqe.Addr), uintptr(sqe.Addr2), sqe.OpFlags)
	case OpConnect:
		raw.PrepareConnect(int(sqe.Fd), uintptr(sqe.Addr), uint64(sqe.Len))
	case OpRead:
		raw.PrepareRead(int(sqe.Fd), uintptr(sqe.Addr), sqe.Len, sqe.Offset)
		if sqe.SQEFlags&SQEFBufferSelect != 0 {
			raw.Flags |= giouring.SqeBufferSelect
			raw.BufIG = sqe.BufGroup
		}
	case OpRecv:
		raw.PrepareRecv(int(sqe.Fd), uintptr(sqe.Addr), sqe.Len, sqe.OpFlags)
		if sqe.SQEFlags&SQEFBufferSelect != 0 {
			raw.Flags |= giouring.SqeBufferSelect
			raw.BufIG = sqe.BufGroup
		}
	case OpRecvMulti:
		raw.PrepareRecvMultishot(int(sqe.Fd), uintptr(sqe.Addr), sqe.Len, sqe.OpFlags)
		raw.Flags |= giouring.SqeBufferSelect
		raw.BufIG = sqe.BufGroup
	case OpRecvMsg:
		raw.PrepareRecvMsg(int(sqe.Fd), uintptr(sqe.Addr), sqe.OpFlags)
	case OpSend:
		raw.PrepareSend(int(sqe.Fd), uintptr(sqe.Addr), sqe.Len, sqe.OpFlags)
	case OpSendMsg:
		raw.PrepareSendMsg(int(sqe.Fd), uintptr(sqe.Addr), sqe.OpFlags)
	case OpWrite:
		raw.PrepareWrite(int(sqe.Fd), uintptr(sqe.Addr), sqe.Len, sqe.Offset)
	case OpShutdown:
		raw.PrepareShutdown(int(sqe.Fd), int(sqe.OpFlags))
	case OpClose:
		raw.PrepareClose(int(sqe.Fd))
	case OpTimeout:
		raw.PrepareTimeout(uintptr(sqe.Addr), uint32(sqe.Offset), sqe.OpFlags)
	case OpAsyncCancel:
		raw.PrepareCancel64(sqe.Addr, 0)
	}
	raw.UserData = sqe.UserData
	raw.Flags |= sqe.SQEFlags
}

func (k *kernelRing) Flush() (uint, error) {
	for _, p := range k.pending {
		k.prepare(p.raw, p.sqe)
	}
	k.pending = k.pending[:0]
	n, err := k.ring.Submit()
	return uint(n), err
}

func (k *kernelRing) WaitCQEs(fn func(Result)) error {
	cqe, err := k.ring.WaitCQE()
	if err != nil {
		// A busy CQ or an interrupting signal is not a failure; the caller
		// loops and waits again.
		if errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.EINTR) {
			return nil
		}
		return fmt.Errorf("driver: io_uring_enter wait: %w", err)
	}
	fn(Result{UserData: cqe.UserData, Res: cqe.Res, Flags: cqe.Flags})
	k.ring.CQESeen(cqe)

	for {
		cqe, err := k.ring.PeekCQE()
		if err != nil || cqe == nil {
			break
		}
		fn(Result{UserData: cqe.UserData, Res: cqe.Res, Flags: cqe.Flags})
		k.ring.CQESeen(cqe)
	}
	return nil
}

func (k *kernelRing) RegisterBufferRing(bgid uint16, base uintptr, entries uint16) error {
	return k.ring.RegisterBufferRing(unsafe.Pointer(base), entries, bgid) //nolint:govet
}

// Features reads FastPoll from the feature mask the kernel returned at ring
// setup. BufferSelect and MultiShot are always reported as present; no
// opcode probe is made for them.
func (k *kernelRing) Features() Features {
	probe := k.ring.Params.Features
	return Features{
		FastPoll:     probe&giouring.FeatFastPoll != 0,
		BufferSelect: true,
		MultiShot:    true,
	}
}

func (k *kernelRing) Close() error {
	k.ring.QueueExit()
	return nil
}
