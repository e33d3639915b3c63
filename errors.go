package ringio

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind categorizes a ringio error per the runtime's error handling design.
type Kind string

const (
	KindKernel             Kind = "kernel"
	KindInvalidInput       Kind = "invalid input"
	KindFeatureUnsupported Kind = "feature unsupported"
	KindAddressResolution  Kind = "address resolution"
	KindTimedOut           Kind = "timed out"
	KindCancelled          Kind = "cancelled"
)

// Error is the structured error type surfaced by every public operation.
// It carries enough context to diagnose a failure without re-deriving it
// from the driver's internal state, which is gone by the time the error
// reaches user code.
type Error struct {
	Op    string // operation that failed, e.g. "accept", "connect", "timeout"
	Kind  Kind
	Errno syscall.Errno // populated when Kind == KindKernel
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op == "" {
		return fmt.Sprintf("ringio: %s", msg)
	}
	return fmt.Sprintf("ringio: %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// newError constructs an *Error for the given operation and kind.
func newError(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// newKernelError lifts a negative CQE result (or any raw errno) into a
// structured Kernel error, preserving the OS error for errors.Is(err,
// syscall.Exxx) compatibility.
func newKernelError(op string, errno syscall.Errno) *Error {
	return &Error{Op: op, Kind: KindKernel, Errno: errno, Msg: errno.Error(), Inner: errno}
}

func newInvalidInput(op, msg string) *Error {
	return &Error{Op: op, Kind: KindInvalidInput, Msg: msg}
}

func newFeatureUnsupported(op, msg string) *Error {
	return &Error{Op: op, Kind: KindFeatureUnsupported, Msg: msg}
}

// ErrTimedOut is returned by timer facades and by `timeout`-composed races
// when the wrapped operation did not finish before the deadline.
var ErrTimedOut = &Error{Kind: KindTimedOut, Msg: "deadline elapsed"}

// ErrCancelled is returned when the kernel acknowledges cancellation of an
// operation before its natural completion.
var ErrCancelled = &Error{Kind: KindCancelled, Msg: "operation cancelled"}

// newAddressResolutionError wraps the last dial/resolve attempt's error
// after every candidate address has been exhausted.
func newAddressResolutionError(op string, last error) *Error {
	return &Error{Op: op, Kind: KindAddressResolution, Msg: "all candidate addresses failed", Inner: last}
}

// errnoOf extracts the raw errno from a syscall-layer error, defaulting to
// EINVAL if something other than an errno slipped through.
func errnoOf(err error) syscall.Errno {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return syscall.EINVAL
}

// liftError normalizes an error crossing the internal/driver boundary: raw
// errnos from CQE results become Kernel errors, already-structured errors
// and context errors pass through untouched.
func liftError(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return newKernelError(op, errno)
	}
	return err
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// IsErrno reports whether err wraps the given kernel errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Errno == errno
	}
	return false
}
