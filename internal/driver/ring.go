package driver

// Opcode identifies which io_uring operation a SQE prepares. The set covers
// every operation the public package exposes; there is deliberately no
// passthrough for arbitrary opcodes; this is a closed operation set, not a
// general-purpose uring wrapper.
type Opcode uint8

const (
	OpAccept Opcode = iota
	OpAcceptMulti
	OpConnect
	OpRead
	OpRecv
	OpRecvMulti
	OpRecvMsg
	OpSend
	OpSendMsg
	OpWrite
	OpShutdown
	OpClose
	OpTimeout
	OpAsyncCancel
)

// SQEFlags bits, mirroring the subset of IOSQE_* the payloads need.
const (
	SQEFFixedFile    uint8 = 1 << 0
	SQEFBufferSelect uint8 = 1 << 5
)

// SQE is the kernel-agnostic submission record a payload fills in. The real
// ring implementation (kring_linux.go) translates this into whatever
// giouring's prep call for Opcode expects; no payload talks to giouring
// directly, so a mismatch in that translation is contained to one file.
type SQE struct {
	Opcode   Opcode
	Fd       int32
	Addr     uint64 // primary pointer: sockaddr*, msghdr*, buffer base, timespec*
	Addr2    uint64 // secondary pointer: addrlen*
	Len      uint32
	Offset   uint64
	UserData uint64
	BufGroup uint16
	SQEFlags uint8
	OpFlags  uint32 // opcode-specific flags: accept flags, recv flags, timeout flags
}

// Features reports which optional kernel capabilities the Ring
// implementation says are available.
type Features struct {
	FastPoll     bool
	BufferSelect bool
	MultiShot    bool
}

// Ring is the minimal completion-ring surface the Driver needs. The real
// implementation wraps github.com/pawelgaczynski/giouring; tests and the
// root package's fake backend (testing.go) supply an in-memory Ring that
// never touches the kernel.
type Ring interface {
	// GetSQE returns the next free submission slot, or nil if the
	// submission queue is full and the caller should Flush and retry.
	GetSQE() *SQE
	// Flush makes all prepared SQEs visible to the kernel in one syscall,
	// returning the number submitted.
	Flush() (uint, error)
	// WaitCQEs blocks until at least one CQE is available, invoking fn once
	// per reaped CQE. Returns promptly (without blocking) if stop has
	// already been requested via Close.
	WaitCQEs(fn func(Result)) error
	// RegisterBufferRing registers a buffer-select ring's backing region
	// under the given group id.
	RegisterBufferRing(bgid uint16, base uintptr, entries uint16) error
	Features() Features
	Close() error
}
