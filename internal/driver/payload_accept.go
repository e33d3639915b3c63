package driver

import (
	"net"

	"golang.org/x/sys/unix"
)

// AcceptResult is one accepted connection: the new socket fd and the peer's
// address as the kernel reported it.
type AcceptResult struct {
	FD   int32
	Peer net.Addr
}

// AcceptPayload pins the sockaddr storage a single-shot accept writes the
// peer address into.
type AcceptPayload struct {
	network string
	storage *sockaddrStorage
}

func NewAcceptPayload(network string) *AcceptPayload {
	return &AcceptPayload{network: network, storage: newSockaddrStorage()}
}

// Prep fills the accept SQE: the kernel writes the peer sockaddr through
// Addr/Addr2 on completion.
func (p *AcceptPayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpAccept
		s.Fd = fd
		s.Addr = p.storage.rawPtr()
		s.Addr2 = p.storage.lenPtr()
		s.OpFlags = unix.SOCK_CLOEXEC
	}
}

func (p *AcceptPayload) Complete(res Result) (AcceptResult, error) {
	if err := res.Err(); err != nil {
		return AcceptResult{}, err
	}
	peer, err := DecodeSockaddr(p.storage, p.network)
	if err != nil {
		// The connection is live even if the peer address didn't decode;
		// surface it with a nil peer rather than leak the fd.
		return AcceptResult{FD: res.Res}, nil
	}
	return AcceptResult{FD: res.Res, Peer: peer}, nil
}

// OnIgnoredCQE closes the accepted fd when the accept completed after its
// handle was dropped. Without this the connection would dangle half-open.
func (p *AcceptPayload) OnIgnoredCQE(res Result) {
	if res.Err() == nil {
		closeIgnoredFD(res.Res)
	}
}

// AcceptMultiPayload is the multishot variant. The kernel does not report
// per-connection peer addresses on the multishot path, so each yield is just
// the fd; callers that need the peer ask the socket afterwards.
type AcceptMultiPayload struct{}

func NewAcceptMultiPayload() *AcceptMultiPayload { return &AcceptMultiPayload{} }

func (p *AcceptMultiPayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpAcceptMulti
		s.Fd = fd
		s.OpFlags = unix.SOCK_CLOEXEC
	}
}

func (p *AcceptMultiPayload) Map(res Result) (int32, error) {
	if err := res.Err(); err != nil {
		return -1, err
	}
	return res.Res, nil
}

func (p *AcceptMultiPayload) OnIgnoredCQE(res Result) {
	if res.Err() == nil {
		closeIgnoredFD(res.Res)
	}
}
