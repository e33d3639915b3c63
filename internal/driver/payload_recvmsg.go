package driver

import (
	"net"
	"unsafe"

	"golang.org/x/sys/unix"
)

// RecvMsgResult is one received datagram: the valid bytes (aliasing the
// payload's own buffer, valid until the caller copies them out) and the
// sender's address.
type RecvMsgResult struct {
	Data []byte
	Peer net.Addr
}

// RecvMsgPayload pins everything a recvmsg points the kernel at: the data
// buffer, the iovec describing it, the peer sockaddr storage, and the msghdr
// tying them together. All four live exactly as long as the payload, which
// is what keeps an Ignored recvmsg safe.
type RecvMsgPayload struct {
	network string
	buf     []byte
	iov     unix.Iovec
	msg     unix.Msghdr
	storage *sockaddrStorage
}

func NewRecvMsgPayload(network string, bufLen int) *RecvMsgPayload {
	p := &RecvMsgPayload{
		network: network,
		buf:     make([]byte, bufLen),
		storage: newSockaddrStorage(),
	}
	if bufLen > 0 {
		p.iov.Base = &p.buf[0]
	}
	p.iov.SetLen(bufLen)
	p.msg.Name = (*byte)(unsafe.Pointer(&p.storage.raw))
	p.msg.Namelen = unix.SizeofSockaddrAny
	p.msg.Iov = &p.iov
	p.msg.SetIovlen(1)
	return p
}

func (p *RecvMsgPayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpRecvMsg
		s.Fd = fd
		s.Addr = uint64(uintptr(unsafe.Pointer(&p.msg)))
	}
}

func (p *RecvMsgPayload) Complete(res Result) (RecvMsgResult, error) {
	if err := res.Err(); err != nil {
		return RecvMsgResult{}, err
	}
	p.storage.len = p.msg.Namelen
	peer, err := DecodeSockaddr(p.storage, p.network)
	if err != nil {
		return RecvMsgResult{}, err
	}
	return RecvMsgResult{Data: p.buf[:res.Res], Peer: peer}, nil
}
