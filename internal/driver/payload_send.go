package driver

import (
	"net"
	"unsafe"

	"golang.org/x/sys/unix"
)

// SendPayload owns a private copy of the bytes to transmit. Copying on
// submit costs one memmove but makes the payload self-contained: the
// caller's slice can be reused immediately, and an Ignored send stays valid
// no matter what the caller does next.
type SendPayload struct {
	data []byte
}

func NewSendPayload(data []byte) *SendPayload {
	owned := make([]byte, len(data))
	copy(owned, data)
	return &SendPayload{data: owned}
}

func (p *SendPayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpSend
		s.Fd = fd
		if len(p.data) > 0 {
			s.Addr = uint64(uintptr(unsafe.Pointer(&p.data[0])))
		}
		s.Len = uint32(len(p.data))
	}
}

func (p *SendPayload) Complete(res Result) (int, error) {
	if err := res.Err(); err != nil {
		return 0, err
	}
	return int(res.Res), nil
}

// SendMsgPayload is the addressed variant: a datagram to an explicit
// destination, carried via a pinned msghdr + iovec + sockaddr triple just
// like RecvMsgPayload's, but pointing the other way.
type SendMsgPayload struct {
	data    []byte
	iov     unix.Iovec
	msg     unix.Msghdr
	storage *sockaddrStorage
}

func NewSendMsgPayload(data []byte, addr net.Addr) (*SendMsgPayload, error) {
	storage, addrLen, err := EncodeSockaddr(addr)
	if err != nil {
		return nil, err
	}
	p := &SendMsgPayload{
		data:    make([]byte, len(data)),
		storage: storage,
	}
	copy(p.data, data)
	if len(p.data) > 0 {
		p.iov.Base = &p.data[0]
	}
	p.iov.SetLen(len(p.data))
	p.msg.Name = (*byte)(unsafe.Pointer(&storage.raw))
	p.msg.Namelen = addrLen
	p.msg.Iov = &p.iov
	p.msg.SetIovlen(1)
	return p, nil
}

func (p *SendMsgPayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpSendMsg
		s.Fd = fd
		s.Addr = uint64(uintptr(unsafe.Pointer(&p.msg)))
	}
}

func (p *SendMsgPayload) Complete(res Result) (int, error) {
	if err := res.Err(); err != nil {
		return 0, err
	}
	return int(res.Res), nil
}
