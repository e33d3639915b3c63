package driver

import "net"

// Unit is the output of operations that complete with no value: connect,
// shutdown, close, timeout.
type Unit = struct{}

// ConnectPayload owns the serialized destination sockaddr for the lifetime
// of the connect.
type ConnectPayload struct {
	storage *sockaddrStorage
	addrLen uint32
}

func NewConnectPayload(addr net.Addr) (*ConnectPayload, error) {
	storage, addrLen, err := EncodeSockaddr(addr)
	if err != nil {
		return nil, err
	}
	return &ConnectPayload{storage: storage, addrLen: addrLen}, nil
}

func (p *ConnectPayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpConnect
		s.Fd = fd
		s.Addr = p.storage.rawPtr()
		s.Len = p.addrLen
	}
}

func (p *ConnectPayload) Complete(res Result) (Unit, error) {
	return Unit{}, res.Err()
}
