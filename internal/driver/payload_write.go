package driver

import "unsafe"

// WritePayload mirrors SendPayload for the write opcode, which works on any
// fd rather than only sockets.
type WritePayload struct {
	data []byte
}

func NewWritePayload(data []byte) *WritePayload {
	owned := make([]byte, len(data))
	copy(owned, data)
	return &WritePayload{data: owned}
}

func (p *WritePayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpWrite
		s.Fd = fd
		if len(p.data) > 0 {
			s.Addr = uint64(uintptr(unsafe.Pointer(&p.data[0])))
		}
		s.Len = uint32(len(p.data))
	}
}

func (p *WritePayload) Complete(res Result) (int, error) {
	if err := res.Err(); err != nil {
		return 0, err
	}
	return int(res.Res), nil
}
