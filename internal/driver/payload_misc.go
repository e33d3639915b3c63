package driver

// ShutdownPayload half-closes a socket. No pinned memory.
type ShutdownPayload struct{}

func NewShutdownPayload() *ShutdownPayload { return &ShutdownPayload{} }

// Prep fills the shutdown SQE; how is one of unix.SHUT_RD/SHUT_WR/SHUT_RDWR.
func (p *ShutdownPayload) Prep(fd int32, how int) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpShutdown
		s.Fd = fd
		s.OpFlags = uint32(how)
	}
}

func (p *ShutdownPayload) Complete(res Result) (Unit, error) {
	return Unit{}, res.Err()
}

// ClosePayload closes an fd through the ring rather than close(2). The SQE
// carries no link or drain flag, so the kernel does not order it behind
// operations already submitted against the fd.
type ClosePayload struct{}

func NewClosePayload() *ClosePayload { return &ClosePayload{} }

func (p *ClosePayload) Prep(fd int32) func(*SQE) {
	return func(s *SQE) {
		s.Opcode = OpClose
		s.Fd = fd
	}
}

func (p *ClosePayload) Complete(res Result) (Unit, error) {
	return Unit{}, res.Err()
}
