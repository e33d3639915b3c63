package ringio

import (
	"context"
	"io"
	"net"

	"golang.org/x/sys/unix"

	"github.com/coreglyph/ringio/internal/driver"
	"github.com/coreglyph/ringio/internal/ringbuf"
)

// Stream is a connected byte-stream socket (TCP or Unix-stream). Reads are
// serviced from a cursor over the current kernel-selected buffer; when the
// cursor drains, the buffer goes back to the pool and the next receive is
// issued. Writes copy the caller's bytes into the operation payload, so the
// argument slice is free for reuse the moment Write returns.
//
// A Stream is not safe for concurrent use by multiple goroutines, matching
// the one-task-per-socket model the runtime is built around. Independent
// read and write goroutines are fine: the read path and write path share no
// state.
type Stream struct {
	fd      int32
	network string

	// Read cursor: the currently loaned buffer and how much of it has been
	// consumed.
	cur *ringbuf.Provided
	pos int

	// Streaming receive, when enabled: completions arrive continuously
	// instead of one receive per Fill.
	multi *driver.MultiHandle[*ringbuf.Provided]

	closed bool
}

func newStream(fd int32, network string) *Stream {
	return &Stream{fd: fd, network: network}
}

// FD exposes the underlying descriptor for callers that need to set socket
// options the adapter doesn't cover.
func (s *Stream) FD() int32 { return s.fd }

// LocalAddr returns the socket's bound address, or nil if the kernel won't
// say.
func (s *Stream) LocalAddr() net.Addr { return localAddr(s.fd, s.network) }

// RemoteAddr returns the peer's address, or nil if the kernel won't say.
func (s *Stream) RemoteAddr() net.Addr { return peerAddr(s.fd, s.network) }

// StartStreaming switches the read path to a multishot receive: one SQE,
// a continuous stream of completions. Reads after this call drain that
// stream. Must be called before the first Read.
func (s *Stream) StartStreaming(ctx context.Context) error {
	if s.multi != nil || s.cur != nil {
		return newInvalidInput("recv_multi", "streaming must be enabled before the first read")
	}
	d := driver.FromContext(ctx)
	h, err := driver.RecvMulti(d, s.fd, pool(d))
	if err != nil {
		return liftError("recv_multi", err)
	}
	s.multi = h
	return nil
}

// Read copies up to len(p) bytes out of the stream. Returns io.EOF once the
// peer has shut down its write side and all buffered data is consumed.
func (s *Stream) Read(ctx context.Context, p []byte) (int, error) {
	src, err := s.Fill(ctx)
	if err != nil {
		return 0, err
	}
	if len(src) == 0 {
		return 0, io.EOF
	}
	n := copy(p, src)
	s.Consume(n)
	return n, nil
}

// Fill returns the unconsumed remainder of the current buffer, receiving a
// new one if the cursor is empty. An empty return means EOF. The slice is
// valid until the matching Consume advances past it.
func (s *Stream) Fill(ctx context.Context) ([]byte, error) {
	if s.cur != nil {
		if rest := s.cur.Bytes()[s.pos:]; len(rest) > 0 {
			return rest, nil
		}
		s.cur.Release()
		s.cur = nil
		s.pos = 0
	}

	buf, err := s.nextBuffer(ctx)
	if err != nil {
		return nil, err
	}
	s.cur = buf
	s.pos = 0
	return buf.Bytes(), nil
}

// Consume marks n bytes of the current buffer as read. Once the whole
// buffer is consumed the next Fill releases it back to the pool.
func (s *Stream) Consume(n int) {
	s.pos += n
}

func (s *Stream) nextBuffer(ctx context.Context) (*ringbuf.Provided, error) {
	if s.multi != nil {
		buf, ok, err := s.multi.Next(ctx)
		if err != nil {
			return nil, liftError("recv_multi", err)
		}
		if !ok {
			return &ringbuf.Provided{}, nil
		}
		return buf, nil
	}

	d := driver.FromContext(ctx)
	h, err := driver.Recv(d, s.fd, pool(d))
	if err != nil {
		return nil, liftError("recv", err)
	}
	buf, err := h.Wait(ctx)
	if err != nil {
		return nil, liftError("recv", err)
	}
	return buf, nil
}

// Write submits one write of p and waits for its completion, returning the
// byte count the kernel reports. Short writes happen under memory pressure;
// use WriteAll when the whole slice must land.
func (s *Stream) Write(ctx context.Context, p []byte) (int, error) {
	d := driver.FromContext(ctx)
	h, err := driver.Write(d, s.fd, p)
	if err != nil {
		return 0, liftError("write", err)
	}
	n, err := h.Wait(ctx)
	if err != nil {
		return 0, liftError("write", err)
	}
	return n, nil
}

// WriteAll writes the whole of p, issuing as many operations as it takes.
func (s *Stream) WriteAll(ctx context.Context, p []byte) error {
	for len(p) > 0 {
		n, err := s.Write(ctx, p)
		if err != nil {
			return err
		}
		if n == 0 {
			return liftError("write", io.ErrShortWrite)
		}
		p = p[n:]
	}
	return nil
}

// Shutdown half-closes the write side, signalling EOF to the peer while
// reads continue to drain.
func (s *Stream) Shutdown(ctx context.Context) error {
	d := driver.FromContext(ctx)
	h, err := driver.Shutdown(d, s.fd, unix.SHUT_WR)
	if err != nil {
		return liftError("shutdown", err)
	}
	if _, err := h.Wait(ctx); err != nil {
		return liftError("shutdown", err)
	}
	return nil
}

// Close cancels any streaming receive, returns the loaned buffer, and closes
// the fd through the ring.
func (s *Stream) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.multi != nil {
		s.multi.Cancel()
		s.multi = nil
	}
	if s.cur != nil {
		s.cur.Release()
		s.cur = nil
	}
	return closeFD(ctx, s.fd)
}

// pool returns the driver's registered buffer pool. The runtime always
// registers exactly one, under the configured group id.
func pool(d *driver.Driver) *ringbuf.Ring {
	rings := d.BufferRings()
	if len(rings) == 0 {
		panic("ringio: driver has no registered buffer ring")
	}
	return rings[0]
}
