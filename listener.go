package ringio

import (
	"context"
	"net"

	"github.com/coreglyph/ringio/internal/driver"
)

// Listener accepts inbound stream connections, one at a time via Accept or
// continuously via Incoming.
type Listener struct {
	fd      int32
	network string
	closed  bool
}

func newListener(fd int32, network string) *Listener {
	return &Listener{fd: fd, network: network}
}

// Addr returns the listener's bound address; with port 0 this is where the
// kernel's chosen port shows up.
func (l *Listener) Addr() net.Addr { return localAddr(l.fd, l.network) }

// Accept waits for the next inbound connection.
func (l *Listener) Accept(ctx context.Context) (*Stream, net.Addr, error) {
	d := driver.FromContext(ctx)
	h, err := driver.Accept(d, l.fd, l.network)
	if err != nil {
		return nil, nil, liftError("accept", err)
	}
	res, err := h.Wait(ctx)
	if err != nil {
		return nil, nil, liftError("accept", err)
	}
	return newStream(res.FD, l.network), res.Peer, nil
}

// Incoming submits a multishot accept and returns the stream of inbound
// connections. One SQE serves every future connection until the stream is
// cancelled or the kernel ends it.
func (l *Listener) Incoming(ctx context.Context) (*AcceptStream, error) {
	d := driver.FromContext(ctx)
	h, err := driver.AcceptMulti(d, l.fd)
	if err != nil {
		return nil, liftError("accept_multi", err)
	}
	return &AcceptStream{h: h, network: l.network}, nil
}

// Close closes the listening socket through the ring.
func (l *Listener) Close(ctx context.Context) error {
	if l.closed {
		return nil
	}
	l.closed = true
	return closeFD(ctx, l.fd)
}

// AcceptStream yields connections from a multishot accept.
type AcceptStream struct {
	h       *driver.MultiHandle[int32]
	network string
}

// Next waits for the next connection. ok is false once the stream has
// ended. The multishot path doesn't report peer addresses in completions,
// so Next asks the new socket for its peer instead.
func (a *AcceptStream) Next(ctx context.Context) (*Stream, net.Addr, bool, error) {
	fd, ok, err := a.h.Next(ctx)
	if err != nil {
		return nil, nil, ok, liftError("accept_multi", err)
	}
	if !ok {
		return nil, nil, false, nil
	}
	return newStream(fd, a.network), peerAddr(fd, a.network), true, nil
}

// Cancel ends the stream; connections the kernel accepts after this point
// are closed by the driver rather than leaked.
func (a *AcceptStream) Cancel() { a.h.Cancel() }
