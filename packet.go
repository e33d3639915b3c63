package ringio

import (
	"context"
	"net"

	"github.com/coreglyph/ringio/internal/driver"
)

// Packet is a datagram socket (UDP). Unlike Stream there is no cursor: each
// receive yields one whole datagram, truncated to the caller's buffer the
// way recvfrom(2) truncates.
type Packet struct {
	fd      int32
	network string
	closed  bool
}

func newPacket(fd int32, network string) *Packet {
	return &Packet{fd: fd, network: network}
}

// FD exposes the underlying descriptor.
func (p *Packet) FD() int32 { return p.fd }

// LocalAddr returns the socket's bound address.
func (p *Packet) LocalAddr() net.Addr { return localAddr(p.fd, p.network) }

// Connect fixes the socket's default destination, after which Send/Recv
// work without explicit addresses and the kernel filters inbound datagrams
// to that peer.
func (p *Packet) Connect(ctx context.Context, addr net.Addr) error {
	d := driver.FromContext(ctx)
	h, err := driver.Connect(d, p.fd, addr)
	if err != nil {
		return liftError("connect", err)
	}
	if _, err := h.Wait(ctx); err != nil {
		return liftError("connect", err)
	}
	return nil
}

// Send transmits b on a connected socket, returning the bytes sent.
func (p *Packet) Send(ctx context.Context, b []byte) (int, error) {
	d := driver.FromContext(ctx)
	h, err := driver.Send(d, p.fd, b)
	if err != nil {
		return 0, liftError("send", err)
	}
	n, err := h.Wait(ctx)
	if err != nil {
		return 0, liftError("send", err)
	}
	return n, nil
}

// SendTo transmits b to addr.
func (p *Packet) SendTo(ctx context.Context, b []byte, addr net.Addr) (int, error) {
	d := driver.FromContext(ctx)
	h, err := driver.SendTo(d, p.fd, b, addr)
	if err != nil {
		return 0, liftError("sendmsg", err)
	}
	n, err := h.Wait(ctx)
	if err != nil {
		return 0, liftError("sendmsg", err)
	}
	return n, nil
}

// Recv receives one datagram on a connected socket into b, via the
// kernel-selected buffer pool, and returns the byte count after copying.
func (p *Packet) Recv(ctx context.Context, b []byte) (int, error) {
	d := driver.FromContext(ctx)
	h, err := driver.Recv(d, p.fd, pool(d))
	if err != nil {
		return 0, liftError("recv", err)
	}
	buf, err := h.Wait(ctx)
	if err != nil {
		return 0, liftError("recv", err)
	}
	n := copy(b, buf.Bytes())
	buf.Release()
	return n, nil
}

// RecvFrom receives one datagram into b and reports the sender's address.
func (p *Packet) RecvFrom(ctx context.Context, b []byte) (int, net.Addr, error) {
	d := driver.FromContext(ctx)
	h, err := driver.RecvMsg(d, p.fd, p.network, len(b))
	if err != nil {
		return 0, nil, liftError("recvmsg", err)
	}
	res, err := h.Wait(ctx)
	if err != nil {
		return 0, nil, liftError("recvmsg", err)
	}
	n := copy(b, res.Data)
	return n, res.Peer, nil
}

// Close closes the socket through the ring.
func (p *Packet) Close(ctx context.Context) error {
	if p.closed {
		return nil
	}
	p.closed = true
	return closeFD(ctx, p.fd)
}
