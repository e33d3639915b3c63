package driver

import (
	"net"
	"time"

	"github.com/coreglyph/ringio/internal/ringbuf"
)

// This file is the operation catalogue: one constructor per opcode, each
// pairing a payload with its prep and handing back the awaitable handle.
// Socket adapters never touch SQEs directly; they go through these.

// Accept submits a single-shot accept on the listening fd.
func Accept(d *Driver, fd int32, network string) (*Handle[AcceptResult], error) {
	p := NewAcceptPayload(network)
	return Submit[AcceptResult](d, p, p.Prep(fd))
}

// AcceptMulti submits a streaming accept: one yield per inbound connection
// until cancelled or the kernel ends the stream.
func AcceptMulti(d *Driver, fd int32) (*MultiHandle[int32], error) {
	p := NewAcceptMultiPayload()
	return SubmitMulti[int32](d, p, p.Prep(fd))
}

// Connect submits a connect to addr.
func Connect(d *Driver, fd int32, addr net.Addr) (*Handle[Unit], error) {
	p, err := NewConnectPayload(addr)
	if err != nil {
		return nil, err
	}
	return Submit[Unit](d, p, p.Prep(fd))
}

// Recv submits a buffer-select receive; the kernel picks the buffer out of
// ring and the result loans it to the caller.
func Recv(d *Driver, fd int32, ring *ringbuf.Ring) (*Handle[*ringbuf.Provided], error) {
	p := NewRecvPayload(ring)
	return Submit[*ringbuf.Provided](d, p, p.Prep(fd))
}

// Read submits a buffer-select read, the file-capable variant of Recv.
func Read(d *Driver, fd int32, ring *ringbuf.Ring) (*Handle[*ringbuf.Provided], error) {
	p := NewReadPayload(ring)
	return Submit[*ringbuf.Provided](d, p, p.Prep(fd))
}

// RecvMulti submits a streaming buffer-select receive.
func RecvMulti(d *Driver, fd int32, ring *ringbuf.Ring) (*MultiHandle[*ringbuf.Provided], error) {
	p := NewRecvMultiPayload(ring)
	return SubmitMulti[*ringbuf.Provided](d, p, p.Prep(fd))
}

// RecvMsg submits an addressed receive of up to bufLen bytes.
func RecvMsg(d *Driver, fd int32, network string, bufLen int) (*Handle[RecvMsgResult], error) {
	p := NewRecvMsgPayload(network, bufLen)
	return Submit[RecvMsgResult](d, p, p.Prep(fd))
}

// Send submits a send of a private copy of data on a connected socket.
func Send(d *Driver, fd int32, data []byte) (*Handle[int], error) {
	p := NewSendPayload(data)
	return Submit[int](d, p, p.Prep(fd))
}

// SendTo submits an addressed send of a private copy of data.
func SendTo(d *Driver, fd int32, data []byte, addr net.Addr) (*Handle[int], error) {
	p, err := NewSendMsgPayload(data, addr)
	if err != nil {
		return nil, err
	}
	return Submit[int](d, p, p.Prep(fd))
}

// Write submits a write of a private copy of data.
func Write(d *Driver, fd int32, data []byte) (*Handle[int], error) {
	p := NewWritePayload(data)
	return Submit[int](d, p, p.Prep(fd))
}

// Shutdown submits a shutdown(how) on fd.
func Shutdown(d *Driver, fd int32, how int) (*Handle[Unit], error) {
	p := NewShutdownPayload()
	return Submit[Unit](d, p, p.Prep(fd, how))
}

// Close submits a ring-ordered close of fd.
func Close(d *Driver, fd int32) (*Handle[Unit], error) {
	p := NewClosePayload()
	return Submit[Unit](d, p, p.Prep(fd))
}

// Timeout submits a timer that completes after dur elapses.
func Timeout(d *Driver, dur time.Duration) (*Handle[Unit], error) {
	p := NewTimeoutPayload(dur)
	return Submit[Unit](d, p, p.Prep())
}
