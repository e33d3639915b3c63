package ringio

import (
	"context"
	"net"

	"golang.org/x/sys/unix"

	"github.com/coreglyph/ringio/internal/driver"
)

const listenBacklog = 128

// ListenTCP binds and listens on address ("host:port"; port 0 picks a free
// one).
func ListenTCP(ctx context.Context, address string) (*Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return nil, newInvalidInput("listen", err.Error())
	}
	fd, err := bindSocket(addr, unix.SOCK_STREAM)
	if err != nil {
		return nil, err
	}
	if err := unix.Listen(int(fd), listenBacklog); err != nil {
		unix.Close(int(fd))
		return nil, newKernelError("listen", errnoOf(err))
	}
	return newListener(fd, "tcp"), nil
}

// DialTCP connects to address, trying each resolved candidate in order. If
// every one of several candidates fails the error is AddressResolution
// carrying the last attempt's failure; with a single candidate (a literal
// IP) that attempt's error is returned as is.
func DialTCP(ctx context.Context, address string) (*Stream, error) {
	candidates, err := resolveCandidates("tcp", address)
	if err != nil {
		return nil, err
	}

	d := driver.FromContext(ctx)
	var lastErr error
	for _, addr := range candidates {
		fd, err := newSocket(addr, unix.SOCK_STREAM)
		if err != nil {
			lastErr = err
			continue
		}
		h, err := driver.Connect(d, fd, addr)
		if err != nil {
			unix.Close(int(fd))
			lastErr = liftError("connect", err)
			continue
		}
		if _, err := h.Wait(ctx); err != nil {
			unix.Close(int(fd))
			lastErr = liftError("connect", err)
			// A cancelled dial (ctx done) should stop the loop, not fall
			// through to the next candidate.
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		return newStream(fd, "tcp"), nil
	}
	if len(candidates) == 1 {
		return nil, lastErr
	}
	return nil, newAddressResolutionError("dial", lastErr)
}
