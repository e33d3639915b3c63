package ringio

import (
	"context"
	"net"

	"golang.org/x/sys/unix"

	"github.com/coreglyph/ringio/internal/driver"
)

// ListenUnix binds and listens on a Unix-domain stream socket at path. The
// socket file must not already exist.
func ListenUnix(ctx context.Context, path string) (*Listener, error) {
	addr := &net.UnixAddr{Net: "unix", Name: path}
	fd, err := bindSocket(addr, unix.SOCK_STREAM)
	if err != nil {
		return nil, err
	}
	if err := unix.Listen(int(fd), listenBacklog); err != nil {
		unix.Close(int(fd))
		return nil, newKernelError("listen", errnoOf(err))
	}
	return newListener(fd, "unix"), nil
}

// DialUnix connects to the Unix-domain stream socket at path.
func DialUnix(ctx context.Context, path string) (*Stream, error) {
	addr := &net.UnixAddr{Net: "unix", Name: path}
	fd, err := newSocket(addr, unix.SOCK_STREAM)
	if err != nil {
		return nil, err
	}
	d := driver.FromContext(ctx)
	h, err := driver.Connect(d, fd, addr)
	if err != nil {
		unix.Close(int(fd))
		return nil, liftError("connect", err)
	}
	if _, err := h.Wait(ctx); err != nil {
		unix.Close(int(fd))
		return nil, liftError("connect", err)
	}
	return newStream(fd, "unix"), nil
}
