package ringio

import (
	"context"
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/coreglyph/ringio/internal/driver"
)

// Socket plumbing shared by the TCP/UDP/Unix constructors: create the fd,
// apply the standard options, bind/listen. Everything here is synchronous
// setup; only connect/accept/IO go through the ring.

func domainOf(addr net.Addr) (int, error) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return ipDomain(a.IP), nil
	case *net.UDPAddr:
		return ipDomain(a.IP), nil
	case *net.UnixAddr:
		return unix.AF_UNIX, nil
	default:
		return 0, newInvalidInput("socket", "unsupported address type")
	}
}

func ipDomain(ip net.IP) int {
	if ip == nil || ip.To4() != nil {
		return unix.AF_INET
	}
	return unix.AF_INET6
}

func newSocket(addr net.Addr, sotype int) (int32, error) {
	domain, err := domainOf(addr)
	if err != nil {
		return -1, err
	}
	fd, err := unix.Socket(domain, sotype|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, newKernelError("socket", errnoOf(err))
	}
	return int32(fd), nil
}

func bindSocket(addr net.Addr, sotype int) (int32, error) {
	fd, err := newSocket(addr, sotype)
	if err != nil {
		return -1, err
	}
	if _, isUnix := addr.(*net.UnixAddr); !isUnix {
		// Rebinding a recently used port is routine for servers; both
		// options match what every mainstream listener sets.
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	}
	sa, err := unixSockaddr(addr)
	if err != nil {
		unix.Close(int(fd))
		return -1, err
	}
	if err := unix.Bind(int(fd), sa); err != nil {
		unix.Close(int(fd))
		return -1, newKernelError("bind", errnoOf(err))
	}
	return fd, nil
}

func unixSockaddr(addr net.Addr) (unix.Sockaddr, error) {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return ipSockaddr(a.IP, a.Port)
	case *net.UDPAddr:
		return ipSockaddr(a.IP, a.Port)
	case *net.UnixAddr:
		return &unix.SockaddrUnix{Name: a.Name}, nil
	default:
		return nil, newInvalidInput("socket", "unsupported address type")
	}
}

func ipSockaddr(ip net.IP, port int) (unix.Sockaddr, error) {
	if ip == nil {
		return &unix.SockaddrInet4{Port: port}, nil
	}
	if ip4 := ip.To4(); ip4 != nil {
		sa := &unix.SockaddrInet4{Port: port}
		copy(sa.Addr[:], ip4)
		return sa, nil
	}
	if ip16 := ip.To16(); ip16 != nil {
		sa := &unix.SockaddrInet6{Port: port}
		copy(sa.Addr[:], ip16)
		return sa, nil
	}
	return nil, newInvalidInput("socket", "address has no usable IP")
}

// localAddr asks the kernel for fd's bound address, e.g. to learn the port
// after binding to :0.
func localAddr(fd int32, network string) net.Addr {
	sa, err := unix.Getsockname(int(fd))
	if err != nil {
		return nil
	}
	return fromUnixSockaddr(sa, network)
}

func peerAddr(fd int32, network string) net.Addr {
	sa, err := unix.Getpeername(int(fd))
	if err != nil {
		return nil
	}
	return fromUnixSockaddr(sa, network)
}

func fromUnixSockaddr(sa unix.Sockaddr, network string) net.Addr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, 4)
		copy(ip, a.Addr[:])
		if network == "udp" {
			return &net.UDPAddr{IP: ip, Port: a.Port}
		}
		return &net.TCPAddr{IP: ip, Port: a.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, 16)
		copy(ip, a.Addr[:])
		if network == "udp" {
			return &net.UDPAddr{IP: ip, Port: a.Port}
		}
		return &net.TCPAddr{IP: ip, Port: a.Port}
	case *unix.SockaddrUnix:
		return &net.UnixAddr{Net: "unix", Name: a.Name}
	default:
		return nil
	}
}

// resolveCandidates expands host:port into the list of concrete addresses a
// dial should try in order. A literal IP yields exactly one candidate; a
// hostname yields one per resolved IP.
func resolveCandidates(network, address string) ([]net.Addr, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, newInvalidInput("resolve", err.Error())
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return nil, newInvalidInput("resolve", "invalid port "+portStr)
	}

	var ips []net.IP
	if ip := net.ParseIP(host); ip != nil {
		ips = []net.IP{ip}
	} else {
		ips, err = net.LookupIP(host)
		if err != nil {
			return nil, newAddressResolutionError("resolve", err)
		}
	}

	addrs := make([]net.Addr, 0, len(ips))
	for _, ip := range ips {
		switch network {
		case "udp":
			addrs = append(addrs, &net.UDPAddr{IP: ip, Port: port})
		default:
			addrs = append(addrs, &net.TCPAddr{IP: ip, Port: port})
		}
	}
	return addrs, nil
}

// closeFD closes fd through the ring and waits for the close to complete.
// The close is not ordered behind other in-flight submissions against fd.
func closeFD(ctx context.Context, fd int32) error {
	d := driver.FromContext(ctx)
	h, err := driver.Close(d, fd)
	if err != nil {
		return err
	}
	if _, err := h.Wait(ctx); err != nil {
		return liftError("close", err)
	}
	return nil
}
