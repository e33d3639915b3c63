package driver

import (
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"
)

// sockaddrStorage is the pinned peer-address memory a payload hands to the
// kernel: big enough for any address family, plus the length slot the kernel
// writes back through. It lives inside the payload so it survives as long as
// the kernel holds a pointer to it, including across an Ignored handle.
type sockaddrStorage struct {
	raw unix.RawSockaddrAny
	len uint32
}

func newSockaddrStorage() *sockaddrStorage {
	return &sockaddrStorage{len: unix.SizeofSockaddrAny}
}

func (s *sockaddrStorage) rawPtr() uint64 {
	return uint64(uintptr(unsafe.Pointer(&s.raw)))
}

func (s *sockaddrStorage) lenPtr() uint64 {
	return uint64(uintptr(unsafe.Pointer(&s.len)))
}

// EncodeSockaddr serializes addr into kernel sockaddr wire form. The
// returned storage pins the bytes the SQE will point at; the second return
// is the address length to place in the SQE.
func EncodeSockaddr(addr net.Addr) (*sockaddrStorage, uint32, error) {
	s := newSockaddrStorage()
	switch a := addr.(type) {
	case *net.TCPAddr:
		return encodeIP(s, a.IP, a.Port, a.Zone)
	case *net.UDPAddr:
		return encodeIP(s, a.IP, a.Port, a.Zone)
	case *net.UnixAddr:
		return encodeUnix(s, a.Name)
	default:
		return nil, 0, fmt.Errorf("driver: unsupported address type %T", addr)
	}
}

func encodeIP(s *sockaddrStorage, ip net.IP, port int, zone string) (*sockaddrStorage, uint32, error) {
	if ip4 := ip.To4(); ip4 != nil {
		sa := (*unix.RawSockaddrInet4)(unsafe.Pointer(&s.raw))
		sa.Family = unix.AF_INET
		sa.Port = htons(uint16(port))
		copy(sa.Addr[:], ip4)
		s.len = unix.SizeofSockaddrInet4
		return s, s.len, nil
	}
	if ip16 := ip.To16(); ip16 != nil {
		sa := (*unix.RawSockaddrInet6)(unsafe.Pointer(&s.raw))
		sa.Family = unix.AF_INET6
		sa.Port = htons(uint16(port))
		copy(sa.Addr[:], ip16)
		if zone != "" {
			ifi, err := net.InterfaceByName(zone)
			if err == nil {
				sa.Scope_id = uint32(ifi.Index)
			}
		}
		s.len = unix.SizeofSockaddrInet6
		return s, s.len, nil
	}
	return nil, 0, fmt.Errorf("driver: address has no usable IP")
}

func encodeUnix(s *sockaddrStorage, name string) (*sockaddrStorage, uint32, error) {
	sa := (*unix.RawSockaddrUnix)(unsafe.Pointer(&s.raw))
	if len(name) >= len(sa.Path) {
		return nil, 0, fmt.Errorf("driver: unix socket path too long: %d bytes", len(name))
	}
	sa.Family = unix.AF_UNIX
	for i := 0; i < len(name); i++ {
		sa.Path[i] = int8(name[i])
	}
	// Family (2 bytes) + path + trailing NUL.
	s.len = uint32(2 + len(name) + 1)
	if name == "" {
		s.len = 2 // autobind
	}
	return s, s.len, nil
}

// DecodeSockaddr deserializes a kernel-written sockaddr back into the net
// address type matching network ("tcp", "udp", "unix").
func DecodeSockaddr(s *sockaddrStorage, network string) (net.Addr, error) {
	switch s.raw.Addr.Family {
	case unix.AF_INET:
		sa := (*unix.RawSockaddrInet4)(unsafe.Pointer(&s.raw))
		ip := make(net.IP, 4)
		copy(ip, sa.Addr[:])
		return ipAddr(network, ip, int(ntohs(sa.Port)), ""), nil
	case unix.AF_INET6:
		sa := (*unix.RawSockaddrInet6)(unsafe.Pointer(&s.raw))
		ip := make(net.IP, 16)
		copy(ip, sa.Addr[:])
		zone := ""
		if sa.Scope_id != 0 {
			if ifi, err := net.InterfaceByIndex(int(sa.Scope_id)); err == nil {
				zone = ifi.Name
			}
		}
		return ipAddr(network, ip, int(ntohs(sa.Port)), zone), nil
	case unix.AF_UNIX:
		sa := (*unix.RawSockaddrUnix)(unsafe.Pointer(&s.raw))
		n := 0
		// s.len covers family + path; an abstract-namespace name starts with
		// a NUL and is length-delimited, a pathname one is NUL-terminated.
		max := int(s.len) - 2
		if max > len(sa.Path) {
			max = len(sa.Path)
		}
		for n < max && !(n > 0 && sa.Path[n] == 0) {
			n++
		}
		name := make([]byte, n)
		for i := 0; i < n; i++ {
			name[i] = byte(sa.Path[i])
		}
		return &net.UnixAddr{Net: "unix", Name: string(name)}, nil
	default:
		return nil, fmt.Errorf("driver: unsupported sockaddr family %d", s.raw.Addr.Family)
	}
}

func ipAddr(network string, ip net.IP, port int, zone string) net.Addr {
	switch network {
	case "udp", "udp4", "udp6":
		return &net.UDPAddr{IP: ip, Port: port, Zone: zone}
	default:
		return &net.TCPAddr{IP: ip, Port: port, Zone: zone}
	}
}

// Sockaddr ports are in network byte order regardless of host endianness.
func htons(v uint16) uint16 { return v<<8 | v>>8 }
func ntohs(v uint16) uint16 { return v<<8 | v>>8 }
