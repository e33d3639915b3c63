package ringio

import (
	"context"
	"net"

	"golang.org/x/sys/unix"
)

// BindUDP binds a datagram socket to address ("host:port"; port 0 picks a
// free one).
func BindUDP(ctx context.Context, address string) (*Packet, error) {
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return nil, newInvalidInput("bind", err.Error())
	}
	fd, err := bindSocket(addr, unix.SOCK_DGRAM)
	if err != nil {
		return nil, err
	}
	return newPacket(fd, "udp"), nil
}

// DialUDP creates a datagram socket connected to address; Send and Recv
// then work without explicit destinations.
func DialUDP(ctx context.Context, address string) (*Packet, error) {
	candidates, err := resolveCandidates("udp", address)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, addr := range candidates {
		fd, err := newSocket(addr, unix.SOCK_DGRAM)
		if err != nil {
			lastErr = err
			continue
		}
		pkt := newPacket(fd, "udp")
		if err := pkt.Connect(ctx, addr); err != nil {
			unix.Close(int(fd))
			lastErr = err
			continue
		}
		return pkt, nil
	}
	if len(candidates) == 1 {
		return nil, lastErr
	}
	return nil, newAddressResolutionError("dial", lastErr)
}
