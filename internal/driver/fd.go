package driver

// File descriptor lifetime rules.
//
// A refcounted fd wrapper (close(2) deferred until the kernel no longer
// holds a reference) is unnecessary here. Go needs no explicit counter for
// the memory half of that: every payload embeds (or points at) the storage
// its SQE references, every Handle owns its payload, and an abandoned
// Handle parks the payload in the slab's Ignored state until the terminal
// CQE, so nothing the kernel can still write into is ever collected early.
//
// The fd half is an ownership discipline, not a mechanism: an adapter owns
// its fd and must not close it while any of its own operations are in
// flight. In the root package, Stream.Close cancels its streaming receive
// before submitting the close opcode, and Packet and Listener wait on each
// operation before returning, so they hold no handle between calls. An
// AcceptStream from Listener.Incoming is not cancelled by Listener.Close;
// its owner cancels it before closing the listener.

import "golang.org/x/sys/unix"

// closeIgnoredFD closes an fd delivered by a CQE that nobody is waiting for
// anymore (an accept completing after its handle was dropped). Losing the fd
// would leak a live connection, so this runs synchronously on the reaper.
func closeIgnoredFD(fd int32) {
	if fd >= 0 {
		unix.Close(int(fd))
	}
}
