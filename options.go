package ringio

import "github.com/coreglyph/ringio/internal/logging"

// Options configures a Runtime. The zero value is not usable; start from
// DefaultOptions and override.
type Options struct {
	// Entries is the submission queue depth.
	Entries uint32

	// SQPoll enables kernel-side submission polling (a dedicated kernel
	// thread watching the SQ), trading a core for lower submit latency.
	SQPoll bool

	// BufferGroupID is the buffer-select group the runtime registers its
	// pool under. Only needs changing when embedding ringio next to another
	// ring user in the same process.
	BufferGroupID uint16

	// RingEntries is the provided-buffer ring's slot count, coerced up to a
	// power of two.
	RingEntries int

	// BufferCount and BufferLen size the pool: BufferCount buffers of
	// BufferLen bytes each. A receive never yields more than BufferLen
	// bytes at once.
	BufferCount int
	BufferLen   uint32

	// Logger receives the runtime's diagnostics. Nil means the process
	// default.
	Logger *logging.Logger
}

// DefaultOptions returns the standard sizing: a 256-deep submission queue
// and 256 four-KiB pool buffers.
func DefaultOptions() Options {
	return Options{
		Entries:       256,
		BufferGroupID: 1337,
		RingEntries:   256,
		BufferCount:   256,
		BufferLen:     4096,
	}
}

func (o *Options) validate() error {
	if o.Entries == 0 {
		return newInvalidInput("options", "Entries must be positive")
	}
	if o.RingEntries <= 0 || o.BufferCount <= 0 || o.BufferLen == 0 {
		return newInvalidInput("options", "buffer pool sizes must be positive")
	}
	if o.BufferCount > o.RingEntries {
		return newInvalidInput("options", "BufferCount cannot exceed RingEntries")
	}
	return nil
}
