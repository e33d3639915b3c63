package driver

import "sync/atomic"

// Metrics tracks operational counters for one driver. All fields are
// updated lock-free from the submit path and the reaper; a snapshot is a
// set of independent loads, not a consistent cut.
type Metrics struct {
	// Submitted counts operations entered into the slab.
	Submitted atomic.Uint64
	// Completed counts terminal CQEs (no more flag) bearing an operation
	// cookie, including those absorbed by an Ignored entry.
	Completed atomic.Uint64
	// MultishotYields counts intermediate CQEs of streaming operations.
	MultishotYields atomic.Uint64
	// Cancelled counts handles dropped while their operation was in flight.
	Cancelled atomic.Uint64
	// IgnoredCQEs counts completions absorbed after their handle was gone.
	IgnoredCQEs atomic.Uint64
	// KernelErrors counts CQEs carrying a negative result.
	KernelErrors atomic.Uint64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Submitted       uint64
	Completed       uint64
	MultishotYields uint64
	Cancelled       uint64
	IgnoredCQEs     uint64
	KernelErrors    uint64
}

// Snapshot reads every counter once.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Submitted:       m.Submitted.Load(),
		Completed:       m.Completed.Load(),
		MultishotYields: m.MultishotYields.Load(),
		Cancelled:       m.Cancelled.Load(),
		IgnoredCQEs:     m.IgnoredCQEs.Load(),
		KernelErrors:    m.KernelErrors.Load(),
	}
}

// Metrics returns the driver's live counters.
func (d *Driver) Metrics() *Metrics { return &d.metrics }
