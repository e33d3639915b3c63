//go:build !linux

package driver

import "fmt"

// KernelRingConfig controls the underlying io_uring instance.
type KernelRingConfig struct {
	Entries uint32
	SQPoll  bool
}

// NewKernelRing is only available on Linux; every other platform lacks a
// completion-based submission interface for this driver to sit on.
func NewKernelRing(cfg KernelRingConfig) (Ring, error) {
	return nil, fmt.Errorf("driver: io_uring requires linux")
}
