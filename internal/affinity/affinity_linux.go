// File: internal/affinity/affinity_linux.go
//go:build linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Linux affinity via sched_setaffinity on the calling thread.

package affinity

import (
	"golang.org/x/sys/unix"
)

func platformPin(cpuID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID % NumCPUs())
	return unix.SchedSetaffinity(0, &set)
}

func platformUnpin() {
	var set unix.CPUSet
	set.Zero()
	for i := 0; i < NumCPUs(); i++ {
		set.Set(i)
	}
	_ = unix.SchedSetaffinity(0, &set)
}
