// File: internal/affinity/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// CPU pinning for loop workers. Pinning a worker locks its goroutine to an
// OS thread and binds that thread to one logical CPU so thread-local loop
// state stays cache-resident for the lifetime of the pool.

package affinity

import "runtime"

// Pin locks the calling goroutine to an OS thread and binds the thread to
// the given logical CPU. Returns false when pinning is unavailable on this
// platform; the worker then runs unpinned.
func Pin(cpuID int) bool {
	runtime.LockOSThread()
	if err := platformPin(cpuID); err != nil {
		runtime.UnlockOSThread()
		return false
	}
	return true
}

// Unpin clears the CPU binding and releases the OS thread.
func Unpin() {
	platformUnpin()
	runtime.UnlockOSThread()
}

// NumCPUs returns the number of logical CPUs.
func NumCPUs() int {
	return runtime.NumCPU()
}
