// File: internal/affinity/affinity_stub.go
//go:build !linux

// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fallback for platforms without thread affinity support: workers run
// wherever the OS scheduler places them.

package affinity

import "errors"

var errUnsupported = errors.New("affinity: pinning not supported on this platform")

func platformPin(cpuID int) error {
	return errUnsupported
}

func platformUnpin() {}
