// File: api/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Live debug and introspection support for long-running loop workloads.

package api

// Debug exposes runtime introspection and health API.
type Debug interface {
	// DumpState emits a snapshot of system state for diagnostics.
	DumpState() map[string]any

	// RegisterProbe dynamically registers new debug probes.
	RegisterProbe(name string, fn func() any)
}
