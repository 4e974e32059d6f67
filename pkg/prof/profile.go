package prof

import (
	"fmt"

	"github.com/ardnew/softtwi/pkg"
)

// Profiling errors.
var (
	// ErrCPUProfileActive indicates a CPU profile is already being written.
	ErrCPUProfileActive = fmt.Errorf("cpu profile: %w", pkg.ErrAlreadyRunning)

	// ErrInvalidProfile indicates an unknown profile, or the CPU profile
	// where only snapshot profiles are accepted.
	ErrInvalidProfile = fmt.Errorf("profile: %w", pkg.ErrInvalidParameter)
)

// Profile is a runtime/pprof profile name.
type Profile string

// Profile names.
const (
	ProfileCPU          Profile = "cpu"
	ProfileHeap         Profile = "heap"
	ProfileAllocs       Profile = "allocs"
	ProfileGoroutine    Profile = "goroutine"
	ProfileThreadCreate Profile = "threadcreate"
	ProfileBlock        Profile = "block"
	ProfileMutex        Profile = "mutex"
)

// String returns the profile name.
func (p Profile) String() string {
	return string(p)
}

// Snapshots lists the profiles Capture writes.
var Snapshots = []Profile{ProfileHeap, ProfileGoroutine, ProfileBlock, ProfileMutex}
