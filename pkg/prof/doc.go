// Package prof exposes runtime/pprof profiling for the host-side tools.
//
// Profiling is compiled in only with the "profile" build tag:
//
//	go build -tags profile ./examples/sim-monitor
//
// Without the tag every function is a no-op and [Enabled] is false, so
// commands keep their profiling flags without carrying net/http/pprof.
//
// # HTTP Endpoints
//
// [Register] mounts the pprof handlers under /debug/pprof/ on a mux. The
// monitor gateway does this on its API router, so a profiled sim-monitor
// serves profiles next to /api/v1:
//
//	go tool pprof http://127.0.0.1:8080/debug/pprof/profile?seconds=10
//
// # CPU Profiling
//
// CPU profiling streams samples until it is stopped:
//
//	prof.StartCPU("cpu.pprof")
//	defer prof.StopCPU()
//
// Starting a second CPU profile returns [ErrCPUProfileActive].
//
// # Snapshots
//
// [Capture] writes the [Snapshots] profiles into a directory, one file per
// profile. Block and mutex samples are only collected after
// [SetBlockProfileRate] and [SetMutexProfileFraction] enable them.
package prof
