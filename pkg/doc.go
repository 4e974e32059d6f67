// Package pkg provides shared utilities for the softtwi slave stack.
//
// This package contains common functionality used by the slave engine,
// its hardware abstraction layers, the timer and the master-side tools:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for bus and protocol faults
//   - Component identifiers for log filtering
//
// Subpackage prof exposes runtime profiling for the host-side tools.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with bus-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentSlave, "slave initialized", "address", 0x28)
//
// The interrupt path logs at debug level, apart from a warning when the
// STOP handshake does not complete. A disabled level costs a single
// atomic load.
//
// # Errors
//
// Protocol faults are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrInvalidAddress) {
//	    // master latched an address past the end of the buffer
//	}
package pkg
