//go:build !profile

package prof

import (
	"io"
	"net/http"
)

// Enabled reports whether profiling is compiled in.
const Enabled = false

// Register is a no-op when built without the "profile" tag.
func Register(_ *http.ServeMux) {}

// StartCPU is a no-op when built without the "profile" tag.
func StartCPU(_ string) error {
	return nil
}

// StartCPUWriter is a no-op when built without the "profile" tag.
func StartCPUWriter(_ io.Writer) error {
	return nil
}

// StopCPU is a no-op when built without the "profile" tag.
func StopCPU() {}

// IsCPUActive always returns false when built without the "profile" tag.
func IsCPUActive() bool {
	return false
}

// Write is a no-op when built without the "profile" tag.
func Write(_ Profile, _ string) error {
	return nil
}

// WriteTo is a no-op when built without the "profile" tag.
func WriteTo(_ Profile, _ io.Writer) error {
	return nil
}

// Capture writes nothing when built without the "profile" tag.
func Capture(_ string) ([]string, error) {
	return nil, nil
}

// SetBlockProfileRate is a no-op when built without the "profile" tag.
func SetBlockProfileRate(_ int) {}

// SetMutexProfileFraction is a no-op when built without the "profile" tag.
func SetMutexProfileFraction(_ int) {}
