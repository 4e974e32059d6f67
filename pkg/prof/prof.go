//go:build profile

package prof

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"
	"runtime"
	rpprof "runtime/pprof"
	"sync"

	"github.com/ardnew/softtwi/pkg"
)

// Enabled reports whether profiling is compiled in.
const Enabled = true

var (
	// cpuMutex protects CPU profiling state.
	cpuMutex sync.Mutex

	// cpuFile is the open profile when writing to a path.
	cpuFile *os.File

	// cpuActive indicates a CPU profile is being written.
	cpuActive bool
)

// Register mounts the pprof handlers under /debug/pprof/ on mux.
func Register(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
}

// StartCPU starts CPU profiling into a new file at path.
func StartCPU(path string) error {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	if cpuActive {
		return ErrCPUProfileActive
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cpu profile: %w", err)
	}
	if err := rpprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("cpu profile: %w", err)
	}

	cpuFile = f
	cpuActive = true
	pkg.LogDebug(pkg.ComponentMonitor, "cpu profile started", "path", path)
	return nil
}

// StartCPUWriter starts CPU profiling into w.
func StartCPUWriter(w io.Writer) error {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	if cpuActive {
		return ErrCPUProfileActive
	}
	if err := rpprof.StartCPUProfile(w); err != nil {
		return fmt.Errorf("cpu profile: %w", err)
	}

	cpuActive = true
	return nil
}

// StopCPU stops CPU profiling. It does nothing if no profile is active.
func StopCPU() {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()

	if !cpuActive {
		return
	}

	rpprof.StopCPUProfile()
	if cpuFile != nil {
		if err := cpuFile.Close(); err != nil {
			pkg.LogWarn(pkg.ComponentMonitor, "close cpu profile", "error", err)
		}
		cpuFile = nil
	}
	cpuActive = false
}

// IsCPUActive reports whether a CPU profile is being written.
func IsCPUActive() bool {
	cpuMutex.Lock()
	defer cpuMutex.Unlock()
	return cpuActive
}

// Write writes a snapshot profile to a new file at path.
func Write(profile Profile, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTo(profile, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// WriteTo writes a snapshot profile to w in protobuf format.
func WriteTo(profile Profile, w io.Writer) error {
	if profile == ProfileCPU {
		return fmt.Errorf("%w: use StartCPU for %s", ErrInvalidProfile, profile)
	}
	p := rpprof.Lookup(profile.String())
	if p == nil {
		return fmt.Errorf("%w: %q", ErrInvalidProfile, profile)
	}
	return p.WriteTo(w, 0)
}

// Capture writes every profile in Snapshots into dir, which is created if
// needed, and returns the written paths.
func Capture(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var (
		paths []string
		errs  []error
	)
	for _, p := range Snapshots {
		path := filepath.Join(dir, p.String()+".pprof")
		if err := Write(p, path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		paths = append(paths, path)
	}
	return paths, errors.Join(errs...)
}

// SetBlockProfileRate sets the block profile sampling rate in nanoseconds
// spent blocked. Zero disables the profile, one records every event.
func SetBlockProfileRate(rate int) {
	runtime.SetBlockProfileRate(rate)
}

// SetMutexProfileFraction records on average 1/rate mutex contention
// events. Zero disables the profile.
func SetMutexProfileFraction(rate int) {
	runtime.SetMutexProfileFraction(rate)
}
