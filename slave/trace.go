package slave

import (
	"github.com/ardnew/softtwi/pkg"
	"github.com/ardnew/softtwi/slave/hal"
)

// TraceEvent describes one serviced interrupt.
type TraceEvent struct {
	Status   hal.Status
	Data     byte
	From     State
	To       State
	Control  hal.Control
	Released bool
	Cursor   int
	Callback Callback
	Address  int
	Count    int
	Done     bool
	Outcome  pkg.Outcome
	Fault    error
}

// Tracer observes serviced interrupts. Trace runs in interrupt context
// after the control register was written; it must not block.
type Tracer interface {
	Trace(ev TraceEvent)
}

// TracerFunc adapts a function to the Tracer interface.
type TracerFunc func(ev TraceEvent)

// Trace calls f(ev).
func (f TracerFunc) Trace(ev TraceEvent) {
	f(ev)
}
