package timer

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ardnew/softtwi/pkg"
)

// Resolution is the number of counter steps per period.
const Resolution = 256

// ClockSelect is the counter clock source, in AVR CS0[2:0] encoding.
type ClockSelect uint8

// Clock sources.
const (
	ClockStopped ClockSelect = iota
	ClockDiv1
	ClockDiv8
	ClockDiv64
	ClockDiv256
	ClockDiv1024
)

// Divisor returns the prescaler ratio, or zero for a stopped clock.
func (c ClockSelect) Divisor() uint32 {
	switch c {
	case ClockDiv1:
		return 1
	case ClockDiv8:
		return 8
	case ClockDiv64:
		return 64
	case ClockDiv256:
		return 256
	case ClockDiv1024:
		return 1024
	default:
		return 0
	}
}

// String returns the clock source name.
func (c ClockSelect) String() string {
	if c == ClockStopped {
		return "stopped"
	}
	if d := c.Divisor(); d != 0 {
		return fmt.Sprintf("clk/%d", d)
	}
	return "unknown"
}

// ladder lists the prescalers tried from finest to coarsest.
var ladder = []ClockSelect{ClockDiv1, ClockDiv8, ClockDiv64, ClockDiv256, ClockDiv1024}

// Period returns the finest prescaler whose compare value fits in eight
// bits for the given period. Periods too long for the coarsest prescaler
// are clamped to its maximum.
func Period(microseconds, cpuHz uint32) (ClockSelect, uint8) {
	cycles := uint64(cpuHz/1_000_000) * uint64(microseconds)
	for _, cs := range ladder {
		if n := cycles / uint64(cs.Divisor()); n < Resolution {
			return cs, uint8(n)
		}
	}
	return ClockDiv1024, Resolution - 1
}

// Interval returns the time between compare matches for a counter
// clocked at cpuHz.
func Interval(cs ClockSelect, compare uint8, cpuHz uint32) time.Duration {
	d := cs.Divisor()
	if d == 0 || cpuHz == 0 {
		return 0
	}
	cycles := (uint64(compare) + 1) * uint64(d)
	return time.Duration(cycles * uint64(time.Second) / uint64(cpuHz))
}

// Counter is the compare-match counter hardware.
type Counter interface {
	// SetCompare writes the compare register.
	SetCompare(v uint8)

	// SetClockSelect writes the clock source. ClockStopped halts the counter.
	SetClockSelect(cs ClockSelect)

	// EnableInterrupt sets or clears the compare-match interrupt enable.
	EnableInterrupt(enable bool)

	// Reset clears the counter register.
	Reset()
}

// Timer runs a handler at a fixed period.
type Timer struct {
	counter Counter
	cpuHz   uint32

	cs      ClockSelect
	compare uint8

	handler atomic.Pointer[func()]
	fired   atomic.Uint64
}

// New creates a timer on counter, which is clocked at cpuHz.
func New(counter Counter, cpuHz uint32) *Timer {
	return &Timer{counter: counter, cpuHz: cpuHz}
}

// Initialize stops the counter and programs the period.
func (t *Timer) Initialize(microseconds uint32) error {
	t.counter.SetClockSelect(ClockStopped)
	return t.SetPeriod(microseconds)
}

// SetPeriod programs the period and starts the clock.
func (t *Timer) SetPeriod(microseconds uint32) error {
	if microseconds == 0 {
		return fmt.Errorf("timer period 0: %w", pkg.ErrInvalidParameter)
	}
	if t.cpuHz < 1_000_000 {
		return fmt.Errorf("timer clock %d Hz: %w", t.cpuHz, pkg.ErrInvalidParameter)
	}

	t.cs, t.compare = Period(microseconds, t.cpuHz)
	t.counter.SetCompare(t.compare)
	t.counter.SetClockSelect(t.cs)

	pkg.LogDebug(pkg.ComponentTimer, "timer period set",
		"us", microseconds,
		"clock", t.cs.String(),
		"compare", t.compare,
		"interval", t.Interval())
	return nil
}

// AttachInterrupt installs fn as the compare-match handler and enables the
// interrupt. A non-zero period is programmed first.
func (t *Timer) AttachInterrupt(fn func(), microseconds uint32) error {
	if fn == nil {
		return fmt.Errorf("nil timer handler: %w", pkg.ErrInvalidParameter)
	}
	if microseconds > 0 {
		if err := t.SetPeriod(microseconds); err != nil {
			return err
		}
	}
	t.handler.Store(&fn)
	t.counter.EnableInterrupt(true)
	return nil
}

// DetachInterrupt disables the compare-match interrupt.
func (t *Timer) DetachInterrupt() {
	t.counter.EnableInterrupt(false)
}

// Start enables the interrupt, clears the counter and restarts the clock
// with the programmed prescaler.
func (t *Timer) Start() error {
	if t.cs == ClockStopped {
		return fmt.Errorf("timer has no period: %w", pkg.ErrNotInitialized)
	}
	t.counter.EnableInterrupt(true)
	t.counter.Reset()
	t.counter.SetClockSelect(t.cs)
	return nil
}

// Stop halts the clock. The programmed period is kept for Start.
func (t *Timer) Stop() {
	t.counter.SetClockSelect(ClockStopped)
}

// HandleInterrupt services the compare-match interrupt. Route the
// counter's interrupt vector here.
func (t *Timer) HandleInterrupt() {
	t.fired.Add(1)
	if fn := t.handler.Load(); fn != nil {
		(*fn)()
	}
}

// Interval returns the programmed period.
func (t *Timer) Interval() time.Duration {
	return Interval(t.cs, t.compare, t.cpuHz)
}

// Settings returns the programmed prescaler and compare value.
func (t *Timer) Settings() (ClockSelect, uint8) {
	return t.cs, t.compare
}

// Fired returns the number of serviced interrupts.
func (t *Timer) Fired() uint64 {
	return t.fired.Load()
}
