package timer

import (
	"errors"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardnew/softtwi/pkg"
)

// fakeCounter records register writes.
type fakeCounter struct {
	compare uint8
	cs      ClockSelect
	enabled bool
	resets  int
	log     []string
}

func (c *fakeCounter) SetCompare(v uint8) {
	c.compare = v
	c.log = append(c.log, "compare")
}

func (c *fakeCounter) SetClockSelect(cs ClockSelect) {
	c.cs = cs
	c.log = append(c.log, "clock:"+cs.String())
}

func (c *fakeCounter) EnableInterrupt(enable bool) {
	c.enabled = enable
	if enable {
		c.log = append(c.log, "irq:on")
	} else {
		c.log = append(c.log, "irq:off")
	}
}

func (c *fakeCounter) Reset() {
	c.resets++
	c.log = append(c.log, "reset")
}

// =============================================================================
// Period Tests
// =============================================================================

func TestPeriod(t *testing.T) {
	tests := []struct {
		us      uint32
		cpuHz   uint32
		cs      ClockSelect
		compare uint8
	}{
		{10, 16_000_000, ClockDiv1, 160},
		{100, 16_000_000, ClockDiv8, 200},
		{1_000, 16_000_000, ClockDiv64, 250},
		{4_000, 16_000_000, ClockDiv256, 250},
		{10_000, 16_000_000, ClockDiv1024, 156},
		{20_000, 16_000_000, ClockDiv1024, 255},
		{1_000, 8_000_000, ClockDiv64, 125},
		{15, 1_000_000, ClockDiv1, 15},
	}

	for _, tt := range tests {
		cs, compare := Period(tt.us, tt.cpuHz)
		if cs != tt.cs || compare != tt.compare {
			t.Errorf("Period(%d, %d) = (%v, %d), want (%v, %d)",
				tt.us, tt.cpuHz, cs, compare, tt.cs, tt.compare)
		}
	}
}

func TestInterval(t *testing.T) {
	tests := []struct {
		cs      ClockSelect
		compare uint8
		want    time.Duration
	}{
		{ClockDiv64, 249, time.Millisecond},
		{ClockDiv64, 250, 1004 * time.Microsecond},
		{ClockDiv1, 15, time.Microsecond},
		{ClockDiv1024, 255, 16384 * time.Microsecond},
		{ClockStopped, 100, 0},
	}

	for _, tt := range tests {
		if got := Interval(tt.cs, tt.compare, 16_000_000); got != tt.want {
			t.Errorf("Interval(%v, %d) = %v, want %v", tt.cs, tt.compare, got, tt.want)
		}
	}
}

func TestClockSelect_String(t *testing.T) {
	tests := []struct {
		cs   ClockSelect
		want string
	}{
		{ClockStopped, "stopped"},
		{ClockDiv1, "clk/1"},
		{ClockDiv1024, "clk/1024"},
		{ClockSelect(7), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.cs.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// =============================================================================
// Timer Tests
// =============================================================================

func TestTimer_Initialize(t *testing.T) {
	c := &fakeCounter{}
	tm := New(c, 16_000_000)

	if err := tm.Initialize(1_000); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	want := []string{"clock:stopped", "compare", "clock:clk/64"}
	if !slices.Equal(c.log, want) {
		t.Errorf("register writes = %v, want %v", c.log, want)
	}
	if c.compare != 250 || c.enabled {
		t.Errorf("counter = %+v", c)
	}
	if cs, cmp := tm.Settings(); cs != ClockDiv64 || cmp != 250 {
		t.Errorf("Settings() = (%v, %d)", cs, cmp)
	}
}

func TestTimer_InvalidPeriod(t *testing.T) {
	tm := New(&fakeCounter{}, 16_000_000)
	if err := tm.SetPeriod(0); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("SetPeriod(0) error = %v, want ErrInvalidParameter", err)
	}

	slow := New(&fakeCounter{}, 32_768)
	if err := slow.SetPeriod(100); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("SetPeriod() on slow clock error = %v, want ErrInvalidParameter", err)
	}
}

func TestTimer_AttachDetach(t *testing.T) {
	c := &fakeCounter{}
	tm := New(c, 16_000_000)
	tm.Initialize(1_000)

	if err := tm.AttachInterrupt(nil, 0); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("AttachInterrupt(nil) error = %v", err)
	}

	calls := 0
	if err := tm.AttachInterrupt(func() { calls++ }, 100); err != nil {
		t.Fatalf("AttachInterrupt() error = %v", err)
	}
	if !c.enabled || c.cs != ClockDiv8 {
		t.Errorf("counter = %+v", c)
	}

	tm.HandleInterrupt()
	tm.HandleInterrupt()
	if calls != 2 || tm.Fired() != 2 {
		t.Errorf("calls = %d, fired = %d, want 2", calls, tm.Fired())
	}

	tm.DetachInterrupt()
	if c.enabled {
		t.Error("interrupt still enabled")
	}
}

func TestTimer_StartStop(t *testing.T) {
	c := &fakeCounter{}
	tm := New(c, 16_000_000)

	if err := tm.Start(); !errors.Is(err, pkg.ErrNotInitialized) {
		t.Errorf("Start() before Initialize error = %v", err)
	}

	tm.Initialize(4_000)
	tm.Stop()
	if c.cs != ClockStopped {
		t.Errorf("clock = %v after Stop", c.cs)
	}

	c.log = nil
	if err := tm.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	want := []string{"irq:on", "reset", "clock:clk/256"}
	if !slices.Equal(c.log, want) {
		t.Errorf("register writes = %v, want %v", c.log, want)
	}
}

func TestTimer_HandleInterruptWithoutHandler(t *testing.T) {
	tm := New(&fakeCounter{}, 16_000_000)
	tm.HandleInterrupt()
	if tm.Fired() != 1 {
		t.Errorf("Fired() = %d, want 1", tm.Fired())
	}
}

// =============================================================================
// Ticker Tests
// =============================================================================

func TestTicker_Ticks(t *testing.T) {
	k := NewTicker(16_000_000)
	tm := New(k, 16_000_000)
	k.Attach(tm.HandleInterrupt)

	var ticks atomic.Int32
	ch := make(chan struct{}, 1)
	tm.Initialize(1_000)
	tm.AttachInterrupt(func() {
		ticks.Add(1)
		select {
		case ch <- struct{}{}:
		default:
		}
	}, 0)

	if !k.Running() {
		t.Fatal("ticker not running")
	}

	deadline := time.After(5 * time.Second)
	for ticks.Load() < 3 {
		select {
		case <-ch:
		case <-deadline:
			t.Fatalf("ticks = %d after 5s", ticks.Load())
		}
	}

	if err := k.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if k.Running() {
		t.Error("ticker running after Close")
	}
	if err := k.Close(); !errors.Is(err, pkg.ErrNotRunning) {
		t.Errorf("second Close() error = %v, want ErrNotRunning", err)
	}
}

func TestTicker_IdleUntilEnabled(t *testing.T) {
	k := NewTicker(16_000_000)
	defer k.Close()

	k.Attach(func() {})
	k.SetCompare(250)
	k.SetClockSelect(ClockDiv64)
	if k.Running() {
		t.Error("ticker running with interrupt disabled")
	}

	k.EnableInterrupt(true)
	if !k.Running() {
		t.Error("ticker not running with interrupt enabled")
	}

	k.SetClockSelect(ClockStopped)
	if k.Running() {
		t.Error("ticker running with clock stopped")
	}
}
