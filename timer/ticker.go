package timer

import (
	"sync"
	"time"

	"github.com/ardnew/softtwi/pkg"
)

// Ticker is a host Counter. While its clock runs and its interrupt is
// enabled it calls the attached handler from its own goroutine once per
// programmed interval.
type Ticker struct {
	cpuHz uint32

	mu      sync.Mutex
	handler func()
	compare uint8
	cs      ClockSelect
	enabled bool
	closed  bool

	// Running tick loop, nil when stopped.
	quit chan struct{}
	done chan struct{}
}

// NewTicker creates a stopped ticker emulating a counter clocked at cpuHz.
func NewTicker(cpuHz uint32) *Ticker {
	return &Ticker{cpuHz: cpuHz}
}

// Attach installs the interrupt handler, normally Timer.HandleInterrupt.
func (k *Ticker) Attach(handler func()) {
	k.mu.Lock()
	k.handler = handler
	k.mu.Unlock()
	k.reconcile()
}

// SetCompare implements Counter.
func (k *Ticker) SetCompare(v uint8) {
	k.mu.Lock()
	k.compare = v
	k.mu.Unlock()
	k.reconcile()
}

// SetClockSelect implements Counter.
func (k *Ticker) SetClockSelect(cs ClockSelect) {
	k.mu.Lock()
	k.cs = cs
	k.mu.Unlock()
	k.reconcile()
}

// EnableInterrupt implements Counter.
func (k *Ticker) EnableInterrupt(enable bool) {
	k.mu.Lock()
	k.enabled = enable
	k.mu.Unlock()
	k.reconcile()
}

// Reset implements Counter. It restarts the current interval.
func (k *Ticker) Reset() {
	k.reconcile()
}

// Close stops the tick loop for good and waits for it to exit. It must
// not be called from the handler.
func (k *Ticker) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return pkg.ErrNotRunning
	}
	k.closed = true
	done := k.halt()
	k.mu.Unlock()

	if done != nil {
		<-done
	}
	return nil
}

// Running reports whether the tick loop is active.
func (k *Ticker) Running() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.quit != nil
}

// reconcile restarts the tick loop to match the register state.
func (k *Ticker) reconcile() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.halt()
	if k.closed || !k.enabled || k.handler == nil {
		return
	}
	interval := Interval(k.cs, k.compare, k.cpuHz)
	if interval <= 0 {
		return
	}

	k.quit = make(chan struct{})
	k.done = make(chan struct{})
	go k.loop(interval, k.handler, k.quit, k.done)
}

// halt signals the tick loop to exit and returns its done channel. A
// handler call already in progress completes. The caller holds k.mu.
func (k *Ticker) halt() <-chan struct{} {
	if k.quit == nil {
		return nil
	}
	close(k.quit)
	done := k.done
	k.quit, k.done = nil, nil
	return done
}

func (k *Ticker) loop(interval time.Duration, handler func(), quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-quit:
			return
		case <-tk.C:
			select {
			case <-quit:
				return
			default:
			}
			handler()
		}
	}
}
