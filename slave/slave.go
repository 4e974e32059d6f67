package slave

import (
	"fmt"

	"github.com/ardnew/softtwi/pkg"
	"github.com/ardnew/softtwi/slave/hal"
)

// StopSpinLimit bounds the STOP handshake poll. The handshake completes
// within a few bus clocks on real hardware.
const StopSpinLimit = 1024

// Layout selects how the receive and transmit buffers relate.
type Layout uint8

// Buffer layouts.
const (
	// LayoutSplit keeps separate receive and transmit buffers. Masters
	// write commands into one and read status from the other.
	LayoutSplit Layout = iota

	// LayoutShared uses a single buffer for both directions, so a master
	// reads back what it wrote.
	LayoutShared
)

// String returns the layout name.
func (l Layout) String() string {
	switch l {
	case LayoutSplit:
		return "split"
	case LayoutShared:
		return "shared"
	default:
		return "unknown"
	}
}

// Config describes the buffers of a slave. It is fixed for the lifetime
// of the slave.
type Config struct {
	Size   int    // Buffer capacity in bytes, [MinBufferSize, MaxBufferSize]
	Layout Layout // Split or shared buffers
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validateSize(c.Size); err != nil {
		return err
	}
	if c.Layout != LayoutSplit && c.Layout != LayoutShared {
		return fmt.Errorf("layout %d: %w", c.Layout, pkg.ErrInvalidParameter)
	}
	return nil
}

// Slave is an EEPROM-style TWI slave.
type Slave struct {
	twi hal.TWI
	irq hal.Interrupts

	config Config
	rx     *Buffer
	tx     *Buffer

	// Transaction state, owned by HandleInterrupt.
	machine Machine

	dispatch dispatcher
	tracer   Tracer

	initialized bool
	address     uint8
	generalCall bool
}

// New creates a slave with the given buffers on top of the HAL.
// The slave does not respond on the bus until Init is called.
func New(config Config, twi hal.TWI, irq hal.Interrupts) (*Slave, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if twi == nil || irq == nil {
		return nil, fmt.Errorf("nil HAL: %w", pkg.ErrInvalidParameter)
	}

	s := &Slave{
		twi:     twi,
		irq:     irq,
		config:  config,
		machine: NewMachine(),
	}
	s.rx = &Buffer{size: config.Size, irq: irq}
	s.tx = s.rx
	if config.Layout == LayoutSplit {
		s.tx = &Buffer{size: config.Size, irq: irq}
	}
	s.dispatch.reset()
	return s, nil
}

// Init configures the peripheral to answer on address (0..127), and on
// the general call address if generalCall is set. It resets the
// transaction state, clears the cursor and installs no-op callbacks.
//
// Init runs with interrupts disabled. Calling it during a transaction
// abandons that transaction.
func (s *Slave) Init(address uint8, generalCall bool) error {
	if address > hal.MaxAddress {
		return fmt.Errorf("slave address 0x%02X: %w", address, pkg.ErrInvalidParameter)
	}

	state := s.irq.Disable()
	defer s.irq.Restore(state)

	if err := s.twi.Configure(address, generalCall); err != nil {
		return fmt.Errorf("configure twi: %w", err)
	}

	s.dispatch.reset()
	s.machine = NewMachine()
	s.address = address
	s.generalCall = generalCall
	s.initialized = true

	pkg.LogDebug(pkg.ComponentSlave, "slave initialized",
		"address", address,
		"generalCall", generalCall,
		"size", s.config.Size,
		"layout", s.config.Layout.String())
	return nil
}

// RegisterReceiveComplete replaces the receive-complete handler. A nil
// handler restores the no-op. Returns pkg.ErrBusy unless the slave is idle.
func (s *Slave) RegisterReceiveComplete(fn ReceiveFunc) error {
	var err error
	s.Critical(func() {
		if s.machine.State != StateIdle {
			err = fmt.Errorf("register receive handler while %s: %w", s.machine.State, pkg.ErrBusy)
			return
		}
		s.dispatch.setReceive(fn)
	})
	return err
}

// RegisterTransmitBegin replaces the transmit-begin handler. A nil
// handler restores the no-op. Returns pkg.ErrBusy unless the slave is idle.
func (s *Slave) RegisterTransmitBegin(fn TransmitFunc) error {
	var err error
	s.Critical(func() {
		if s.machine.State != StateIdle {
			err = fmt.Errorf("register transmit handler while %s: %w", s.machine.State, pkg.ErrBusy)
			return
		}
		s.dispatch.setTransmit(fn)
	})
	return err
}

// SetTracer installs a tracer invoked after every serviced interrupt.
// Pass nil to remove it.
func (s *Slave) SetTracer(t Tracer) {
	s.Critical(func() {
		s.tracer = t
	})
}

// HandleInterrupt services one TWI interrupt. Route the peripheral's
// interrupt vector here.
func (s *Slave) HandleInterrupt() {
	ev := Event{Status: s.twi.Status()}
	if ev.Status.HasData() {
		ev.Data = s.twi.ReadData()
	}

	from := s.machine.State
	next, d := Step(s.machine, ev, s.config.Size)
	s.machine = next

	if d.Callback == CallbackTransmitBegin {
		s.dispatch.transmit(d.Address)
	}
	if d.Store {
		s.rx.data[d.StoreIndex] = d.StoreValue
	}
	if d.Load {
		s.twi.WriteData(s.tx.data[d.LoadIndex])
	}
	if d.Release {
		s.stop()
	}
	if d.Callback == CallbackReceiveComplete {
		s.dispatch.receive(d.Address, d.Count)
	}
	if d.Write {
		s.twi.WriteControl(d.Control())
	}

	if d.Fault != nil && pkg.DebugEnabled() {
		pkg.LogDebug(pkg.ComponentEngine, "protocol fault",
			"status", ev.Status.String(),
			"state", from.String(),
			"error", d.Fault)
	}

	if s.tracer != nil {
		s.tracer.Trace(TraceEvent{
			Status:   ev.Status,
			Data:     ev.Data,
			From:     from,
			To:       next.State,
			Control:  d.Control(),
			Released: d.Release,
			Cursor:   next.Cursor,
			Callback: d.Callback,
			Address:  d.Address,
			Count:    d.Count,
			Done:     d.Done,
			Outcome:  d.Outcome,
			Fault:    d.Fault,
		})
	}
}

// stop performs the STOP handshake that releases the bus lines and waits
// for the peripheral to clear the request.
func (s *Slave) stop() {
	s.twi.WriteControl(hal.ControlAck | hal.ControlStop)
	for i := 0; s.twi.StopPending(); i++ {
		if i >= StopSpinLimit {
			pkg.LogWarn(pkg.ComponentSlave, "stop handshake did not complete",
				"error", pkg.ErrTimeout)
			return
		}
	}
}

// Critical runs fn with interrupts disabled. Use it for foreground access
// spanning more than one buffer byte, or the cursor together with data.
func (s *Slave) Critical(fn func()) {
	state := s.irq.Disable()
	defer s.irq.Restore(state)
	fn()
}

// RX returns the buffer the master writes into.
func (s *Slave) RX() *Buffer {
	return s.rx
}

// TX returns the buffer the master reads from. It is the receive buffer
// for LayoutShared.
func (s *Slave) TX() *Buffer {
	return s.tx
}

// State returns the current transaction state.
func (s *Slave) State() State {
	var st State
	s.Critical(func() {
		st = s.machine.State
	})
	return st
}

// Cursor returns the cursor and whether it has been set since Init or the
// last bus error. A cursor equal to the buffer size is the end marker.
func (s *Slave) Cursor() (int, bool) {
	var c int
	s.Critical(func() {
		c = s.machine.Cursor
	})
	if c == CursorUnset {
		return 0, false
	}
	return c, true
}

// Config returns the buffer configuration.
func (s *Slave) Config() Config {
	return s.config
}

// Address returns the configured slave address and general call flag.
func (s *Slave) Address() (address uint8, generalCall bool, ok bool) {
	return s.address, s.generalCall, s.initialized
}
