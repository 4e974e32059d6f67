package sim

import (
	"fmt"
	"sync"

	"github.com/ardnew/softtwi/pkg"
	"github.com/ardnew/softtwi/slave/hal"
)

// StopDelay is the number of StopPending polls before a requested STOP
// handshake completes.
const StopDelay = 2

// MaxHistory bounds the recorded status history.
const MaxHistory = 4096

// IdleByte is what a master reads when nobody drives the data line.
const IdleByte = 0xFF

// Interrupt masking states returned by Disable.
const (
	stateEnabled hal.InterruptState = iota
	stateMasked
)

// busMode tracks the peripheral's view of the open bus transaction.
type busMode uint8

const (
	busIdle     busMode = iota // No START seen
	busAddress                 // START seen, next byte is SLA+R/W
	busReceive                 // Addressed for writing
	busTransmit                // Addressed for reading
	busIgnore                  // Not addressed, or left the transaction
)

// Stats counts peripheral activity.
type Stats struct {
	Interrupts    uint64 // Interrupts delivered to the handler
	ControlWrites uint64 // Control register writes
	Stops         uint64 // Completed STOP handshakes
	Pending       uint64 // Interrupts deferred by masking
}

// Peripheral is an in-memory TWI slave peripheral with a built-in bus master.
type Peripheral struct {
	// cpu serializes master operations and foreground code run via Run.
	cpu sync.Mutex

	// Address register
	address     uint8
	generalCall bool
	enabled     bool

	// Status, data and control registers
	status      hal.Status
	data        byte
	control     hal.Control
	flag        bool // Interrupt condition set, not yet cleared by WriteControl
	stopPending bool
	stopSpins   int

	// Interrupt plumbing
	handler func()
	masked  int
	pending bool

	// Bus state
	mode           busMode
	addressedWrite bool
	general        bool
	arbLost        bool

	stats   Stats
	history []hal.Status
}

// New creates a disabled peripheral. Configure enables it.
func New() *Peripheral {
	return &Peripheral{}
}

// Attach installs the interrupt handler, normally Slave.HandleInterrupt.
func (p *Peripheral) Attach(handler func()) {
	p.cpu.Lock()
	defer p.cpu.Unlock()
	p.handler = handler
}

// Run executes fn as foreground code on the simulated CPU. It never
// overlaps an interrupt handler. fn must not call master operations.
func (p *Peripheral) Run(fn func()) {
	p.cpu.Lock()
	defer p.cpu.Unlock()
	fn()
}

// =============================================================================
// hal.TWI
// =============================================================================

// Configure implements hal.TWI.
func (p *Peripheral) Configure(address uint8, generalCall bool) error {
	if address > hal.MaxAddress {
		return fmt.Errorf("sim: address 0x%02X: %w", address, pkg.ErrInvalidParameter)
	}
	p.address = address
	p.generalCall = generalCall
	p.enabled = true
	p.control = hal.ControlAck
	p.flag = false
	p.stopPending = false
	pkg.LogDebug(pkg.ComponentHAL, "sim peripheral configured",
		"twar", hal.AddressRegister(address, generalCall))
	return nil
}

// Status implements hal.TWI.
func (p *Peripheral) Status() hal.Status {
	return p.status
}

// ReadData implements hal.TWI.
func (p *Peripheral) ReadData() byte {
	return p.data
}

// WriteData implements hal.TWI.
func (p *Peripheral) WriteData(b byte) {
	p.data = b
}

// WriteControl implements hal.TWI.
func (p *Peripheral) WriteControl(c hal.Control) {
	p.stats.ControlWrites++
	if c.Stop() {
		p.stopPending = true
		p.stopSpins = StopDelay
	}
	p.control = c &^ hal.ControlStop
	p.flag = false
}

// StopPending implements hal.TWI.
func (p *Peripheral) StopPending() bool {
	if !p.stopPending {
		return false
	}
	if p.stopSpins > 0 {
		p.stopSpins--
		return true
	}
	p.stopPending = false
	p.stats.Stops++
	return false
}

// =============================================================================
// hal.Interrupts
// =============================================================================

// Disable implements hal.Interrupts.
func (p *Peripheral) Disable() hal.InterruptState {
	p.masked++
	if p.masked > 1 {
		return stateMasked
	}
	return stateEnabled
}

// Restore implements hal.Interrupts.
func (p *Peripheral) Restore(state hal.InterruptState) {
	if p.masked > 0 {
		p.masked--
	}
	if state == stateEnabled && p.masked == 0 && p.pending {
		p.pending = false
		p.deliver()
	}
}

// =============================================================================
// Master operations
// =============================================================================

// Start issues a START, or a repeated START inside an open transaction.
func (p *Peripheral) Start() error {
	p.cpu.Lock()
	defer p.cpu.Unlock()

	if p.mode != busIdle && p.addressedWrite {
		p.raise(hal.StatusSRStop)
	}
	p.mode = busAddress
	p.addressedWrite = false
	return nil
}

// Stop issues a STOP.
func (p *Peripheral) Stop() error {
	p.cpu.Lock()
	defer p.cpu.Unlock()

	if p.mode == busIdle {
		return fmt.Errorf("sim: stop without start: %w", pkg.ErrInvalidState)
	}
	if p.addressedWrite {
		p.raise(hal.StatusSRStop)
	}
	p.mode = busIdle
	p.addressedWrite = false
	return nil
}

// WriteByte clocks one byte from the master onto the bus: the SLA+R/W byte
// right after a START, data otherwise. It returns pkg.ErrNACK when the
// byte was not acknowledged.
func (p *Peripheral) WriteByte(b byte) error {
	p.cpu.Lock()
	defer p.cpu.Unlock()

	switch p.mode {
	case busAddress:
		return p.addressByte(b)

	case busReceive:
		p.data = b
		ack := p.control.Ack()
		switch {
		case p.general && ack:
			p.raise(hal.StatusSRGeneralDataAck)
		case p.general:
			p.raise(hal.StatusSRGeneralDataNack)
		case ack:
			p.raise(hal.StatusSRDataAck)
		default:
			p.raise(hal.StatusSRDataNack)
		}
		if !ack {
			p.mode = busIgnore
			return pkg.ErrNACK
		}
		return nil

	case busIgnore:
		return pkg.ErrNACK

	case busTransmit:
		return fmt.Errorf("sim: write while slave transmits: %w", pkg.ErrInvalidState)

	default:
		return fmt.Errorf("sim: write without start: %w", pkg.ErrInvalidState)
	}
}

func (p *Peripheral) addressByte(b byte) error {
	address := b >> 1
	read := b&0x01 != 0
	arbLost := p.arbLost
	p.arbLost = false

	own := p.enabled && address == p.address
	general := p.enabled && p.generalCall && address == hal.GeneralCallAddress && !read
	if !own && !general {
		p.mode = busIgnore
		return pkg.ErrNACK
	}

	if read {
		p.mode = busTransmit
		if arbLost {
			p.raise(hal.StatusSTArbLostSlaveAck)
		} else {
			p.raise(hal.StatusSTSlaveAck)
		}
		return nil
	}

	p.mode = busReceive
	p.addressedWrite = true
	p.general = general && !own
	switch {
	case p.general && arbLost:
		p.raise(hal.StatusSRArbLostGeneralAck)
	case p.general:
		p.raise(hal.StatusSRGeneralCallAck)
	case arbLost:
		p.raise(hal.StatusSRArbLostSlaveAck)
	default:
		p.raise(hal.StatusSRSlaveAck)
	}
	return nil
}

// ReadByte clocks one byte from the slave and answers it with ACK (more
// wanted) or NACK (last byte).
func (p *Peripheral) ReadByte(ack bool) (byte, error) {
	p.cpu.Lock()
	defer p.cpu.Unlock()

	switch p.mode {
	case busTransmit:
		b := p.data
		more := p.control.Ack()
		switch {
		case !ack:
			p.mode = busIgnore
			p.raise(hal.StatusSTDataNack)
		case !more:
			p.mode = busIgnore
			p.raise(hal.StatusSTLastData)
		default:
			p.raise(hal.StatusSTDataAck)
		}
		return b, nil

	case busIgnore:
		return IdleByte, nil

	default:
		return 0, fmt.Errorf("sim: read while not addressed for reading: %w", pkg.ErrInvalidState)
	}
}

// InjectBusError raises a bus error, as caused by a START or STOP in the
// middle of a byte, and leaves the bus idle.
func (p *Peripheral) InjectBusError() {
	p.cpu.Lock()
	defer p.cpu.Unlock()

	p.raise(hal.StatusBusError)
	p.mode = busIdle
	p.addressedWrite = false
}

// InjectStatus raises an arbitrary status code. Tests use it to present
// the slave with codes the bus model never produces on its own.
func (p *Peripheral) InjectStatus(s hal.Status, data byte) {
	p.cpu.Lock()
	defer p.cpu.Unlock()

	p.data = data
	p.raise(s)
}

// ArbitrationLost makes the next matching address byte report the
// "arbitration lost as master" variant of its status code.
func (p *Peripheral) ArbitrationLost() {
	p.cpu.Lock()
	defer p.cpu.Unlock()
	p.arbLost = true
}

// =============================================================================
// Inspection
// =============================================================================

// Stats returns the activity counters.
func (p *Peripheral) Stats() Stats {
	p.cpu.Lock()
	defer p.cpu.Unlock()
	return p.stats
}

// History returns a copy of the status codes raised so far, oldest first.
func (p *Peripheral) History() []hal.Status {
	p.cpu.Lock()
	defer p.cpu.Unlock()
	return append([]hal.Status(nil), p.history...)
}

// ResetHistory clears the status history.
func (p *Peripheral) ResetHistory() {
	p.cpu.Lock()
	defer p.cpu.Unlock()
	p.history = p.history[:0]
}

// Control returns the last value written to the control register.
func (p *Peripheral) Control() hal.Control {
	p.cpu.Lock()
	defer p.cpu.Unlock()
	return p.control
}

// Enabled reports whether Configure has been called.
func (p *Peripheral) Enabled() bool {
	p.cpu.Lock()
	defer p.cpu.Unlock()
	return p.enabled
}

// raise latches a status code and delivers the interrupt.
// The caller holds p.cpu.
func (p *Peripheral) raise(s hal.Status) {
	p.status = s
	p.flag = true
	if len(p.history) >= MaxHistory {
		copy(p.history, p.history[1:])
		p.history = p.history[:len(p.history)-1]
	}
	p.history = append(p.history, s)
	p.deliver()
}

func (p *Peripheral) deliver() {
	if !p.flag || p.handler == nil {
		return
	}
	if p.masked > 0 {
		p.pending = true
		p.stats.Pending++
		return
	}
	p.stats.Interrupts++
	p.handler()
	if p.flag && p.status != hal.StatusNoInfo {
		pkg.LogWarn(pkg.ComponentHAL, "interrupt handler returned without clearing the interrupt",
			"status", p.status.String())
		p.flag = false
	}
}
