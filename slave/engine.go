package slave

import (
	"github.com/ardnew/softtwi/pkg"
	"github.com/ardnew/softtwi/slave/hal"
)

// Callback identifies the user handler a [Decision] asks to invoke.
type Callback uint8

// Callback kinds.
const (
	CallbackNone            Callback = iota
	CallbackReceiveComplete          // Invoke with (Address, Count) after the bus is released
	CallbackTransmitBegin            // Invoke with (Address) before the first byte is loaded
)

// String returns the callback name.
func (c Callback) String() string {
	switch c {
	case CallbackReceiveComplete:
		return "receive-complete"
	case CallbackTransmitBegin:
		return "transmit-begin"
	default:
		return "none"
	}
}

// Decision is the effect of one bus event, applied by [Slave.HandleInterrupt].
type Decision struct {
	// Write is false only for events that must leave the control
	// register untouched.
	Write bool

	// Ack selects ACK (true) or NACK for the next bus cycle.
	Ack bool

	// Release requests the STOP handshake before the control write.
	Release bool

	// Store commits StoreValue to the receive buffer at StoreIndex.
	Store      bool
	StoreIndex int
	StoreValue byte

	// Load places the transmit buffer byte at LoadIndex in the data register.
	Load      bool
	LoadIndex int

	// Callback is the handler to invoke with Address and Count.
	Callback Callback
	Address  int
	Count    int

	// Done is set when the event closed a transaction; Outcome tells how.
	Done    bool
	Outcome pkg.Outcome

	// Fault classifies a protocol fault detected on this event.
	Fault error
}

// Control returns the control word for the final register write.
func (d Decision) Control() hal.Control {
	if d.Ack {
		return hal.ControlAck
	}
	return hal.ControlNack
}

// Step is the protocol state machine. It consumes one bus event in the
// context of the transaction state m and returns the next transaction
// state with the decision to apply. size is the buffer capacity.
//
// Step is a pure function: it touches neither buffers nor hardware.
func Step(m Machine, ev Event, size int) (Machine, Decision) {
	d := Decision{Write: true, Ack: true}

	switch ev.Status {
	case hal.StatusSRSlaveAck, hal.StatusSRArbLostSlaveAck,
		hal.StatusSRGeneralCallAck, hal.StatusSRArbLostGeneralAck:
		m.open(StateReceiving)
		return m, d

	case hal.StatusSRDataAck, hal.StatusSRGeneralDataAck:
		if m.State != StateReceiving {
			return violation(m, d)
		}
		return receive(m, ev.Data, size, d)

	case hal.StatusSRDataNack, hal.StatusSRGeneralDataNack:
		if m.State != StateReceiving {
			return violation(m, d)
		}
		// The master kept sending after our NACK. Drop the byte.
		m.Count++
		if m.Count == 1 {
			// Without its address byte the write cannot commit anything.
			m.Pending = ev.Data
			m.Rejected = true
		}
		if !m.Rejected && m.Cursor >= size {
			m.Truncated = true
			d.Fault = pkg.ErrBufferOverflow
		}
		d.Ack = false
		return m, d

	case hal.StatusSRStop:
		if m.State != StateReceiving {
			return violation(m, d)
		}
		return complete(m, size, d)

	case hal.StatusSTSlaveAck, hal.StatusSTArbLostSlaveAck:
		m.open(StateTransmitting)
		if m.Cursor < 0 || m.Cursor >= size {
			m.Cursor = 0
		}
		m.Target = m.Cursor
		d.Callback = CallbackTransmitBegin
		d.Address = m.Cursor
		return transmit(m, size, d)

	case hal.StatusSTDataAck:
		if m.State != StateTransmitting || m.Cursor < 0 || m.Cursor >= size {
			return violation(m, d)
		}
		return transmit(m, size, d)

	case hal.StatusSTDataNack, hal.StatusSTLastData:
		if m.State != StateTransmitting {
			return violation(m, d)
		}
		d.Done = true
		d.Outcome = pkg.OutcomeRead
		d.Address = m.Target
		d.Count = m.Count
		m.close()
		return m, d

	case hal.StatusNoInfo:
		d.Write = false
		return m, d

	case hal.StatusBusError:
		m = NewMachine()
		d.Release = true
		d.Done = true
		d.Outcome = pkg.OutcomeBusError
		d.Fault = pkg.ErrBusError
		return m, d
	}

	return violation(m, d)
}

// receive handles a data byte acknowledged while receiving.
func receive(m Machine, data byte, size int, d Decision) (Machine, Decision) {
	m.Count++
	if m.Count == 1 {
		m.Pending = data
		if int(data) >= size {
			m.Rejected = true
			d.Ack = false
			d.Fault = pkg.ErrInvalidAddress
		}
		return m, d
	}

	if m.Rejected {
		d.Ack = false
		return m, d
	}
	if m.Target == CursorUnset {
		m.Target = int(m.Pending)
		m.Cursor = m.Target
	}
	if m.Cursor >= size {
		m.Truncated = true
		d.Ack = false
		d.Fault = pkg.ErrBufferOverflow
		return m, d
	}

	d.Store = true
	d.StoreIndex = m.Cursor
	d.StoreValue = data
	m.Cursor++
	m.Stored++

	// No room for another byte: NACK whatever comes next.
	if m.Cursor >= size {
		d.Ack = false
	}
	return m, d
}

// complete handles STOP or repeated START at the end of a write.
func complete(m Machine, size int, d Decision) (Machine, Decision) {
	d.Release = true

	switch {
	case m.Count == 0:
		// Address probe without data. Nothing to commit.

	case m.Count == 1:
		d.Done = true
		if m.Rejected || int(m.Pending) >= size {
			d.Outcome = pkg.OutcomeRejected
			d.Address = int(m.Pending)
			break
		}
		m.Cursor = int(m.Pending)
		d.Outcome = pkg.OutcomeAddressSet
		d.Address = m.Cursor

	default:
		d.Done = true
		d.Address = int(m.Pending)
		if m.Rejected {
			d.Outcome = pkg.OutcomeRejected
			break
		}
		d.Count = m.Stored
		d.Outcome = pkg.OutcomeWritten
		if m.Truncated {
			d.Outcome = pkg.OutcomeTruncated
		}
		if m.Stored > 0 {
			d.Callback = CallbackReceiveComplete
		}
	}

	m.close()
	return m, d
}

// transmit loads the byte at the cursor and decides whether more follow.
func transmit(m Machine, size int, d Decision) (Machine, Decision) {
	d.Load = true
	d.LoadIndex = m.Cursor
	m.Cursor++
	m.Count++

	// Last byte of the buffer: expect the master's final NACK.
	if m.Cursor >= size {
		d.Ack = false
	}
	return m, d
}

// violation resets to Idle after a status code the state does not expect.
func violation(m Machine, d Decision) (Machine, Decision) {
	m.close()
	d.Ack = false
	d.Done = true
	d.Outcome = pkg.OutcomeReset
	d.Fault = pkg.ErrProtocolViolation
	return m, d
}
