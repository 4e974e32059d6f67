package slave

import "github.com/ardnew/softtwi/slave/hal"

// State is the transaction state of the slave.
type State uint8

// Transaction states.
const (
	StateIdle         State = iota // No transaction open
	StateReceiving                 // Addressed for writing
	StateTransmitting              // Addressed for reading
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReceiving:
		return "receiving"
	case StateTransmitting:
		return "transmitting"
	default:
		return "unknown"
	}
}

// CursorUnset marks a cursor that has not been latched since Init or the
// last bus error.
const CursorUnset = -1

// Machine is the transaction state consumed and produced by [Step].
// It is a plain value so that sequences of bus events can be replayed
// without any hardware.
type Machine struct {
	State State

	// Cursor is CursorUnset or in [0, size]. The value size is the end
	// marker reached after the last byte was stored or streamed.
	Cursor int

	// Count is the number of bytes seen in the open transaction.
	Count int

	// Pending holds the first byte of a write transaction until the
	// transaction length decides whether it is an address-set or the
	// target of the data that follows.
	Pending byte

	// Target is the address of the first data byte of the open
	// transaction.
	Target int

	// Stored is the number of bytes committed by the open write transaction.
	Stored int

	// Rejected is set when the first byte of a write was out of range.
	Rejected bool

	// Truncated is set when a byte was dropped at the end of the buffer.
	Truncated bool
}

// NewMachine returns the idle machine with an unset cursor.
func NewMachine() Machine {
	return Machine{
		State:  StateIdle,
		Cursor: CursorUnset,
		Target: CursorUnset,
	}
}

// open starts a new transaction in the given state.
func (m *Machine) open(state State) {
	m.State = state
	m.Count = 0
	m.Pending = 0
	m.Target = CursorUnset
	m.Stored = 0
	m.Rejected = false
	m.Truncated = false
}

// close ends the open transaction, keeping the cursor.
func (m *Machine) close() {
	m.open(StateIdle)
}

// Event is one bus event latched by the peripheral.
type Event struct {
	Status hal.Status
	Data   byte // valid when Status.HasData()
}
