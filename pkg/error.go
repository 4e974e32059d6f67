package pkg

import (
	"errors"
	"fmt"
)

// Protocol faults classified by the slave state machine.
var (
	// ErrProtocolViolation indicates a status code the current state does not expect.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrInvalidAddress indicates a latched address outside the buffer.
	ErrInvalidAddress = errors.New("invalid buffer address")

	// ErrBufferOverflow indicates a write or read crossed the end of the buffer.
	ErrBufferOverflow = errors.New("buffer overflow")

	// ErrBusError indicates an illegal START or STOP condition on the bus.
	ErrBusError = errors.New("bus error")
)

// Bus and API errors.
var (
	// ErrNACK indicates the receiver answered NACK.
	ErrNACK = errors.New("NACK received")

	// ErrNoDevice indicates no slave acknowledged the address.
	ErrNoDevice = errors.New("no such device")

	// ErrTimeout indicates a bounded wait expired.
	ErrTimeout = errors.New("timeout")

	// ErrBusy indicates the operation requires an idle slave.
	ErrBusy = errors.New("transaction in progress")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidState indicates the bus is in the wrong state for the operation.
	ErrInvalidState = errors.New("invalid bus state")

	// ErrNotInitialized indicates the slave has not been initialized.
	ErrNotInitialized = errors.New("not initialized")

	// ErrAlreadyRunning indicates the component is already running.
	ErrAlreadyRunning = errors.New("already running")

	// ErrNotRunning indicates the component is not running.
	ErrNotRunning = errors.New("not running")
)

// Outcome represents how a bus transaction ended, as observed by the slave.
type Outcome int

// Transaction outcome values.
const (
	OutcomeAddressSet Outcome = iota // One-byte write latched the cursor
	OutcomeWritten                   // Data committed to the receive buffer
	OutcomeTruncated                 // Data committed up to the end of the buffer
	OutcomeRead                      // Data streamed from the transmit buffer
	OutcomeRejected                  // Address outside the buffer, nothing committed
	OutcomeBusError                  // Forced recovery after an illegal bus condition
	OutcomeReset                     // Reset after an unexpected status
)

// String returns a string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAddressSet:
		return "address-set"
	case OutcomeWritten:
		return "written"
	case OutcomeTruncated:
		return "truncated"
	case OutcomeRead:
		return "read"
	case OutcomeRejected:
		return "rejected"
	case OutcomeBusError:
		return "bus-error"
	case OutcomeReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Error returns the fault corresponding to the outcome, or nil for a
// transaction that completed normally.
func (o Outcome) Error() error {
	switch o {
	case OutcomeAddressSet, OutcomeWritten, OutcomeRead:
		return nil
	case OutcomeTruncated:
		return ErrBufferOverflow
	case OutcomeRejected:
		return ErrInvalidAddress
	case OutcomeBusError:
		return ErrBusError
	default:
		return ErrProtocolViolation
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ParseOutcome returns the outcome named s, as produced by String.
func ParseOutcome(s string) (Outcome, error) {
	for o := OutcomeAddressSet; o <= OutcomeReset; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("outcome %q: %w", s, ErrInvalidParameter)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	v, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}
