package hal

import "fmt"

// Status is a TWI bus status code latched by the peripheral when it raises
// an interrupt. The numbering follows the AVR TWSR register with the
// prescaler bits masked off.
type Status uint8

// Slave receiver status codes.
const (
	StatusSRSlaveAck          Status = 0x60 // Own SLA+W received, ACK returned
	StatusSRArbLostSlaveAck   Status = 0x68 // Arbitration lost as master, own SLA+W received, ACK returned
	StatusSRGeneralCallAck    Status = 0x70 // General call address received, ACK returned
	StatusSRArbLostGeneralAck Status = 0x78 // Arbitration lost as master, general call received, ACK returned
	StatusSRDataAck           Status = 0x80 // Data received after own SLA+W, ACK returned
	StatusSRDataNack          Status = 0x88 // Data received after own SLA+W, NACK returned
	StatusSRGeneralDataAck    Status = 0x90 // Data received after general call, ACK returned
	StatusSRGeneralDataNack   Status = 0x98 // Data received after general call, NACK returned
	StatusSRStop              Status = 0xA0 // STOP or repeated START received while addressed
)

// Slave transmitter status codes.
const (
	StatusSTSlaveAck        Status = 0xA8 // Own SLA+R received, ACK returned
	StatusSTArbLostSlaveAck Status = 0xB0 // Arbitration lost as master, own SLA+R received, ACK returned
	StatusSTDataAck         Status = 0xB8 // Data byte transmitted, ACK received
	StatusSTDataNack        Status = 0xC0 // Data byte transmitted, NACK received
	StatusSTLastData        Status = 0xC8 // Last data byte transmitted, ACK received
)

// Miscellaneous status codes.
const (
	StatusNoInfo   Status = 0xF8 // No relevant state information available
	StatusBusError Status = 0x00 // Illegal START or STOP condition
)

// String returns a short mnemonic for the status code.
func (s Status) String() string {
	switch s {
	case StatusSRSlaveAck:
		return "SR_SLA_ACK"
	case StatusSRArbLostSlaveAck:
		return "SR_ARB_LOST_SLA_ACK"
	case StatusSRGeneralCallAck:
		return "SR_GCALL_ACK"
	case StatusSRArbLostGeneralAck:
		return "SR_ARB_LOST_GCALL_ACK"
	case StatusSRDataAck:
		return "SR_DATA_ACK"
	case StatusSRDataNack:
		return "SR_DATA_NACK"
	case StatusSRGeneralDataAck:
		return "SR_GCALL_DATA_ACK"
	case StatusSRGeneralDataNack:
		return "SR_GCALL_DATA_NACK"
	case StatusSRStop:
		return "SR_STOP"
	case StatusSTSlaveAck:
		return "ST_SLA_ACK"
	case StatusSTArbLostSlaveAck:
		return "ST_ARB_LOST_SLA_ACK"
	case StatusSTDataAck:
		return "ST_DATA_ACK"
	case StatusSTDataNack:
		return "ST_DATA_NACK"
	case StatusSTLastData:
		return "ST_LAST_DATA"
	case StatusNoInfo:
		return "NO_INFO"
	case StatusBusError:
		return "BUS_ERROR"
	default:
		return fmt.Sprintf("0x%02X", uint8(s))
	}
}

// HasData reports whether the data register holds a byte received from
// the master for this status.
func (s Status) HasData() bool {
	switch s {
	case StatusSRDataAck, StatusSRDataNack, StatusSRGeneralDataAck, StatusSRGeneralDataNack:
		return true
	}
	return false
}

// Control is the value written to the control register at the end of an
// interrupt. Writing it clears the interrupt condition and lets the
// peripheral continue with the next bus cycle.
type Control uint8

// Control bits.
const (
	// ControlNack answers NACK after the next received byte, or expects
	// the final NACK after the next transmitted byte.
	ControlNack Control = 0

	// ControlAck answers ACK after the next received byte, or expects
	// an ACK after the next transmitted byte.
	ControlAck Control = 1 << 0

	// ControlStop requests the STOP handshake that releases the bus lines.
	// The peripheral clears it once the handshake has executed.
	ControlStop Control = 1 << 1
)

// Ack reports whether the ACK bit is set.
func (c Control) Ack() bool {
	return c&ControlAck != 0
}

// Stop reports whether the STOP handshake bit is set.
func (c Control) Stop() bool {
	return c&ControlStop != 0
}

// String returns a human-readable control word.
func (c Control) String() string {
	s := "NACK"
	if c.Ack() {
		s = "ACK"
	}
	if c.Stop() {
		s += "|STOP"
	}
	return s
}

// MaxAddress is the largest 7-bit slave address.
const MaxAddress = 0x7F

// GeneralCallAddress is the reserved broadcast address.
const GeneralCallAddress = 0x00

// AddressRegister encodes a 7-bit slave address and the general call
// recognition flag in the AVR TWAR layout: address in bits 7..1, general
// call enable in bit 0.
func AddressRegister(address uint8, generalCall bool) uint8 {
	r := (address & MaxAddress) << 1
	if generalCall {
		r |= 0x01
	}
	return r
}

// TWI defines the Hardware Abstraction Layer interface for a TWI slave
// peripheral.
//
// Methods other than Configure are called from interrupt context and must
// not block or allocate.
type TWI interface {
	// Configure programs the own-address filter, enables the peripheral,
	// acknowledge generation and the TWI interrupt.
	Configure(address uint8, generalCall bool) error

	// Status returns the status code latched for the pending interrupt.
	Status() Status

	// ReadData returns the byte in the data register.
	ReadData() byte

	// WriteData places the next byte to transmit in the data register.
	WriteData(b byte)

	// WriteControl writes the control register and clears the interrupt
	// condition.
	WriteControl(c Control)

	// StopPending reports whether a requested STOP handshake has not yet
	// executed on the bus.
	StopPending() bool
}

// InterruptState is an opaque saved interrupt-enable state.
type InterruptState uintptr

// Interrupts provides the critical-section primitive for foreground code.
type Interrupts interface {
	// Disable masks interrupts and returns the previous state.
	Disable() InterruptState

	// Restore restores a state returned by Disable.
	Restore(state InterruptState)
}
