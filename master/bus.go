package master

import (
	"fmt"

	"github.com/ardnew/softtwi/pkg"
)

// Bus is a byte-level TWI master.
type Bus interface {
	// Start issues a START, or a repeated START inside a transaction.
	Start() error

	// Stop issues a STOP.
	Stop() error

	// WriteByte clocks out one byte and returns pkg.ErrNACK when the
	// receiver did not acknowledge it.
	WriteByte(b byte) error

	// ReadByte clocks in one byte and answers it with ACK when ack is set.
	ReadByte(ack bool) (byte, error)
}

// Addr7 is a 7-bit slave address.
type Addr7 uint8

// Validate reports whether the address fits in 7 bits.
func (a Addr7) Validate() error {
	if a > 0x7F {
		return fmt.Errorf("slave address 0x%02X: %w", uint8(a), pkg.ErrInvalidParameter)
	}
	return nil
}

// Write returns the SLA+W byte.
func (a Addr7) Write() byte {
	return byte(a&0x7F) << 1
}

// Read returns the SLA+R byte.
func (a Addr7) Read() byte {
	return a.Write() | 0x01
}

// String returns the address in hexadecimal.
func (a Addr7) String() string {
	return fmt.Sprintf("0x%02X", uint8(a))
}
