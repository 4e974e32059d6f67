// Package slave implements an EEPROM-style TWI (I2C) slave in pure Go.
//
// The slave exposes one shared or two split fixed-size byte buffers to a
// bus master. A one-byte write transaction latches the cursor, a longer
// write stores its remaining bytes starting at the address carried by its
// first byte, and a read streams bytes starting at the cursor.
//
// It is platform-agnostic and interacts with hardware via the [hal.TWI]
// and [hal.Interrupts] interfaces defined in
// [github.com/ardnew/softtwi/slave/hal].
//
// # Architecture
//
// The package is organized into several layers:
//
//   - [Step] is the pure protocol state machine: it maps the transaction
//     state and one bus status code to the next state and a [Decision]
//   - [Slave] owns the buffers and the transaction state, applies each
//     [Decision] to the hardware from [Slave.HandleInterrupt], and
//     dispatches the receive-complete and transmit-begin callbacks
//   - [Buffer] is a fixed-capacity byte store shared between the bus and
//     foreground code
//
// # Transaction States
//
//	Idle → Receiving → Idle
//	Idle → Transmitting → Idle
//
// A bus error forces Idle from any state; any status code the current
// state does not expect resets to Idle and answers NACK.
//
// # Interrupt Context
//
// HandleInterrupt services exactly one bus event and returns. It never
// blocks; the only wait is the STOP handshake poll, bounded by
// [StopSpinLimit]. Callbacks run synchronously inside it and must return
// quickly. Foreground code that reads or writes more than one byte of a
// buffer uses [Slave.Critical], or the [Buffer.ReadAt] and
// [Buffer.WriteAt] methods which enter the critical section themselves.
//
// # Example
//
//	s, _ := slave.New(slave.Config{Size: 32}, twi, irq)
//	s.Init(0x28, false)
//	s.RegisterReceiveComplete(func(address, count int) {
//	    // rx[address:address+count] was written by the master
//	})
//	// route the TWI interrupt vector to s.HandleInterrupt
//
// A simulated peripheral for testing is available in
// [github.com/ardnew/softtwi/slave/hal/sim].
package slave
