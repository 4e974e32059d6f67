// Package hal defines the Hardware Abstraction Layer for TWI slave stacks.
//
// The HAL provides a platform-agnostic interface between the slave protocol
// engine and the two-wire interface peripheral. Platform vendors implement
// this interface to run the softtwi slave on their hardware; the simulator
// in [github.com/ardnew/softtwi/slave/hal/sim] implements it in memory.
//
// # Design Principles
//
// The HAL is designed to be:
//
//   - Minimal: a status register, a control register and a data register
//   - Generic: status codes follow the widely used AVR TWI numbering, which
//     other controllers can translate to
//   - Non-blocking: every method returns immediately; the only wait in the
//     stack is the bounded STOP handshake poll performed by the engine
//
// # Interface Overview
//
// [TWI] exposes the peripheral registers:
//
//   - Configure programs the own-address filter and enables the interrupt
//   - Status returns the latched [Status] code for the pending event
//   - ReadData / WriteData access the data register
//   - WriteControl selects ACK or NACK for the next bus cycle, optionally
//     requests the STOP handshake, and clears the interrupt condition
//   - StopPending reports whether the STOP handshake is still executing
//
// [Interrupts] provides the critical-section primitive used by foreground
// code that touches the shared buffers.
//
// # Implementing a HAL
//
//  1. Translate the controller's status register into [Status] values
//  2. Map [ControlAck] and [ControlStop] onto the controller's bits
//  3. Make WriteControl the single operation that releases the bus clock
//  4. Route the controller's interrupt vector to the slave's
//     HandleInterrupt method
package hal
