// Package sim implements an in-memory TWI peripheral for the slave HAL.
//
// This HAL is primarily intended for testing and simulation. A
// [Peripheral] plays both ends of the bus: it implements [hal.TWI] and
// [hal.Interrupts] for the slave, and exposes byte-level master operations
// (Start, Stop, WriteByte, ReadByte) that drive the slave exactly as a bus
// master would. Every bus event latches a status code and invokes the
// attached interrupt handler synchronously on the caller's goroutine.
//
// # Bus Model
//
// The model follows the AVR TWI slave with two deliberate differences:
//
//   - Own-address recognition does not depend on the acknowledge bit.
//     The acknowledge decision written at the end of an interrupt applies
//     to the next data byte only, so a NACK never leaves the slave deaf.
//   - A STOP or repeated START raises the SR STOP status whenever the slave
//     was addressed for writing in the open transaction, including after
//     it answered NACK. The truncated write is therefore always closed.
//
// After the slave answers NACK to a data byte, further bytes of the same
// transaction are NACKed without raising an interrupt.
//
// # Interrupt Masking
//
// Disable and Restore nest. An event raised while interrupts are masked
// is held pending and delivered by the Restore that unmasks them.
//
// # Concurrency
//
// The peripheral models a single CPU. Master operations serialize on an
// internal lock for the whole interrupt delivery. Foreground code running
// on other goroutines must go through [Peripheral.Run], which takes the
// same lock, so that it never overlaps an interrupt handler.
//
// # Usage
//
//	p := sim.New()
//	s, _ := slave.New(slave.Config{Size: 32}, p, p)
//	p.Attach(s.HandleInterrupt)
//	s.Init(0x28, false)
//
//	p.Start()
//	p.WriteByte(0x28 << 1) // SLA+W
//	p.WriteByte(0x05)      // address
//	p.Stop()
package sim
