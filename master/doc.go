// Package master implements the bus master side of an EEPROM-style TWI
// slave.
//
// [Bus] is the byte-level master interface: START, STOP, one byte out and
// one byte in. [Transactor] builds the three transaction shapes the slave
// understands on top of it:
//
//	SetAddress   S SLA+W reg P                      latch the cursor
//	Write        S SLA+W reg d0 d1 ... P            store at reg
//	Read         S SLA+W reg Sr SLA+R d0 ... dn P   stream from reg
//	ReadCurrent  S SLA+R d0 ... dn P                stream from the cursor
//
// [Device] turns a slave of known size into an [io.ReadWriteSeeker].
// [Recorder] wraps any Bus and keeps a log of the operations it carried.
//
// The simulated peripheral in [github.com/ardnew/softtwi/slave/hal/sim]
// implements Bus.
package master
