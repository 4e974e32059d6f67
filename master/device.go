package master

import (
	"fmt"
	"io"

	"github.com/ardnew/softtwi/pkg"
)

// DefaultMaxChunk is the default number of data bytes per write transaction.
const DefaultMaxChunk = 16

// DeviceConfig describes the buffer of an EEPROM-style slave.
type DeviceConfig struct {
	Size     int // Buffer size of the slave
	MaxChunk int // Data bytes per write transaction, DefaultMaxChunk if zero
}

// Device is an io.ReadWriteSeeker over the buffer of one slave.
// A Device is not safe for concurrent use; its Transactor is.
type Device struct {
	DeviceConfig
	t    *Transactor
	addr Addr7
	pos  int
}

// NewDevice creates a device for the slave at addr.
func NewDevice(t *Transactor, addr Addr7, config DeviceConfig) (*Device, error) {
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if config.Size <= 0 || config.Size > 0xFF {
		return nil, fmt.Errorf("device size %d: %w", config.Size, pkg.ErrInvalidParameter)
	}
	if config.MaxChunk < 0 {
		return nil, fmt.Errorf("max chunk %d: %w", config.MaxChunk, pkg.ErrInvalidParameter)
	}
	if config.MaxChunk == 0 {
		config.MaxChunk = DefaultMaxChunk
	}
	return &Device{DeviceConfig: config, t: t, addr: addr}, nil
}

// Read implements io.Reader. It reads at most up to the end of the buffer.
func (d *Device) Read(p []byte) (int, error) {
	n := len(p)
	if rem := d.Size - d.pos; n > rem {
		n = rem
	}
	if n == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	nr, err := d.t.Read(d.addr, uint8(d.pos), p[:n])
	d.pos += nr
	return nr, err
}

// Write implements io.Writer. Data is sent in transactions of at most
// MaxChunk bytes; writing past the end of the buffer returns io.EOF with
// the count that fit.
func (d *Device) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 && d.pos < d.Size {
		n := len(p)
		if n > d.MaxChunk {
			n = d.MaxChunk
		}
		if rem := d.Size - d.pos; n > rem {
			n = rem
		}

		nw, err := d.t.Write(d.addr, uint8(d.pos), p[:n])
		d.pos += nw
		written += nw
		if err != nil {
			return written, err
		}
		p = p[n:]
	}

	if len(p) > 0 {
		return written, io.EOF
	}
	return written, nil
}

// Seek implements io.Seeker. Positions outside [0, Size] are rejected.
func (d *Device) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(d.pos) + offset
	case io.SeekEnd:
		pos = int64(d.Size) + offset
	default:
		return int64(d.pos), fmt.Errorf("seek whence %d: %w", whence, pkg.ErrInvalidParameter)
	}

	if pos < 0 || pos > int64(d.Size) {
		return int64(d.pos), fmt.Errorf("seek to %d: %w", pos, pkg.ErrInvalidParameter)
	}
	d.pos = int(pos)
	return pos, nil
}

// Sync latches the slave's cursor at the current position, so that a
// plain read from the slave continues from there.
func (d *Device) Sync() error {
	if d.pos >= d.Size {
		return nil
	}
	return d.t.SetAddress(d.addr, uint8(d.pos))
}

// Addr returns the slave address.
func (d *Device) Addr() Addr7 {
	return d.addr
}
