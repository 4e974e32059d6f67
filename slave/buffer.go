package slave

import (
	"fmt"
	"io"

	"github.com/ardnew/softtwi/pkg"
	"github.com/ardnew/softtwi/slave/hal"
)

// Buffer capacity limits. The cursor is a single byte on the wire, and
// one value above the last index is reserved as the end marker.
const (
	MinBufferSize     = 2
	MaxBufferSize     = 254
	DefaultBufferSize = 32
)

// Buffer is a fixed-capacity byte store shared between the bus and
// foreground code. The backing array never moves or grows.
type Buffer struct {
	data [MaxBufferSize]byte
	size int

	// irq guards multi-byte foreground access; nil for a detached buffer.
	irq hal.Interrupts
}

// NewBuffer creates a detached buffer of the given capacity.
func NewBuffer(size int) (*Buffer, error) {
	if err := validateSize(size); err != nil {
		return nil, err
	}
	return &Buffer{size: size}, nil
}

func validateSize(size int) error {
	if size < MinBufferSize || size > MaxBufferSize {
		return fmt.Errorf("buffer size %d outside [%d, %d]: %w",
			size, MinBufferSize, MaxBufferSize, pkg.ErrInvalidParameter)
	}
	return nil
}

// Len returns the buffer capacity.
func (b *Buffer) Len() int {
	return b.size
}

// Byte returns the byte at index i. It does not enter the critical
// section; a single byte read cannot tear.
func (b *Buffer) Byte(i int) byte {
	return b.data[:b.size][i]
}

// SetByte stores v at index i.
func (b *Buffer) SetByte(i int, v byte) {
	b.data[:b.size][i] = v
}

// ReadAt implements io.ReaderAt. Reads that reach the end of the buffer
// return io.EOF with the bytes that fit.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(b.size) {
		return 0, fmt.Errorf("read at %d: %w", off, pkg.ErrInvalidParameter)
	}
	var n int
	b.critical(func() {
		n = copy(p, b.data[off:b.size])
	})
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt. Bytes past the end of the buffer are
// not written and the short count is returned with ErrBufferOverflow.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(b.size) {
		return 0, fmt.Errorf("write at %d: %w", off, pkg.ErrInvalidParameter)
	}
	var n int
	b.critical(func() {
		n = copy(b.data[off:b.size], p)
	})
	if n < len(p) {
		return n, fmt.Errorf("write %d bytes at %d: %w", len(p), off, pkg.ErrBufferOverflow)
	}
	return n, nil
}

// Snapshot returns a copy of the whole buffer taken atomically with
// respect to the bus.
func (b *Buffer) Snapshot() []byte {
	out := make([]byte, b.size)
	b.critical(func() {
		copy(out, b.data[:b.size])
	})
	return out
}

// Fill sets every byte of the buffer to v.
func (b *Buffer) Fill(v byte) {
	b.critical(func() {
		for i := 0; i < b.size; i++ {
			b.data[i] = v
		}
	})
}

func (b *Buffer) critical(fn func()) {
	if b.irq == nil {
		fn()
		return
	}
	state := b.irq.Disable()
	defer b.irq.Restore(state)
	fn()
}
