package master

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardnew/softtwi/pkg"
)

// Transactor runs complete transactions against EEPROM-style slaves.
// Transactions on the same Transactor are serialized.
type Transactor struct {
	mu  sync.Mutex
	bus Bus
}

// NewTransactor creates a transactor on the bus.
func NewTransactor(bus Bus) *Transactor {
	return &Transactor{bus: bus}
}

// Probe addresses the slave for writing without sending data. The slave
// treats it as a no-op.
func (t *Transactor) Probe(addr Addr7) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.run(addr, func() error {
		return t.address(addr, false)
	})
}

// SetAddress latches the slave's cursor at reg.
func (t *Transactor) SetAddress(addr Addr7, reg uint8) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.run(addr, func() error {
		if err := t.address(addr, false); err != nil {
			return err
		}
		return t.register(reg)
	})
}

// Write stores data starting at reg. It returns the number of data bytes
// the slave acknowledged; a short count comes with an error wrapping
// pkg.ErrNACK.
func (t *Transactor) Write(addr Addr7, reg uint8, data []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var n int
	err := t.run(addr, func() error {
		if err := t.address(addr, false); err != nil {
			return err
		}
		if err := t.register(reg); err != nil {
			return err
		}
		for _, b := range data {
			if err := t.bus.WriteByte(b); err != nil {
				return fmt.Errorf("data byte %d at 0x%02X: %w", n, int(reg)+n, err)
			}
			n++
		}
		return nil
	})
	return n, err
}

// Read fills buf starting at reg, using a repeated START between the
// address-set and the read.
func (t *Transactor) Read(addr Addr7, reg uint8, buf []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var n int
	err := t.run(addr, func() error {
		if err := t.address(addr, false); err != nil {
			return err
		}
		if err := t.register(reg); err != nil {
			return err
		}
		if err := t.address(addr, true); err != nil {
			return err
		}
		var err error
		n, err = t.read(buf)
		return err
	})
	return n, err
}

// ReadCurrent fills buf starting at the slave's cursor.
func (t *Transactor) ReadCurrent(addr Addr7, buf []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var n int
	err := t.run(addr, func() error {
		if err := t.address(addr, true); err != nil {
			return err
		}
		var err error
		n, err = t.read(buf)
		return err
	})
	return n, err
}

// run validates addr and brackets fn with STOP, which is issued even
// when fn fails so the bus is left idle.
func (t *Transactor) run(addr Addr7, fn func() error) error {
	if err := addr.Validate(); err != nil {
		return err
	}
	err := fn()
	if stopErr := t.bus.Stop(); stopErr != nil && err == nil {
		err = fmt.Errorf("stop: %w", stopErr)
	}
	if err != nil {
		pkg.LogDebug(pkg.ComponentMaster, "transaction failed",
			"addr", addr.String(),
			"error", err)
	}
	return err
}

// address issues START (or repeated START) and the SLA byte.
func (t *Transactor) address(addr Addr7, read bool) error {
	if err := t.bus.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	sla := addr.Write()
	if read {
		sla = addr.Read()
	}
	if err := t.bus.WriteByte(sla); err != nil {
		if errors.Is(err, pkg.ErrNACK) {
			return fmt.Errorf("address %s: %w", addr, pkg.ErrNoDevice)
		}
		return fmt.Errorf("address %s: %w", addr, err)
	}
	return nil
}

// register sends the buffer address byte.
func (t *Transactor) register(reg uint8) error {
	if err := t.bus.WriteByte(reg); err != nil {
		if errors.Is(err, pkg.ErrNACK) {
			return fmt.Errorf("register 0x%02X: %w", reg, pkg.ErrInvalidAddress)
		}
		return fmt.Errorf("register 0x%02X: %w", reg, err)
	}
	return nil
}

// read clocks in len(buf) bytes, NACKing the last.
func (t *Transactor) read(buf []byte) (int, error) {
	for i := range buf {
		b, err := t.bus.ReadByte(i < len(buf)-1)
		if err != nil {
			return i, fmt.Errorf("read byte %d: %w", i, err)
		}
		buf[i] = b
	}
	return len(buf), nil
}
