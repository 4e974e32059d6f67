package master

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/ardnew/softtwi/pkg"
	"github.com/ardnew/softtwi/slave"
	"github.com/ardnew/softtwi/slave/hal/sim"
)

const testAddr Addr7 = 0x28

// newTestSlave wires a slave to a simulated peripheral and returns a
// recorder on the master side.
func newTestSlave(t *testing.T, config slave.Config) (*slave.Slave, *Recorder) {
	t.Helper()
	p := sim.New()
	s, err := slave.New(config, p, p)
	if err != nil {
		t.Fatalf("slave.New() error = %v", err)
	}
	p.Attach(s.HandleInterrupt)
	if err := s.Init(uint8(testAddr), false); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	return s, NewRecorder(p, 0)
}

// =============================================================================
// Addr7 Tests
// =============================================================================

func TestAddr7(t *testing.T) {
	tests := []struct {
		addr      Addr7
		write     byte
		read      byte
		wantValid bool
	}{
		{0x00, 0x00, 0x01, true},
		{0x28, 0x50, 0x51, true},
		{0x7F, 0xFE, 0xFF, true},
		{0x80, 0x00, 0x01, false},
	}

	for _, tt := range tests {
		t.Run(tt.addr.String(), func(t *testing.T) {
			if got := tt.addr.Write(); got != tt.write {
				t.Errorf("Write() = 0x%02X, want 0x%02X", got, tt.write)
			}
			if got := tt.addr.Read(); got != tt.read {
				t.Errorf("Read() = 0x%02X, want 0x%02X", got, tt.read)
			}
			if err := tt.addr.Validate(); (err == nil) != tt.wantValid {
				t.Errorf("Validate() = %v, want valid %v", err, tt.wantValid)
			}
		})
	}
}

// =============================================================================
// Transactor Tests
// =============================================================================

func TestTransactor_WriteRead(t *testing.T) {
	s, bus := newTestSlave(t, slave.Config{Size: 32, Layout: slave.LayoutShared})
	tr := NewTransactor(bus)

	n, err := tr.Write(testAddr, 5, []byte{0xAA, 0xBB})
	if n != 2 || err != nil {
		t.Fatalf("Write() = (%d, %v), want (2, nil)", n, err)
	}
	if got := s.RX().Snapshot()[5:7]; !bytes.Equal(got, []byte{0xAA, 0xBB}) {
		t.Errorf("slave rx[5:7] = % X", got)
	}

	buf := make([]byte, 2)
	n, err = tr.Read(testAddr, 5, buf)
	if n != 2 || err != nil || !bytes.Equal(buf, []byte{0xAA, 0xBB}) {
		t.Errorf("Read() = (%d, %v) % X", n, err, buf)
	}
}

func TestTransactor_WireFormat(t *testing.T) {
	_, bus := newTestSlave(t, slave.Config{Size: 32})
	tr := NewTransactor(bus)

	tr.Write(testAddr, 0x05, []byte{0xAA})
	if got, want := bus.Trace(), "S W50A W05A WAAA P"; got != want {
		t.Errorf("write trace = %q, want %q", got, want)
	}

	bus.Reset()
	tr.Read(testAddr, 0x05, make([]byte, 2))
	if got, want := bus.Trace(), "S W50A W05A S W51A R00A R00N P"; got != want {
		t.Errorf("read trace = %q, want %q", got, want)
	}
}

func TestTransactor_SetAddressReadCurrent(t *testing.T) {
	s, bus := newTestSlave(t, slave.Config{Size: 16})
	s.TX().WriteAt([]byte("abcdef"), 10)
	tr := NewTransactor(bus)

	if err := tr.SetAddress(testAddr, 12); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}
	if c, ok := s.Cursor(); c != 12 || !ok {
		t.Errorf("Cursor() = (%d, %v), want (12, true)", c, ok)
	}

	buf := make([]byte, 3)
	if _, err := tr.ReadCurrent(testAddr, buf); err != nil {
		t.Fatalf("ReadCurrent() error = %v", err)
	}
	if string(buf) != "cde" {
		t.Errorf("ReadCurrent() = %q, want \"cde\"", buf)
	}

	// The cursor advanced past the bytes read.
	tr.ReadCurrent(testAddr, buf[:1])
	if buf[0] != 'f' {
		t.Errorf("next ReadCurrent() = %q, want 'f'", buf[0])
	}
}

func TestTransactor_NoSuchDevice(t *testing.T) {
	_, bus := newTestSlave(t, slave.Config{Size: 8})
	tr := NewTransactor(bus)

	if err := tr.Probe(testAddr + 1); !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("Probe() error = %v, want ErrNoDevice", err)
	}
	if _, err := tr.Write(testAddr+1, 0, []byte{1}); !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("Write() error = %v, want ErrNoDevice", err)
	}
	if _, err := tr.ReadCurrent(testAddr+1, make([]byte, 1)); !errors.Is(err, pkg.ErrNoDevice) {
		t.Errorf("ReadCurrent() error = %v, want ErrNoDevice", err)
	}
	if err := tr.Probe(testAddr); err != nil {
		t.Errorf("Probe() of present slave error = %v", err)
	}
}

func TestTransactor_InvalidAddress(t *testing.T) {
	_, bus := newTestSlave(t, slave.Config{Size: 8})
	tr := NewTransactor(bus)

	if err := tr.Probe(0x80); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Probe(0x80) error = %v, want ErrInvalidParameter", err)
	}
	if len(bus.Ops()) != 0 {
		t.Errorf("invalid address reached the bus: %s", bus.Trace())
	}
}

func TestTransactor_WriteTruncated(t *testing.T) {
	s, bus := newTestSlave(t, slave.Config{Size: 32})
	tr := NewTransactor(bus)

	n, err := tr.Write(testAddr, 30, []byte{1, 2, 3})
	if n != 2 || !errors.Is(err, pkg.ErrNACK) {
		t.Errorf("Write() = (%d, %v), want (2, ErrNACK)", n, err)
	}
	if got := s.RX().Snapshot()[30:]; !bytes.Equal(got, []byte{1, 2}) {
		t.Errorf("slave rx[30:] = % X, want 01 02", got)
	}
	if ops := bus.Ops(); ops[len(ops)-1].Kind != OpStop {
		t.Errorf("bus not released: %s", bus.Trace())
	}
}

func TestTransactor_WriteRejected(t *testing.T) {
	_, bus := newTestSlave(t, slave.Config{Size: 8})
	tr := NewTransactor(bus)

	n, err := tr.Write(testAddr, 8, []byte{1})
	if n != 0 || !errors.Is(err, pkg.ErrNACK) {
		t.Errorf("Write() = (%d, %v), want (0, ErrNACK)", n, err)
	}
}

// =============================================================================
// Device Tests
// =============================================================================

func TestDevice_ReadWriteSeek(t *testing.T) {
	s, bus := newTestSlave(t, slave.Config{Size: 40, Layout: slave.LayoutShared})
	d, err := NewDevice(NewTransactor(bus), testAddr, DeviceConfig{Size: 40, MaxChunk: 8})
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}

	payload := bytes.Repeat([]byte{0x11, 0x22, 0x33}, 7) // 21 bytes, 3 chunks
	if _, err := d.Seek(4, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	n, err := d.Write(payload)
	if n != len(payload) || err != nil {
		t.Fatalf("Write() = (%d, %v)", n, err)
	}
	if got := s.RX().Snapshot()[4:25]; !bytes.Equal(got, payload) {
		t.Errorf("slave rx = % X", got)
	}

	pos, _ := d.Seek(-int64(len(payload)), io.SeekCurrent)
	if pos != 4 {
		t.Errorf("Seek() = %d, want 4", pos)
	}
	got := make([]byte, len(payload))
	if _, err := io.ReadFull(d, got); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("read back % X", got)
	}
}

func TestDevice_EndOfBuffer(t *testing.T) {
	_, bus := newTestSlave(t, slave.Config{Size: 16, Layout: slave.LayoutShared})
	d, _ := NewDevice(NewTransactor(bus), testAddr, DeviceConfig{Size: 16})

	d.Seek(-2, io.SeekEnd)
	n, err := d.Write([]byte{1, 2, 3})
	if n != 2 || err != io.EOF {
		t.Errorf("Write() past end = (%d, %v), want (2, EOF)", n, err)
	}

	n, err = d.Read(make([]byte, 4))
	if n != 0 || err != io.EOF {
		t.Errorf("Read() at end = (%d, %v), want (0, EOF)", n, err)
	}

	d.Seek(-2, io.SeekEnd)
	all, err := io.ReadAll(d)
	if err != nil || !bytes.Equal(all, []byte{1, 2}) {
		t.Errorf("ReadAll() = (% X, %v)", all, err)
	}
}

func TestDevice_SeekErrors(t *testing.T) {
	_, bus := newTestSlave(t, slave.Config{Size: 8})
	d, _ := NewDevice(NewTransactor(bus), testAddr, DeviceConfig{Size: 8})

	tests := []struct {
		offset int64
		whence int
	}{
		{-1, io.SeekStart},
		{9, io.SeekStart},
		{1, io.SeekEnd},
		{0, 7},
	}
	for _, tt := range tests {
		if _, err := d.Seek(tt.offset, tt.whence); !errors.Is(err, pkg.ErrInvalidParameter) {
			t.Errorf("Seek(%d, %d) error = %v, want ErrInvalidParameter", tt.offset, tt.whence, err)
		}
	}
}

func TestDevice_Sync(t *testing.T) {
	s, bus := newTestSlave(t, slave.Config{Size: 8})
	d, _ := NewDevice(NewTransactor(bus), testAddr, DeviceConfig{Size: 8})

	d.Seek(6, io.SeekStart)
	if err := d.Sync(); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if c, _ := s.Cursor(); c != 6 {
		t.Errorf("Cursor() = %d, want 6", c)
	}
}

func TestNewDevice_Validation(t *testing.T) {
	tr := NewTransactor(NewRecorder(sim.New(), 0))
	tests := []struct {
		name   string
		addr   Addr7
		config DeviceConfig
	}{
		{"address", 0x80, DeviceConfig{Size: 8}},
		{"zero size", testAddr, DeviceConfig{}},
		{"size too large", testAddr, DeviceConfig{Size: 256}},
		{"negative chunk", testAddr, DeviceConfig{Size: 8, MaxChunk: -1}},
	}
	for _, tt := range tests {
		if _, err := NewDevice(tr, tt.addr, tt.config); !errors.Is(err, pkg.ErrInvalidParameter) {
			t.Errorf("%s: error = %v, want ErrInvalidParameter", tt.name, err)
		}
	}
}

// =============================================================================
// Recorder Tests
// =============================================================================

func TestRecorder_Depth(t *testing.T) {
	_, bus := newTestSlave(t, slave.Config{Size: 8})
	r := NewRecorder(bus, 3)

	r.Start()
	r.WriteByte(testAddr.Write())
	r.WriteByte(1)
	r.Stop()

	if got, want := r.Trace(), "W50A W01A P"; got != want {
		t.Errorf("Trace() = %q, want %q", got, want)
	}
}

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{Op{Kind: OpStart}, "S"},
		{Op{Kind: OpStop}, "P"},
		{Op{Kind: OpWrite, Byte: 0x50, Ack: true}, "W50A"},
		{Op{Kind: OpRead, Byte: 0xFF}, "RFFN"},
		{Op{Kind: OpKind(9)}, "?"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
