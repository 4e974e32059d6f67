package master

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ardnew/softtwi/pkg"
)

// OpKind identifies a bus operation.
type OpKind uint8

// Bus operations.
const (
	OpStart OpKind = iota
	OpStop
	OpWrite
	OpRead
)

// String returns the operation mnemonic.
func (k OpKind) String() string {
	switch k {
	case OpStart:
		return "S"
	case OpStop:
		return "P"
	case OpWrite:
		return "W"
	case OpRead:
		return "R"
	default:
		return "?"
	}
}

// Op is one recorded bus operation.
type Op struct {
	Kind OpKind
	Byte byte  // Byte written or read
	Ack  bool  // For writes: acknowledged by the slave; for reads: ACK sent
	Err  error // Error returned by the bus
}

// String formats the operation as it appears on a protocol analyzer.
func (o Op) String() string {
	switch o.Kind {
	case OpWrite, OpRead:
		a := "N"
		if o.Ack {
			a = "A"
		}
		return fmt.Sprintf("%s%02X%s", o.Kind, o.Byte, a)
	default:
		return o.Kind.String()
	}
}

// DefaultRecorderDepth bounds the number of operations a Recorder keeps.
const DefaultRecorderDepth = 1024

// Recorder is a Bus that forwards to another Bus and records every
// operation.
type Recorder struct {
	bus   Bus
	depth int

	mu  sync.Mutex
	ops []Op
}

// NewRecorder wraps bus. depth bounds the log; zero selects
// DefaultRecorderDepth.
func NewRecorder(bus Bus, depth int) *Recorder {
	if depth <= 0 {
		depth = DefaultRecorderDepth
	}
	return &Recorder{bus: bus, depth: depth}
}

// Start implements Bus.
func (r *Recorder) Start() error {
	err := r.bus.Start()
	r.record(Op{Kind: OpStart, Err: err})
	return err
}

// Stop implements Bus.
func (r *Recorder) Stop() error {
	err := r.bus.Stop()
	r.record(Op{Kind: OpStop, Err: err})
	return err
}

// WriteByte implements Bus.
func (r *Recorder) WriteByte(b byte) error {
	err := r.bus.WriteByte(b)
	r.record(Op{Kind: OpWrite, Byte: b, Ack: err == nil, Err: err})
	return err
}

// ReadByte implements Bus.
func (r *Recorder) ReadByte(ack bool) (byte, error) {
	b, err := r.bus.ReadByte(ack)
	r.record(Op{Kind: OpRead, Byte: b, Ack: ack, Err: err})
	return b, err
}

// Ops returns a copy of the recorded operations, oldest first.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Op(nil), r.ops...)
}

// Reset clears the log.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = r.ops[:0]
}

// Trace formats the recorded operations on one line, e.g.
// "S W50A W05A P".
func (r *Recorder) Trace() string {
	ops := r.Ops()
	parts := make([]string, len(ops))
	for i, op := range ops {
		parts[i] = op.String()
	}
	return strings.Join(parts, " ")
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	if len(r.ops) >= r.depth {
		copy(r.ops, r.ops[1:])
		r.ops = r.ops[:len(r.ops)-1]
	}
	r.ops = append(r.ops, op)
	r.mu.Unlock()

	if pkg.DebugEnabled() {
		pkg.LogDebug(pkg.ComponentMaster, "bus op", "op", op.String(), "error", op.Err)
	}
}
