package monitor

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ardnew/softtwi/pkg"
	"github.com/ardnew/softtwi/slave"
)

// RecorderQueue is the depth of the queue between the interrupt handler
// and the recorder worker.
const RecorderQueue = 256

// RecorderStats counts recorder activity.
type RecorderStats struct {
	Transactions uint64 `json:"transactions"`
	Faults       uint64 `json:"faults"`
	Persisted    uint64 `json:"persisted"`
	Dropped      uint64 `json:"dropped"`
	Errors       uint64 `json:"errors"`
}

type item struct {
	kind   EventType
	record Record
	fault  FaultInfo
}

// Recorder is a slave tracer that publishes completed transactions and
// faults, and journals the transactions.
//
// Trace runs in interrupt context: it copies what it needs and queues it
// without blocking. Run drains the queue on a worker goroutine.
type Recorder struct {
	slave *slave.Slave
	store *Store
	bus   *EventBus
	log   *zap.Logger

	queue chan item

	transactions atomic.Uint64
	faults       atomic.Uint64
	persisted    atomic.Uint64
	dropped      atomic.Uint64
	errors       atomic.Uint64
}

// NewRecorder creates a recorder for s. store and bus may be nil.
func NewRecorder(s *slave.Slave, store *Store, bus *EventBus, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Recorder{
		slave: s,
		store: store,
		bus:   bus,
		log:   log,
		queue: make(chan item, RecorderQueue),
	}
}

// Trace implements slave.Tracer.
func (r *Recorder) Trace(ev slave.TraceEvent) {
	if ev.Fault != nil {
		r.faults.Add(1)
		r.enqueue(item{kind: EventFault, fault: FaultInfo{
			Status: ev.Status.String(),
			State:  ev.From.String(),
			Fault:  ev.Fault.Error(),
			Cursor: ev.Cursor,
		}})
	}
	if !ev.Done {
		return
	}

	r.transactions.Add(1)
	rec := Record{
		Time:    time.Now().UTC(),
		Outcome: ev.Outcome,
		Address: ev.Address,
		Count:   ev.Count,
	}
	if err := ev.Outcome.Error(); err != nil {
		rec.Fault = err.Error()
	}
	switch ev.Outcome {
	case pkg.OutcomeWritten, pkg.OutcomeTruncated:
		rec.Data = copyBytes(r.slave.RX(), ev.Address, ev.Count)
	case pkg.OutcomeRead:
		rec.Data = copyBytes(r.slave.TX(), ev.Address, ev.Count)
	}
	r.enqueue(item{kind: EventTransaction, record: rec})
}

// copyBytes reads buffer bytes without entering the critical section;
// it is only called from the interrupt handler.
func copyBytes(b *slave.Buffer, address, count int) HexBytes {
	if address < 0 || address >= b.Len() || count <= 0 {
		return nil
	}
	if end := address + count; end > b.Len() {
		count = b.Len() - address
	}
	out := make(HexBytes, 0, count)
	for i := address; i < address+count; i++ {
		out = append(out, b.Byte(i))
	}
	return out
}

func (r *Recorder) enqueue(it item) {
	select {
	case r.queue <- it:
	default:
		r.dropped.Add(1)
	}
}

// Run publishes and journals queued items until ctx is done, then
// drains what is left and returns.
func (r *Recorder) Run(ctx context.Context) error {
	r.log.Info("recorder started", zap.Bool("journal", r.store != nil))
	for {
		select {
		case it := <-r.queue:
			r.handle(ctx, it)
		case <-ctx.Done():
			drain := context.WithoutCancel(ctx)
			for {
				select {
				case it := <-r.queue:
					r.handle(drain, it)
				default:
					r.log.Info("recorder stopped", zap.Any("stats", r.Stats()))
					return nil
				}
			}
		}
	}
}

func (r *Recorder) handle(ctx context.Context, it item) {
	switch it.kind {
	case EventFault:
		r.log.Debug("protocol fault",
			zap.String("status", it.fault.Status),
			zap.String("state", it.fault.State),
			zap.String("fault", it.fault.Fault))
		r.publish(Event{Type: EventFault, Data: it.fault})

	case EventTransaction:
		rec := it.record
		if r.store != nil {
			id, err := r.store.Insert(ctx, rec)
			if err != nil {
				r.errors.Add(1)
				r.log.Warn("journal insert failed", zap.Error(err))
			} else {
				rec.ID = id
				r.persisted.Add(1)
			}
		}
		r.log.Debug("transaction",
			zap.Stringer("outcome", rec.Outcome),
			zap.Int("address", rec.Address),
			zap.Int("count", rec.Count))
		r.publish(Event{Type: EventTransaction, Timestamp: rec.Time, Data: rec})
	}
}

func (r *Recorder) publish(e Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}

// Stats returns the activity counters.
func (r *Recorder) Stats() RecorderStats {
	return RecorderStats{
		Transactions: r.transactions.Load(),
		Faults:       r.faults.Load(),
		Persisted:    r.persisted.Load(),
		Dropped:      r.dropped.Load(),
		Errors:       r.errors.Load(),
	}
}
