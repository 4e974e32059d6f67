package monitor

import (
	"bytes"
	"context"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/ardnew/softtwi/pkg"
	"github.com/ardnew/softtwi/slave"
	"github.com/ardnew/softtwi/slave/hal"
)

func TestRecorder_JournalsTransactions(t *testing.T) {
	h := newHarness(t, slave.Config{Size: 32})

	h.tr.Write(testAddr, 5, []byte{0xAA, 0xBB})
	h.tr.Write(testAddr, 30, []byte{1, 2, 3})
	h.tr.SetAddress(testAddr, 40)

	waitFor(t, "journal", func() bool { return h.rec.Stats().Persisted == 3 })

	recs, err := h.store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("Recent() = %s", spew.Sdump(recs))
	}

	rejected, truncated, written := recs[0], recs[1], recs[2]
	if written.Outcome != pkg.OutcomeWritten || written.Address != 5 || !bytes.Equal(written.Data, []byte{0xAA, 0xBB}) {
		t.Errorf("written = %s", spew.Sdump(written))
	}
	if truncated.Outcome != pkg.OutcomeTruncated || truncated.Count != 2 || truncated.Fault == "" {
		t.Errorf("truncated = %s", spew.Sdump(truncated))
	}
	if rejected.Outcome != pkg.OutcomeRejected || rejected.Address != 40 {
		t.Errorf("rejected = %s", spew.Sdump(rejected))
	}

	stats := h.rec.Stats()
	// The dropped byte and the out of range address.
	if stats.Faults != 2 || stats.Transactions != 3 || stats.Dropped != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestRecorder_CapturesReadData(t *testing.T) {
	h := newHarness(t, slave.Config{Size: 16})
	h.p.Run(func() {
		h.s.TX().WriteAt([]byte{9, 8, 7}, 2)
	})

	h.tr.Read(testAddr, 2, make([]byte, 3))

	// Address-set, then the read.
	waitFor(t, "journal", func() bool { return h.rec.Stats().Persisted == 2 })
	recs, _ := h.store.Recent(context.Background(), 1)
	if recs[0].Outcome != pkg.OutcomeRead || !bytes.Equal(recs[0].Data, []byte{9, 8, 7}) {
		t.Errorf("read record = %s", spew.Sdump(recs[0]))
	}
}

func TestRecorder_PublishesFaults(t *testing.T) {
	h := newHarness(t, slave.Config{Size: 8})
	ch, unsub := h.bus.Subscribe()
	defer unsub()

	h.p.InjectStatus(hal.StatusSRStop, 0)

	var faults, transactions int
	for faults == 0 || transactions == 0 {
		e := <-ch
		switch e.Type {
		case EventFault:
			faults++
			info := e.Data.(FaultInfo)
			if info.Status != "SR_STOP" || info.Fault != pkg.ErrProtocolViolation.Error() {
				t.Errorf("fault = %+v", info)
			}
		case EventTransaction:
			transactions++
			if rec := e.Data.(Record); rec.Outcome != pkg.OutcomeReset {
				t.Errorf("transaction = %s", spew.Sdump(rec))
			}
		}
	}
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	s := newHarness(t, slave.Config{Size: 8}).s
	r := NewRecorder(s, nil, nil, nil)

	for i := 0; i < RecorderQueue+3; i++ {
		r.Trace(slave.TraceEvent{Done: true, Outcome: pkg.OutcomeAddressSet})
	}
	if got := r.Stats().Dropped; got != 3 {
		t.Errorf("Dropped = %d, want 3", got)
	}

	// Run drains the queue after cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.Run(ctx)
	if len(r.queue) != 0 {
		t.Errorf("queue holds %d items after Run", len(r.queue))
	}
}

func TestCopyBytes(t *testing.T) {
	b, _ := slave.NewBuffer(4)
	b.WriteAt([]byte{1, 2, 3, 4}, 0)

	tests := []struct {
		address, count int
		want           []byte
	}{
		{0, 2, []byte{1, 2}},
		{2, 5, []byte{3, 4}},
		{4, 1, nil},
		{-1, 1, nil},
		{0, 0, nil},
	}
	for _, tt := range tests {
		if got := copyBytes(b, tt.address, tt.count); !bytes.Equal(got, tt.want) {
			t.Errorf("copyBytes(%d, %d) = % X, want % X", tt.address, tt.count, got, tt.want)
		}
	}
}
