package monitor

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/ardnew/softtwi/master"
	"github.com/ardnew/softtwi/slave"
	"github.com/ardnew/softtwi/slave/hal/sim"
)

const testAddr master.Addr7 = 0x28

// harness is a simulated slave with a recorder, journal and API server.
type harness struct {
	p     *sim.Peripheral
	s     *slave.Slave
	tr    *master.Transactor
	store *Store
	bus   *EventBus
	rec   *Recorder
	srv   *httptest.Server
}

func newHarness(t *testing.T, config slave.Config) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)

	p := sim.New()
	s, err := slave.New(config, p, p)
	if err != nil {
		t.Fatalf("slave.New() error = %v", err)
	}
	p.Attach(s.HandleInterrupt)
	if err := s.Init(uint8(testAddr), false); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	store, err := OpenStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}

	h := &harness{
		p:     p,
		s:     s,
		tr:    master.NewTransactor(p),
		store: store,
		bus:   NewEventBus(),
	}
	h.rec = NewRecorder(s, store, h.bus, log)
	s.SetTracer(h.rec)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.rec.Run(ctx)
	}()

	h.srv = httptest.NewServer(NewRouter(Config{
		Slave:      s,
		Transactor: h.tr,
		Address:    testAddr,
		Foreground: p.Run,
		Store:      store,
		Bus:        h.bus,
		Recorder:   h.rec,
		Logger:     log,
	}))

	t.Cleanup(func() {
		h.srv.Close()
		cancel()
		<-done
		store.Close()
	})
	return h
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
