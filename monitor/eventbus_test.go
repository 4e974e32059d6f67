package monitor

import (
	"testing"
)

func TestEventBus_FanOut(t *testing.T) {
	b := NewEventBus()
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub2()

	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}

	b.Publish(Event{Type: EventFault, Data: "x"})
	for i, ch := range []<-chan Event{ch1, ch2} {
		e := <-ch
		if e.Type != EventFault || e.Timestamp.IsZero() {
			t.Errorf("subscriber %d got %+v", i, e)
		}
	}

	unsub1()
	if _, ok := <-ch1; ok {
		t.Error("channel open after unsubscribe")
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	b := NewEventBus()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < SubscriberBuffer+5; i++ {
		b.Publish(Event{Type: EventTransaction, Data: i})
	}
	if got := b.Dropped(); got != 5 {
		t.Errorf("Dropped() = %d, want 5", got)
	}
	if first := <-ch; first.Data != 0 {
		t.Errorf("first event = %v, want 0", first.Data)
	}
}
