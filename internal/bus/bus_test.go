package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindSessionStatus, Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindSessionStatus {
			t.Errorf("got kind %q, want %s", evt.Kind, KindSessionStatus)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("diag.", 10)
	defer unsub()

	b.Emit(KindSessionStatus, nil)
	b.Emit(KindDiagMarkReadFailed, Diagnostic{PartnerID: "doc-1"})

	select {
	case evt := <-ch:
		if evt.Kind != KindDiagMarkReadFailed {
			t.Errorf("got kind %q, want %s", evt.Kind, KindDiagMarkReadFailed)
		}
		if evt.Timestamp.IsZero() {
			t.Error("Emit should stamp the event")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestViewNamespaceIsolation(t *testing.T) {
	b := New()
	chA, unsubA := b.Subscribe(ViewNamespace("a"), 10)
	defer unsubA()
	chB, unsubB := b.Subscribe(ViewNamespace("b"), 10)
	defer unsubB()

	b.Emit(ViewNamespace("a")+"message", "hello")

	select {
	case <-chA:
	case <-time.After(time.Second):
		t.Fatal("view a did not receive its event")
	}
	select {
	case evt := <-chB:
		t.Errorf("view b received %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("session.", 10)
	unsub()
	unsub()

	b.Emit(KindSessionStatus, nil)

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("test.", 1)
	defer unsub()

	b.Publish(Event{Kind: "test.one"})
	b.Publish(Event{Kind: "test.two"})

	evt := <-ch
	if evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
	if b.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", b.Dropped())
	}
}

func TestWatchSignalsMissedEvents(t *testing.T) {
	b := New()
	events, missed, unsub := b.Watch("test.", 1)
	defer unsub()
	plain, unsubPlain := b.Subscribe("test.", 10)
	defer unsubPlain()

	b.Publish(Event{Kind: "test.one"})
	select {
	case <-missed:
		t.Fatal("missed signalled before anything was dropped")
	default:
	}

	b.Publish(Event{Kind: "test.two"})
	b.Publish(Event{Kind: "test.three"})
	select {
	case <-missed:
	default:
		t.Fatal("missed not signalled after a drop")
	}
	// Several drops collapse into one signal.
	select {
	case <-missed:
		t.Fatal("missed signalled twice")
	default:
	}

	if evt := <-events; evt.Kind != "test.one" {
		t.Errorf("got %q, want test.one", evt.Kind)
	}
	if len(plain) != 3 {
		t.Errorf("plain subscriber got %d events, want 3", len(plain))
	}
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var b *Bus
	b.Emit("anything", nil)
}
