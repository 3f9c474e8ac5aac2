package bus

import (
	"errors"
	"testing"
	"time"
)

func TestBasicPublishSubscribe(t *testing.T) {
	b := New()
	done := make(chan struct{})
	_, err := b.Subscribe(TypeIndexRebuilt, func(e Event) error {
		close(done)
		return nil
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err = b.Publish(NewEvent(TypeIndexRebuilt, "tester", 123)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("handler not called")
	}
}

func TestPublishAsyncReturnsErrorChannel(t *testing.T) {
	b := New()
	handlerErr := errors.New("fail")
	if _, err := b.Subscribe("x", func(e Event) error { return handlerErr }); err != nil {
		t.Fatalf("sub: %v", err)
	}
	select {
	case e := <-b.PublishAsync(NewEvent("x", "src", nil)):
		if !errors.Is(e, handlerErr) {
			t.Fatalf("expected handler error, got %v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("async publish did not complete")
	}
}

func TestEventTypeIsolation(t *testing.T) {
	b := New()
	count1, count2 := 0, 0
	_, _ = b.Subscribe(TypeSelectionChanged, func(e Event) error { count1++; return nil })
	_, _ = b.Subscribe(TypeMoveOrdered, func(e Event) error { count2++; return nil })

	_ = b.Publish(NewEvent(TypeSelectionChanged, "src", nil))
	if count1 != 1 || count2 != 0 {
		t.Fatalf("type isolation failed: %d %d", count1, count2)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()
	count := 0
	sub, err := b.Subscribe("e", func(e Event) error { count++; return nil })
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	_ = b.Publish(NewEvent("e", "s", nil))
	if err = b.Unsubscribe(sub); err != nil {
		t.Fatalf("unsub: %v", err)
	}
	_ = sub.Cancel()
	_ = b.Publish(NewEvent("e", "s", nil))

	if count != 1 {
		t.Fatalf("expected one delivery, got %d", count)
	}
	if sub.IsActive() {
		t.Fatal("subscription still active")
	}
	m := b.Metrics()
	if m.Published != 2 || m.DeliveredHandlers != 1 || m.SubscribersActive != 0 {
		t.Fatalf("unexpected metrics: %+v", m)
	}
}

func TestErrorsAreJoined(t *testing.T) {
	b := New()
	e1, e2 := errors.New("one"), errors.New("two")
	_, _ = b.Subscribe("e", func(Event) error { return e1 })
	_, _ = b.Subscribe("e", func(Event) error { return e2 })

	err := b.Publish(NewEvent("e", "s", nil))
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if b.Metrics().Errors != 2 {
		t.Fatalf("expected 2 errors, got %d", b.Metrics().Errors)
	}
}

func TestNilHandlerRejected(t *testing.T) {
	if _, err := New().Subscribe("e", nil); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
}
