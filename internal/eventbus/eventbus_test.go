package eventbus

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Publish("assigned")
	if v := <-ch; v != "assigned" {
		t.Fatalf("expected assigned, got %v", v)
	}
	bus.Unsubscribe(ch)
}

func TestBusDoesNotBlockSlowSubscriber(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	for i := 0; i < subscriberBuffer*2; i++ {
		bus.Publish(i) // must not deadlock once the buffer fills
	}
	if v := <-ch; v != 0 {
		t.Fatalf("expected first event preserved, got %v", v)
	}
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
	bus.Publish("dropped") // no panic after close
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}
