package chat

import (
	"testing"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestBusDispatchOrder(t *testing.T) {
	bus := NewBus(nopLogger{})

	var got []int
	bus.On("evt", func(interface{}) { got = append(got, 1) })
	bus.On("evt", func(interface{}) { got = append(got, 2) })
	bus.On("evt", func(interface{}) { got = append(got, 3) })

	bus.Emit("evt", nil)

	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Emit() dispatched %d handlers, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dispatch order = %v, want %v", got, want)
			break
		}
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(nopLogger{})

	var calls int
	off := bus.On("evt", func(interface{}) { calls++ })
	bus.Emit("evt", nil)
	off()
	bus.Emit("evt", nil)

	if calls != 1 {
		t.Errorf("handler called %d times after unsubscribe, want 1", calls)
	}
}

func TestBusPanicIsolation(t *testing.T) {
	bus := NewBus(nopLogger{})

	var survived bool
	bus.On("evt", func(interface{}) { panic("boom") })
	bus.On("evt", func(interface{}) { survived = true })

	bus.Emit("evt", nil)

	if !survived {
		t.Error("a panicking handler prevented later handlers from running")
	}
}

func TestBusNoReplay(t *testing.T) {
	bus := NewBus(nopLogger{})

	bus.Emit("evt", nil)

	var calls int
	bus.On("evt", func(interface{}) { calls++ })

	if calls != 0 {
		t.Errorf("handler saw %d past emissions, want 0", calls)
	}
}

func TestBusPayloadDelivery(t *testing.T) {
	bus := NewBus(nopLogger{})

	var got interface{}
	bus.On("evt", func(payload interface{}) { got = payload })
	bus.Emit("evt", "hello")

	if got != "hello" {
		t.Errorf("payload = %v, want hello", got)
	}
}
