package events

import "testing"

type testEvent string

func (e testEvent) EventType() string { return string(e) }

func TestRecorderKeepsOrder(t *testing.T) {
	rec := &Recorder{}
	rec.Emit(testEvent("a"))
	rec.Emit(nil)
	rec.Emit(testEvent("b"))
	got := rec.Events()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].EventType() != "a" || got[1].EventType() != "b" {
		t.Fatalf("unexpected order: %v", got)
	}
	rec.Reset()
	if len(rec.Events()) != 0 {
		t.Fatalf("expected reset to drop events")
	}
}

func TestEmitterFunc(t *testing.T) {
	var seen []string
	emitter := EmitterFunc(func(evt Event) { seen = append(seen, evt.EventType()) })
	emitter.Emit(testEvent("x"))
	var nilFunc EmitterFunc
	nilFunc.Emit(testEvent("ignored"))
	if len(seen) != 1 || seen[0] != "x" {
		t.Fatalf("unexpected events: %v", seen)
	}
}
