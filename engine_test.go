package gesture

import (
	"errors"
	"testing"
	"time"
)

// ---- helpers ---------------------------------------------------------------

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(append([]Option{WithLogger(discard())}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// addTestDevice announces a five-contact device with no resolution, so one
// device unit is one millimetre.
func addTestDevice(t *testing.T, e *Engine, id DeviceID) *Injector {
	t.Helper()
	if err := e.AddDevice(DeviceInfo{ID: id, Name: "test", Touches: 5, DirectTouch: true}); err != nil {
		t.Fatalf("AddDevice: %v", err)
	}
	drain(e)
	return NewInjector(e, id, 0)
}

// classFilter builds a filter matching any of the named classes.
func classFilter(t *testing.T, e *Engine, classes ...string) *Filter {
	t.Helper()
	f, err := e.NewFilter("classes")
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	for _, c := range classes {
		if err := f.AddTerm(FilterClass, Term{Attr: ClassAttrName, Op: OpEQ, Value: c}); err != nil {
			t.Fatalf("AddTerm %s: %v", c, err)
		}
	}
	return f
}

func activeSub(t *testing.T, e *Engine, name string, flags SubscriptionFlags, filters ...*Filter) *Subscription {
	t.Helper()
	s, err := e.NewSubscription(name, flags)
	if err != nil {
		t.Fatalf("NewSubscription: %v", err)
	}
	for _, f := range filters {
		if err := s.AddFilter(f); err != nil {
			t.Fatalf("AddFilter: %v", err)
		}
	}
	if err := s.Activate(); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	return s
}

// collect dispatches waiting input and returns the queued gesture events,
// releasing everything it pulls.
func collect(e *Engine) []GestureEvent {
	drain(e)
	var out []GestureEvent
	for {
		ev, st := e.NextEvent()
		if ev == nil {
			return out
		}
		if ge, ok := Snapshot(ev); ok {
			out = append(out, ge)
		}
		_ = ev.Release()
		if st != StatusContinue {
			return out
		}
	}
}

// collectTypes dispatches and returns the types of every queued event.
func collectTypes(e *Engine) []EventType {
	drain(e)
	var out []EventType
	for {
		ev, _ := e.NextEvent()
		if ev == nil {
			return out
		}
		out = append(out, ev.Type())
		_ = ev.Release()
	}
}

func only(evs []GestureEvent, class string) []GestureEvent {
	var out []GestureEvent
	for _, ev := range evs {
		if ev.Class == class {
			out = append(out, ev)
		}
	}
	return out
}

func forSub(evs []GestureEvent, sub string) []GestureEvent {
	var out []GestureEvent
	for _, ev := range evs {
		if ev.Subscription == sub {
			out = append(out, ev)
		}
	}
	return out
}

func typesOf(evs []GestureEvent) []EventType {
	out := make([]EventType, len(evs))
	for i, ev := range evs {
		out[i] = ev.Type
	}
	return out
}

func sameTypes(a, b []EventType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---- lifecycle ---------------------------------------------------------------

func TestNew_BuiltinClasses(t *testing.T) {
	e := newTestEngine(t)
	want := []string{GestureDrag, GesturePinch, GestureRotate, GestureTap, GestureTouch, GestureFlick}
	classes := e.Classes()
	if len(classes) != len(want) {
		t.Fatalf("expected %d classes, got %d", len(want), len(classes))
	}
	for i, c := range classes {
		if c.Name() != want[i] {
			t.Errorf("class %d: expected %s, got %s", i, want[i], c.Name())
		}
	}
	if e.ClassByName(GestureTap).ID() != ClassIDTap {
		t.Errorf("expected Tap id %d", ClassIDTap)
	}
}

func TestNew_InitCompleteOnFirstDispatch(t *testing.T) {
	e := newTestEngine(t)
	if e.QueuedEvents() != 0 {
		t.Fatalf("expected no events before dispatch, got %d", e.QueuedEvents())
	}
	got := collectTypes(e)
	if !sameTypes(got, []EventType{EventInitComplete}) {
		t.Errorf("expected [init-complete], got %v", got)
	}
	if got := collectTypes(e); len(got) != 0 {
		t.Errorf("init-complete must be queued once, got %v", got)
	}
}

func TestNew_SynchronousStartTracksClasses(t *testing.T) {
	e := newTestEngine(t, WithSynchronousStart(true), WithTrackClasses(true))
	if e.QueuedEvents() != len(BuiltinClasses())+1 {
		t.Fatalf("expected class events and init-complete queued by New, got %d", e.QueuedEvents())
	}
	var names []string
	for {
		ev, _ := e.NextEvent()
		if ev == nil {
			break
		}
		if ev.Type() == EventClassAvailable {
			names = append(names, ev.Class().Name())
		}
		_ = ev.Release()
	}
	if len(names) != len(BuiltinClasses()) || names[0] != GestureDrag {
		t.Errorf("unexpected class-available events: %v", names)
	}
}

func TestEngine_DeviceTracking(t *testing.T) {
	e := newTestEngine(t, WithTrackDevices(true))
	collectTypes(e)

	must(t, e.AddDevice(DeviceInfo{ID: 4, Name: "pad", Touches: 2}))
	drain(e)
	ev, _ := e.NextEvent()
	if ev == nil || ev.Type() != EventDeviceAvailable {
		t.Fatalf("expected device-available, got %v", ev)
	}
	dev := ev.Device()
	must(t, dev.Ref())
	_ = ev.Release()

	must(t, e.RemoveDevice(4))
	if got := collectTypes(e); !sameTypes(got, []EventType{EventDeviceUnavailable}) {
		t.Errorf("expected [device-unavailable], got %v", got)
	}
	if e.Device(4) != nil {
		t.Error("removed device still resolvable")
	}
	// the extra reference keeps the device readable after removal
	if dev.Name() != "pad" {
		t.Errorf("expected held device to stay readable, got %q", dev.Name())
	}
	if a, ok := dev.Attr(DeviceAttrTouches); !ok || a.Int() != 2 {
		t.Errorf("expected device touches 2, got %v", a.Value())
	}
	must(t, dev.Unref())
	if dev.Valid() {
		t.Error("device still valid after last unref")
	}
}

func TestEngine_DeviceCallback(t *testing.T) {
	e := newTestEngine(t, WithTrackDevices(true))
	var got []EventType
	e.RegisterDeviceCallback(func(ev *Event) { got = append(got, ev.Type()) })
	must(t, e.AddDevice(DeviceInfo{ID: 1, Name: "a"}))
	must(t, e.RemoveDevice(1))
	types := collectTypes(e)
	if !sameTypes(got, []EventType{EventDeviceAvailable, EventDeviceUnavailable}) {
		t.Errorf("callback got %v", got)
	}
	if !sameTypes(types, []EventType{EventInitComplete}) {
		t.Errorf("expected only init-complete left in the queue, got %v", types)
	}
}

func TestEngine_InvalidDeviceReportsError(t *testing.T) {
	e := newTestEngine(t)
	collectTypes(e)
	must(t, e.Push(InputFrame{Device: 9, Time: 0, Touches: []TouchDelta{{ID: 1}}}))
	if got := collectTypes(e); !sameTypes(got, []EventType{EventError}) {
		t.Fatalf("expected [error], got %v", got)
	}
	d, ok := e.ErrorAt(0)
	if !ok || !errors.Is(d.Err, ErrInvalidDevice) || d.Status != StatusBadArgument {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	if err := e.AddDevice(DeviceInfo{ID: AllDevices}); !errors.Is(err, ErrBadArgument) {
		t.Errorf("expected ErrBadArgument for device 0, got %v", err)
	}
}

func TestEngine_RemoveDeviceEndsGestures(t *testing.T) {
	e := newTestEngine(t)
	activeSub(t, e, "touch", SubscriptionNone, classFilter(t, e, GestureTouch))
	in := addTestDevice(t, e, 1)
	collect(e)

	in.Press(1, 10, 10)
	must(t, in.Sync())
	if got := typesOf(collect(e)); !sameTypes(got, []EventType{EventGestureBegin}) {
		t.Fatalf("expected touch begin, got %v", got)
	}
	must(t, e.RemoveDevice(1))
	if got := typesOf(collect(e)); !sameTypes(got, []EventType{EventGestureEnd}) {
		t.Errorf("expected touch end on removal, got %v", got)
	}
}

func TestEngine_Close(t *testing.T) {
	e, err := New(WithLogger(discard()))
	must(t, err)
	must(t, e.Close())
	if err := e.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on second close, got %v", err)
	}
	if err := e.Tick(time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed from Tick, got %v", err)
	}
	if st := e.DispatchEvents(); st != StatusUnknownError {
		t.Errorf("expected unknown error status, got %s", st)
	}
}

func TestDispatch_MaxEventsBound(t *testing.T) {
	e := newTestEngine(t, WithMaxEvents(2))
	for i := 0; i < 5; i++ {
		must(t, e.Tick(time.Duration(i)*time.Millisecond))
	}
	var statuses []Status
	for {
		st := e.DispatchEvents()
		statuses = append(statuses, st)
		if st != StatusContinue {
			break
		}
	}
	if len(statuses) != 3 {
		t.Errorf("expected 3 dispatch calls for 5 records, got %v", statuses)
	}
	if e.Pending() {
		t.Error("inbox not drained")
	}
	if e.Now() != 4*time.Millisecond {
		t.Errorf("expected now 4ms, got %v", e.Now())
	}
}

func TestEventQueue_Bound(t *testing.T) {
	var q eventQueue
	for i := 0; i < MaxQueued; i++ {
		if err := q.add(&Event{}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	if err := q.add(&Event{}); !errors.Is(err, ErrUnknown) {
		t.Fatalf("expected full queue error, got %v", err)
	}
	q.get()
	if err := q.add(&Event{}); err != nil {
		t.Errorf("expected room after get, got %v", err)
	}
	if q.len() != MaxQueued {
		t.Errorf("expected %d queued, got %d", MaxQueued, q.len())
	}
}

func TestEventQueue_Purge(t *testing.T) {
	var q eventQueue
	evs := []*Event{{gid: 1}, {gid: 2}, {gid: 1}, {gid: 3}, {gid: 1}}
	for _, ev := range evs {
		must(t, q.add(ev))
	}
	dropped := q.purge(func(ev *Event) bool { return ev.gid == 1 })
	if len(dropped) != 3 || q.len() != 2 {
		t.Fatalf("expected 3 dropped and 2 kept, got %d and %d", len(dropped), q.len())
	}
	if a, b := q.get(), q.get(); a.gid != 2 || b.gid != 3 || q.get() != nil {
		t.Error("kept events out of order")
	}
	must(t, q.add(&Event{gid: 4}))
	if ev := q.get(); ev.gid != 4 {
		t.Error("queue broken after purging its tail")
	}
}
