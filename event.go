package gesture

import "fmt"

// MaxQueued bounds the number of undelivered events an engine holds.
const MaxQueued = 65535

// Event is an immutable, reference-counted record produced by the engine.
// Events handed to a callback are released when the callback returns unless
// the callback takes a reference; events pulled with NextEvent belong to the
// caller, who releases them with Release.
type Event struct {
	object[Event]
	typ     EventType
	attrs   Attrs
	device  *Device
	class   *GestureClass
	groups  GroupSet
	touches TouchSet
	sub     *Subscription
	group   GroupID
	gid     GestureID
}

// Ref adds a reference.
func (ev *Event) Ref() error { return ev.addRef() }

// Release drops a reference. It is Unref under the name consumers expect
// for events.
func (ev *Event) Release() error { return ev.Unref() }

// Type returns the event type.
func (ev *Event) Type() EventType {
	if !ev.alive("Type") {
		return 0
	}
	return ev.typ
}

// Attrs returns the event attributes. Gesture events carry "group set",
// "touch set" and "construction finished"; device and class events carry
// "device" or "gesture class"; error events carry "error code" and
// "error message".
func (ev *Event) Attrs() Attrs {
	if !ev.alive("Attrs") {
		return nil
	}
	return ev.attrs
}

// Attr looks up one event attribute.
func (ev *Event) Attr(name string) (Attr, bool) {
	return ev.Attrs().ByName(name)
}

// Device returns the device of a device event, or nil.
func (ev *Event) Device() *Device {
	if !ev.alive("Device") {
		return nil
	}
	return ev.device
}

// Class returns the class of a class event, or nil.
func (ev *Event) Class() *GestureClass {
	if !ev.alive("Class") {
		return nil
	}
	return ev.class
}

// Groups returns the group set of a gesture event.
func (ev *Event) Groups() GroupSet {
	if !ev.alive("Groups") {
		return GroupSet{}
	}
	return ev.groups
}

// Touches returns the touch set of a gesture event.
func (ev *Event) Touches() TouchSet {
	if !ev.alive("Touches") {
		return TouchSet{}
	}
	return ev.touches
}

// Subscription returns the subscription a gesture event was delivered for,
// nil for engine-wide events.
func (ev *Event) Subscription() *Subscription {
	if !ev.alive("Subscription") {
		return nil
	}
	return ev.sub
}

// Frame is shorthand for the first frame of the first group, nil for
// non-gesture events.
func (ev *Event) Frame() *Frame {
	g := ev.Groups().At(0)
	if g == nil {
		return nil
	}
	return g.Frame(0)
}

// ConstructionFinished reports the "construction finished" attribute.
func (ev *Event) ConstructionFinished() bool {
	a, _ := ev.Attr(EventAttrConstructionFinished)
	return a.Bool()
}

func (ev *Event) String() string {
	if !ev.Valid() {
		return "event(released)"
	}
	if ev.typ.IsGesture() {
		return fmt.Sprintf("%s group=%d gesture=%d", ev.typ, ev.group, ev.gid)
	}
	return ev.typ.String()
}

// releaseEvent drops the references an event holds on its contents.
func releaseEvent(ev *Event) {
	if ev.device != nil {
		_ = ev.device.Unref()
	}
	if ev.class != nil {
		_ = ev.class.Unref()
	}
	for _, g := range ev.groups.groups {
		_ = g.Unref()
	}
	for _, t := range ev.touches.touches {
		_ = t.Unref()
	}
}

func releaseGroup(g *Group) {
	for _, f := range g.frames {
		_ = f.Unref()
	}
}

func releaseFrame(f *Frame) {
	for _, c := range f.classes {
		_ = c.Unref()
	}
}

type queueEntry struct {
	ev   *Event
	next *queueEntry
}

// eventQueue is the FIFO of undelivered events. Entries are recycled through
// a free list.
type eventQueue struct {
	head  *queueEntry
	tail  *queueEntry
	free  *queueEntry
	count int
}

func (q *eventQueue) add(ev *Event) error {
	if q.count >= MaxQueued {
		return fmt.Errorf("event queue is full (%d): %w", MaxQueued, ErrUnknown)
	}
	ent := q.free
	if ent != nil {
		q.free = ent.next
		ent.next = nil
	} else {
		ent = &queueEntry{}
	}
	ent.ev = ev
	if q.tail == nil {
		q.head = ent
	} else {
		q.tail.next = ent
	}
	q.tail = ent
	q.count++
	return nil
}

func (q *eventQueue) get() *Event {
	ent := q.head
	if ent == nil {
		return nil
	}
	q.head = ent.next
	if q.head == nil {
		q.tail = nil
	}
	ev := ent.ev
	ent.ev = nil
	ent.next = q.free
	q.free = ent
	q.count--
	return ev
}

// purge removes queued events for which drop reports true and returns them.
func (q *eventQueue) purge(drop func(*Event) bool) []*Event {
	var out []*Event
	var prev *queueEntry
	for ent := q.head; ent != nil; {
		next := ent.next
		if !drop(ent.ev) {
			prev = ent
			ent = next
			continue
		}
		out = append(out, ent.ev)
		if prev == nil {
			q.head = next
		} else {
			prev.next = next
		}
		if q.tail == ent {
			q.tail = prev
		}
		ent.ev = nil
		ent.next = q.free
		q.free = ent
		q.count--
		ent = next
	}
	return out
}

func (q *eventQueue) len() int { return q.count }
