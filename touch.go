package gesture

import (
	"fmt"
	"sort"
	"time"
)

// DeltaKind says what happened to a contact in an InputFrame.
type DeltaKind uint8

const (
	TouchBegin  DeltaKind = iota // contact started
	TouchUpdate                  // contact moved or its attributes changed
	TouchEnd                     // contact lifted
)

func (k DeltaKind) String() string {
	switch k {
	case TouchBegin:
		return "begin"
	case TouchUpdate:
		return "update"
	case TouchEnd:
		return "end"
	default:
		return "unknown"
	}
}

// TouchDelta is one contact change within an InputFrame.
type TouchDelta struct {
	ID    TouchID
	Kind  DeltaKind
	X, Y  float64
	Attrs []Attr
}

// InputFrame is one synchronized batch of contact changes for a device,
// the equivalent of an evdev SYN_REPORT. Time is a monotonic timestamp
// from an arbitrary origin shared by all frames of an engine.
type InputFrame struct {
	Device  DeviceID
	Time    time.Duration
	Touches []TouchDelta
}

// liveTouch is the touch model's record of one contact.
type liveTouch struct {
	id     TouchID
	pos    Vec2
	attrs  []Attr
	start  time.Duration
	ended  bool
	latest time.Duration
}

// touchModel tracks the live contacts of one device.
type touchModel struct {
	live map[TouchID]*liveTouch
}

func (m *touchModel) init() {
	m.live = make(map[TouchID]*liveTouch)
}

// ingest applies one delta. It reports whether the delta started a contact.
// A repeated begin is treated as an update and an update for an unknown
// contact as a begin, so a backend that lost a frame recovers.
func (m *touchModel) ingest(t time.Duration, d TouchDelta) (began bool, err error) {
	lt, ok := m.live[d.ID]
	switch d.Kind {
	case TouchBegin, TouchUpdate:
		if !ok || lt.ended {
			lt = &liveTouch{id: d.ID, start: t}
			m.live[d.ID] = lt
			began = true
			if d.Kind == TouchUpdate {
				err = fmt.Errorf("update of unknown touch %d: %w", d.ID, ErrBadArgument)
			}
		}
		lt.pos = Vec2{d.X, d.Y}
		if len(d.Attrs) > 0 {
			lt.attrs = append(lt.attrs[:0], d.Attrs...)
		}
		lt.latest = t
	case TouchEnd:
		if !ok {
			return false, fmt.Errorf("end of unknown touch %d: %w", d.ID, ErrBadArgument)
		}
		lt.pos = Vec2{d.X, d.Y}
		lt.ended = true
		lt.latest = t
	default:
		return false, fmt.Errorf("touch %d: delta kind %d: %w", d.ID, d.Kind, ErrBadArgument)
	}
	return began, err
}

// active returns the ids of contacts that have not ended, sorted.
func (m *touchModel) active() []TouchID {
	ids := make([]TouchID, 0, len(m.live))
	for id, lt := range m.live {
		if !lt.ended {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// purge drops ended contacts. Called once every group saw the end.
func (m *touchModel) purge() {
	for id, lt := range m.live {
		if lt.ended {
			delete(m.live, id)
		}
	}
}

// endAll marks every contact ended, used when the device goes away.
func (m *touchModel) endAll(t time.Duration) {
	for _, lt := range m.live {
		lt.ended = true
		lt.latest = t
	}
}

// Touch is a reference-counted snapshot of one contact.
type Touch struct {
	object[Touch]
	id     TouchID
	device DeviceID
	pos    Vec2
	attrs  Attrs
}

// Ref adds a reference.
func (t *Touch) Ref() error { return t.addRef() }

// ID returns the touch id, unique only within its TouchSet.
func (t *Touch) ID() TouchID {
	if !t.alive("ID") {
		return 0
	}
	return t.id
}

// Device returns the id of the device the contact is on.
func (t *Touch) Device() DeviceID {
	if !t.alive("Device") {
		return AllDevices
	}
	return t.device
}

// Position returns the contact position in device coordinates.
func (t *Touch) Position() Vec2 {
	if !t.alive("Position") {
		return Vec2{}
	}
	return t.pos
}

// Attrs returns "touch id", "touch x", "touch y" followed by any attributes
// the backend reported for the contact.
func (t *Touch) Attrs() Attrs {
	if !t.alive("Attrs") {
		return nil
	}
	return t.attrs
}

// Attr looks up one touch attribute.
func (t *Touch) Attr(name string) (Attr, bool) {
	return t.Attrs().ByName(name)
}

// TouchSet is an immutable snapshot mapping touch ids to touches, valid as
// long as the event that carries it.
type TouchSet struct {
	touches []*Touch
}

// Len returns the number of touches.
func (s TouchSet) Len() int { return len(s.touches) }

// At returns the i'th touch in id order, or nil.
func (s TouchSet) At(i int) *Touch {
	if i < 0 || i >= len(s.touches) {
		return nil
	}
	return s.touches[i]
}

// ByID returns the touch with the given id, or nil.
func (s TouchSet) ByID(id TouchID) *Touch {
	for _, t := range s.touches {
		if t.id == id {
			return t
		}
	}
	return nil
}

func (e *Engine) snapshotTouch(dev DeviceID, lt *liveTouch) *Touch {
	attrs := make(Attrs, 0, 3+len(lt.attrs))
	attrs = append(attrs,
		IntAttr(TouchAttrID, int64(lt.id)),
		FloatAttr(TouchAttrX, lt.pos.X),
		FloatAttr(TouchAttrY, lt.pos.Y),
	)
	attrs = append(attrs, lt.attrs...)
	t := &Touch{id: lt.id, device: dev, pos: lt.pos, attrs: attrs}
	t.bind(e.objs.touches, t)
	return t
}
