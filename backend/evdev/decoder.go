//go:build linux

package evdev

import (
	"time"

	evdev "github.com/gvalkov/golang-evdev"

	"github.com/phanxgames/gesture"
)

// Event types and codes the decoder reads.
const (
	evSyn = evdev.EV_SYN
	evAbs = evdev.EV_ABS

	synReport  = evdev.SYN_REPORT
	synDropped = evdev.SYN_DROPPED

	absMtSlot       = evdev.ABS_MT_SLOT
	absMtTouchMajor = evdev.ABS_MT_TOUCH_MAJOR
	absMtPositionX  = evdev.ABS_MT_POSITION_X
	absMtPositionY  = evdev.ABS_MT_POSITION_Y
	absMtTrackingID = evdev.ABS_MT_TRACKING_ID
	absMtPressure   = evdev.ABS_MT_PRESSURE
)

// Per-touch attribute names set by this backend.
const (
	AttrPressure   = "pressure"
	AttrTouchMajor = "touch major"
)

// MaxSlots bounds the slots tracked per device.
const MaxSlots = 64

type slot struct {
	tracking int32
	x, y     int32
	pressure int32
	major    int32
	id       gesture.TouchID
	active   bool // engine knows the touch
	dirty    bool
}

// Decoder turns raw input events into gesture input frames. It is not safe
// for concurrent use.
type Decoder struct {
	slots   [MaxSlots]slot
	cur     int
	nextID  gesture.TouchID
	dropped bool
}

// NewDecoder returns a decoder with every slot empty.
func NewDecoder() *Decoder {
	d := &Decoder{nextID: 1}
	for i := range d.slots {
		d.slots[i].tracking = -1
	}
	return d
}

// Feed applies one input event. At a SYN_REPORT it returns the touch deltas
// accumulated since the previous report and ok=true.
func (d *Decoder) Feed(ev evdev.InputEvent) (deltas []gesture.TouchDelta, ok bool) {
	switch ev.Type {
	case evSyn:
		switch ev.Code {
		case synDropped:
			d.dropped = true
		case synReport:
			if d.dropped {
				// events up to this report are lost; the next report resyncs
				d.dropped = false
				return nil, false
			}
			return d.report(), true
		}
	case evAbs:
		d.abs(ev.Code, ev.Value)
	}
	return nil, false
}

func (d *Decoder) abs(code uint16, value int32) {
	if code == absMtSlot {
		if value >= 0 && value < MaxSlots {
			d.cur = int(value)
		}
		return
	}
	s := &d.slots[d.cur]
	switch code {
	case absMtTrackingID:
		s.tracking = value
	case absMtPositionX:
		s.x = value
	case absMtPositionY:
		s.y = value
	case absMtPressure:
		s.pressure = value
	case absMtTouchMajor:
		s.major = value
	default:
		return
	}
	s.dirty = true
}

func (d *Decoder) report() []gesture.TouchDelta {
	var out []gesture.TouchDelta
	for i := range d.slots {
		s := &d.slots[i]
		if !s.dirty {
			continue
		}
		s.dirty = false
		switch {
		case s.tracking >= 0 && !s.active:
			s.active = true
			s.id = d.nextID
			d.nextID++
			out = append(out, s.delta(gesture.TouchBegin))
		case s.tracking >= 0:
			out = append(out, s.delta(gesture.TouchUpdate))
		case s.active:
			s.active = false
			out = append(out, s.delta(gesture.TouchEnd))
		}
	}
	return out
}

func (s *slot) delta(kind gesture.DeltaKind) gesture.TouchDelta {
	return gesture.TouchDelta{
		ID:   s.id,
		Kind: kind,
		X:    float64(s.x),
		Y:    float64(s.y),
		Attrs: gesture.Attrs{
			gesture.IntAttr(AttrPressure, int64(s.pressure)),
			gesture.IntAttr(AttrTouchMajor, int64(s.major)),
		},
	}
}

// Release ends every active touch, for use when the device goes away.
func (d *Decoder) Release() []gesture.TouchDelta {
	var out []gesture.TouchDelta
	for i := range d.slots {
		s := &d.slots[i]
		if s.active {
			s.active = false
			s.tracking = -1
			out = append(out, s.delta(gesture.TouchEnd))
		}
	}
	return out
}

// eventTime returns the kernel timestamp of ev.
func eventTime(ev evdev.InputEvent) time.Duration {
	return time.Duration(ev.Time.Sec)*time.Second + time.Duration(ev.Time.Usec)*time.Microsecond
}

// absInfo mirrors struct input_absinfo.
type absInfo struct {
	Value      int32
	Min        int32
	Max        int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// deviceInfo builds the engine description of a device from its axes. Axis
// resolution is reported in units per millimetre.
func deviceInfo(id gesture.DeviceID, name string, x, y absInfo, touches int, direct bool) gesture.DeviceInfo {
	if id == gesture.AllDevices {
		id = 1
	}
	return gesture.DeviceInfo{
		ID:               id,
		Name:             name,
		Touches:          max(1, min(touches, MaxSlots)),
		DirectTouch:      direct,
		IndependentTouch: true,
		MinX:             float64(x.Min),
		MaxX:             float64(x.Max),
		MinY:             float64(y.Min),
		MaxY:             float64(y.Max),
		ResX:             float64(x.Resolution) * 1000,
		ResY:             float64(y.Resolution) * 1000,
	}
}

// Input property bits (INPUT_PROP_*).
const (
	propDirect = 0x01
	propBytes  = 4
)

// directTouch reports whether the EVIOCGPROP bitmask marks the device as a
// touchscreen rather than a touchpad.
func directTouch(props []byte) bool {
	return len(props) > propDirect/8 && props[propDirect/8]&(1<<(propDirect%8)) != 0
}
