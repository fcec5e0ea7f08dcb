package gesture

import "time"

// Status is the outcome code reported by dispatch, queue and configuration
// calls. The numeric values are part of the wire vocabulary shared with
// existing consumers and must not change.
type Status int

const (
	StatusSuccess      Status = 0    // normal successful completion
	StatusContinue     Status = 20   // success, more data remains
	StatusEmpty        Status = 21   // success, nothing was available
	StatusNotSupported Status = 10   // a requested feature is not supported
	StatusBadArgument  Status = 1000 // a bad argument value was passed
	StatusUnknownError Status = 9999 // any other error condition
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusContinue:
		return "continue"
	case StatusEmpty:
		return "empty"
	case StatusNotSupported:
		return "not supported"
	case StatusBadArgument:
		return "bad argument"
	default:
		return "unknown error"
	}
}

// AttrType tags the value held by an Attr.
type AttrType uint8

const (
	AttrUnknown AttrType = iota // attr is an unknown type
	AttrBoolean                 // attr is truth-valued
	AttrFloat                   // attr is real-valued
	AttrInteger                 // attr is a counting number
	AttrPointer                 // attr refers to an engine object
	AttrString                  // attr is a UTF-8 string
)

func (t AttrType) String() string {
	switch t {
	case AttrBoolean:
		return "boolean"
	case AttrFloat:
		return "float"
	case AttrInteger:
		return "integer"
	case AttrPointer:
		return "pointer"
	case AttrString:
		return "string"
	default:
		return "unknown"
	}
}

// EventType identifies the kind of an Event.
type EventType int

const (
	EventDeviceAvailable   EventType = 1000 // an input device was added
	EventDeviceUnavailable EventType = 1010 // an input device was removed
	EventClassAvailable    EventType = 2000 // a gesture class can now be recognized
	EventClassChanged      EventType = 2005 // a gesture class was reconfigured
	EventClassUnavailable  EventType = 2010 // a gesture class was removed
	EventGestureBegin      EventType = 3000 // a gesture crossed its threshold
	EventGestureUpdate     EventType = 3010 // an active gesture changed
	EventGestureEnd        EventType = 3020 // an active gesture finished
	EventTentativeBegin    EventType = 3500 // a gesture may be forming
	EventTentativeUpdate   EventType = 3510 // a possible gesture changed
	EventTentativeEnd      EventType = 3520 // a possible gesture was discarded
	EventInitComplete      EventType = 4000 // engine initialization finished
	EventUserDefined       EventType = 6000 // reserved for applications
	EventError             EventType = 7000 // an isolated failure was recorded
)

func (t EventType) String() string {
	switch t {
	case EventDeviceAvailable:
		return "device-available"
	case EventDeviceUnavailable:
		return "device-unavailable"
	case EventClassAvailable:
		return "class-available"
	case EventClassChanged:
		return "class-changed"
	case EventClassUnavailable:
		return "class-unavailable"
	case EventGestureBegin:
		return "gesture-begin"
	case EventGestureUpdate:
		return "gesture-update"
	case EventGestureEnd:
		return "gesture-end"
	case EventTentativeBegin:
		return "tentative-begin"
	case EventTentativeUpdate:
		return "tentative-update"
	case EventTentativeEnd:
		return "tentative-end"
	case EventInitComplete:
		return "init-complete"
	case EventUserDefined:
		return "user-defined"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// IsGesture reports whether the event carries a group set and touch set.
func (t EventType) IsGesture() bool {
	return t >= EventGestureBegin && t <= EventTentativeEnd
}

// IsTentative reports whether t is one of the tentative preview events.
func (t EventType) IsTentative() bool {
	return t >= EventTentativeBegin && t <= EventTentativeEnd
}

// Facility selects which object a filter term is evaluated against.
type Facility int

const (
	FilterDevice  Facility = 1000 // device attributes
	FilterClass   Facility = 2000 // gesture class and gesture attributes
	FilterRegion  Facility = 3000 // region attributes
	FilterSpecial Facility = 5000 // engine-computed attributes
)

func (f Facility) String() string {
	switch f {
	case FilterDevice:
		return "device"
	case FilterClass:
		return "class"
	case FilterRegion:
		return "region"
	case FilterSpecial:
		return "special"
	default:
		return "unknown"
	}
}

// Op is a filter term comparison.
type Op uint8

const (
	OpEQ Op = iota // equal
	OpNE           // not equal
	OpGT           // greater than
	OpGE           // greater than or equal
	OpLT           // less than
	OpLE           // less than or equal
)

func (o Op) String() string {
	switch o {
	case OpEQ:
		return "=="
	case OpNE:
		return "!="
	case OpGT:
		return ">"
	case OpGE:
		return ">="
	case OpLT:
		return "<"
	case OpLE:
		return "<="
	default:
		return "?"
	}
}

// SubscriptionFlags change how a subscription receives gestures.
// Values can be combined with bitwise OR.
type SubscriptionFlags int

const (
	SubscriptionNone         SubscriptionFlags = 0x0000 // default delivery
	SubscriptionGrab         SubscriptionFlags = 0x0001 // withhold matched gestures from ancestor regions
	SubscriptionContinuation SubscriptionFlags = 0x0002 // keep one gesture id across class changes
)

// Gesture class names.
const (
	GestureDrag   = "Drag"
	GesturePinch  = "Pinch"
	GestureRotate = "Rotate"
	GestureTap    = "Tap"
	GestureTouch  = "Touch"
	GestureFlick  = "Flick"
)

// Gesture class ids of the built-in classes.
const (
	ClassIDDrag   = 0
	ClassIDPinch  = 1
	ClassIDRotate = 2
	ClassIDTap    = 15
	ClassIDTouch  = 32
	ClassIDFlick  = 128
)

// Frame (gesture) attribute names.
const (
	AttrAngle           = "angle"
	AttrAngleDelta      = "angle delta"
	AttrAngularVelocity = "angular velocity"
	AttrBoundingBoxX1   = "boundingbox x1"
	AttrBoundingBoxY1   = "boundingbox y1"
	AttrBoundingBoxX2   = "boundingbox x2"
	AttrBoundingBoxY2   = "boundingbox y2"
	AttrChildWindowID   = "child window id"
	AttrCentroidX       = "centroid x"
	AttrCentroidY       = "centroid y"
	AttrDeltaX          = "delta x"
	AttrDeltaY          = "delta y"
	AttrDeviceID        = "device id"
	AttrEventWindowID   = "event window id"
	AttrFocusX          = "focus x"
	AttrFocusY          = "focus y"
	AttrGestureName     = "gesture name"
	AttrPositionX       = "position x"
	AttrPositionY       = "position y"
	AttrRadialVelocity  = "radial velocity"
	AttrRadiusDelta     = "radius delta"
	AttrRadius          = "radius"
	AttrRootWindowID    = "root window id"
	AttrTapTime         = "tap time"
	AttrTimestamp       = "timestamp"
	AttrTouches         = "touches"
	AttrVelocityX       = "velocity x"
	AttrVelocityY       = "velocity y"
)

// maxFrameTouches is how many "touch N ..." attributes a frame carries.
const maxFrameTouches = 5

var (
	frameTouchIDAttrs = [maxFrameTouches]string{"touch 0 id", "touch 1 id", "touch 2 id", "touch 3 id", "touch 4 id"}
	frameTouchXAttrs  = [maxFrameTouches]string{"touch 0 x", "touch 1 x", "touch 2 x", "touch 3 x", "touch 4 x"}
	frameTouchYAttrs  = [maxFrameTouches]string{"touch 0 y", "touch 1 y", "touch 2 y", "touch 3 y", "touch 4 y"}
)

// FrameTouchAttrs returns the "touch N id", "touch N x" and "touch N y"
// attribute names. ok is false when n is outside [0, 5).
func FrameTouchAttrs(n int) (id, x, y string, ok bool) {
	if n < 0 || n >= maxFrameTouches {
		return "", "", "", false
	}
	return frameTouchIDAttrs[n], frameTouchXAttrs[n], frameTouchYAttrs[n], true
}

// Event attribute names.
const (
	EventAttrDevice               = "device"
	EventAttrClass                = "gesture class"
	EventAttrGroupSet             = "group set"
	EventAttrTouchSet             = "touch set"
	EventAttrConstructionFinished = "construction finished"
	EventAttrErrorCode            = "error code"
	EventAttrErrorMessage         = "error message"
)

// Device attribute names.
const (
	DeviceAttrName             = "device name"
	DeviceAttrID               = "device id"
	DeviceAttrTouches          = "device touches"
	DeviceAttrDirectTouch      = "direct touch"
	DeviceAttrIndependentTouch = "independent touch"
	DeviceAttrMinX             = "device X minimum"
	DeviceAttrMaxX             = "device X maximum"
	DeviceAttrResX             = "device X resolution"
	DeviceAttrMinY             = "device Y minimum"
	DeviceAttrMaxY             = "device Y maximum"
	DeviceAttrResY             = "device Y resolution"
)

// Class attribute names.
const (
	ClassAttrName = "class name"
	ClassAttrID   = "class id"
)

// Region attribute names.
const (
	RegionAttrWindowID = "windowid"
	RegionAttrName     = "region name"
)

// Special facility attribute names.
const (
	SpecialAttrTouches              = "touches"
	SpecialAttrConstructionFinished = "construction finished"
	SpecialAttrTentative            = "tentative"
)

// Touch attribute names.
const (
	TouchAttrID = "touch id"
	TouchAttrX  = "touch x"
	TouchAttrY  = "touch y"
)

// DeviceID identifies an input device within one engine.
type DeviceID int

// AllDevices is the zero DeviceID, never assigned to a real device.
const AllDevices DeviceID = 0

// TouchID identifies a touch within its TouchSet.
type TouchID uint32

// GroupID identifies a candidate touch group.
type GroupID int

// GestureID identifies one gesture from begin to end.
type GestureID uint64

// NoGesture is the zero GestureID, never assigned.
const NoGesture GestureID = 0

// Vec2 is a 2D vector in device coordinates.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle in device coordinates, origin top-left.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// millis converts a duration to whole milliseconds, the unit of timestamp
// attributes and timeout configuration values.
func millis(d time.Duration) int64 {
	return int64(d / time.Millisecond)
}
