package gesture

// GestureEvent is a plain-value copy of a gesture event, safe to keep after
// the event is released and to hand to other systems.
type GestureEvent struct {
	Type         EventType
	Subscription string
	Group        GroupID
	Gesture      GestureID
	Class        string
	Device       DeviceID
	Touches      []TouchID
	Centroid     Vec2
	Delta        Vec2
	Velocity     Vec2
	Radius       float64
	RadiusDelta  float64
	Angle        float64
	AngleDelta   float64
	Timestamp    int64
	Finished     bool
}

// EventSink receives a copy of every gesture event as it is queued,
// whatever delivery mode the engine is in.
type EventSink interface {
	EmitEvent(ev GestureEvent)
}

// SetEventSink installs s, or removes the sink when s is nil. Events later
// purged by Reject have already reached the sink.
func (e *Engine) SetEventSink(s EventSink) {
	e.sink = s
}

// Snapshot copies a gesture event. ok is false for events without a frame.
func Snapshot(ev *Event) (GestureEvent, bool) {
	f := ev.Frame()
	if f == nil {
		return GestureEvent{}, false
	}
	out := GestureEvent{
		Type:     ev.Type(),
		Group:    f.GroupID(),
		Gesture:  f.ID(),
		Touches:  append([]TouchID(nil), f.TouchIDs()...),
		Finished: ev.ConstructionFinished(),
	}
	if s := ev.Subscription(); s != nil {
		out.Subscription = s.Name()
	}
	if a, ok := f.Attr(AttrGestureName); ok {
		out.Class = a.StringValue()
	}
	if a, ok := f.Attr(AttrDeviceID); ok {
		out.Device = DeviceID(a.Int())
	}
	if a, ok := f.Attr(AttrTimestamp); ok {
		out.Timestamp = a.Int()
	}
	out.Centroid = Vec2{f.Float(AttrCentroidX), f.Float(AttrCentroidY)}
	out.Delta = Vec2{f.Float(AttrDeltaX), f.Float(AttrDeltaY)}
	out.Velocity = Vec2{f.Float(AttrVelocityX), f.Float(AttrVelocityY)}
	out.Radius = f.Float(AttrRadius)
	out.RadiusDelta = f.Float(AttrRadiusDelta)
	out.Angle = f.Float(AttrAngle)
	out.AngleDelta = f.Float(AttrAngleDelta)
	return out, true
}
