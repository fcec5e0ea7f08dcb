package gesture

import (
	"math"
	"time"
)

// frameData is one transition's frame before it is handed out: attributes,
// touches and transform, shared by every recipient of the transition.
type frameData struct {
	t        time.Duration
	attrs    Attrs
	touchIDs []TouchID
	touches  []liveTouch
	matrix   [9]float64
	finished bool
}

// buildFrame computes the frame attributes of run r over group g. Deltas are
// measured from the group start when fromStart is set, otherwise from the
// run's last emitted frame; r.last is advanced either way.
func (e *Engine) buildFrame(g *group, r *run, m *Measurement, fromStart bool) *frameData {
	ref := r.last
	if fromStart {
		ref = frameRef{t: g.opened, centroid: g.startC, radius: g.startR, pos: g.start}
	}
	c := m.Centroid
	dx, dy := c.X-ref.centroid.X, c.Y-ref.centroid.Y
	dr := m.Radius - ref.radius
	da := m.Angle - ref.angle

	var vx, vy, vr, va float64
	if dt := (m.Time - ref.t).Seconds(); dt > 0 {
		vx, vy, vr, va = dx/dt, dy/dt, dr/dt, da/dt
	}

	x1, y1 := math.Inf(1), math.Inf(1)
	x2, y2 := math.Inf(-1), math.Inf(-1)
	for _, p := range m.Touches {
		x1, y1 = math.Min(x1, p.X), math.Min(y1, p.Y)
		x2, y2 = math.Max(x2, p.X), math.Max(y2, p.Y)
	}

	var win, root int64
	if g.region != nil {
		win = g.region.id
		root = g.region.root().id
	}

	attrs := Attrs{
		FloatAttr(AttrAngle, m.Angle),
		FloatAttr(AttrAngleDelta, da),
		FloatAttr(AttrAngularVelocity, va),
		FloatAttr(AttrBoundingBoxX1, x1),
		FloatAttr(AttrBoundingBoxY1, y1),
		FloatAttr(AttrBoundingBoxX2, x2),
		FloatAttr(AttrBoundingBoxY2, y2),
		IntAttr(AttrChildWindowID, win),
		FloatAttr(AttrCentroidX, c.X),
		FloatAttr(AttrCentroidY, c.Y),
		FloatAttr(AttrDeltaX, dx),
		FloatAttr(AttrDeltaY, dy),
		IntAttr(AttrDeviceID, int64(g.dev.info.ID)),
		IntAttr(AttrEventWindowID, win),
		FloatAttr(AttrFocusX, c.X),
		FloatAttr(AttrFocusY, c.Y),
		FloatAttr(AttrPositionX, c.X),
		FloatAttr(AttrPositionY, c.Y),
		FloatAttr(AttrRadialVelocity, vr),
		FloatAttr(AttrRadiusDelta, dr),
		FloatAttr(AttrRadius, m.Radius),
		IntAttr(AttrRootWindowID, root),
		IntAttr(AttrTapTime, millis(m.Elapsed())),
		IntAttr(AttrTimestamp, millis(m.Time)),
		IntAttr(AttrTouches, int64(len(g.members))),
		FloatAttr(AttrVelocityX, vx),
		FloatAttr(AttrVelocityY, vy),
	}
	for i, id := range g.members {
		if i >= maxFrameTouches {
			break
		}
		attrs = append(attrs,
			IntAttr(frameTouchIDAttrs[i], int64(id)),
			FloatAttr(frameTouchXAttrs[i], m.Touches[i].X),
			FloatAttr(frameTouchYAttrs[i], m.Touches[i].Y),
		)
	}

	fd := &frameData{
		t:        m.Time,
		attrs:    attrs,
		touchIDs: append([]TouchID(nil), g.members...),
		matrix:   transformMatrix(g.startC, c, g.startR, m.Radius, m.Angle),
		finished: e.constructionFinished(g, m.Time),
	}
	for i, id := range g.members {
		lt := liveTouch{id: id, pos: m.Touches[i]}
		if src, ok := g.dev.touches.live[id]; ok {
			lt.attrs = src.attrs
		}
		fd.touches = append(fd.touches, lt)
	}

	r.last = frameRef{t: m.Time, centroid: c, radius: m.Radius, angle: m.Angle, pos: m.Touches}
	return fd
}

// changed reports whether m differs from the run's last emitted frame.
func (r *run) changed(m *Measurement) bool {
	if m.Centroid != r.last.centroid || m.Radius != r.last.radius || m.Angle != r.last.angle {
		return true
	}
	if len(m.Touches) != len(r.last.pos) {
		return true
	}
	for i := range m.Touches {
		if m.Touches[i] != r.last.pos[i] {
			return true
		}
	}
	return false
}

// transformMatrix returns the row-major 3x3 affine transform carrying the
// start configuration onto the current one: translate(c) * rotate(angle) *
// scale(r/r0) * translate(-c0).
func transformMatrix(c0, c Vec2, r0, r, angle float64) [9]float64 {
	s := 1.0
	if r0 > 0 {
		s = r / r0
	}
	cos, sin := math.Cos(angle)*s, math.Sin(angle)*s
	return [9]float64{
		cos, -sin, c.X - cos*c0.X + sin*c0.Y,
		sin, cos, c.Y - sin*c0.X - cos*c0.Y,
		0, 0, 1,
	}
}

// Frame is one gesture's classification snapshot within a group, as carried
// by one event.
type Frame struct {
	object[Frame]
	gid      GestureID
	group    GroupID
	classes  []*GestureClass
	attrs    Attrs
	touchIDs []TouchID
	matrix   [9]float64
	eng      *Engine
}

func (e *Engine) newFrame(fd *frameData, grp GroupID, gid GestureID, name string, classes []*classEntry) *Frame {
	f := &Frame{
		gid:      gid,
		group:    grp,
		touchIDs: fd.touchIDs,
		matrix:   fd.matrix,
		eng:      e,
	}
	f.attrs = make(Attrs, 0, len(fd.attrs)+1)
	f.attrs = append(f.attrs, StringAttr(AttrGestureName, name))
	f.attrs = append(f.attrs, fd.attrs...)
	for _, ce := range classes {
		if ce.obj.addRef() == nil {
			f.classes = append(f.classes, ce.obj)
		}
	}
	f.bind(e.objs.frames, f)
	return f
}

// Ref adds a reference.
func (f *Frame) Ref() error { return f.addRef() }

// ID returns the gesture id, or NoGesture once released.
func (f *Frame) ID() GestureID {
	if !f.alive("ID") {
		return NoGesture
	}
	return f.gid
}

// GroupID returns the id of the group the frame belongs to.
func (f *Frame) GroupID() GroupID {
	if !f.alive("GroupID") {
		return 0
	}
	return f.group
}

// Classes returns the gesture classes the frame currently satisfies.
func (f *Frame) Classes() []*GestureClass {
	if !f.alive("Classes") {
		return nil
	}
	return f.classes
}

// IsClass reports whether the frame satisfies class c.
func (f *Frame) IsClass(c *GestureClass) bool {
	for _, fc := range f.Classes() {
		if fc == c {
			return true
		}
	}
	return false
}

// Attrs returns the frame attributes.
func (f *Frame) Attrs() Attrs {
	if !f.alive("Attrs") {
		return nil
	}
	return f.attrs
}

// Attr looks up one frame attribute.
func (f *Frame) Attr(name string) (Attr, bool) {
	return f.Attrs().ByName(name)
}

// Float returns a float attribute, 0 if absent.
func (f *Frame) Float(name string) float64 {
	a, _ := f.Attr(name)
	return a.Float()
}

// TouchIDs returns the ids of the contributing touches in member order.
func (f *Frame) TouchIDs() []TouchID {
	if !f.alive("TouchIDs") {
		return nil
	}
	return f.touchIDs
}

// Matrix returns the row-major affine transform (rotation, uniform scale,
// translation) from the gesture's start to this frame.
func (f *Frame) Matrix() [9]float64 {
	if !f.alive("Matrix") {
		return [9]float64{}
	}
	return f.matrix
}

// Accept commits this interpretation. See Engine.Accept.
func (f *Frame) Accept() error {
	if !f.alive("Accept") {
		return ErrInvalidHandle
	}
	return f.eng.Accept(f.group, f.gid)
}

// Reject discards this interpretation. See Engine.Reject.
func (f *Frame) Reject() error {
	if !f.alive("Reject") {
		return ErrInvalidHandle
	}
	return f.eng.Reject(f.group, f.gid)
}
