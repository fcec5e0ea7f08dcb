package gesture

import (
	"math"
	"time"
)

// DefaultInjectStep is the time between frames pushed by an Injector.
const DefaultInjectStep = 10 * time.Millisecond

// Injector synthesizes input frames for one device, for tests, replays and
// automation. Press, Move and Release collect deltas into the current frame;
// Sync pushes it at the injector clock and advances the clock by Step.
type Injector struct {
	Step time.Duration

	eng     *Engine
	device  DeviceID
	now     time.Duration
	frame   []TouchDelta
	pos     map[TouchID]Vec2
	nextID  TouchID
	lastErr error
}

// NewInjector returns an injector feeding device dev of e, with its clock at
// start.
func NewInjector(e *Engine, dev DeviceID, start time.Duration) *Injector {
	return &Injector{
		Step:   DefaultInjectStep,
		eng:    e,
		device: dev,
		now:    start,
		pos:    make(map[TouchID]Vec2),
		nextID: 1,
	}
}

// Now returns the injector clock.
func (in *Injector) Now() time.Duration { return in.now }

// Err returns the first error a push returned, if any.
func (in *Injector) Err() error { return in.lastErr }

// NextID reserves a touch id not used by this injector yet.
func (in *Injector) NextID() TouchID {
	id := in.nextID
	in.nextID++
	return id
}

// Press starts contact id at (x, y) in the current frame.
func (in *Injector) Press(id TouchID, x, y float64) *Injector {
	in.frame = append(in.frame, TouchDelta{ID: id, Kind: TouchBegin, X: x, Y: y})
	in.pos[id] = Vec2{x, y}
	if id >= in.nextID {
		in.nextID = id + 1
	}
	return in
}

// Move moves contact id to (x, y) in the current frame.
func (in *Injector) Move(id TouchID, x, y float64) *Injector {
	in.frame = append(in.frame, TouchDelta{ID: id, Kind: TouchUpdate, X: x, Y: y})
	in.pos[id] = Vec2{x, y}
	return in
}

// Release lifts contact id at its last position in the current frame.
func (in *Injector) Release(id TouchID) *Injector {
	p := in.pos[id]
	in.frame = append(in.frame, TouchDelta{ID: id, Kind: TouchEnd, X: p.X, Y: p.Y})
	delete(in.pos, id)
	return in
}

// Sync pushes the current frame and advances the clock by Step.
func (in *Injector) Sync() error {
	err := in.eng.Push(InputFrame{Device: in.device, Time: in.now, Touches: in.frame})
	in.frame = in.frame[:0]
	in.now += in.Step
	return in.record(err)
}

// Wait advances the clock by d and lets the engine observe the new time.
func (in *Injector) Wait(d time.Duration) error {
	in.now += d
	return in.record(in.eng.Tick(in.now))
}

// Advance moves the clock without telling the engine.
func (in *Injector) Advance(d time.Duration) *Injector {
	in.now += d
	return in
}

func (in *Injector) record(err error) error {
	if err != nil && in.lastErr == nil {
		in.lastErr = err
	}
	return err
}

// Drag presses fingers contacts 10 units apart starting at (x, y), moves
// them together by (dx, dy) over frames-2 intermediate frames and releases.
// Minimum frames is 2 (press and release).
func (in *Injector) Drag(x, y, dx, dy float64, fingers, frames int) error {
	if fingers < 1 {
		fingers = 1
	}
	frames = max(frames, 2)
	ids := make([]TouchID, fingers)
	for i := range ids {
		ids[i] = in.NextID()
		in.Press(ids[i], x+float64(i)*10, y)
	}
	if err := in.Sync(); err != nil {
		return err
	}
	steps := frames - 2
	for s := 1; s <= steps+1; s++ {
		t := float64(s) / float64(steps+1)
		for i, id := range ids {
			in.Move(id, x+float64(i)*10+dx*t, y+dy*t)
		}
		if s <= steps {
			if err := in.Sync(); err != nil {
				return err
			}
		}
	}
	for _, id := range ids {
		in.Release(id)
	}
	return in.Sync()
}

// Pinch presses two contacts on a horizontal line centred on (cx, cy),
// from apart, and moves them to be to apart over frames frames before
// releasing them.
func (in *Injector) Pinch(cx, cy, from, to float64, frames int) error {
	frames = max(frames, 2)
	a, b := in.NextID(), in.NextID()
	in.Press(a, cx-from/2, cy).Press(b, cx+from/2, cy)
	if err := in.Sync(); err != nil {
		return err
	}
	for s := 1; s < frames; s++ {
		d := from + (to-from)*float64(s)/float64(frames-1)
		in.Move(a, cx-d/2, cy).Move(b, cx+d/2, cy)
		if err := in.Sync(); err != nil {
			return err
		}
	}
	in.Release(a).Release(b)
	return in.Sync()
}

// Rotate presses two contacts opposite each other on a circle of radius r
// around (cx, cy) and turns them by angle radians over frames frames before
// releasing them.
func (in *Injector) Rotate(cx, cy, r, angle float64, frames int) error {
	frames = max(frames, 2)
	a, b := in.NextID(), in.NextID()
	in.Press(a, cx+r, cy).Press(b, cx-r, cy)
	if err := in.Sync(); err != nil {
		return err
	}
	for s := 1; s < frames; s++ {
		th := angle * float64(s) / float64(frames-1)
		c, sn := math.Cos(th)*r, math.Sin(th)*r
		in.Move(a, cx+c, cy+sn).Move(b, cx-c, cy-sn)
		if err := in.Sync(); err != nil {
			return err
		}
	}
	in.Release(a).Release(b)
	return in.Sync()
}

// Tap presses fingers contacts 10 units apart at (x, y) and releases them
// one Step later.
func (in *Injector) Tap(x, y float64, fingers int) error {
	if fingers < 1 {
		fingers = 1
	}
	ids := make([]TouchID, fingers)
	for i := range ids {
		ids[i] = in.NextID()
		in.Press(ids[i], x+float64(i)*10, y)
	}
	if err := in.Sync(); err != nil {
		return err
	}
	for _, id := range ids {
		in.Release(id)
	}
	return in.Sync()
}
