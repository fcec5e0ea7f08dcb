package gesture

import (
	"math"
	"time"
)

// velocityHold is how long a stationary group keeps its last velocity.
const velocityHold = 50 * time.Millisecond

type runState uint8

const (
	runIdle runState = iota
	runTentative
	runActive
	runDone
)

// frameRef holds the values of the last frame a run emitted; deltas and
// velocities of the next frame are measured against it.
type frameRef struct {
	t        time.Duration
	centroid Vec2
	radius   float64
	angle    float64
	pos      []Vec2
}

// run is one class's state machine over one group.
type run struct {
	class    *classEntry
	cl       Classifier
	state    runState
	gid      GestureID
	accepted bool
	rejected bool

	// Subscriptions locked in as recipients. tentSubs saw the tentative
	// begin, subs saw the begin.
	tentSubs []*Subscription
	subs     []*Subscription

	last frameRef
}

func (r *run) live() bool {
	return r.state == runTentative || r.state == runActive
}

// contState maps the runs of one group onto a single gesture id for a
// continuation subscription.
type contState struct {
	gid  GestureID
	live []*classEntry
}

// group is a hypothesized bundle of touches and the class runs over it.
type group struct {
	id      GroupID
	dev     *deviceState
	members []TouchID
	opened  time.Duration
	region  *Region

	start  []Vec2
	startC Vec2
	startR float64

	prev   []Vec2
	prevC  Vec2
	prevT  time.Duration
	angle  float64
	vel    Vec2
	travel float64

	runs   []*run
	lapsed bool
	closed bool
	cont   map[*Subscription]*contState
}

func (g *group) size() int { return len(g.members) }

func (g *group) contains(id TouchID) bool {
	for _, m := range g.members {
		if m == id {
			return true
		}
	}
	return false
}

func (g *group) overlaps(o *group) bool {
	if g.dev != o.dev {
		return false
	}
	for _, m := range o.members {
		if g.contains(m) {
			return true
		}
	}
	return false
}

// subsetOf reports whether every member of g is in o and o is larger.
func (g *group) subsetOf(o *group) bool {
	if g.dev != o.dev || len(g.members) >= len(o.members) {
		return false
	}
	for _, m := range g.members {
		if !o.contains(m) {
			return false
		}
	}
	return true
}

func (g *group) sameMembers(ids []TouchID) bool {
	if len(ids) != len(g.members) {
		return false
	}
	for i := range ids {
		if ids[i] != g.members[i] {
			return false
		}
	}
	return true
}

func (g *group) runByGID(gid GestureID) *run {
	for _, r := range g.runs {
		if r.gid == gid {
			return r
		}
	}
	return nil
}

func (g *group) allDone() bool {
	for _, r := range g.runs {
		if r.state != runDone {
			return false
		}
	}
	return true
}

// positions returns the current member positions and whether any member
// has ended. A member purged from the touch model keeps its last position.
func (g *group) positions() ([]Vec2, bool) {
	pts := make([]Vec2, len(g.members))
	ended := false
	for i, id := range g.members {
		lt, ok := g.dev.touches.live[id]
		switch {
		case !ok:
			pts[i] = g.prev[i]
			ended = true
		default:
			pts[i] = lt.pos
			if lt.ended {
				ended = true
			}
		}
	}
	return pts, ended
}

// openGroup starts a group over the given members at time t.
func (e *Engine) openGroup(ds *deviceState, members []TouchID, t time.Duration) *group {
	e.nextGroup++
	g := &group{
		id:      e.nextGroup,
		dev:     ds,
		members: members,
		opened:  t,
		prevT:   t,
		cont:    make(map[*Subscription]*contState),
	}
	g.start = make([]Vec2, len(members))
	for i, id := range members {
		if lt, ok := ds.touches.live[id]; ok {
			g.start[i] = lt.pos
		}
	}
	g.startC = centroidOf(g.start)
	g.startR = radiusOf(g.start, g.startC)
	g.prev = append([]Vec2(nil), g.start...)
	g.prevC = g.startC
	g.region = e.regions.hit(g.startC.X, g.startC.Y)

	ref := frameRef{t: t, centroid: g.startC, radius: g.startR, pos: g.start}
	for _, ce := range e.classes.entries {
		if !ce.accepts(len(members)) {
			continue
		}
		g.runs = append(g.runs, &run{class: ce, cl: ce.def.New(), last: ref})
	}
	e.groups = append(e.groups, g)
	e.metrics.groupOpened()
	e.log.Debug("group opened", "group", g.id, "device", ds.info.ID, "touches", len(members), "runs", len(g.runs))
	return g
}

// measure advances the group's accumulated motion to time t and returns the
// measurement classifiers see.
func (g *group) measure(t time.Duration) *Measurement {
	pts, ended := g.positions()
	c := centroidOf(pts)
	r := radiusOf(pts, c)

	g.angle += meanTurn(g.prev, g.prevC, pts, c)
	// A release usually repeats the last position; keep the velocity of the
	// last motion unless the contacts have been resting for a while.
	if dt := t - g.prevT; dt > 0 && (c != g.prevC || dt > velocityHold) {
		s := dt.Seconds()
		g.vel = Vec2{(c.X - g.prevC.X) / s, (c.Y - g.prevC.Y) / s}
	}
	for i, p := range pts {
		if d := math.Hypot(p.X-g.start[i].X, p.Y-g.start[i].Y); d > g.travel {
			g.travel = d
		}
	}
	g.prev = pts
	g.prevC = c
	g.prevT = t
	if ended {
		g.lapsed = true
	}

	return &Measurement{
		Time:          t,
		Start:         g.opened,
		Touches:       pts,
		Ended:         ended,
		Centroid:      c,
		StartCentroid: g.startC,
		Displacement:  math.Hypot(c.X-g.startC.X, c.Y-g.startC.Y),
		Radius:        r,
		StartRadius:   g.startR,
		Spread:        2 * r,
		StartSpread:   2 * g.startR,
		Angle:         g.angle,
		MaxTravel:     g.travel,
		Velocity:      g.vel,
		UnitsPerMetre: g.dev.info.unitsPerMetre(),
	}
}

// Group is a reference-counted snapshot of a group as carried by one event.
type Group struct {
	object[Group]
	id     GroupID
	frames []*Frame
	eng    *Engine
}

// Ref adds a reference.
func (g *Group) Ref() error { return g.addRef() }

// ID returns the group id, or 0 once released.
func (g *Group) ID() GroupID {
	if !g.alive("ID") {
		return 0
	}
	return g.id
}

// FrameCount returns the number of frames in the group.
func (g *Group) FrameCount() int {
	if !g.alive("FrameCount") {
		return 0
	}
	return len(g.frames)
}

// Frame returns the i'th frame, or nil.
func (g *Group) Frame(i int) *Frame {
	if !g.alive("Frame") || i < 0 || i >= len(g.frames) {
		return nil
	}
	return g.frames[i]
}

// Reject discards every interpretation of the group. See Engine.RejectGroup.
func (g *Group) Reject() error {
	if !g.alive("Reject") {
		return ErrInvalidHandle
	}
	return g.eng.RejectGroup(g.id)
}

// GroupSet is the set of groups carried by a gesture event.
type GroupSet struct {
	groups []*Group
}

// Len returns the number of groups.
func (s GroupSet) Len() int { return len(s.groups) }

// At returns the i'th group, or nil.
func (s GroupSet) At(i int) *Group {
	if i < 0 || i >= len(s.groups) {
		return nil
	}
	return s.groups[i]
}

// ByID returns the group with the given id, or nil.
func (s GroupSet) ByID(id GroupID) *Group {
	for _, g := range s.groups {
		if g.id == id {
			return g
		}
	}
	return nil
}
