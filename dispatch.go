package gesture

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// transition is one state change of a class run, waiting to be turned into
// events for its recipients.
type transition struct {
	g   *group
	r   *run
	typ EventType
	fd  *frameData
}

// DispatchEvents processes waiting input and delivers the resulting events.
// It never blocks. At most the configured max events input records are
// processed; StatusContinue means more input is waiting, StatusSuccess that
// the inbox is drained. In callback mode the callback runs inside this call
// for every event produced; otherwise events wait for NextEvent.
func (e *Engine) DispatchEvents() Status {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		e.diag.record(ErrClosed, "dispatch on closed engine")
		return StatusUnknownError
	}

	began := time.Now()
	var stats debugStats
	e.start()

	t0 := time.Now()
	recs, more := e.takeInput(e.maxEvents)
	stats.records = len(recs)
	for _, rec := range recs {
		t1 := time.Now()
		e.process(rec)
		stats.classifyTime += time.Since(t1)
		stats.transitions += len(e.pending)
		e.deliverPending()
	}
	stats.ingestTime = time.Since(t0) - stats.classifyTime

	t2 := time.Now()
	stats.events = e.flush()
	stats.deliverTime = time.Since(t2)

	e.metrics.dispatched(time.Since(began))
	e.debugLog(stats)
	if more {
		return StatusContinue
	}
	return StatusSuccess
}

// NextEvent pulls the oldest queued event. The caller owns it and releases
// it with Release. The status is StatusContinue when more events are
// queued, StatusSuccess when this was the last and StatusEmpty (with a nil
// event) when there was nothing.
func (e *Engine) NextEvent() (*Event, Status) {
	ev := e.queue.get()
	if ev == nil {
		return nil, StatusEmpty
	}
	if e.queue.len() > 0 {
		return ev, StatusContinue
	}
	return ev, StatusSuccess
}

// QueuedEvents returns the number of events waiting for NextEvent.
func (e *Engine) QueuedEvents() int { return e.queue.len() }

func (e *Engine) process(rec inputRecord) {
	switch rec.kind {
	case inputAddDevice:
		e.addDevice(rec.device)
	case inputRemoveDevice:
		e.removeDevice(rec.device.ID)
	case inputFrame:
		e.ingest(rec.frame)
	case inputTick:
		e.advance(rec.frame.Time)
		for _, g := range e.openGroups(nil) {
			e.evaluate(g)
		}
		e.closeFinished(nil)
	}
}

func (e *Engine) advance(t time.Duration) {
	if t > e.now {
		e.now = t
	}
}

func (e *Engine) addDevice(info DeviceInfo) {
	if ds, ok := e.devices[info.ID]; ok && !ds.removed {
		e.fail(ErrBadArgument, "add device %d (%q): already present", info.ID, info.Name)
		return
	}
	ds := e.newDevice(info)
	e.devices[info.ID] = ds
	e.log.Info("device added", "device", info.ID, "name", info.Name, "touches", info.Touches)
	if e.trackDevices {
		e.emitGlobal(EventDeviceAvailable, ds, nil, nil)
	}
}

func (e *Engine) removeDevice(id DeviceID) {
	ds, ok := e.devices[id]
	if !ok {
		e.fail(ErrInvalidDevice, "remove device %d", id)
		return
	}
	ds.touches.endAll(e.now)
	for _, g := range e.openGroups(ds) {
		e.evaluate(g)
		e.terminateGroup(g)
	}
	ds.removed = true
	delete(e.devices, id)
	e.log.Info("device removed", "device", id)
	if e.trackDevices {
		e.emitGlobal(EventDeviceUnavailable, ds, nil, nil)
	}
	_ = ds.obj.Unref()
}

// ingest applies one input frame to the touch model, then regroups and
// evaluates the device's groups.
func (e *Engine) ingest(f InputFrame) {
	e.metrics.inputFrame()
	ds, ok := e.devices[f.Device]
	if !ok {
		e.fail(ErrInvalidDevice, "input frame for device %d", f.Device)
		return
	}
	e.advance(f.Time)
	t := e.now

	began := false
	for _, d := range f.Touches {
		b, err := ds.touches.ingest(t, d)
		if err != nil {
			e.diag.record(err, "device %d: %v", f.Device, err)
		}
		began = began || b
	}
	if began {
		e.regroup(ds, t)
	}
	for _, g := range e.openGroups(ds) {
		e.evaluate(g)
	}
	ds.touches.purge()
	e.closeFinished(ds)
}

// regroup opens a group over all live touches of the device when a contact
// joined, unless one exists already or the combination is wider than any
// subscription wants.
func (e *Engine) regroup(ds *deviceState, t time.Duration) {
	ids := ds.touches.active()
	if len(ids) == 0 {
		return
	}
	want := e.subsWantingTouches()
	if want == 0 || len(ids) > ds.maxCardinality(want) {
		return
	}
	for _, g := range e.openGroups(ds) {
		if g.sameMembers(ids) {
			return
		}
	}
	ng := e.openGroup(ds, ids, t)
	if !e.atomic {
		return
	}
	for _, g := range e.openGroups(ds) {
		if g != ng && g.subsetOf(ng) && !g.hasAccepted() {
			e.terminateGroup(g)
		}
	}
}

func (g *group) hasAccepted() bool {
	for _, r := range g.runs {
		if r.accepted {
			return true
		}
	}
	return false
}

// openGroups returns the open groups of ds, or of every device when ds is
// nil, in id order.
func (e *Engine) openGroups(ds *deviceState) []*group {
	var out []*group
	for _, g := range e.groups {
		if !g.closed && (ds == nil || g.dev == ds) {
			out = append(out, g)
		}
	}
	return out
}

// closeFinished closes groups whose touches lapsed or whose runs all ended.
func (e *Engine) closeFinished(ds *deviceState) {
	for _, g := range e.openGroups(ds) {
		if g.lapsed || g.allDone() {
			e.closeGroup(g)
		}
	}
}

func (e *Engine) closeGroup(g *group) {
	if g.closed {
		return
	}
	g.closed = true
	for i, x := range e.groups {
		if x == g {
			e.groups = append(e.groups[:i], e.groups[i+1:]...)
			break
		}
	}
	e.metrics.groupClosed()
	e.log.Debug("group closed", "group", g.id, "lapsed", g.lapsed)
}

// terminateGroup ends every live run of g and closes it.
func (e *Engine) terminateGroup(g *group) {
	for _, r := range g.runs {
		if r.live() {
			e.prune(g, r)
		}
	}
	e.closeGroup(g)
}

// evaluate steps every run of g once at the current time.
func (e *Engine) evaluate(g *group) {
	m := g.measure(e.now)
	for _, r := range g.runs {
		e.step(g, r, m)
	}
}

// step advances one run's state machine.
func (e *Engine) step(g *group, r *run, m *Measurement) {
	switch r.state {
	case runDone:
		return
	case runIdle:
		r.state = runTentative
		e.nextGID++
		r.gid = e.nextGID
		e.emit(g, r, EventTentativeBegin, m, true)
	case runActive:
		switch {
		case m.Ended:
			r.state = runDone
			e.emit(g, r, EventGestureEnd, m, false)
		case e.synchronous || r.changed(m):
			e.emit(g, r, EventGestureUpdate, m, false)
		}
		return
	}

	pol := r.class.def.Policy
	if pol.Timeout > 0 && m.Elapsed() > pol.Timeout {
		r.state = runDone
		e.emit(g, r, EventTentativeEnd, m, false)
		return
	}
	switch e.judge(g, r, m, pol) {
	case Commit:
		r.state = runActive
		e.emit(g, r, EventGestureBegin, m, true)
		if m.Ended {
			r.state = runDone
			e.emit(g, r, EventGestureEnd, m, false)
		}
	case Fail:
		r.state = runDone
		e.emit(g, r, EventTentativeEnd, m, false)
	default:
		switch {
		case m.Ended:
			r.state = runDone
			e.emit(g, r, EventTentativeEnd, m, false)
		case r.changed(m):
			e.emit(g, r, EventTentativeUpdate, m, false)
		}
	}
}

// judge runs the classifier, isolating a panic to this run.
func (e *Engine) judge(g *group, r *run, m *Measurement, p Policy) (v Verdict) {
	defer func() {
		if rec := recover(); rec != nil {
			err := fmt.Errorf("classifier %s panicked: %v: %w", r.class.def.Name, rec, ErrUnknown)
			e.fail(err, "group %d: %v", g.id, err)
			e.log.Error("classifier failed", "class", r.class.def.Name, "group", g.id, "panic", rec)
			v = Fail
		}
	}()
	return r.cl.Evaluate(m, p)
}

func (e *Engine) emit(g *group, r *run, typ EventType, m *Measurement, fromStart bool) {
	if typ.IsTentative() && !e.tentative && len(r.tentSubs) == 0 {
		return
	}
	e.pending = append(e.pending, transition{g: g, r: r, typ: typ, fd: e.buildFrame(g, r, m, fromStart)})
}

// prune ends a live run outside of its own evaluation: an end for an active
// run, a tentative end for a tentative one.
func (e *Engine) prune(g *group, r *run) {
	typ := EventTentativeEnd
	if r.state == runActive {
		typ = EventGestureEnd
	}
	r.state = runDone
	e.emit(g, r, typ, g.restMeasure(r, e.now), false)
}

// restMeasure repeats a run's last frame at time t.
func (g *group) restMeasure(r *run, t time.Duration) *Measurement {
	return &Measurement{
		Time:          t,
		Start:         g.opened,
		Touches:       r.last.pos,
		Centroid:      r.last.centroid,
		StartCentroid: g.startC,
		Displacement:  math.Hypot(r.last.centroid.X-g.startC.X, r.last.centroid.Y-g.startC.Y),
		Radius:        r.last.radius,
		StartRadius:   g.startR,
		Spread:        2 * r.last.radius,
		StartSpread:   2 * g.startR,
		Angle:         r.last.angle,
		MaxTravel:     g.travel,
		Velocity:      g.vel,
		UnitsPerMetre: g.dev.info.unitsPerMetre(),
	}
}

func (e *Engine) constructionFinished(g *group, t time.Duration) bool {
	if g.lapsed || t-g.opened >= e.composition {
		return true
	}
	return g.size() >= g.dev.maxCardinality(e.subsWantingTouches())
}

// deliverPending turns pending transitions into events, ordered by group id
// then class id. Transitions of one run keep their order.
func (e *Engine) deliverPending() {
	for len(e.pending) > 0 {
		trs := e.pending
		e.pending = nil
		sort.SliceStable(trs, func(i, j int) bool {
			if trs[i].g.id != trs[j].g.id {
				return trs[i].g.id < trs[j].g.id
			}
			return trs[i].r.class.def.ID < trs[j].r.class.def.ID
		})
		for _, tr := range trs {
			e.deliver(tr)
		}
	}
}

func (e *Engine) candidate(tr transition, tentative bool) *candidate {
	return &candidate{
		dev:       tr.g.dev,
		class:     tr.r.class,
		frame:     tr.fd.attrs,
		region:    tr.g.region,
		touches:   tr.g.size(),
		tentative: tentative,
		finished:  tr.fd.finished,
	}
}

// deliver sends one transition to its recipients. Recipients are chosen
// when a run first shows itself: at the tentative begin for tentative
// delivery, at the begin for gesture delivery. Later events of the run go
// to exactly those subscriptions.
func (e *Engine) deliver(tr transition) {
	r := tr.r
	switch tr.typ {
	case EventTentativeBegin:
		r.tentSubs = e.recipients(e.candidate(tr, true), nil)
		for _, s := range r.tentSubs {
			e.send(tr, s, EventTentativeBegin, r.gid, []*classEntry{r.class})
		}
	case EventTentativeUpdate, EventTentativeEnd:
		for _, s := range r.tentSubs {
			e.send(tr, s, tr.typ, r.gid, []*classEntry{r.class})
		}
		if tr.typ == EventTentativeEnd {
			r.tentSubs = nil
		}
	case EventGestureBegin:
		r.subs = e.recipients(e.candidate(tr, false), nil)
		for _, s := range r.tentSubs {
			if !containsSub(r.subs, s) {
				e.send(tr, s, EventTentativeEnd, r.gid, []*classEntry{r.class})
			}
		}
		r.tentSubs = nil
		for _, s := range r.subs {
			e.sendGesture(tr, s, EventGestureBegin)
		}
	case EventGestureUpdate:
		for _, s := range r.subs {
			e.sendGesture(tr, s, EventGestureUpdate)
		}
	case EventGestureEnd:
		for _, s := range r.subs {
			e.sendGesture(tr, s, EventGestureEnd)
		}
		r.subs = nil
	}
}

// sendGesture delivers a begin, update or end, folding the runs of one
// group into a single gesture id for continuation subscriptions: the first
// class to begin begins the gesture, later class changes are updates and
// the last class to end ends it.
func (e *Engine) sendGesture(tr transition, s *Subscription, typ EventType) {
	r := tr.r
	if !s.continuation() {
		e.send(tr, s, typ, r.gid, []*classEntry{r.class})
		return
	}
	cs := tr.g.cont[s]
	if cs == nil {
		cs = &contState{}
		tr.g.cont[s] = cs
	}
	switch typ {
	case EventGestureBegin:
		if len(cs.live) == 0 {
			e.nextGID++
			cs.gid = e.nextGID
		} else {
			typ = EventGestureUpdate
		}
		cs.live = addClass(cs.live, r.class)
		e.send(tr, s, typ, cs.gid, cs.live)
	case EventGestureUpdate:
		e.send(tr, s, typ, cs.gid, cs.live)
	case EventGestureEnd:
		classes := cs.live
		cs.live = removeClass(cs.live, r.class)
		if len(cs.live) == 0 {
			e.send(tr, s, EventGestureEnd, cs.gid, classes)
			delete(tr.g.cont, s)
			return
		}
		e.send(tr, s, EventGestureUpdate, cs.gid, cs.live)
	}
}

func addClass(l []*classEntry, ce *classEntry) []*classEntry {
	for _, x := range l {
		if x == ce {
			return l
		}
	}
	out := append(append([]*classEntry(nil), l...), ce)
	sort.Slice(out, func(i, j int) bool { return out[i].def.ID < out[j].def.ID })
	return out
}

func removeClass(l []*classEntry, ce *classEntry) []*classEntry {
	out := make([]*classEntry, 0, len(l))
	for _, x := range l {
		if x != ce {
			out = append(out, x)
		}
	}
	return out
}

// send builds and queues one gesture event for one subscription.
func (e *Engine) send(tr transition, s *Subscription, typ EventType, gid GestureID, classes []*classEntry) {
	fd := tr.fd
	frame := e.newFrame(fd, tr.g.id, gid, tr.r.class.def.Name, classes)
	grp := &Group{id: tr.g.id, frames: []*Frame{frame}, eng: e}
	grp.bind(e.objs.groups, grp)

	ts := TouchSet{touches: make([]*Touch, 0, len(fd.touches))}
	for i := range fd.touches {
		ts.touches = append(ts.touches, e.snapshotTouch(tr.g.dev.info.ID, &fd.touches[i]))
	}
	gs := GroupSet{groups: []*Group{grp}}

	ev := &Event{
		typ:     typ,
		groups:  gs,
		touches: ts,
		sub:     s,
		group:   tr.g.id,
		gid:     gid,
		attrs: Attrs{
			PointerAttr(EventAttrGroupSet, gs),
			PointerAttr(EventAttrTouchSet, ts),
			BoolAttr(EventAttrConstructionFinished, fd.finished),
		},
	}
	ev.bind(e.objs.events, ev)
	e.enqueue(ev)
}

// emitGlobal queues an engine-wide event: device, class, init or error.
func (e *Engine) emitGlobal(typ EventType, ds *deviceState, ce *classEntry, err error) {
	ev := &Event{typ: typ}
	switch {
	case ds != nil:
		if ds.obj.addRef() == nil {
			ev.device = ds.obj
			ev.attrs = Attrs{PointerAttr(EventAttrDevice, ds.obj)}
		}
	case ce != nil:
		if ce.obj.addRef() == nil {
			ev.class = ce.obj
			ev.attrs = Attrs{PointerAttr(EventAttrClass, ce.obj)}
		}
	case err != nil:
		ev.attrs = Attrs{
			IntAttr(EventAttrErrorCode, int64(StatusOf(err))),
			StringAttr(EventAttrErrorMessage, err.Error()),
		}
	}
	ev.bind(e.objs.events, ev)
	e.enqueue(ev)
}

// fail records an isolated failure and reports it as an error event.
func (e *Engine) fail(err error, format string, args ...any) {
	e.diag.record(err, format, args...)
	e.emitGlobal(EventError, nil, nil, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err))
}

func (e *Engine) enqueue(ev *Event) {
	if err := e.queue.add(ev); err != nil {
		e.diag.record(err, "dropped %s", ev)
		e.log.Warn("event dropped", "event", ev.typ.String(), "queued", e.queue.len())
		_ = ev.Release()
		return
	}
	e.metrics.event(ev.typ)
	if e.sink != nil && ev.typ.IsGesture() {
		if ge, ok := Snapshot(ev); ok {
			e.sink.EmitEvent(ge)
		}
	}
}

// route returns the callback an event is delivered to, nil to keep it
// queued.
func (e *Engine) route(ev *Event) EventCallback {
	switch ev.typ {
	case EventDeviceAvailable, EventDeviceUnavailable:
		if e.devCB != nil {
			return e.devCB
		}
	case EventClassAvailable, EventClassChanged, EventClassUnavailable:
		if e.classCB != nil {
			return e.classCB
		}
	}
	return e.callback
}

// flush hands queued events to the registered callbacks, including events
// the callbacks themselves cause. Events without a callback stay queued in
// order.
func (e *Engine) flush() int {
	if e.callback == nil && e.devCB == nil && e.classCB == nil {
		return 0
	}
	n := 0
	var kept []*Event
	for ev := e.queue.get(); ev != nil; ev = e.queue.get() {
		fn := e.route(ev)
		if fn == nil {
			kept = append(kept, ev)
			continue
		}
		fn(ev)
		e.deliverPending()
		_ = ev.Release()
		n++
	}
	for _, ev := range kept {
		_ = e.queue.add(ev)
	}
	return n
}

// findGroup returns the open group with the given id.
func (e *Engine) findGroup(id GroupID) *group {
	for _, g := range e.groups {
		if g.id == id && !g.closed {
			return g
		}
	}
	return nil
}

// resolve maps a gesture id seen by a consumer to the runs behind it: the
// run with that id, or the live runs folded into a continuation gesture.
func (g *group) resolve(gid GestureID) (runs []*run, cont *contState) {
	if r := g.runByGID(gid); r != nil {
		return []*run{r}, nil
	}
	for _, cs := range g.cont {
		if cs.gid != gid {
			continue
		}
		for _, ce := range cs.live {
			for _, r := range g.runs {
				if r.class == ce && r.live() {
					runs = append(runs, r)
				}
			}
		}
		return runs, cs
	}
	return nil, nil
}

// Accept commits the interpretation gid of group id. The group's other live
// interpretations end; with atomic gestures every other group sharing a
// touch with it is closed as well.
func (e *Engine) Accept(id GroupID, gid GestureID) error {
	g := e.findGroup(id)
	if g == nil {
		return fmt.Errorf("accept group %d: %w", id, ErrBadArgument)
	}
	runs, _ := g.resolve(gid)
	if len(runs) == 0 {
		return fmt.Errorf("accept group %d gesture %d: unknown gesture: %w", id, gid, ErrBadArgument)
	}
	for _, r := range runs {
		if r.rejected {
			return fmt.Errorf("accept group %d gesture %d: rejected: %w", id, gid, ErrBadArgument)
		}
	}
	for _, r := range runs {
		r.accepted = true
	}
	for _, r := range g.runs {
		if r.live() && !r.accepted {
			e.prune(g, r)
		}
	}
	if e.atomic {
		for _, og := range e.openGroups(g.dev) {
			if og != g && og.overlaps(g) {
				e.terminateGroup(og)
			}
		}
	}
	e.log.Debug("gesture accepted", "group", id, "gesture", gid)
	e.deliverPending()
	return nil
}

// Reject discards the interpretation gid of group id. No further event is
// delivered for gid, including events already queued, and no end event is
// sent. The touches stay available to other groups.
func (e *Engine) Reject(id GroupID, gid GestureID) error {
	g := e.findGroup(id)
	if g == nil {
		return fmt.Errorf("reject group %d: %w", id, ErrBadArgument)
	}
	runs, cs := g.resolve(gid)
	if len(runs) == 0 && cs == nil {
		return fmt.Errorf("reject group %d gesture %d: unknown gesture: %w", id, gid, ErrBadArgument)
	}
	gids := map[GestureID]bool{gid: true}
	for _, r := range runs {
		e.rejectRun(g, r)
		gids[r.gid] = true
	}
	if cs != nil {
		for s, x := range g.cont {
			if x == cs {
				delete(g.cont, s)
			}
		}
	}
	e.purge(func(ev *Event) bool { return ev.group == id && gids[ev.gid] })
	if g.allDone() {
		e.closeGroup(g)
	}
	e.log.Debug("gesture rejected", "group", id, "gesture", gid)
	return nil
}

// RejectGroup discards every interpretation of group id and closes it.
func (e *Engine) RejectGroup(id GroupID) error {
	g := e.findGroup(id)
	if g == nil {
		return fmt.Errorf("reject group %d: %w", id, ErrBadArgument)
	}
	for _, r := range g.runs {
		e.rejectRun(g, r)
	}
	e.purge(func(ev *Event) bool { return ev.group == id })
	e.closeGroup(g)
	e.log.Debug("group rejected", "group", id)
	return nil
}

func (e *Engine) rejectRun(g *group, r *run) {
	if r.live() {
		e.metrics.rejected()
	}
	r.rejected = true
	r.state = runDone
	r.subs = nil
	r.tentSubs = nil
	for s, cs := range g.cont {
		cs.live = removeClass(cs.live, r.class)
		if len(cs.live) == 0 {
			delete(g.cont, s)
		}
	}
	kept := e.pending[:0]
	for _, tr := range e.pending {
		if tr.r != r {
			kept = append(kept, tr)
		}
	}
	e.pending = kept
}

func (e *Engine) purge(drop func(*Event) bool) {
	for _, ev := range e.queue.purge(func(ev *Event) bool { return ev.typ.IsGesture() && drop(ev) }) {
		_ = ev.Release()
	}
}

// withdraw ends, for subscription s only, every gesture it is following.
func (e *Engine) withdraw(s *Subscription) {
	for _, g := range e.groups {
		contEnded := false
		for _, r := range g.runs {
			if containsSub(r.tentSubs, s) {
				r.tentSubs = removeSub(r.tentSubs, s)
				tr := transition{g: g, r: r, typ: EventTentativeEnd, fd: e.buildFrame(g, r, g.restMeasure(r, e.now), false)}
				e.send(tr, s, EventTentativeEnd, r.gid, []*classEntry{r.class})
			}
			if !containsSub(r.subs, s) {
				continue
			}
			r.subs = removeSub(r.subs, s)
			tr := transition{g: g, r: r, typ: EventGestureEnd, fd: e.buildFrame(g, r, g.restMeasure(r, e.now), false)}
			if cs := g.cont[s]; s.continuation() && cs != nil {
				if !contEnded {
					e.send(tr, s, EventGestureEnd, cs.gid, cs.live)
					contEnded = true
				}
				continue
			}
			e.send(tr, s, EventGestureEnd, r.gid, []*classEntry{r.class})
		}
		delete(g.cont, s)
	}
}
