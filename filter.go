package gesture

import (
	"fmt"
)

// Term is one filter condition: the named attribute compared with Value.
// Value must be a bool, an integer, a float or a string.
type Term struct {
	Attr  string
	Op    Op
	Value any
}

type term struct {
	name string
	op   Op
	val  Attr
}

// termBatch holds the terms of one AddTerm call. Batches that test a
// discriminating attribute for equality are OR'd with the other batches
// testing the same attribute.
type termBatch struct {
	facility Facility
	terms    []term
	orKey    string
}

// discriminating attributes select one object out of many; equality terms on
// them added in separate calls form a choice rather than a conjunction.
var discriminating = map[string]bool{
	ClassAttrName:      true,
	ClassAttrID:        true,
	DeviceAttrName:     true,
	DeviceAttrID:       true,
	RegionAttrWindowID: true,
	RegionAttrName:     true,
}

var deviceAttrNames = map[string]bool{
	DeviceAttrName: true, DeviceAttrID: true, DeviceAttrTouches: true,
	DeviceAttrDirectTouch: true, DeviceAttrIndependentTouch: true,
	DeviceAttrMinX: true, DeviceAttrMaxX: true, DeviceAttrResX: true,
	DeviceAttrMinY: true, DeviceAttrMaxY: true, DeviceAttrResY: true,
}

var specialAttrNames = map[string]bool{
	SpecialAttrTouches:              true,
	SpecialAttrConstructionFinished: true,
	SpecialAttrTentative:            true,
}

// Filter is an ordered collection of terms deciding which gestures a
// subscription receives. A filter is owned by the caller that created it
// until it is added to a subscription.
type Filter struct {
	object[Filter]
	name    string
	batches []termBatch
	owner   *Subscription
	serial  uint64
	rev     uint64
	eng     *Engine
}

// NewFilter creates an empty filter. An empty filter matches every gesture.
func (e *Engine) NewFilter(name string) (*Filter, error) {
	if name == "" {
		e.diag.record(ErrBadArgument, "new filter: empty name")
		return nil, fmt.Errorf("new filter: empty name: %w", ErrBadArgument)
	}
	e.nextFilter++
	f := &Filter{name: name, serial: e.nextFilter, eng: e}
	f.bind(e.objs.filters, f)
	return f, nil
}

// Ref adds a reference.
func (f *Filter) Ref() error { return f.addRef() }

// Name returns the filter name.
func (f *Filter) Name() string {
	if !f.alive("Name") {
		return ""
	}
	return f.name
}

// TermCount returns the number of terms across all facilities.
func (f *Filter) TermCount() int {
	if !f.alive("TermCount") {
		return 0
	}
	n := 0
	for _, b := range f.batches {
		n += len(b.terms)
	}
	return n
}

// Owner returns the subscription that owns the filter, or nil.
func (f *Filter) Owner() *Subscription {
	if !f.alive("Owner") {
		return nil
	}
	return f.owner
}

// AddTerm adds terms for one facility. Terms given in one call must all
// hold; see Term for value types. Unknown facilities and attribute names a
// facility does not provide fail with ErrNotSupported; ordering comparisons
// on booleans and unsupported value types fail with ErrBadArgument. The
// filter is unchanged on failure.
func (f *Filter) AddTerm(facility Facility, terms ...Term) error {
	if !f.alive("AddTerm") {
		return fmt.Errorf("add term: %w", ErrInvalidHandle)
	}
	if len(terms) == 0 {
		return fmt.Errorf("filter %q: add term: no terms: %w", f.name, ErrBadArgument)
	}
	b := termBatch{facility: facility}
	for _, t := range terms {
		if err := checkTermAttr(facility, t.Attr); err != nil {
			return fmt.Errorf("filter %q: %w", f.name, err)
		}
		if t.Op > OpLE {
			return fmt.Errorf("filter %q: term %q: operator %d: %w", f.name, t.Attr, t.Op, ErrBadArgument)
		}
		v, err := MakeAttr(t.Attr, t.Value)
		if err != nil {
			return fmt.Errorf("filter %q: %w", f.name, err)
		}
		if v.typ == AttrBoolean && t.Op != OpEQ && t.Op != OpNE {
			return fmt.Errorf("filter %q: term %q: %s on boolean: %w", f.name, t.Attr, t.Op, ErrBadArgument)
		}
		b.terms = append(b.terms, term{name: t.Attr, op: t.Op, val: v})
		if b.orKey == "" && t.Op == OpEQ && discriminating[t.Attr] {
			b.orKey = t.Attr
		}
	}
	f.batches = append(f.batches, b)
	f.rev++
	return nil
}

func checkTermAttr(facility Facility, name string) error {
	switch facility {
	case FilterDevice:
		if !deviceAttrNames[name] {
			return fmt.Errorf("device attribute %q: %w", name, ErrNotSupported)
		}
	case FilterClass:
		if name == "" {
			return fmt.Errorf("class term without attribute: %w", ErrBadArgument)
		}
	case FilterRegion:
		if name != RegionAttrWindowID && name != RegionAttrName {
			return fmt.Errorf("region attribute %q: %w", name, ErrNotSupported)
		}
	case FilterSpecial:
		if !specialAttrNames[name] {
			return fmt.Errorf("special attribute %q: %w", name, ErrNotSupported)
		}
	default:
		return fmt.Errorf("facility %d: %w", facility, ErrNotSupported)
	}
	return nil
}

// Clone returns an unowned copy of the filter under a new name.
func (f *Filter) Clone(name string) (*Filter, error) {
	if !f.alive("Clone") {
		return nil, fmt.Errorf("clone filter: %w", ErrInvalidHandle)
	}
	c, err := f.eng.NewFilter(name)
	if err != nil {
		return nil, err
	}
	for _, b := range f.batches {
		nb := b
		nb.terms = append([]term(nil), b.terms...)
		c.batches = append(c.batches, nb)
	}
	c.rev = 1
	return c, nil
}

// Delete detaches the filter from its subscription, if any, and drops the
// caller's reference.
func (f *Filter) Delete() error {
	if !f.alive("Delete") {
		return fmt.Errorf("delete filter: %w", ErrInvalidHandle)
	}
	if f.owner != nil {
		f.owner.detach(f)
	}
	return f.Unref()
}

// candidate is what filters are evaluated against: one class run over one
// group at one evaluation.
type candidate struct {
	dev       *deviceState
	class     *classEntry
	frame     Attrs
	region    *Region
	touches   int
	tentative bool
	finished  bool
}

// memoKey identifies a filter evaluation whose result only depends on the
// discrete parts of the candidate. Devices are keyed by their state, not
// their id, since a removed id can come back with other attributes.
type memoKey struct {
	serial    uint64
	rev       uint64
	device    *deviceState
	class     int
	region    *Region
	touches   int
	tentative bool
	finished  bool
}

type memoResult struct {
	ok    bool
	depth int
}

// discrete reports whether every term of f tests an attribute that is fixed
// for a (device, class, region, touch count) combination.
func (f *Filter) discrete() bool {
	for _, b := range f.batches {
		if b.facility != FilterClass {
			continue
		}
		for _, t := range b.terms {
			if t.name != ClassAttrName && t.name != ClassAttrID {
				return false
			}
		}
	}
	return true
}

// matchFilter evaluates f against c. depth is the depth of the deepest
// region a region term matched, 0 when no region term constrains f.
func (e *Engine) matchFilter(f *Filter, c *candidate) (ok bool, depth int) {
	if len(f.batches) == 0 {
		return true, 0
	}
	var key memoKey
	memo := e.memo != nil && f.discrete()
	if memo {
		key = memoKey{
			serial: f.serial, rev: f.rev,
			device: c.dev, class: c.class.def.ID, region: c.region,
			touches: c.touches, tentative: c.tentative, finished: c.finished,
		}
		if r, hit := e.memo.Get(key); hit {
			return r.ok, r.depth
		}
	}
	ok, depth = e.evalFilter(f, c)
	if memo {
		e.memo.Add(key, memoResult{ok: ok, depth: depth})
	}
	return ok, depth
}

func (e *Engine) evalFilter(f *Filter, c *candidate) (bool, int) {
	depth := 0
	for _, fac := range []Facility{FilterDevice, FilterClass, FilterRegion, FilterSpecial} {
		orSeen := map[string]bool{}
		orHit := map[string]bool{}
		for _, b := range f.batches {
			if b.facility != fac {
				continue
			}
			ok, d := e.evalBatch(f, b, c)
			if b.orKey != "" {
				orSeen[b.orKey] = true
				if ok {
					orHit[b.orKey] = true
					depth = max(depth, d)
				}
				continue
			}
			if !ok {
				return false, 0
			}
			depth = max(depth, d)
		}
		for k := range orSeen {
			if !orHit[k] {
				return false, 0
			}
		}
	}
	return true, depth
}

func (e *Engine) evalBatch(f *Filter, b termBatch, c *candidate) (bool, int) {
	depth := 0
	for _, t := range b.terms {
		ok, d := e.evalTerm(f, b.facility, t, c)
		if !ok {
			return false, 0
		}
		depth = max(depth, d)
	}
	return true, depth
}

func (e *Engine) evalTerm(f *Filter, facility Facility, t term, c *candidate) (bool, int) {
	var have Attr
	var found bool
	switch facility {
	case FilterDevice:
		have, found = c.dev.attrs.ByName(t.name)
	case FilterClass:
		if t.name == ClassAttrName || t.name == ClassAttrID {
			have, found = c.class.obj.attrs.ByName(t.name)
		} else {
			have, found = c.frame.ByName(t.name)
		}
	case FilterRegion:
		return e.evalRegionTerm(f, t, c.region)
	case FilterSpecial:
		switch t.name {
		case SpecialAttrTouches:
			have, found = IntAttr(t.name, int64(c.touches)), true
		case SpecialAttrConstructionFinished:
			have, found = BoolAttr(t.name, c.finished), true
		case SpecialAttrTentative:
			have, found = BoolAttr(t.name, c.tentative), true
		}
	}
	if !found {
		return false, 0
	}
	return e.compareTerm(f, have, t), 0
}

// evalRegionTerm matches equality against the gesture's region or any of its
// ancestors; other operators test the gesture's own region.
func (e *Engine) evalRegionTerm(f *Filter, t term, r *Region) (bool, int) {
	if r == nil {
		return false, 0
	}
	if t.op != OpEQ {
		have, _ := r.attrs().ByName(t.name)
		return e.compareTerm(f, have, t), r.depth
	}
	for p := r; p != nil; p = p.parent {
		have, _ := p.attrs().ByName(t.name)
		if e.compareTerm(f, have, t) {
			return true, p.depth
		}
	}
	return false, 0
}

func (e *Engine) compareTerm(f *Filter, have Attr, t term) bool {
	ok, err := have.compare(t.op, t.val)
	if err != nil {
		e.diag.record(err, "filter %q: term %q %s %v", f.name, t.name, t.op, t.val.Value())
		return false
	}
	return ok
}
