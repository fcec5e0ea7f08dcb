package gesture

import (
	"fmt"
	"sort"
	"time"
)

// Policy is the per-class recognition configuration. Threshold is in
// physical units: metres for distances, radians for rotation, metres per
// second for flick speed. A zero Timeout disables the timeout.
type Policy struct {
	Threshold float64
	Timeout   time.Duration
}

// Verdict is a classifier's answer for one evaluation.
type Verdict uint8

const (
	Hold   Verdict = iota // not yet decided, keep evaluating
	Commit                // the touches form this gesture
	Fail                  // the touches can never form this gesture
)

// Classifier decides whether a group's touch history matches one gesture
// class. The engine owns the lifecycle: a Classifier only judges tentative
// groups and never sees a group again after committing or failing.
type Classifier interface {
	Evaluate(m *Measurement, p Policy) Verdict
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(m *Measurement, p Policy) Verdict

// Evaluate calls f(m, p).
func (f ClassifierFunc) Evaluate(m *Measurement, p Policy) Verdict { return f(m, p) }

// ClassifierFactory returns a fresh classifier for each group evaluated.
type ClassifierFactory func() Classifier

// ClassDef registers a gesture class with an engine.
type ClassDef struct {
	Name       string
	ID         int
	MinTouches int // smallest group the class applies to, at least 1
	MaxTouches int // largest group, 0 for no limit
	Policy     Policy
	New        ClassifierFactory
}

// GestureClass is the reference-counted, consumer-visible view of a
// registered gesture class.
type GestureClass struct {
	object[GestureClass]
	name  string
	id    int
	attrs Attrs
}

// Ref adds a reference.
func (c *GestureClass) Ref() error { return c.addRef() }

// Name returns the class name, e.g. "Pinch".
func (c *GestureClass) Name() string {
	if !c.alive("Name") {
		return ""
	}
	return c.name
}

// ID returns the class id, or -1 once released.
func (c *GestureClass) ID() int {
	if !c.alive("ID") {
		return -1
	}
	return c.id
}

// Attrs returns the class attributes ("class name", "class id").
func (c *GestureClass) Attrs() Attrs {
	if !c.alive("Attrs") {
		return nil
	}
	return c.attrs
}

// Attr looks up one class attribute.
func (c *GestureClass) Attr(name string) (Attr, bool) {
	return c.Attrs().ByName(name)
}

type classEntry struct {
	def ClassDef
	obj *GestureClass
}

func (ce *classEntry) accepts(n int) bool {
	if n < ce.def.MinTouches {
		return false
	}
	return ce.def.MaxTouches == 0 || n <= ce.def.MaxTouches
}

// classTable keeps registered classes ordered by id, the order in which a
// group evaluates them.
type classTable struct {
	entries []*classEntry
}

func (t *classTable) byID(id int) *classEntry {
	for _, ce := range t.entries {
		if ce.def.ID == id {
			return ce
		}
	}
	return nil
}

func (t *classTable) byName(name string) *classEntry {
	for _, ce := range t.entries {
		if ce.def.Name == name {
			return ce
		}
	}
	return nil
}

func (t *classTable) add(ce *classEntry) {
	t.entries = append(t.entries, ce)
	sort.SliceStable(t.entries, func(i, j int) bool {
		return t.entries[i].def.ID < t.entries[j].def.ID
	})
}

func (t *classTable) remove(id int) *classEntry {
	for i, ce := range t.entries {
		if ce.def.ID == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return ce
		}
	}
	return nil
}

// RegisterClass adds a gesture class. Groups opened afterwards evaluate it.
// Names and ids must be unique within the engine.
func (e *Engine) RegisterClass(def ClassDef) (*GestureClass, error) {
	if def.Name == "" || def.New == nil || def.ID < 0 {
		return nil, fmt.Errorf("register class %q: %w", def.Name, ErrBadArgument)
	}
	if e.classes.byID(def.ID) != nil || e.classes.byName(def.Name) != nil {
		return nil, fmt.Errorf("register class %q (id %d): already registered: %w", def.Name, def.ID, ErrBadArgument)
	}
	if def.MinTouches < 1 {
		def.MinTouches = 1
	}
	c := &GestureClass{
		name: def.Name,
		id:   def.ID,
		attrs: Attrs{
			StringAttr(ClassAttrName, def.Name),
			IntAttr(ClassAttrID, int64(def.ID)),
		},
	}
	c.bind(e.objs.classes, c)
	ce := &classEntry{def: def, obj: c}
	e.classes.add(ce)
	e.log.Debug("class registered", "class", def.Name, "id", def.ID)
	if e.trackClasses {
		e.emitGlobal(EventClassAvailable, nil, ce, nil)
	}
	return c, nil
}

// RemoveClass unregisters a class. Runs of the class already in progress
// finish normally; new groups no longer evaluate it.
func (e *Engine) RemoveClass(id int) error {
	ce := e.classes.remove(id)
	if ce == nil {
		return fmt.Errorf("remove class %d: %w", id, ErrBadArgument)
	}
	if e.trackClasses {
		e.emitGlobal(EventClassUnavailable, nil, ce, nil)
	}
	_ = ce.obj.Unref()
	return nil
}

// Classes returns the registered classes ordered by id.
func (e *Engine) Classes() []*GestureClass {
	out := make([]*GestureClass, 0, len(e.classes.entries))
	for _, ce := range e.classes.entries {
		out = append(out, ce.obj)
	}
	return out
}

// ClassByName returns the registered class with the given name, or nil.
func (e *Engine) ClassByName(name string) *GestureClass {
	if ce := e.classes.byName(name); ce != nil {
		return ce.obj
	}
	return nil
}

// setPolicy changes a class policy and announces it.
func (e *Engine) setPolicy(name string, fn func(*Policy)) error {
	ce := e.classes.byName(name)
	if ce == nil {
		return fmt.Errorf("class %q: %w", name, ErrNotSupported)
	}
	fn(&ce.def.Policy)
	if e.trackClasses {
		e.emitGlobal(EventClassChanged, nil, ce, nil)
	}
	return nil
}
