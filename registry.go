package gesture

import "fmt"

// Handle is a generation-checked reference into an arena. A handle outlives
// the object it names: once the object is released its slot's generation
// moves on and the handle stops resolving.
type Handle struct {
	Index uint32
	Gen   uint32
}

type arenaSlot[T any] struct {
	gen  uint32
	refs int32
	val  *T
}

// arena stores reference-counted engine objects. Objects start with one
// reference owned by whoever created them; when the count drops to zero the
// object is released, onRelease runs and the slot is recycled.
type arena[T any] struct {
	kind      string
	slots     []arenaSlot[T]
	free      []uint32
	live      int
	diag      *Diagnostics
	debug     *bool
	onRelease func(*T)
}

// newArena returns an arena reporting to diag. debug is the owning engine's
// debug flag; when set, use of a released object panics.
func newArena[T any](kind string, diag *Diagnostics, debug *bool) *arena[T] {
	return &arena[T]{kind: kind, diag: diag, debug: debug}
}

func (a *arena[T]) insert(v *T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, arenaSlot[T]{gen: 1})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.refs = 1
	s.val = v
	a.live++
	return Handle{Index: idx, Gen: s.gen}
}

func (a *arena[T]) slot(h Handle) *arenaSlot[T] {
	if int(h.Index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.Index]
	if s.gen != h.Gen || s.refs <= 0 {
		return nil
	}
	return s
}

// get resolves h, or nil once the object has been released.
func (a *arena[T]) get(h Handle) *T {
	if s := a.slot(h); s != nil {
		return s.val
	}
	return nil
}

func (a *arena[T]) ref(h Handle) error {
	s := a.slot(h)
	if s == nil {
		a.diag.record(ErrInvalidHandle, "%s ref: stale handle %d/%d", a.kind, h.Index, h.Gen)
		return fmt.Errorf("%s ref: %w", a.kind, ErrInvalidHandle)
	}
	s.refs++
	return nil
}

func (a *arena[T]) unref(h Handle) error {
	s := a.slot(h)
	if s == nil {
		a.diag.record(ErrInvalidHandle, "%s unref: stale handle %d/%d", a.kind, h.Index, h.Gen)
		return fmt.Errorf("%s unref: %w", a.kind, ErrInvalidHandle)
	}
	s.refs--
	if s.refs > 0 {
		return nil
	}
	v := s.val
	s.val = nil
	s.gen++
	a.live--
	a.free = append(a.free, h.Index)
	if a.onRelease != nil {
		a.onRelease(v)
	}
	return nil
}

func (a *arena[T]) refCount(h Handle) int {
	if s := a.slot(h); s != nil {
		return int(s.refs)
	}
	return 0
}

// object is embedded in every reference-counted type. It ties the value to
// its arena slot.
type object[T any] struct {
	arena  *arena[T]
	handle Handle
}

func (o *object[T]) bind(a *arena[T], v *T) {
	o.arena = a
	o.handle = a.insert(v)
}

// Handle returns the generation-checked handle of the object.
func (o *object[T]) Handle() Handle {
	return o.handle
}

// Valid reports whether the object is still referenced.
func (o *object[T]) Valid() bool {
	return o != nil && o.arena != nil && o.arena.get(o.handle) != nil
}

// RefCount returns the current number of references, 0 once released.
func (o *object[T]) RefCount() int {
	if o == nil || o.arena == nil {
		return 0
	}
	return o.arena.refCount(o.handle)
}

// Unref drops one reference. The object is released when the last reference
// goes; afterwards Valid reports false and accessors return zero values.
func (o *object[T]) Unref() error {
	if o == nil || o.arena == nil {
		return fmt.Errorf("unref: %w", ErrInvalidHandle)
	}
	return o.arena.unref(o.handle)
}

func (o *object[T]) addRef() error {
	if o == nil || o.arena == nil {
		return fmt.Errorf("ref: %w", ErrInvalidHandle)
	}
	return o.arena.ref(o.handle)
}

// alive reports validity and records a diagnostic for accessors called on a
// released object.
func (o *object[T]) alive(op string) bool {
	if o.Valid() {
		return true
	}
	if o != nil && o.arena != nil {
		o.arena.diag.record(ErrInvalidHandle, "%s %s: object released", o.arena.kind, op)
		if a := o.arena; a.debug != nil && *a.debug {
			panic(fmt.Sprintf("gesture debug: %s on released %s", op, o.arena.kind))
		}
	}
	return false
}
