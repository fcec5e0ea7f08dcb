package gesture

import "fmt"

// Subscription is a named request for gesture events. It owns its filters;
// a gesture is delivered when any filter matches, or always when it has no
// filters. Only active subscriptions receive events.
type Subscription struct {
	id      int
	name    string
	flags   SubscriptionFlags
	filters []*Filter
	active  bool
	deleted bool
	eng     *Engine
}

// NewSubscription creates an inactive subscription.
func (e *Engine) NewSubscription(name string, flags SubscriptionFlags) (*Subscription, error) {
	if flags&^(SubscriptionGrab|SubscriptionContinuation) != 0 {
		e.diag.record(ErrBadArgument, "new subscription %q: flags %#x", name, int(flags))
		return nil, fmt.Errorf("new subscription %q: flags %#x: %w", name, int(flags), ErrBadArgument)
	}
	e.nextSub++
	s := &Subscription{id: e.nextSub, name: name, flags: flags, eng: e}
	e.subs = append(e.subs, s)
	return s, nil
}

// ID returns the engine-unique subscription id.
func (s *Subscription) ID() int { return s.id }

// Name returns the subscription name.
func (s *Subscription) Name() string { return s.name }

// Flags returns the subscription flags.
func (s *Subscription) Flags() SubscriptionFlags { return s.flags }

// Active reports whether the subscription currently receives events.
func (s *Subscription) Active() bool { return s.active }

func (s *Subscription) grab() bool         { return s.flags&SubscriptionGrab != 0 }
func (s *Subscription) continuation() bool { return s.flags&SubscriptionContinuation != 0 }

// Filters returns the owned filters in the order they were added.
func (s *Subscription) Filters() []*Filter { return s.filters }

// FilterByName returns the owned filter with the given name, or nil.
func (s *Subscription) FilterByName(name string) *Filter {
	for _, f := range s.filters {
		if f.name == name {
			return f
		}
	}
	return nil
}

// AddFilter transfers ownership of f to the subscription. A filter owned by
// another subscription is rejected.
func (s *Subscription) AddFilter(f *Filter) error {
	if s.deleted {
		return fmt.Errorf("subscription %q: %w", s.name, ErrInvalidHandle)
	}
	if !f.alive("AddFilter") {
		return fmt.Errorf("subscription %q: add filter: %w", s.name, ErrInvalidHandle)
	}
	if f.owner != nil {
		return fmt.Errorf("subscription %q: filter %q is owned by %q: %w", s.name, f.name, f.owner.name, ErrBadArgument)
	}
	f.owner = s
	s.filters = append(s.filters, f)
	return nil
}

// RemoveFilter detaches f and hands ownership back to the caller, who must
// eventually Delete or Unref it.
func (s *Subscription) RemoveFilter(f *Filter) error {
	if f == nil || f.owner != s {
		return fmt.Errorf("subscription %q: remove filter: not owned: %w", s.name, ErrBadArgument)
	}
	s.detach(f)
	return nil
}

func (s *Subscription) detach(f *Filter) {
	for i, x := range s.filters {
		if x == f {
			s.filters = append(s.filters[:i], s.filters[i+1:]...)
			break
		}
	}
	f.owner = nil
}

// Activate starts delivery. Gestures already in progress are not delivered
// retroactively; the subscription joins gestures that begin afterwards.
func (s *Subscription) Activate() error {
	if s.deleted {
		return fmt.Errorf("activate %q: %w", s.name, ErrInvalidHandle)
	}
	s.active = true
	s.eng.log.Debug("subscription activated", "subscription", s.name)
	return nil
}

// Deactivate stops delivery. Gestures the subscription was following are
// ended for it: an end for begun gestures, a tentative end otherwise.
// Filters and flags are kept.
func (s *Subscription) Deactivate() error {
	if s.deleted {
		return fmt.Errorf("deactivate %q: %w", s.name, ErrInvalidHandle)
	}
	if !s.active {
		return nil
	}
	s.active = false
	s.eng.withdraw(s)
	s.eng.log.Debug("subscription deactivated", "subscription", s.name)
	return nil
}

// Delete deactivates the subscription and releases its filters.
func (s *Subscription) Delete() error {
	if s.deleted {
		return fmt.Errorf("delete %q: %w", s.name, ErrInvalidHandle)
	}
	if err := s.Deactivate(); err != nil {
		return err
	}
	for _, f := range s.filters {
		f.owner = nil
		_ = f.Unref()
	}
	s.filters = nil
	s.deleted = true
	e := s.eng
	for i, x := range e.subs {
		if x == s {
			e.subs = append(e.subs[:i], e.subs[i+1:]...)
			break
		}
	}
	return nil
}

// match evaluates the subscription's filters. depth is the scope depth the
// match was made at, used by grab.
func (e *Engine) matchSub(s *Subscription, c *candidate) (bool, int) {
	if len(s.filters) == 0 {
		return true, 0
	}
	matched, depth := false, 0
	for _, f := range s.filters {
		if ok, d := e.matchFilter(f, c); ok {
			matched = true
			depth = max(depth, d)
		}
	}
	return matched, depth
}

// recipients returns the active subscriptions c is delivered to, in
// subscription order. A grabbing subscription hides the candidate from
// matching subscriptions scoped to an enclosing region.
func (e *Engine) recipients(c *candidate, exclude []*Subscription) []*Subscription {
	type hit struct {
		s     *Subscription
		depth int
	}
	var hits []hit
	grabDepth := -1
	for _, s := range e.subs {
		if !s.active || containsSub(exclude, s) {
			continue
		}
		ok, d := e.matchSub(s, c)
		if !ok {
			continue
		}
		hits = append(hits, hit{s, d})
		if s.grab() && d > grabDepth {
			grabDepth = d
		}
	}
	var out []*Subscription
	for _, h := range hits {
		if h.depth < grabDepth {
			continue
		}
		out = append(out, h.s)
	}
	return out
}

// subsWantingTouches returns the largest group size any active subscription
// can accept, from "touches" terms of the special facility. Subscriptions
// without such terms accept up to five contacts.
func (e *Engine) subsWantingTouches() int {
	want := 0
	for _, s := range e.subs {
		if !s.active {
			continue
		}
		if len(s.filters) == 0 {
			want = max(want, maxFrameTouches)
			continue
		}
		for _, f := range s.filters {
			want = max(want, f.maxTouches())
		}
	}
	return want
}

// maxTouches derives the largest "touches" value the filter can match.
func (f *Filter) maxTouches() int {
	hi := maxFrameTouches
	var eqs []int
	for _, b := range f.batches {
		if b.facility != FilterSpecial {
			continue
		}
		for _, t := range b.terms {
			if t.name != SpecialAttrTouches || t.val.typ != AttrInteger {
				continue
			}
			v := int(t.val.i)
			switch t.op {
			case OpEQ:
				eqs = append(eqs, v)
			case OpLT:
				hi = min(hi, v-1)
			case OpLE:
				hi = min(hi, v)
			case OpGT, OpGE:
				hi = max(hi, v+1)
			}
		}
	}
	if len(eqs) > 0 {
		m := 0
		for _, v := range eqs {
			m = max(m, v)
		}
		return m
	}
	return hi
}

func containsSub(l []*Subscription, s *Subscription) bool {
	for _, x := range l {
		if x == s {
			return true
		}
	}
	return false
}

func removeSub(l []*Subscription, s *Subscription) []*Subscription {
	for i, x := range l {
		if x == s {
			return append(l[:i], l[i+1:]...)
		}
	}
	return l
}
