package gesture

import (
	"errors"
	"testing"
)

func testCandidate(e *Engine, class string, touches int) *candidate {
	ds := e.newDevice(DeviceInfo{ID: 2, Name: "pad", Touches: 5})
	return &candidate{
		dev:     ds,
		class:   e.classes.byName(class),
		frame:   Attrs{FloatAttr(AttrRadius, 4)},
		touches: touches,
	}
}

type batch struct {
	fac   Facility
	terms []Term
}

func eq(attr string, v any) Term { return Term{Attr: attr, Op: OpEQ, Value: v} }

func buildFilter(t *testing.T, e *Engine, batches ...batch) *Filter {
	t.Helper()
	f, err := e.NewFilter("f")
	must(t, err)
	for _, b := range batches {
		if err := f.AddTerm(b.fac, b.terms...); err != nil {
			t.Fatalf("AddTerm: %v", err)
		}
	}
	return f
}

func TestFilter_Match(t *testing.T) {
	dragName := batch{FilterClass, []Term{eq(ClassAttrName, GestureDrag)}}
	tapName := batch{FilterClass, []Term{eq(ClassAttrName, GestureTap)}}
	twoTouches := batch{FilterSpecial, []Term{eq(SpecialAttrTouches, 2)}}

	tests := []struct {
		name    string
		batches []batch
		class   string
		touches int
		want    bool
	}{
		{"empty matches all", nil, GestureRotate, 2, true},
		{"class name", []batch{dragName}, GestureDrag, 1, true},
		{"class name miss", []batch{dragName}, GestureTap, 1, false},
		{"names in separate calls are OR'd", []batch{dragName, tapName}, GestureTap, 1, true},
		{"OR'd names still exclude others", []batch{dragName, tapName}, GesturePinch, 2, false},
		{"names in one call are AND'd", []batch{{FilterClass, []Term{eq(ClassAttrName, GestureDrag), eq(ClassAttrName, GestureTap)}}}, GestureDrag, 1, false},
		{"facilities are AND'd", []batch{dragName, twoTouches}, GestureDrag, 1, false},
		{"facilities are AND'd hit", []batch{dragName, twoTouches}, GestureDrag, 2, true},
		{"class id", []batch{{FilterClass, []Term{eq(ClassAttrID, ClassIDPinch)}}}, GesturePinch, 2, true},
		{"device name", []batch{{FilterDevice, []Term{eq(DeviceAttrName, "pad")}}}, GestureDrag, 1, true},
		{"device touches", []batch{{FilterDevice, []Term{{Attr: DeviceAttrTouches, Op: OpGE, Value: 10}}}}, GestureDrag, 1, false},
		{"frame attr", []batch{{FilterClass, []Term{{Attr: AttrRadius, Op: OpGT, Value: 3.0}}}}, GesturePinch, 2, true},
		{"frame attr miss", []batch{{FilterClass, []Term{{Attr: AttrRadius, Op: OpGT, Value: 5.0}}}}, GesturePinch, 2, false},
		{"touch range", []batch{{FilterSpecial, []Term{{Attr: SpecialAttrTouches, Op: OpGE, Value: 2}, {Attr: SpecialAttrTouches, Op: OpLE, Value: 3}}}}, GestureDrag, 3, true},
		{"not tentative", []batch{{FilterSpecial, []Term{eq(SpecialAttrTentative, false)}}}, GestureDrag, 1, true},
		{"type mismatch never matches", []batch{{FilterClass, []Term{eq(AttrRadius, 4)}}}, GestureDrag, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			f := buildFilter(t, e, tt.batches...)
			ok, _ := e.matchFilter(f, testCandidate(e, tt.class, tt.touches))
			if ok != tt.want {
				t.Errorf("expected %v, got %v", tt.want, ok)
			}
		})
	}
}

func TestFilter_Region(t *testing.T) {
	e := newTestEngine(t)
	outer, err := e.NewRegion("outer", RegionSpec{ID: 1, Bounds: Rect{Width: 100, Height: 100}})
	must(t, err)
	inner, err := e.NewRegion("inner", RegionSpec{ID: 2, Bounds: Rect{Width: 50, Height: 50}, Parent: outer})
	must(t, err)

	if got := e.regions.hit(10, 10); got != inner {
		t.Fatalf("expected inner at (10,10), got %v", got)
	}
	if got := e.regions.hit(70, 70); got != outer {
		t.Fatalf("expected outer at (70,70), got %v", got)
	}
	if got := e.regions.hit(170, 70); got != nil {
		t.Fatalf("expected no region at (170,70), got %v", got.Name())
	}

	tests := []struct {
		name      string
		term      Term
		want      bool
		wantDepth int
	}{
		{"own region", eq(RegionAttrWindowID, 2), true, 2},
		{"ancestor", eq(RegionAttrWindowID, 1), true, 1},
		{"by name", eq(RegionAttrName, "outer"), true, 1},
		{"unrelated", eq(RegionAttrWindowID, 3), false, 0},
		{"ordering tests own region", Term{Attr: RegionAttrWindowID, Op: OpGT, Value: 1}, true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := buildFilter(t, e, batch{FilterRegion, []Term{tt.term}})
			c := testCandidate(e, GestureDrag, 1)
			c.region = inner
			ok, depth := e.matchFilter(f, c)
			if ok != tt.want || depth != tt.wantDepth {
				t.Errorf("expected (%v, %d), got (%v, %d)", tt.want, tt.wantDepth, ok, depth)
			}
		})
	}

	must(t, e.RemoveRegion(outer))
	if e.regions.hit(10, 10) != nil {
		t.Error("removed regions still hit")
	}
	if _, err := e.NewRegion("orphan", RegionSpec{Parent: inner}); !errors.Is(err, ErrBadArgument) {
		t.Errorf("expected ErrBadArgument for removed parent, got %v", err)
	}
}

func TestFilter_MemoFollowsEdits(t *testing.T) {
	e := newTestEngine(t)
	f := buildFilter(t, e, batch{FilterClass, []Term{eq(ClassAttrName, GestureDrag)}})
	c := testCandidate(e, GestureDrag, 1)

	for i := 0; i < 2; i++ {
		if ok, _ := e.matchFilter(f, c); !ok {
			t.Fatalf("evaluation %d: expected match", i)
		}
	}
	if e.memo.Len() != 1 {
		t.Fatalf("expected 1 memo entry, got %d", e.memo.Len())
	}
	must(t, f.AddTerm(FilterSpecial, eq(SpecialAttrTouches, 3)))
	if ok, _ := e.matchFilter(f, c); ok {
		t.Error("memo returned a result from before the edit")
	}
}

func TestFilter_AddTermErrors(t *testing.T) {
	tests := []struct {
		name  string
		fac   Facility
		terms []Term
		want  error
	}{
		{"no terms", FilterClass, nil, ErrBadArgument},
		{"unknown facility", Facility(42), []Term{eq(ClassAttrName, "x")}, ErrNotSupported},
		{"unknown device attr", FilterDevice, []Term{eq("colour", "red")}, ErrNotSupported},
		{"unknown region attr", FilterRegion, []Term{eq("title", "x")}, ErrNotSupported},
		{"unknown special attr", FilterSpecial, []Term{eq("pressure", 1)}, ErrNotSupported},
		{"bool ordering", FilterSpecial, []Term{{Attr: SpecialAttrTentative, Op: OpGT, Value: true}}, ErrBadArgument},
		{"bad value type", FilterClass, []Term{eq(ClassAttrName, []string{"Drag"})}, ErrBadArgument},
		{"bad operator", FilterClass, []Term{{Attr: ClassAttrName, Op: Op(9), Value: "Drag"}}, ErrBadArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			f, _ := e.NewFilter("f")
			err := f.AddTerm(tt.fac, tt.terms...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if f.TermCount() != 0 {
				t.Error("failed AddTerm changed the filter")
			}
		})
	}
}

func TestFilter_Ownership(t *testing.T) {
	e := newTestEngine(t)
	a, _ := e.NewSubscription("a", SubscriptionNone)
	b, _ := e.NewSubscription("b", SubscriptionNone)
	f := classFilter(t, e, GestureDrag)

	must(t, a.AddFilter(f))
	if f.Owner() != a || a.FilterByName("classes") != f {
		t.Fatal("filter not owned by a")
	}
	if err := b.AddFilter(f); !errors.Is(err, ErrBadArgument) {
		t.Errorf("expected ErrBadArgument adding an owned filter, got %v", err)
	}

	c, err := f.Clone("copy")
	must(t, err)
	if c.Owner() != nil || c.TermCount() != 1 {
		t.Errorf("clone must be unowned with 1 term, got owner %v and %d terms", c.Owner(), c.TermCount())
	}
	must(t, b.AddFilter(c))

	must(t, a.RemoveFilter(f))
	if f.Owner() != nil || len(a.Filters()) != 0 {
		t.Error("RemoveFilter left the filter attached")
	}
	if err := a.RemoveFilter(f); !errors.Is(err, ErrBadArgument) {
		t.Errorf("expected ErrBadArgument removing an unowned filter, got %v", err)
	}
	must(t, f.Delete())

	must(t, c.Delete())
	if len(b.Filters()) != 0 || c.Valid() {
		t.Error("Delete must detach and release the filter")
	}

	must(t, b.Delete())
	if err := b.Activate(); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle on deleted subscription, got %v", err)
	}
	if len(e.Subscriptions()) != 1 {
		t.Errorf("expected 1 subscription left, got %d", len(e.Subscriptions()))
	}
	if _, err := e.NewSubscription("bad", SubscriptionFlags(0x10)); !errors.Is(err, ErrBadArgument) {
		t.Errorf("expected ErrBadArgument for unknown flags, got %v", err)
	}
}

func TestFilter_MaxTouches(t *testing.T) {
	tests := []struct {
		name  string
		terms []Term
		want  int
	}{
		{"none", nil, maxFrameTouches},
		{"eq", []Term{eq(SpecialAttrTouches, 2)}, 2},
		{"le", []Term{{Attr: SpecialAttrTouches, Op: OpLE, Value: 3}}, 3},
		{"lt", []Term{{Attr: SpecialAttrTouches, Op: OpLT, Value: 3}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			f, _ := e.NewFilter("f")
			if len(tt.terms) > 0 {
				must(t, f.AddTerm(FilterSpecial, tt.terms...))
			}
			if got := f.maxTouches(); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestFilter_MemoFollowsReusedDeviceID(t *testing.T) {
	e := newTestEngine(t)
	activeSub(t, e, "pad a", SubscriptionNone,
		buildFilter(t, e, batch{FilterDevice, []Term{eq(DeviceAttrName, "A")}}))

	must(t, e.AddDevice(DeviceInfo{ID: 1, Name: "A", Touches: 5}))
	in := NewInjector(e, 1, 0)
	must(t, in.Drag(0, 0, 30, 0, 1, 4))
	if evs := collect(e); len(evs) == 0 {
		t.Fatal("expected gestures from device A")
	}

	must(t, e.RemoveDevice(1))
	must(t, e.AddDevice(DeviceInfo{ID: 1, Name: "B", Touches: 5}))
	in = NewInjector(e, 1, in.Now())
	must(t, in.Drag(0, 0, 30, 0, 1, 4))
	if evs := collect(e); len(evs) != 0 {
		t.Errorf("device B reused id 1 and matched a filter for A: %v", typesOf(evs))
	}
}
