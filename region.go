package gesture

import "fmt"

// RegionSpec describes a region: an identified rectangle nested inside an
// optional parent. ID plays the role of a window id.
type RegionSpec struct {
	ID     int64
	Bounds Rect
	Parent *Region
}

// Region is a rectangular scope gestures are attributed to. Regions form a
// tree; a gesture belongs to the topmost deepest region containing the
// centroid of its touches when its group opened.
type Region struct {
	name     string
	id       int64
	bounds   Rect
	parent   *Region
	children []*Region
	depth    int
	removed  bool
}

// Name returns the region name.
func (r *Region) Name() string { return r.name }

// ID returns the region (window) id.
func (r *Region) ID() int64 { return r.id }

// Bounds returns the region rectangle.
func (r *Region) Bounds() Rect { return r.bounds }

// Parent returns the enclosing region, or nil for a root.
func (r *Region) Parent() *Region { return r.parent }

// Depth returns 1 for a root region, 2 for its children and so on.
func (r *Region) Depth() int { return r.depth }

func (r *Region) root() *Region {
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// within reports whether r is a or a descendant of a.
func (r *Region) within(a *Region) bool {
	for p := r; p != nil; p = p.parent {
		if p == a {
			return true
		}
	}
	return false
}

func (r *Region) attrs() Attrs {
	return Attrs{
		IntAttr(RegionAttrWindowID, r.id),
		StringAttr(RegionAttrName, r.name),
	}
}

type regionTree struct {
	roots []*Region
}

// hit returns the deepest region containing (x, y). Later siblings are on
// top of earlier ones.
func (t *regionTree) hit(x, y float64) *Region {
	return hitRegions(t.roots, x, y)
}

func hitRegions(rs []*Region, x, y float64) *Region {
	for i := len(rs) - 1; i >= 0; i-- {
		r := rs[i]
		if !r.bounds.Contains(x, y) {
			continue
		}
		if c := hitRegions(r.children, x, y); c != nil {
			return c
		}
		return r
	}
	return nil
}

// NewRegion adds a region. Region terms in filters then match gestures that
// start inside it.
func (e *Engine) NewRegion(name string, spec RegionSpec) (*Region, error) {
	if spec.Parent != nil && spec.Parent.removed {
		return nil, fmt.Errorf("region %q: parent removed: %w", name, ErrBadArgument)
	}
	r := &Region{name: name, id: spec.ID, bounds: spec.Bounds, parent: spec.Parent, depth: 1}
	if spec.Parent != nil {
		r.depth = spec.Parent.depth + 1
		spec.Parent.children = append(spec.Parent.children, r)
	} else {
		e.regions.roots = append(e.regions.roots, r)
	}
	return r, nil
}

// RemoveRegion removes a region and its descendants. Groups already
// attributed to it keep their attribution.
func (e *Engine) RemoveRegion(r *Region) error {
	if r == nil || r.removed {
		return fmt.Errorf("remove region: %w", ErrBadArgument)
	}
	markRemoved(r)
	if r.parent != nil {
		r.parent.children = removeRegion(r.parent.children, r)
	} else {
		e.regions.roots = removeRegion(e.regions.roots, r)
	}
	return nil
}

func markRemoved(r *Region) {
	r.removed = true
	for _, c := range r.children {
		markRemoved(c)
	}
}

func removeRegion(s []*Region, r *Region) []*Region {
	for i, x := range s {
		if x == r {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
