package gesture

import (
	"math"
	"time"
)

// Measurement is the read-only view of a group's touch history handed to
// classifiers. Distances are in device units; UnitsPerMetre converts
// physical thresholds into the same units.
type Measurement struct {
	Time          time.Duration // timestamp of this evaluation
	Start         time.Duration // when the group opened
	Touches       []Vec2        // member positions, in member order
	Ended         bool          // a member lifted in this evaluation
	Centroid      Vec2
	StartCentroid Vec2
	Displacement  float64 // centroid travel since the group opened
	Radius        float64 // mean distance of members from the centroid
	StartRadius   float64
	Spread        float64 // twice Radius: the contact distance for two touches
	StartSpread   float64
	Angle         float64 // accumulated rotation around the centroid, radians
	MaxTravel     float64 // furthest any single member moved from its start
	Velocity      Vec2    // centroid velocity, units per second
	UnitsPerMetre float64
}

// Elapsed returns the time since the group opened.
func (m *Measurement) Elapsed() time.Duration { return m.Time - m.Start }

// Speed returns the centroid speed in metres per second.
func (m *Measurement) Speed() float64 {
	return math.Hypot(m.Velocity.X, m.Velocity.Y) / m.UnitsPerMetre
}

// units converts a distance threshold in metres to device units.
func (m *Measurement) units(metres float64) float64 {
	return metres * m.UnitsPerMetre
}

// Drag commits once the centroid has travelled strictly further than the
// threshold.
func dragClassifier() Classifier {
	return ClassifierFunc(func(m *Measurement, p Policy) Verdict {
		if m.Displacement > m.units(p.Threshold) {
			return Commit
		}
		return Hold
	})
}

// Pinch commits once the contact spread has changed by at least the
// threshold in either direction.
func pinchClassifier() Classifier {
	return ClassifierFunc(func(m *Measurement, p Policy) Verdict {
		if math.Abs(m.Spread-m.StartSpread) >= m.units(p.Threshold) {
			return Commit
		}
		return Hold
	})
}

// Rotate commits once the accumulated angle exceeds the threshold (radians).
func rotateClassifier() Classifier {
	return ClassifierFunc(func(m *Measurement, p Policy) Verdict {
		if math.Abs(m.Angle) > p.Threshold {
			return Commit
		}
		return Hold
	})
}

// Tap commits when every member lifts without having wandered past the
// threshold, and fails as soon as any member does.
func tapClassifier() Classifier {
	return ClassifierFunc(func(m *Measurement, p Policy) Verdict {
		if m.MaxTravel > m.units(p.Threshold) {
			return Fail
		}
		if m.Ended {
			return Commit
		}
		return Hold
	})
}

// Touch commits as soon as contacts are down.
func touchClassifier() Classifier {
	return ClassifierFunc(func(*Measurement, Policy) Verdict { return Commit })
}

// Flick commits on release when the centroid was moving faster than the
// threshold (metres per second), and fails on a slow release.
func flickClassifier() Classifier {
	return ClassifierFunc(func(m *Measurement, p Policy) Verdict {
		if !m.Ended {
			return Hold
		}
		if m.Speed() > p.Threshold {
			return Commit
		}
		return Fail
	})
}

// DefaultComposition is how long a new group may keep growing before its
// frames are marked construction finished.
const DefaultComposition = 60 * time.Millisecond

// BuiltinClasses returns the definitions of the standard classes with their
// default policies.
func BuiltinClasses() []ClassDef {
	return []ClassDef{
		{Name: GestureDrag, ID: ClassIDDrag, MinTouches: 1, Policy: Policy{Threshold: 0.005, Timeout: 300 * time.Millisecond}, New: dragClassifier},
		{Name: GesturePinch, ID: ClassIDPinch, MinTouches: 2, Policy: Policy{Threshold: 0.005, Timeout: 300 * time.Millisecond}, New: pinchClassifier},
		{Name: GestureRotate, ID: ClassIDRotate, MinTouches: 2, Policy: Policy{Threshold: 0.1, Timeout: 300 * time.Millisecond}, New: rotateClassifier},
		{Name: GestureTap, ID: ClassIDTap, MinTouches: 1, Policy: Policy{Threshold: 0.003, Timeout: 300 * time.Millisecond}, New: tapClassifier},
		{Name: GestureTouch, ID: ClassIDTouch, MinTouches: 1, New: touchClassifier},
		{Name: GestureFlick, ID: ClassIDFlick, MinTouches: 1, Policy: Policy{Threshold: 0.5}, New: flickClassifier},
	}
}

// normAngle wraps a into (-pi, pi].
func normAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

func centroidOf(pts []Vec2) Vec2 {
	if len(pts) == 0 {
		return Vec2{}
	}
	var c Vec2
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	n := float64(len(pts))
	return Vec2{c.X / n, c.Y / n}
}

func radiusOf(pts []Vec2, c Vec2) float64 {
	if len(pts) < 2 {
		return 0
	}
	var r float64
	for _, p := range pts {
		r += math.Hypot(p.X-c.X, p.Y-c.Y)
	}
	return r / float64(len(pts))
}

// meanTurn returns the mean change in angle of each point around its
// centroid between two samples.
func meanTurn(prev []Vec2, prevC Vec2, cur []Vec2, curC Vec2) float64 {
	if len(cur) < 2 || len(prev) != len(cur) {
		return 0
	}
	var sum float64
	var n int
	for i := range cur {
		px, py := prev[i].X-prevC.X, prev[i].Y-prevC.Y
		cx, cy := cur[i].X-curC.X, cur[i].Y-curC.Y
		if (px == 0 && py == 0) || (cx == 0 && cy == 0) {
			continue
		}
		sum += normAngle(math.Atan2(cy, cx) - math.Atan2(py, px))
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
