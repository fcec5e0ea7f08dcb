package ecs

import (
	"github.com/phanxgames/gesture"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// GestureEventType is the Donburi event type for gesture events.
// Subscribe to this in your ECS systems to receive recognized gestures.
var GestureEventType = events.NewEventType[gesture.GestureEvent]()

type donburiSink struct {
	world donburi.World
	class map[string]bool
}

// NewDonburiSink creates an EventSink backed by a Donburi world. Gesture
// events are published to GestureEventType and can be consumed with
// events.Subscribe and ProcessEvents. When classes are given only gestures
// of those classes are published.
func NewDonburiSink(world donburi.World, classes ...string) gesture.EventSink {
	s := &donburiSink{world: world}
	if len(classes) > 0 {
		s.class = make(map[string]bool, len(classes))
		for _, c := range classes {
			s.class[c] = true
		}
	}
	return s
}

func (s *donburiSink) EmitEvent(ev gesture.GestureEvent) {
	if s.class != nil && !s.class[ev.Class] {
		return
	}
	GestureEventType.Publish(s.world, ev)
}
