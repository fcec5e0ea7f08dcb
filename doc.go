// Package gesture recognizes multi-touch gestures and dispatches them to
// subscribers.
//
// An [Engine] sits between input backends and applications. Backends feed it
// raw touch frames; the engine groups live touches, runs one classifier per
// gesture class over every group, matches the results against subscription
// filters and delivers begin/update/end events (plus optional tentative
// previews) in a deterministic causal order.
//
// # Quick start
//
//	eng, err := gesture.New()
//	if err != nil {
//		return err
//	}
//	defer eng.Close()
//
//	sub, _ := eng.NewSubscription("pinch", gesture.SubscriptionNone)
//	f, _ := eng.NewFilter("pinch only")
//	_ = f.AddTerm(gesture.FilterClass, gesture.Term{
//		Attr: gesture.ClassAttrName, Op: gesture.OpEQ, Value: gesture.GesturePinch,
//	})
//	_ = sub.AddFilter(f)
//	_ = sub.Activate()
//
//	eng.RegisterEventCallback(func(ev *gesture.Event) {
//		if fr := ev.Frame(); fr != nil {
//			fmt.Println(ev.Type(), fr.Float(gesture.AttrRadiusDelta))
//		}
//	})
//
//	// From any goroutine:
//	_ = eng.AddDevice(gesture.DeviceInfo{ID: 1, Name: "panel", Touches: 10})
//	_ = eng.Push(gesture.InputFrame{Device: 1, Time: t, Touches: deltas})
//
//	// From the event loop, when the readiness descriptor fires:
//	for eng.DispatchEvents() == gesture.StatusContinue {
//	}
//
// # Threading
//
// The input methods ([Engine.AddDevice], [Engine.RemoveDevice],
// [Engine.Push], [Engine.Tick]) are safe for concurrent use. Everything else,
// including all recognition work, runs inside [Engine.DispatchEvents] on the
// caller's goroutine. The descriptor returned by the
// [ConfigFD] configuration key becomes readable whenever input is waiting.
//
// # Objects
//
// Devices, classes, groups, frames, touches, filters and events are
// reference counted. Events handed to a callback are released when it
// returns; call Ref to keep one. Events pulled with [Engine.NextEvent] belong
// to the caller. Accessors on released objects return zero values and record
// a [Diagnostic].
//
// # Backends
//
// Sub-packages feed engines from real input: backend/evdev reads Linux
// multitouch devices, backend/ebiten polls Ebitengine touches and
// backend/wsbridge accepts JSON frames over WebSocket. The ecs module
// publishes gesture events into a [Donburi] world.
//
// [Donburi]: https://github.com/yohamta/donburi
package gesture
